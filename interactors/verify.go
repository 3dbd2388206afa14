package interactors

import (
	"crypto/ed25519"

	"github.com/btcsuite/btcd/btcec/v2"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// VerifySecp256k1 checks sig against digest under pubKeyBytes
// (compressed or uncompressed SEC1 encoding) via go-ethereum's
// crypto.VerifySignature.
func VerifySecp256k1(pubKeyBytes []byte, digest []byte, sig []byte) bool {
	pubKey, err := ethcrypto.UnmarshalPubkey(normalizeSecp256k1PubKey(pubKeyBytes))
	if err != nil {
		return false
	}
	sigNoRecovery := sig
	if len(sig) == 65 {
		sigNoRecovery = sig[:64]
	}
	if len(sigNoRecovery) != 64 {
		return false
	}
	return ethcrypto.VerifySignature(ethcrypto.FromECDSAPub(pubKey), digest, sigNoRecovery)
}

// normalizeSecp256k1PubKey expands a compressed key to uncompressed
// SEC1 when needed; go-ethereum's UnmarshalPubkey only accepts the
// uncompressed form.
func normalizeSecp256k1PubKey(pubKeyBytes []byte) []byte {
	if len(pubKeyBytes) != 33 {
		return pubKeyBytes
	}
	key, err := btcec.ParsePubKey(pubKeyBytes)
	if err != nil {
		return pubKeyBytes
	}
	return key.SerializeUncompressed()
}

// VerifyEd25519 checks sig against digest under pubKeyBytes, mirroring
// guardian_policy.go's verifyEd25519.
func VerifyEd25519(pubKeyBytes []byte, digest []byte, sig []byte) bool {
	if len(pubKeyBytes) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pubKeyBytes, digest, sig)
}
