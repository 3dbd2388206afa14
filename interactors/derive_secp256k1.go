package interactors

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/pkg/errors"
)

var secp256k1HMACKey = []byte("Bitcoin seed")

// secp256k1ExtendedKey is a BIP32 extended private key on secp256k1.
// This reference interactor holds a whole seed and derives hardened
// paths end to end, so it carries the private scalar forward rather
// than doing public-key-only child steps.
type secp256k1ExtendedKey struct {
	privateKey *btcec.PrivateKey
	chainCode  []byte
}

func masterSecp256k1Key(seed []byte) secp256k1ExtendedKey {
	mac := hmac.New(sha512.New, secp256k1HMACKey)
	mac.Write(seed)
	i := mac.Sum(nil)
	priv, _ := btcec.PrivKeyFromBytes(i[:32])
	return secp256k1ExtendedKey{privateKey: priv, chainCode: i[32:]}
}

func (k secp256k1ExtendedKey) deriveChild(index uint32) (secp256k1ExtendedKey, error) {
	var data []byte
	if index >= 1<<31 {
		data = append([]byte{0x00}, k.privateKey.Serialize()...)
	} else {
		data = append([]byte{}, k.privateKey.PubKey().SerializeCompressed()...)
	}
	indexBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(indexBytes, index)
	data = append(data, indexBytes...)

	mac := hmac.New(sha512.New, k.chainCode)
	mac.Write(data)
	i := mac.Sum(nil)
	il, ir := i[:32], i[32:]

	ilNum := new(big.Int).SetBytes(il)
	curveOrder := btcec.S256().N
	if ilNum.Cmp(curveOrder) >= 0 {
		return secp256k1ExtendedKey{}, errors.New("invalid secp256k1 child key: IL >= curve order")
	}

	childNum := new(big.Int).Add(ilNum, new(big.Int).SetBytes(k.privateKey.Serialize()))
	childNum.Mod(childNum, curveOrder)
	if childNum.Sign() == 0 {
		return secp256k1ExtendedKey{}, errors.New("invalid secp256k1 child key: derived scalar is zero")
	}

	childBytes := make([]byte, 32)
	childNum.FillBytes(childBytes)
	childPriv, _ := btcec.PrivKeyFromBytes(childBytes)

	return secp256k1ExtendedKey{privateKey: childPriv, chainCode: ir}, nil
}

// deriveSecp256k1 walks seed through every BIP32 component, returning
// the extended key at the leaf.
func deriveSecp256k1(seed []byte, components []uint32) (secp256k1ExtendedKey, error) {
	key := masterSecp256k1Key(seed)
	var err error
	for _, c := range components {
		key, err = key.deriveChild(c)
		if err != nil {
			return secp256k1ExtendedKey{}, errors.Wrap(err, "derive secp256k1 child")
		}
	}
	return key, nil
}

func (k secp256k1ExtendedKey) publicKeyBytes() []byte {
	return k.privateKey.PubKey().SerializeCompressed()
}
