package interactors

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"math/big"

	"github.com/decred/dcrd/dcrec/edwards/v2"
	"github.com/pkg/errors"
)

var ed25519HMACKey = []byte("ed25519 seed")

// ed25519ExtendedKey is a SLIP-0010 extended private key on
// curve25519. SLIP-0010 only defines hardened derivation for ed25519,
// so every component deriveChild accepts must be hardened — matching
// the fact every CAP26Path component is hardened by construction.
type ed25519ExtendedKey struct {
	scalar    []byte // 32-byte raw scalar
	chainCode []byte
}

func masterEd25519Key(seed []byte) ed25519ExtendedKey {
	mac := hmac.New(sha512.New, ed25519HMACKey)
	mac.Write(seed)
	i := mac.Sum(nil)
	return ed25519ExtendedKey{scalar: i[:32], chainCode: i[32:]}
}

func (k ed25519ExtendedKey) deriveChild(index uint32) (ed25519ExtendedKey, error) {
	if index < 1<<31 {
		return ed25519ExtendedKey{}, errors.New("ed25519 SLIP-0010 derivation requires a hardened index")
	}
	data := append([]byte{0x00}, k.scalar...)
	indexBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(indexBytes, index)
	data = append(data, indexBytes...)

	mac := hmac.New(sha512.New, k.chainCode)
	mac.Write(data)
	i := mac.Sum(nil)
	return ed25519ExtendedKey{scalar: i[:32], chainCode: i[32:]}, nil
}

func deriveEd25519(seed []byte, components []uint32) (ed25519ExtendedKey, error) {
	key := masterEd25519Key(seed)
	var err error
	for _, c := range components {
		key, err = key.deriveChild(c)
		if err != nil {
			return ed25519ExtendedKey{}, errors.Wrap(err, "derive ed25519 child")
		}
	}
	return key, nil
}

// privateKey reconstructs a dcrd/edwards private key from the derived
// scalar; there is a single whole scalar, so the public point is just
// scalar*G.
func (k ed25519ExtendedKey) privateKey() *edwards.PrivateKey {
	// ScalarBaseMult is periodic in the group order, so reducing the
	// raw scalar mod N yields the same public point while satisfying
	// PrivKeyFromScalar's subgroup-range check.
	d := new(big.Int).SetBytes(k.scalar)
	d.Mod(d, edwards.Edwards().N)
	scalarBytes := make([]byte, edwards.PrivScalarSize)
	d.FillBytes(scalarBytes)
	priv, _, err := edwards.PrivKeyFromScalar(scalarBytes)
	if err != nil {
		panic(err)
	}
	return priv
}

func (k ed25519ExtendedKey) publicKeyBytes() []byte {
	priv := k.privateKey()
	return priv.PubKey().Serialize()
}
