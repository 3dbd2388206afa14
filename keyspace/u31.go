// Package keyspace implements the typed BIP32/SLIP10 index algebra:
// a 32-bit global
// BIP32 index space carved into unhardened, unsecurified-hardened, and
// securified-hardened sub-ranges, each with its own bounded local
// representation and bidirectional mapping to the global index.
package keyspace

import (
	"github.com/vaultwarden-hd/hdcore/cerrors"
)

const (
	// GlobalOffsetHardened is the BIP32 global index at which the
	// hardened range begins (2^31).
	GlobalOffsetHardened uint32 = 1 << 31

	// GlobalOffsetHardenedSecurified is the BIP32 global index at
	// which the securified sub-range of hardened indices begins
	// (2^31 + 2^30).
	GlobalOffsetHardenedSecurified uint32 = (1 << 31) + (1 << 30)

	// U30Max is the largest value representable in the 30-bit local
	// securified/unsecurified-hardened index space (2^30 - 1).
	U30Max uint32 = (1 << 30) - 1

	// U31Max is the largest value representable in the 31-bit local
	// unhardened index space (2^31 - 1).
	U31Max uint32 = (1 << 31) - 1
)

// U31 is a local index in [0, 2^31). It backs both the Unhardened
// component and the local rendering of any Hardened component.
type U31 struct {
	value uint32
}

// NewU31 constructs a U31 from a local index, failing if it exceeds
// U31Max.
func NewU31(value uint32) (U31, error) {
	if value > U31Max {
		return U31{}, cerrors.Withf(cerrors.KindIndexOverflow, "%d exceeds U31 max %d", value, U31Max)
	}
	return U31{value: value}, nil
}

// Value returns the raw local index.
func (u U31) Value() uint32 { return u.value }

// CheckedAdd adds delta to u, failing with IndexOverflow if the result
// would exceed U31Max.
func (u U31) CheckedAdd(delta uint32) (U31, error) {
	sum := uint64(u.value) + uint64(delta)
	if sum > uint64(U31Max) {
		return U31{}, cerrors.Withf(cerrors.KindIndexOverflow, "%d + %d exceeds U31 max %d", u.value, delta, U31Max)
	}
	return U31{value: uint32(sum)}, nil
}
