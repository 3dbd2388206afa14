package keyspace

import "github.com/vaultwarden-hd/hdcore/cerrors"

// U30 is a local index in [0, 2^30). It backs both the
// UnsecurifiedHardened and Securified sub-types.
type U30 struct {
	value uint32
}

// NewU30 constructs a U30 from a local index, failing if it exceeds
// U30Max.
func NewU30(value uint32) (U30, error) {
	if value > U30Max {
		return U30{}, cerrors.Withf(cerrors.KindIndexOverflow, "%d exceeds U30 max %d", value, U30Max)
	}
	return U30{value: value}, nil
}

// Value returns the raw local index.
func (u U30) Value() uint32 { return u.value }

// AsU31 widens a U30 into a U31 for rendering/ordering purposes; this
// never fails since U30Max < U31Max.
func (u U30) AsU31() U31 {
	return U31{value: u.value}
}

// CheckedAdd adds delta to u, failing with IndexOverflow if the
// result would exceed U30Max.
func (u U30) CheckedAdd(delta uint32) (U30, error) {
	sum := uint64(u.value) + uint64(delta)
	if sum > uint64(U30Max) {
		return U30{}, cerrors.Withf(cerrors.KindIndexOverflow, "%d + %d exceeds U30 max %d", u.value, delta, U30Max)
	}
	return U30{value: uint32(sum)}, nil
}
