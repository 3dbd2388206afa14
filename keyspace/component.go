package keyspace

import "github.com/vaultwarden-hd/hdcore/cerrors"

// Space tags which of the three sub-ranges a component lives in.
type Space int

const (
	// SpaceUnhardened is the unsecurified, unhardened range [0, 2^31).
	SpaceUnhardened Space = iota
	// SpaceUnsecurifiedHardened is the unsecurified hardened range
	// [2^31, 2^31+2^30).
	SpaceUnsecurifiedHardened
	// SpaceSecurified is the securified hardened range
	// [2^31+2^30, 2^32).
	SpaceSecurified
)

func (s Space) String() string {
	switch s {
	case SpaceUnhardened:
		return "Unhardened"
	case SpaceUnsecurifiedHardened:
		return "UnsecurifiedHardened"
	case SpaceSecurified:
		return "Securified"
	default:
		return "Unknown"
	}
}

// IsHardened reports whether this key space is one of the two
// hardened ranges.
func (s Space) IsHardened() bool {
	return s == SpaceUnsecurifiedHardened || s == SpaceSecurified
}

// HDPathComponent is the union
// Unsecurified(Unhardened | UnsecurifiedHardened) | Securified(SecurifiedU30).
// Concrete implementations are Unhardened, UnsecurifiedHardened and
// SecurifiedU30.
type HDPathComponent interface {
	// Space reports which of the three sub-ranges this component
	// belongs to.
	Space() Space
	// IndexInLocalKeySpace returns the component's index within its
	// own local representation (U31 for Unhardened, U30 for the two
	// hardened variants).
	IndexInLocalKeySpace() uint32
	// ToGlobal returns the 32-bit BIP32 global index.
	ToGlobal() uint32
}

// Unhardened is the unsecurified, unhardened component: local U31,
// global range [0, 2^31).
type Unhardened struct {
	local U31
}

// NewUnhardened constructs an Unhardened component from a local index.
func NewUnhardened(local uint32) (Unhardened, error) {
	u, err := NewU31(local)
	if err != nil {
		return Unhardened{}, err
	}
	return Unhardened{local: u}, nil
}

func (u Unhardened) Space() Space                  { return SpaceUnhardened }
func (u Unhardened) IndexInLocalKeySpace() uint32   { return u.local.Value() }
func (u Unhardened) ToGlobal() uint32               { return u.local.Value() }

// CheckedAdd adds delta without crossing into the hardened range.
func (u Unhardened) CheckedAdd(delta uint32) (Unhardened, error) {
	next, err := u.local.CheckedAdd(delta)
	if err != nil {
		return Unhardened{}, cerrors.Wrap(cerrors.KindCannotAddMoreToIndexSinceItWouldChangeKeySpace, err)
	}
	return Unhardened{local: next}, nil
}

// UnsecurifiedHardened is the unsecurified hardened component: local
// U30, global range [2^31, 2^31+2^30).
type UnsecurifiedHardened struct {
	local U30
}

// NewUnsecurifiedHardened constructs an UnsecurifiedHardened component
// from a local index.
func NewUnsecurifiedHardened(local uint32) (UnsecurifiedHardened, error) {
	u, err := NewU30(local)
	if err != nil {
		return UnsecurifiedHardened{}, err
	}
	return UnsecurifiedHardened{local: u}, nil
}

func (u UnsecurifiedHardened) Space() Space                { return SpaceUnsecurifiedHardened }
func (u UnsecurifiedHardened) IndexInLocalKeySpace() uint32 { return u.local.Value() }
func (u UnsecurifiedHardened) ToGlobal() uint32 {
	return GlobalOffsetHardened + u.local.Value()
}

// CheckedAdd adds delta, failing if it would cross into the
// securified range.
func (u UnsecurifiedHardened) CheckedAdd(delta uint32) (UnsecurifiedHardened, error) {
	next, err := u.local.CheckedAdd(delta)
	if err != nil {
		return UnsecurifiedHardened{}, cerrors.Wrap(cerrors.KindCannotAddMoreToIndexSinceItWouldChangeKeySpace, err)
	}
	return UnsecurifiedHardened{local: next}, nil
}

// SecurifiedU30 is the securified hardened component: local U30,
// global range [2^31+2^30, 2^32).
type SecurifiedU30 struct {
	local U30
}

// NewSecurifiedU30 constructs a SecurifiedU30 component from a local
// index.
func NewSecurifiedU30(local uint32) (SecurifiedU30, error) {
	u, err := NewU30(local)
	if err != nil {
		return SecurifiedU30{}, err
	}
	return SecurifiedU30{local: u}, nil
}

func (s SecurifiedU30) Space() Space                { return SpaceSecurified }
func (s SecurifiedU30) IndexInLocalKeySpace() uint32 { return s.local.Value() }
func (s SecurifiedU30) ToGlobal() uint32 {
	return GlobalOffsetHardenedSecurified + s.local.Value()
}

// CheckedAdd adds delta, failing with IndexOverflow if it would
// exceed the securified local maximum.
func (s SecurifiedU30) CheckedAdd(delta uint32) (SecurifiedU30, error) {
	next, err := s.local.CheckedAdd(delta)
	if err != nil {
		return SecurifiedU30{}, err
	}
	return SecurifiedU30{local: next}, nil
}

// IsUnsecurified reports whether c belongs to either unsecurified
// sub-range (hardened or not).
func IsUnsecurified(c HDPathComponent) bool {
	return c.Space() == SpaceUnhardened || c.Space() == SpaceUnsecurifiedHardened
}

// IsHardened reports whether c belongs to either of the two hardened
// sub-ranges (UnsecurifiedHardened | Securified) — the union the
// specification calls `Hardened`.
func IsHardened(c HDPathComponent) bool {
	return c.Space().IsHardened()
}

// FromGlobalKeySpace returns the unique sub-type whose range contains
// v.
func FromGlobalKeySpace(v uint32) (HDPathComponent, error) {
	switch {
	case v < GlobalOffsetHardened:
		return Unhardened{local: U31{value: v}}, nil
	case v < GlobalOffsetHardenedSecurified:
		return UnsecurifiedHardened{local: U30{value: v - GlobalOffsetHardened}}, nil
	default:
		return SecurifiedU30{local: U30{value: v - GlobalOffsetHardenedSecurified}}, nil
	}
}

// FromLocalKeySpace returns the component of the given Space built
// from a local index, failing if v exceeds that sub-type's local
// maximum.
func FromLocalKeySpace(v uint32, space Space) (HDPathComponent, error) {
	switch space {
	case SpaceUnhardened:
		return NewUnhardened(v)
	case SpaceUnsecurifiedHardened:
		return NewUnsecurifiedHardened(v)
	case SpaceSecurified:
		return NewSecurifiedU30(v)
	default:
		return nil, cerrors.Withf(cerrors.KindIndexOverflow, "unknown key space %v", space)
	}
}

// Compare orders components unsecurified-before-securified, and
// numerically by local index within each side, per the
// specification's path-algebra ordering rule. It returns -1, 0, or 1.
func Compare(a, b HDPathComponent) int {
	aSec := a.Space() == SpaceSecurified
	bSec := b.Space() == SpaceSecurified
	if aSec != bSec {
		if aSec {
			return 1
		}
		return -1
	}
	ai, bi := a.IndexInLocalKeySpace(), b.IndexInLocalKeySpace()
	switch {
	case ai < bi:
		return -1
	case ai > bi:
		return 1
	default:
		return 0
	}
}

// AsSecurified coerces c to a SecurifiedU30, failing with
// IndexUnsecurifiedExpectedSecurified if c is not in the securified
// space.
func AsSecurified(c HDPathComponent) (SecurifiedU30, error) {
	if s, ok := c.(SecurifiedU30); ok {
		return s, nil
	}
	return SecurifiedU30{}, cerrors.New(cerrors.KindIndexUnsecurifiedExpectedSecurified)
}

// AsUnsecurifiedHardened coerces c to an UnsecurifiedHardened, failing
// with IndexSecurifiedExpectedUnsecurified otherwise.
func AsUnsecurifiedHardened(c HDPathComponent) (UnsecurifiedHardened, error) {
	if u, ok := c.(UnsecurifiedHardened); ok {
		return u, nil
	}
	return UnsecurifiedHardened{}, cerrors.New(cerrors.KindIndexSecurifiedExpectedUnsecurified)
}
