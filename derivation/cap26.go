// Package derivation implements CAP26 entity-key paths and the
// legacy BIP44-like Olympia path, plus the DerivationPath JSON
// envelope and the DerivationPreset to IndexAgnosticPath mapping.
package derivation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vaultwarden-hd/hdcore/cerrors"
	"github.com/vaultwarden-hd/hdcore/keyspace"
)

// Purpose and CoinType are fixed for every CAP26 path.
const (
	Purpose  uint32 = 44
	CoinType uint32 = 1022
)

// NetworkIDLimit is the exclusive upper bound on a network id
// (2^14).
const NetworkIDLimit uint32 = 1 << 14

// EntityKind discriminates which kind of entity a CAP26 path belongs
// to.
type EntityKind uint32

const (
	EntityKindAccount  EntityKind = 525
	EntityKindIdentity EntityKind = 618
)

func (k EntityKind) String() string {
	switch k {
	case EntityKindAccount:
		return "Account"
	case EntityKindIdentity:
		return "Identity"
	default:
		return fmt.Sprintf("EntityKind(%d)", uint32(k))
	}
}

func parseEntityKind(v uint32) (EntityKind, error) {
	switch EntityKind(v) {
	case EntityKindAccount, EntityKindIdentity:
		return EntityKind(v), nil
	default:
		return 0, cerrors.Withf(cerrors.KindInvalidEntityKind, "%d", v)
	}
}

// KeyKind discriminates the purpose of the key at a CAP26 path's leaf.
type KeyKind uint32

const (
	KeyKindTransactionSigning  KeyKind = 1460
	KeyKindAuthenticationSigning KeyKind = 1678
)

func (k KeyKind) String() string {
	switch k {
	case KeyKindTransactionSigning:
		return "TransactionSigning"
	case KeyKindAuthenticationSigning:
		return "AuthenticationSigning"
	default:
		return fmt.Sprintf("KeyKind(%d)", uint32(k))
	}
}

func parseKeyKind(v uint32) (KeyKind, error) {
	switch KeyKind(v) {
	case KeyKindTransactionSigning, KeyKindAuthenticationSigning:
		return KeyKind(v), nil
	default:
		return 0, cerrors.Withf(cerrors.KindInvalidKeyKind, "%d", v)
	}
}

// NetworkID is a numeric ledger network identifier in [0, 2^14).
type NetworkID uint32

// CAP26Path is the canonical depth-6 entity derivation path:
// m/44'/1022'/NETWORK'/ENTITY_KIND'/KEY_KIND'/INDEX.
type CAP26Path struct {
	Network    NetworkID
	EntityKind EntityKind
	KeyKind    KeyKind
	Index      keyspace.HDPathComponent
}

// NewAccountPath constructs a CAP26Path for an Account entity. Index
// must be Hardened (UnsecurifiedHardened or Securified).
func NewAccountPath(network NetworkID, keyKind KeyKind, index keyspace.HDPathComponent) (CAP26Path, error) {
	return newCAP26Path(network, EntityKindAccount, keyKind, index)
}

// NewIdentityPath constructs a CAP26Path for an Identity (Persona)
// entity. Index must be Hardened.
func NewIdentityPath(network NetworkID, keyKind KeyKind, index keyspace.HDPathComponent) (CAP26Path, error) {
	return newCAP26Path(network, EntityKindIdentity, keyKind, index)
}

func newCAP26Path(network NetworkID, entityKind EntityKind, keyKind KeyKind, index keyspace.HDPathComponent) (CAP26Path, error) {
	if uint32(network) >= NetworkIDLimit {
		return CAP26Path{}, cerrors.Withf(cerrors.KindInvalidNetworkIDExceedsLimit, "%d", network)
	}
	if !keyspace.IsHardened(index) {
		return CAP26Path{}, cerrors.New(cerrors.KindNotAllComponentsAreHardened)
	}
	return CAP26Path{Network: network, EntityKind: entityKind, KeyKind: keyKind, Index: index}, nil
}

// Depth is always 6 for a CAP26Path.
func (p CAP26Path) Depth() int { return 6 }

// GlobalComponents returns the path's six BIP32 components in global
// key-space form, suitable for HMAC-SHA512 child-key derivation.
func (p CAP26Path) GlobalComponents() []uint32 {
	return []uint32{
		keyspace.GlobalOffsetHardened + Purpose,
		keyspace.GlobalOffsetHardened + CoinType,
		keyspace.GlobalOffsetHardened + uint32(p.Network),
		keyspace.GlobalOffsetHardened + uint32(p.EntityKind),
		keyspace.GlobalOffsetHardened + uint32(p.KeyKind),
		p.Index.ToGlobal(),
	}
}

// String renders the path in CAP43 verbose form, e.g.
// "m/44H/1022H/1H/525H/1460H/0H".
func (p CAP26Path) String() string {
	parts := []string{
		"m",
		strconv.FormatUint(uint64(Purpose), 10) + "H",
		strconv.FormatUint(uint64(CoinType), 10) + "H",
		strconv.FormatUint(uint64(p.Network), 10) + "H",
		strconv.FormatUint(uint64(p.EntityKind), 10) + "H",
		strconv.FormatUint(uint64(p.KeyKind), 10) + "H",
		keyspace.String(p.Index),
	}
	return strings.Join(parts, "/")
}

// ParseCAP26Path parses a depth-6 CAP26 path string, validating every
// fixed component and failing with a named error kind for each way a
// path can be malformed.
func ParseCAP26Path(raw string) (CAP26Path, error) {
	components, err := keyspace.ParsePath(raw)
	if err != nil {
		return CAP26Path{}, err
	}
	if len(components) != 6 {
		return CAP26Path{}, cerrors.Withf(cerrors.KindInvalidDepthOfCAP26Path, "depth %d", len(components))
	}
	for _, c := range components {
		if !keyspace.IsHardened(c) {
			return CAP26Path{}, cerrors.New(cerrors.KindNotAllComponentsAreHardened)
		}
	}

	if components[0].IndexInLocalKeySpace() != Purpose {
		return CAP26Path{}, cerrors.New(cerrors.KindBIP44PurposeNotFound)
	}
	if components[1].IndexInLocalKeySpace() != CoinType {
		return CAP26Path{}, cerrors.New(cerrors.KindCoinTypeNotFound)
	}

	network := components[2].IndexInLocalKeySpace()
	if network >= NetworkIDLimit {
		return CAP26Path{}, cerrors.Withf(cerrors.KindInvalidNetworkIDExceedsLimit, "%d", network)
	}

	entityKind, err := parseEntityKind(components[3].IndexInLocalKeySpace())
	if err != nil {
		return CAP26Path{}, err
	}

	keyKind, err := parseKeyKind(components[4].IndexInLocalKeySpace())
	if err != nil {
		return CAP26Path{}, err
	}

	return CAP26Path{
		Network:    NetworkID(network),
		EntityKind: entityKind,
		KeyKind:    keyKind,
		Index:      components[5],
	}, nil
}

// ParseAccountPath parses raw and asserts it is an Account path,
// failing with WrongEntityKind otherwise.
func ParseAccountPath(raw string) (CAP26Path, error) {
	p, err := ParseCAP26Path(raw)
	if err != nil {
		return CAP26Path{}, err
	}
	if p.EntityKind != EntityKindAccount {
		return CAP26Path{}, cerrors.New(cerrors.KindWrongEntityKind)
	}
	return p, nil
}

// ParseIdentityPath parses raw and asserts it is an Identity path,
// failing with WrongEntityKind otherwise.
func ParseIdentityPath(raw string) (CAP26Path, error) {
	p, err := ParseCAP26Path(raw)
	if err != nil {
		return CAP26Path{}, err
	}
	if p.EntityKind != EntityKindIdentity {
		return CAP26Path{}, cerrors.New(cerrors.KindWrongEntityKind)
	}
	return p, nil
}
