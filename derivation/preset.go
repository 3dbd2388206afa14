package derivation

import (
	"fmt"

	"github.com/vaultwarden-hd/hdcore/keyspace"
)

// Preset is the Cartesian product of entity kind × derivation
// purpose the factor-instances cache and provider key their buckets
// on.
type Preset int

const (
	PresetAccountVeci Preset = iota
	PresetIdentityVeci
	PresetAccountMfa
	PresetIdentityMfa
	PresetAccountRola
	PresetIdentityRola
)

// AllPresets lists every preset in a fixed, stable order — used
// whenever the cache needs to eagerly warm "every bucket" for a
// factor source.
var AllPresets = []Preset{
	PresetAccountVeci, PresetIdentityVeci,
	PresetAccountMfa, PresetIdentityMfa,
	PresetAccountRola, PresetIdentityRola,
}

func (p Preset) String() string {
	switch p {
	case PresetAccountVeci:
		return "AccountVeci"
	case PresetIdentityVeci:
		return "IdentityVeci"
	case PresetAccountMfa:
		return "AccountMfa"
	case PresetIdentityMfa:
		return "IdentityMfa"
	case PresetAccountRola:
		return "AccountRola"
	case PresetIdentityRola:
		return "IdentityRola"
	default:
		return fmt.Sprintf("Preset(%d)", int(p))
	}
}

// EntityKind reports which entity kind this preset derives keys for.
func (p Preset) EntityKind() EntityKind {
	switch p {
	case PresetAccountVeci, PresetAccountMfa, PresetAccountRola:
		return EntityKindAccount
	default:
		return EntityKindIdentity
	}
}

// KeyKind reports which key kind this preset derives.
func (p Preset) KeyKind() KeyKind {
	if p == PresetAccountRola || p == PresetIdentityRola {
		return KeyKindAuthenticationSigning
	}
	return KeyKindTransactionSigning
}

// IsSecurified reports whether the indices this preset derives live
// in the securified key space (Mfa, the matrix-membership purpose) as
// opposed to the unsecurified-hardened space (Veci, Rola).
func (p Preset) IsSecurified() bool {
	return p == PresetAccountMfa || p == PresetIdentityMfa
}

// IndexAgnosticPath is an entity path with its index component
// elided — the bucket key the factor-instances cache groups unused
// instances under.
type IndexAgnosticPath struct {
	Network    NetworkID
	EntityKind EntityKind
	KeyKind    KeyKind
	Securified bool
}

// IndexAgnosticPathFor computes the bucket key a preset maps to on a
// given network.
func IndexAgnosticPathFor(preset Preset, network NetworkID) IndexAgnosticPath {
	return IndexAgnosticPath{
		Network:    network,
		EntityKind: preset.EntityKind(),
		KeyKind:    preset.KeyKind(),
		Securified: preset.IsSecurified(),
	}
}

// String renders an IndexAgnosticPath for logging/diagnostics.
func (p IndexAgnosticPath) String() string {
	return fmt.Sprintf("network=%d/entity=%s/key=%s/securified=%t", p.Network, p.EntityKind, p.KeyKind, p.Securified)
}

// NewPathForPreset builds the concrete CAP26Path a preset maps to at
// localIndex on network, choosing the unsecurified-hardened or
// securified key space per the preset's IsSecurified.
func NewPathForPreset(preset Preset, network NetworkID, localIndex uint32) (CAP26Path, error) {
	index, err := componentForPreset(preset, localIndex)
	if err != nil {
		return CAP26Path{}, err
	}
	if preset.EntityKind() == EntityKindAccount {
		return NewAccountPath(network, preset.KeyKind(), index)
	}
	return NewIdentityPath(network, preset.KeyKind(), index)
}

func componentForPreset(preset Preset, localIndex uint32) (keyspace.HDPathComponent, error) {
	if preset.IsSecurified() {
		return keyspace.NewSecurifiedU30(localIndex)
	}
	return keyspace.NewUnsecurifiedHardened(localIndex)
}
