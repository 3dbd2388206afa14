package factor

import "github.com/vaultwarden-hd/hdcore/derivation"

// HierarchicalDeterministicPublicKey binds a public key to the path
// it was derived at.
type HierarchicalDeterministicPublicKey struct {
	PublicKey      []byte                    `json:"publicKey"`
	DerivationPath derivation.DerivationPath `json:"derivationPath"`
}

// Instance is a HierarchicalDeterministicFactorInstance: the
// (FactorSourceIDFromHash, HierarchicalDeterministicPublicKey) pair an
// entity or a cache bucket holds.
type Instance struct {
	FactorSourceID IDFromHash                         `json:"factorSourceID"`
	PublicKey      HierarchicalDeterministicPublicKey `json:"publicKey"`
}

// NewInstance constructs an Instance.
func NewInstance(factorSourceID IDFromHash, publicKey []byte, path derivation.DerivationPath) Instance {
	return Instance{
		FactorSourceID: factorSourceID,
		PublicKey: HierarchicalDeterministicPublicKey{
			PublicKey:      publicKey,
			DerivationPath: path,
		},
	}
}

// IdentityKey uniquely identifies an instance by the factor source
// that produced it and the path it was derived at — cache insertion
// treats two instances with the same IdentityKey as duplicates
// ("duplicate-by-path"), regardless of differing public key bytes.
func (i Instance) IdentityKey() string {
	return i.FactorSourceID.String() + "#" + i.PublicKey.DerivationPath.PathString()
}

// Equal reports whether two instances are identical by identity key
// and public key bytes.
func (i Instance) Equal(other Instance) bool {
	if i.IdentityKey() != other.IdentityKey() {
		return false
	}
	if len(i.PublicKey.PublicKey) != len(other.PublicKey.PublicKey) {
		return false
	}
	for idx := range i.PublicKey.PublicKey {
		if i.PublicKey.PublicKey[idx] != other.PublicKey.PublicKey[idx] {
			return false
		}
	}
	return true
}
