package entity

import (
	"github.com/vaultwarden-hd/hdcore/derivation"
	"github.com/vaultwarden-hd/hdcore/factor"
)

// Entity is the shared shape of an Account or a Persona: a
// network-scoped address, a display name, and the security state
// that controls it.
type Entity struct {
	Kind          Kind
	NetworkID     derivation.NetworkID
	Address       Address
	DisplayName   string
	SecurityState SecurityState
	Hidden        bool
}

// NewAccount constructs an unsecurified or securified Account.
func NewAccount(network derivation.NetworkID, address Address, displayName string, state SecurityState) Entity {
	return Entity{Kind: KindAccount, NetworkID: network, Address: address, DisplayName: displayName, SecurityState: state}
}

// NewPersona constructs an unsecurified or securified Persona.
func NewPersona(network derivation.NetworkID, address Address, displayName string, state SecurityState) Entity {
	return Entity{Kind: KindPersona, NetworkID: network, Address: address, DisplayName: displayName, SecurityState: state}
}

// IdentityKey satisfies idmap.Identifiable: entities are keyed by
// their address.
func (e Entity) IdentityKey() string {
	return string(e.Address)
}

// IsSecurified reports whether e is currently controlled by a matrix
// of factor instances rather than a single unsecured instance.
func (e Entity) IsSecurified() bool {
	return e.SecurityState.Kind == StateKindSecurified
}

// TransactionSigningInstances returns every factor instance that can
// authorize a transaction on e's behalf: the single unsecured
// instance, or the union of the securified matrix's primary role
// threshold and override lists.
func (e Entity) TransactionSigningInstances() []OwnedInstance {
	if !e.IsSecurified() {
		return []OwnedInstance{{Entity: e, Instance: e.SecurityState.Unsecured.TransactionSigning}}
	}
	primary := e.SecurityState.Securified.SecurityStructure.Matrix.Primary
	out := make([]OwnedInstance, 0, len(primary.ThresholdFactors)+len(primary.OverrideFactors))
	for _, f := range primary.ThresholdFactors {
		out = append(out, OwnedInstance{Entity: e, Instance: f})
	}
	for _, f := range primary.OverrideFactors {
		out = append(out, OwnedInstance{Entity: e, Instance: f})
	}
	return out
}

// AuthenticationSigningInstance returns the factor instance e signs
// ROLA (off-ledger authentication) challenges with: the
// unsecured control's optional authentication-signing instance, or a
// securified entity's dedicated ROLA instance.
func (e Entity) AuthenticationSigningInstance() (factor.Instance, bool) {
	if !e.IsSecurified() {
		if e.SecurityState.Unsecured.AuthenticationSigning != nil {
			return *e.SecurityState.Unsecured.AuthenticationSigning, true
		}
		return factor.Instance{}, false
	}
	if e.SecurityState.Securified.AuthenticationSigning != nil {
		return *e.SecurityState.Securified.AuthenticationSigning, true
	}
	return factor.Instance{}, false
}

// OwnedInstance pairs a factor instance with the entity that owns it,
// the unit the signatures collector dispatches signing requests over.
type OwnedInstance struct {
	Entity   Entity
	Instance factor.Instance
}
