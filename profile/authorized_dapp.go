package profile

import (
	"github.com/vaultwarden-hd/hdcore/cerrors"
	"github.com/vaultwarden-hd/hdcore/derivation"
	"github.com/vaultwarden-hd/hdcore/entity"
)

// AuthorizedDapp is a dapp a host has connected personas to, scoped to
// a single network.
type AuthorizedDapp struct {
	NetworkID                     derivation.NetworkID
	DappDefinitionAddress         entity.Address
	DisplayName                   string
	AddressesOfAuthorizedPersonas []entity.Address
}

// IdentityKey satisfies idmap.Identifiable: dapps are keyed by their
// definition address.
func (d AuthorizedDapp) IdentityKey() string {
	return string(d.DappDefinitionAddress)
}

// NewAuthorizedDapp constructs an AuthorizedDapp, enforcing at
// construction time that every authorized persona and the dapp
// definition itself share network. Address-format codecs are out of
// this core's scope, so the network a Bech32m address encodes is
// supplied by the caller as the resolved persona/dapp-definition
// entities rather than decoded here.
func NewAuthorizedDapp(
	network derivation.NetworkID,
	dappDefinitionAddress entity.Address,
	dappDefinitionNetwork derivation.NetworkID,
	displayName string,
	personas []entity.Entity,
) (AuthorizedDapp, error) {
	if dappDefinitionNetwork != network {
		return AuthorizedDapp{}, cerrors.WithFields(cerrors.KindAuthorizedDappNetworkMismatch, map[string]interface{}{
			"dappDefinitionAddress": dappDefinitionAddress,
			"expectedNetwork":       network,
			"gotNetwork":            dappDefinitionNetwork,
		})
	}

	addrs := make([]entity.Address, 0, len(personas))
	for _, p := range personas {
		if p.Kind != entity.KindPersona {
			return AuthorizedDapp{}, cerrors.WithFields(cerrors.KindExpectedPersonaButGotAccount, map[string]interface{}{"address": p.Address})
		}
		if p.NetworkID != network {
			return AuthorizedDapp{}, cerrors.WithFields(cerrors.KindAuthorizedDappNetworkMismatch, map[string]interface{}{
				"personaAddress":  p.Address,
				"expectedNetwork": network,
				"gotNetwork":      p.NetworkID,
			})
		}
		addrs = append(addrs, p.Address)
	}

	return AuthorizedDapp{
		NetworkID:                     network,
		DappDefinitionAddress:         dappDefinitionAddress,
		DisplayName:                   displayName,
		AddressesOfAuthorizedPersonas: addrs,
	}, nil
}
