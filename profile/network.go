package profile

import (
	"github.com/vaultwarden-hd/hdcore/derivation"
	"github.com/vaultwarden-hd/hdcore/entity"
	"github.com/vaultwarden-hd/hdcore/idmap"
)

// Network is the per-network slice of a Profile: the accounts,
// personas, and authorized dapps that live on one ledger network.
type Network struct {
	ID              derivation.NetworkID
	Accounts        idmap.Map[string, entity.Entity]
	Personas        idmap.Map[string, entity.Entity]
	AuthorizedDapps idmap.Map[string, AuthorizedDapp]
}

func newNetwork(id derivation.NetworkID) *Network {
	return &Network{ID: id}
}
