package provider

import (
	"context"

	"github.com/vaultwarden-hd/hdcore/cache"
	"github.com/vaultwarden-hd/hdcore/derivation"
	"github.com/vaultwarden-hd/hdcore/entity"
	"github.com/vaultwarden-hd/hdcore/interactors"
)

// ProvideForShield resolves the MFA instances needed to apply shield
// to accountCount accounts and personaCount personas on network: for
// every factor source the shield references, accountCount AccountMfa
// instances and personaCount IdentityMfa instances. The derivation
// purpose shown to the user follows from which entity kinds are in
// scope.
func (p *Provider) ProvideForShield(
	ctx context.Context,
	shield entity.SecurityStructureOfFactorSources,
	accountCount, personaCount int,
	network derivation.NetworkID,
) (*InstancesInCacheConsumer, Outcome, error) {
	var quantified []cache.QuantifiedPreset
	if accountCount > 0 {
		quantified = append(quantified, cache.QuantifiedPreset{Preset: derivation.PresetAccountMfa, Quantity: accountCount})
	}
	if personaCount > 0 {
		quantified = append(quantified, cache.QuantifiedPreset{Preset: derivation.PresetIdentityMfa, Quantity: personaCount})
	}

	purpose := interactors.DerivationPurposeSecurifyingAccountsAndPersonas
	switch {
	case personaCount == 0:
		purpose = interactors.DerivationPurposeSecurifyingAccount
	case accountCount == 0:
		purpose = interactors.DerivationPurposeSecurifyingPersona
	}

	return p.ProvideForPresets(ctx, shield.AllFactorSourceIDs(), quantified, network, purpose)
}
