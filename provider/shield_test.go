package provider_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultwarden-hd/hdcore/cache"
	"github.com/vaultwarden-hd/hdcore/derivation"
	"github.com/vaultwarden-hd/hdcore/entity"
	"github.com/vaultwarden-hd/hdcore/factor"
	"github.com/vaultwarden-hd/hdcore/provider"
)

func thresholdShield(t *testing.T, threshold uint8, ids ...factor.IDFromHash) entity.SecurityStructureOfFactorSources {
	t.Helper()
	primary, err := entity.NewRoleOfFactorSourceIDs(ids, threshold, nil)
	require.NoError(t, err)
	return entity.SecurityStructureOfFactorSources{
		ID:          "shield-under-test",
		DisplayName: "Shield",
		Matrix:      entity.MatrixOfFactorSourceIDs{Primary: primary},
	}
}

// Securifying two accounts through the shield entry point: a 2-of-3
// shield over a cache holding 30 AccountMfa instances per factor,
// applied to two accounts. Six instances leave the cache, none are
// derived.
func TestProvideForShieldSatisfiedFromCache(t *testing.T) {
	c := newTestCache()
	fsA := factor.NewIDFromHashOfPublicKey(factor.KindDevice, []byte("shield-fs-a"))
	fsB := factor.NewIDFromHashOfPublicKey(factor.KindLedgerHQHardwareWallet, []byte("shield-fs-b"))
	fsC := factor.NewIDFromHashOfPublicKey(factor.KindArculusCard, []byte("shield-fs-c"))
	for _, id := range []factor.IDFromHash{fsA, fsB, fsC} {
		populateCache(t, c, id, derivation.PresetAccountMfa, 30)
	}

	p := provider.New(c, noDerivationAllowedInteractor{t: t})
	shield := thresholdShield(t, 2, fsA, fsB, fsC)

	consumer, outcome, err := p.ProvideForShield(context.Background(), shield, 2, 0, mainnet)
	require.NoError(t, err)

	for _, id := range []factor.IDFromHash{fsA, fsB, fsC} {
		got := outcome.InstancesFor(id, derivation.PresetAccountMfa)
		require.Len(t, got, 2)
		assert.Equal(t, uint32(0), got[0].PublicKey.DerivationPath.CAP26.Index.IndexInLocalKeySpace())
		assert.Equal(t, uint32(1), got[1].PublicKey.DerivationPath.CAP26.Index.IndexInLocalKeySpace())
	}

	require.NoError(t, consumer.Consume())
	total, err := c.TotalNumberOfFactorInstances()
	require.NoError(t, err)
	assert.Equal(t, 90-6, total, "exactly 2 instances per factor source leave the cache")
}

// Applying a shield to both accounts and personas requests both MFA
// presets for every factor the shield references.
func TestProvideForShieldCoversAccountsAndPersonas(t *testing.T) {
	c := newTestCache()
	fsA := factor.NewIDFromHashOfPublicKey(factor.KindDevice, []byte("shield-fs-mixed"))
	interactor := seededInteractor(t, fsA)

	p := provider.New(c, interactor)
	shield := thresholdShield(t, 1, fsA)

	consumer, outcome, err := p.ProvideForShield(context.Background(), shield, 1, 1, mainnet)
	require.NoError(t, err)

	require.Len(t, outcome.InstancesFor(fsA, derivation.PresetAccountMfa), 1)
	require.Len(t, outcome.InstancesFor(fsA, derivation.PresetIdentityMfa), 1)
	require.NoError(t, consumer.Consume())
}

// The materialized outcome of a shield provision slots directly into
// Materialize: one instance per factor source securifies one entity.
func TestProvideForShieldOutcomeMaterializes(t *testing.T) {
	c := newTestCache()
	fsA := factor.NewIDFromHashOfPublicKey(factor.KindDevice, []byte("shield-mat-a"))
	fsB := factor.NewIDFromHashOfPublicKey(factor.KindLedgerHQHardwareWallet, []byte("shield-mat-b"))
	for _, id := range []factor.IDFromHash{fsA, fsB} {
		populateCache(t, c, id, derivation.PresetAccountMfa, cache.CacheFillingQuantity)
	}

	p := provider.New(c, noDerivationAllowedInteractor{t: t})
	shield := thresholdShield(t, 2, fsA, fsB)

	consumer, outcome, err := p.ProvideForShield(context.Background(), shield, 1, 0, mainnet)
	require.NoError(t, err)
	defer consumer.Abandon()

	perFactor := map[factor.IDFromHash]factor.Instance{
		fsA: outcome.InstancesFor(fsA, derivation.PresetAccountMfa)[0],
		fsB: outcome.InstancesFor(fsB, derivation.PresetAccountMfa)[0],
	}
	structure, err := shield.Materialize(perFactor)
	require.NoError(t, err)
	assert.Equal(t, shield.ID, structure.ID)
	require.Len(t, structure.Matrix.Primary.ThresholdFactors, 2)
}
