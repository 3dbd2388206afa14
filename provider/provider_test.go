package provider_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultwarden-hd/hdcore/cache"
	"github.com/vaultwarden-hd/hdcore/derivation"
	"github.com/vaultwarden-hd/hdcore/factor"
	"github.com/vaultwarden-hd/hdcore/interactors"
	"github.com/vaultwarden-hd/hdcore/provider"
	"github.com/vaultwarden-hd/hdcore/storage"
)

const mainnet derivation.NetworkID = 1

func newTestCache() *cache.Cache {
	return cache.New(storage.NewInMemoryFileSystemDriver(), "")
}

func seededInteractor(t *testing.T, factorID factor.IDFromHash) *interactors.DeviceInteractor {
	t.Helper()
	return interactors.NewDeviceInteractor(factorID, []byte("provider test seed material, 32+ bytes long"))
}

func populateCache(t *testing.T, c *cache.Cache, factorID factor.IDFromHash, preset derivation.Preset, count int) {
	t.Helper()
	instances := make([]factor.Instance, 0, count)
	for i := 0; i < count; i++ {
		path, err := derivation.NewPathForPreset(preset, mainnet, uint32(i))
		require.NoError(t, err)
		dp := derivation.NewDerivationPathFromCAP26(path)
		instances = append(instances, factor.NewInstance(factorID, []byte{byte(i)}, dp))
	}
	agnostic := derivation.IndexAgnosticPathFor(preset, mainnet)
	require.NoError(t, c.Insert(cache.PerPresetPerFactor{factorID: {agnostic: instances}}))
}

// Fully satisfied from cache: a cache pre-populated with 30 AccountMfa
// instances per factor, request 2, expect no derivation and exactly
// those 2 lowest-index instances returned.
func TestProvideForPresetsSatisfiedFromCacheNoDerivation(t *testing.T) {
	c := newTestCache()
	factorID := factor.NewIDFromHashOfPublicKey(factor.KindDevice, []byte("fs-a"))
	populateCache(t, c, factorID, derivation.PresetAccountMfa, 30)

	p := provider.New(c, noDerivationAllowedInteractor{t: t})
	consumer, outcome, err := p.ProvideForPresets(
		context.Background(),
		[]factor.IDFromHash{factorID},
		[]cache.QuantifiedPreset{{Preset: derivation.PresetAccountMfa, Quantity: 2}},
		mainnet,
		interactors.DerivationPurposeSecurifyingAccount,
	)
	require.NoError(t, err)

	got := outcome.InstancesFor(factorID, derivation.PresetAccountMfa)
	require.Len(t, got, 2)
	idx0 := got[0].PublicKey.DerivationPath.CAP26.Index.IndexInLocalKeySpace()
	idx1 := got[1].PublicKey.DerivationPath.CAP26.Index.IndexInLocalKeySpace()
	assert.Equal(t, uint32(0), idx0)
	assert.Equal(t, uint32(1), idx1)

	require.NoError(t, consumer.Consume())
	totalAfter, err := c.TotalNumberOfFactorInstances()
	require.NoError(t, err)
	assert.Equal(t, 28, totalAfter, "exactly the 2 used instances should have been removed")
}

// Cache miss triggers derivation and warming: an empty cache, request 1 AccountVeci; 30 are
// derived, 1 returned to use directly, and consuming writes the other
// 29 into the AccountVeci bucket, next to a full batch for each other
// preset the short factor source warms.
func TestProvideForPresetsCacheMissDerivesAndWarms(t *testing.T) {
	c := newTestCache()
	factorID := factor.NewIDFromHashOfPublicKey(factor.KindDevice, []byte("fs-b"))
	interactor := seededInteractor(t, factorID)

	p := provider.New(c, interactor)
	consumer, outcome, err := p.ProvideForPresets(
		context.Background(),
		[]factor.IDFromHash{factorID},
		[]cache.QuantifiedPreset{{Preset: derivation.PresetAccountVeci, Quantity: 1}},
		mainnet,
		interactors.DerivationPurposeCreatingNewAccount,
	)
	require.NoError(t, err)

	got := outcome.InstancesFor(factorID, derivation.PresetAccountVeci)
	require.Len(t, got, 1)
	assert.Equal(t, uint32(0), got[0].PublicKey.DerivationPath.CAP26.Index.IndexInLocalKeySpace())

	require.NoError(t, consumer.Consume())
	max, ok, err := c.MaxIndexFor(factorID, derivation.IndexAgnosticPathFor(derivation.PresetAccountVeci, mainnet))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(29), max.IndexInLocalKeySpace())

	total, err := c.TotalNumberOfFactorInstances()
	require.NoError(t, err)
	assert.Equal(t, 29+(len(derivation.AllPresets)-1)*cache.CacheFillingQuantity, total, "the 1 used-directly instance is never written to the cache, only the 29 warming AccountVeci ones and the other presets' batches")
}

// A cache-miss request also eagerly warms every other preset bucket
// for the same factor source, once the consumer is consumed.
func TestProvideForPresetsWarmsOtherPresetsWhenShort(t *testing.T) {
	c := newTestCache()
	factorID := factor.NewIDFromHashOfPublicKey(factor.KindDevice, []byte("fs-c"))
	interactor := seededInteractor(t, factorID)

	p := provider.New(c, interactor)
	consumer, _, err := p.ProvideForPresets(
		context.Background(),
		[]factor.IDFromHash{factorID},
		[]cache.QuantifiedPreset{{Preset: derivation.PresetAccountVeci, Quantity: 1}},
		mainnet,
		interactors.DerivationPurposeCreatingNewAccount,
	)
	require.NoError(t, err)
	require.NoError(t, consumer.Consume())

	full, err := c.IsFull(mainnet, factorID)
	require.NoError(t, err)
	assert.True(t, full, "every preset bucket should have been warmed to CacheFillingQuantity")
}

// Newly-derived indices must strictly continue from the highest
// cached index — no gaps, no overlap.
func TestProvideForPresetsDerivesAboveCachedMax(t *testing.T) {
	c := newTestCache()
	factorID := factor.NewIDFromHashOfPublicKey(factor.KindDevice, []byte("fs-d"))
	populateCache(t, c, factorID, derivation.PresetAccountMfa, 2)
	interactor := seededInteractor(t, factorID)

	p := provider.New(c, interactor)
	consumer, outcome, err := p.ProvideForPresets(
		context.Background(),
		[]factor.IDFromHash{factorID},
		[]cache.QuantifiedPreset{{Preset: derivation.PresetAccountMfa, Quantity: 5}},
		mainnet,
		interactors.DerivationPurposeSecurifyingAccount,
	)
	require.NoError(t, err)

	got := outcome.InstancesFor(factorID, derivation.PresetAccountMfa)
	require.Len(t, got, 5)
	for i, inst := range got {
		assert.Equal(t, uint32(i), inst.PublicKey.DerivationPath.CAP26.Index.IndexInLocalKeySpace())
	}
	require.NoError(t, consumer.Consume())
}

// Dropping a consumer without consuming leaves the cache untouched —
// simulating a caller whose downstream entity-persistence step failed.
func TestConsumerAbandonLeavesCacheUntouched(t *testing.T) {
	c := newTestCache()
	factorID := factor.NewIDFromHashOfPublicKey(factor.KindDevice, []byte("fs-e"))
	interactor := seededInteractor(t, factorID)

	p := provider.New(c, interactor)
	consumer, _, err := p.ProvideForPresets(
		context.Background(),
		[]factor.IDFromHash{factorID},
		[]cache.QuantifiedPreset{{Preset: derivation.PresetAccountVeci, Quantity: 1}},
		mainnet,
		interactors.DerivationPurposeCreatingNewAccount,
	)
	require.NoError(t, err)
	consumer.Abandon()

	total, err := c.TotalNumberOfFactorInstances()
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestConsumerConsumeIsOneShot(t *testing.T) {
	c := newTestCache()
	factorID := factor.NewIDFromHashOfPublicKey(factor.KindDevice, []byte("fs-f"))
	interactor := seededInteractor(t, factorID)

	p := provider.New(c, interactor)
	consumer, _, err := p.ProvideForPresets(
		context.Background(),
		[]factor.IDFromHash{factorID},
		[]cache.QuantifiedPreset{{Preset: derivation.PresetAccountVeci, Quantity: 1}},
		mainnet,
		interactors.DerivationPurposeCreatingNewAccount,
	)
	require.NoError(t, err)
	require.NoError(t, consumer.Consume())
	assert.Error(t, consumer.Consume())
}

// noDerivationAllowedInteractor fails the test if Derive is ever
// invoked, verifying the Satisfied-from-cache path makes no
// interactor round-trip.
type noDerivationAllowedInteractor struct {
	t *testing.T
}

func (n noDerivationAllowedInteractor) Derive(ctx context.Context, requests []interactors.PerFactorSourceDerivationRequest, purpose interactors.DerivationPurpose) (interactors.PerFactorDerivedKeys, error) {
	n.t.Fatal("derivation interactor should not be invoked when the cache already satisfies the request")
	return nil, nil
}
