// Package provider implements the factor-instances provider:
// it answers "give me N instances of preset P for factor F on network
// N" by reading the cache and, when short, deriving more via a
// KeyDerivationInteractor, returning a one-shot consumer that
// finalizes the cache mutation only once the caller has durably
// persisted whatever will own the instances.
package provider

import (
	"context"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/vaultwarden-hd/hdcore/cache"
	"github.com/vaultwarden-hd/hdcore/derivation"
	"github.com/vaultwarden-hd/hdcore/factor"
	"github.com/vaultwarden-hd/hdcore/interactors"
)

// Provider is the FactorInstancesProvider: a cache reader that falls
// back to on-demand derivation.
type Provider struct {
	cache      *cache.Cache
	derivation interactors.KeyDerivationInteractor
}

// New constructs a Provider over c, deriving through interactor when
// the cache runs short.
func New(c *cache.Cache, interactor interactors.KeyDerivationInteractor) *Provider {
	return &Provider{cache: c, derivation: interactor}
}

// Outcome is the provider's outcome: exactly the
// instances the caller asked for, per factor source and per
// originally-requested preset.
type Outcome struct {
	PerFactorPerPreset map[factor.IDFromHash]map[derivation.Preset][]factor.Instance
}

// InstancesFor returns the use-directly instances for one (factor,
// preset) pair, or nil if none were requested/returned.
func (o Outcome) InstancesFor(factorID factor.IDFromHash, preset derivation.Preset) []factor.Instance {
	byPreset, ok := o.PerFactorPerPreset[factorID]
	if !ok {
		return nil
	}
	return byPreset[preset]
}

// plan is one (factor, preset) bucket that needs N new instances
// derived starting at a known next-local-index.
type plan struct {
	factorID        factor.IDFromHash
	preset          derivation.Preset
	startLocal      uint32
	count           int
	originallyReq   bool
	requestedQty    int
	cachedInstances []factor.Instance
}

// ProvideForPresets resolves quantifiedPresets for every factorID on
// network, deriving through the interactor when the cache is short,
// and returns the instances to use directly plus a consumer that must
// be invoked (or explicitly abandoned) exactly once.
func (p *Provider) ProvideForPresets(
	ctx context.Context,
	factorIDs []factor.IDFromHash,
	quantifiedPresets []cache.QuantifiedPreset,
	network derivation.NetworkID,
	purpose interactors.DerivationPurpose,
) (*InstancesInCacheConsumer, Outcome, error) {
	cacheOutcome, err := p.cache.Get(factorIDs, quantifiedPresets, network)
	if err != nil {
		return nil, Outcome{}, errors.Wrap(err, "read factor-instances cache")
	}

	requestedQty := make(map[derivation.Preset]int, len(quantifiedPresets))
	for _, qp := range quantifiedPresets {
		requestedQty[qp.Preset] = qp.Quantity
	}

	var plans []plan
	toDeleteFromCache := cache.PerPresetPerFactor{}
	outcome := Outcome{PerFactorPerPreset: make(map[factor.IDFromHash]map[derivation.Preset][]factor.Instance)}

	for factorID, byPreset := range cacheOutcome.PerFactorPerPreset {
		outByPreset := make(map[derivation.Preset][]factor.Instance)
		for preset, presetOutcome := range byPreset {
			if presetOutcome.Satisfied {
				qty := requestedQty[preset]
				outByPreset[preset] = presetOutcome.Cached
				markForDeletion(toDeleteFromCache, factorID, network, preset, presetOutcome.Cached)
				log.Debug().Str("factor", factorID.String()).Str("preset", preset.String()).Int("qty", qty).Msg("provider: satisfied from cache")
				continue
			}

			start, hasMax, err := p.cache.MaxIndexFor(factorID, derivation.IndexAgnosticPathFor(preset, network))
			if err != nil {
				return nil, Outcome{}, errors.Wrap(err, "read max cached index")
			}
			var startLocal uint32
			if hasMax {
				startLocal = start.IndexInLocalKeySpace() + 1
			}

			_, originallyReq := requestedQty[preset]
			plans = append(plans, plan{
				factorID:        factorID,
				preset:          preset,
				startLocal:      startLocal,
				count:           presetOutcome.DeriveQuantity,
				originallyReq:   originallyReq,
				requestedQty:    requestedQty[preset],
				cachedInstances: presetOutcome.Cached,
			})
		}
		if len(outByPreset) > 0 {
			outcome.PerFactorPerPreset[factorID] = outByPreset
		}
	}

	if len(plans) == 0 {
		return newConsumer(p.cache, nil, toDeleteFromCache), outcome, nil
	}

	derived, err := p.derive(ctx, plans, network, purpose)
	if err != nil {
		return nil, Outcome{}, err
	}

	toInsertIntoCache := cache.PerPresetPerFactor{}
	for _, pl := range plans {
		instances := derived[planKey(pl.factorID, pl.preset)]

		useDirectlyCount := 0
		if pl.originallyReq {
			useDirectlyCount = pl.requestedQty - len(pl.cachedInstances)
			if useDirectlyCount < 0 {
				useDirectlyCount = 0
			}
			if useDirectlyCount > len(instances) {
				useDirectlyCount = len(instances)
			}
		}

		useDirectly := append([]factor.Instance{}, pl.cachedInstances...)
		useDirectly = append(useDirectly, instances[:useDirectlyCount]...)
		cacheOnly := instances[useDirectlyCount:]

		if pl.originallyReq {
			byPreset, ok := outcome.PerFactorPerPreset[pl.factorID]
			if !ok {
				byPreset = make(map[derivation.Preset][]factor.Instance)
				outcome.PerFactorPerPreset[pl.factorID] = byPreset
			}
			byPreset[pl.preset] = useDirectly
			markForDeletion(toDeleteFromCache, pl.factorID, network, pl.preset, pl.cachedInstances)
		}

		if len(cacheOnly) > 0 {
			path := derivation.IndexAgnosticPathFor(pl.preset, network)
			insertInto(toInsertIntoCache, pl.factorID, path, cacheOnly)
		}
	}

	return newConsumer(p.cache, toInsertIntoCache, toDeleteFromCache), outcome, nil
}

func planKey(factorID factor.IDFromHash, preset derivation.Preset) string {
	return factorID.String() + "#" + preset.String()
}

func markForDeletion(into cache.PerPresetPerFactor, factorID factor.IDFromHash, network derivation.NetworkID, preset derivation.Preset, instances []factor.Instance) {
	if len(instances) == 0 {
		return
	}
	insertInto(into, factorID, derivation.IndexAgnosticPathFor(preset, network), instances)
}

func insertInto(into cache.PerPresetPerFactor, factorID factor.IDFromHash, path derivation.IndexAgnosticPath, instances []factor.Instance) {
	byPath, ok := into[factorID]
	if !ok {
		byPath = make(map[derivation.IndexAgnosticPath][]factor.Instance)
		into[factorID] = byPath
	}
	byPath[path] = append(byPath[path], instances...)
}

// derive builds one derivation request per factor source (concatenating
// paths across every plan belonging to that factor) and dispatches
// them to the interactor concurrently, then slices the results back
// into per-(factor,preset) instance lists in request order.
func (p *Provider) derive(ctx context.Context, plans []plan, network derivation.NetworkID, purpose interactors.DerivationPurpose) (map[string][]factor.Instance, error) {
	pathsByFactor := make(map[factor.IDFromHash][]derivation.DerivationPath)
	for _, pl := range plans {
		for i := 0; i < pl.count; i++ {
			path, err := derivation.NewPathForPreset(pl.preset, network, pl.startLocal+uint32(i))
			if err != nil {
				return nil, errors.Wrap(err, "build derivation path")
			}
			pathsByFactor[pl.factorID] = append(pathsByFactor[pl.factorID], derivation.NewDerivationPathFromCAP26(path))
		}
	}

	requests := make([]interactors.PerFactorSourceDerivationRequest, 0, len(pathsByFactor))
	for factorID, paths := range pathsByFactor {
		requests = append(requests, interactors.PerFactorSourceDerivationRequest{FactorSourceID: factorID, Paths: paths})
	}

	var (
		mu      sync.Mutex
		results = make(interactors.PerFactorDerivedKeys)
	)
	group, gctx := errgroup.WithContext(ctx)
	for _, req := range requests {
		req := req
		group.Go(func() error {
			keys, err := p.derivation.Derive(gctx, []interactors.PerFactorSourceDerivationRequest{req}, purpose)
			if err != nil {
				return errors.Wrapf(err, "derive for factor %s", req.FactorSourceID)
			}
			mu.Lock()
			defer mu.Unlock()
			results[req.FactorSourceID] = keys[req.FactorSourceID]
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string][]factor.Instance, len(plans))
	offsets := make(map[factor.IDFromHash]int, len(pathsByFactor))
	for _, pl := range plans {
		all := results[pl.factorID]
		offset := offsets[pl.factorID]
		if offset+pl.count > len(all) {
			return nil, errors.Errorf("interactor returned %d keys for factor %s, expected at least %d", len(all), pl.factorID, offset+pl.count)
		}
		out[planKey(pl.factorID, pl.preset)] = all[offset : offset+pl.count]
		offsets[pl.factorID] = offset + pl.count
	}
	return out, nil
}

// InstancesInCacheConsumer is a one-shot handle finalizing the cache
// mutation a ProvideForPresets call staged. The caller must not
// invoke it until the entities owning the use-directly instances have
// been durably persisted; if persistence fails, dropping the consumer
// unconsumed leaves the cache untouched.
type InstancesInCacheConsumer struct {
	mu        sync.Mutex
	cache     *cache.Cache
	toInsert  cache.PerPresetPerFactor
	toDelete  cache.PerPresetPerFactor
	consumed  bool
	abandoned bool
}

func newConsumer(c *cache.Cache, toInsert, toDelete cache.PerPresetPerFactor) *InstancesInCacheConsumer {
	consumer := &InstancesInCacheConsumer{cache: c, toInsert: toInsert, toDelete: toDelete}
	runtime.SetFinalizer(consumer, func(c *InstancesInCacheConsumer) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.consumed && !c.abandoned {
			log.Warn().Msg("InstancesInCacheConsumer dropped without being consumed or abandoned")
		}
	})
	return consumer
}

// Consume finalizes the staged cache mutation: newly-derived warming
// instances are written in, and whichever already-cached instances
// were handed out as use-directly are removed. It may be called at
// most once.
func (c *InstancesInCacheConsumer) Consume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.consumed {
		return errors.New("InstancesInCacheConsumer already consumed")
	}
	if len(c.toInsert) > 0 {
		if err := c.cache.Insert(c.toInsert); err != nil {
			return errors.Wrap(err, "finalize cache insert")
		}
	}
	if len(c.toDelete) > 0 {
		if err := c.cache.Delete(c.toDelete); err != nil {
			return errors.Wrap(err, "finalize cache delete")
		}
	}
	c.consumed = true
	runtime.SetFinalizer(c, nil)
	return nil
}

// Abandon marks the consumer as deliberately unused — the caller's
// downstream persistence failed and the cache must remain exactly as
// it was. No mutation occurs and the drop-without-consuming warning
// is suppressed.
func (c *InstancesInCacheConsumer) Abandon() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abandoned = true
	runtime.SetFinalizer(c, nil)
}
