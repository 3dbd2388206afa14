package cache

import (
	"github.com/vaultwarden-hd/hdcore/derivation"
	"github.com/vaultwarden-hd/hdcore/factor"
)

// QuantifiedPreset is a (preset, requested quantity) pair, the unit
// Get's callers request instances in.
type QuantifiedPreset struct {
	Preset   derivation.Preset
	Quantity int
}

// PresetOutcome is the per-(factor, preset) result of a Get call.
type PresetOutcome struct {
	// Satisfied is true iff the bucket already held at least the
	// requested quantity.
	Satisfied bool
	// Cached holds, when Satisfied, exactly Quantity instances ready
	// to use directly; otherwise every instance currently in the
	// bucket (which may be fewer than Quantity, or zero).
	Cached []factor.Instance
	// DeriveQuantity is how many new instances must be derived for
	// this bucket; zero when Satisfied.
	DeriveQuantity int
}

// Outcome is the full result of a quantified cache read: a
// per-factor, per-preset breakdown of what the cache could satisfy
// directly versus what must be derived.
type Outcome struct {
	PerFactorPerPreset map[factor.IDFromHash]map[derivation.Preset]PresetOutcome
}

// Satisfied reports whether every requested (factor, preset) pair was
// fully satisfiable from the cache with no derivation required.
func (o Outcome) Satisfied() bool {
	for _, byPreset := range o.PerFactorPerPreset {
		for _, outcome := range byPreset {
			if !outcome.Satisfied {
				return false
			}
		}
	}
	return true
}

// Get resolves quantifiedPresets for every factorID against the
// cached snapshot, per the quantity-resolution algorithm: a
// bucket short of its requested quantity is flagged for derivation of
// CacheFillingQuantity new instances, and — because a factor needing
// derivation implies a derivation round-trip is already happening —
// every other preset bucket for that factor on network is eagerly
// warmed to the same batch size too.
func (c *Cache) Get(factorIDs []factor.IDFromHash, quantifiedPresets []QuantifiedPreset, network derivation.NetworkID) (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := c.load()
	if err != nil {
		return Outcome{}, err
	}

	requested := make(map[derivation.Preset]bool, len(quantifiedPresets))
	for _, qp := range quantifiedPresets {
		requested[qp.Preset] = true
	}

	out := Outcome{PerFactorPerPreset: make(map[factor.IDFromHash]map[derivation.Preset]PresetOutcome)}

	for _, factorID := range factorIDs {
		byPreset := make(map[derivation.Preset]PresetOutcome, len(quantifiedPresets))
		factorNeedsDerivation := false

		for _, qp := range quantifiedPresets {
			path := derivation.IndexAgnosticPathFor(qp.Preset, network)
			bucket := snap.bucket(factorID, path)

			if len(bucket) >= qp.Quantity {
				byPreset[qp.Preset] = PresetOutcome{Satisfied: true, Cached: append([]factor.Instance{}, bucket[:qp.Quantity]...)}
				continue
			}

			factorNeedsDerivation = true
			byPreset[qp.Preset] = PresetOutcome{
				Satisfied:      false,
				Cached:         append([]factor.Instance{}, bucket...),
				DeriveQuantity: CacheFillingQuantity,
			}
		}

		if factorNeedsDerivation {
			for _, preset := range derivation.AllPresets {
				if requested[preset] {
					continue
				}
				path := derivation.IndexAgnosticPathFor(preset, network)
				bucket := snap.bucket(factorID, path)
				byPreset[preset] = PresetOutcome{
					Satisfied:      false,
					Cached:         append([]factor.Instance{}, bucket...),
					DeriveQuantity: CacheFillingQuantity,
				}
			}
		}

		out.PerFactorPerPreset[factorID] = byPreset
	}

	return out, nil
}
