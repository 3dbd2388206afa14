// Package cache implements the persistent, per-factor-source,
// per-derivation-preset store of unused HD factor instances:
// every operation is a read-modify-write against a single
// JSON snapshot, with no state held in memory between calls.
package cache

import (
	"github.com/vaultwarden-hd/hdcore/cerrors"
	"github.com/vaultwarden-hd/hdcore/derivation"
	"github.com/vaultwarden-hd/hdcore/factor"
	"github.com/vaultwarden-hd/hdcore/keyspace"
)

// CacheFillingQuantity is the default batch size the cache warms a
// bucket to whenever derivation is required.
const CacheFillingQuantity = 30

// DefaultFileName is the fixed name the cache snapshot is persisted
// under.
const DefaultFileName = "pre_derived_public_keys_cache.json"

// PerPresetPerFactor is the nested map shape `insert`/`delete` accept:
// instances grouped first by the factor source that produced them,
// then by the bucket (IndexAgnosticPath) they belong to.
type PerPresetPerFactor map[factor.IDFromHash]map[derivation.IndexAgnosticPath][]factor.Instance

// indexAgnosticPathOf derives the bucket key an instance belongs to
// from its own CAP26 derivation path. Legacy BIP44-like instances have
// no agnostic-path bucket and are rejected.
func indexAgnosticPathOf(inst factor.Instance) (derivation.IndexAgnosticPath, error) {
	p := inst.PublicKey.DerivationPath
	if p.CAP26 == nil {
		return derivation.IndexAgnosticPath{}, cerrors.Withf(cerrors.KindCacheInvariantViolated, "instance %s has no CAP26 path", inst.IdentityKey())
	}
	securified := p.CAP26.Index.Space() == keyspace.SpaceSecurified
	return derivation.IndexAgnosticPath{
		Network:    p.CAP26.Network,
		EntityKind: p.CAP26.EntityKind,
		KeyKind:    p.CAP26.KeyKind,
		Securified: securified,
	}, nil
}
