package cache

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/vaultwarden-hd/hdcore/derivation"
	"github.com/vaultwarden-hd/hdcore/factor"
	"github.com/vaultwarden-hd/hdcore/keyspace"
	"github.com/vaultwarden-hd/hdcore/storage"
)

// Cache is the persistent factor-instances cache. It holds no state
// between calls; every method loads the full snapshot from driver,
// mutates it, and writes it back.
type Cache struct {
	driver   storage.FileSystemDriver
	fileName string
	mu       sync.Mutex
}

// New constructs a Cache backed by driver, persisting to fileName (use
// DefaultFileName unless a caller has a reason to diverge).
func New(driver storage.FileSystemDriver, fileName string) *Cache {
	if fileName == "" {
		fileName = DefaultFileName
	}
	return &Cache{driver: driver, fileName: fileName}
}

func (c *Cache) load() (snapshot, error) {
	if _, err := c.driver.CreateIfNeeded(c.fileName); err != nil {
		return nil, errors.Wrap(err, "ensure cache file")
	}
	data, err := c.driver.LoadFromFile(c.fileName)
	if err != nil {
		return nil, errors.Wrap(err, "load cache file")
	}
	return decodeSnapshot(data)
}

func (c *Cache) save(s snapshot) error {
	data, err := s.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "encode cache snapshot")
	}
	if err := c.driver.SaveToFile(c.fileName, data, true); err != nil {
		return errors.Wrap(err, "save cache file")
	}
	return nil
}

// Insert merges data into the cache. Within a bucket, instances are
// appended in their input order; an instance already present in the
// bucket (by IdentityKey, i.e. duplicate-by-path) is a no-op.
func (c *Cache) Insert(data PerPresetPerFactor) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := c.load()
	if err != nil {
		return err
	}
	for factorID, byPath := range data {
		for path, instances := range byPath {
			snap.setBucket(factorID, path, mergeAppend(snap.bucket(factorID, path), instances))
		}
	}
	return c.save(snap)
}

// InsertForFactor assigns each instance to the bucket its own
// derivation path maps to, then inserts as Insert does.
func (c *Cache) InsertForFactor(factorID factor.IDFromHash, instances []factor.Instance) error {
	grouped := make(map[derivation.IndexAgnosticPath][]factor.Instance)
	for _, inst := range instances {
		path, err := indexAgnosticPathOf(inst)
		if err != nil {
			return err
		}
		grouped[path] = append(grouped[path], inst)
	}
	return c.Insert(PerPresetPerFactor{factorID: grouped})
}

// Delete removes exactly the instances listed in data, silently
// ignoring entries absent from the cache.
func (c *Cache) Delete(data PerPresetPerFactor) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := c.load()
	if err != nil {
		return err
	}
	for factorID, byPath := range data {
		for path, toRemove := range byPath {
			remove := make(map[string]bool, len(toRemove))
			for _, inst := range toRemove {
				remove[inst.IdentityKey()] = true
			}
			existing := snap.bucket(factorID, path)
			kept := make([]factor.Instance, 0, len(existing))
			for _, inst := range existing {
				if !remove[inst.IdentityKey()] {
					kept = append(kept, inst)
				}
			}
			snap.setBucket(factorID, path, kept)
		}
	}
	return c.save(snap)
}

// MaxIndexFor returns the highest local index among cached instances
// in the given bucket, and whether the bucket is non-empty.
func (c *Cache) MaxIndexFor(factorID factor.IDFromHash, path derivation.IndexAgnosticPath) (keyspace.HDPathComponent, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := c.load()
	if err != nil {
		return nil, false, err
	}
	bucket := snap.bucket(factorID, path)
	if len(bucket) == 0 {
		return nil, false, nil
	}

	var max keyspace.HDPathComponent
	for _, inst := range bucket {
		if inst.PublicKey.DerivationPath.CAP26 == nil {
			continue
		}
		idx := inst.PublicKey.DerivationPath.CAP26.Index
		if max == nil || keyspace.Compare(idx, max) > 0 {
			max = idx
		}
	}
	if max == nil {
		return nil, false, nil
	}
	return max, true, nil
}

// IsFull reports whether every preset bucket for network and factorID
// holds at least CacheFillingQuantity instances.
func (c *Cache) IsFull(network derivation.NetworkID, factorID factor.IDFromHash) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := c.load()
	if err != nil {
		return false, err
	}
	for _, preset := range derivation.AllPresets {
		path := derivation.IndexAgnosticPathFor(preset, network)
		if len(snap.bucket(factorID, path)) < CacheFillingQuantity {
			return false, nil
		}
	}
	return true, nil
}

// TotalNumberOfFactorInstances sums the size of every bucket.
func (c *Cache) TotalNumberOfFactorInstances() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := c.load()
	if err != nil {
		return 0, err
	}
	total := 0
	for _, byPath := range snap {
		for _, instances := range byPath {
			total += len(instances)
		}
	}
	return total, nil
}

func mergeAppend(existing []factor.Instance, incoming []factor.Instance) []factor.Instance {
	present := make(map[string]bool, len(existing))
	for _, inst := range existing {
		present[inst.IdentityKey()] = true
	}
	out := existing
	for _, inst := range incoming {
		if present[inst.IdentityKey()] {
			log.Debug().Str("instance", inst.IdentityKey()).Msg("cache insert: duplicate-by-path, skipping")
			continue
		}
		present[inst.IdentityKey()] = true
		out = append(out, inst)
	}
	return out
}
