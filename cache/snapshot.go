package cache

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/vaultwarden-hd/hdcore/derivation"
	"github.com/vaultwarden-hd/hdcore/factor"
)

// snapshot is the in-memory shape of the on-disk cache: every bucket,
// keyed by (factor source, agnostic path), holding its ordered
// instances.
type snapshot map[factor.IDFromHash]map[derivation.IndexAgnosticPath][]factor.Instance

func newSnapshot() snapshot {
	return make(snapshot)
}

func (s snapshot) bucket(factorID factor.IDFromHash, path derivation.IndexAgnosticPath) []factor.Instance {
	byPath, ok := s[factorID]
	if !ok {
		return nil
	}
	return byPath[path]
}

func (s snapshot) setBucket(factorID factor.IDFromHash, path derivation.IndexAgnosticPath, instances []factor.Instance) {
	byPath, ok := s[factorID]
	if !ok {
		byPath = make(map[derivation.IndexAgnosticPath][]factor.Instance)
		s[factorID] = byPath
	}
	byPath[path] = instances
}

// wireEntry is the flat, array-of-records JSON shape the snapshot is
// persisted as — a nested map keyed by struct values cannot round-trip
// through encoding/json directly.
type wireEntry struct {
	FactorSourceID factor.IDFromHash        `json:"factorSourceID"`
	Network        derivation.NetworkID     `json:"network"`
	EntityKind     derivation.EntityKind    `json:"entityKind"`
	KeyKind        derivation.KeyKind       `json:"keyKind"`
	Securified     bool                     `json:"securified"`
	Instances      []factor.Instance        `json:"instances"`
}

func (s snapshot) MarshalJSON() ([]byte, error) {
	entries := make([]wireEntry, 0, len(s))
	for factorID, byPath := range s {
		for path, instances := range byPath {
			entries = append(entries, wireEntry{
				FactorSourceID: factorID,
				Network:        path.Network,
				EntityKind:     path.EntityKind,
				KeyKind:        path.KeyKind,
				Securified:     path.Securified,
				Instances:      instances,
			})
		}
	}
	return json.Marshal(entries)
}

func decodeSnapshot(data []byte) (snapshot, error) {
	if len(data) == 0 {
		return newSnapshot(), nil
	}
	var entries []wireEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrap(err, "decode cache snapshot")
	}
	s := newSnapshot()
	for _, e := range entries {
		path := derivation.IndexAgnosticPath{
			Network:    e.Network,
			EntityKind: e.EntityKind,
			KeyKind:    e.KeyKind,
			Securified: e.Securified,
		}
		s.setBucket(e.FactorSourceID, path, e.Instances)
	}
	return s, nil
}
