// Package session mirrors in-flight signing rounds into Redis so an
// operator dashboard can observe collection progress. The mirror is
// write-only from hdcore's perspective: the in-memory petitions are
// the sole source of truth for an in-flight round, so nothing in this
// package ever feeds a value back into a Collect call.
package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DefaultTTL bounds how long a stale round's mirror entry survives a
// host crash mid-collection.
const DefaultTTL = 10 * time.Minute

// Status is a snapshot of one signable's progress through a Collect
// run, mirrored for dashboards only.
type Status struct {
	SignableID       string   `json:"signableId"`
	Kind             string   `json:"kind"`
	OutstandingCount int      `json:"outstandingCount"`
	NeglectedFactors []string `json:"neglectedFactors,omitempty"`
}

// Mirror is a Redis-backed, best-effort mirror of in-flight
// collection rounds.
type Mirror struct {
	client *redis.Client
	ttl    time.Duration
}

// New constructs a Mirror over client, keying every entry with ttl
// (DefaultTTL if zero).
func New(client *redis.Client, ttl time.Duration) *Mirror {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Mirror{client: client, ttl: ttl}
}

// NewClient dials addr and verifies connectivity with a bounded ping.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, errors.Wrap(err, "ping redis")
	}
	return client, nil
}

func key(roundID, signableID string) string {
	return "hdcore:session:" + roundID + ":" + signableID
}

// RecordProgress mirrors status for signableID within roundID. Errors
// are logged and swallowed: a dashboard going stale must never block
// or fail a Collect round.
func (m *Mirror) RecordProgress(ctx context.Context, roundID string, status Status) {
	data, err := json.Marshal(status)
	if err != nil {
		log.Warn().Err(err).Msg("session: marshal status")
		return
	}
	if err := m.client.Set(ctx, key(roundID, status.SignableID), data, m.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("roundID", roundID).Str("signableID", status.SignableID).Msg("session: mirror write failed")
	}
}

// ClearRound removes every mirrored entry for roundID once a Collect
// run reaches a terminal outcome.
func (m *Mirror) ClearRound(ctx context.Context, roundID string, signableIDs []string) {
	if len(signableIDs) == 0 {
		return
	}
	keys := make([]string, len(signableIDs))
	for i, id := range signableIDs {
		keys[i] = key(roundID, id)
	}
	if err := m.client.Del(ctx, keys...).Err(); err != nil {
		log.Warn().Err(err).Str("roundID", roundID).Msg("session: mirror clear failed")
	}
}

// Snapshot returns every mirrored status for roundID currently in
// Redis, for a dashboard's read path. It is never consulted by the
// collector itself.
func (m *Mirror) Snapshot(ctx context.Context, roundID string) ([]Status, error) {
	pattern := key(roundID, "*")
	var statuses []Status

	iter := m.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		data, err := m.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, errors.Wrap(err, "read mirrored status")
		}
		var s Status
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, errors.Wrap(err, "decode mirrored status")
		}
		statuses = append(statuses, s)
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(err, "scan mirrored statuses")
	}
	return statuses, nil
}
