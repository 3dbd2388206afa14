// Package collector implements the signatures collector: it
// turns a set of signables and the entities that must authorize them
// into per-entity petitions, drives a SignInteractor across factor
// sources grouped by kind, and emits an outcome partitioned into
// successful and failed transactions.
package collector

import (
	"sync"

	"github.com/vaultwarden-hd/hdcore/factor"
	"github.com/vaultwarden-hd/hdcore/interactors"
)

// FactorsStatus is the tri-state outcome of a PetitionForFactors.
type FactorsStatus int

const (
	FactorsStatusInProgress FactorsStatus = iota
	FactorsStatusFinishedSuccess
	FactorsStatusFinishedFail
)

func (s FactorsStatus) String() string {
	switch s {
	case FactorsStatusFinishedSuccess:
		return "Finished(Success)"
	case FactorsStatusFinishedFail:
		return "Finished(Fail)"
	default:
		return "InProgress"
	}
}

// PetitionForFactors is one role-list of a single entity on a single
// transaction: a candidate factor list, the threshold of signers
// required (1 for an override list — any single signer suffices),
// and the collected/neglected subsets tracked so far.
//
// Locking discipline: the mutex is held only across in-memory
// reads/mutations, never across an interactor call.
type PetitionForFactors struct {
	mu        sync.RWMutex
	factors   []factor.Instance
	threshold int
	collected map[string]interactors.Signature
	neglected map[string]interactors.NeglectReason
}

// NewPetitionForFactors constructs a petition over factors, requiring
// threshold signatures to succeed.
func NewPetitionForFactors(factors []factor.Instance, threshold int) *PetitionForFactors {
	return &PetitionForFactors{
		factors:   factors,
		threshold: threshold,
		collected: make(map[string]interactors.Signature),
		neglected: make(map[string]interactors.NeglectReason),
	}
}

// NewThresholdPetition builds the threshold-list petition for a role,
// or nil if the role carries no threshold factors.
func NewThresholdPetition(factors []factor.Instance, threshold uint8) *PetitionForFactors {
	if len(factors) == 0 {
		return nil
	}
	return NewPetitionForFactors(factors, int(threshold))
}

// NewOverridePetition builds the override-list petition for a role —
// any single signer suffices, so its threshold is always 1 — or nil
// if the role carries no override factors.
func NewOverridePetition(factors []factor.Instance) *PetitionForFactors {
	if len(factors) == 0 {
		return nil
	}
	return NewPetitionForFactors(factors, 1)
}

// References reports whether factorID names one of this petition's
// candidate factors.
func (p *PetitionForFactors) References(factorID factor.IDFromHash) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, f := range p.factors {
		if f.FactorSourceID == factorID {
			return true
		}
	}
	return false
}

// OwnedFactorsFor returns, from among this petition's candidates, the
// ones produced by factorID — the set a TransactionSignRequest should
// list for that factor source.
func (p *PetitionForFactors) OwnedFactorsFor(factorID factor.IDFromHash) []factor.Instance {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []factor.Instance
	for _, f := range p.factors {
		if f.FactorSourceID == factorID {
			out = append(out, f)
		}
	}
	return out
}

// AddSignature records sig against the matching candidate instance.
// It is a no-op if the instance is already collected, and panics if
// sig does not reference any of this petition's candidates —
// this would be a programmer error (dispatch routed the signature to
// the wrong petition).
func (p *PetitionForFactors) AddSignature(sig interactors.Signature) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := sig.Instance.Instance.IdentityKey()
	if !p.hasCandidateLocked(key) {
		panic("collector: signature does not match any candidate in this petition")
	}
	if _, already := p.collected[key]; already {
		return
	}
	p.collected[key] = sig
}

func (p *PetitionForFactors) hasCandidateLocked(key string) bool {
	for _, f := range p.factors {
		if f.IdentityKey() == key {
			return true
		}
	}
	return false
}

// NeglectIfReferenced marks factorID's candidate instances as
// neglected for reason, if this petition references that factor
// source. Already-collected instances are left alone.
func (p *PetitionForFactors) NeglectIfReferenced(factorID factor.IDFromHash, reason interactors.NeglectReason) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, f := range p.factors {
		if f.FactorSourceID != factorID {
			continue
		}
		key := f.IdentityKey()
		if _, collected := p.collected[key]; collected {
			continue
		}
		if _, already := p.neglected[key]; already {
			continue
		}
		p.neglected[key] = reason
	}
}

// Status reports Finished(Success) once enough signers have been
// collected (the role-authorization rule applied uniformly: a
// threshold-list petition needs threshold collected, an override-list
// petition's threshold is always 1), Finished(Fail) once the
// remaining uncommitted candidates can no longer reach threshold, and
// InProgress otherwise.
func (p *PetitionForFactors) Status() FactorsStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.statusLocked(p.neglected)
}

func (p *PetitionForFactors) statusLocked(neglected map[string]interactors.NeglectReason) FactorsStatus {
	if len(p.collected) >= p.threshold {
		return FactorsStatusFinishedSuccess
	}
	remaining := 0
	for _, f := range p.factors {
		key := f.IdentityKey()
		if _, collected := p.collected[key]; collected {
			continue
		}
		if _, neg := neglected[key]; neg {
			continue
		}
		remaining++
	}
	if len(p.collected)+remaining < p.threshold {
		return FactorsStatusFinishedFail
	}
	return FactorsStatusInProgress
}

// WouldBeSafeToNeglect reports whether hypothetically neglecting every
// candidate whose factor source is in candidateFactorIDs would leave
// this petition's status unchanged from Finished — i.e. the neglect
// is "irrelevant" and safe to apply without a user-visible warning.
func (p *PetitionForFactors) WouldBeSafeToNeglect(candidateFactorIDs map[factor.IDFromHash]bool) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	current := p.statusLocked(p.neglected)
	if current != FactorsStatusFinishedSuccess && current != FactorsStatusFinishedFail {
		return false
	}
	hypothetical := make(map[string]interactors.NeglectReason, len(p.neglected))
	for k, v := range p.neglected {
		hypothetical[k] = v
	}
	for _, f := range p.factors {
		if candidateFactorIDs[f.FactorSourceID] {
			if _, collected := p.collected[f.IdentityKey()]; !collected {
				hypothetical[f.IdentityKey()] = interactors.NeglectReasonIrrelevant
			}
		}
	}
	return p.statusLocked(hypothetical) == current
}

// Signatures returns every collected signature so far, in collection
// order is not guaranteed (map-backed); callers needing outcome order
// should sort by whatever key they need.
func (p *PetitionForFactors) Signatures() []interactors.Signature {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]interactors.Signature, 0, len(p.collected))
	for _, sig := range p.collected {
		out = append(out, sig)
	}
	return out
}
