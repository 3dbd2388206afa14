package collector

import (
	"sync"

	"github.com/vaultwarden-hd/hdcore/factor"
)

// Petitions is the cross-transaction index: a lookup
// from factor source to every signable that mentions it, plus the
// per-signable PetitionForTransaction. Reads share a lock; the
// collector never holds it across an interactor call.
type Petitions struct {
	mu                       sync.RWMutex
	factorSourceToSignableID map[factor.IDFromHash]map[string]bool
	bySignableID             map[string]*PetitionForTransaction
	signableOrder            []string
}

// NewPetitions builds the cross-index over the given per-transaction
// petitions, preserving their input order.
func NewPetitions(transactions []*PetitionForTransaction) *Petitions {
	p := &Petitions{
		factorSourceToSignableID: make(map[factor.IDFromHash]map[string]bool),
		bySignableID:             make(map[string]*PetitionForTransaction),
	}
	for _, t := range transactions {
		p.bySignableID[t.PayloadID] = t
		p.signableOrder = append(p.signableOrder, t.PayloadID)
		for _, pe := range t.Entities {
			for _, petition := range []*PetitionForFactors{pe.Threshold, pe.Override} {
				if petition == nil {
					continue
				}
				for _, f := range petition.factors {
					set, ok := p.factorSourceToSignableID[f.FactorSourceID]
					if !ok {
						set = make(map[string]bool)
						p.factorSourceToSignableID[f.FactorSourceID] = set
					}
					set[t.PayloadID] = true
				}
			}
		}
	}
	return p
}

// TransactionsReferencing returns, in signable-insertion order, every
// transaction petition that lists factorID as a candidate.
func (p *Petitions) TransactionsReferencing(factorID factor.IDFromHash) []*PetitionForTransaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := p.factorSourceToSignableID[factorID]
	out := make([]*PetitionForTransaction, 0, len(ids))
	for _, id := range p.signableOrder {
		if ids[id] {
			out = append(out, p.bySignableID[id])
		}
	}
	return out
}

// TransactionByID returns the transaction petition for payloadID, if any.
func (p *Petitions) TransactionByID(payloadID string) (*PetitionForTransaction, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	t, ok := p.bySignableID[payloadID]
	return t, ok
}

// Transactions returns every transaction petition in signable-insertion
// order.
func (p *Petitions) Transactions() []*PetitionForTransaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*PetitionForTransaction, 0, len(p.signableOrder))
	for _, id := range p.signableOrder {
		out = append(out, p.bySignableID[id])
	}
	return out
}

// ReferencesAnyOutstandingFactor reports whether any transaction is
// still InProgress and references factorID — used to decide whether a
// factor source step can be skipped entirely.
func (p *Petitions) ReferencesAnyOutstandingFactor(factorID factor.IDFromHash) bool {
	for _, t := range p.TransactionsReferencing(factorID) {
		if t.Status() == TransactionStatusInProgress {
			return true
		}
	}
	return false
}
