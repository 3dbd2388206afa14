package collector

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/vaultwarden-hd/hdcore/cerrors"
	"github.com/vaultwarden-hd/hdcore/entity"
	"github.com/vaultwarden-hd/hdcore/factor"
	"github.com/vaultwarden-hd/hdcore/interactors"
)

// Signable is a transaction intent: an identifier and the payload
// bytes a factor source signs.
type Signable struct {
	PayloadID string
	Payload   []byte
}

// EntityRef names one entity that must authorize a signable, without
// committing to the concrete Entity value until resolved against the
// caller's profile.
type EntityRef struct {
	Kind    entity.Kind
	Address entity.Address
}

// SignableInput pairs a signable with the entities that must authorize
// it.
type SignableInput struct {
	Signable Signable
	Entities []EntityRef
}

// EntityResolver looks entities up by address, failing with
// cerrors.KindUnknownAccount / KindUnknownPersona when absent (the
// preprocess step fails fast on them).
type EntityResolver interface {
	ResolveAccount(addr entity.Address) (entity.Entity, error)
	ResolvePersona(addr entity.Address) (entity.Entity, error)
}

// FinishEarlyStrategy names when Collect may stop. Collect stops under
// the same conditions for both values: once every transaction is
// resolved (succeeded or failed), or once the remaining factor sources
// cannot change any petition's outcome. CollectAll does not go on to
// the remaining factor sources after that point.
type FinishEarlyStrategy int

const (
	FinishOnFirstSuccess FinishEarlyStrategy = iota
	CollectAll
)

// CrossRoleSkipOutcomeAnalyzer decides whether a proposed factor-source
// skip would invalidate an otherwise-succeeding transaction, surfacing
// a user-visible warning before the collector proceeds. It is
// advisory: the collector logs its verdict but does not alter
// collection outcome based on it — the UI layer decides what, if
// anything, to do with the warning.
type CrossRoleSkipOutcomeAnalyzer interface {
	InvalidTransactionIfNeglected(signableID string, skippedFactorIDs []factor.IDFromHash, petitions *Petitions) (reason string, invalid bool)
}

// FailureReason explains why a transaction's Outcome was Fail.
type FailureReason int

const (
	FailureReasonThresholdNotSatisfied FailureReason = iota
)

// FailedTransaction is the per-transaction failure detail: why it
// failed, plus whatever partial signatures were collected anyway.
type FailedTransaction struct {
	Reason     FailureReason
	Signatures []interactors.Signature
}

// Outcome is the collector's final result: transactions
// partitioned into successful and failed, plus every factor neglected
// along the way — informational even on success.
type Outcome struct {
	Successful       map[string][]interactors.Signature
	Failed           map[string]FailedTransaction
	NeglectedFactors map[factor.IDFromHash]interactors.NeglectReason
}

// Collector drives a SignInteractor across factor sources grouped by
// kind to satisfy every transaction's petitions.
type Collector struct {
	factorSources []factor.Source
	petitions     *Petitions
	interactor    interactors.SignInteractor
	purpose       interactors.SigningPurpose
	strategy      FinishEarlyStrategy
	analyzer      CrossRoleSkipOutcomeAnalyzer
}

// New preprocesses inputs into per-entity petitions and the
// cross-transaction index, failing fast if any entity is unknown to
// resolver.
func New(
	factorSources []factor.Source,
	inputs []SignableInput,
	resolver EntityResolver,
	interactor interactors.SignInteractor,
	purpose interactors.SigningPurpose,
	strategy FinishEarlyStrategy,
	analyzer CrossRoleSkipOutcomeAnalyzer,
) (*Collector, error) {
	transactions := make([]*PetitionForTransaction, 0, len(inputs))
	for _, input := range inputs {
		t := &PetitionForTransaction{
			PayloadID: input.Signable.PayloadID,
			Payload:   input.Signable.Payload,
			Entities:  make(map[entity.Address]*PetitionForEntity),
		}
		for _, ref := range input.Entities {
			e, err := resolveRef(resolver, ref)
			if err != nil {
				return nil, err
			}
			pe, err := NewPetitionForEntity(input.Signable.PayloadID, e, purpose)
			if err != nil {
				return nil, errors.Wrapf(err, "build petition for entity %s", ref.Address)
			}
			t.Entities[e.Address] = pe
		}
		transactions = append(transactions, t)
	}

	return &Collector{
		factorSources: factorSources,
		petitions:     NewPetitions(transactions),
		interactor:    interactor,
		purpose:       purpose,
		strategy:      strategy,
		analyzer:      analyzer,
	}, nil
}

func resolveRef(resolver EntityResolver, ref EntityRef) (entity.Entity, error) {
	switch ref.Kind {
	case entity.KindAccount:
		e, err := resolver.ResolveAccount(ref.Address)
		if err != nil {
			return entity.Entity{}, cerrors.WithFields(cerrors.KindUnknownAccount, map[string]interface{}{"address": ref.Address})
		}
		return e, nil
	case entity.KindPersona:
		e, err := resolver.ResolvePersona(ref.Address)
		if err != nil {
			return entity.Entity{}, cerrors.WithFields(cerrors.KindUnknownPersona, map[string]interface{}{"address": ref.Address})
		}
		return e, nil
	default:
		return entity.Entity{}, errors.Errorf("unknown entity kind %v", ref.Kind)
	}
}

// Collect runs the collection protocol: factor-source kinds
// are visited in factor.KindOrder; within a kind, every still-relevant
// factor source is dispatched to the interactor concurrently
// (`errgroup`, one Sign call per factor source, matching
// SignInteractor's per-source contract), then results are applied and
// the finish-early conditions are checked once the whole kind step
// settles (never holding a petition lock across an interactor call):
// first, not-yet-visited factor sources whose neglect could no longer
// change any outcome are skipped wholesale as irrelevant; then the
// all-resolved and finish-on-first-success exits apply.
func (c *Collector) Collect(ctx context.Context) (Outcome, error) {
	neglectedFactors := make(map[factor.IDFromHash]interactors.NeglectReason)
	var mu sync.Mutex

	for ki, kind := range factor.KindOrder {
		if ctx.Err() != nil {
			return Outcome{}, ctx.Err()
		}

		var relevant []factor.Source
		for _, src := range c.sourcesOfKind(kind) {
			if !c.petitions.ReferencesAnyOutstandingFactor(src.ID) {
				mu.Lock()
				neglectedFactors[src.ID] = interactors.NeglectReasonIrrelevant
				mu.Unlock()
				log.Debug().Str("factorSourceID", src.ID.String()).Msg("collector: no outstanding petition references this factor, skipping")
				continue
			}
			relevant = append(relevant, src)
		}
		if len(relevant) == 0 {
			continue
		}

		group, groupCtx := errgroup.WithContext(ctx)
		for _, src := range relevant {
			src := src
			requests := c.buildRequests(src.ID)
			if len(requests) == 0 {
				continue
			}
			group.Go(func() error {
				outcome, err := c.interactor.Sign(groupCtx, requests, c.purpose)
				if err != nil {
					return errors.Wrapf(err, "sign with factor source %s", src.ID)
				}
				result, ok := outcome[src.ID]
				if !ok {
					return nil
				}
				mu.Lock()
				defer mu.Unlock()
				c.dispatch(src.ID, result, neglectedFactors)
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			return Outcome{}, err
		}

		if c.neglectRemainingSourcesIfIrrelevant(ki, neglectedFactors) {
			break
		}
		if c.allTransactionsResolved() {
			break
		}
		if c.strategy == FinishOnFirstSuccess && c.allTransactionsSucceeded() {
			break
		}
	}

	return c.emit(neglectedFactors), nil
}

// neglectRemainingSourcesIfIrrelevant simulates neglecting every
// factor source of the kinds after visitedKindIndex against the
// petitions that reference them: if each affected petition is already
// Finished and would stay unchanged, the remaining sources are
// neglected as irrelevant without an interactor round-trip and
// collection stops.
func (c *Collector) neglectRemainingSourcesIfIrrelevant(visitedKindIndex int, neglectedFactors map[factor.IDFromHash]interactors.NeglectReason) bool {
	var remaining []factor.Source
	ids := make(map[factor.IDFromHash]bool)
	for _, laterKind := range factor.KindOrder[visitedKindIndex+1:] {
		for _, src := range c.sourcesOfKind(laterKind) {
			remaining = append(remaining, src)
			ids[src.ID] = true
		}
	}
	if len(remaining) == 0 || !c.wouldBeSafeToNeglect(ids) {
		return false
	}

	for _, src := range remaining {
		if _, already := neglectedFactors[src.ID]; already {
			continue
		}
		neglectedFactors[src.ID] = interactors.NeglectReasonIrrelevant
		log.Debug().Str("factorSourceID", src.ID.String()).Msg("collector: remaining factor cannot change any outcome, neglecting as irrelevant")
		for _, t := range c.petitions.TransactionsReferencing(src.ID) {
			t.NeglectIfReferenced(src.ID, interactors.NeglectReasonIrrelevant)
		}
	}
	return true
}

// wouldBeSafeToNeglect reports whether neglecting every factor source
// in ids would leave each petition referencing one of them in its
// current Finished state. Petitions referencing none of the ids are
// unaffected by the neglect and not consulted.
func (c *Collector) wouldBeSafeToNeglect(ids map[factor.IDFromHash]bool) bool {
	for _, t := range c.petitions.Transactions() {
		for _, pe := range t.Entities {
			for _, petition := range []*PetitionForFactors{pe.Threshold, pe.Override} {
				if petition == nil {
					continue
				}
				affected := false
				for id := range ids {
					if petition.References(id) {
						affected = true
						break
					}
				}
				if !affected {
					continue
				}
				if !petition.WouldBeSafeToNeglect(ids) {
					return false
				}
			}
		}
	}
	return true
}

func (c *Collector) sourcesOfKind(kind factor.Kind) []factor.Source {
	var out []factor.Source
	for _, src := range c.factorSources {
		if src.Kind == kind {
			out = append(out, src)
		}
	}
	return out
}

// buildRequests constructs one TransactionSignRequest per transaction
// still in progress that references factorID, carrying exactly the
// owned factor instances that would sign.
func (c *Collector) buildRequests(factorID factor.IDFromHash) []interactors.TransactionSignRequest {
	var requests []interactors.TransactionSignRequest
	for _, t := range c.petitions.TransactionsReferencing(factorID) {
		if t.Status() != TransactionStatusInProgress {
			continue
		}
		var owned []interactors.OwnedFactorInstance
		for _, pe := range t.Entities {
			for _, petition := range []*PetitionForFactors{pe.Threshold, pe.Override} {
				if petition == nil {
					continue
				}
				for _, inst := range petition.OwnedFactorsFor(factorID) {
					owned = append(owned, entity.OwnedInstance{Entity: pe.Entity, Instance: inst})
				}
			}
		}
		if len(owned) == 0 {
			continue
		}
		requests = append(requests, interactors.TransactionSignRequest{
			PayloadID:            t.PayloadID,
			Payload:              t.Payload,
			FactorSourceID:       factorID,
			OwnedFactorInstances: owned,
		})
	}
	sort.Slice(requests, func(i, j int) bool { return requests[i].PayloadID < requests[j].PayloadID })
	return requests
}

func (c *Collector) dispatch(factorID factor.IDFromHash, result interactors.SignOutcome, neglectedFactors map[factor.IDFromHash]interactors.NeglectReason) {
	if result.Signed {
		for _, sig := range result.Signatures {
			t, ok := c.petitions.TransactionByID(sig.PayloadID)
			if !ok {
				continue
			}
			pe, ok := t.Entities[sig.Instance.Entity.Address]
			if !ok {
				continue
			}
			pe.AddSignature(sig)
		}
		return
	}

	neglectedFactors[factorID] = result.Neglected
	if c.analyzer != nil {
		for _, t := range c.petitions.TransactionsReferencing(factorID) {
			if reason, invalid := c.analyzer.InvalidTransactionIfNeglected(t.PayloadID, []factor.IDFromHash{factorID}, c.petitions); invalid {
				log.Warn().Str("signableID", t.PayloadID).Str("factorSourceID", factorID.String()).Str("reason", reason).Msg("collector: skipping this factor would invalidate the transaction")
			}
		}
	}
	for _, t := range c.petitions.TransactionsReferencing(factorID) {
		t.NeglectIfReferenced(factorID, result.Neglected)
	}
}

func (c *Collector) allTransactionsResolved() bool {
	for _, t := range c.petitions.Transactions() {
		if t.Status() == TransactionStatusInProgress {
			return false
		}
	}
	return true
}

func (c *Collector) allTransactionsSucceeded() bool {
	for _, t := range c.petitions.Transactions() {
		if t.Status() != TransactionStatusSuccess {
			return false
		}
	}
	return true
}

func (c *Collector) emit(neglectedFactors map[factor.IDFromHash]interactors.NeglectReason) Outcome {
	out := Outcome{
		Successful:       make(map[string][]interactors.Signature),
		Failed:           make(map[string]FailedTransaction),
		NeglectedFactors: neglectedFactors,
	}
	for _, t := range c.petitions.Transactions() {
		switch t.Status() {
		case TransactionStatusSuccess:
			out.Successful[t.PayloadID] = t.Signatures()
		default:
			out.Failed[t.PayloadID] = FailedTransaction{
				Reason:     FailureReasonThresholdNotSatisfied,
				Signatures: t.Signatures(),
			}
		}
	}
	return out
}
