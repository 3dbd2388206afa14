package collector

import (
	"github.com/vaultwarden-hd/hdcore/entity"
	"github.com/vaultwarden-hd/hdcore/factor"
	"github.com/vaultwarden-hd/hdcore/interactors"
)

// TransactionStatus is the aggregate outcome of a PetitionForTransaction.
type TransactionStatus int

const (
	TransactionStatusInProgress TransactionStatus = iota
	TransactionStatusSuccess
	TransactionStatusFail
)

// PetitionForTransaction is one per signable: every entity required to
// authorize it, keyed by address, plus the signable's own id and
// payload bytes.
type PetitionForTransaction struct {
	PayloadID string
	Payload   []byte
	Entities  map[entity.Address]*PetitionForEntity
}

// Status is Success iff every entity's petition is Success; Fail if
// any entity's petition is Fail; else InProgress.
func (t *PetitionForTransaction) Status() TransactionStatus {
	anyInProgress := false
	for _, pe := range t.Entities {
		switch pe.Status() {
		case EntityStatusFail:
			return TransactionStatusFail
		case EntityStatusInProgress:
			anyInProgress = true
		}
	}
	if anyInProgress {
		return TransactionStatusInProgress
	}
	return TransactionStatusSuccess
}

// NeglectIfReferenced forwards the neglect to every entity petition
// that references factorID.
func (t *PetitionForTransaction) NeglectIfReferenced(factorID factor.IDFromHash, reason interactors.NeglectReason) {
	for _, pe := range t.Entities {
		if pe.References(factorID) {
			pe.NeglectIfReferenced(factorID, reason)
		}
	}
}

// References reports whether any entity petition in this transaction
// references factorID.
func (t *PetitionForTransaction) References(factorID factor.IDFromHash) bool {
	for _, pe := range t.Entities {
		if pe.References(factorID) {
			return true
		}
	}
	return false
}

// Signatures returns every signature collected across every entity
// petition in this transaction.
func (t *PetitionForTransaction) Signatures() []interactors.Signature {
	var out []interactors.Signature
	for _, pe := range t.Entities {
		out = append(out, pe.Signatures()...)
	}
	return out
}
