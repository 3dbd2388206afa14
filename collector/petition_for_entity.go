package collector

import (
	"github.com/pkg/errors"

	"github.com/vaultwarden-hd/hdcore/entity"
	"github.com/vaultwarden-hd/hdcore/factor"
	"github.com/vaultwarden-hd/hdcore/interactors"
)

// EntityStatus is the aggregate outcome of a PetitionForEntity.
type EntityStatus int

const (
	EntityStatusInProgress EntityStatus = iota
	EntityStatusSuccess
	EntityStatusFail
)

// PetitionForEntity wraps at most one threshold and one override
// PetitionForFactors for a single (transaction, entity) pair — never
// both nil.
type PetitionForEntity struct {
	Entity    entity.Entity
	PayloadID string
	Threshold *PetitionForFactors
	Override  *PetitionForFactors
}

// NewPetitionForEntity constructs the petition(s) an entity's current
// security state implies for purpose, as follows:
// an unsecurified entity gets a single threshold-1 petition over its
// transaction-signing instance; a securified entity gets the matrix
// role selected by purpose, split into threshold/override petitions;
// ROLA uses the entity's authentication-signing instance regardless of
// security state.
func NewPetitionForEntity(payloadID string, e entity.Entity, purpose interactors.SigningPurpose) (*PetitionForEntity, error) {
	if purpose == interactors.SigningPurposeROLA {
		auth, ok := e.AuthenticationSigningInstance()
		if !ok {
			return nil, errors.Errorf("entity %s has no authentication-signing instance for ROLA", e.Address)
		}
		return &PetitionForEntity{
			Entity:    e,
			PayloadID: payloadID,
			Threshold: NewThresholdPetition([]factor.Instance{auth}, 1),
		}, nil
	}

	if !e.IsSecurified() {
		return &PetitionForEntity{
			Entity:    e,
			PayloadID: payloadID,
			Threshold: NewThresholdPetition([]factor.Instance{e.SecurityState.Unsecured.TransactionSigning}, 1),
		}, nil
	}

	role, err := roleForPurpose(purpose)
	if err != nil {
		return nil, err
	}
	matrixRole := e.SecurityState.Securified.SecurityStructure.Matrix.RoleByKind(role)
	pe := &PetitionForEntity{
		Entity:    e,
		PayloadID: payloadID,
		Threshold: NewThresholdPetition(matrixRole.ThresholdFactors, matrixRole.Threshold),
		Override:  NewOverridePetition(matrixRole.OverrideFactors),
	}
	if pe.Threshold == nil && pe.Override == nil {
		return nil, errors.Errorf("entity %s's %s role has no factors", e.Address, role)
	}
	return pe, nil
}

func roleForPurpose(purpose interactors.SigningPurpose) (entity.Role, error) {
	switch purpose {
	case interactors.SigningPurposeSignTransactionPrimary:
		return entity.RolePrimary, nil
	case interactors.SigningPurposeSignTransactionRecovery:
		return entity.RoleRecovery, nil
	case interactors.SigningPurposeSignTransactionConfirmation:
		return entity.RoleConfirmation, nil
	default:
		return 0, errors.Errorf("unsupported signing purpose %v for a securified entity", purpose)
	}
}

// References reports whether factorID is a candidate in either of
// this petition's role-lists.
func (pe *PetitionForEntity) References(factorID factor.IDFromHash) bool {
	return (pe.Threshold != nil && pe.Threshold.References(factorID)) ||
		(pe.Override != nil && pe.Override.References(factorID))
}

// NeglectIfReferenced forwards the neglect to whichever of this
// petition's role-lists reference factorID.
func (pe *PetitionForEntity) NeglectIfReferenced(factorID factor.IDFromHash, reason interactors.NeglectReason) {
	if pe.Threshold != nil {
		pe.Threshold.NeglectIfReferenced(factorID, reason)
	}
	if pe.Override != nil {
		pe.Override.NeglectIfReferenced(factorID, reason)
	}
}

// AddSignature routes sig to whichever role-list's candidates it
// matches.
func (pe *PetitionForEntity) AddSignature(sig interactors.Signature) {
	key := sig.Instance.Instance.IdentityKey()
	if pe.Threshold != nil && pe.Threshold.hasCandidate(key) {
		pe.Threshold.AddSignature(sig)
		return
	}
	if pe.Override != nil && pe.Override.hasCandidate(key) {
		pe.Override.AddSignature(sig)
		return
	}
	panic("collector: signature does not match this entity's petition")
}

// Status is Success if either child petition is Finished(Success);
// Fail only if both present children are Finished(Fail); else
// InProgress.
func (pe *PetitionForEntity) Status() EntityStatus {
	thresholdStatus, hasThreshold := childStatus(pe.Threshold)
	overrideStatus, hasOverride := childStatus(pe.Override)

	if (hasThreshold && thresholdStatus == FactorsStatusFinishedSuccess) ||
		(hasOverride && overrideStatus == FactorsStatusFinishedSuccess) {
		return EntityStatusSuccess
	}

	thresholdFailedOrAbsent := !hasThreshold || thresholdStatus == FactorsStatusFinishedFail
	overrideFailedOrAbsent := !hasOverride || overrideStatus == FactorsStatusFinishedFail
	if thresholdFailedOrAbsent && overrideFailedOrAbsent {
		return EntityStatusFail
	}
	return EntityStatusInProgress
}

func childStatus(p *PetitionForFactors) (FactorsStatus, bool) {
	if p == nil {
		return FactorsStatusInProgress, false
	}
	return p.Status(), true
}

// Signatures returns every signature collected across both role-lists.
func (pe *PetitionForEntity) Signatures() []interactors.Signature {
	var out []interactors.Signature
	if pe.Threshold != nil {
		out = append(out, pe.Threshold.Signatures()...)
	}
	if pe.Override != nil {
		out = append(out, pe.Override.Signatures()...)
	}
	return out
}

// hasCandidate is an unlocked helper exposed only within the package
// for AddSignature's routing check.
func (p *PetitionForFactors) hasCandidate(key string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.hasCandidateLocked(key)
}
