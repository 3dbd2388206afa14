package entity

import (
	"github.com/vaultwarden-hd/hdcore/cerrors"
	"github.com/vaultwarden-hd/hdcore/factor"
)

// RoleOfFactorSourceIDs is one role-list of a shield: the same
// threshold/override shape as RoleOfFactors, but referencing factor
// sources by id rather than holding concrete instances. A factor
// source MUST NOT appear in both lists.
type RoleOfFactorSourceIDs struct {
	ThresholdFactors []factor.IDFromHash `json:"thresholdFactors"`
	Threshold        uint8               `json:"threshold"`
	OverrideFactors  []factor.IDFromHash `json:"overrideFactors"`
}

// NewRoleOfFactorSourceIDs validates the no-overlap invariant at
// construction time, mirroring NewRoleOfFactors.
func NewRoleOfFactorSourceIDs(thresholdFactors []factor.IDFromHash, threshold uint8, overrideFactors []factor.IDFromHash) (RoleOfFactorSourceIDs, error) {
	seen := make(map[factor.IDFromHash]bool, len(thresholdFactors))
	for _, id := range thresholdFactors {
		seen[id] = true
	}
	for _, id := range overrideFactors {
		if seen[id] {
			return RoleOfFactorSourceIDs{}, cerrors.New(cerrors.KindFactorAppearsInBothThresholdAndOverride)
		}
	}
	return RoleOfFactorSourceIDs{ThresholdFactors: thresholdFactors, Threshold: threshold, OverrideFactors: overrideFactors}, nil
}

// MatrixOfFactorSourceIDs arranges factor source ids into the three
// authorization roles, the id-level counterpart of
// MatrixOfFactorInstances.
type MatrixOfFactorSourceIDs struct {
	Primary                                RoleOfFactorSourceIDs `json:"primaryRole"`
	Recovery                               RoleOfFactorSourceIDs `json:"recoveryRole"`
	Confirmation                           RoleOfFactorSourceIDs `json:"confirmationRole"`
	TimeUntilDelayedConfirmationIsCallable int64                 `json:"timeUntilDelayedConfirmationIsCallable"` // seconds
}

// SecurityStructureOfFactorSources is a shield: the user-facing
// security policy referencing factor sources by id. Applying it to an
// entity materializes it into a SecurityStructureOfFactorInstances
// with one concrete MFA instance per referenced factor source.
type SecurityStructureOfFactorSources struct {
	ID          string                  `json:"id"`
	DisplayName string                  `json:"displayName"`
	CreatedAt   int64                   `json:"createdOn"` // unix seconds
	Matrix      MatrixOfFactorSourceIDs `json:"matrixOfFactors"`
}

// IdentityKey satisfies idmap.Identifiable: shields are keyed by
// their id.
func (s SecurityStructureOfFactorSources) IdentityKey() string {
	return s.ID
}

// AllFactorSourceIDs returns every factor source the shield references
// across all three roles, deduplicated, in first-appearance order —
// the factor-source scope a provider call for this shield derives
// instances for.
func (s SecurityStructureOfFactorSources) AllFactorSourceIDs() []factor.IDFromHash {
	var out []factor.IDFromHash
	seen := make(map[factor.IDFromHash]bool)
	add := func(ids []factor.IDFromHash) {
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, role := range []RoleOfFactorSourceIDs{s.Matrix.Primary, s.Matrix.Recovery, s.Matrix.Confirmation} {
		add(role.ThresholdFactors)
		add(role.OverrideFactors)
	}
	return out
}

// Materialize binds one concrete factor instance to every factor
// source the shield references, producing the
// SecurityStructureOfFactorInstances a securified entity is controlled
// by. The same instance is reused wherever its source appears across
// roles. Fails with ElementDoesNotExist if any referenced factor
// source has no instance in instancePerFactor.
func (s SecurityStructureOfFactorSources) Materialize(instancePerFactor map[factor.IDFromHash]factor.Instance) (SecurityStructureOfFactorInstances, error) {
	materializeRole := func(role RoleOfFactorSourceIDs) (RoleOfFactors, error) {
		resolve := func(ids []factor.IDFromHash) ([]factor.Instance, error) {
			out := make([]factor.Instance, 0, len(ids))
			for _, id := range ids {
				instance, ok := instancePerFactor[id]
				if !ok {
					return nil, cerrors.WithFields(cerrors.KindElementDoesNotExist, map[string]interface{}{"id": id.String()})
				}
				out = append(out, instance)
			}
			return out, nil
		}
		threshold, err := resolve(role.ThresholdFactors)
		if err != nil {
			return RoleOfFactors{}, err
		}
		override, err := resolve(role.OverrideFactors)
		if err != nil {
			return RoleOfFactors{}, err
		}
		return NewRoleOfFactors(threshold, role.Threshold, override)
	}

	primary, err := materializeRole(s.Matrix.Primary)
	if err != nil {
		return SecurityStructureOfFactorInstances{}, err
	}
	recovery, err := materializeRole(s.Matrix.Recovery)
	if err != nil {
		return SecurityStructureOfFactorInstances{}, err
	}
	confirmation, err := materializeRole(s.Matrix.Confirmation)
	if err != nil {
		return SecurityStructureOfFactorInstances{}, err
	}

	return SecurityStructureOfFactorInstances{
		ID:     s.ID,
		Matrix: NewMatrixOfFactorInstances(primary, recovery, confirmation, s.Matrix.TimeUntilDelayedConfirmationIsCallable),
	}, nil
}
