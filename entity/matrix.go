package entity

import (
	"github.com/vaultwarden-hd/hdcore/cerrors"
	"github.com/vaultwarden-hd/hdcore/factor"
)

// Role discriminates the three roles a MatrixOfFactorInstances
// arranges factors into.
type Role int

const (
	RolePrimary Role = iota
	RoleRecovery
	RoleConfirmation
)

func (r Role) String() string {
	switch r {
	case RolePrimary:
		return "primary"
	case RoleRecovery:
		return "recovery"
	case RoleConfirmation:
		return "confirmation"
	default:
		return "unknown"
	}
}

// RoleOfFactors is one role-list of a matrix: a threshold list with a
// required count, plus an override list where any single signer
// suffices. A factor MUST NOT appear in both lists.
type RoleOfFactors struct {
	ThresholdFactors []factor.Instance
	Threshold        uint8
	OverrideFactors  []factor.Instance
}

// NewRoleOfFactors validates the no-overlap invariant at
// construction time.
func NewRoleOfFactors(thresholdFactors []factor.Instance, threshold uint8, overrideFactors []factor.Instance) (RoleOfFactors, error) {
	seen := make(map[string]bool, len(thresholdFactors))
	for _, f := range thresholdFactors {
		seen[f.IdentityKey()] = true
	}
	for _, f := range overrideFactors {
		if seen[f.IdentityKey()] {
			return RoleOfFactors{}, cerrors.New(cerrors.KindFactorAppearsInBothThresholdAndOverride)
		}
	}
	return RoleOfFactors{ThresholdFactors: thresholdFactors, Threshold: threshold, OverrideFactors: overrideFactors}, nil
}

// IsAuthorizedBy reports whether a role is authorized given the
// number of threshold-list signers collected and whether any
// override-list signer was collected.
func (r RoleOfFactors) IsAuthorizedBy(thresholdSignerCount int, anyOverrideSigner bool) bool {
	return anyOverrideSigner || thresholdSignerCount >= int(r.Threshold)
}

// MatrixOfFactorInstances arranges factor instances into the three
// authorization roles a securified entity is controlled by.
type MatrixOfFactorInstances struct {
	Primary                               RoleOfFactors
	Recovery                              RoleOfFactors
	Confirmation                          RoleOfFactors
	TimeUntilDelayedConfirmationIsCallable int64 // seconds
}

// NewMatrixOfFactorInstances assembles a matrix from three roles. It
// does not validate them; the no-overlap rule is checked per role by
// NewRoleOfFactors.
func NewMatrixOfFactorInstances(primary, recovery, confirmation RoleOfFactors, delaySeconds int64) MatrixOfFactorInstances {
	return MatrixOfFactorInstances{
		Primary:                                primary,
		Recovery:                               recovery,
		Confirmation:                           confirmation,
		TimeUntilDelayedConfirmationIsCallable: delaySeconds,
	}
}

// RoleByKind returns the role-list for r.
func (m MatrixOfFactorInstances) RoleByKind(r Role) RoleOfFactors {
	switch r {
	case RolePrimary:
		return m.Primary
	case RoleRecovery:
		return m.Recovery
	default:
		return m.Confirmation
	}
}

// SecurityStructureOfFactorInstances is a materialized shield: a
// matrix of concrete factor instances, ready to control a securified
// entity.
type SecurityStructureOfFactorInstances struct {
	ID     string
	Matrix MatrixOfFactorInstances
}
