package entity

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/vaultwarden-hd/hdcore/cerrors"
	"github.com/vaultwarden-hd/hdcore/factor"
)

// StateKind discriminates the two security states an entity can be
// in.
type StateKind int

const (
	StateKindUnsecured StateKind = iota
	StateKindSecurified
)

func (k StateKind) String() string {
	if k == StateKindUnsecured {
		return "unsecured"
	}
	return "securified"
}

// UnsecuredEntityControl is the body of an Unsecured security state: a
// single transaction-signing instance, plus an optional
// authentication-signing instance for ROLA.
type UnsecuredEntityControl struct {
	TransactionSigning   factor.Instance
	AuthenticationSigning *factor.Instance
}

// SecuredEntityControl is the body of a Securified security state: a
// materialized shield, the on-ledger access-controller address it was
// applied through, and an optional provisional (not-yet-confirmed)
// replacement shield.
type SecuredEntityControl struct {
	AccessControllerAddress string
	SecurityStructure       SecurityStructureOfFactorInstances
	Provisional             *SecurityStructureOfFactorInstances
	// AuthenticationSigning is the factor instance a securified
	// entity signs ROLA challenges with — derived separately from the
	// primary/recovery/confirmation matrix roles (the "purpose
	// ROLA on a securified entity" case).
	AuthenticationSigning *factor.Instance
}

// SecurityState is the tagged union EntitySecurityState, holding
// exactly one of Unsecured or Securified per its Kind.
type SecurityState struct {
	Kind       StateKind
	Unsecured  *UnsecuredEntityControl
	Securified *SecuredEntityControl
}

// NewUnsecuredState constructs an Unsecured SecurityState.
func NewUnsecuredState(control UnsecuredEntityControl) SecurityState {
	return SecurityState{Kind: StateKindUnsecured, Unsecured: &control}
}

// NewSecurifiedState constructs a Securified SecurityState.
func NewSecurifiedState(control SecuredEntityControl) SecurityState {
	return SecurityState{Kind: StateKindSecurified, Securified: &control}
}

// Transition validates moving from an entity's current security state
// to a proposed next state, one way only: Unsecured
// may move to Securified, but never the reverse, and two Securified
// states may only swap if they share an access-controller address
// (e.g. updating the matrix, rotating the provisional shield).
func Transition(current, next SecurityState) error {
	if current.Kind == StateKindSecurified && next.Kind == StateKindUnsecured {
		return cerrors.New(cerrors.KindSecurityStateSecurifiedButExpectedUnsecurified)
	}
	if current.Kind == StateKindSecurified && next.Kind == StateKindSecurified {
		if current.Securified.AccessControllerAddress != next.Securified.AccessControllerAddress {
			return cerrors.New(cerrors.KindSecurityStateAccessControllerAddressMismatch)
		}
	}
	return nil
}

type securityStatePayload struct {
	Discriminator          string                  `json:"discriminator"`
	UnsecuredEntityControl *UnsecuredEntityControl `json:"unsecuredEntityControl,omitempty"`
	SecuredEntityControl   *SecuredEntityControl   `json:"securedEntityControl,omitempty"`
}

// MarshalJSON implements the discriminator-keyed payload.
func (s SecurityState) MarshalJSON() ([]byte, error) {
	payload := securityStatePayload{Discriminator: s.Kind.String()}
	if s.Kind == StateKindUnsecured {
		payload.UnsecuredEntityControl = s.Unsecured
	} else {
		payload.SecuredEntityControl = s.Securified
	}
	return json.Marshal(payload)
}

// UnmarshalJSON implements the discriminator-keyed payload.
func (s *SecurityState) UnmarshalJSON(data []byte) error {
	var payload securityStatePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	switch payload.Discriminator {
	case "unsecured":
		if payload.UnsecuredEntityControl == nil {
			return errMissingDiscriminatedPayload("unsecuredEntityControl")
		}
		*s = NewUnsecuredState(*payload.UnsecuredEntityControl)
	case "securified":
		if payload.SecuredEntityControl == nil {
			return errMissingDiscriminatedPayload("securedEntityControl")
		}
		*s = NewSecurifiedState(*payload.SecuredEntityControl)
	default:
		return errMissingDiscriminatedPayload("discriminator " + payload.Discriminator)
	}
	return nil
}

func errMissingDiscriminatedPayload(what string) error {
	return errors.Errorf("security state payload missing %s", what)
}
