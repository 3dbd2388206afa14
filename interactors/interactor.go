// Package interactors defines the boundary contracts the core drives
// to ask a human or a hardware device to derive keys and produce
// signatures, plus a reference EC-backed implementation of both.
package interactors

import (
	"context"
	"fmt"

	"github.com/vaultwarden-hd/hdcore/derivation"
	"github.com/vaultwarden-hd/hdcore/entity"
	"github.com/vaultwarden-hd/hdcore/factor"
)

// DerivationPurpose informs a KeyDerivationInteractor how to prompt
// the user for the batch of derivations being requested.
type DerivationPurpose int

const (
	DerivationPurposeCreatingNewAccount DerivationPurpose = iota
	DerivationPurposeCreatingNewPersona
	DerivationPurposeSecurifyingAccount
	DerivationPurposeSecurifyingPersona
	DerivationPurposeSecurifyingAccountsAndPersonas
	DerivationPurposePreDerivingKeys
)

func (p DerivationPurpose) String() string {
	switch p {
	case DerivationPurposeCreatingNewAccount:
		return "CreatingNewAccount"
	case DerivationPurposeCreatingNewPersona:
		return "CreatingNewPersona"
	case DerivationPurposeSecurifyingAccount:
		return "SecurifyingAccount"
	case DerivationPurposeSecurifyingPersona:
		return "SecurifyingPersona"
	case DerivationPurposeSecurifyingAccountsAndPersonas:
		return "SecurifyingAccountsAndPersonas"
	case DerivationPurposePreDerivingKeys:
		return "PreDerivingKeys"
	default:
		return fmt.Sprintf("DerivationPurpose(%d)", int(p))
	}
}

// PerFactorSourceDerivationRequest asks for public keys at every path
// in Paths, all from the single factor source FactorSourceID.
type PerFactorSourceDerivationRequest struct {
	FactorSourceID factor.IDFromHash
	Paths          []derivation.DerivationPath
}

// PerFactorDerivedKeys is the KeyDerivationInteractor's response: the
// freshly derived instances, grouped by the factor source that
// produced them, in the same order their paths were requested.
type PerFactorDerivedKeys map[factor.IDFromHash][]factor.Instance

// KeyDerivationInteractor derives public keys for a batch of paths
// without ever exposing private key material to the caller.
type KeyDerivationInteractor interface {
	Derive(ctx context.Context, requests []PerFactorSourceDerivationRequest, purpose DerivationPurpose) (PerFactorDerivedKeys, error)
}

// SigningPurpose informs a SignInteractor which role or protocol the
// requested signatures are for.
type SigningPurpose int

const (
	SigningPurposeSignTransactionPrimary SigningPurpose = iota
	SigningPurposeSignTransactionRecovery
	SigningPurposeSignTransactionConfirmation
	SigningPurposeROLA
)

func (p SigningPurpose) String() string {
	switch p {
	case SigningPurposeSignTransactionPrimary:
		return "SignTransaction(Primary)"
	case SigningPurposeSignTransactionRecovery:
		return "SignTransaction(Recovery)"
	case SigningPurposeSignTransactionConfirmation:
		return "SignTransaction(Confirmation)"
	case SigningPurposeROLA:
		return "ROLA"
	default:
		return fmt.Sprintf("SigningPurpose(%d)", int(p))
	}
}

// OwnedFactorInstance is the (entity, instance) pair a
// TransactionSignRequest asks a SignInteractor to sign with.
type OwnedFactorInstance = entity.OwnedInstance

// TransactionSignRequest asks a single factor source to sign Payload
// (identified by PayloadID) on behalf of every owned instance listed.
type TransactionSignRequest struct {
	PayloadID            string
	Payload               []byte
	FactorSourceID        factor.IDFromHash
	OwnedFactorInstances  []OwnedFactorInstance
}

// NeglectReason explains why a factor produced no signature.
type NeglectReason int

const (
	NeglectReasonUserSkipped NeglectReason = iota
	NeglectReasonFailure
	NeglectReasonIrrelevant
	NeglectReasonSimulation
)

func (r NeglectReason) String() string {
	switch r {
	case NeglectReasonUserSkipped:
		return "UserSkipped"
	case NeglectReasonFailure:
		return "Failure"
	case NeglectReasonIrrelevant:
		return "Irrelevant"
	case NeglectReasonSimulation:
		return "Simulation"
	default:
		return fmt.Sprintf("NeglectReason(%d)", int(r))
	}
}

// Signature is a raw signature produced over a TransactionSignRequest's
// payload by one owned factor instance.
type Signature struct {
	Instance  OwnedFactorInstance
	PayloadID string
	Bytes     []byte
}

// SignOutcome is the per-factor result of a sign request: exactly one
// of Signatures (non-empty) or Neglected is meaningful.
type SignOutcome struct {
	Signed    bool
	Signatures []Signature
	Neglected NeglectReason
}

// PerFactorOutcome is the SignInteractor's response, keyed by the
// factor source each request was addressed to.
type PerFactorOutcome map[factor.IDFromHash]SignOutcome

// SignInteractor drives a factor source to produce signatures for a
// batch of transaction sign requests.
type SignInteractor interface {
	Sign(ctx context.Context, requests []TransactionSignRequest, purpose SigningPurpose) (PerFactorOutcome, error)
}
