// Package cerrors implements the flat, named error taxonomy the core
// uses at every layer (path algebra, identified maps, entity security
// state, factor/storage binding, profile accessors).
package cerrors

import "fmt"

// Kind is a closed taxonomy of error conditions raised by the core.
type Kind int

const (
	KindUnknown Kind = iota

	// Path algebra (keyspace / derivation)
	KindIndexOverflow
	KindCannotAddMoreToIndexSinceItWouldChangeKeySpace
	KindIndexSecurifiedExpectedUnsecurified
	KindIndexUnsecurifiedExpectedSecurified
	KindInvalidBIP32Path
	KindInvalidDepthOfCAP26Path
	KindNotAllComponentsAreHardened
	KindCoinTypeNotFound
	KindBIP44PurposeNotFound
	KindInvalidNetworkIDExceedsLimit
	KindWrongEntityKind
	KindInvalidEntityKind
	KindInvalidKeyKind

	// Identified-vec contract
	KindIdentifiableItemAlreadyExist
	KindElementDoesNotExist

	// Entity lookup
	KindExpectedAccountButGotPersona
	KindExpectedPersonaButGotAccount
	KindUnknownAccount
	KindUnknownPersona

	// Security-state transitions
	KindSecurityStateSecurifiedButExpectedUnsecurified
	KindSecurityStateAccessControllerAddressMismatch

	// Factor / storage binding
	KindFactorSourceIDNotFromHash
	KindUnableToLoadMnemonicFromSecureStorage
	KindUnableToSaveHostIdToSecureStorage

	// Gateways
	KindInvalidGatewaysJSONCurrentNotFoundAmongstSaved
	KindGatewaysDiscrepancyOtherShouldNotContainCurrent

	// Profile accessors
	KindProfileStateNotLoaded

	// Cache / provider
	KindCacheInvariantViolated
	KindDerivationFailed

	// Collector
	KindSignatureDoesNotMatchAnyPetition
	KindFactorAppearsInBothThresholdAndOverride

	// Profile / AuthorizedDapp
	KindAuthorizedDappNetworkMismatch
)

var kindNames = map[Kind]string{
	KindUnknown: "Unknown",

	KindIndexOverflow: "IndexOverflow",
	KindCannotAddMoreToIndexSinceItWouldChangeKeySpace: "CannotAddMoreToIndexSinceItWouldChangeKeySpace",
	KindIndexSecurifiedExpectedUnsecurified:            "IndexSecurifiedExpectedUnsecurified",
	KindIndexUnsecurifiedExpectedSecurified:            "IndexUnsecurifiedExpectedSecurified",
	KindInvalidBIP32Path:                               "InvalidBIP32Path",
	KindInvalidDepthOfCAP26Path:                         "InvalidDepthOfCAP26Path",
	KindNotAllComponentsAreHardened:                     "NotAllComponentsAreHardened",
	KindCoinTypeNotFound:                                "CoinTypeNotFound",
	KindBIP44PurposeNotFound:                            "BIP44PurposeNotFound",
	KindInvalidNetworkIDExceedsLimit:                    "InvalidNetworkIDExceedsLimit",
	KindWrongEntityKind:                                 "WrongEntityKind",
	KindInvalidEntityKind:                               "InvalidEntityKind",
	KindInvalidKeyKind:                                  "InvalidKeyKind",

	KindIdentifiableItemAlreadyExist: "IdentifiableItemAlreadyExist",
	KindElementDoesNotExist:          "ElementDoesNotExist",

	KindExpectedAccountButGotPersona: "ExpectedAccountButGotPersona",
	KindExpectedPersonaButGotAccount: "ExpectedPersonaButGotAccount",
	KindUnknownAccount:               "UnknownAccount",
	KindUnknownPersona:               "UnknownPersona",

	KindSecurityStateSecurifiedButExpectedUnsecurified: "SecurityStateSecurifiedButExpectedUnsecurified",
	KindSecurityStateAccessControllerAddressMismatch:   "SecurityStateAccessControllerAddressMismatch",

	KindFactorSourceIDNotFromHash:                  "FactorSourceIDNotFromHash",
	KindUnableToLoadMnemonicFromSecureStorage:      "UnableToLoadMnemonicFromSecureStorage",
	KindUnableToSaveHostIdToSecureStorage:          "UnableToSaveHostIdToSecureStorage",

	KindInvalidGatewaysJSONCurrentNotFoundAmongstSaved: "InvalidGatewaysJSONCurrentNotFoundAmongstSaved",
	KindGatewaysDiscrepancyOtherShouldNotContainCurrent: "GatewaysDiscrepancyOtherShouldNotContainCurrent",

	KindProfileStateNotLoaded: "ProfileStateNotLoaded",

	KindCacheInvariantViolated: "CacheInvariantViolated",
	KindDerivationFailed:       "DerivationFailed",

	KindSignatureDoesNotMatchAnyPetition:          "SignatureDoesNotMatchAnyPetition",
	KindFactorAppearsInBothThresholdAndOverride:   "FactorAppearsInBothThresholdAndOverride",

	KindAuthorizedDappNetworkMismatch: "AuthorizedDappNetworkMismatch",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Error is the concrete error type raised across the core. It carries
// a Kind, optional structured Fields for "bad_value"/"id"-style
// payloads, and an optional Underlying
// cause so github.com/pkg/errors keeps unwrapping correctly.
type Error struct {
	Kind       Kind
	Fields     map[string]interface{}
	Underlying error
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		if e.Underlying != nil {
			return fmt.Sprintf("%s: %v", e.Kind, e.Underlying)
		}
		return e.Kind.String()
	}
	if e.Underlying != nil {
		return fmt.Sprintf("%s %v: %v", e.Kind, e.Fields, e.Underlying)
	}
	return fmt.Sprintf("%s %v", e.Kind, e.Fields)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// New constructs an Error of the given Kind with no fields.
func New(kind Kind) *Error {
	return &Error{Kind: kind}
}

// Withf constructs an Error of the given Kind carrying a single
// formatted field under "bad_value".
func Withf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Fields: map[string]interface{}{"bad_value": fmt.Sprintf(format, args...)}}
}

// WithFields constructs an Error of the given Kind carrying arbitrary
// structured fields, e.g. `ElementDoesNotExist{ id }`.
func WithFields(kind Kind, fields map[string]interface{}) *Error {
	return &Error{Kind: kind, Fields: fields}
}

// Wrap attaches an underlying cause to a Kind.
func Wrap(kind Kind, underlying error) *Error {
	return &Error{Kind: kind, Underlying: underlying}
}

// Is reports whether err is a *Error of the given Kind, unwrapping
// through any pkg/errors-style cause chain.
func Is(err error, kind Kind) bool {
	for err != nil {
		if ce, ok := err.(*Error); ok {
			return ce.Kind == kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
