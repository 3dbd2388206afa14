// Package factor implements the factor-source taxonomy, hash-derived
// factor-source identifiers, and the hierarchical-deterministic
// factor instances entities own.
package factor

import (
	"fmt"

	"github.com/vaultwarden-hd/hdcore/cerrors"
)

// Kind discriminates the seven factor-source variants the core
// recognizes.
type Kind int

const (
	KindDevice Kind = iota
	KindLedgerHQHardwareWallet
	KindOffDeviceMnemonic
	KindArculusCard
	KindPassword
	KindSecurityQuestions
	KindTrustedContact
)

var kindNames = map[Kind]string{
	KindDevice:                 "device",
	KindLedgerHQHardwareWallet: "ledgerHQHardwareWallet",
	KindOffDeviceMnemonic:      "offDeviceMnemonic",
	KindArculusCard:            "arculusCard",
	KindPassword:               "password",
	KindSecurityQuestions:      "securityQuestions",
	KindTrustedContact:         "trustedContact",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func ParseKind(raw string) (Kind, error) {
	for k, name := range kindNames {
		if name == raw {
			return k, nil
		}
	}
	return 0, cerrors.Withf(cerrors.KindFactorSourceIDNotFromHash, "unknown factor source kind %q", raw)
}

// KindOrder is the fixed, security-descending total order the
// signatures collector iterates factor-source kinds in:
// hardware-isolated kinds first, software-derived kinds last.
var KindOrder = []Kind{
	KindLedgerHQHardwareWallet,
	KindArculusCard,
	KindTrustedContact,
	KindDevice,
	KindOffDeviceMnemonic,
	KindSecurityQuestions,
	KindPassword,
}

var kindRank = func() map[Kind]int {
	m := make(map[Kind]int, len(KindOrder))
	for i, k := range KindOrder {
		m[k] = i
	}
	return m
}()

// CompareKind orders two kinds per KindOrder, returning -1, 0, or 1.
func CompareKind(a, b Kind) int {
	ra, rb := kindRank[a], kindRank[b]
	switch {
	case ra < rb:
		return -1
	case ra > rb:
		return 1
	default:
		return 0
	}
}
