package factor

import (
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/vaultwarden-hd/hdcore/cerrors"
	"golang.org/x/crypto/blake2b"
)

// SeedFactorSourceHashPath is the fixed CAP26 path whose public key is
// hashed to derive the id of every seed-backed factor source
// (Device, OffDeviceMnemonic, Ledger): m/44H/1022H/365H/365H/365H/0H.
const SeedFactorSourceHashPath = "m/44H/1022H/365H/365H/365H/0H"

// IDFromHash is a FactorSourceID keyed by a 32-byte hash of a
// canonical public key.
type IDFromHash struct {
	Kind Kind
	Body [32]byte
}

// NewIDFromHashOfPublicKey hashes pubKeyBytes directly, the scheme
// used for non-seed factor sources such as ArculusCard.
func NewIDFromHashOfPublicKey(kind Kind, pubKeyBytes []byte) IDFromHash {
	return IDFromHash{Kind: kind, Body: blake2b.Sum256(pubKeyBytes)}
}

// NewIDFromHashOfSeedPublicKey hashes the public key found at
// SeedFactorSourceHashPath, the scheme used for Device, Ledger and
// OffDeviceMnemonic factor sources.
func NewIDFromHashOfSeedPublicKey(kind Kind, pubKeyAtHashPath []byte) IDFromHash {
	return NewIDFromHashOfPublicKey(kind, pubKeyAtHashPath)
}

// String renders the canonical textual form "kind:hex(body)".
func (id IDFromHash) String() string {
	return id.Kind.String() + ":" + hex.EncodeToString(id.Body[:])
}

// ParseIDFromHash parses the "kind:hex(body)" textual form, failing
// with FactorSourceIDNotFromHash if it does not have exactly two
// ':'-separated components or the body is not a 32-byte hex string.
func ParseIDFromHash(raw string) (IDFromHash, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 2 {
		return IDFromHash{}, cerrors.Withf(cerrors.KindFactorSourceIDNotFromHash, "%q", raw)
	}
	kind, err := ParseKind(parts[0])
	if err != nil {
		return IDFromHash{}, err
	}
	bodyBytes, err := hex.DecodeString(parts[1])
	if err != nil || len(bodyBytes) != 32 {
		return IDFromHash{}, cerrors.Withf(cerrors.KindFactorSourceIDNotFromHash, "%q", raw)
	}
	var body [32]byte
	copy(body[:], bodyBytes)
	return IDFromHash{Kind: kind, Body: body}, nil
}

type idFromHashPayload struct {
	Kind string `json:"kind"`
	Body string `json:"body"`
}

// MarshalJSON implements the `{ "kind": ..., "body": "64-hex" }`
// envelope.
func (id IDFromHash) MarshalJSON() ([]byte, error) {
	return json.Marshal(idFromHashPayload{Kind: id.Kind.String(), Body: hex.EncodeToString(id.Body[:])})
}

// UnmarshalJSON parses the `{ "kind": ..., "body": "64-hex" }`
// envelope.
func (id *IDFromHash) UnmarshalJSON(data []byte) error {
	var payload idFromHashPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	kind, err := ParseKind(payload.Kind)
	if err != nil {
		return err
	}
	bodyBytes, err := hex.DecodeString(payload.Body)
	if err != nil || len(bodyBytes) != 32 {
		return cerrors.Withf(cerrors.KindFactorSourceIDNotFromHash, "body %q", payload.Body)
	}
	var body [32]byte
	copy(body[:], bodyBytes)
	id.Kind = kind
	id.Body = body
	return nil
}
