package factor

import "github.com/vaultwarden-hd/hdcore/derivation"

// Curve names the elliptic curve a factor source can sign with.
type Curve int

const (
	CurveCurve25519 Curve = iota
	CurveSecp256k1
)

func (c Curve) String() string {
	switch c {
	case CurveCurve25519:
		return "curve25519"
	case CurveSecp256k1:
		return "secp256k1"
	default:
		return "unknown"
	}
}

// CryptoParameters describes what a factor source is capable of
// signing/deriving: which curves, and which derivation path schemes.
type CryptoParameters struct {
	SupportedCurves           []Curve
	SupportedDerivationSchemes []derivation.Scheme
}

// Flags carries boolean attributes of a factor source, notably
// whether it is the profile's designated "main" factor.
type Flags struct {
	Main bool
}

// Hint is the user-facing label a factor source carries (device
// model/name, mnemonic word count, and similar non-authoritative
// display data); it never participates in identity or signing.
type Hint struct {
	Label      string
	WordCount  int
	ModelName  string
}

// Source is one configured factor source. Kind discriminates which
// kind-specific concerns apply to it; the remaining fields are the
// header every kind shares.
type Source struct {
	ID               IDFromHash
	Kind             Kind
	CreatedAt        int64 // unix seconds
	LastUsedAt       int64 // unix seconds, 0 if never used
	Flags            Flags
	CryptoParameters CryptoParameters
	Hint             Hint
}

// NewSource constructs a Source from an id the caller has already
// computed (seed factor sources hash the public key at
// SeedFactorSourceHashPath; others hash their public key bytes
// directly), taking its Kind from that id.
func NewSource(id IDFromHash, createdAt int64, params CryptoParameters, hint Hint) Source {
	return Source{
		ID:               id,
		Kind:             id.Kind,
		CreatedAt:        createdAt,
		CryptoParameters: params,
		Hint:             hint,
	}
}

// MarkMain returns a copy of s with the Main flag set.
func (s Source) MarkMain() Source {
	s.Flags.Main = true
	return s
}

// Touch returns a copy of s with LastUsedAt updated.
func (s Source) Touch(unixSeconds int64) Source {
	s.LastUsedAt = unixSeconds
	return s
}

// IdentityKey satisfies idmap.Identifiable: factor sources are keyed
// by their IDFromHash's textual form.
func (s Source) IdentityKey() string {
	return s.ID.String()
}
