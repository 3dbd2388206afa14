package derivation

import (
	"context"
	"encoding/json"

	goerrors "github.com/go-openapi/errors"
	"github.com/go-openapi/strfmt"
	"github.com/go-openapi/swag"
	"github.com/go-openapi/validate"
	"github.com/vaultwarden-hd/hdcore/cerrors"
)

// Scheme discriminates which path grammar a DerivationPath's string
// was written in.
type Scheme string

const (
	SchemeCAP26         Scheme = "cap26"
	SchemeBIP44Olympia   Scheme = "bip44Olympia"
)

// DerivationPath is the boundary representation of the
// `{ "scheme": ..., "path": ... }` envelope, holding whichever of the
// two concrete path types the scheme names.
type DerivationPath struct {
	Scheme    Scheme
	CAP26     *CAP26Path
	BIP44Like *BIP44LikePath
}

// NewDerivationPathFromCAP26 wraps a CAP26Path.
func NewDerivationPathFromCAP26(p CAP26Path) DerivationPath {
	return DerivationPath{Scheme: SchemeCAP26, CAP26: &p}
}

// NewDerivationPathFromBIP44Like wraps a BIP44LikePath.
func NewDerivationPathFromBIP44Like(p BIP44LikePath) DerivationPath {
	return DerivationPath{Scheme: SchemeBIP44Olympia, BIP44Like: &p}
}

// PathString renders whichever concrete path is set.
func (d DerivationPath) PathString() string {
	if d.CAP26 != nil {
		return d.CAP26.String()
	}
	if d.BIP44Like != nil {
		return d.BIP44Like.String()
	}
	return ""
}

// GlobalComponents returns the BIP32 global-index component sequence
// for whichever concrete path is set, the form the interactors
// package drives HD child-key derivation from.
func (d DerivationPath) GlobalComponents() []uint32 {
	if d.CAP26 != nil {
		return d.CAP26.GlobalComponents()
	}
	if d.BIP44Like != nil {
		return d.BIP44Like.GlobalComponents()
	}
	return nil
}

// IsLegacyOlympia reports whether this path is the BIP44-like Olympia
// scheme, which always derives secp256k1 keys. Every CAP26 path
// derives curve25519 (EdDSA) keys.
func (d DerivationPath) IsLegacyOlympia() bool {
	return d.BIP44Like != nil
}

// derivationPathPayload is the wire-format mirror of DerivationPath,
// validated with github.com/go-openapi/{errors,strfmt,swag,validate}
// like the rest of the boundary payload types.
type derivationPathPayload struct {
	Scheme string `json:"scheme"`
	Path   string `json:"path"`
}

// Validate checks that both fields of the wire payload are present.
func (p *derivationPathPayload) Validate(formats strfmt.Registry) error {
	var res []error
	if err := validate.RequiredString("scheme", "body", p.Scheme); err != nil {
		res = append(res, err)
	}
	if err := validate.RequiredString("path", "body", p.Path); err != nil {
		res = append(res, err)
	}
	if len(res) > 0 {
		return goerrors.CompositeValidationError(res...)
	}
	return nil
}

// ContextValidate validates this payload based on context it is used.
func (p *derivationPathPayload) ContextValidate(ctx context.Context, formats strfmt.Registry) error {
	return nil
}

// MarshalJSON implements the JSON envelope, always writing back the
// correct scheme for the underlying path: a BIP44-like path is never
// re-tagged "cap26" on write.
func (d DerivationPath) MarshalJSON() ([]byte, error) {
	scheme := d.Scheme
	if d.BIP44Like != nil {
		scheme = SchemeBIP44Olympia
	} else if d.CAP26 != nil {
		scheme = SchemeCAP26
	}
	payload := derivationPathPayload{Scheme: string(scheme), Path: d.PathString()}
	return swag.WriteJSON(&payload)
}

// UnmarshalJSON accepts the historical Android-bug encoding where a
// BIP44-like path was tagged `scheme: "cap26"`: it tries the declared
// scheme first, then falls back to the other, succeeding on whichever
// parses.
func (d *DerivationPath) UnmarshalJSON(data []byte) error {
	var payload derivationPathPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	if err := payload.Validate(strfmt.Default); err != nil {
		return err
	}

	tryCAP26 := func() (DerivationPath, error) {
		p, err := ParseCAP26Path(payload.Path)
		if err != nil {
			return DerivationPath{}, err
		}
		return NewDerivationPathFromCAP26(p), nil
	}
	tryBIP44 := func() (DerivationPath, error) {
		p, err := ParseBIP44LikePath(payload.Path)
		if err != nil {
			return DerivationPath{}, err
		}
		return NewDerivationPathFromBIP44Like(p), nil
	}

	var first, second func() (DerivationPath, error)
	if Scheme(payload.Scheme) == SchemeBIP44Olympia {
		first, second = tryBIP44, tryCAP26
	} else {
		first, second = tryCAP26, tryBIP44
	}

	if parsed, err := first(); err == nil {
		*d = parsed
		return nil
	}
	parsed, err := second()
	if err != nil {
		return cerrors.Withf(cerrors.KindInvalidBIP32Path, "%s", payload.Path)
	}
	*d = parsed
	return nil
}
