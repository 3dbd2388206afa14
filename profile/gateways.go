package profile

import (
	"context"
	"encoding/json"

	goerrors "github.com/go-openapi/errors"
	"github.com/go-openapi/strfmt"
	"github.com/go-openapi/swag"
	"github.com/go-openapi/validate"

	"github.com/vaultwarden-hd/hdcore/cerrors"
	"github.com/vaultwarden-hd/hdcore/derivation"
)

// Gateway is one ledger gateway endpoint a host can point the core
// at, identified by its URL and scoped to a single network.
type Gateway struct {
	Network derivation.NetworkID `json:"network"`
	URL     string               `json:"url"`
}

// IdentityKey satisfies idmap.Identifiable: gateways are keyed by
// their URL.
func (g Gateway) IdentityKey() string {
	return g.URL
}

// SavedGateways holds the gateway currently in use plus every other
// gateway the user has saved. The current gateway must never also
// appear among the others.
type SavedGateways struct {
	Current Gateway
	Other   []Gateway
}

// NewSavedGateways validates the discrepancy invariant: other must
// not contain current.
func NewSavedGateways(current Gateway, other []Gateway) (SavedGateways, error) {
	for _, g := range other {
		if g.URL == current.URL {
			return SavedGateways{}, cerrors.WithFields(cerrors.KindGatewaysDiscrepancyOtherShouldNotContainCurrent, map[string]interface{}{"url": g.URL})
		}
	}
	return SavedGateways{Current: current, Other: other}, nil
}

// All returns every saved gateway, current first, in saved order.
func (g SavedGateways) All() []Gateway {
	out := make([]Gateway, 0, 1+len(g.Other))
	out = append(out, g.Current)
	out = append(out, g.Other...)
	return out
}

// ChangeCurrent switches the current gateway to `to`, moving the old
// current into Other and removing `to` from Other if it was saved
// there. Switching to the gateway already current is a no-op; the
// return value reports whether anything changed.
func (g *SavedGateways) ChangeCurrent(to Gateway) bool {
	if to.URL == g.Current.URL {
		return false
	}
	other := make([]Gateway, 0, len(g.Other)+1)
	for _, saved := range g.Other {
		if saved.URL == to.URL {
			continue
		}
		other = append(other, saved)
	}
	other = append(other, g.Current)
	g.Current = to
	g.Other = other
	return true
}

// savedGatewaysPayload is the wire-format mirror of SavedGateways:
// `saved` lists every gateway including the current one, so a reader
// can always reconstruct Other as saved-minus-current.
type savedGatewaysPayload struct {
	Current string    `json:"current"`
	Saved   []Gateway `json:"saved"`
}

// Validate checks the wire payload before any field is trusted.
func (p *savedGatewaysPayload) Validate(formats strfmt.Registry) error {
	var res []error
	if err := validate.RequiredString("current", "body", p.Current); err != nil {
		res = append(res, err)
	}
	if err := validate.Required("saved", "body", p.Saved); err != nil {
		res = append(res, err)
	}
	for i, g := range p.Saved {
		if err := validate.RequiredString("url", "body", g.URL); err != nil {
			res = append(res, err)
			continue
		}
		if err := validate.FormatOf("saved["+swag.FormatInt64(int64(i))+"].url", "body", "uri", g.URL, formats); err != nil {
			res = append(res, err)
		}
	}
	if len(res) > 0 {
		return goerrors.CompositeValidationError(res...)
	}
	return nil
}

// ContextValidate validates this payload based on context it is used.
func (p *savedGatewaysPayload) ContextValidate(ctx context.Context, formats strfmt.Registry) error {
	return nil
}

// MarshalJSON writes the `{ "current": url, "saved": [...] }` form,
// with the current gateway always included in saved.
func (g SavedGateways) MarshalJSON() ([]byte, error) {
	payload := savedGatewaysPayload{Current: g.Current.URL, Saved: g.All()}
	return swag.WriteJSON(&payload)
}

// UnmarshalJSON parses the wire form, failing with
// InvalidGatewaysJSONCurrentNotFoundAmongstSaved when the current URL
// does not name any saved gateway.
func (g *SavedGateways) UnmarshalJSON(data []byte) error {
	var payload savedGatewaysPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	if err := payload.Validate(strfmt.Default); err != nil {
		return err
	}

	var (
		current Gateway
		found   bool
		other   []Gateway
	)
	for _, saved := range payload.Saved {
		if !found && saved.URL == payload.Current {
			current = saved
			found = true
			continue
		}
		other = append(other, saved)
	}
	if !found {
		return cerrors.WithFields(cerrors.KindInvalidGatewaysJSONCurrentNotFoundAmongstSaved, map[string]interface{}{"current": payload.Current})
	}
	g.Current = current
	g.Other = other
	return nil
}
