package profile

import (
	"encoding/json"
	"sort"

	"github.com/pkg/errors"

	"github.com/vaultwarden-hd/hdcore/derivation"
	"github.com/vaultwarden-hd/hdcore/entity"
	"github.com/vaultwarden-hd/hdcore/eventbus"
	"github.com/vaultwarden-hd/hdcore/factor"
	"github.com/vaultwarden-hd/hdcore/storage"
)

// Snapshot is the boundary JSON form of a Profile: stable
// field names, networks sorted by id, everything else in its profile
// insertion order.
type Snapshot struct {
	ID               string                                    `json:"id"`
	CurrentNetworkID derivation.NetworkID                      `json:"currentNetworkID"`
	FactorSources    []factorSourceSnapshot                    `json:"factorSources"`
	AppPreferences   AppPreferences                            `json:"appPreferences"`
	Shields          []entity.SecurityStructureOfFactorSources `json:"securityStructuresOfFactorSourceIDs"`
	Networks         []networkSnapshot                         `json:"networks"`
}

type factorSourceSnapshot struct {
	ID                             factor.IDFromHash   `json:"id"`
	AddedOn                        int64               `json:"addedOn"`
	LastUsedOn                     int64               `json:"lastUsedOn,omitempty"`
	Main                           bool                `json:"main,omitempty"`
	SupportedCurves                []string            `json:"supportedCurves"`
	SupportedDerivationPathSchemes []derivation.Scheme `json:"supportedDerivationPathSchemes"`
	Label                          string              `json:"label,omitempty"`
	WordCount                      int                 `json:"wordCount,omitempty"`
	Model                          string              `json:"model,omitempty"`
}

type entitySnapshot struct {
	NetworkID     derivation.NetworkID `json:"networkID"`
	Address       string               `json:"address"`
	DisplayName   string               `json:"displayName"`
	SecurityState entity.SecurityState `json:"securityState"`
	Hidden        bool                 `json:"hidden,omitempty"`
}

type dappSnapshot struct {
	NetworkID             derivation.NetworkID `json:"networkID"`
	DappDefinitionAddress string               `json:"dAppDefinitionAddress"`
	DisplayName           string               `json:"displayName"`
	ReferencesToPersonas  []string             `json:"referencesToAuthorizedPersonas"`
}

type networkSnapshot struct {
	ID              derivation.NetworkID `json:"networkID"`
	Accounts        []entitySnapshot     `json:"accounts"`
	Personas        []entitySnapshot     `json:"personas"`
	AuthorizedDapps []dappSnapshot       `json:"authorizedDapps"`
}

var curveNames = map[factor.Curve]string{
	factor.CurveCurve25519: "curve25519",
	factor.CurveSecp256k1:  "secp256k1",
}

func curveFromName(name string) (factor.Curve, bool) {
	for c, n := range curveNames {
		if n == name {
			return c, true
		}
	}
	return 0, false
}

// Snapshot renders the profile's current state for persistence.
func (p *Profile) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snap := Snapshot{
		ID:               p.ID,
		CurrentNetworkID: p.currentNetwork,
		AppPreferences:   p.preferences,
		Shields:          p.shields.Items(),
	}

	for _, src := range p.factorSources.Items() {
		curves := make([]string, 0, len(src.CryptoParameters.SupportedCurves))
		for _, c := range src.CryptoParameters.SupportedCurves {
			curves = append(curves, curveNames[c])
		}
		snap.FactorSources = append(snap.FactorSources, factorSourceSnapshot{
			ID:                             src.ID,
			AddedOn:                        src.CreatedAt,
			LastUsedOn:                     src.LastUsedAt,
			Main:                           src.Flags.Main,
			SupportedCurves:                curves,
			SupportedDerivationPathSchemes: src.CryptoParameters.SupportedDerivationSchemes,
			Label:                          src.Hint.Label,
			WordCount:                      src.Hint.WordCount,
			Model:                          src.Hint.ModelName,
		})
	}

	ids := make([]derivation.NetworkID, 0, len(p.networks))
	for id := range p.networks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		n := p.networks[id]
		ns := networkSnapshot{ID: id}
		for _, a := range n.Accounts.Items() {
			ns.Accounts = append(ns.Accounts, entityToSnapshot(a))
		}
		for _, per := range n.Personas.Items() {
			ns.Personas = append(ns.Personas, entityToSnapshot(per))
		}
		for _, d := range n.AuthorizedDapps.Items() {
			refs := make([]string, 0, len(d.AddressesOfAuthorizedPersonas))
			for _, addr := range d.AddressesOfAuthorizedPersonas {
				refs = append(refs, string(addr))
			}
			ns.AuthorizedDapps = append(ns.AuthorizedDapps, dappSnapshot{
				NetworkID:             d.NetworkID,
				DappDefinitionAddress: string(d.DappDefinitionAddress),
				DisplayName:           d.DisplayName,
				ReferencesToPersonas:  refs,
			})
		}
		snap.Networks = append(snap.Networks, ns)
	}
	return snap
}

func entityToSnapshot(e entity.Entity) entitySnapshot {
	return entitySnapshot{
		NetworkID:     e.NetworkID,
		Address:       string(e.Address),
		DisplayName:   e.DisplayName,
		SecurityState: e.SecurityState,
		Hidden:        e.Hidden,
	}
}

// FromSnapshot rebuilds a Profile from its persisted form, publishing
// future mutations to bus.
func FromSnapshot(snap Snapshot, bus eventbus.EventBus) (*Profile, error) {
	p := New(snap.ID, snap.CurrentNetworkID, bus)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.preferences = snap.AppPreferences

	for _, fs := range snap.FactorSources {
		curves := make([]factor.Curve, 0, len(fs.SupportedCurves))
		for _, name := range fs.SupportedCurves {
			c, ok := curveFromName(name)
			if !ok {
				return nil, errors.Errorf("unknown curve %q in profile snapshot", name)
			}
			curves = append(curves, c)
		}
		src := factor.Source{
			ID:         fs.ID,
			Kind:       fs.ID.Kind,
			CreatedAt:  fs.AddedOn,
			LastUsedAt: fs.LastUsedOn,
			Flags:      factor.Flags{Main: fs.Main},
			CryptoParameters: factor.CryptoParameters{
				SupportedCurves:            curves,
				SupportedDerivationSchemes: fs.SupportedDerivationPathSchemes,
			},
			Hint: factor.Hint{Label: fs.Label, WordCount: fs.WordCount, ModelName: fs.Model},
		}
		if err := p.factorSources.TryInsertUnique(src); err != nil {
			return nil, err
		}
	}

	for _, shield := range snap.Shields {
		if err := p.shields.TryInsertUnique(shield); err != nil {
			return nil, err
		}
	}

	for _, ns := range snap.Networks {
		n := p.ensureNetworkLocked(ns.ID)
		for _, a := range ns.Accounts {
			acct := entity.NewAccount(a.NetworkID, entity.Address(a.Address), a.DisplayName, a.SecurityState)
			acct.Hidden = a.Hidden
			if err := n.Accounts.TryInsertUnique(acct); err != nil {
				return nil, err
			}
		}
		for _, per := range ns.Personas {
			persona := entity.NewPersona(per.NetworkID, entity.Address(per.Address), per.DisplayName, per.SecurityState)
			persona.Hidden = per.Hidden
			if err := n.Personas.TryInsertUnique(persona); err != nil {
				return nil, err
			}
		}
		for _, d := range ns.AuthorizedDapps {
			addrs := make([]entity.Address, 0, len(d.ReferencesToPersonas))
			for _, ref := range d.ReferencesToPersonas {
				addrs = append(addrs, entity.Address(ref))
			}
			dapp := AuthorizedDapp{
				NetworkID:                     d.NetworkID,
				DappDefinitionAddress:         entity.Address(d.DappDefinitionAddress),
				DisplayName:                   d.DisplayName,
				AddressesOfAuthorizedPersonas: addrs,
			}
			if err := n.AuthorizedDapps.TryInsertUnique(dapp); err != nil {
				return nil, err
			}
		}
	}

	p.runDuplicateDiagnosticLocked()
	return p, nil
}

// SaveToSecureStorage serializes the profile and writes it under its
// ProfileSnapshot key, emitting a ProfileSaved event on success.
func (p *Profile) SaveToSecureStorage(driver storage.SecureStorageDriver) error {
	data, err := json.Marshal(p.Snapshot())
	if err != nil {
		return errors.Wrap(err, "marshal profile snapshot")
	}
	key := storage.SecureStorageKey{Kind: storage.SecureStorageKeyProfileSnapshot, ScopedID: p.ID}
	if err := driver.SaveData(key, data); err != nil {
		return errors.Wrapf(err, "save profile snapshot %s", p.ID)
	}
	if p.bus != nil {
		p.bus.Publish(eventbus.Event{Kind: eventbus.KindProfileSaved, Payload: p.ID})
	}
	return nil
}

// LoadFromSecureStorage reads and rebuilds the profile saved under
// id, emitting a ProfileImported event on success.
func LoadFromSecureStorage(driver storage.SecureStorageDriver, id string, bus eventbus.EventBus) (*Profile, error) {
	key := storage.SecureStorageKey{Kind: storage.SecureStorageKeyProfileSnapshot, ScopedID: id}
	data, err := driver.LoadData(key)
	if err != nil {
		return nil, errors.Wrapf(err, "load profile snapshot %s", id)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.Wrapf(err, "unmarshal profile snapshot %s", id)
	}
	p, err := FromSnapshot(snap, bus)
	if err != nil {
		return nil, err
	}
	if bus != nil {
		bus.Publish(eventbus.Event{Kind: eventbus.KindProfileImported, Payload: id})
	}
	return p, nil
}
