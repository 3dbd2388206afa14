// Package profile implements the authoritative in-memory Profile:
// a single-writer, many-readers store of factor sources,
// per-network accounts/personas/dapps, typed accessors, and
// closure-based updaters that emit eventbus events on every mutation.
package profile

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/vaultwarden-hd/hdcore/cerrors"
	"github.com/vaultwarden-hd/hdcore/derivation"
	"github.com/vaultwarden-hd/hdcore/entity"
	"github.com/vaultwarden-hd/hdcore/eventbus"
	"github.com/vaultwarden-hd/hdcore/factor"
	"github.com/vaultwarden-hd/hdcore/idmap"
)

// Profile is the authoritative wallet state: factor sources and a set
// of per-network accounts/personas/dapps, guarded by a single
// reader-writer lock.
type Profile struct {
	mu             sync.RWMutex
	ID             string
	currentNetwork derivation.NetworkID
	networks       map[derivation.NetworkID]*Network
	factorSources  idmap.Map[string, factor.Source]
	shields        idmap.Map[string, entity.SecurityStructureOfFactorSources]
	preferences    AppPreferences
	bus            eventbus.EventBus
}

// New constructs an empty Profile on currentNetwork, publishing events
// to bus.
func New(id string, currentNetwork derivation.NetworkID, bus eventbus.EventBus) *Profile {
	return &Profile{
		ID:             id,
		currentNetwork: currentNetwork,
		networks:       make(map[derivation.NetworkID]*Network),
		bus:            bus,
	}
}

// CurrentNetworkID returns the network new entities are created on by
// default.
func (p *Profile) CurrentNetworkID() derivation.NetworkID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.currentNetwork
}

// FactorSources returns every factor source in the profile, in
// insertion order.
func (p *Profile) FactorSources() []factor.Source {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.factorSources.Items()
}

// Preferences returns the profile's app preferences.
func (p *Profile) Preferences() AppPreferences {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.preferences
}

// UpdatePreferences runs fn against the preferences under the write
// lock, emitting a ProfileModified event on success.
func (p *Profile) UpdatePreferences(fn func(*AppPreferences) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := fn(&p.preferences); err != nil {
		return err
	}
	p.emitModifiedLocked("preferencesUpdated")
	return nil
}

// ChangeCurrentGateway switches the preferences' current gateway,
// moving the previous one into the saved set. Switching to the
// already-current gateway emits no event.
func (p *Profile) ChangeCurrentGateway(to Gateway) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.preferences.Gateways.ChangeCurrent(to) {
		return
	}
	p.emitModifiedLocked("gatewayChangedTo:" + to.URL)
}

// Shields returns every shield in the profile, in insertion order.
func (p *Profile) Shields() []entity.SecurityStructureOfFactorSources {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.shields.Items()
}

// ShieldByID looks a shield up by id, failing with
// ElementDoesNotExist when absent.
func (p *Profile) ShieldByID(id string) (entity.SecurityStructureOfFactorSources, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.shields.Get(id)
	if !ok {
		return entity.SecurityStructureOfFactorSources{}, cerrors.WithFields(cerrors.KindElementDoesNotExist, map[string]interface{}{"id": id})
	}
	return s, nil
}

// AddShield inserts shield, failing with IdentifiableItemAlreadyExist
// if its id is already present.
func (p *Profile) AddShield(shield entity.SecurityStructureOfFactorSources) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.shields.TryInsertUnique(shield); err != nil {
		return err
	}
	p.emitModifiedLocked("shieldAdded:" + shield.ID)
	return nil
}

// Accounts returns every account on network, failing with
// ProfileStateNotLoaded if no state for that network has been loaded
// yet.
func (p *Profile) Accounts(network derivation.NetworkID) ([]entity.Entity, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n, ok := p.networks[network]
	if !ok {
		return nil, cerrors.WithFields(cerrors.KindProfileStateNotLoaded, map[string]interface{}{"network": network})
	}
	return n.Accounts.Items(), nil
}

// Personas returns every persona on network, failing with
// ProfileStateNotLoaded if no state for that network has been loaded
// yet.
func (p *Profile) Personas(network derivation.NetworkID) ([]entity.Entity, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n, ok := p.networks[network]
	if !ok {
		return nil, cerrors.WithFields(cerrors.KindProfileStateNotLoaded, map[string]interface{}{"network": network})
	}
	return n.Personas.Items(), nil
}

// AuthorizedDapps returns every authorized dapp on network.
func (p *Profile) AuthorizedDapps(network derivation.NetworkID) ([]AuthorizedDapp, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n, ok := p.networks[network]
	if !ok {
		return nil, cerrors.WithFields(cerrors.KindProfileStateNotLoaded, map[string]interface{}{"network": network})
	}
	return n.AuthorizedDapps.Items(), nil
}

// AddFactorSource inserts src, failing with IdentifiableItemAlreadyExist
// if its id is already present.
func (p *Profile) AddFactorSource(src factor.Source) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.factorSources.TryInsertUnique(src); err != nil {
		return err
	}
	p.emitModifiedLocked("factorSourceAdded:" + src.ID.String())
	return nil
}

// TouchFactorSource stamps the factor source's last-used time after a
// derivation or signing round exercised it, failing with
// ElementDoesNotExist when the id is not in the profile.
func (p *Profile) TouchFactorSource(id factor.IDFromHash, unixSeconds int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.factorSources.TryUpdateWith(id.String(), func(s factor.Source) factor.Source {
		return s.Touch(unixSeconds)
	}); err != nil {
		return err
	}
	p.emitModifiedLocked("factorSourceUsed:" + id.String())
	return nil
}

// UpdateAccounts runs fn against network's account map under the
// write lock, then runs the duplicate-instance diagnostic and emits a
// ProfileModified event.
func (p *Profile) UpdateAccounts(network derivation.NetworkID, fn func(*idmap.Map[string, entity.Entity]) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := p.ensureNetworkLocked(network)
	if err := fn(&n.Accounts); err != nil {
		return err
	}
	p.runDuplicateDiagnosticLocked()
	p.emitModifiedLocked("accountsUpdated")
	return nil
}

// UpdatePersonas is UpdateAccounts' persona counterpart.
func (p *Profile) UpdatePersonas(network derivation.NetworkID, fn func(*idmap.Map[string, entity.Entity]) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := p.ensureNetworkLocked(network)
	if err := fn(&n.Personas); err != nil {
		return err
	}
	p.runDuplicateDiagnosticLocked()
	p.emitModifiedLocked("personasUpdated")
	return nil
}

// AddAuthorizedDapp inserts dapp into its own network's dapp set.
func (p *Profile) AddAuthorizedDapp(dapp AuthorizedDapp) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := p.ensureNetworkLocked(dapp.NetworkID)
	if err := n.AuthorizedDapps.TryInsertUnique(dapp); err != nil {
		return err
	}
	p.emitModifiedLocked("authorizedDappAdded:" + string(dapp.DappDefinitionAddress))
	return nil
}

// TransitionEntitySecurityState moves the entity at address (on
// network, an account if isAccount else a persona) from its current
// security state to next, enforcing entity.Transition's one-way
// invariant.
func (p *Profile) TransitionEntitySecurityState(network derivation.NetworkID, isAccount bool, address entity.Address, next entity.SecurityState) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := p.ensureNetworkLocked(network)
	bucket := &n.Personas
	if isAccount {
		bucket = &n.Accounts
	}

	current, ok := bucket.Get(string(address))
	if !ok {
		return cerrors.WithFields(cerrors.KindElementDoesNotExist, map[string]interface{}{"address": address})
	}
	if err := entity.Transition(current.SecurityState, next); err != nil {
		return err
	}
	current.SecurityState = next
	bucket.Insert(current)

	p.runDuplicateDiagnosticLocked()
	p.emitModifiedLocked("securityStateTransitioned:" + string(address))
	return nil
}

func (p *Profile) ensureNetworkLocked(network derivation.NetworkID) *Network {
	n, ok := p.networks[network]
	if !ok {
		n = newNetwork(network)
		p.networks[network] = n
	}
	return n
}

func (p *Profile) emitModifiedLocked(change string) {
	if p.bus == nil {
		return
	}
	p.bus.Publish(eventbus.Event{Kind: eventbus.KindProfileModified, Payload: change})
}

// runDuplicateDiagnosticLocked scans every entity across every
// network for two entities sharing the same factor instance, a
// detection-only diagnostic for a known historical bug. State
// is never rolled back; every duplicate found is published as its own
// DuplicateInstances event.
func (p *Profile) runDuplicateDiagnosticLocked() {
	type owner struct {
		address entity.Address
	}
	seen := make(map[string]owner)

	scan := func(e entity.Entity) {
		for _, owned := range e.TransactionSigningInstances() {
			key := owned.Instance.IdentityKey()
			if prior, ok := seen[key]; ok && prior.address != e.Address {
				p.publishDuplicateLocked(prior.address, e.Address, key)
				continue
			}
			seen[key] = owner{address: e.Address}
		}
		if auth, ok := e.AuthenticationSigningInstance(); ok {
			key := auth.IdentityKey()
			if prior, ok := seen[key]; ok && prior.address != e.Address {
				p.publishDuplicateLocked(prior.address, e.Address, key)
				return
			}
			seen[key] = owner{address: e.Address}
		}
	}

	for _, n := range p.networks {
		for _, a := range n.Accounts.Items() {
			scan(a)
		}
		for _, a := range n.Personas.Items() {
			scan(a)
		}
	}
}

func (p *Profile) publishDuplicateLocked(entity1, entity2 entity.Address, factorInstance string) {
	log.Warn().Str("entity1", string(entity1)).Str("entity2", string(entity2)).Str("factorInstance", factorInstance).Msg("profile: duplicate factor instance across entities")
	if p.bus == nil {
		return
	}
	p.bus.Publish(eventbus.Event{Kind: eventbus.KindDuplicateInstances, Payload: eventbus.DuplicateInstancesPayload{
		Entity1:        string(entity1),
		Entity2:        string(entity2),
		FactorInstance: factorInstance,
	}})
}
