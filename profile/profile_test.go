package profile_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vaultwarden-hd/hdcore/derivation"
	"github.com/vaultwarden-hd/hdcore/entity"
	"github.com/vaultwarden-hd/hdcore/eventbus"
	"github.com/vaultwarden-hd/hdcore/factor"
	"github.com/vaultwarden-hd/hdcore/idmap"
	"github.com/vaultwarden-hd/hdcore/keyspace"
	"github.com/vaultwarden-hd/hdcore/profile"
)

const mainnet derivation.NetworkID = 1

func instanceAt(t *testing.T, localIndex uint32) factor.Instance {
	t.Helper()
	idx, err := keyspace.NewUnsecurifiedHardened(localIndex)
	require.NoError(t, err)
	path, err := derivation.NewAccountPath(mainnet, derivation.KeyKindTransactionSigning, idx)
	require.NoError(t, err)
	var body [32]byte
	body[0] = 0x01
	src := factor.IDFromHash{Kind: factor.KindDevice, Body: body}
	return factor.NewInstance(src, []byte{byte(localIndex), 0x02}, derivation.NewDerivationPathFromCAP26(path))
}

func TestProfileAccountsRequiresLoadedNetwork(t *testing.T) {
	p := profile.New("p1", mainnet, nil)
	_, err := p.Accounts(derivation.NetworkID(2))
	require.Error(t, err)
}

func TestProfileUpdateAccountsInsertsAndReads(t *testing.T) {
	p := profile.New("p1", mainnet, nil)
	inst := instanceAt(t, 0)
	acct := entity.NewAccount(mainnet, "account_alice", "Alice", entity.NewUnsecuredState(entity.UnsecuredEntityControl{TransactionSigning: inst}))

	err := p.UpdateAccounts(mainnet, func(m *idmap.Map[string, entity.Entity]) error {
		m.Insert(acct)
		return nil
	})
	require.NoError(t, err)

	accounts, err := p.Accounts(mainnet)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	require.Equal(t, entity.Address("account_alice"), accounts[0].Address)
}

// TestProfileDuplicateInstanceDiagnostic: an
// account and a persona sharing the same transaction-signing factor
// instance trigger a DuplicateInstances event without rolling back
// the state.
func TestProfileDuplicateInstanceDiagnostic(t *testing.T) {
	bus := eventbus.NewInProcessEventBus()
	var captured []eventbus.Event
	bus.Subscribe(func(e eventbus.Event) { captured = append(captured, e) })

	p := profile.New("p1", mainnet, bus)
	shared := instanceAt(t, 0)
	account := entity.NewAccount(mainnet, "account_alpha", "Alpha", entity.NewUnsecuredState(entity.UnsecuredEntityControl{TransactionSigning: shared}))

	err := p.UpdateAccounts(mainnet, func(m *idmap.Map[string, entity.Entity]) error {
		m.Insert(account)
		return nil
	})
	require.NoError(t, err)

	persona := entity.NewPersona(mainnet, "identity_pi", "Pi", entity.NewUnsecuredState(entity.UnsecuredEntityControl{TransactionSigning: shared}))
	err = p.UpdatePersonas(mainnet, func(m *idmap.Map[string, entity.Entity]) error {
		m.Insert(persona)
		return nil
	})
	require.NoError(t, err)

	var sawDuplicate bool
	for _, e := range captured {
		if e.Kind == eventbus.KindDuplicateInstances {
			sawDuplicate = true
			payload := e.Payload.(eventbus.DuplicateInstancesPayload)
			require.Contains(t, []string{"account_alpha", "identity_pi"}, payload.Entity1)
			require.Contains(t, []string{"account_alpha", "identity_pi"}, payload.Entity2)
		}
	}
	require.True(t, sawDuplicate)

	// state is not rolled back: both entities remain in the profile.
	personas, err := p.Personas(mainnet)
	require.NoError(t, err)
	require.Len(t, personas, 1)
	accounts, err := p.Accounts(mainnet)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
}

func TestProfileTouchFactorSourceAdvancesLastUsed(t *testing.T) {
	p := profile.New("p1", mainnet, nil)
	src := factor.NewSource(
		factor.NewIDFromHashOfPublicKey(factor.KindDevice, []byte("touch-device")),
		1700000000,
		factor.CryptoParameters{SupportedCurves: []factor.Curve{factor.CurveCurve25519}},
		factor.Hint{Label: "Touch Device"},
	)
	require.NoError(t, p.AddFactorSource(src))

	require.NoError(t, p.TouchFactorSource(src.ID, 1700000100))

	sources := p.FactorSources()
	require.Len(t, sources, 1)
	require.Equal(t, int64(1700000100), sources[0].LastUsedAt)
}

func TestProfileTouchFactorSourceUnknownIDErrors(t *testing.T) {
	p := profile.New("p1", mainnet, nil)
	unknown := factor.NewIDFromHashOfPublicKey(factor.KindDevice, []byte("never-added"))
	require.Error(t, p.TouchFactorSource(unknown, 1700000100))
}

func TestProfileTransitionRejectsSecurifiedToUnsecured(t *testing.T) {
	p := profile.New("p1", mainnet, nil)
	inst := instanceAt(t, 0)
	securified := entity.NewAccount(mainnet, "account_bob", "Bob", entity.NewSecurifiedState(entity.SecuredEntityControl{
		AccessControllerAddress: "accesscontroller_bob",
		SecurityStructure: entity.SecurityStructureOfFactorInstances{
			ID: "shield1",
			Matrix: entity.NewMatrixOfFactorInstances(
				entity.RoleOfFactors{ThresholdFactors: []factor.Instance{inst}, Threshold: 1},
				entity.RoleOfFactors{}, entity.RoleOfFactors{}, 0,
			),
		},
	}))
	require.NoError(t, p.UpdateAccounts(mainnet, func(m *idmap.Map[string, entity.Entity]) error {
		m.Insert(securified)
		return nil
	}))

	err := p.TransitionEntitySecurityState(mainnet, true, "account_bob", entity.NewUnsecuredState(entity.UnsecuredEntityControl{TransactionSigning: inst}))
	require.Error(t, err)
}

func TestNewAuthorizedDappRejectsCrossNetworkPersona(t *testing.T) {
	persona := entity.NewPersona(derivation.NetworkID(2), "identity_other", "Other", entity.NewUnsecuredState(entity.UnsecuredEntityControl{TransactionSigning: instanceAt(t, 0)}))
	_, err := profile.NewAuthorizedDapp(mainnet, "accesscontroller_dapp", mainnet, "Dapp", []entity.Entity{persona})
	require.Error(t, err)
}

func TestNewAuthorizedDappAcceptsSameNetworkPersona(t *testing.T) {
	persona := entity.NewPersona(mainnet, "identity_same", "Same", entity.NewUnsecuredState(entity.UnsecuredEntityControl{TransactionSigning: instanceAt(t, 0)}))
	dapp, err := profile.NewAuthorizedDapp(mainnet, "accesscontroller_dapp", mainnet, "Dapp", []entity.Entity{persona})
	require.NoError(t, err)
	require.Equal(t, []entity.Address{"identity_same"}, dapp.AddressesOfAuthorizedPersonas)
}
