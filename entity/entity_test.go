package entity_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vaultwarden-hd/hdcore/derivation"
	"github.com/vaultwarden-hd/hdcore/entity"
	"github.com/vaultwarden-hd/hdcore/factor"
	"github.com/vaultwarden-hd/hdcore/keyspace"
)

func sampleInstance(t *testing.T, kind factor.Kind, label string, localIndex uint32) factor.Instance {
	t.Helper()
	idx, err := keyspace.NewUnsecurifiedHardened(localIndex)
	require.NoError(t, err)
	path, err := derivation.NewAccountPath(1, derivation.KeyKindTransactionSigning, idx)
	require.NoError(t, err)
	fsID := factor.NewIDFromHashOfPublicKey(kind, []byte(label))
	return factor.NewInstance(fsID, []byte(label), derivation.NewDerivationPathFromCAP26(path))
}

func TestRoleOfFactorsRejectsOverlap(t *testing.T) {
	shared := sampleInstance(t, factor.KindDevice, "shared", 0)
	_, err := entity.NewRoleOfFactors([]factor.Instance{shared}, 1, []factor.Instance{shared})
	assert.Error(t, err)
}

func TestRoleOfFactorsIsAuthorizedBy(t *testing.T) {
	role, err := entity.NewRoleOfFactors(nil, 2, nil)
	require.NoError(t, err)
	assert.False(t, role.IsAuthorizedBy(1, false))
	assert.True(t, role.IsAuthorizedBy(2, false))
	assert.True(t, role.IsAuthorizedBy(0, true))
}

func TestSecurityStateTransitionUnsecuredToSecurified(t *testing.T) {
	unsecured := entity.NewUnsecuredState(entity.UnsecuredEntityControl{TransactionSigning: sampleInstance(t, factor.KindDevice, "u", 0)})
	securified := entity.NewSecurifiedState(entity.SecuredEntityControl{AccessControllerAddress: "ac1"})
	assert.NoError(t, entity.Transition(unsecured, securified))
}

func TestSecurityStateTransitionRejectsReverse(t *testing.T) {
	unsecured := entity.NewUnsecuredState(entity.UnsecuredEntityControl{TransactionSigning: sampleInstance(t, factor.KindDevice, "u", 0)})
	securified := entity.NewSecurifiedState(entity.SecuredEntityControl{AccessControllerAddress: "ac1"})
	assert.Error(t, entity.Transition(securified, unsecured))
}

func TestSecurityStateTransitionRejectsAccessControllerMismatch(t *testing.T) {
	a := entity.NewSecurifiedState(entity.SecuredEntityControl{AccessControllerAddress: "ac1"})
	b := entity.NewSecurifiedState(entity.SecuredEntityControl{AccessControllerAddress: "ac2"})
	assert.Error(t, entity.Transition(a, b))
}

func TestSecurityStateTransitionAllowsSameAccessController(t *testing.T) {
	a := entity.NewSecurifiedState(entity.SecuredEntityControl{AccessControllerAddress: "ac1"})
	b := entity.NewSecurifiedState(entity.SecuredEntityControl{AccessControllerAddress: "ac1"})
	assert.NoError(t, entity.Transition(a, b))
}

func TestSecurityStateJSONRoundtripUnsecured(t *testing.T) {
	state := entity.NewUnsecuredState(entity.UnsecuredEntityControl{TransactionSigning: sampleInstance(t, factor.KindDevice, "u", 0)})
	data, err := json.Marshal(state)
	require.NoError(t, err)

	var roundtripped entity.SecurityState
	require.NoError(t, json.Unmarshal(data, &roundtripped))
	assert.Equal(t, entity.StateKindUnsecured, roundtripped.Kind)
}

func TestTransactionSigningInstancesUnsecured(t *testing.T) {
	inst := sampleInstance(t, factor.KindDevice, "u", 0)
	state := entity.NewUnsecuredState(entity.UnsecuredEntityControl{TransactionSigning: inst})
	acc := entity.NewAccount(1, "account_rdx1", "Alice", state)

	owned := acc.TransactionSigningInstances()
	require.Len(t, owned, 1)
	assert.Equal(t, inst.IdentityKey(), owned[0].Instance.IdentityKey())
}

func TestTransactionSigningInstancesSecurified(t *testing.T) {
	thresholdA := sampleInstance(t, factor.KindDevice, "a", 0)
	thresholdB := sampleInstance(t, factor.KindLedgerHQHardwareWallet, "b", 1)
	override := sampleInstance(t, factor.KindArculusCard, "c", 2)

	primary, err := entity.NewRoleOfFactors([]factor.Instance{thresholdA, thresholdB}, 2, []factor.Instance{override})
	require.NoError(t, err)
	matrix := entity.NewMatrixOfFactorInstances(primary, entity.RoleOfFactors{}, entity.RoleOfFactors{}, 0)
	structure := entity.SecurityStructureOfFactorInstances{ID: "shield1", Matrix: matrix}
	state := entity.NewSecurifiedState(entity.SecuredEntityControl{AccessControllerAddress: "ac1", SecurityStructure: structure})

	acc := entity.NewAccount(1, "account_rdx1", "Bob", state)
	owned := acc.TransactionSigningInstances()
	assert.Len(t, owned, 3)
}
