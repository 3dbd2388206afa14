package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vaultwarden-hd/hdcore/cerrors"
	"github.com/vaultwarden-hd/hdcore/entity"
	"github.com/vaultwarden-hd/hdcore/factor"
)

func sampleShield(t *testing.T) (entity.SecurityStructureOfFactorSources, []factor.IDFromHash) {
	t.Helper()
	fsA := factor.NewIDFromHashOfPublicKey(factor.KindDevice, []byte("shield-a"))
	fsB := factor.NewIDFromHashOfPublicKey(factor.KindLedgerHQHardwareWallet, []byte("shield-b"))
	fsC := factor.NewIDFromHashOfPublicKey(factor.KindArculusCard, []byte("shield-c"))

	primary, err := entity.NewRoleOfFactorSourceIDs([]factor.IDFromHash{fsA, fsB, fsC}, 2, nil)
	require.NoError(t, err)
	recovery, err := entity.NewRoleOfFactorSourceIDs(nil, 0, []factor.IDFromHash{fsB, fsC})
	require.NoError(t, err)
	confirmation, err := entity.NewRoleOfFactorSourceIDs(nil, 0, []factor.IDFromHash{fsA})
	require.NoError(t, err)

	return entity.SecurityStructureOfFactorSources{
		ID:          "shield-2of3",
		DisplayName: "2 of 3",
		Matrix: entity.MatrixOfFactorSourceIDs{
			Primary:      primary,
			Recovery:     recovery,
			Confirmation: confirmation,
		},
	}, []factor.IDFromHash{fsA, fsB, fsC}
}

func TestRoleOfFactorSourceIDsRejectsOverlap(t *testing.T) {
	shared := factor.NewIDFromHashOfPublicKey(factor.KindDevice, []byte("shared"))
	_, err := entity.NewRoleOfFactorSourceIDs([]factor.IDFromHash{shared}, 1, []factor.IDFromHash{shared})
	require.Error(t, err)
	assert.True(t, cerrors.Is(err, cerrors.KindFactorAppearsInBothThresholdAndOverride))
}

func TestShieldAllFactorSourceIDsDeduplicatesInFirstAppearanceOrder(t *testing.T) {
	shield, ids := sampleShield(t)
	assert.Equal(t, ids, shield.AllFactorSourceIDs())
}

func TestShieldMaterializeBindsOneInstancePerFactorSource(t *testing.T) {
	shield, ids := sampleShield(t)

	instances := make(map[factor.IDFromHash]factor.Instance, len(ids))
	for i, id := range ids {
		inst := sampleInstance(t, id.Kind, "materialize", uint32(i))
		inst.FactorSourceID = id
		instances[id] = inst
	}

	structure, err := shield.Materialize(instances)
	require.NoError(t, err)
	assert.Equal(t, shield.ID, structure.ID)
	require.Len(t, structure.Matrix.Primary.ThresholdFactors, 3)
	assert.Equal(t, uint8(2), structure.Matrix.Primary.Threshold)
	require.Len(t, structure.Matrix.Recovery.OverrideFactors, 2)

	// the same instance backs a factor source wherever it appears
	assert.Equal(t,
		structure.Matrix.Primary.ThresholdFactors[1].IdentityKey(),
		structure.Matrix.Recovery.OverrideFactors[0].IdentityKey(),
	)
}

func TestShieldMaterializeFailsOnMissingFactorSource(t *testing.T) {
	shield, ids := sampleShield(t)

	instances := make(map[factor.IDFromHash]factor.Instance)
	inst := sampleInstance(t, ids[0].Kind, "partial", 0)
	inst.FactorSourceID = ids[0]
	instances[ids[0]] = inst

	_, err := shield.Materialize(instances)
	require.Error(t, err)
	assert.True(t, cerrors.Is(err, cerrors.KindElementDoesNotExist))
}
