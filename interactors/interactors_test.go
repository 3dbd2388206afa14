package interactors_test

import (
	"context"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vaultwarden-hd/hdcore/derivation"
	"github.com/vaultwarden-hd/hdcore/entity"
	"github.com/vaultwarden-hd/hdcore/factor"
	"github.com/vaultwarden-hd/hdcore/interactors"
	"github.com/vaultwarden-hd/hdcore/keyspace"
)

func sha256Sum(data []byte) []byte {
	digest := sha256.Sum256(data)
	return digest[:]
}

func accountMfaPath(t *testing.T, localIndex uint32) derivation.DerivationPath {
	t.Helper()
	idx, err := keyspace.NewSecurifiedU30(localIndex)
	require.NoError(t, err)
	p, err := derivation.NewAccountPath(1, derivation.KeyKindTransactionSigning, idx)
	require.NoError(t, err)
	return derivation.NewDerivationPathFromCAP26(p)
}

func legacyOlympiaPath(t *testing.T, localIndex uint32) derivation.DerivationPath {
	t.Helper()
	idx, err := keyspace.NewUnsecurifiedHardened(localIndex)
	require.NoError(t, err)
	p, err := derivation.ParseBIP44LikePath(derivation.BIP44LikePath{Index: idx}.String())
	require.NoError(t, err)
	return derivation.NewDerivationPathFromBIP44Like(p)
}

func TestDeviceInteractorDerivesDistinctKeysPerIndex(t *testing.T) {
	fsID := factor.NewIDFromHashOfPublicKey(factor.KindDevice, []byte("seed-id"))
	device := interactors.NewDeviceInteractor(fsID, []byte("a reproducible 32+ byte test seed!!"))

	req := interactors.PerFactorSourceDerivationRequest{
		FactorSourceID: fsID,
		Paths:          []derivation.DerivationPath{accountMfaPath(t, 0), accountMfaPath(t, 1)},
	}

	out, err := device.Derive(context.Background(), []interactors.PerFactorSourceDerivationRequest{req}, interactors.DerivationPurposeCreatingNewAccount)
	require.NoError(t, err)

	instances := out[fsID]
	require.Len(t, instances, 2)
	assert.NotEqual(t, instances[0].PublicKey.PublicKey, instances[1].PublicKey.PublicKey)
}

func TestDeviceInteractorDerivationIsDeterministic(t *testing.T) {
	fsID := factor.NewIDFromHashOfPublicKey(factor.KindDevice, []byte("seed-id"))
	seed := []byte("a reproducible 32+ byte test seed!!")
	d1 := interactors.NewDeviceInteractor(fsID, seed)
	d2 := interactors.NewDeviceInteractor(fsID, seed)

	req := interactors.PerFactorSourceDerivationRequest{FactorSourceID: fsID, Paths: []derivation.DerivationPath{accountMfaPath(t, 0)}}

	out1, err := d1.Derive(context.Background(), []interactors.PerFactorSourceDerivationRequest{req}, interactors.DerivationPurposePreDerivingKeys)
	require.NoError(t, err)
	out2, err := d2.Derive(context.Background(), []interactors.PerFactorSourceDerivationRequest{req}, interactors.DerivationPurposePreDerivingKeys)
	require.NoError(t, err)

	assert.Equal(t, out1[fsID][0].PublicKey.PublicKey, out2[fsID][0].PublicKey.PublicKey)
}

func TestDeviceInteractorSignAndVerifyEd25519(t *testing.T) {
	fsID := factor.NewIDFromHashOfPublicKey(factor.KindDevice, []byte("seed-id"))
	device := interactors.NewDeviceInteractor(fsID, []byte("a reproducible 32+ byte test seed!!"))
	path := accountMfaPath(t, 0)

	derived, err := device.Derive(context.Background(), []interactors.PerFactorSourceDerivationRequest{{FactorSourceID: fsID, Paths: []derivation.DerivationPath{path}}}, interactors.DerivationPurposeCreatingNewAccount)
	require.NoError(t, err)
	inst := derived[fsID][0]

	owned := entity.OwnedInstance{
		Entity:   entity.NewAccount(1, "account_rdx1", "Test", entity.NewUnsecuredState(entity.UnsecuredEntityControl{TransactionSigning: inst})),
		Instance: inst,
	}

	req := interactors.TransactionSignRequest{
		PayloadID:            "tx1",
		Payload:               []byte("sign me"),
		FactorSourceID:        fsID,
		OwnedFactorInstances: []entity.OwnedInstance{owned},
	}

	outcome, err := device.Sign(context.Background(), []interactors.TransactionSignRequest{req}, interactors.SigningPurposeSignTransactionPrimary)
	require.NoError(t, err)

	result := outcome[fsID]
	require.True(t, result.Signed)
	require.Len(t, result.Signatures, 1)

	digest := sha256Sum(req.Payload)
	assert.True(t, interactors.VerifyEd25519(inst.PublicKey.PublicKey, digest, result.Signatures[0].Bytes))
}

func TestDeviceInteractorSignAndVerifySecp256k1(t *testing.T) {
	fsID := factor.NewIDFromHashOfPublicKey(factor.KindDevice, []byte("seed-id"))
	device := interactors.NewDeviceInteractor(fsID, []byte("a reproducible 32+ byte test seed!!"))
	path := legacyOlympiaPath(t, 0)

	derived, err := device.Derive(context.Background(), []interactors.PerFactorSourceDerivationRequest{{FactorSourceID: fsID, Paths: []derivation.DerivationPath{path}}}, interactors.DerivationPurposePreDerivingKeys)
	require.NoError(t, err)
	inst := derived[fsID][0]

	owned := entity.OwnedInstance{
		Entity:   entity.NewAccount(1, "account_rdx2", "Legacy", entity.NewUnsecuredState(entity.UnsecuredEntityControl{TransactionSigning: inst})),
		Instance: inst,
	}
	req := interactors.TransactionSignRequest{
		PayloadID:            "tx2",
		Payload:               []byte("legacy sign me"),
		FactorSourceID:        fsID,
		OwnedFactorInstances: []entity.OwnedInstance{owned},
	}

	outcome, err := device.Sign(context.Background(), []interactors.TransactionSignRequest{req}, interactors.SigningPurposeSignTransactionPrimary)
	require.NoError(t, err)
	result := outcome[fsID]
	require.True(t, result.Signed)

	digest := sha256Sum(req.Payload)
	assert.True(t, interactors.VerifySecp256k1(inst.PublicKey.PublicKey, digest, result.Signatures[0].Bytes))
}
