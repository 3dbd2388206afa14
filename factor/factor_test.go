package factor_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vaultwarden-hd/hdcore/derivation"
	"github.com/vaultwarden-hd/hdcore/factor"
	"github.com/vaultwarden-hd/hdcore/keyspace"
)

func TestKindOrderIsTotalAndStable(t *testing.T) {
	seen := map[factor.Kind]bool{}
	for _, k := range factor.KindOrder {
		assert.False(t, seen[k], "duplicate kind %v in KindOrder", k)
		seen[k] = true
	}
	assert.Len(t, factor.KindOrder, 7)
	assert.Equal(t, -1, factor.CompareKind(factor.KindLedgerHQHardwareWallet, factor.KindPassword))
	assert.Equal(t, 0, factor.CompareKind(factor.KindDevice, factor.KindDevice))
}

func TestIDFromHashTextualRoundtrip(t *testing.T) {
	id := factor.NewIDFromHashOfPublicKey(factor.KindDevice, []byte("some-public-key-bytes"))
	rendered := id.String()

	reparsed, err := factor.ParseIDFromHash(rendered)
	require.NoError(t, err)
	assert.Equal(t, id, reparsed)
}

func TestIDFromHashRejectsMalformed(t *testing.T) {
	_, err := factor.ParseIDFromHash("device:not-enough-colons")
	assert.Error(t, err)

	_, err = factor.ParseIDFromHash("device:ab:cd")
	assert.Error(t, err)

	_, err = factor.ParseIDFromHash("notAKind:" + "00")
	assert.Error(t, err)
}

func TestIDFromHashJSONRoundtrip(t *testing.T) {
	id := factor.NewIDFromHashOfPublicKey(factor.KindLedgerHQHardwareWallet, []byte("ledger-pubkey"))
	data, err := json.Marshal(id)
	require.NoError(t, err)

	var roundtripped factor.IDFromHash
	require.NoError(t, json.Unmarshal(data, &roundtripped))
	assert.Equal(t, id, roundtripped)
}

func TestInstanceIdentityKeyIsStableAcrossEqualInputs(t *testing.T) {
	idx, err := keyspace.NewUnsecurifiedHardened(0)
	require.NoError(t, err)
	path, err := derivation.NewAccountPath(1, derivation.KeyKindTransactionSigning, idx)
	require.NoError(t, err)
	wrapped := derivation.NewDerivationPathFromCAP26(path)

	fsID := factor.NewIDFromHashOfPublicKey(factor.KindDevice, []byte("pk"))
	a := factor.NewInstance(fsID, []byte{1, 2, 3}, wrapped)
	b := factor.NewInstance(fsID, []byte{1, 2, 3}, wrapped)

	assert.Equal(t, a.IdentityKey(), b.IdentityKey())
	assert.True(t, a.Equal(b))
}

func TestInstanceIdentityKeyDiffersByPath(t *testing.T) {
	idx0, err := keyspace.NewUnsecurifiedHardened(0)
	require.NoError(t, err)
	idx1, err := keyspace.NewUnsecurifiedHardened(1)
	require.NoError(t, err)

	path0, err := derivation.NewAccountPath(1, derivation.KeyKindTransactionSigning, idx0)
	require.NoError(t, err)
	path1, err := derivation.NewAccountPath(1, derivation.KeyKindTransactionSigning, idx1)
	require.NoError(t, err)

	fsID := factor.NewIDFromHashOfPublicKey(factor.KindDevice, []byte("pk"))
	a := factor.NewInstance(fsID, []byte{1}, derivation.NewDerivationPathFromCAP26(path0))
	b := factor.NewInstance(fsID, []byte{1}, derivation.NewDerivationPathFromCAP26(path1))

	assert.NotEqual(t, a.IdentityKey(), b.IdentityKey())
}
