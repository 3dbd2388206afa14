package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vaultwarden-hd/hdcore/cerrors"
	"github.com/vaultwarden-hd/hdcore/storage"
)

func TestInMemoryFileSystemDriverRoundtrip(t *testing.T) {
	d := storage.NewInMemoryFileSystemDriver()
	require.NoError(t, d.SaveToFile("cache.json", []byte(`{"a":1}`), true))

	data, err := d.LoadFromFile("cache.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))
}

func TestInMemoryFileSystemDriverRejectsOverwriteWhenNotAllowed(t *testing.T) {
	d := storage.NewInMemoryFileSystemDriver()
	require.NoError(t, d.SaveToFile("cache.json", []byte("a"), false))
	assert.Error(t, d.SaveToFile("cache.json", []byte("b"), false))
}

func TestInMemoryFileSystemDriverLoadMissingErrors(t *testing.T) {
	d := storage.NewInMemoryFileSystemDriver()
	_, err := d.LoadFromFile("missing.json")
	assert.Error(t, err)
}

func TestInMemorySecureStorageDriverRoundtrip(t *testing.T) {
	d := storage.NewInMemorySecureStorageDriver()
	key := storage.SecureStorageKey{Kind: storage.SecureStorageKeyHostID}
	require.NoError(t, d.SaveData(key, []byte("host-123")))

	data, err := d.LoadData(key)
	require.NoError(t, err)
	assert.Equal(t, "host-123", string(data))

	require.NoError(t, d.DeleteDataForKey(key))
	_, err = d.LoadData(key)
	assert.Error(t, err)
}

func TestLoadOrGenerateHostIDIsStable(t *testing.T) {
	d := storage.NewInMemorySecureStorageDriver()

	first, err := storage.LoadOrGenerateHostID(d)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := storage.LoadOrGenerateHostID(d)
	require.NoError(t, err)
	assert.Equal(t, first, second, "host id is generated once and read back afterwards")
}

func TestDeviceMnemonicRoundtrip(t *testing.T) {
	d := storage.NewInMemorySecureStorageDriver()
	require.NoError(t, storage.SaveDeviceMnemonic(d, "device:abc", []byte("zoo zoo zoo")))

	data, err := storage.LoadDeviceMnemonic(d, "device:abc")
	require.NoError(t, err)
	assert.Equal(t, "zoo zoo zoo", string(data))
}

func TestLoadDeviceMnemonicMissingSurfacesNamedKind(t *testing.T) {
	d := storage.NewInMemorySecureStorageDriver()
	_, err := storage.LoadDeviceMnemonic(d, "device:absent")
	require.Error(t, err)
	assert.True(t, cerrors.Is(err, cerrors.KindUnableToLoadMnemonicFromSecureStorage))
}
