package storage

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vaultwarden-hd/hdcore/cerrors"
)

// LoadOrGenerateHostID returns the stable host id persisted in secure
// storage, generating and saving a fresh one on first use. A
// save failure surfaces as UnableToSaveHostIdToSecureStorage.
func LoadOrGenerateHostID(driver SecureStorageDriver) (string, error) {
	key := SecureStorageKey{Kind: SecureStorageKeyHostID}
	if data, err := driver.LoadData(key); err == nil && len(data) > 0 {
		return string(data), nil
	}

	id := uuid.NewString()
	if err := driver.SaveData(key, []byte(id)); err != nil {
		return "", cerrors.Wrap(cerrors.KindUnableToSaveHostIdToSecureStorage, err)
	}
	log.Info().Str("hostID", id).Msg("storage: generated new host id")
	return id, nil
}

// SaveDeviceMnemonic persists the mnemonic-with-passphrase bytes of a
// device factor source under its DeviceFactorSourceMnemonic key. The
// bytes are opaque to the core; BIP39 handling is a collaborator
// concern.
func SaveDeviceMnemonic(driver SecureStorageDriver, factorSourceID string, mnemonicWithPassphrase []byte) error {
	key := SecureStorageKey{Kind: SecureStorageKeyDeviceFactorSourceMnemonic, ScopedID: factorSourceID}
	return driver.SaveData(key, mnemonicWithPassphrase)
}

// LoadDeviceMnemonic reads a device factor source's
// mnemonic-with-passphrase bytes, failing with
// UnableToLoadMnemonicFromSecureStorage when absent or unreadable.
func LoadDeviceMnemonic(driver SecureStorageDriver, factorSourceID string) ([]byte, error) {
	key := SecureStorageKey{Kind: SecureStorageKeyDeviceFactorSourceMnemonic, ScopedID: factorSourceID}
	data, err := driver.LoadData(key)
	if err != nil {
		return nil, cerrors.WithFields(cerrors.KindUnableToLoadMnemonicFromSecureStorage, map[string]interface{}{"bad_value": factorSourceID})
	}
	return data, nil
}
