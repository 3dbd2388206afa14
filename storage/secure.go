package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// SecureStorageKeyKind discriminates the secure-storage keys the core
// reads and writes.
type SecureStorageKeyKind int

const (
	SecureStorageKeyProfileSnapshot SecureStorageKeyKind = iota
	SecureStorageKeyDeviceFactorSourceMnemonic
	SecureStorageKeyHostID
)

// SecureStorageKey identifies one secure-storage entry.
type SecureStorageKey struct {
	Kind     SecureStorageKeyKind
	ScopedID string
}

func (k SecureStorageKey) String() string {
	switch k.Kind {
	case SecureStorageKeyProfileSnapshot:
		return fmt.Sprintf("profileSnapshot:%s", k.ScopedID)
	case SecureStorageKeyDeviceFactorSourceMnemonic:
		return fmt.Sprintf("deviceFactorSourceMnemonic:%s", k.ScopedID)
	case SecureStorageKeyHostID:
		return "hostID"
	default:
		return "unknown"
	}
}

// SecureStorageDriver is the collaborator the core uses for anything
// that must not live in plain app storage: profile snapshots, device
// factor source mnemonics, and the host id.
type SecureStorageDriver interface {
	LoadData(key SecureStorageKey) ([]byte, error)
	SaveData(key SecureStorageKey, data []byte) error
	DeleteDataForKey(key SecureStorageKey) error
}

// InMemorySecureStorageDriver is a SecureStorageDriver backed by an
// in-process map. Real deployments back this with a platform keychain
// or equivalent; that binding is outside the core's scope.
type InMemorySecureStorageDriver struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewInMemorySecureStorageDriver constructs an empty driver.
func NewInMemorySecureStorageDriver() *InMemorySecureStorageDriver {
	return &InMemorySecureStorageDriver{data: make(map[string][]byte)}
}

func (d *InMemorySecureStorageDriver) LoadData(key SecureStorageKey) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.data[key.String()]
	if !ok {
		return nil, errors.Errorf("no secure storage entry for %s", key)
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (d *InMemorySecureStorageDriver) SaveData(key SecureStorageKey, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	d.data[key.String()] = stored
	return nil
}

func (d *InMemorySecureStorageDriver) DeleteDataForKey(key SecureStorageKey) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.data, key.String())
	return nil
}

// LocalSecureStorageDriver implements SecureStorageDriver as plain
// files under a base directory. It provides durability, not secrecy —
// it exists for demos and tests; production hosts bind a platform
// keychain instead.
type LocalSecureStorageDriver struct {
	BaseDir string
}

// NewLocalSecureStorageDriver constructs a driver rooted at baseDir,
// creating it if necessary.
func NewLocalSecureStorageDriver(baseDir string) (*LocalSecureStorageDriver, error) {
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, errors.Wrap(err, "create secure storage directory")
	}
	return &LocalSecureStorageDriver{BaseDir: baseDir}, nil
}

func (d *LocalSecureStorageDriver) resolve(key SecureStorageKey) string {
	name := strings.ReplaceAll(key.String(), ":", "_") + ".bin"
	return filepath.Join(d.BaseDir, name)
}

func (d *LocalSecureStorageDriver) LoadData(key SecureStorageKey) ([]byte, error) {
	data, err := os.ReadFile(d.resolve(key))
	if err != nil {
		return nil, errors.Wrapf(err, "load secure storage entry %s", key)
	}
	return data, nil
}

func (d *LocalSecureStorageDriver) SaveData(key SecureStorageKey, data []byte) error {
	full := d.resolve(key)
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrapf(err, "write secure storage entry %s", key)
	}
	if err := os.Rename(tmp, full); err != nil {
		return errors.Wrapf(err, "finalize secure storage entry %s", key)
	}
	return nil
}

func (d *LocalSecureStorageDriver) DeleteDataForKey(key SecureStorageKey) error {
	if err := os.Remove(d.resolve(key)); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "delete secure storage entry %s", key)
	}
	return nil
}
