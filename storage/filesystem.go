// Package storage defines the CRUD collaborator contracts the core
// consumes for durable state: a secure-storage driver for
// secrets, and a file-system driver for the factor-instances cache
// snapshot. Both are specified only by contract; concrete drivers are
// packaging around the core.
package storage

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// FileSystemDriver is the collaborator the cache uses to persist its
// JSON snapshot.
type FileSystemDriver interface {
	LoadFromFile(path string) ([]byte, error)
	SaveToFile(path string, data []byte, overwrite bool) error
	CreateIfNeeded(name string) (string, error)
}

// LocalFileSystemDriver implements FileSystemDriver against the host
// OS file system, rooted at a base directory.
type LocalFileSystemDriver struct {
	BaseDir string
}

// NewLocalFileSystemDriver constructs a driver rooted at baseDir,
// creating it if necessary.
func NewLocalFileSystemDriver(baseDir string) (*LocalFileSystemDriver, error) {
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, errors.Wrap(err, "create base directory")
	}
	return &LocalFileSystemDriver{BaseDir: baseDir}, nil
}

func (d *LocalFileSystemDriver) resolve(name string) string {
	return filepath.Join(d.BaseDir, name)
}

// LoadFromFile reads the named file relative to BaseDir.
func (d *LocalFileSystemDriver) LoadFromFile(path string) ([]byte, error) {
	data, err := os.ReadFile(d.resolve(path))
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return data, nil
}

// SaveToFile writes data to the named file relative to BaseDir. When
// overwrite is false and the file already exists, it errors rather
// than clobbering it.
func (d *LocalFileSystemDriver) SaveToFile(path string, data []byte, overwrite bool) error {
	full := d.resolve(path)
	if !overwrite {
		if _, err := os.Stat(full); err == nil {
			return errors.Errorf("file already exists: %s", path)
		}
	}
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	if err := os.Rename(tmp, full); err != nil {
		return errors.Wrapf(err, "finalize %s", path)
	}
	return nil
}

// CreateIfNeeded ensures a file named name exists under BaseDir and
// returns its path, creating an empty file if absent.
func (d *LocalFileSystemDriver) CreateIfNeeded(name string) (string, error) {
	full := d.resolve(name)
	if _, err := os.Stat(full); err == nil {
		return full, nil
	}
	if err := os.WriteFile(full, nil, 0o600); err != nil {
		return "", errors.Wrapf(err, "create %s", name)
	}
	return full, nil
}

// InMemoryFileSystemDriver is a FileSystemDriver backed by an
// in-process map, used by tests and by hosts that defer durability to
// another layer.
type InMemoryFileSystemDriver struct {
	mu    sync.Mutex
	files map[string][]byte
}

// NewInMemoryFileSystemDriver constructs an empty in-memory driver.
func NewInMemoryFileSystemDriver() *InMemoryFileSystemDriver {
	return &InMemoryFileSystemDriver{files: make(map[string][]byte)}
}

func (d *InMemoryFileSystemDriver) LoadFromFile(path string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	data, ok := d.files[path]
	if !ok {
		return nil, errors.Errorf("file not found: %s", path)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (d *InMemoryFileSystemDriver) SaveToFile(path string, data []byte, overwrite bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !overwrite {
		if _, ok := d.files[path]; ok {
			return errors.Errorf("file already exists: %s", path)
		}
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	d.files[path] = stored
	return nil
}

func (d *InMemoryFileSystemDriver) CreateIfNeeded(name string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.files[name]; !ok {
		d.files[name] = nil
	}
	return name, nil
}
