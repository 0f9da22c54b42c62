package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore is the file-backed cache bus: one value per file under Dir,
// JSON-encoded. It exists for values that must survive a process restart.
// Concurrent writers from multiple processes risk lost updates; treat it as
// single-writer by convention.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(name string) string {
	return filepath.Join(f.dir, name+".json")
}

// Set writes a value, overwriting any previous one. Encoding errors are
// reported through SetValue; Set panics only on unserializable values,
// mirroring the in-memory contract.
func (f *FileStore) Set(name string, value any) {
	if err := f.SetValue(name, value); err != nil {
		panic(fmt.Sprintf("file cache set %q: %v", name, err))
	}
}

// SetValue is Set with an explicit error return for callers that can
// handle I/O failure.
func (f *FileStore) SetValue(name string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value %q: %w", name, err)
	}
	if err := os.WriteFile(f.path(name), data, 0o644); err != nil {
		return fmt.Errorf("write cache value %q: %w", name, err)
	}
	return nil
}

// Get returns the stored value for name. A missing file is a hard
// not-found error.
func (f *FileStore) Get(name string) (any, error) {
	data, err := os.ReadFile(f.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Name: name}
		}
		return nil, fmt.Errorf("read cache value %q: %w", name, err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode cache value %q: %w", name, err)
	}
	return v, nil
}

// ClearAll removes every cached file in the directory.
func (f *FileStore) ClearAll() error {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return fmt.Errorf("read cache dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(f.dir, entry.Name())); err != nil {
			return fmt.Errorf("remove cache file %s: %w", entry.Name(), err)
		}
	}
	return nil
}
