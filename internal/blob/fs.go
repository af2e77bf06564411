package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FSStore is a filesystem-backed Store rooted at a data directory.
// Buckets map to first-level directories, keys to paths beneath them.
// Reads and writes go through os.Root so a hostile locator cannot escape
// the data directory.
type FSStore struct {
	dir string
}

// NewFSStore creates the data directory if needed and returns a store
// rooted there.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating blob directory: %w", err)
	}
	return &FSStore{dir: dir}, nil
}

// Download returns the object bytes at loc.
func (s *FSStore) Download(_ context.Context, loc Locator) ([]byte, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}

	root, err := os.OpenRoot(s.dir)
	if err != nil {
		return nil, fmt.Errorf("opening blob root: %w", err)
	}
	defer func() {
		_ = root.Close()
	}()

	data, err := root.ReadFile(filepath.Join(loc.Bucket, loc.Key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, loc)
		}
		return nil, fmt.Errorf("reading blob %s: %w", loc, err)
	}
	return data, nil
}

// Upload stores data at loc, creating intermediate directories.
// The content type is not persisted; the document record carries it.
func (s *FSStore) Upload(_ context.Context, loc Locator, data []byte, _ string) error {
	if err := loc.Validate(); err != nil {
		return err
	}

	root, err := os.OpenRoot(s.dir)
	if err != nil {
		return fmt.Errorf("opening blob root: %w", err)
	}
	defer func() {
		_ = root.Close()
	}()

	rel := filepath.Join(loc.Bucket, loc.Key)
	if err := root.MkdirAll(filepath.Dir(rel), 0o750); err != nil {
		return fmt.Errorf("creating blob path %s: %w", loc, err)
	}
	if err := root.WriteFile(rel, data, 0o640); err != nil {
		return fmt.Errorf("writing blob %s: %w", loc, err)
	}
	return nil
}

// MemStore is an in-memory Store for tests.
type MemStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{objects: make(map[string][]byte)}
}

// Download returns the object bytes at loc.
func (s *MemStore) Download(_ context.Context, loc Locator) ([]byte, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.objects[loc.String()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, loc)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Upload stores data at loc.
func (s *MemStore) Upload(_ context.Context, loc Locator, data []byte, _ string) error {
	if err := loc.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]byte, len(data))
	copy(cp, data)
	s.objects[loc.String()] = cp
	return nil
}
