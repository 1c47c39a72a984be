package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists the entry set as one JSON array in a single file.
// Writes go to a temporary file in the same directory followed by a rename,
// so a reader never observes a truncated payload.
type FileStore struct {
	path string

	mu sync.Mutex // serializes writers
}

// NewFileStore creates a file store rooted at dataDir/faq.json, creating the
// directory if needed.
func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{path: filepath.Join(dataDir, "faq.json")}, nil
}

// Load reads the current snapshot. A missing file is a valid empty knowledge
// base, not an error.
func (s *FileStore) Load(ctx context.Context) (EntrySet, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewEntrySet(nil), nil
	}
	if err != nil {
		return EntrySet{}, fmt.Errorf("%w: read %s: %v", ErrStoreUnavailable, s.path, err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return EntrySet{}, fmt.Errorf("%w: decode %s: %v", ErrDataCorrupt, s.path, err)
	}

	return NewEntrySet(entries), nil
}

// ReplaceAll atomically overwrites the stored entry set.
func (s *FileStore) ReplaceAll(ctx context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeAtomic(entries)
}

// AppendOne adds a single entry to the stored set.
func (s *FileStore) AppendOne(ctx context.Context, entry Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.Load(ctx)
	if err != nil {
		return fmt.Errorf("%w: load before append: %v", ErrWriteFailed, err)
	}

	return s.writeAtomic(append(set.Entries, entry))
}

// Invalidate is a no-op: the file is the durable copy, not a cache.
func (s *FileStore) Invalidate(ctx context.Context) error {
	return nil
}

// writeAtomic writes entries to a temp file in the target directory and
// renames it over the destination. Callers hold s.mu.
func (s *FileStore) writeAtomic(entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode entries: %v", ErrWriteFailed, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "faq-*.json.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", ErrWriteFailed, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: write temp file: %v", ErrWriteFailed, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: close temp file: %v", ErrWriteFailed, err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: rename into place: %v", ErrWriteFailed, err)
	}

	return nil
}
