// Package cache persists search outcomes as one JSON file per key.
//
// Entries are write-once for the lifetime of a [FileStore]: the first value set for a key is kept in memory and on disk,
// later sets for the same key are ignored. Files are written to a temporary name and renamed into place so
// concurrent writers never leave a torn entry behind.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const ext = ".json"

// Store is a key-value store for JSON-serializable values.
type Store interface {
	// Get decodes the value stored under key into dst. A miss returns false and no error.
	Get(key string, dst any) (bool, error)

	// Set stores value under key.
	Set(key string, value any) error
}

var keyReplacer = strings.NewReplacer(":", "__", "/", "_", "\\", "_")

// FileStore is a [Store] backed by a directory.
type FileStore struct {
	dir string
	mu  sync.RWMutex
	mem map[string][]byte
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &FileStore{dir: dir, mem: make(map[string][]byte)}, nil
}

// Dir returns the cache directory.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, keyReplacer.Replace(key)+ext)
}

func (s *FileStore) Get(key string, dst any) (bool, error) {
	s.mu.RLock()
	data, ok := s.mem[key]
	s.mu.RUnlock()

	if ok {
		if err := json.Unmarshal(data, dst); err != nil {
			return false, fmt.Errorf("failed to decode cache entry %s: %w", key, err)
		}
		return true, nil
	}

	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}
	// a corrupt file stays out of memory so the next Set replaces it
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("failed to decode cache entry %s: %w", key, err)
	}

	s.mu.Lock()
	if existing, ok := s.mem[key]; ok {
		s.mu.Unlock()
		return true, json.Unmarshal(existing, dst)
	}
	s.mem[key] = data
	s.mu.Unlock()
	return true, nil
}

func (s *FileStore) Set(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %s: %w", key, err)
	}

	s.mu.Lock()
	if _, ok := s.mem[key]; ok {
		s.mu.Unlock()
		return nil
	}
	s.mem[key] = data
	s.mu.Unlock()

	target := s.path(key)
	tmp := filepath.Join(s.dir, "."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache entry %s: %w", key, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to commit cache entry %s: %w", key, err)
	}
	return nil
}

// Keys lists the sanitized keys present on disk.
func (s *FileStore) Keys() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ext) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, ext))
	}
	return keys, nil
}

// Nop is a [Store] that never hits and discards writes, used when caching is disabled.
type Nop struct{}

func (Nop) Get(string, any) (bool, error) { return false, nil }
func (Nop) Set(string, any) error         { return nil }

// MemoryStore is a process-local [Store]. Like [FileStore] it keeps the first value set for a key.
type MemoryStore struct {
	mu  sync.RWMutex
	mem map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{mem: make(map[string][]byte)}
}

func (s *MemoryStore) Get(key string, dst any) (bool, error) {
	s.mu.RLock()
	data, ok := s.mem[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("failed to decode cache entry %s: %w", key, err)
	}
	return true, nil
}

func (s *MemoryStore) Set(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %s: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.mem[key]; !ok {
		s.mem[key] = data
	}
	return nil
}

// Len returns the number of stored keys.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.mem)
}
