// Package cache stores downloaded playlist bodies on disk so a source
// that stops responding can still be served from its last good copy.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type entry struct {
	Body      []byte    `json:"body"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Store is a file-based cache keyed by source URL.
type Store struct {
	dir string
	ttl time.Duration
}

// NewStore creates the cache directory if needed and returns a store
// whose GetFresh honors the given TTL.
func NewStore(dir string, ttl time.Duration) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Store{dir: dir, ttl: ttl}, nil
}

// Get returns the cached body for a URL regardless of its age.
func (s *Store) Get(rawURL string) ([]byte, bool) {
	e, ok := s.read(rawURL)
	if !ok {
		return nil, false
	}
	return e.Body, true
}

// GetFresh returns the cached body only when it is younger than the
// store's TTL.
func (s *Store) GetFresh(rawURL string) ([]byte, bool) {
	e, ok := s.read(rawURL)
	if !ok || time.Since(e.FetchedAt) > s.ttl {
		return nil, false
	}
	return e.Body, true
}

// Set stores a body for a URL with the current timestamp.
func (s *Store) Set(rawURL string, body []byte) error {
	data, err := json.Marshal(entry{Body: body, FetchedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	if err := os.WriteFile(s.path(rawURL), data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

func (s *Store) read(rawURL string) (entry, bool) {
	data, err := os.ReadFile(s.path(rawURL))
	if err != nil {
		return entry{}, false
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return entry{}, false
	}
	return e, true
}

func (s *Store) path(rawURL string) string {
	hash := sha256.Sum256([]byte(rawURL))
	return filepath.Join(s.dir, hex.EncodeToString(hash[:])+".json")
}
