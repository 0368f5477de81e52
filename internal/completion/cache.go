// Package completion provides tab completion support for the watson CLI.
// Translation models and Assistant workspaces are kept in a file-based cache
// so completions stay fast and work offline.
package completion

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// CachedModel holds translation model data for tab completion.
type CachedModel struct {
	ModelID string `json:"model_id"`
	Source  string `json:"source,omitempty"`
	Target  string `json:"target,omitempty"`
	Name    string `json:"name,omitempty"`
	Default bool   `json:"default,omitempty"`
}

// CachedWorkspace holds Assistant workspace data for tab completion.
type CachedWorkspace struct {
	WorkspaceID string `json:"workspace_id"`
	Name        string `json:"name"`
	Language    string `json:"language,omitempty"`
}

// Cache stores completion data with per-section timestamps.
type Cache struct {
	Models              []CachedModel     `json:"models,omitempty"`
	Workspaces          []CachedWorkspace `json:"workspaces,omitempty"`
	ModelsUpdatedAt     time.Time         `json:"models_updated_at,omitempty"`
	WorkspacesUpdatedAt time.Time         `json:"workspaces_updated_at,omitempty"`
	Version             int               `json:"version"`
}

const (
	// CacheVersion is the current cache schema version.
	CacheVersion = 1

	// DefaultMaxAge is the default cache staleness threshold.
	DefaultMaxAge = time.Hour

	// CacheFileName is the cache file name inside the cache directory.
	CacheFileName = "completion.json"
)

// Store reads and writes the completion cache.
type Store struct {
	dir string
	mu  sync.RWMutex
}

// NewStore creates a cache store. An empty dir means DefaultDir.
func NewStore(dir string) *Store {
	if dir == "" {
		dir = DefaultDir()
	}
	return &Store{dir: dir}
}

// DefaultDir returns $WATSON_CACHE_DIR, or $XDG_CACHE_HOME/watson, or
// ~/.cache/watson.
func DefaultDir() string {
	if v := os.Getenv("WATSON_CACHE_DIR"); v != "" {
		return v
	}
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		home, _ := os.UserHomeDir()
		cacheDir = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheDir, "watson")
}

// Dir returns the cache directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the cache file path.
func (s *Store) Path() string {
	return filepath.Join(s.dir, CacheFileName)
}

// Load reads the cache. A missing or corrupt file yields an empty cache.
func (s *Store) Load() (*Cache, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadUnsafe()
}

func (s *Store) loadUnsafe() (*Cache, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return &Cache{Version: CacheVersion}, nil
		}
		return nil, err
	}

	var cache Cache
	if err := json.Unmarshal(data, &cache); err != nil {
		return &Cache{Version: CacheVersion}, nil //nolint:nilerr // corrupt cache is rebuilt on next refresh
	}
	return &cache, nil
}

// Save writes cache with both section timestamps set to now. The caller's
// value is not modified.
func (s *Store) Save(cache *Cache) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *cache
	now := time.Now()
	cp.ModelsUpdatedAt = now
	cp.WorkspacesUpdatedAt = now
	return s.saveUnsafe(&cp)
}

func (s *Store) saveUnsafe(cache *Cache) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return err
	}
	cache.Version = CacheVersion

	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := s.Path() + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.Path())
}

// UpdateModels replaces the cached models, leaving workspaces untouched.
func (s *Store) UpdateModels(models []CachedModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cache, err := s.loadUnsafe()
	if err != nil {
		cache = &Cache{Version: CacheVersion}
	}
	cache.Models = models
	cache.ModelsUpdatedAt = time.Now()
	return s.saveUnsafe(cache)
}

// UpdateWorkspaces replaces the cached workspaces, leaving models untouched.
func (s *Store) UpdateWorkspaces(workspaces []CachedWorkspace) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cache, err := s.loadUnsafe()
	if err != nil {
		cache = &Cache{Version: CacheVersion}
	}
	cache.Workspaces = workspaces
	cache.WorkspacesUpdatedAt = time.Now()
	return s.saveUnsafe(cache)
}

// oldestTime returns the older of a and b. Zero counts as oldest so a
// section that was never filled makes the cache stale.
func oldestTime(a, b time.Time) time.Time {
	if a.IsZero() || b.IsZero() {
		return time.Time{}
	}
	if a.Before(b) {
		return a
	}
	return b
}

// IsStale reports whether either section is missing or older than maxAge.
func (s *Store) IsStale(maxAge time.Duration) bool {
	cache, err := s.Load()
	if err != nil {
		return true
	}
	oldest := oldestTime(cache.ModelsUpdatedAt, cache.WorkspacesUpdatedAt)
	return oldest.IsZero() || time.Since(oldest) > maxAge
}

// Clear removes the cache file.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.Path())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Models returns the cached models, or nil.
func (s *Store) Models() []CachedModel {
	cache, err := s.Load()
	if err != nil {
		return nil
	}
	return cache.Models
}

// Workspaces returns the cached workspaces, or nil.
func (s *Store) Workspaces() []CachedWorkspace {
	cache, err := s.Load()
	if err != nil {
		return nil
	}
	return cache.Workspaces
}
