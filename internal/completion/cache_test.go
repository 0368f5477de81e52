package completion

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStore_SaveAndLoad(t *testing.T) {
	store := NewStore(t.TempDir())

	cache := &Cache{
		Models: []CachedModel{
			{ModelID: "en-es", Source: "en", Target: "es", Default: true},
			{ModelID: "en-fr", Source: "en", Target: "fr"},
		},
		Workspaces: []CachedWorkspace{
			{WorkspaceID: "ws-1", Name: "Car Dashboard", Language: "en"},
		},
	}

	if err := store.Save(cache); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(store.Path()); os.IsNotExist(err) {
		t.Fatal("Cache file was not created")
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.Models) != 2 {
		t.Errorf("Expected 2 models, got %d", len(loaded.Models))
	}
	if !loaded.Models[0].Default {
		t.Error("Expected en-es to be the default model")
	}
	if len(loaded.Workspaces) != 1 || loaded.Workspaces[0].Name != "Car Dashboard" {
		t.Errorf("Unexpected workspaces: %+v", loaded.Workspaces)
	}
	if loaded.Version != CacheVersion {
		t.Errorf("Expected version %d, got %d", CacheVersion, loaded.Version)
	}
	if loaded.ModelsUpdatedAt.IsZero() || loaded.WorkspacesUpdatedAt.IsZero() {
		t.Error("Section timestamps should be set")
	}
	if !cache.ModelsUpdatedAt.IsZero() {
		t.Error("Save should not modify the caller's cache")
	}
}

func TestStore_LoadMissingFile(t *testing.T) {
	store := NewStore(t.TempDir())

	cache, err := store.Load()
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if len(cache.Models) != 0 || len(cache.Workspaces) != 0 {
		t.Error("Expected empty cache")
	}
	if cache.Version != CacheVersion {
		t.Errorf("Expected version %d, got %d", CacheVersion, cache.Version)
	}
}

func TestStore_LoadCorruptedFile(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	if err := os.WriteFile(filepath.Join(dir, CacheFileName), []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	cache, err := store.Load()
	if err != nil {
		t.Fatalf("Load should not fail for corrupted file: %v", err)
	}
	if len(cache.Models) != 0 {
		t.Error("Expected empty cache for corrupted file")
	}
}

func TestStore_UpdateSectionsIndependently(t *testing.T) {
	store := NewStore(t.TempDir())

	if err := store.UpdateModels([]CachedModel{{ModelID: "en-de"}}); err != nil {
		t.Fatal(err)
	}
	if err := store.UpdateWorkspaces([]CachedWorkspace{{WorkspaceID: "ws-9", Name: "Support"}}); err != nil {
		t.Fatal(err)
	}

	cache, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(cache.Models) != 1 || cache.Models[0].ModelID != "en-de" {
		t.Errorf("UpdateWorkspaces clobbered models: %+v", cache.Models)
	}
	if len(cache.Workspaces) != 1 {
		t.Errorf("Expected 1 workspace, got %d", len(cache.Workspaces))
	}

	// Replacing models keeps the workspace timestamp
	before := cache.WorkspacesUpdatedAt
	if err := store.UpdateModels(nil); err != nil {
		t.Fatal(err)
	}
	cache, _ = store.Load()
	if !cache.WorkspacesUpdatedAt.Equal(before) {
		t.Error("UpdateModels should not touch WorkspacesUpdatedAt")
	}
}

func TestStore_IsStale(t *testing.T) {
	store := NewStore(t.TempDir())

	if !store.IsStale(time.Hour) {
		t.Error("Empty cache should be stale")
	}

	if err := store.UpdateModels([]CachedModel{{ModelID: "en-es"}}); err != nil {
		t.Fatal(err)
	}
	if !store.IsStale(time.Hour) {
		t.Error("Cache with a missing section should be stale")
	}

	if err := store.Save(&Cache{}); err != nil {
		t.Fatal(err)
	}
	if store.IsStale(time.Hour) {
		t.Error("Freshly saved cache should not be stale")
	}
	if !store.IsStale(0) {
		t.Error("Any cache is stale with maxAge 0")
	}
}

func TestStore_Clear(t *testing.T) {
	store := NewStore(t.TempDir())

	if err := store.Clear(); err != nil {
		t.Errorf("Clear on missing file should succeed: %v", err)
	}
	if err := store.Save(&Cache{Models: []CachedModel{{ModelID: "x"}}}); err != nil {
		t.Fatal(err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, err := os.Stat(store.Path()); !os.IsNotExist(err) {
		t.Error("Cache file should be removed")
	}
	if store.Models() != nil {
		t.Error("Models should be empty after Clear")
	}
}

func TestStore_AtomicWrite(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := store.Save(&Cache{}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(store.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Error("Temp file should not remain after save")
	}
}

func TestStore_Path(t *testing.T) {
	store := NewStore("/some/dir")
	if store.Dir() != "/some/dir" {
		t.Errorf("Dir() = %q", store.Dir())
	}
	if store.Path() != filepath.Join("/some/dir", CacheFileName) {
		t.Errorf("Path() = %q", store.Path())
	}
}

func TestDefaultDir(t *testing.T) {
	t.Setenv("WATSON_CACHE_DIR", "")
	t.Setenv("XDG_CACHE_HOME", "/xdg/cache")
	if got := DefaultDir(); got != "/xdg/cache/watson" {
		t.Errorf("DefaultDir() = %q", got)
	}

	t.Setenv("WATSON_CACHE_DIR", "/explicit")
	if got := NewStore("").Dir(); got != "/explicit" {
		t.Errorf("NewStore(\"\").Dir() = %q", got)
	}
}

func TestCache_JSONFormat(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := store.Save(&Cache{Models: []CachedModel{{ModelID: "en-es", Source: "en", Target: "es"}}}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Cache file is not valid JSON: %v", err)
	}
	for _, key := range []string{"models", "models_updated_at", "workspaces_updated_at", "version"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("Expected key %q in cache JSON", key)
		}
	}
	if _, ok := raw["workspaces"]; ok {
		t.Error("Empty workspaces should be omitted")
	}
}

func TestOldestTime(t *testing.T) {
	now := time.Now()
	earlier := now.Add(-time.Hour)

	if got := oldestTime(now, earlier); !got.Equal(earlier) {
		t.Errorf("oldestTime(now, earlier) = %v", got)
	}
	if got := oldestTime(earlier, now); !got.Equal(earlier) {
		t.Errorf("oldestTime(earlier, now) = %v", got)
	}
	if got := oldestTime(time.Time{}, now); !got.IsZero() {
		t.Error("Zero should count as oldest")
	}
}
