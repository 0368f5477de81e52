package completion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/watson-developer-cloud/go-sdk/internal/services/assistant"
	"github.com/watson-developer-cloud/go-sdk/internal/services/languagetranslator"
)

type fakeModels struct {
	models []languagetranslator.TranslationModel
	err    error
}

func (f fakeModels) ListModels(context.Context, *languagetranslator.ListModelsParams) (*languagetranslator.TranslationModels, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &languagetranslator.TranslationModels{Models: f.models}, nil
}

type fakeWorkspaces struct {
	workspaces []assistant.Workspace
	err        error
}

func (f fakeWorkspaces) ListWorkspaces(context.Context, *assistant.ListWorkspacesParams) (*assistant.WorkspaceCollection, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &assistant.WorkspaceCollection{Workspaces: f.workspaces}, nil
}

func waitIdle(r *Refresher) {
	for range 100 {
		if !r.IsRefreshing() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRefresher_RefreshAll(t *testing.T) {
	store := NewStore(t.TempDir())
	r := NewRefresher(store,
		fakeModels{models: []languagetranslator.TranslationModel{
			{ModelID: "en-es", Source: "en", Target: "es", Default: true},
		}},
		fakeWorkspaces{workspaces: []assistant.Workspace{
			{WorkspaceID: "ws-1", Name: "Demo", Language: "en"},
			{WorkspaceID: "ws-2", Name: "Other", Language: "fr"},
		}},
	)

	result := r.RefreshAll(context.Background())
	if result.HasError() {
		t.Fatalf("Unexpected error: %v", result.Error())
	}
	if result.ModelsCount != 1 || result.WorkspacesCount != 2 {
		t.Errorf("Unexpected counts: %+v", result)
	}
	if store.IsStale(time.Hour) {
		t.Error("Cache should be fresh after a full refresh")
	}
	if m := store.Models(); len(m) != 1 || !m[0].Default {
		t.Errorf("Unexpected cached models: %+v", m)
	}
}

func TestRefresher_PartialFailureKeepsOldData(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := store.UpdateWorkspaces([]CachedWorkspace{{WorkspaceID: "old", Name: "Old"}}); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	r := NewRefresher(store,
		fakeModels{models: []languagetranslator.TranslationModel{{ModelID: "en-fr"}}},
		fakeWorkspaces{err: boom},
	)
	result := r.RefreshAll(context.Background())

	if !errors.Is(result.WorkspacesErr, boom) {
		t.Errorf("Expected workspaces error, got %v", result.WorkspacesErr)
	}
	if result.ModelsErr != nil {
		t.Errorf("Models should succeed, got %v", result.ModelsErr)
	}
	if w := store.Workspaces(); len(w) != 1 || w[0].WorkspaceID != "old" {
		t.Errorf("Failed section should keep cached data, got %+v", w)
	}
	if !errors.Is(result.Error(), boom) {
		t.Errorf("Error() should wrap the section error, got %v", result.Error())
	}
}

func TestRefresher_NilListers(t *testing.T) {
	r := NewRefresher(NewStore(t.TempDir()), nil, nil)
	result := r.RefreshAll(context.Background())

	if !errors.Is(result.ModelsErr, ErrNoSource) || !errors.Is(result.WorkspacesErr, ErrNoSource) {
		t.Errorf("Expected ErrNoSource for both sections, got %+v", result)
	}
}

func TestRefresher_RefreshIfStale_Fresh(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := store.Save(&Cache{}); err != nil {
		t.Fatal(err)
	}
	r := NewRefresher(store, fakeModels{err: errors.New("should not be called")}, nil)

	r.RefreshIfStale(time.Hour)
	time.Sleep(10 * time.Millisecond)
	if r.IsRefreshing() {
		t.Error("Should not refresh a fresh cache")
	}
}

func TestRefresher_RefreshIfStale_Stale(t *testing.T) {
	store := NewStore(t.TempDir())
	r := NewRefresher(store,
		fakeModels{models: []languagetranslator.TranslationModel{{ModelID: "en-it"}}},
		fakeWorkspaces{},
	)

	for range 10 {
		r.RefreshIfStale(time.Hour)
	}
	waitIdle(r)

	if m := store.Models(); len(m) != 1 || m[0].ModelID != "en-it" {
		t.Errorf("Background refresh did not fill the cache: %+v", m)
	}
}

func TestCachedWorkspaces(t *testing.T) {
	cached := CachedWorkspaces([]assistant.Workspace{
		{WorkspaceID: "w", Name: "N", Language: "de", Description: "dropped"},
	})
	if len(cached) != 1 || cached[0] != (CachedWorkspace{WorkspaceID: "w", Name: "N", Language: "de"}) {
		t.Errorf("CachedWorkspaces = %+v", cached)
	}
}
