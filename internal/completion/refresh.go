package completion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/watson-developer-cloud/go-sdk/internal/services/assistant"
	"github.com/watson-developer-cloud/go-sdk/internal/services/languagetranslator"
)

// ModelLister lists translation models. *languagetranslator.V3 satisfies it.
type ModelLister interface {
	ListModels(ctx context.Context, params *languagetranslator.ListModelsParams) (*languagetranslator.TranslationModels, error)
}

// WorkspaceLister lists Assistant workspaces. *assistant.V1 satisfies it.
type WorkspaceLister interface {
	ListWorkspaces(ctx context.Context, params *assistant.ListWorkspacesParams) (*assistant.WorkspaceCollection, error)
}

// RefreshResult is the outcome of a refresh.
type RefreshResult struct {
	ModelsCount     int
	WorkspacesCount int
	ModelsErr       error
	WorkspacesErr   error
}

// HasError reports whether any section failed.
func (r RefreshResult) HasError() bool {
	return r.ModelsErr != nil || r.WorkspacesErr != nil
}

// Error joins the per-section errors, or returns nil.
func (r RefreshResult) Error() error {
	var errs []error
	if r.ModelsErr != nil {
		errs = append(errs, fmt.Errorf("models: %w", r.ModelsErr))
	}
	if r.WorkspacesErr != nil {
		errs = append(errs, fmt.Errorf("workspaces: %w", r.WorkspacesErr))
	}
	return errors.Join(errs...)
}

// ErrNoSource is recorded for a section whose service could not be opened.
var ErrNoSource = errors.New("service not configured")

// Refresher fills the cache from the translator and assistant services.
// Either lister may be nil; its section is then reported as ErrNoSource and
// the cached data is kept.
type Refresher struct {
	store      *Store
	models     ModelLister
	workspaces WorkspaceLister

	mu         sync.Mutex
	refreshing bool
}

// NewRefresher creates a refresher.
func NewRefresher(store *Store, models ModelLister, workspaces WorkspaceLister) *Refresher {
	return &Refresher{store: store, models: models, workspaces: workspaces}
}

// RefreshIfStale starts a background refresh when the cache is stale and no
// refresh is running. It returns immediately.
func (r *Refresher) RefreshIfStale(maxAge time.Duration) {
	if !r.store.IsStale(maxAge) {
		return
	}

	r.mu.Lock()
	if r.refreshing {
		r.mu.Unlock()
		return
	}
	r.refreshing = true
	r.mu.Unlock()

	go func() {
		defer func() {
			r.mu.Lock()
			r.refreshing = false
			r.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		r.RefreshAll(ctx)
	}()
}

// RefreshAll fetches both sections concurrently and updates each one that
// succeeded.
func (r *Refresher) RefreshAll(ctx context.Context) RefreshResult {
	var result RefreshResult
	var models *languagetranslator.TranslationModels
	var workspaces *assistant.WorkspaceCollection

	var wg sync.WaitGroup
	wg.Go(func() {
		if r.models == nil {
			result.ModelsErr = ErrNoSource
			return
		}
		models, result.ModelsErr = r.models.ListModels(ctx, nil)
	})
	wg.Go(func() {
		if r.workspaces == nil {
			result.WorkspacesErr = ErrNoSource
			return
		}
		workspaces, result.WorkspacesErr = r.workspaces.ListWorkspaces(ctx, nil)
	})
	wg.Wait()

	if result.ModelsErr == nil && models != nil {
		converted := CachedModels(models.Models)
		if err := r.store.UpdateModels(converted); err != nil {
			result.ModelsErr = err
		} else {
			result.ModelsCount = len(converted)
		}
	}
	if result.WorkspacesErr == nil && workspaces != nil {
		converted := CachedWorkspaces(workspaces.Workspaces)
		if err := r.store.UpdateWorkspaces(converted); err != nil {
			result.WorkspacesErr = err
		} else {
			result.WorkspacesCount = len(converted)
		}
	}
	return result
}

// IsRefreshing reports whether a background refresh is running.
func (r *Refresher) IsRefreshing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refreshing
}

// CachedModels converts listed models to their cached form.
func CachedModels(models []languagetranslator.TranslationModel) []CachedModel {
	out := make([]CachedModel, len(models))
	for i, m := range models {
		out[i] = CachedModel{
			ModelID: m.ModelID,
			Source:  m.Source,
			Target:  m.Target,
			Name:    m.Name,
			Default: m.Default,
		}
	}
	return out
}

// CachedWorkspaces converts listed workspaces to their cached form.
func CachedWorkspaces(workspaces []assistant.Workspace) []CachedWorkspace {
	out := make([]CachedWorkspace, len(workspaces))
	for i, w := range workspaces {
		out[i] = CachedWorkspace{
			WorkspaceID: w.WorkspaceID,
			Name:        w.Name,
			Language:    w.Language,
		}
	}
	return out
}
