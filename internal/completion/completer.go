package completion

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/watson-developer-cloud/go-sdk/internal/services"
)

// CacheDirFunc returns the cache directory to use at completion time.
type CacheDirFunc func(cmd *cobra.Command) string

// DefaultCacheDirFunc returns the --cache-dir flag on the root command when
// set, otherwise "" so NewStore falls back to DefaultDir.
//
// PersistentPreRunE does not run during __complete, so config files are
// not consulted here.
func DefaultCacheDirFunc(cmd *cobra.Command) string {
	if root := cmd.Root(); root != nil {
		if flag := root.PersistentFlags().Lookup("cache-dir"); flag != nil && flag.Changed {
			return flag.Value.String()
		}
	}
	return ""
}

// Completer provides tab completion functions backed by the cache. It never
// resolves credentials or touches the network.
type Completer struct {
	getCacheDir CacheDirFunc
}

// NewCompleter creates a Completer. A nil getCacheDir means
// DefaultCacheDirFunc.
func NewCompleter(getCacheDir CacheDirFunc) *Completer {
	if getCacheDir == nil {
		getCacheDir = DefaultCacheDirFunc
	}
	return &Completer{getCacheDir: getCacheDir}
}

func (c *Completer) store(cmd *cobra.Command) *Store {
	return NewStore(c.getCacheDir(cmd))
}

// ServiceCompletion completes service names from the built-in catalog.
func (c *Completer) ServiceCompletion() cobra.CompletionFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
		prefix := strings.ToLower(toComplete)
		var completions []cobra.Completion
		for _, e := range services.All() {
			names := append([]string{e.Name}, e.Aliases...)
			for _, name := range names {
				if strings.HasPrefix(strings.ToLower(name), prefix) {
					completions = append(completions, cobra.CompletionWithDesc(name, e.Title))
				}
			}
		}
		return completions, cobra.ShellCompDirectiveNoFileComp
	}
}

// ModelCompletion completes translation model IDs. Default models sort
// first, then by ID.
func (c *Completer) ModelCompletion() cobra.CompletionFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
		models := c.store(cmd).Models()
		if len(models) == 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		ranked := rankModels(models)
		prefix := strings.ToLower(toComplete)
		var completions []cobra.Completion
		for _, m := range ranked {
			if !strings.HasPrefix(strings.ToLower(m.ModelID), prefix) {
				continue
			}
			desc := fmt.Sprintf("%s → %s", m.Source, m.Target)
			if m.Name != "" {
				desc = m.Name + " (" + desc + ")"
			}
			completions = append(completions, cobra.CompletionWithDesc(m.ModelID, desc))
		}
		return completions, cobra.ShellCompDirectiveNoFileComp
	}
}

// LanguageCompletion completes --source and --target from the languages the
// cached models cover.
func (c *Completer) LanguageCompletion() cobra.CompletionFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
		seen := make(map[string]bool)
		for _, m := range c.store(cmd).Models() {
			for _, lang := range []string{m.Source, m.Target} {
				if lang != "" && strings.HasPrefix(lang, strings.ToLower(toComplete)) {
					seen[lang] = true
				}
			}
		}
		completions := make([]cobra.Completion, 0, len(seen))
		for lang := range seen {
			completions = append(completions, cobra.Completion(lang))
		}
		sort.Strings(completions)
		return completions, cobra.ShellCompDirectiveNoFileComp
	}
}

// WorkspaceCompletion completes Assistant workspace IDs, matching on ID
// prefix or anywhere in the name.
func (c *Completer) WorkspaceCompletion() cobra.CompletionFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		workspaces := c.store(cmd).Workspaces()
		if len(workspaces) == 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		sorted := make([]CachedWorkspace, len(workspaces))
		copy(sorted, workspaces)
		sort.Slice(sorted, func(i, j int) bool {
			return strings.ToLower(sorted[i].Name) < strings.ToLower(sorted[j].Name)
		})

		needle := strings.ToLower(toComplete)
		var completions []cobra.Completion
		for _, w := range sorted {
			if strings.HasPrefix(strings.ToLower(w.WorkspaceID), needle) ||
				strings.Contains(strings.ToLower(w.Name), needle) {
				completions = append(completions, cobra.CompletionWithDesc(w.WorkspaceID, w.Name))
			}
		}
		return completions, cobra.ShellCompDirectiveNoFileComp
	}
}

func rankModels(models []CachedModel) []CachedModel {
	ranked := make([]CachedModel, len(models))
	copy(ranked, models)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Default != ranked[j].Default {
			return ranked[i].Default
		}
		return ranked[i].ModelID < ranked[j].ModelID
	})
	return ranked
}
