package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/watson-developer-cloud/go-sdk/internal/completion"
	"github.com/watson-developer-cloud/go-sdk/internal/output"
)

// NewCompletionCmd creates the completion command group.
func NewCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [shell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for watson.

Bash:
  $ source <(watson completion bash)
  # Persist (Linux):
  $ watson completion bash > /etc/bash_completion.d/watson

Zsh:
  $ watson completion zsh > "${fpath[1]}/_watson"

Fish:
  $ watson completion fish > ~/.config/fish/completions/watson.fish

PowerShell:
  PS> watson completion powershell | Out-String | Invoke-Expression

Model and workspace completions come from a local cache. Fill it with
"watson completion refresh".
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeCompletion(cmd.Root(), cmd.OutOrStdout(), args[0])
		},
	}

	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		cmd.AddCommand(&cobra.Command{
			Use:                   shell,
			Short:                 fmt.Sprintf("Generate %s completion script", shell),
			DisableFlagsInUseLine: true,
			Args:                  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return writeCompletion(cmd.Root(), cmd.OutOrStdout(), shell)
			},
		})
	}

	cmd.AddCommand(newCompletionRefreshCmd())
	cmd.AddCommand(newCompletionStatusCmd())
	return cmd
}

func writeCompletion(root *cobra.Command, w io.Writer, shell string) error {
	switch shell {
	case "bash":
		return root.GenBashCompletionV2(w, true)
	case "zsh":
		return root.GenZshCompletion(w)
	case "fish":
		return root.GenFishCompletion(w, true)
	case "powershell":
		return root.GenPowerShellCompletionWithDesc(w)
	default:
		return output.ErrUsage(fmt.Sprintf("unknown shell: %s", shell))
	}
}

func newCompletionRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the completion cache",
		Long: `Fetch translation models and Assistant workspaces and store them for tab
completion. A service without credentials is skipped and its cached data
kept.

"watson translate models" and "watson workspaces" also update the cache.
Set WATSON_CACHE_DIR or pass --cache-dir to move it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(cmd)
			if err != nil {
				return err
			}

			var models completion.ModelLister
			if client, err := openTranslator(app); err == nil {
				models = client
			} else {
				app.Logger.Debug("translator unavailable for completion refresh", "error", err)
			}
			var workspaces completion.WorkspaceLister
			if client, err := openAssistant(app); err == nil {
				workspaces = client
			} else {
				app.Logger.Debug("assistant unavailable for completion refresh", "error", err)
			}

			store := completion.NewStore(completion.DefaultCacheDirFunc(cmd))
			refreshed := completion.NewRefresher(store, models, workspaces).RefreshAll(cmd.Context())
			if refreshed.ModelsErr != nil && refreshed.WorkspacesErr != nil {
				return fmt.Errorf("refresh failed: %w", refreshed.Error())
			}

			cache, err := store.Load()
			if err != nil {
				return fmt.Errorf("refresh completed but failed to read cache: %w", err)
			}
			result := map[string]any{
				"models":     len(cache.Models),
				"workspaces": len(cache.Workspaces),
				"cache_path": store.Path(),
			}
			summary := fmt.Sprintf("Cached %d models and %d workspaces", len(cache.Models), len(cache.Workspaces))
			if refreshed.HasError() {
				result["error"] = refreshed.Error().Error()
				summary += fmt.Sprintf(" (warning: %v)", refreshed.Error())
			}
			return app.OK(result, output.WithSummary(summary))
		},
	}
}

func newCompletionStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show completion cache status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(cmd)
			if err != nil {
				return err
			}
			store := completion.NewStore(completion.DefaultCacheDirFunc(cmd))
			cache, err := store.Load()
			if err != nil {
				return err
			}

			stale := store.IsStale(completion.DefaultMaxAge)
			status, age := cacheStatus(cache, stale, time.Now())
			result := map[string]any{
				"models":                len(cache.Models),
				"workspaces":            len(cache.Workspaces),
				"models_updated_at":     cache.ModelsUpdatedAt,
				"workspaces_updated_at": cache.WorkspacesUpdatedAt,
				"age":                   age,
				"status":                status,
				"stale":                 stale,
				"cache_path":            store.Path(),
			}
			summary := fmt.Sprintf("%d models, %d workspaces (%s)", len(cache.Models), len(cache.Workspaces), status)
			return app.OK(result, output.WithSummary(summary))
		},
	}
}

// cacheStatus describes a cache as empty, stale or fresh, with the age of
// its oldest section.
func cacheStatus(cache *completion.Cache, stale bool, now time.Time) (status, age string) {
	if len(cache.Models) == 0 && len(cache.Workspaces) == 0 {
		return "empty", "never"
	}
	oldest := cache.ModelsUpdatedAt
	if oldest.IsZero() || (!cache.WorkspacesUpdatedAt.IsZero() && cache.WorkspacesUpdatedAt.Before(oldest)) {
		oldest = cache.WorkspacesUpdatedAt
	}
	if oldest.IsZero() {
		return "stale", "unknown"
	}
	age = now.Sub(oldest).Round(time.Second).String()
	if stale {
		return "stale", age
	}
	return "fresh", age
}
