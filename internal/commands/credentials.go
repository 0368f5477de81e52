package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/watson-developer-cloud/go-sdk/internal/appctx"
	"github.com/watson-developer-cloud/go-sdk/internal/credentials"
	"github.com/watson-developer-cloud/go-sdk/internal/output"
)

// NewCredentialsCmd creates the credentials command.
func NewCredentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Inspect resolved service credentials",
		Long: `Inspect the credentials a service would use.

Credentials are resolved in this order, the first source with any auth
material winning:
  1. Flags and explicit options
  2. ibm-credentials.env (IBM_CREDENTIALS_FILE, then $HOME, then the working directory)
  3. <SERVICE>_APIKEY, <SERVICE>_USERNAME, ... environment variables
  4. VCAP_SERVICES

Secrets are always masked.`,
	}
	cmd.AddCommand(newCredentialsShowCmd())
	return cmd
}

// credentialsReport is the redacted view plus where it came from.
type credentialsReport struct {
	Service string `json:"service"`
	credentials.View
	File string `json:"file,omitempty"`
}

func newCredentialsShowCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "show [service]",
		Short: "Show resolved credentials",
		Long: `Show the redacted credentials resolved for a service.

With --watch, the credentials file is watched and the result is printed again
after every change until interrupted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(cmd)
			if err != nil {
				return err
			}
			var name string
			if len(args) > 0 {
				name = args[0]
			}
			if !watch {
				return showCredentials(app, name)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watchCredentials(ctx, app, name, nil)
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-resolve whenever the credentials file changes")
	return cmd
}

func resolveCredentials(app *appctx.App, name string) (*credentialsReport, error) {
	svc, err := app.NewService(name)
	if err != nil {
		return nil, err
	}
	creds := svc.Credentials()
	return &credentialsReport{
		Service: svc.Name(),
		View:    creds.Redacted(),
		File:    app.CredentialsFile(),
	}, nil
}

func showCredentials(app *appctx.App, name string) error {
	report, err := resolveCredentials(app, name)
	if err != nil {
		return err
	}
	return app.OK(report,
		output.WithSummary(fmt.Sprintf("%s: %s auth from %s", report.Service, report.Mode, sourceLabel(report.Source))),
		output.WithBreadcrumbs(output.Breadcrumb{
			Action:      "token",
			Cmd:         "watson token status --service " + report.Service,
			Description: "Check the IAM token",
		}),
	)
}

func sourceLabel(source string) string {
	if source == "" {
		return "nowhere"
	}
	return source
}

// watchCredentials prints the credentials, then again after each change to
// the credentials file, until ctx is done. ready, when non-nil, is closed
// once the watcher is installed.
func watchCredentials(ctx context.Context, app *appctx.App, name string, ready chan<- struct{}) error {
	path := app.CredentialsFile()
	if path == "" {
		return output.ErrUsageHint("no credentials file to watch",
			"Create ibm-credentials.env in your home directory or set IBM_CREDENTIALS_FILE")
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	defer watcher.Close()

	// Watch the directory so editors that replace the file are seen.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	if ready != nil {
		close(ready)
	}

	emit := func() error {
		if err := showCredentials(app, name); err != nil {
			return app.Err(err)
		}
		return nil
	}
	if err := emit(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) {
				continue
			}
			app.Logger.Debug("credentials file changed", "path", path, "op", ev.Op.String())
			if err := emit(); err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			app.Logger.Warn("credentials watcher error", "error", err)
		}
	}
}
