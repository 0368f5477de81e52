// Package appctx provides application context helpers.
package appctx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/watson-developer-cloud/go-sdk/internal/auth"
	"github.com/watson-developer-cloud/go-sdk/internal/config"
	"github.com/watson-developer-cloud/go-sdk/internal/credentials"
	"github.com/watson-developer-cloud/go-sdk/internal/observability"
	"github.com/watson-developer-cloud/go-sdk/internal/output"
	"github.com/watson-developer-cloud/go-sdk/internal/sdk"
	"github.com/watson-developer-cloud/go-sdk/internal/service"
	"github.com/watson-developer-cloud/go-sdk/internal/services"
	"github.com/watson-developer-cloud/go-sdk/internal/transport"
)

// contextKey is a private type for context keys.
type contextKey string

const appKey contextKey = "app"

// App holds the shared application context for all commands.
type App struct {
	Config *config.Config
	Output *output.Writer
	Logger *slog.Logger

	// Observability
	Collector *observability.SessionCollector
	Hooks     *observability.CLIHooks
	// Telemetry reports to the global OpenTelemetry providers. Nil when the
	// instruments could not be created.
	Telemetry *observability.OTelHooks

	// Flags holds the global flag values
	Flags GlobalFlags

	// Stdout and Stderr default to the process streams.
	Stdout io.Writer
	Stderr io.Writer

	// Env and ResolverOptions override credential lookup. Nil Env means the
	// process environment.
	Env             credentials.Environment
	ResolverOptions []credentials.ResolverOption

	storeOnce sync.Once
	store     sdk.TokenStore
}

// GlobalFlags holds values for global CLI flags.
type GlobalFlags struct {
	// Output format flags
	JSON   bool
	YAML   bool
	Quiet  bool
	Styled bool // Force ANSI styled output (even when piped)
	Count  bool
	JQ     string

	// Behavior flags
	Verbose int // 0=off, 1=operations, 2=operations+requests (stacks with -v -v or -vv)
	Stats   bool
	NoStats bool
}

// NewApp creates a new App with the given configuration.
func NewApp(cfg *config.Config) *App {
	// The collector always runs; hooks control trace verbosity. ApplyFlags
	// sets the actual level from -v flags.
	collector := observability.NewSessionCollector()
	hooks := observability.NewCLIHooks(0, collector, observability.NewTraceWriter())

	app := &App{
		Config:    cfg,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Collector: collector,
		Hooks:     hooks,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
	}
	if telemetry, err := observability.NewOTelHooks(nil, nil); err == nil {
		app.Telemetry = telemetry
	}
	app.Output = output.New(output.Options{Format: app.configFormat(), Writer: app.Stdout})
	return app
}

func (a *App) configFormat() output.Format {
	format, err := output.ParseFormat(a.Config.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v, using auto\n", err)
		return output.FormatAuto
	}
	return format
}

// ApplyFlags applies global flag values to the app configuration.
func (a *App) ApplyFlags() {
	format := a.configFormat()
	switch {
	case a.Flags.Count:
		format = output.FormatCount
	case a.Flags.Quiet:
		format = output.FormatQuiet
	case a.Flags.JSON:
		format = output.FormatJSON
	case a.Flags.YAML:
		format = output.FormatYAML
	case a.Flags.Styled:
		format = output.FormatStyled
	}
	a.Output = output.New(output.Options{
		Format: format,
		Writer: a.Stdout,
		JQ:     a.Flags.JQ,
	})

	// WATSON_DEBUG can be "1", "2", or "true" (treated as 2)
	level := a.Flags.Verbose
	if debugEnv := os.Getenv("WATSON_DEBUG"); debugEnv != "" {
		if n, err := strconv.Atoi(debugEnv); err == nil {
			level = max(level, n)
		} else if debugEnv == "true" {
			level = 2
		}
	}

	if a.Hooks != nil {
		a.Hooks.SetLevel(level)
	}
	if level > 0 {
		a.Logger = slog.New(slog.NewTextHandler(a.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
}

// TokenStore returns the IAM token store, probing the keyring on first use.
func (a *App) TokenStore() sdk.TokenStore {
	a.storeOnce.Do(func() {
		if a.store == nil {
			a.store = auth.NewStore(a.Config.TokenDir, !a.Config.Keyring, a.Logger)
		}
	})
	return a.store
}

// SetTokenStore replaces the token store. Call before the first TokenStore.
func (a *App) SetTokenStore(s sdk.TokenStore) {
	a.store = s
}

// ServiceName returns name, or the configured default service when name is
// empty. Catalog aliases resolve to the credential name.
func (a *App) ServiceName(name string) (string, error) {
	if name == "" {
		name = a.Config.Service
	}
	if name == "" {
		return "", output.ErrUsageHint("no service selected", "Pass --service or set WATSON_SERVICE")
	}
	if e, ok := services.Lookup(name); ok {
		return e.Name, nil
	}
	return name, nil
}

// ServiceOptions builds service options for name from the CLI config.
// Credentials are left empty so the resolver reads them from the
// credentials file, environment and VCAP_SERVICES.
func (a *App) ServiceOptions(name string) (service.Options, error) {
	timeout, err := a.Config.TimeoutDuration()
	if err != nil {
		return service.Options{}, output.ErrUsage(err.Error())
	}

	opts := service.Options{
		URL:                    a.Config.URL,
		IAMURL:                 a.Config.IAMURL,
		DisableSSLVerification: a.Config.DisableSSL,
		LearningOptOut:         a.Config.LearningOptOut,
		Version:                a.Config.VersionFor(name),
		Environment:            a.Env,
		ResolverOptions:        a.ResolverOptions,
		Timeout:                timeout,
		Hooks:                  a.serviceHooks(),
		Logger:                 a.Logger,
		TokenStore:             a.TokenStore(),
	}
	if e, ok := services.Lookup(name); ok {
		opts.DefaultURL = e.DefaultURL
		if opts.Version == "" {
			opts.Version = e.DefaultVersion
		}
	}
	return opts, nil
}

func (a *App) serviceHooks() transport.Hooks {
	var hooks []transport.Hooks
	if a.Hooks != nil {
		hooks = append(hooks, a.Hooks)
	}
	if a.Telemetry != nil {
		hooks = append(hooks, a.Telemetry)
	}
	return transport.ChainHooks(hooks...)
}

// NewService resolves credentials for name and returns a ready service.
func (a *App) NewService(name string) (*service.BaseService, error) {
	name, err := a.ServiceName(name)
	if err != nil {
		return nil, err
	}
	opts, err := a.ServiceOptions(name)
	if err != nil {
		return nil, err
	}
	if _, ok := services.Lookup(name); ok {
		return services.Open(name, opts)
	}
	return service.New(name, opts)
}

// CredentialsFile returns the credentials file the resolver would read, or
// "" when none exists.
func (a *App) CredentialsFile() string {
	env := a.Env
	if env == nil {
		env = credentials.EnvironmentFromOS()
	}
	return credentials.NewResolver(env, a.ResolverOptions...).File()
}

// OK outputs a success response, including stats when --stats is set.
func (a *App) OK(data any, opts ...output.ResponseOption) error {
	if a.Flags.Stats && a.Collector != nil {
		opts = append(opts, output.WithMeta("stats", a.Collector.Summary().ToMap()))
	}
	return a.Output.OK(data, opts...)
}

// Err outputs an error response, printing stats to stderr if --stats is set.
func (a *App) Err(err error) error {
	if outputErr := a.Output.Err(err); outputErr != nil {
		return outputErr
	}

	// Machine-consumable modes keep stderr clean.
	if a.Flags.Stats && a.Collector != nil && !a.isMachineOutput() {
		a.printStatsToStderr(a.Collector.Summary())
	}
	return nil
}

// isMachineOutput reports whether the output mode is intended for
// programmatic consumption, from flags or config.
func (a *App) isMachineOutput() bool {
	if a.Flags.Quiet || a.Flags.Count || a.Flags.JQ != "" {
		return true
	}
	return a.Config != nil && (a.Config.Format == "quiet" || a.Config.Format == "count")
}

func (a *App) printStatsToStderr(stats observability.SessionMetrics) {
	if parts := stats.FormatParts(); len(parts) > 0 {
		fmt.Fprintf(a.Stderr, "\nStats: %s\n", strings.Join(parts, " | "))
	}
}

// WithApp stores the app in the context.
func WithApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appKey, app)
}

// FromContext retrieves the app from the context.
func FromContext(ctx context.Context) *App {
	app, _ := ctx.Value(appKey).(*App)
	return app
}
