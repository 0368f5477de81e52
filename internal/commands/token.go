package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/watson-developer-cloud/go-sdk/internal/appctx"
	"github.com/watson-developer-cloud/go-sdk/internal/auth"
	"github.com/watson-developer-cloud/go-sdk/internal/credentials"
	"github.com/watson-developer-cloud/go-sdk/internal/output"
	"github.com/watson-developer-cloud/go-sdk/internal/service"
)

// NewTokenCmd creates the token command.
func NewTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage IAM access tokens",
		Long: `Fetch, inspect and clear the IAM access tokens used for API key auth.

Tokens are cached in the system keyring when available, otherwise in
tokens.json under the token directory (see "watson config show").`,
	}
	cmd.AddCommand(
		newTokenGetCmd(),
		newTokenStatusCmd(),
		newTokenClearCmd(),
	)
	return cmd
}

func newTokenGetCmd() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "get [service]",
		Short: "Print a valid access token",
		Long: `Print a valid bearer token for the service, refreshing it if needed.

The raw token is printed by default for shell substitution:
  curl -H "Authorization: Bearer $(watson token get tone)" ...

Use --json or --yaml for an envelope.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(cmd)
			if err != nil {
				return err
			}
			svc, err := openForToken(app, args)
			if err != nil {
				return err
			}

			tokens := svc.TokenSource()
			if tokens == nil {
				return noTokenError(svc)
			}
			if m, ok := tokens.(*auth.IAMTokenManager); ok && refresh {
				m.Invalidate()
			}
			tok, err := tokens.Token(cmd.Context())
			if err != nil {
				return err
			}

			if app.Flags.JSON || app.Flags.YAML {
				return app.OK(map[string]string{"token": tok})
			}
			_, err = fmt.Fprintln(app.Stdout, tok)
			return err
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Ignore cached tokens and request a new one")
	return cmd
}

// tokenStatus describes a service's token without the token itself.
type tokenStatus struct {
	Service   string `json:"service"`
	Mode      string `json:"mode"`
	IAMURL    string `json:"iam_url,omitempty"`
	Token     string `json:"token,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
	ExpiresIn string `json:"expires_in,omitempty"`
	Expired   bool   `json:"expired"`
	Refresh   bool   `json:"refresh_token"`
	Storage   string `json:"storage,omitempty"`
}

func newTokenStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [service]",
		Short: "Show the IAM token state",
		Long:  "Fetch a token if none is cached and report its expiry and where it is stored. The token is masked.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(cmd)
			if err != nil {
				return err
			}
			svc, err := openForToken(app, args)
			if err != nil {
				return err
			}

			m, ok := svc.TokenSource().(*auth.IAMTokenManager)
			if !ok {
				return noTokenError(svc)
			}
			if _, err := m.Token(cmd.Context()); err != nil {
				return err
			}

			status := tokenStatus{
				Service: svc.Name(),
				Mode:    svc.Mode().String(),
				IAMURL:  m.IAMURL(),
				Storage: storageLabel(app),
			}
			summary := svc.Name() + ": caller-managed token"
			if cached := m.Cached(); cached != nil {
				exp := time.Unix(cached.Expiration, 0)
				status.Token = credentials.Mask(cached.AccessToken)
				status.ExpiresAt = exp.UTC().Format(time.RFC3339)
				status.ExpiresIn = time.Until(exp).Round(time.Second).String()
				status.Expired = time.Now().After(exp)
				status.Refresh = cached.RefreshToken != ""
				summary = fmt.Sprintf("%s: token expires in %s", svc.Name(), status.ExpiresIn)
			}

			return app.OK(status,
				output.WithSummary(summary),
				output.WithBreadcrumbs(output.Breadcrumb{
					Action:      "clear",
					Cmd:         "watson token clear " + svc.Name(),
					Description: "Forget the cached token",
				}),
			)
		},
	}
}

func newTokenClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear [service]",
		Short: "Forget the cached IAM token",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(cmd)
			if err != nil {
				return err
			}
			svc, err := openForToken(app, args)
			if err != nil {
				return err
			}
			m, ok := svc.TokenSource().(*auth.IAMTokenManager)
			if !ok {
				return noTokenError(svc)
			}

			if err := app.TokenStore().Delete(m.StoreKey()); err != nil {
				return err
			}
			m.Invalidate()

			return app.OK(map[string]string{
				"service": svc.Name(),
				"status":  "cleared",
				"storage": storageLabel(app),
			}, output.WithSummary("Cleared cached token for "+svc.Name()))
		},
	}
}

func openForToken(app *appctx.App, args []string) (*service.BaseService, error) {
	var name string
	if len(args) > 0 {
		name = args[0]
	}
	return app.NewService(name)
}

func noTokenError(svc *service.BaseService) error {
	return output.ErrUsageHint(
		fmt.Sprintf("%s uses %s auth, which has no IAM token", svc.Name(), svc.Mode()),
		"Set <SERVICE>_APIKEY to use IAM")
}

func storageLabel(app *appctx.App) string {
	s, ok := app.TokenStore().(*auth.Store)
	if !ok {
		return "memory"
	}
	if s.UsingKeyring() {
		return "keyring"
	}
	return s.Path()
}
