package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/watson-developer-cloud/go-sdk/internal/credentials"
	"github.com/watson-developer-cloud/go-sdk/internal/output"
	"github.com/watson-developer-cloud/go-sdk/internal/services"
)

// serviceRow is one catalog entry with the settings the CLI would use.
type serviceRow struct {
	Name    string `json:"name"`
	Title   string `json:"title"`
	Aliases string `json:"aliases,omitempty"`
	Version string `json:"version"`
	URL     string `json:"url"`
	EnvKey  string `json:"env_prefix"`
}

// NewServicesCmd creates the services command.
func NewServicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "services",
		Short: "List the services with built-in clients",
		Long: `List the services the CLI ships clients for, with the version date and
default URL each one uses. Any other service name still works with
"watson api" and "watson credentials".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(cmd)
			if err != nil {
				return err
			}

			entries := services.All()
			rows := make([]serviceRow, 0, len(entries))
			for _, e := range entries {
				version := app.Config.VersionFor(e.Name)
				if version == "" {
					version = e.DefaultVersion
				}
				rows = append(rows, serviceRow{
					Name:    e.Name,
					Title:   e.Title,
					Aliases: strings.Join(e.Aliases, ", "),
					Version: version,
					URL:     e.DefaultURL,
					EnvKey:  credentials.Prefix(e.Name) + "_",
				})
			}

			return app.OK(rows,
				output.WithSummary(fmt.Sprintf("%d services", len(rows))),
				output.WithBreadcrumbs(output.Breadcrumb{
					Action:      "credentials",
					Cmd:         "watson credentials show <service>",
					Description: "Show resolved credentials",
				}),
			)
		},
	}
}
