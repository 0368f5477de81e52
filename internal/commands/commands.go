package commands

import (
	"github.com/spf13/cobra"

	"github.com/watson-developer-cloud/go-sdk/internal/output"
)

// CommandInfo describes a CLI command.
type CommandInfo struct {
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Actions     []string `json:"actions,omitempty"`
}

// CommandCategory groups commands by category.
type CommandCategory struct {
	Name     string        `json:"name"`
	Commands []CommandInfo `json:"commands"`
}

// commandCategories returns all command categories for the catalog.
func commandCategories() []CommandCategory {
	return []CommandCategory{
		{
			Name: "Services",
			Commands: []CommandInfo{
				{Name: "tone", Category: "services", Description: "Analyze the tone of text"},
				{Name: "translate", Category: "services", Description: "Translate text", Actions: []string{"models"}},
				{Name: "message", Category: "services", Description: "Send a message to an Assistant workspace"},
				{Name: "workspaces", Category: "services", Description: "List Assistant workspaces"},
				{Name: "services", Category: "services", Description: "List the services with built-in clients"},
				{Name: "api", Category: "services", Description: "Raw authenticated API access", Actions: []string{"get", "post", "put", "delete"}},
			},
		},
		{
			Name: "Auth & Config",
			Commands: []CommandInfo{
				{Name: "credentials", Category: "auth", Description: "Inspect resolved service credentials", Actions: []string{"show"}},
				{Name: "token", Category: "auth", Description: "Manage IAM access tokens", Actions: []string{"get", "status", "clear"}},
				{Name: "config", Category: "auth", Description: "Manage configuration", Actions: []string{"show", "init", "set", "unset"}},
			},
		},
		{
			Name: "Additional Commands",
			Commands: []CommandInfo{
				{Name: "commands", Category: "additional", Description: "List all commands"},
				{Name: "completion", Category: "additional", Description: "Generate shell completions", Actions: []string{"bash", "zsh", "fish", "powershell", "refresh", "status"}},
				{Name: "help", Category: "additional", Description: "Show help"},
				{Name: "version", Category: "additional", Description: "Show version"},
			},
		},
	}
}

// CatalogCommandNames returns all command names from the catalog.
func CatalogCommandNames() []string {
	var names []string
	for _, cat := range commandCategories() {
		for _, cmd := range cat.Commands {
			names = append(names, cmd.Name)
		}
	}
	return names
}

// All returns every top-level command, in catalog order.
func All() []*cobra.Command {
	return []*cobra.Command{
		NewToneCmd(),
		NewTranslateCmd(),
		NewMessageCmd(),
		NewWorkspacesCmd(),
		NewServicesCmd(),
		NewAPICmd(),
		NewCredentialsCmd(),
		NewTokenCmd(),
		NewConfigCmd(),
		NewCommandsCmd(),
		NewCompletionCmd(),
		NewVersionCmd(),
	}
}

// NewCommandsCmd creates the commands listing command.
func NewCommandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "commands",
		Aliases: []string{"cmds"},
		Short:   "List all available commands",
		Long:    "List all available watson commands organized by category.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(cmd)
			if err != nil {
				return err
			}
			return app.OK(commandCategories(),
				output.WithSummary("All available watson commands"),
				output.WithBreadcrumbs(output.Breadcrumb{
					Action:      "help",
					Cmd:         "watson --help",
					Description: "View help",
				}),
			)
		},
	}
}
