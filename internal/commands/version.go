package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/watson-developer-cloud/go-sdk/internal/version"
)

// NewVersionCmd creates the version command. It runs without loading
// configuration.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, version.Full())
			if !version.IsDev() {
				fmt.Fprintf(out, "commit %s, built %s\n", version.Commit, version.Date)
			}
			return nil
		},
	}
}
