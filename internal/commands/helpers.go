package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/watson-developer-cloud/go-sdk/internal/appctx"
	"github.com/watson-developer-cloud/go-sdk/internal/output"
)

// maxStdinText bounds text read from stdin for analysis commands.
const maxStdinText = 1 << 20

// requireApp returns the app from the command context.
func requireApp(cmd *cobra.Command) (*appctx.App, error) {
	app := appctx.FromContext(cmd.Context())
	if app == nil {
		return nil, fmt.Errorf("app not initialized")
	}
	return app, nil
}

// textInput joins args into one string, or reads stdin when args is empty
// or "-".
func textInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), maxStdinText))
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			return "", output.ErrUsageHint("no text given", "Pass text as arguments or pipe it on stdin")
		}
		return text, nil
	}
	return strings.Join(args, " "), nil
}

// truncate shortens s to n runes for summaries.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func boolPtr(b bool) *bool { return &b }
