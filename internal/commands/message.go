package commands

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/watson-developer-cloud/go-sdk/internal/appctx"
	"github.com/watson-developer-cloud/go-sdk/internal/completion"
	"github.com/watson-developer-cloud/go-sdk/internal/output"
	"github.com/watson-developer-cloud/go-sdk/internal/services"
	"github.com/watson-developer-cloud/go-sdk/internal/services/assistant"
)

// messageReply is the trimmed view of one Assistant turn.
type messageReply struct {
	Text     []string                  `json:"text"`
	Intents  []assistant.RuntimeIntent `json:"intents,omitempty"`
	Entities []assistant.RuntimeEntity `json:"entities,omitempty"`
	Context  map[string]any            `json:"context,omitempty"`
}

// NewMessageCmd creates the message command.
func NewMessageCmd() *cobra.Command {
	var contextJSON string
	var withContext bool

	cmd := &cobra.Command{
		Use:   "message <workspace> [text...]",
		Short: "Send a message to an Assistant workspace",
		Long: `Send one user turn to an Assistant workspace and print the reply.

Pass the context of the previous turn with --context to continue a
conversation:
  watson message 9978a49e "hello"
  watson message 9978a49e --context "$(cat ctx.json)" "book a table"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(cmd)
			if err != nil {
				return err
			}
			text, err := textInput(cmd, args[1:])
			if err != nil {
				return err
			}

			params := &assistant.MessageParams{
				WorkspaceID: args[0],
				Input:       &assistant.MessageInput{Text: text},
			}
			if contextJSON != "" {
				if err := json.Unmarshal([]byte(contextJSON), &params.Context); err != nil {
					return output.ErrUsageHint("invalid --context", "Pass the JSON object returned as \"context\" by the previous turn")
				}
			}

			client, err := openAssistant(app)
			if err != nil {
				return err
			}
			resp, err := client.Message(cmd.Context(), params)
			if err != nil {
				return err
			}

			reply := messageReply{
				Text:     replyText(resp.Output),
				Intents:  resp.Intents,
				Entities: resp.Entities,
			}
			if withContext || contextJSON != "" {
				reply.Context = resp.Context
			}
			return app.OK(reply, output.WithSummary(messageSummary(resp)))
		},
	}

	completer := completion.NewCompleter(nil)
	cmd.ValidArgsFunction = completer.WorkspaceCompletion()
	cmd.Flags().StringVar(&contextJSON, "context", "", "Conversation context JSON from the previous turn")
	cmd.Flags().BoolVar(&withContext, "with-context", false, "Include the returned context in the output")
	return cmd
}

// NewWorkspacesCmd creates the workspaces command.
func NewWorkspacesCmd() *cobra.Command {
	var (
		limit  int
		sortBy string
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "workspaces",
		Short: "List Assistant workspaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(cmd)
			if err != nil {
				return err
			}
			client, err := openAssistant(app)
			if err != nil {
				return err
			}

			params := &assistant.ListWorkspacesParams{PageLimit: limit, Sort: sortBy, Cursor: cursor}
			list, err := client.ListWorkspaces(cmd.Context(), params)
			if err != nil {
				return err
			}

			// A first page listed without a limit is the full set.
			if cursor == "" && limit == 0 && list.Pagination.NextCursor == "" {
				store := completion.NewStore(completion.DefaultCacheDirFunc(cmd))
				if err := store.UpdateWorkspaces(completion.CachedWorkspaces(list.Workspaces)); err != nil {
					app.Logger.Debug("completion cache not updated", "error", err)
				}
			}

			opts := []output.ResponseOption{
				output.WithSummary(fmt.Sprintf("%d workspaces", len(list.Workspaces))),
			}
			if next := list.Pagination.NextCursor; next != "" {
				opts = append(opts,
					output.WithMeta("next_cursor", next),
					output.WithBreadcrumbs(output.Breadcrumb{
						Action:      "next",
						Cmd:         "watson workspaces --cursor " + next,
						Description: "Next page",
					}),
				)
			} else {
				opts = append(opts, output.WithBreadcrumbs(output.Breadcrumb{
					Action:      "message",
					Cmd:         "watson message <workspace> <text>",
					Description: "Talk to a workspace",
				}))
			}
			return app.OK(list.Workspaces, opts...)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Page size")
	cmd.Flags().StringVar(&sortBy, "sort", "", "Sort by name, updated, -name or -updated")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Cursor from a previous page")
	_ = cmd.RegisterFlagCompletionFunc("sort", cobra.FixedCompletions(
		[]string{"name", "updated", "-name", "-updated"}, cobra.ShellCompDirectiveNoFileComp))
	return cmd
}

func openAssistant(app *appctx.App) (*assistant.V1, error) {
	opts, err := app.ServiceOptions(services.Assistant)
	if err != nil {
		return nil, err
	}
	return assistant.New(opts)
}

// replyText pulls the text lines out of a message output. The service
// returns them as a list under "text", older workspaces as a plain string.
func replyText(out map[string]any) []string {
	switch v := out["text"].(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []any:
		lines := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				lines = append(lines, s)
			}
		}
		return lines
	}
	return nil
}

func messageSummary(resp *assistant.MessageResponse) string {
	var parts []string
	if len(resp.Intents) > 0 {
		intents := append([]assistant.RuntimeIntent(nil), resp.Intents...)
		sort.SliceStable(intents, func(i, j int) bool { return intents[i].Confidence > intents[j].Confidence })
		parts = append(parts, fmt.Sprintf("#%s (%.2f)", intents[0].Intent, intents[0].Confidence))
	}
	if n := len(resp.Entities); n > 0 {
		parts = append(parts, fmt.Sprintf("%d entities", n))
	}
	if len(parts) == 0 {
		return "No intent recognized"
	}
	return strings.Join(parts, ", ")
}
