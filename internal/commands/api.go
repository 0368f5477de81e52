package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/watson-developer-cloud/go-sdk/internal/output"
	"github.com/watson-developer-cloud/go-sdk/internal/transport"
)

// NewAPICmd creates the api command for raw service access.
func NewAPICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "api <verb> <path>",
		Short: "Raw API access",
		Long: `Make authenticated requests to any endpoint of the selected service.

Paths are relative to the service URL. The service's version date is added
unless the query already has one.

  watson -s translator api get /v3/identifiable_languages
  watson -s tone api post /v3/tone -d '{"text":"I am happy"}'`,
	}
	cmd.AddCommand(
		newAPIVerbCmd(http.MethodGet, false),
		newAPIVerbCmd(http.MethodPost, true),
		newAPIVerbCmd(http.MethodPut, true),
		newAPIVerbCmd(http.MethodDelete, false),
	)
	return cmd
}

func newAPIVerbCmd(method string, needsBody bool) *cobra.Command {
	var (
		data    string
		query   []string
		headers []string
	)

	cmd := &cobra.Command{
		Use:   strings.ToLower(method) + " <path>",
		Short: method + " request to the service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(cmd)
			if err != nil {
				return err
			}
			svc, err := app.NewService("")
			if err != nil {
				return err
			}

			path, err := parsePath(args[0], svc.URL())
			if err != nil {
				return err
			}
			req := &transport.Request{
				Method: method,
				URL:    path,
				Operation: &transport.OperationInfo{
					Service:    svc.Name(),
					Operation:  method + " " + path,
					IsMutation: method != http.MethodGet,
				},
			}

			if needsBody && data == "" {
				return output.ErrUsage("--data is required")
			}
			if data != "" {
				var body any
				if err := json.Unmarshal([]byte(data), &body); err != nil {
					return output.ErrUsageHint("Invalid JSON data", fmt.Sprintf("JSON parse error: %v", err))
				}
				req.Body = body
			}
			if req.Query, err = parsePairs(query, "="); err != nil {
				return err
			}
			for _, h := range headers {
				k, v, ok := strings.Cut(h, ":")
				if !ok {
					return output.ErrUsage(fmt.Sprintf("invalid header %q, expected Name: value", h))
				}
				req.SetHeader(strings.TrimSpace(k), strings.TrimSpace(v))
			}

			resp, err := svc.Dispatch(cmd.Context(), req)
			if err != nil {
				return err
			}

			var result any = resp.Result
			if result == nil && len(resp.Body) > 0 {
				result = string(resp.Body)
			}
			return app.OK(result,
				output.WithSummary(fmt.Sprintf("%s %s: %s", method, path, apiSummary(result))),
				output.WithMeta("status", resp.StatusCode),
			)
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body")
	cmd.Flags().StringArrayVarP(&query, "query", "Q", nil, "Query parameter as key=value (repeatable)")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "Request header as 'Name: value' (repeatable)")
	return cmd
}

// parsePath returns a path relative to the service URL. Absolute URLs are
// accepted only under the service URL so credentials never leave it.
func parsePath(input, serviceURL string) (string, error) {
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		base := strings.TrimRight(serviceURL, "/")
		if base == "" || (input != base && !strings.HasPrefix(input, base+"/") && !strings.HasPrefix(input, base+"?")) {
			return "", output.ErrUsageHint(
				fmt.Sprintf("%s is outside the service URL", input),
				"Use a path relative to "+serviceURL)
		}
		input = strings.TrimPrefix(input, base)
	}
	if !strings.HasPrefix(input, "/") {
		input = "/" + input
	}
	return input, nil
}

// parsePairs turns key<sep>value strings into url.Values.
func parsePairs(pairs []string, sep string) (url.Values, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	values := make(url.Values, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, sep)
		if !ok || k == "" {
			return nil, output.ErrUsage(fmt.Sprintf("invalid query parameter %q, expected key%svalue", p, sep))
		}
		values.Add(k, v)
	}
	return values, nil
}

// apiSummary describes a decoded response body.
func apiSummary(data any) string {
	switch d := data.(type) {
	case nil:
		return "no content"
	case []any:
		return fmt.Sprintf("%d items", len(d))
	case string:
		return truncate(d, 50)
	case map[string]any:
		for _, key := range []string{"name", "title", "model_id", "workspace_id"} {
			if v, ok := d[key].(string); ok && v != "" {
				return truncate(v, 50)
			}
		}
		return fmt.Sprintf("%d fields", len(d))
	}
	return "API response"
}
