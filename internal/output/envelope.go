package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/itchyny/gojq"
	"gopkg.in/yaml.v3"
)

// Response is the success envelope for JSON and YAML output.
type Response struct {
	OK          bool           `json:"ok" yaml:"ok"`
	Data        any            `json:"data,omitempty" yaml:"data,omitempty"`
	Summary     string         `json:"summary,omitempty" yaml:"summary,omitempty"`
	Breadcrumbs []Breadcrumb   `json:"breadcrumbs,omitempty" yaml:"breadcrumbs,omitempty"`
	Meta        map[string]any `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// Breadcrumb is a suggested follow-up action.
type Breadcrumb struct {
	Action      string `json:"action" yaml:"action"`
	Cmd         string `json:"cmd" yaml:"cmd"`
	Description string `json:"description" yaml:"description"`
}

// ErrorResponse is the error envelope.
type ErrorResponse struct {
	OK         bool   `json:"ok" yaml:"ok"`
	Error      string `json:"error" yaml:"error"`
	Code       string `json:"code" yaml:"code"`
	Hint       string `json:"hint,omitempty" yaml:"hint,omitempty"`
	HTTPStatus int    `json:"status,omitempty" yaml:"status,omitempty"`
}

// Format specifies the output format.
type Format int

const (
	FormatAuto   Format = iota // TTY → Styled, otherwise JSON
	FormatJSON                 // Full envelope as indented JSON
	FormatYAML                 // Full envelope as YAML
	FormatStyled               // ANSI styled output, even when piped
	FormatQuiet                // Data only, as JSON
	FormatCount                // Number of items in data
)

// ParseFormat maps a config or flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "auto":
		return FormatAuto, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "styled", "pretty":
		return FormatStyled, nil
	case "quiet", "raw":
		return FormatQuiet, nil
	case "count":
		return FormatCount, nil
	default:
		return FormatAuto, ErrUsageHint(fmt.Sprintf("unknown output format %q", s), "Use one of: auto, json, yaml, styled, quiet, count")
	}
}

// Options controls output behavior.
type Options struct {
	Format Format
	Writer io.Writer
	// JQ, when set, filters Data through a jq program before it is written.
	JQ string
}

// DefaultOptions returns options for standard output.
func DefaultOptions() Options {
	return Options{
		Format: FormatAuto,
		Writer: os.Stdout,
	}
}

// Writer handles all output formatting.
type Writer struct {
	opts Options
}

// New creates a new output writer.
func New(opts Options) *Writer {
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}
	return &Writer{opts: opts}
}

// OK outputs a success response.
func (w *Writer) OK(data any, opts ...ResponseOption) error {
	resp := &Response{OK: true, Data: data}
	for _, opt := range opts {
		opt(resp)
	}
	if w.opts.JQ != "" {
		filtered, err := ApplyJQ(w.opts.JQ, resp.Data)
		if err != nil {
			return err
		}
		resp.Data = filtered
	}
	return w.write(resp)
}

// Err outputs an error response.
func (w *Writer) Err(err error) error {
	e := AsError(err)
	return w.write(&ErrorResponse{
		OK:         false,
		Error:      e.Message,
		Code:       e.Code,
		Hint:       e.Hint,
		HTTPStatus: e.HTTPStatus,
	})
}

func (w *Writer) write(v any) error {
	format := w.opts.Format
	if format == FormatAuto {
		if isTTY(w.opts.Writer) {
			format = FormatStyled
		} else {
			format = FormatJSON
		}
	}

	switch format {
	case FormatQuiet:
		if resp, ok := v.(*Response); ok {
			return w.writeJSON(resp.Data)
		}
		return w.writeJSON(v)
	case FormatCount:
		return w.writeCount(v)
	case FormatYAML:
		return w.writeYAML(v)
	case FormatStyled:
		return w.writeStyled(v)
	default:
		return w.writeJSON(v)
	}
}

func isTTY(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(f.Fd())
	}
	return false
}

func (w *Writer) writeJSON(v any) error {
	enc := json.NewEncoder(w.opts.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeYAML normalizes through JSON first so typed results use their json
// field names rather than yaml.v3's lowercased Go names.
func (w *Writer) writeYAML(v any) error {
	var doc any = v
	switch resp := v.(type) {
	case *Response:
		cp := *resp
		cp.Data = NormalizeData(resp.Data)
		doc = &cp
	case *ErrorResponse:
	default:
		doc = NormalizeData(v)
	}
	enc := yaml.NewEncoder(w.opts.Writer)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

func (w *Writer) writeCount(v any) error {
	resp, ok := v.(*Response)
	if !ok {
		return w.writeJSON(v)
	}

	switch d := NormalizeData(resp.Data).(type) {
	case []any:
		fmt.Fprintln(w.opts.Writer, len(d))
	case []map[string]any:
		fmt.Fprintln(w.opts.Writer, len(d))
	case nil:
		fmt.Fprintln(w.opts.Writer, 0)
	default:
		fmt.Fprintln(w.opts.Writer, 1)
	}
	return nil
}

func (w *Writer) writeStyled(v any) error {
	r := NewRenderer(w.opts.Writer, w.opts.Format == FormatStyled)
	switch resp := v.(type) {
	case *Response:
		return r.RenderResponse(w.opts.Writer, resp)
	case *ErrorResponse:
		return r.RenderError(w.opts.Writer, resp)
	default:
		return w.writeJSON(v)
	}
}

// NormalizeData converts typed values and json.RawMessage into the generic
// JSON shapes (map[string]any, []any, float64, ...). Slices whose elements
// are all objects become []map[string]any.
func NormalizeData(data any) any {
	var generic any
	switch d := data.(type) {
	case nil:
		return nil
	case []map[string]any:
		return d
	case map[string]any:
		return normalizeObject(d)
	case []any:
		return normalizeUnmarshaled(d)
	case json.RawMessage:
		if err := json.Unmarshal(d, &generic); err != nil {
			return data
		}
	default:
		b, err := json.Marshal(data)
		if err != nil {
			return data
		}
		if err := json.Unmarshal(b, &generic); err != nil {
			return data
		}
	}
	return normalizeUnmarshaled(generic)
}

func normalizeUnmarshaled(v any) any {
	switch d := v.(type) {
	case []any:
		if len(d) == 0 {
			return []map[string]any{}
		}
		maps := make([]map[string]any, 0, len(d))
		for _, item := range d {
			m, ok := item.(map[string]any)
			if !ok {
				return v
			}
			maps = append(maps, normalizeObject(m))
		}
		return maps
	case map[string]any:
		return normalizeObject(d)
	default:
		return v
	}
}

// normalizeObject applies normalizeUnmarshaled one level down so nested
// result lists render as tables. m is not modified.
func normalizeObject(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if list, ok := v.([]any); ok && len(list) > 0 {
			v = normalizeUnmarshaled(list)
		}
		out[k] = v
	}
	return out
}

// ApplyJQ runs a jq program over data. A program yielding one value returns
// it; several values are collected into a slice.
func ApplyJQ(program string, data any) (any, error) {
	query, err := gojq.Parse(program)
	if err != nil {
		return nil, ErrUsageHint("invalid --jq expression: "+err.Error(), "See https://jqlang.github.io/jq/manual/")
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, ErrUsage("invalid --jq expression: " + err.Error())
	}

	input, err := jqInput(data)
	if err != nil {
		return nil, err
	}

	var results []any
	iter := code.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			if halt, ok := err.(*gojq.HaltError); ok && halt.Value() == nil {
				break
			}
			return nil, ErrUsage("--jq: " + err.Error())
		}
		results = append(results, v)
	}

	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return results, nil
	}
}

// jqInput converts data into the value types gojq accepts.
func jqInput(data any) (any, error) {
	if data == nil {
		return nil, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding data for --jq: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("decoding data for --jq: %w", err)
	}
	return v, nil
}

// ResponseOption modifies a Response.
type ResponseOption func(*Response)

// WithSummary adds a summary to the response.
func WithSummary(s string) ResponseOption {
	return func(r *Response) { r.Summary = s }
}

// WithBreadcrumbs adds breadcrumbs to the response.
func WithBreadcrumbs(b ...Breadcrumb) ResponseOption {
	return func(r *Response) { r.Breadcrumbs = append(r.Breadcrumbs, b...) }
}

// WithMeta adds metadata to the response.
func WithMeta(key string, value any) ResponseOption {
	return func(r *Response) {
		if r.Meta == nil {
			r.Meta = make(map[string]any)
		}
		r.Meta[key] = value
	}
}
