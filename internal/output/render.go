package output

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/charmbracelet/x/term"

	"github.com/watson-developer-cloud/go-sdk/internal/observability"
)

// Palette used when styling is on.
var (
	colorPrimary = lipgloss.Color("#4589ff")
	colorText    = lipgloss.Color("#f4f4f4")
	colorMuted   = lipgloss.Color("#8d8d8d")
	colorError   = lipgloss.Color("#fa4d56")
	colorSuccess = lipgloss.Color("#42be65")
)

// Renderer handles styled terminal output.
type Renderer struct {
	width int
	// styled emits ANSI styling. downsample routes the result through
	// lipgloss so colors follow the terminal profile and NO_COLOR.
	styled     bool
	downsample bool

	Summary   lipgloss.Style
	Muted     lipgloss.Style
	Data      lipgloss.Style
	Error     lipgloss.Style
	Hint      lipgloss.Style
	Success   lipgloss.Style
	Header    lipgloss.Style
	Cell      lipgloss.Style
	CellMuted lipgloss.Style
}

// NewRenderer creates a renderer for w. Styling is enabled when w is a TTY,
// or unconditionally when forceStyled is true.
func NewRenderer(w io.Writer, forceStyled bool) *Renderer {
	width, isTTY := terminalInfo(w)
	r := &Renderer{
		width:      width,
		styled:     isTTY || forceStyled,
		downsample: isTTY && !forceStyled,
	}

	plain := lipgloss.NewStyle()
	fg := func(c color.Color) lipgloss.Style {
		if !r.styled {
			return plain
		}
		return plain.Foreground(c)
	}
	r.Summary = fg(colorPrimary).Bold(r.styled)
	r.Muted = fg(colorMuted)
	r.Data = fg(colorText)
	r.Error = fg(colorError).Bold(r.styled)
	r.Hint = fg(colorMuted).Italic(r.styled)
	r.Success = fg(colorSuccess)
	r.Header = fg(colorText).Bold(r.styled)
	r.Cell = fg(colorText)
	r.CellMuted = fg(colorMuted)
	return r
}

// terminalInfo returns the terminal width and whether the writer is a TTY.
func terminalInfo(w io.Writer) (width int, isTTY bool) {
	width = 80

	if f, ok := w.(*os.File); ok {
		if tw, _, err := term.GetSize(f.Fd()); err == nil && tw >= 40 {
			width = tw
		}
		isTTY = term.IsTerminal(f.Fd())
	}
	return width, isTTY
}

func (r *Renderer) flush(w io.Writer, s string) error {
	if r.downsample {
		_, err := lipgloss.Fprint(w, s)
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// RenderResponse renders a success response to the writer.
func (r *Renderer) RenderResponse(w io.Writer, resp *Response) error {
	var b strings.Builder

	if resp.Summary != "" {
		b.WriteString(r.Summary.Render(resp.Summary))
		b.WriteString("\n\n")
	}

	r.renderData(&b, NormalizeData(resp.Data))

	if len(resp.Breadcrumbs) > 0 {
		b.WriteString("\n")
		r.renderBreadcrumbs(&b, resp.Breadcrumbs)
	}

	if stats := extractStats(resp.Meta); stats != nil {
		b.WriteString("\n")
		r.renderStats(&b, stats)
	}

	return r.flush(w, b.String())
}

// RenderError renders an error response to the writer.
func (r *Renderer) RenderError(w io.Writer, resp *ErrorResponse) error {
	var b strings.Builder

	b.WriteString(r.Error.Render("Error: " + resp.Error))
	b.WriteString("\n")
	if resp.Hint != "" {
		b.WriteString(r.Hint.Render("Hint: " + resp.Hint))
		b.WriteString("\n")
	}

	return r.flush(w, b.String())
}

func (r *Renderer) renderData(b *strings.Builder, data any) {
	switch d := data.(type) {
	case []map[string]any:
		if len(d) == 0 {
			b.WriteString(r.Muted.Render("(no results)"))
			b.WriteString("\n")
			return
		}
		r.renderTable(b, d)

	case map[string]any:
		r.renderObject(b, d)

	case []any:
		if len(d) == 0 {
			b.WriteString(r.Muted.Render("(no results)"))
			b.WriteString("\n")
			return
		}
		r.renderList(b, d)

	case string:
		b.WriteString(r.Data.Render(d))
		b.WriteString("\n")

	case nil:
		b.WriteString(r.Muted.Render("(no data)"))
		b.WriteString("\n")

	default:
		b.WriteString(r.Data.Render(fmt.Sprintf("%v", data)))
		b.WriteString("\n")
	}
}

// Column priority for table and object rendering (lower = higher priority).
var columnPriority = map[string]int{
	"model_id":     1,
	"workspace_id": 1,
	"tone_id":      1,
	"service":      1,
	"name":         2,
	"title":        2,
	"tone_name":    2,
	"translation":  2,
	"source":       3,
	"target":       3,
	"score":        3,
	"mode":         3,
	"status":       4,
	"language":     4,
	"url":          5,
	"description":  7,
	"created":      8,
	"updated":      9,
}

var mutedColumns = map[string]bool{
	"model_id":     true,
	"workspace_id": true,
	"created":      true,
	"updated":      true,
}

type column struct {
	key      string
	header   string
	priority int
	muted    bool
	width    int
}

func (r *Renderer) renderTable(b *strings.Builder, data []map[string]any) {
	columns := r.selectColumns(detectColumns(data), data)
	if len(columns) == 0 {
		return
	}

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return r.Header
			}
			if col < len(columns) && columns[col].muted {
				return r.CellMuted
			}
			return r.Cell
		})

	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = col.header
	}
	t.Headers(headers...)

	for _, item := range data {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = formatDateValue(col.key, item[col.key])
		}
		t.Row(row...)
	}

	b.WriteString(t.String())
	b.WriteString("\n")
}

// detectColumns takes the scalar keys of the first row, ordered by priority
// then name.
func detectColumns(data []map[string]any) []column {
	if len(data) == 0 {
		return nil
	}
	var cols []column
	for key, val := range data[0] {
		switch val.(type) {
		case map[string]any, []map[string]any, []any:
			continue
		}
		cols = append(cols, column{
			key:      key,
			header:   formatHeader(key),
			priority: priorityOf(key),
			muted:    mutedColumns[key],
		})
	}
	sort.Slice(cols, func(i, j int) bool {
		if cols[i].priority != cols[j].priority {
			return cols[i].priority < cols[j].priority
		}
		return cols[i].key < cols[j].key
	})
	return cols
}

func priorityOf(key string) int {
	if p := columnPriority[key]; p != 0 {
		return p
	}
	return 50
}

// selectColumns drops low-priority columns until the table fits the width.
func (r *Renderer) selectColumns(cols []column, data []map[string]any) []column {
	for i := range cols {
		cols[i].width = lipgloss.Width(cols[i].header)
		for _, row := range data {
			if w := lipgloss.Width(formatCell(row[cols[i].key])); w > cols[i].width {
				cols[i].width = w
			}
		}
		if cols[i].width > 40 {
			cols[i].width = 40
		}
	}

	const padding = 2
	selected := cols
	for len(selected) > 1 {
		total := 0
		for _, col := range selected {
			total += col.width + padding
		}
		if total <= r.width {
			break
		}
		selected = selected[:len(selected)-1]
	}
	return selected
}

func (r *Renderer) renderObject(b *strings.Builder, data map[string]any) {
	type field struct {
		key      string
		priority int
	}
	var fields []field
	var nested []string
	for k, v := range data {
		switch v.(type) {
		case map[string]any, []map[string]any:
			nested = append(nested, k)
			continue
		}
		fields = append(fields, field{key: k, priority: priorityOf(k)})
	}
	sort.Slice(fields, func(i, j int) bool {
		if fields[i].priority != fields[j].priority {
			return fields[i].priority < fields[j].priority
		}
		return fields[i].key < fields[j].key
	})

	if len(fields) == 0 && len(nested) == 0 {
		b.WriteString(r.Muted.Render("(no data)"))
		b.WriteString("\n")
		return
	}

	maxLen := 0
	for _, f := range fields {
		if l := len(formatHeader(f.key)); l > maxLen {
			maxLen = l
		}
	}
	for _, f := range fields {
		label := r.Muted.Render(fmt.Sprintf("%-*s: ", maxLen, formatHeader(f.key)))
		style := r.Data
		if mutedColumns[f.key] {
			style = r.CellMuted
		}
		b.WriteString(label + style.Render(formatDateValue(f.key, data[f.key])) + "\n")
	}

	// Nested lists of objects (translations, tones, workspaces) render as
	// their own tables below the scalar fields.
	sort.Strings(nested)
	for _, k := range nested {
		rows, ok := data[k].([]map[string]any)
		if !ok || len(rows) == 0 {
			continue
		}
		b.WriteString("\n")
		b.WriteString(r.Summary.Render(formatHeader(k)))
		b.WriteString("\n")
		r.renderTable(b, rows)
	}
}

func (r *Renderer) renderList(b *strings.Builder, data []any) {
	for _, item := range data {
		b.WriteString(r.Data.Render("• " + formatCell(item)))
		b.WriteString("\n")
	}
}

func (r *Renderer) renderBreadcrumbs(b *strings.Builder, crumbs []Breadcrumb) {
	b.WriteString(r.Muted.Render("Next:"))
	b.WriteString("\n")
	for _, bc := range crumbs {
		cmd := r.Muted.Render("  " + bc.Cmd)
		if bc.Description != "" {
			cmd += r.Muted.Render("  # " + bc.Description)
		}
		b.WriteString(cmd + "\n")
	}
}

// renderStats renders session statistics in a compact one-liner.
func (r *Renderer) renderStats(b *strings.Builder, stats map[string]any) {
	parts := observability.SessionMetricsFromMap(stats).FormatParts()
	if len(parts) > 0 {
		b.WriteString(r.Muted.Render("Stats: " + strings.Join(parts, " | ")))
		b.WriteString("\n")
	}
}

func extractStats(meta map[string]any) map[string]any {
	if meta == nil {
		return nil
	}
	stats, _ := meta["stats"].(map[string]any)
	return stats
}

func formatHeader(key string) string {
	words := strings.Fields(strings.ReplaceAll(key, "_", " "))
	for i, w := range words {
		switch w {
		case "id", "url":
			words[i] = strings.ToUpper(w)
		default:
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func formatCell(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		if len(v) > 40 {
			return v[:37] + "..."
		}
		return v
	case bool:
		if v {
			return "yes"
		}
		return "no"
	case float64:
		if v == float64(int(v)) {
			return fmt.Sprintf("%d", int(v))
		}
		return fmt.Sprintf("%.2f", v)
	case int, int64:
		return fmt.Sprintf("%d", v)
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			items = append(items, formatCell(item))
		}
		return strings.Join(items, ", ")
	default:
		return fmt.Sprintf("%v", v)
	}
}

// formatDateValue shows RFC 3339 timestamps in created/updated columns as
// relative times for the last week and as dates otherwise.
func formatDateValue(key string, val any) string {
	isDate := key == "created" || key == "updated" || strings.HasSuffix(key, "_at")
	str, ok := val.(string)
	if !isDate || !ok || str == "" {
		return formatCell(val)
	}

	t, err := time.Parse(time.RFC3339, str)
	if err != nil {
		return formatCell(val)
	}

	diff := time.Since(t)
	switch {
	case diff < 0:
		return t.Format("Jan 2, 2006")
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return pluralAgo(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return pluralAgo(int(diff.Hours()), "hour")
	case diff < 48*time.Hour:
		return "yesterday"
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}

func pluralAgo(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
