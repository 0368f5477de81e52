package observability

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/watson-developer-cloud/go-sdk/internal/transport"
)

// sensitiveParams are query parameters scrubbed from trace output.
var sensitiveParams = map[string]bool{
	"access_token":  true,
	"refresh_token": true,
	"token":         true,
	"apikey":        true,
	"api_key":       true,
	"iam_apikey":    true,
	"password":      true,
	"watson-token":  true,
}

// TraceWriter writes human-readable trace lines with timestamps relative to
// session start.
type TraceWriter struct {
	mu        sync.Mutex
	writer    io.Writer
	startTime time.Time
}

// NewTraceWriter writes to stderr.
func NewTraceWriter() *TraceWriter {
	return NewTraceWriterTo(os.Stderr)
}

func NewTraceWriterTo(w io.Writer) *TraceWriter {
	return &TraceWriter{
		writer:    w,
		startTime: time.Now(),
	}
}

func (t *TraceWriter) elapsed() float64 {
	return time.Since(t.startTime).Seconds()
}

// WriteOperationStart writes "[0.234s] Calling LanguageTranslator.Translate".
func (t *TraceWriter) WriteOperationStart(op transport.OperationInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.writer, "[%.3fs] Calling %s.%s\n", t.elapsed(), op.Service, op.Operation)
}

// WriteOperationEnd writes a completion or failure line.
func (t *TraceWriter) WriteOperationEnd(op transport.OperationInfo, err error, duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err != nil {
		fmt.Fprintf(t.writer, "[%.3fs] Failed %s.%s: %v\n", t.elapsed(), op.Service, op.Operation, err)
		return
	}
	fmt.Fprintf(t.writer, "[%.3fs] Completed %s.%s (%dms)\n", t.elapsed(), op.Service, op.Operation, duration.Milliseconds())
}

// WriteRequestStart writes "[0.234s]   -> POST https://.../v3/translate [req-id]".
// Sensitive query parameters are redacted.
func (t *TraceWriter) WriteRequestStart(info transport.RequestInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()

	line := fmt.Sprintf("[%.3fs]   -> %s %s", t.elapsed(), info.Method, scrubURL(info.URL))
	if info.RequestID != "" {
		line += " [" + info.RequestID + "]"
	}
	fmt.Fprintln(t.writer, line)
}

// WriteRequestEnd writes "[0.234s]   <- 200 (45ms)" or the transport error.
func (t *TraceWriter) WriteRequestEnd(_ transport.RequestInfo, result transport.RequestResult) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if result.Error != nil && result.StatusCode == 0 {
		fmt.Fprintf(t.writer, "[%.3fs]   <- ERROR: %v\n", t.elapsed(), result.Error)
		return
	}
	fmt.Fprintf(t.writer, "[%.3fs]   <- %d (%dms)\n", t.elapsed(), result.StatusCode, result.Duration.Milliseconds())
}

// Reset restarts the relative clock.
func (t *TraceWriter) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startTime = time.Now()
}

// scrubURL redacts sensitive query parameters. Unparseable URLs are not
// echoed back.
func scrubURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "[unparseable URL]"
	}

	query := u.Query()
	modified := false
	for key := range query {
		if sensitiveParams[strings.ToLower(key)] {
			query.Set(key, "[REDACTED]")
			modified = true
		}
	}
	if !modified {
		return rawURL
	}

	u.RawQuery = query.Encode()
	return u.String()
}
