// Package observability records metrics and trace output for service calls
// made by the watson CLI.
package observability

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RequestMetrics describes one HTTP exchange.
type RequestMetrics struct {
	Method     string
	URL        string
	RequestID  string
	StatusCode int
	Duration   time.Duration
	Error      error
}

// OperationMetrics describes one service operation, e.g. LanguageTranslator.Translate.
type OperationMetrics struct {
	Service    string
	Operation  string
	IsMutation bool
	Duration   time.Duration
	Error      error
}

// SessionMetrics aggregates a whole CLI session.
type SessionMetrics struct {
	StartTime       time.Time
	EndTime         time.Time
	TotalRequests   int
	FailedRequests  int
	TotalOperations int
	FailedOps       int
	TotalLatency    time.Duration
	// StatusCounts counts responses by HTTP status. Network failures are
	// counted under 0.
	StatusCounts map[int]int
}

// SessionCollector accumulates metrics across a CLI session. It keeps
// counters rather than per-request records and is safe for concurrent use.
type SessionCollector struct {
	mu sync.Mutex

	startTime       time.Time
	totalRequests   int
	failedRequests  int
	totalOperations int
	failedOps       int
	totalLatency    time.Duration
	statusCounts    map[int]int
}

func NewSessionCollector() *SessionCollector {
	return &SessionCollector{
		startTime:    time.Now(),
		statusCounts: make(map[int]int),
	}
}

// RecordRequest counts an HTTP exchange. Transport failures and non-2xx
// statuses count as failed.
func (c *SessionCollector) RecordRequest(m RequestMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
	c.totalLatency += m.Duration
	c.statusCounts[m.StatusCode]++
	if m.Error != nil || m.StatusCode < 200 || m.StatusCode > 299 {
		c.failedRequests++
	}
}

func (c *SessionCollector) RecordOperation(m OperationMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalOperations++
	if m.Error != nil {
		c.failedOps++
	}
}

// Summary returns a snapshot of the session so far.
func (c *SessionCollector) Summary() SessionMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	counts := make(map[int]int, len(c.statusCounts))
	for k, v := range c.statusCounts {
		counts[k] = v
	}
	return SessionMetrics{
		StartTime:       c.startTime,
		EndTime:         time.Now(),
		TotalRequests:   c.totalRequests,
		FailedRequests:  c.failedRequests,
		TotalOperations: c.totalOperations,
		FailedOps:       c.failedOps,
		TotalLatency:    c.totalLatency,
		StatusCounts:    counts,
	}
}

// Reset clears all counters and restarts the clock.
func (c *SessionCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.startTime = time.Now()
	c.totalRequests = 0
	c.failedRequests = 0
	c.totalOperations = 0
	c.failedOps = 0
	c.totalLatency = 0
	c.statusCounts = make(map[int]int)
}

// Duration is the wall time between StartTime and EndTime.
func (m SessionMetrics) Duration() time.Duration {
	if m.EndTime.IsZero() {
		return 0
	}
	return m.EndTime.Sub(m.StartTime)
}

// FormatParts returns the human-readable pieces of a stats line, e.g.
// "2 requests", "1 failed", "340ms". Empty sessions yield nothing.
func (m SessionMetrics) FormatParts() []string {
	if m.TotalRequests == 0 && m.TotalOperations == 0 {
		return nil
	}
	var parts []string
	if m.TotalOperations > 0 {
		parts = append(parts, plural(m.TotalOperations, "operation"))
	}
	parts = append(parts, plural(m.TotalRequests, "request"))
	if m.FailedRequests > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", m.FailedRequests))
	}
	if len(m.StatusCounts) > 0 {
		codes := make([]int, 0, len(m.StatusCounts))
		for code := range m.StatusCounts {
			codes = append(codes, code)
		}
		sort.Ints(codes)
		counts := make([]string, 0, len(codes))
		for _, code := range codes {
			label := strconv.Itoa(code)
			if code == 0 {
				label = "err"
			}
			counts = append(counts, fmt.Sprintf("%s×%d", label, m.StatusCounts[code]))
		}
		parts = append(parts, strings.Join(counts, " "))
	}
	parts = append(parts, m.TotalLatency.Round(time.Millisecond).String())
	return parts
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// ToMap renders the metrics for the "stats" entry of a response's meta.
func (m SessionMetrics) ToMap() map[string]any {
	counts := make(map[string]int, len(m.StatusCounts))
	for code, n := range m.StatusCounts {
		counts[strconv.Itoa(code)] = n
	}
	return map[string]any{
		"requests":        m.TotalRequests,
		"failed_requests": m.FailedRequests,
		"operations":      m.TotalOperations,
		"failed_ops":      m.FailedOps,
		"latency_ms":      m.TotalLatency.Milliseconds(),
		"duration_ms":     m.Duration().Milliseconds(),
		"status_counts":   counts,
	}
}

// SessionMetricsFromMap is the inverse of ToMap. It accepts the numeric
// types produced both by ToMap directly and by a JSON round trip.
func SessionMetricsFromMap(data map[string]any) SessionMetrics {
	m := SessionMetrics{
		TotalRequests:   toInt(data["requests"]),
		FailedRequests:  toInt(data["failed_requests"]),
		TotalOperations: toInt(data["operations"]),
		FailedOps:       toInt(data["failed_ops"]),
		TotalLatency:    time.Duration(toInt(data["latency_ms"])) * time.Millisecond,
	}
	switch counts := data["status_counts"].(type) {
	case map[string]int:
		m.StatusCounts = make(map[int]int, len(counts))
		for k, v := range counts {
			if code, err := strconv.Atoi(k); err == nil {
				m.StatusCounts[code] = v
			}
		}
	case map[string]any:
		m.StatusCounts = make(map[int]int, len(counts))
		for k, v := range counts {
			if code, err := strconv.Atoi(k); err == nil {
				m.StatusCounts[code] = toInt(v)
			}
		}
	}
	return m
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
