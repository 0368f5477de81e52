package observability

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestSessionCollector_RecordRequest(t *testing.T) {
	c := NewSessionCollector()

	c.RecordRequest(RequestMetrics{Method: "POST", URL: "/v3/translate", StatusCode: 200, Duration: 50 * time.Millisecond})
	c.RecordRequest(RequestMetrics{Method: "GET", URL: "/v3/models/xx", StatusCode: 404, Duration: 10 * time.Millisecond})
	c.RecordRequest(RequestMetrics{Method: "GET", URL: "/v3/models", Error: errors.New("connection refused")})

	summary := c.Summary()
	if summary.TotalRequests != 3 {
		t.Errorf("expected 3 total requests, got %d", summary.TotalRequests)
	}
	if summary.FailedRequests != 2 {
		t.Errorf("expected 2 failed requests, got %d", summary.FailedRequests)
	}
	if summary.TotalLatency != 60*time.Millisecond {
		t.Errorf("expected 60ms latency, got %v", summary.TotalLatency)
	}
	if summary.StatusCounts[0] != 1 || summary.StatusCounts[404] != 1 {
		t.Errorf("unexpected status counts: %v", summary.StatusCounts)
	}
}

func TestSessionCollector_RecordOperation(t *testing.T) {
	c := NewSessionCollector()

	c.RecordOperation(OperationMetrics{Service: "ToneAnalyzer", Operation: "Tone"})
	c.RecordOperation(OperationMetrics{Service: "Assistant", Operation: "Message", Error: errors.New("missing")})

	summary := c.Summary()
	if summary.TotalOperations != 2 {
		t.Errorf("expected 2 operations, got %d", summary.TotalOperations)
	}
	if summary.FailedOps != 1 {
		t.Errorf("expected 1 failed op, got %d", summary.FailedOps)
	}
}

func TestSessionCollector_SummaryIsSnapshot(t *testing.T) {
	c := NewSessionCollector()
	c.RecordRequest(RequestMetrics{StatusCode: 200})

	summary := c.Summary()
	summary.StatusCounts[200] = 99

	if got := c.Summary().StatusCounts[200]; got != 1 {
		t.Errorf("summary map aliases collector state: got %d", got)
	}
	if summary.EndTime.Before(summary.StartTime) {
		t.Error("end time before start time")
	}
}

func TestSessionCollector_Reset(t *testing.T) {
	c := NewSessionCollector()
	c.RecordRequest(RequestMetrics{StatusCode: 500})
	c.RecordOperation(OperationMetrics{Error: errors.New("boom")})

	before := c.Summary().StartTime
	time.Sleep(time.Millisecond)
	c.Reset()

	summary := c.Summary()
	if summary.TotalRequests != 0 || summary.TotalOperations != 0 || summary.FailedOps != 0 {
		t.Errorf("expected zeroed counters, got %+v", summary)
	}
	if len(summary.StatusCounts) != 0 {
		t.Errorf("expected empty status counts, got %v", summary.StatusCounts)
	}
	if !summary.StartTime.After(before) {
		t.Error("expected start time to move forward")
	}
}

func TestSessionCollector_Concurrent(t *testing.T) {
	c := NewSessionCollector()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordRequest(RequestMetrics{StatusCode: 200, Duration: time.Millisecond})
			c.RecordOperation(OperationMetrics{})
		}()
	}
	wg.Wait()

	summary := c.Summary()
	if summary.TotalRequests != 50 || summary.TotalOperations != 50 {
		t.Errorf("expected 50/50, got %d/%d", summary.TotalRequests, summary.TotalOperations)
	}
}

func TestSessionMetrics_FormatParts(t *testing.T) {
	m := SessionMetrics{
		TotalOperations: 1,
		TotalRequests:   2,
		FailedRequests:  1,
		TotalLatency:    340 * time.Millisecond,
		StatusCounts:    map[int]int{200: 1, 0: 1},
	}
	got := m.FormatParts()
	want := []string{"1 operation", "2 requests", "1 failed", "err×1 200×1", "340ms"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("part %d: expected %q, got %q", i, want[i], got[i])
		}
	}

	if parts := (SessionMetrics{}).FormatParts(); parts != nil {
		t.Errorf("expected no parts for empty session, got %v", parts)
	}
}

func TestSessionMetrics_MapRoundTrip(t *testing.T) {
	m := SessionMetrics{
		TotalOperations: 3,
		TotalRequests:   4,
		FailedRequests:  1,
		FailedOps:       1,
		TotalLatency:    1200 * time.Millisecond,
		StatusCounts:    map[int]int{200: 3, 401: 1},
	}
	back := SessionMetricsFromMap(m.ToMap())
	if back.TotalRequests != 4 || back.FailedRequests != 1 || back.TotalOperations != 3 || back.FailedOps != 1 {
		t.Errorf("counters lost in round trip: %+v", back)
	}
	if back.TotalLatency != 1200*time.Millisecond {
		t.Errorf("expected 1.2s latency, got %v", back.TotalLatency)
	}
	if back.StatusCounts[401] != 1 || back.StatusCounts[200] != 3 {
		t.Errorf("unexpected status counts: %v", back.StatusCounts)
	}

	decoded := SessionMetricsFromMap(map[string]any{
		"requests":      float64(2),
		"status_counts": map[string]any{"500": float64(2)},
	})
	if decoded.TotalRequests != 2 || decoded.StatusCounts[500] != 2 {
		t.Errorf("JSON-shaped map not decoded: %+v", decoded)
	}
}
