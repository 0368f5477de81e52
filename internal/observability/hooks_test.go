package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/watson-developer-cloud/go-sdk/internal/transport"
)

var (
	translateOp  = transport.OperationInfo{Service: "LanguageTranslator", Operation: "Translate"}
	translateReq = transport.RequestInfo{
		Method:    "POST",
		URL:       "https://gateway.watsonplatform.net/language-translator/api/v3/translate?version=2018-05-01",
		RequestID: "req-1",
	}
)

func runCall(h *CLIHooks, result transport.RequestResult, opErr error) {
	ctx := h.OnOperationStart(context.Background(), translateOp)
	ctx = h.OnRequestStart(ctx, translateReq)
	h.OnRequestEnd(ctx, translateReq, result)
	h.OnOperationEnd(ctx, translateOp, opErr, 50*time.Millisecond)
}

func TestCLIHooks_SetLevel(t *testing.T) {
	h := NewCLIHooks(0, nil, nil)
	assert.Equal(t, 0, h.Level())

	h.SetLevel(2)
	assert.Equal(t, 2, h.Level())
}

func TestCLIHooks_Level0_Silent(t *testing.T) {
	var buf bytes.Buffer
	collector := NewSessionCollector()
	h := NewCLIHooks(0, collector, NewTraceWriterTo(&buf))

	runCall(h, transport.RequestResult{StatusCode: 200, Duration: 45 * time.Millisecond}, nil)

	assert.Equal(t, 0, buf.Len(), "expected no output at level 0")
	summary := collector.Summary()
	assert.Equal(t, 1, summary.TotalOperations)
	assert.Equal(t, 1, summary.TotalRequests)
	assert.Equal(t, 45*time.Millisecond, summary.TotalLatency)
}

func TestCLIHooks_Level1_OperationsOnly(t *testing.T) {
	var buf bytes.Buffer
	h := NewCLIHooks(1, nil, NewTraceWriterTo(&buf))

	runCall(h, transport.RequestResult{StatusCode: 200}, nil)

	output := buf.String()
	assert.Contains(t, output, "Calling LanguageTranslator.Translate")
	assert.Contains(t, output, "Completed LanguageTranslator.Translate")
	assert.NotContains(t, output, "POST", "unexpected request output at level 1")
}

func TestCLIHooks_Level2_OperationsAndRequests(t *testing.T) {
	var buf bytes.Buffer
	h := NewCLIHooks(2, nil, NewTraceWriterTo(&buf))

	runCall(h, transport.RequestResult{StatusCode: 200, Duration: 45 * time.Millisecond}, nil)

	output := buf.String()
	assert.Contains(t, output, "Calling LanguageTranslator.Translate")
	assert.Contains(t, output, "-> POST")
	assert.Contains(t, output, "[req-1]")
	assert.Contains(t, output, "<- 200 (45ms)")
}

func TestCLIHooks_FailuresCounted(t *testing.T) {
	collector := NewSessionCollector()
	h := NewCLIHooks(0, collector, nil)

	apiErr := errors.New("Unauthorized")
	runCall(h, transport.RequestResult{StatusCode: 401, Error: apiErr}, apiErr)
	runCall(h, transport.RequestResult{StatusCode: 200}, nil)

	summary := collector.Summary()
	assert.Equal(t, 2, summary.TotalOperations)
	assert.Equal(t, 1, summary.FailedOps)
	assert.Equal(t, 1, summary.FailedRequests)
	assert.Equal(t, map[int]int{200: 1, 401: 1}, summary.StatusCounts)
}

func TestCLIHooks_NilCollectorAndWriter(t *testing.T) {
	h := NewCLIHooks(2, nil, nil)
	assert.NotPanics(t, func() {
		runCall(h, transport.RequestResult{Error: errors.New("dial tcp: refused")}, nil)
	})
}
