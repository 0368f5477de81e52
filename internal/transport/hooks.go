package transport

import (
	"context"
	"time"
)

// OperationInfo describes a semantic service operation, such as
// ToneAnalyzer.Tone.
type OperationInfo struct {
	Service    string
	Operation  string
	IsMutation bool
}

// RequestInfo describes an outgoing HTTP request.
type RequestInfo struct {
	Method    string
	URL       string
	RequestID string
}

// RequestResult describes the outcome of an HTTP request.
type RequestResult struct {
	StatusCode int
	Duration   time.Duration
	Error      error
}

// Hooks observes operations and the HTTP requests they make.
// Implementations must be safe for concurrent use.
type Hooks interface {
	OnOperationStart(ctx context.Context, op OperationInfo) context.Context
	OnOperationEnd(ctx context.Context, op OperationInfo, err error, duration time.Duration)
	OnRequestStart(ctx context.Context, info RequestInfo) context.Context
	OnRequestEnd(ctx context.Context, info RequestInfo, result RequestResult)
}

// NoopHooks ignores every event.
type NoopHooks struct{}

var _ Hooks = NoopHooks{}

func (NoopHooks) OnOperationStart(ctx context.Context, _ OperationInfo) context.Context { return ctx }
func (NoopHooks) OnOperationEnd(context.Context, OperationInfo, error, time.Duration)    {}
func (NoopHooks) OnRequestStart(ctx context.Context, _ RequestInfo) context.Context     { return ctx }
func (NoopHooks) OnRequestEnd(context.Context, RequestInfo, RequestResult)              {}

type operationKey struct{}

// WithOperation records op on ctx so request hooks can be correlated.
func WithOperation(ctx context.Context, op OperationInfo) context.Context {
	return context.WithValue(ctx, operationKey{}, op)
}

// OperationFromContext returns the operation recorded by WithOperation.
func OperationFromContext(ctx context.Context) (OperationInfo, bool) {
	op, ok := ctx.Value(operationKey{}).(OperationInfo)
	return op, ok
}

// ChainHooks delivers every event to each of hooks in order. Contexts
// returned by start events are threaded through the chain. Nil entries are
// skipped.
func ChainHooks(hooks ...Hooks) Hooks {
	var chain multiHooks
	for _, h := range hooks {
		if h != nil {
			chain = append(chain, h)
		}
	}
	switch len(chain) {
	case 0:
		return NoopHooks{}
	case 1:
		return chain[0]
	}
	return chain
}

type multiHooks []Hooks

func (m multiHooks) OnOperationStart(ctx context.Context, op OperationInfo) context.Context {
	for _, h := range m {
		ctx = h.OnOperationStart(ctx, op)
	}
	return ctx
}

func (m multiHooks) OnOperationEnd(ctx context.Context, op OperationInfo, err error, duration time.Duration) {
	for _, h := range m {
		h.OnOperationEnd(ctx, op, err, duration)
	}
}

func (m multiHooks) OnRequestStart(ctx context.Context, info RequestInfo) context.Context {
	for _, h := range m {
		ctx = h.OnRequestStart(ctx, info)
	}
	return ctx
}

func (m multiHooks) OnRequestEnd(ctx context.Context, info RequestInfo, result RequestResult) {
	for _, h := range m {
		h.OnRequestEnd(ctx, info, result)
	}
}
