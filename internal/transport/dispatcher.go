package transport

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	sdkerrors "github.com/watson-developer-cloud/go-sdk/internal/sdk/errors"
	"github.com/watson-developer-cloud/go-sdk/internal/version"
)

// DefaultTimeout bounds a single HTTP exchange.
const DefaultTimeout = 60 * time.Second

// RequestIDHeader correlates a request with traces and service logs.
const RequestIDHeader = "X-Request-Id"

// UnauthorizedMessage replaces the service message on 401 and 403 responses.
const UnauthorizedMessage = "Unauthorized: Access is denied due to invalid credentials."

// Response is a completed service call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// Result is the JSON-decoded body, or nil when the body is not JSON.
	Result any
}

// Decode unmarshals the body into v.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, v)
}

// Dispatcher performs exactly one HTTP attempt per request.
type Dispatcher struct {
	baseURL    string
	httpClient *http.Client
	hooks      Hooks
	logger     *slog.Logger
	userAgent  string
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.httpClient = c
		}
	}
}

// WithHooks sets the observability hooks.
func WithHooks(h Hooks) Option {
	return func(d *Dispatcher) {
		if h != nil {
			d.hooks = h
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDispatcher creates a dispatcher that resolves relative request URLs
// against baseURL.
func NewDispatcher(baseURL string, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: NewHTTPClient(DefaultTimeout, false),
		hooks:      NoopHooks{},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		userAgent:  version.UserAgent(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewHTTPClient returns a client with the given timeout. When insecure is
// set, TLS certificate verification is disabled on a cloned transport.
func NewHTTPClient(timeout time.Duration, insecure bool) *http.Client {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 100
	t.MaxIdleConnsPerHost = 10
	t.IdleConnTimeout = 90 * time.Second
	if insecure {
		if t.TLSClientConfig == nil {
			t.TLSClientConfig = &tls.Config{}
		}
		t.TLSClientConfig.InsecureSkipVerify = true //nolint:gosec // G402: opt-in via disable_ssl_verification
	}
	return &http.Client{Timeout: timeout, Transport: t}
}

// BaseURL returns the service URL requests are resolved against.
func (d *Dispatcher) BaseURL() string {
	return d.baseURL
}

// HTTPClient returns the underlying client.
func (d *Dispatcher) HTTPClient() *http.Client {
	return d.httpClient
}

// Do sends req. Non-2xx responses and bodies carrying a service error are
// returned as *errors.Error; the Response is returned alongside when one
// was received.
func (d *Dispatcher) Do(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := req.build(ctx, d.baseURL)
	if err != nil {
		return nil, sdkerrors.ErrUsage(fmt.Sprintf("invalid request: %v", err))
	}
	httpReq.Header.Set("User-Agent", d.userAgent)
	if httpReq.Header.Get(RequestIDHeader) == "" {
		httpReq.Header.Set(RequestIDHeader, uuid.NewString())
	}

	info := RequestInfo{
		Method:    httpReq.Method,
		URL:       httpReq.URL.String(),
		RequestID: httpReq.Header.Get(RequestIDHeader),
	}
	ctx = d.hooks.OnRequestStart(ctx, info)
	start := time.Now()

	resp, err := d.send(httpReq)

	result := RequestResult{Duration: time.Since(start), Error: err}
	if resp != nil {
		result.StatusCode = resp.StatusCode
	}
	d.hooks.OnRequestEnd(ctx, info, result)

	d.logger.Debug("watson request",
		"method", info.Method, "url", httpReq.URL.Redacted(), "request_id", info.RequestID,
		"status", result.StatusCode, "duration", result.Duration, "error", err)
	return resp, err
}

func (d *Dispatcher) send(httpReq *http.Request) (*Response, error) {
	httpResp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return nil, sdkerrors.ErrNetwork(err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, sdkerrors.ErrNetwork(fmt.Errorf("read response: %w", err))
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
	}
	var parsed any
	if len(body) > 0 && json.Unmarshal(body, &parsed) == nil {
		resp.Result = parsed
	}

	if err := responseError(resp); err != nil {
		return resp, err
	}
	return resp, nil
}

// responseError extracts a service error from resp, or returns nil.
// Services report errors as {"error": "..."}, {"error": {"description": ...}},
// or {"error_code": n, "error_message": "..."}, sometimes with a 2xx status.
func responseError(resp *Response) error {
	obj, _ := resp.Result.(map[string]any)
	msg, hasStructured := structuredMessage(obj)
	ok := resp.StatusCode >= 200 && resp.StatusCode < 300

	if ok && !hasStructured {
		return nil
	}

	if !hasStructured {
		msg = strings.TrimSpace(string(resp.Body))
		if msg == "" {
			msg = fmt.Sprintf("Request failed (HTTP %d)", resp.StatusCode)
		}
	}

	e := sdkerrors.ErrAPI(resp.StatusCode, msg)
	e.Body = obj
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		e.Detail = msg
		e.Message = UnauthorizedMessage
	}
	return e
}

func structuredMessage(obj map[string]any) (string, bool) {
	if obj == nil {
		return "", false
	}
	errVal, hasErr := obj["error"]
	code, hasCode := obj["error_code"]
	if (!hasErr || errVal == nil) && !hasCode {
		return "", false
	}

	switch v := errVal.(type) {
	case string:
		if v != "" {
			return v, true
		}
	case map[string]any:
		if desc, ok := v["description"].(string); ok && desc != "" {
			return desc, true
		}
		if inner, ok := v["error"]; ok {
			if data, err := json.Marshal(inner); err == nil {
				return string(data), true
			}
		}
	}
	if m, ok := obj["error_message"].(string); ok && m != "" {
		return m, true
	}
	if hasCode {
		return fmt.Sprintf("Error Code: %v", code), true
	}
	if data, err := json.Marshal(errVal); err == nil {
		return string(data), true
	}
	return "", false
}
