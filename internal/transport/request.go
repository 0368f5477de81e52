// Package transport sends finalized Watson request descriptors over HTTP.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Request describes a single service call before it is sent.
type Request struct {
	Method string
	// URL is absolute, or a path beginning with "/" joined onto the base URL.
	// It may contain {param} placeholders filled from PathParams.
	URL        string
	PathParams map[string]string
	Query      url.Values
	Headers    http.Header

	// Body is JSON-encoded unless RawBody is set.
	Body        any
	RawBody     io.Reader
	ContentType string

	// RequiredParams names the entries of Params that must be present.
	RequiredParams []string
	Params         map[string]any

	// Operation, when set, is reported to hooks.
	Operation *OperationInfo
}

// SetHeader sets a header, allocating the map if needed.
func (r *Request) SetHeader(key, value string) {
	if r.Headers == nil {
		r.Headers = make(http.Header)
	}
	r.Headers.Set(key, value)
}

// HasHeader reports whether the caller set key.
func (r *Request) HasHeader(key string) bool {
	return r.Headers != nil && r.Headers.Get(key) != ""
}

// MissingParams returns the required parameters absent from Params, in
// declaration order. A parameter is absent when missing, nil, or an empty
// string.
func (r *Request) MissingParams() []string {
	var missing []string
	for _, name := range r.RequiredParams {
		if isEmpty(r.Params[name]) {
			missing = append(missing, name)
		}
	}
	return missing
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case *string:
		return x == nil || *x == ""
	}
	return false
}

// ResolveURL joins the request URL onto baseURL and substitutes path
// parameters. Placeholders without a value are left untouched.
func (r *Request) ResolveURL(baseURL string) (string, error) {
	u := r.URL
	if strings.HasPrefix(u, "/") {
		if baseURL == "" {
			return "", fmt.Errorf("relative URL %q with no service URL", u)
		}
		u = strings.TrimRight(baseURL, "/") + u
	}
	u = substitutePath(u, r.PathParams)

	if len(r.Query) > 0 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + r.Query.Encode()
	}
	if _, err := url.Parse(u); err != nil {
		return "", err
	}
	return u, nil
}

func substitutePath(path string, params map[string]string) string {
	if len(params) == 0 {
		return path
	}
	// Stable order keeps results deterministic when values contain braces.
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(params[name]))
	}
	return path
}

// build creates the *http.Request for baseURL.
func (r *Request) build(ctx context.Context, baseURL string) (*http.Request, error) {
	target, err := r.ResolveURL(baseURL)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	contentType := r.ContentType
	switch {
	case r.RawBody != nil:
		body = r.RawBody
	case r.Body != nil:
		data, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(data)
		if contentType == "" {
			contentType = "application/json"
		}
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, vs := range r.Headers {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return req, nil
}
