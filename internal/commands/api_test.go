package commands

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watson-developer-cloud/go-sdk/internal/output"
)

func TestAPIGet(t *testing.T) {
	srv := newAPIServer(t, map[string]string{
		"/v3/identifiable_languages": `{"languages":[{"language":"en","name":"English"}]}`,
	})
	app := newTestApp(t, basicEnv("LANGUAGE_TRANSLATOR", srv.URL))
	app.Config.Service = "translator"

	require.NoError(t, run(app, NewAPICmd(), "",
		"get", "v3/identifiable_languages", "-Q", "limit=5", "-H", "X-Trace: abc"))

	req := srv.last(t)
	assert.Equal(t, "GET", req.method)
	assert.Equal(t, "/v3/identifiable_languages", req.path)
	assert.Contains(t, req.query, "limit=5")
	assert.Contains(t, req.query, "version=")
	assert.Equal(t, "abc", req.header.Get("X-Trace"))
	assert.True(t, strings.HasPrefix(req.auth, "Basic "))

	env := app.lastEnvelope(t)
	assert.Equal(t, "GET /v3/identifiable_languages: 1 fields", env.Summary)
	assert.EqualValues(t, 200, env.Meta["status"])
}

func TestAPIPost(t *testing.T) {
	srv := newAPIServer(t, map[string]string{"/v3/tone": `{"document_tone":{}}`})
	app := newTestApp(t, basicEnv("TONE_ANALYZER", srv.URL))
	app.Config.Service = "tone"

	require.NoError(t, run(app, NewAPICmd(), "", "post", "/v3/tone", "-d", `{"text":"hi"}`))

	req := srv.last(t)
	assert.Equal(t, "POST", req.method)
	assert.JSONEq(t, `{"text":"hi"}`, req.body)
}

func TestAPIUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"post without data", []string{"post", "/v3/tone"}},
		{"invalid json", []string{"put", "/v3/tone", "-d", "{"}},
		{"bad query", []string{"get", "/v3/tone", "-Q", "novalue"}},
		{"bad header", []string{"get", "/v3/tone", "-H", "NoColon"}},
		{"foreign url", []string{"get", "https://evil.example.com/v3/tone"}},
	}

	srv := newAPIServer(t, map[string]string{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, basicEnv("TONE_ANALYZER", srv.URL))
			app.Config.Service = "tone"

			err := run(app, NewAPICmd(), "", tt.args...)
			var outErr *output.Error
			require.ErrorAs(t, err, &outErr)
			assert.Equal(t, output.CodeUsage, outErr.Code)
		})
	}
	assert.Zero(t, srv.count(), "usage errors must not reach the service")
}

func TestParsePath(t *testing.T) {
	base := "https://gateway.watsonplatform.net/tone-analyzer/api"

	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"/v3/tone", "/v3/tone", false},
		{"v3/tone", "/v3/tone", false},
		{base + "/v3/tone", "/v3/tone", false},
		{base + "?version=1", "/?version=1", false},
		{base + "-evil/v3/tone", "", true},
		{"https://other.example.com/v3/tone", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parsePath(tt.input, base)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePairs(t *testing.T) {
	values, err := parsePairs([]string{"a=1", "a=2", "b=x=y"}, "=")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, values["a"])
	assert.Equal(t, "x=y", values.Get("b"))

	values, err = parsePairs(nil, "=")
	require.NoError(t, err)
	assert.Nil(t, values)

	_, err = parsePairs([]string{"=v"}, "=")
	assert.Error(t, err)
}

func TestAPISummary(t *testing.T) {
	assert.Equal(t, "no content", apiSummary(nil))
	assert.Equal(t, "2 items", apiSummary([]any{1, 2}))
	assert.Equal(t, "en-es", apiSummary(map[string]any{"model_id": "en-es", "x": 1}))
	assert.Equal(t, "2 fields", apiSummary(map[string]any{"a": 1, "b": 2}))
	assert.Equal(t, "plain", apiSummary("plain"))
	assert.Equal(t, "API response", apiSummary(42.0))
}
