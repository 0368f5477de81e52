package toneanalyzer

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watson-developer-cloud/go-sdk/internal/credentials"
	"github.com/watson-developer-cloud/go-sdk/internal/service"
	sdkerrors "github.com/watson-developer-cloud/go-sdk/internal/sdk/errors"
)

type captured struct {
	calls       int
	path        string
	query       string
	contentType string
	language    string
	body        string
}

// server records the last request it served.
type server struct {
	mu  sync.Mutex
	got captured
}

func (s *server) last() captured {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.got
}

func newTestClient(t *testing.T) (*V3, *server) {
	t.Helper()
	rec := &server{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		rec.got = captured{
			calls:       rec.got.calls + 1,
			path:        r.URL.Path,
			query:       r.URL.RawQuery,
			contentType: r.Header.Get("Content-Type"),
			language:    r.Header.Get("Content-Language"),
			body:        string(body),
		}
		rec.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"document_tone":{"tones":[{"score":0.8,"tone_id":"joy","tone_name":"Joy"}]},
			"sentences_tone":[{"sentence_id":0,"text":"I am happy.","tones":[]}]}`)
	}))
	t.Cleanup(srv.Close)

	c, err := New(service.Options{
		Username:    "user",
		Password:    "pass",
		URL:         srv.URL,
		Version:     "2017-09-21",
		Environment: credentials.Environment{},
		ResolverOptions: []credentials.ResolverOption{
			credentials.WithHomeDir(t.TempDir()),
			credentials.WithWorkDir(t.TempDir()),
		},
	})
	require.NoError(t, err)
	return c, rec
}

func TestNewRequiresVersion(t *testing.T) {
	_, err := New(service.Options{UseUnauthenticated: true})
	require.Error(t, err)
	assert.True(t, sdkerrors.IsConfiguration(err))
}

func TestToneJSON(t *testing.T) {
	c, rec := newTestClient(t)

	no := false
	out, err := c.Tone(context.Background(), &ToneParams{
		Text:            "I am happy.",
		Sentences:       &no,
		Tones:           []string{"emotion", "language"},
		ContentLanguage: "en",
	})
	require.NoError(t, err)

	got := rec.last()
	assert.Equal(t, "/v3/tone", got.path)
	assert.Equal(t, "sentences=false&tones=emotion%2Clanguage&version=2017-09-21", got.query)
	assert.Equal(t, ContentTypeJSON, got.contentType)
	assert.Equal(t, "en", got.language)
	assert.JSONEq(t, `{"text":"I am happy."}`, got.body)

	require.Len(t, out.DocumentTone.Tones, 1)
	assert.Equal(t, "joy", out.DocumentTone.Tones[0].ToneID)
	require.Len(t, out.SentencesTone, 1)
	assert.Equal(t, "I am happy.", out.SentencesTone[0].Text)
}

func TestTonePlainText(t *testing.T) {
	c, rec := newTestClient(t)

	_, err := c.Tone(context.Background(), &ToneParams{
		Text:        "Plain words.",
		ContentType: "text/plain;charset=utf-8",
	})
	require.NoError(t, err)
	got := rec.last()
	assert.Equal(t, "text/plain;charset=utf-8", got.contentType)
	assert.Equal(t, "Plain words.", got.body)
	assert.Equal(t, "version=2017-09-21", got.query)
}

func TestToneMissingInput(t *testing.T) {
	c, rec := newTestClient(t)

	_, err := c.Tone(context.Background(), &ToneParams{})
	require.Error(t, err)
	assert.True(t, sdkerrors.IsMissingParams(err))
	e, _ := sdkerrors.As(err)
	assert.Equal(t, []string{"tone_input"}, e.Params)

	_, err = c.Tone(context.Background(), nil)
	require.Error(t, err)
	e, _ = sdkerrors.As(err)
	require.NotNil(t, e)
	assert.Equal(t, []string{"tone_input", "content_type"}, e.Params)
	assert.Equal(t, 0, rec.last().calls)
}

func TestIsJSON(t *testing.T) {
	assert.True(t, isJSON("application/json"))
	assert.True(t, isJSON("Application/JSON; charset=utf-8"))
	assert.False(t, isJSON("text/html"))
}
