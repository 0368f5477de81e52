package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/watson-developer-cloud/go-sdk/internal/appctx"
	"github.com/watson-developer-cloud/go-sdk/internal/config"
	"github.com/watson-developer-cloud/go-sdk/internal/credentials"
	"github.com/watson-developer-cloud/go-sdk/internal/sdk"
)

// syncBuffer is a bytes.Buffer safe for a writer goroutine and a reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type memStore struct {
	mu     sync.Mutex
	tokens map[string]*sdk.StoredToken
}

func (m *memStore) Load(key string) (*sdk.StoredToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tokens[key]; ok {
		return t, nil
	}
	return nil, &sdk.StoreError{Operation: "load", Key: key, Message: "not found"}
}

func (m *memStore) Save(key string, t *sdk.StoredToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[key] = t
	return nil
}

func (m *memStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, key)
	return nil
}

func (m *memStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokens)
}

type testApp struct {
	*appctx.App
	out   *syncBuffer
	store *memStore
	home  string
}

// newTestApp returns a JSON-output app with an isolated credential
// environment, completion cache and in-memory token store.
func newTestApp(t *testing.T, env credentials.Environment) *testApp {
	t.Helper()
	t.Setenv("WATSON_DEBUG", "")
	t.Setenv("WATSON_CACHE_DIR", t.TempDir())

	cfg := config.Default()
	cfg.Keyring = false
	cfg.TokenDir = t.TempDir()
	app := appctx.NewApp(cfg)

	out := &syncBuffer{}
	app.Stdout = out
	app.Stderr = io.Discard
	if env == nil {
		env = credentials.Environment{}
	}
	app.Env = env
	home := t.TempDir()
	app.ResolverOptions = []credentials.ResolverOption{
		credentials.WithHomeDir(home),
		credentials.WithWorkDir(t.TempDir()),
	}
	store := &memStore{tokens: map[string]*sdk.StoredToken{}}
	app.SetTokenStore(store)
	app.Flags.JSON = true
	app.ApplyFlags()

	return &testApp{App: app, out: out, store: store, home: home}
}

// run executes cmd with args against app.
func run(app *testApp, cmd *cobra.Command, stdin string, args ...string) error {
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd.ExecuteContext(appctx.WithApp(context.Background(), app.App))
}

type envelope struct {
	OK      bool            `json:"ok"`
	Data    json.RawMessage `json:"data"`
	Summary string          `json:"summary"`
	Meta    map[string]any  `json:"meta"`
}

// lastEnvelope decodes the last JSON document written to the app.
func (a *testApp) lastEnvelope(t *testing.T) envelope {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(a.out.String()))
	var env envelope
	found := false
	for {
		var next envelope
		if err := dec.Decode(&next); err != nil {
			break
		}
		env, found = next, true
	}
	require.True(t, found, "no JSON output in %q", a.out.String())
	return env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

// apiServer serves canned JSON by path and records requests.
type apiServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []recorded
}

type recorded struct {
	method string
	path   string
	query  string
	auth   string
	header http.Header
	body   string
}

func newAPIServer(t *testing.T, routes map[string]string) *apiServer {
	t.Helper()
	s := &apiServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.requests = append(s.requests, recorded{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			auth:   r.Header.Get("Authorization"),
			header: r.Header.Clone(),
			body:   string(body),
		})
		s.mu.Unlock()

		resp, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":"Not Found","code":404}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, resp)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *apiServer) last(t *testing.T) recorded {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.requests, "no requests served")
	return s.requests[len(s.requests)-1]
}

func (s *apiServer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// iamServer issues numbered tokens.
type iamServer struct {
	*httptest.Server
	calls atomic.Int32
}

func newIAMServer(t *testing.T) *iamServer {
	t.Helper()
	s := &iamServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := s.calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  fmt.Sprintf("iam-token-%d", n),
			"refresh_token": "refresh",
			"token_type":    "Bearer",
			"expires_in":    3600,
			"expiration":    time.Now().Unix() + 3600,
		})
	}))
	t.Cleanup(s.Close)
	return s
}

func basicEnv(prefix, url string) credentials.Environment {
	return credentials.Environment{
		prefix + "_USERNAME": "user",
		prefix + "_PASSWORD": "pass",
		prefix + "_URL":      url,
	}
}
