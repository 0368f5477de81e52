// Package service is the shared base every Watson service client composes.
// It resolves credentials once at construction and authenticates every
// dispatched request.
package service

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/watson-developer-cloud/go-sdk/internal/auth"
	"github.com/watson-developer-cloud/go-sdk/internal/credentials"
	"github.com/watson-developer-cloud/go-sdk/internal/sdk"
	sdkerrors "github.com/watson-developer-cloud/go-sdk/internal/sdk/errors"
	"github.com/watson-developer-cloud/go-sdk/internal/transport"
)

// Header names set by the base service.
const (
	HeaderAuthorization  = "Authorization"
	HeaderWatsonToken    = "X-Watson-Authorization-Token"
	HeaderLearningOptOut = "X-Watson-Learning-Opt-Out"
)

// Options configures a BaseService. Credential fields may be left empty to
// fall back to the credentials file, environment and service registry.
type Options struct {
	Username           string
	Password           string
	APIKey             string
	IAMAPIKey          string
	URL                string
	IAMURL             string
	AccessToken        string
	AuthorizationToken string
	UseUnauthenticated bool

	// Headers are merged into every request; per-call headers win.
	Headers                http.Header
	DisableSSLVerification bool
	LearningOptOut         bool
	// Version is sent as the "version" query parameter.
	Version string
	// DefaultURL is used when no credential source names a URL.
	DefaultURL string

	// Environment is the variable snapshot used for credential lookup.
	// Nil means the process environment.
	Environment       credentials.Environment
	BasicAuthPrefixes []string
	ResolverOptions   []credentials.ResolverOption

	HTTPClient *http.Client
	Timeout    time.Duration
	Hooks      transport.Hooks
	Logger     *slog.Logger
	TokenStore sdk.TokenStore
}

// BaseService holds the resolved credentials and authentication state for
// one service instance. It is safe for concurrent use.
type BaseService struct {
	name       string
	creds      *credentials.Credentials
	version    string
	dispatcher *transport.Dispatcher
	hooks      transport.Hooks
	logger     *slog.Logger
	httpClient *http.Client
	store      sdk.TokenStore

	// headers holds defaults merged into every request, including a
	// precomputed Basic or legacy token header.
	headers http.Header

	mu     sync.RWMutex
	tokens sdk.TokenSource
}

// New resolves credentials for name and prepares authentication. It fails
// with a configuration error when the credentials are insufficient or
// malformed.
func New(name string, opts Options) (*BaseService, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	env := opts.Environment
	if env == nil {
		env = credentials.EnvironmentFromOS()
	}
	resolverOpts := []credentials.ResolverOption{
		credentials.WithDefaultURL(opts.DefaultURL),
		credentials.WithLogger(logger),
	}
	if opts.BasicAuthPrefixes != nil {
		resolverOpts = append(resolverOpts, credentials.WithBasicAuthPrefixes(opts.BasicAuthPrefixes...))
	}
	resolverOpts = append(resolverOpts, opts.ResolverOptions...)

	creds, err := credentials.NewResolver(env, resolverOpts...).Resolve(name, credentials.Options{
		Username:           opts.Username,
		Password:           opts.Password,
		APIKey:             opts.APIKey,
		IAMAPIKey:          opts.IAMAPIKey,
		URL:                opts.URL,
		IAMURL:             opts.IAMURL,
		AccessToken:        opts.AccessToken,
		AuthorizationToken: opts.AuthorizationToken,
		UseUnauthenticated: opts.UseUnauthenticated,
	})
	if err != nil {
		return nil, err
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = transport.DefaultTimeout
		}
		httpClient = transport.NewHTTPClient(timeout, opts.DisableSSLVerification)
	}
	hooks := opts.Hooks
	if hooks == nil {
		hooks = transport.NoopHooks{}
	}

	s := &BaseService{
		name:       name,
		creds:      creds,
		version:    opts.Version,
		hooks:      hooks,
		logger:     logger,
		httpClient: httpClient,
		store:      opts.TokenStore,
		headers:    make(http.Header),
		dispatcher: transport.NewDispatcher(creds.URL,
			transport.WithHTTPClient(httpClient),
			transport.WithHooks(hooks),
			transport.WithLogger(logger),
		),
	}
	for k, vs := range opts.Headers {
		for _, v := range vs {
			s.headers.Add(k, v)
		}
	}
	if opts.LearningOptOut {
		s.headers.Set(HeaderLearningOptOut, "true")
	}

	switch creds.Mode() {
	case credentials.ModeIAM:
		m := s.newTokenManager(creds.APIKey)
		if creds.AccessToken != "" {
			m.SetToken(creds.AccessToken)
		}
		s.tokens = m
	case credentials.ModeBearer:
		s.tokens = sdk.NewStaticTokenSource(creds.AccessToken)
	case credentials.ModeWatsonToken:
		s.headers.Set(HeaderWatsonToken, creds.AuthorizationToken)
	case credentials.ModeBasic:
		s.headers.Set(HeaderAuthorization, BasicAuth(creds.Username, creds.Password))
	case credentials.ModeNone:
	}

	logger.Debug("service configured",
		"service", name, "url", creds.URL, "mode", creds.Mode().String(), "source", string(creds.Source))
	return s, nil
}

func (s *BaseService) newTokenManager(apiKey string) *auth.IAMTokenManager {
	opts := []auth.Option{
		auth.WithIAMURL(s.creds.IAMURL),
		auth.WithHTTPClient(s.httpClient),
		auth.WithLogger(s.logger),
	}
	if s.store != nil {
		opts = append(opts, auth.WithStore(s.store))
	}
	return auth.NewIAMTokenManager(apiKey, opts...)
}

// BasicAuth returns the Authorization header value for a username and
// password pair.
func BasicAuth(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

// Name returns the service name used for credential lookup.
func (s *BaseService) Name() string { return s.name }

// URL returns the resolved service URL.
func (s *BaseService) URL() string { return s.creds.URL }

// Mode returns the active authentication mode.
func (s *BaseService) Mode() credentials.Mode { return s.creds.Mode() }

// Credentials returns a copy of the resolved credentials without any
// access or authorization token. Use Redacted on the result for display.
func (s *BaseService) Credentials() credentials.Credentials {
	c := *s.creds
	c.AccessToken = ""
	c.AuthorizationToken = ""
	return c
}

// TokenSource returns the token source, or nil when the service does not
// use bearer tokens.
func (s *BaseService) TokenSource() sdk.TokenSource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens
}

// SetAccessToken injects a caller-managed bearer token. A token source is
// created if the service did not have one.
func (s *BaseService) SetAccessToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokens == nil {
		s.tokens = sdk.NewStaticTokenSource(token)
		return
	}
	s.tokens.SetToken(token)
}

// Dispatch authenticates req and sends it. Required parameters are checked
// first and a token is fetched before anything goes on the wire; either
// failure returns without a network call. Headers the caller set on req
// take precedence over the service defaults, including Authorization.
func (s *BaseService) Dispatch(ctx context.Context, req *transport.Request) (resp *transport.Response, err error) {
	if req == nil {
		return nil, sdkerrors.ErrUsage("no request to dispatch")
	}
	if req.Operation != nil {
		op := *req.Operation
		ctx = transport.WithOperation(s.hooks.OnOperationStart(ctx, op), op)
		start := time.Now()
		defer func() { s.hooks.OnOperationEnd(ctx, op, err, time.Since(start)) }()
	}

	if missing := req.MissingParams(); len(missing) > 0 {
		return nil, sdkerrors.ErrMissingParams(missing)
	}

	out := *req
	out.Headers = make(http.Header, len(req.Headers)+len(s.headers))
	for k, vs := range req.Headers {
		for _, v := range vs {
			out.Headers.Add(k, v)
		}
	}

	if tokens := s.TokenSource(); tokens != nil {
		tok, err := tokens.Token(ctx)
		if err != nil {
			if !sdkerrors.IsTokenRefresh(err) {
				err = sdkerrors.ErrTokenRefresh(err)
			}
			return nil, err
		}
		if !out.HasHeader(HeaderAuthorization) {
			out.SetHeader(HeaderAuthorization, "Bearer "+tok)
		}
	}

	for k, vs := range s.headers {
		if out.HasHeader(k) {
			continue
		}
		for _, v := range vs {
			out.Headers.Add(k, v)
		}
	}

	if s.version != "" && out.Query.Get("version") == "" {
		q := make(url.Values, len(req.Query)+1)
		for k, vs := range req.Query {
			q[k] = append([]string(nil), vs...)
		}
		q.Set("version", s.version)
		out.Query = q
	}

	return s.dispatcher.Do(ctx, &out)
}
