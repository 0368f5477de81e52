// Package auth exchanges IBM Cloud API keys for IAM bearer tokens and keeps
// them fresh.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/watson-developer-cloud/go-sdk/internal/credentials"
	"github.com/watson-developer-cloud/go-sdk/internal/sdk"
	sdkerrors "github.com/watson-developer-cloud/go-sdk/internal/sdk/errors"
)

const (
	apikeyGrantType  = "urn:ibm:params:oauth:grant-type:apikey"
	refreshGrantType = "refresh_token"
	responseType     = "cloud_iam"

	// IAM requires this fixed client authorization (bx:bx).
	iamClientAuthorization = "Basic Yng6Yng="

	// Tokens are refreshed once this fraction of their lifetime has passed.
	fractionOfTTL = 0.8

	// A refresh token is only used within this window after the last
	// access token expired.
	refreshTokenWindow = 7 * 24 * time.Hour
)

// IAMTokenManager retrieves, caches and refreshes IAM access tokens for
// one API key. It is safe for concurrent use; concurrent callers share a
// single in-flight refresh.
type IAMTokenManager struct {
	apiKey     string
	iamURL     string
	httpClient *http.Client
	store      sdk.TokenStore
	logger     *slog.Logger
	now        func() time.Time

	group singleflight.Group

	mu         sync.Mutex
	info       *sdk.StoredToken
	userToken  string
	generation uint64
	storeRead  bool
}

var _ sdk.TokenSource = (*IAMTokenManager)(nil)

// Option configures an IAMTokenManager.
type Option func(*IAMTokenManager)

// WithIAMURL overrides credentials.DefaultIAMURL.
func WithIAMURL(u string) Option {
	return func(m *IAMTokenManager) {
		if u != "" {
			m.iamURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient sets the client used for token requests. Its timeout
// bounds every refresh.
func WithHTTPClient(c *http.Client) Option {
	return func(m *IAMTokenManager) {
		if c != nil {
			m.httpClient = c
		}
	}
}

// WithStore persists tokens so they survive process restarts.
func WithStore(s sdk.TokenStore) Option {
	return func(m *IAMTokenManager) { m.store = s }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *IAMTokenManager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *IAMTokenManager) { m.now = now }
}

// NewIAMTokenManager creates a token manager for apiKey.
func NewIAMTokenManager(apiKey string, opts ...Option) *IAMTokenManager {
	m := &IAMTokenManager{
		apiKey:     apiKey,
		iamURL:     credentials.DefaultIAMURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IAMURL returns the token endpoint in use.
func (m *IAMTokenManager) IAMURL() string {
	return m.iamURL
}

// StoreKey is the key under which tokens for this manager are persisted.
func (m *IAMTokenManager) StoreKey() string {
	return storeKey(m.iamURL, m.apiKey)
}

// Token returns a valid access token. A caller-set token is returned as is.
// A cached token is returned until 80% of its lifetime has passed; after
// that a refresh is performed, shared by all concurrent callers. Each caller
// may give up via ctx while the refresh continues for the others.
func (m *IAMTokenManager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.userToken != "" {
		tok := m.userToken
		m.mu.Unlock()
		return tok, nil
	}
	if m.validLocked() {
		tok := m.info.AccessToken
		m.mu.Unlock()
		return tok, nil
	}
	gen := m.generation
	m.mu.Unlock()

	// Keyed by generation so callers after SetToken or Invalidate never
	// join a refresh whose result will be discarded.
	ch := m.group.DoChan(strconv.FormatUint(gen, 10), func() (any, error) {
		return m.refresh(context.WithoutCancel(ctx), gen)
	})

	select {
	case <-ctx.Done():
		return "", sdkerrors.ErrTokenRefresh(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// SetToken installs a caller-managed token. From then on Token returns it
// without expiry checks, and any refresh already in flight is discarded.
func (m *IAMTokenManager) SetToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userToken = token
	m.generation++
}

// Invalidate drops the cached token so the next Token call refreshes.
// A caller-set token is dropped too.
func (m *IAMTokenManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.info = nil
	m.userToken = ""
	m.storeRead = true
	m.generation++
}

// Cached returns a copy of the cached token data, or nil.
func (m *IAMTokenManager) Cached() *sdk.StoredToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.info == nil {
		return nil
	}
	cp := *m.info
	return &cp
}

// validLocked reports whether the cached token is before its refresh time.
func (m *IAMTokenManager) validLocked() bool {
	return m.info != nil && m.info.AccessToken != "" && !needsRefresh(m.info, m.now())
}

func needsRefresh(t *sdk.StoredToken, now time.Time) bool {
	if t.ExpiresIn == 0 || t.Expiration == 0 {
		return true
	}
	refreshTime := float64(t.Expiration) - float64(t.ExpiresIn)*(1.0-fractionOfTTL)
	return refreshTime < float64(now.Unix())
}

func refreshTokenUsable(t *sdk.StoredToken, now time.Time) bool {
	if t == nil || t.RefreshToken == "" || t.Expiration == 0 {
		return false
	}
	return time.Unix(t.Expiration, 0).Add(refreshTokenWindow).After(now)
}

// refresh obtains a new token and commits it if no newer state was set
// since gen was read.
func (m *IAMTokenManager) refresh(ctx context.Context, gen uint64) (string, error) {
	m.mu.Lock()
	if m.generation == gen && m.validLocked() {
		tok := m.info.AccessToken
		m.mu.Unlock()
		return tok, nil
	}
	readStore := m.store != nil && !m.storeRead
	m.storeRead = true
	var current *sdk.StoredToken
	if m.info != nil {
		cp := *m.info
		current = &cp
	}
	m.mu.Unlock()

	if readStore {
		if stored, err := m.store.Load(m.StoreKey()); err == nil && stored != nil {
			if !needsRefresh(stored, m.now()) {
				m.logger.Debug("using stored IAM token", "iam_url", m.iamURL)
				m.commit(gen, stored)
				return stored.AccessToken, nil
			}
			current = stored
		}
	}

	var (
		tok *sdk.StoredToken
		err error
	)
	if refreshTokenUsable(current, m.now()) {
		tok, err = m.requestToken(ctx, url.Values{
			"grant_type":    {refreshGrantType},
			"refresh_token": {current.RefreshToken},
		})
		if err != nil {
			m.logger.Debug("IAM refresh grant failed, requesting new token", "error", err)
			tok = nil
		}
	}
	if tok == nil {
		tok, err = m.requestToken(ctx, url.Values{
			"grant_type":    {apikeyGrantType},
			"apikey":        {m.apiKey},
			"response_type": {responseType},
		})
	}
	if err != nil {
		return "", sdkerrors.ErrTokenRefresh(err)
	}

	if m.commit(gen, tok) && m.store != nil {
		if err := m.store.Save(m.StoreKey(), tok); err != nil {
			m.logger.Warn("could not persist IAM token", "error", err)
		}
	}
	return tok.AccessToken, nil
}

// commit stores tok unless SetToken or Invalidate ran after gen was read.
func (m *IAMTokenManager) commit(gen uint64, tok *sdk.StoredToken) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != gen {
		m.logger.Debug("discarding stale IAM token refresh")
		return false
	}
	m.info = tok
	return true
}

func (m *IAMTokenManager) requestToken(ctx context.Context, form url.Values) (*sdk.StoredToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.iamURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", iamClientAuthorization)

	m.logger.Debug("requesting IAM token", "iam_url", m.iamURL, "grant_type", form.Get("grant_type"))

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, &sdk.TokenError{Message: "IAM request failed", Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &sdk.TokenError{Message: "read IAM response", StatusCode: resp.StatusCode, Cause: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &sdk.TokenError{
			Message:    fmt.Sprintf("IAM returned %d: %s", resp.StatusCode, iamErrorMessage(body)),
			StatusCode: resp.StatusCode,
		}
	}

	var tok sdk.StoredToken
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, &sdk.TokenError{Message: "decode IAM response", StatusCode: resp.StatusCode, Cause: err}
	}
	if tok.AccessToken == "" {
		return nil, &sdk.TokenError{Message: "IAM response has no access_token", StatusCode: resp.StatusCode}
	}
	if tok.Expiration == 0 && tok.ExpiresIn > 0 {
		tok.Expiration = m.now().Unix() + tok.ExpiresIn
	}
	return &tok, nil
}

// iamErrorMessage extracts errorMessage from an IAM error body.
func iamErrorMessage(body []byte) string {
	var e struct {
		ErrorCode    string `json:"errorCode"`
		ErrorMessage string `json:"errorMessage"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.ErrorMessage != "" {
		if e.ErrorCode != "" {
			return e.ErrorCode + " " + e.ErrorMessage
		}
		return e.ErrorMessage
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
