// Package sdk provides core SDK interfaces for the Watson service clients.
package sdk

import (
	"context"
	"sync"

	sdkerrors "github.com/watson-developer-cloud/go-sdk/internal/sdk/errors"
)

// TokenSource provides bearer tokens for API authentication.
// Implementations handle token acquisition, caching, and refresh.
type TokenSource interface {
	// Token returns a valid access token.
	// Implementations should handle token refresh automatically.
	Token(ctx context.Context) (string, error)

	// SetToken injects a caller-managed token. The caller is then
	// responsible for replacing it before it expires.
	SetToken(token string)
}

// StaticTokenSource provides a fixed, caller-managed token.
type StaticTokenSource struct {
	mu          sync.RWMutex
	AccessToken string
}

// NewStaticTokenSource returns a token source that always yields token.
func NewStaticTokenSource(token string) *StaticTokenSource {
	return &StaticTokenSource{AccessToken: token}
}

// Token returns the static token.
func (s *StaticTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.AccessToken == "" {
		return "", sdkerrors.ErrTokenRefresh(&TokenError{Message: "no access token configured"})
	}
	return s.AccessToken, nil
}

// SetToken replaces the static token.
func (s *StaticTokenSource) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AccessToken = token
}

// TokenError indicates a token sourcing error.
type TokenError struct {
	Message    string
	StatusCode int
	Cause      error
}

func (e *TokenError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *TokenError) Unwrap() error {
	return e.Cause
}
