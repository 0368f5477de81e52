// Package errors provides SDK error types without CLI-specific hints.
// The CLI layer wraps these with user-facing hints.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Error is a structured error for SDK operations.
// Unlike output.Error, it does not contain CLI-specific hints.
type Error struct {
	Code       string         // Error code (e.g., "configuration", "missing_params")
	Message    string         // Error message
	HTTPStatus int            // HTTP status code if applicable
	Params     []string       // Missing parameter names (missing_params only)
	Body       map[string]any // Parsed error body returned by the service, if any
	Detail     string         // Original service message when Message was rewritten
	Retryable  bool           // Whether the whole operation may be retried
	Cause      error          // Underlying error
}

func (e *Error) Error() string {
	if e.Cause != nil && e.Code == CodeTokenRefresh {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Error codes.
const (
	CodeConfiguration = "configuration"
	CodeMissingParams = "missing_params"
	CodeTokenRefresh  = "token_refresh"
	CodeAuth          = "auth_required"
	CodeForbidden     = "forbidden"
	CodeNotFound      = "not_found"
	CodeRateLimit     = "rate_limit"
	CodeNetwork       = "network"
	CodeAPI           = "api_error"
	CodeUsage         = "usage"
)

// Exit codes.
const (
	ExitOK            = 0 // Success
	ExitUsage         = 1 // Invalid arguments or flags
	ExitNotFound      = 2 // Resource not found
	ExitAuth          = 3 // Rejected credentials
	ExitForbidden     = 4 // Access denied
	ExitRateLimit     = 5 // Rate limited (429)
	ExitNetwork       = 6 // Connection/DNS/timeout error
	ExitAPI           = 7 // Server returned error
	ExitConfiguration = 8 // Bad or missing credentials
	ExitTokenRefresh  = 9 // IAM token exchange failed
)

// ExitCodeFor returns the exit code for a given error code.
func ExitCodeFor(code string) int {
	switch code {
	case CodeUsage, CodeMissingParams:
		return ExitUsage
	case CodeNotFound:
		return ExitNotFound
	case CodeAuth:
		return ExitAuth
	case CodeForbidden:
		return ExitForbidden
	case CodeRateLimit:
		return ExitRateLimit
	case CodeNetwork:
		return ExitNetwork
	case CodeConfiguration:
		return ExitConfiguration
	case CodeTokenRefresh:
		return ExitTokenRefresh
	default:
		return ExitAPI
	}
}

// Error constructors.

// ErrConfiguration creates a configuration error. Construction-time only.
func ErrConfiguration(msg string) *Error {
	return &Error{Code: CodeConfiguration, Message: msg}
}

// ErrConfigurationf creates a configuration error with a formatted message.
func ErrConfigurationf(format string, args ...any) *Error {
	return ErrConfiguration(fmt.Sprintf(format, args...))
}

// ErrMissingParams creates a missing parameter error naming every absent parameter.
func ErrMissingParams(params []string) *Error {
	return &Error{
		Code:    CodeMissingParams,
		Message: "Missing required parameters: " + strings.Join(params, ", "),
		Params:  append([]string(nil), params...),
	}
}

// ErrUsage creates a usage error for malformed call arguments.
func ErrUsage(msg string) *Error {
	return &Error{Code: CodeUsage, Message: msg}
}

// ErrTokenRefresh creates a token refresh error wrapping the exchange failure.
func ErrTokenRefresh(cause error) *Error {
	return &Error{
		Code:      CodeTokenRefresh,
		Message:   "IAM token request failed",
		Retryable: true,
		Cause:     cause,
	}
}

// ErrNetwork creates a network error.
func ErrNetwork(cause error) *Error {
	return &Error{
		Code:      CodeNetwork,
		Message:   "Network error",
		Retryable: true,
		Cause:     cause,
	}
}

// ErrAPI creates an API error, choosing the code from the HTTP status.
func ErrAPI(status int, msg string) *Error {
	code := CodeAPI
	switch status {
	case 401:
		code = CodeAuth
	case 403:
		code = CodeForbidden
	case 404:
		code = CodeNotFound
	case 429:
		code = CodeRateLimit
	}
	return &Error{
		Code:       code,
		Message:    msg,
		HTTPStatus: status,
		Retryable:  status == 429 || status >= 500,
	}
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func hasCode(err error, codes ...string) bool {
	e, ok := As(err)
	if !ok {
		return false
	}
	for _, c := range codes {
		if e.Code == c {
			return true
		}
	}
	return false
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool { return hasCode(err, CodeConfiguration) }

// IsMissingParams reports whether err is a missing parameter error.
func IsMissingParams(err error) bool { return hasCode(err, CodeMissingParams) }

// IsTokenRefresh reports whether err is a token refresh error.
func IsTokenRefresh(err error) bool { return hasCode(err, CodeTokenRefresh) }

// IsTransport reports whether err came from the HTTP call itself,
// either a non-2xx response or a network failure.
func IsTransport(err error) bool {
	return hasCode(err, CodeAPI, CodeAuth, CodeForbidden, CodeNotFound, CodeRateLimit, CodeNetwork)
}
