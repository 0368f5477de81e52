package output

import (
	"errors"
	"fmt"
	"strings"

	sdkerrors "github.com/watson-developer-cloud/go-sdk/internal/sdk/errors"
)

// Error is a structured error with code, message, and optional hint.
type Error struct {
	Code       string
	Message    string
	Hint       string
	HTTPStatus int
	Retryable  bool
	Cause      error
}

func (e *Error) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Hint)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ExitCode returns the appropriate exit code for this error.
func (e *Error) ExitCode() int {
	return ExitCodeFor(e.Code)
}

// Error constructors for common cases.

func ErrUsage(msg string) *Error {
	return &Error{Code: CodeUsage, Message: msg}
}

func ErrUsageHint(msg, hint string) *Error {
	return &Error{Code: CodeUsage, Message: msg, Hint: hint}
}

func ErrNotFound(resource, identifier string) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found: %s", resource, identifier),
	}
}

func ErrConfiguration(msg string) *Error {
	return &Error{
		Code:    CodeConfiguration,
		Message: msg,
		Hint:    hintCredentials,
	}
}

func ErrNetwork(cause error) *Error {
	return &Error{
		Code:      CodeNetwork,
		Message:   "Network error",
		Hint:      cause.Error(),
		Retryable: true,
		Cause:     cause,
	}
}

const (
	hintCredentials = "Check credentials: watson credentials show"
	hintTokenClear  = "Clear the cached token: watson token clear"
)

// AsError converts err to an *Error. SDK errors keep their code and status
// and gain a CLI hint; anything else becomes an api_error.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if se, ok := sdkerrors.As(err); ok {
		return fromSDK(se)
	}
	return &Error{
		Code:    CodeAPI,
		Message: err.Error(),
		Cause:   err,
	}
}

func fromSDK(se *sdkerrors.Error) *Error {
	out := &Error{
		Code:       se.Code,
		Message:    se.Error(),
		HTTPStatus: se.HTTPStatus,
		Retryable:  se.Retryable,
		Cause:      se,
	}
	switch se.Code {
	case CodeConfiguration, CodeAuth:
		out.Hint = hintCredentials
	case CodeForbidden:
		if se.Detail != "" {
			out.Hint = se.Detail
		} else {
			out.Hint = hintCredentials
		}
	case CodeTokenRefresh:
		out.Hint = hintTokenClear
	case CodeMissingParams:
		out.Hint = "Provide: " + strings.Join(se.Params, ", ")
	case CodeRateLimit:
		out.Hint = "Try again later"
	case CodeNetwork:
		if se.Cause != nil {
			out.Hint = se.Cause.Error()
		}
	}
	return out
}
