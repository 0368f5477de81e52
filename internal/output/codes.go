// Package output provides JSON/YAML/styled output formatting and error handling.
package output

import sdkerrors "github.com/watson-developer-cloud/go-sdk/internal/sdk/errors"

// Exit codes. They match the SDK error codes so a failed call maps to the
// same exit status whether it surfaced in the client or the CLI.
const (
	ExitOK            = sdkerrors.ExitOK
	ExitUsage         = sdkerrors.ExitUsage
	ExitNotFound      = sdkerrors.ExitNotFound
	ExitAuth          = sdkerrors.ExitAuth
	ExitForbidden     = sdkerrors.ExitForbidden
	ExitRateLimit     = sdkerrors.ExitRateLimit
	ExitNetwork       = sdkerrors.ExitNetwork
	ExitAPI           = sdkerrors.ExitAPI
	ExitConfiguration = sdkerrors.ExitConfiguration
	ExitTokenRefresh  = sdkerrors.ExitTokenRefresh
)

// Error codes for the JSON envelope.
const (
	CodeUsage         = sdkerrors.CodeUsage
	CodeMissingParams = sdkerrors.CodeMissingParams
	CodeNotFound      = sdkerrors.CodeNotFound
	CodeAuth          = sdkerrors.CodeAuth
	CodeForbidden     = sdkerrors.CodeForbidden
	CodeRateLimit     = sdkerrors.CodeRateLimit
	CodeNetwork       = sdkerrors.CodeNetwork
	CodeAPI           = sdkerrors.CodeAPI
	CodeConfiguration = sdkerrors.CodeConfiguration
	CodeTokenRefresh  = sdkerrors.CodeTokenRefresh
)

// ExitCodeFor returns the exit code for a given error code.
func ExitCodeFor(code string) int {
	return sdkerrors.ExitCodeFor(code)
}
