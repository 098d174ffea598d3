// Package errors provides structured CLI error types for PanelKit.
//
// CLIError wraps errors with user-facing messages, hints, and exit codes
// to provide consistent, actionable error output across all commands.
package errors

import (
	"errors"
	"fmt"
)

// Exit codes for CLI errors.
const (
	ExitSuccess = 0  // Successful execution
	ExitGeneral = 1  // General error
	ExitAuth    = 2  // Authentication error
	ExitNetwork = 3  // Network/host API error
	ExitConfig  = 4  // Configuration error
	ExitUsage   = 64 // Command line usage error (BSD convention)
)

// CLIError represents a user-facing CLI error with actionable guidance.
type CLIError struct {
	// Message is the primary error message shown to the user.
	Message string

	// Hint provides actionable guidance on how to fix the error.
	Hint string

	// Cause is the underlying error, if any.
	Cause error

	// Code is the exit code for the CLI.
	Code int
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}

	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CLIError) Unwrap() error {
	return e.Cause
}

// New creates a new CLIError with the given message and exit code.
func New(code int, message string) *CLIError {
	return &CLIError{
		Message: message,
		Code:    code,
	}
}

// Wrap wraps an existing error with a CLIError.
func Wrap(code int, message string, cause error) *CLIError {
	return &CLIError{
		Message: message,
		Cause:   cause,
		Code:    code,
	}
}

// WithHint adds a hint to the error.
func (e *CLIError) WithHint(hint string) *CLIError {
	e.Hint = hint
	return e
}

// As is a convenience function for errors.As with CLIError.
func As(err error, target **CLIError) bool {
	return errors.As(err, target)
}

// --- Common error constructors ---

// NotAuthenticated returns an error indicating missing credentials.
func NotAuthenticated() *CLIError {
	return &CLIError{
		Message: "Not authenticated",
		Hint:    "Run 'panelkit auth login' to store a host API token",
		Code:    ExitAuth,
	}
}

// AuthFailed returns an error for failed authentication.
func AuthFailed(cause error) *CLIError {
	return &CLIError{
		Message: "Authentication failed",
		Hint:    "Check your host API token or run 'panelkit auth login'",
		Cause:   cause,
		Code:    ExitAuth,
	}
}

// TokenEmpty returns an error when the host API token is empty.
func TokenEmpty() *CLIError {
	return &CLIError{
		Message: "Host API token cannot be empty",
		Hint:    "Provide a token via 'panelkit auth login' or PANELKIT_HOST_TOKEN",
		Code:    ExitUsage,
	}
}

// HostUnreachable returns an error when the host API cannot be contacted.
func HostUnreachable(url string, cause error) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Cannot reach host at %s", url),
		Hint:    "Check host.url in your config, or start one with 'panelkit host'",
		Cause:   cause,
		Code:    ExitNetwork,
	}
}

// StatusFetchFailed returns an error for a failed one-shot status request.
func StatusFetchFailed(cause error) *CLIError {
	return &CLIError{
		Message: "Status request failed",
		Hint:    "The host may be down; retry or run 'panelkit doctor'",
		Cause:   cause,
		Code:    ExitNetwork,
	}
}

// ManifestInvalid returns an error for an unreadable or malformed plugin
// manifest.
func ManifestInvalid(path string, cause error) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Invalid plugin manifest: %s", path),
		Hint:    "The manifest must be TOML with at least id, name, and version",
		Cause:   cause,
		Code:    ExitConfig,
	}
}

// HostIncompatible returns an error when the manifest requires a newer host.
func HostIncompatible(required, actual string) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Plugin requires host version %s or newer (host is %s)", required, actual),
		Hint:    "Upgrade the host application or relax min_host_version in the manifest",
		Code:    ExitConfig,
	}
}

// ConfigFailed returns an error for configuration save failures.
func ConfigFailed(operation string, cause error) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Failed to %s configuration", operation),
		Hint:    "Check permissions on the config directory ('panelkit paths' shows it)",
		Cause:   cause,
		Code:    ExitConfig,
	}
}

// CannotPrompt returns an error when interactive prompts are unavailable.
func CannotPrompt(envVar string) *CLIError {
	return &CLIError{
		Message: "Cannot prompt in non-interactive mode",
		Hint:    fmt.Sprintf("Set %s environment variable instead", envVar),
		Code:    ExitUsage,
	}
}

// SocketUnavailable returns an error when the bridge socket cannot be
// opened.
func SocketUnavailable(path string, cause error) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Cannot open bridge socket %s", path),
		Hint:    "Make sure the host is running and the socket path matches --socket",
		Cause:   cause,
		Code:    ExitNetwork,
	}
}
