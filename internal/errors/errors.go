// Package errors provides structured CLI error types for exttest.
//
// CLIError wraps errors with user-facing messages, hints, and exit codes
// to provide consistent, actionable error output across all commands.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Exit codes for CLI errors.
const (
	ExitSuccess     = 0  // Successful execution
	ExitGeneral     = 1  // General error
	ExitConfig      = 4  // Configuration error
	ExitTestFailure = 7  // One or more external tests failed
	ExitUsage       = 64 // Command line usage error (BSD convention)
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

// ConfigFailed returns an error for a failed configuration operation.
func ConfigFailed(operation string, cause error) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Failed to %s", operation),
		Hint:    "Check permissions on the exttest config directory",
		Cause:   cause,
		Code:    ExitConfig,
	}
}

// UnknownConfigKey returns an error for a key exttest does not understand.
func UnknownConfigKey(key string, known []string) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Unknown configuration key: %s", key),
		Hint:    fmt.Sprintf("Known keys: %s", strings.Join(known, ", ")),
		Code:    ExitUsage,
	}
}

// ManifestInvalid returns an error for a manifest that cannot be loaded.
func ManifestInvalid(path string, cause error) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Invalid test manifest %s", path),
		Hint:    "Manifests list suites and their tests; see 'exttest run --help'",
		Cause:   cause,
		Code:    ExitConfig,
	}
}

// TestSelectionRequired returns an error when neither a suite/test pair
// nor a manifest was given.
func TestSelectionRequired(commandPath string) *CLIError {
	return &CLIError{
		Message: "No external test selected",
		Hint:    fmt.Sprintf("Run '%s <suite> <test>' or pass --manifest", commandPath),
		Code:    ExitUsage,
	}
}

// SourceDirInvalid returns an error for an unusable source directory.
func SourceDirInvalid(dir string, cause error) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Source directory is not usable: %s", dir),
		Hint:    "Set --source-dir or EXTTEST_SOURCE_DIR to the root of the source tree",
		Cause:   cause,
		Code:    ExitConfig,
	}
}

// ExternalTestsFailed returns the error for a run with failing tests.
func ExternalTestsFailed(failed, total int) *CLIError {
	noun := "tests"
	if total == 1 {
		noun = "test"
	}

	return &CLIError{
		Message: fmt.Sprintf("%d of %d external %s failed", failed, total, noun),
		Hint:    "Re-run with --verbose to see the scripts' output",
		Code:    ExitTestFailure,
	}
}
