// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types, display and exit codes for CLI commands.
//
// Commands return errors; the caller decides how to display them.

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/agentic-studio/internal/cloud"
	"github.com/jeranaias/agentic-studio/internal/config"
	"github.com/jeranaias/agentic-studio/internal/files"
	"github.com/jeranaias/agentic-studio/internal/session"
	"github.com/jeranaias/agentic-studio/internal/workspace"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitUsageError    = 2
	ExitConfigError   = 3
	ExitAuthError     = 4
	ExitNetworkError  = 5
	ExitNotFoundError = 7
	ExitTimeoutError  = 8
	ExitCancelled     = 130
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // e.g. "settings"
	Action  string // e.g. "set"
	Reason  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// UsageError reports invalid command usage.
type UsageError struct {
	Message string
	Example string
}

func (e *UsageError) Error() string {
	if e.Example != "" {
		return fmt.Sprintf("%s\nUsage: %s", e.Message, e.Example)
	}
	return e.Message
}

// ErrMissingArgument creates an error for a missing required argument.
func ErrMissingArgument(argName, usage string) error {
	return &UsageError{Message: "missing " + argName, Example: usage}
}

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError writes err in a consistent format, as JSON in jsonMode.
func DisplayError(w io.Writer, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		displayErrorJSON(w, err)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), describeError(err))
}

func displayErrorJSON(w io.Writer, err error) {
	output := map[string]interface{}{
		"error":     describeError(err),
		"success":   false,
		"exit_code": GetExitCode(err),
	}

	var (
		cmdErr   *CommandError
		usageErr *UsageError
		tErr     *cloud.TransportError
		nfErr    *files.NotFoundError
	)
	switch {
	case errors.As(err, &cmdErr):
		output["error_type"] = "command_error"
		output["command"] = cmdErr.Command
		output["action"] = cmdErr.Action
	case errors.As(err, &usageErr):
		output["error_type"] = "usage_error"
	case errors.As(err, &tErr):
		output["error_type"] = "transport_error"
		output["provider"] = string(tErr.Provider)
		if tErr.Status != 0 {
			output["status"] = tErr.Status
		}
	case errors.As(err, &nfErr):
		output["error_type"] = "not_found_error"
		output["path"] = nfErr.Path
	case cloud.IsConfigurationError(err):
		output["error_type"] = "configuration_error"
	default:
		output["error_type"] = "generic_error"
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(output)
}

// describeError prefers the provider's own words for transport failures.
func describeError(err error) string {
	var tErr *cloud.TransportError
	if errors.As(err, &tErr) {
		return session.Describe(err)
	}
	return err.Error()
}

// GetExitCode maps an error to a process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var (
		usageErr *UsageError
		valErrs  config.ValidateErrors
		tErr     *cloud.TransportError
	)
	switch {
	case errors.Is(err, session.ErrCancelled), errors.Is(err, context.Canceled):
		return ExitCancelled
	case errors.As(err, &usageErr), errors.Is(err, session.ErrEmptyMessage):
		return ExitUsageError
	case cloud.IsConfigurationError(err), errors.As(err, &valErrs):
		return ExitConfigError
	case errors.Is(err, cloud.ErrAuthFailed):
		return ExitAuthError
	case errors.Is(err, cloud.ErrStreamTimeout), errors.Is(err, context.DeadlineExceeded):
		return ExitTimeoutError
	case errors.As(err, &tErr):
		return ExitNetworkError
	case files.IsNotFound(err), errors.Is(err, workspace.ErrPaneNotFound):
		return ExitNotFoundError
	default:
		return ExitGeneralError
	}
}
