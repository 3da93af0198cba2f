// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	// ErrNotConfigured indicates the provider or API key is missing or invalid.
	// Every ConfigurationError unwraps to it.
	ErrNotConfigured = errors.New("AI provider not configured")

	// ErrUnknownProvider indicates a provider id with no registered transport.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrAuthFailed indicates the provider rejected the API key.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrStreamTimeout indicates the stream produced no data within the idle
	// timeout.
	ErrStreamTimeout = errors.New("stream idle timeout")

	// ErrLineTooLong indicates an event-stream line exceeded MaxLineSize.
	ErrLineTooLong = errors.New("event-stream line too long")
)

// =============================================================================
// TYPED ERRORS
// =============================================================================

// ConfigurationError reports missing or invalid provider configuration. It
// is raised before any network call.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "configuration error: " + e.Message
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is(err, ErrNotConfigured) match.
func (e *ConfigurationError) Unwrap() error {
	return ErrNotConfigured
}

// TransportError reports a failed exchange with a provider: a non-2xx
// response, a connection failure or a stream that broke mid-way.
type TransportError struct {
	Provider ProviderID
	Status   int    // HTTP status, 0 when no response was received
	Body     string // provider error payload text, if any
	Err      error
}

func (e *TransportError) Error() string {
	switch {
	case e.Status != 0 && e.Body != "":
		return fmt.Sprintf("%s transport error (HTTP %d): %s", e.Provider, e.Status, e.Body)
	case e.Status != 0:
		return fmt.Sprintf("%s transport error (HTTP %d): %v", e.Provider, e.Status, e.Err)
	default:
		return fmt.Sprintf("%s transport error: %v", e.Provider, e.Err)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Detail returns the text best suited to show a user: the provider payload
// when present, otherwise the underlying error.
func (e *TransportError) Detail() string {
	if e.Body != "" {
		return e.Body
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// FrameDecodeError describes one event-stream frame that could not be
// parsed. The decoder logs and skips these; they never end a stream.
type FrameDecodeError struct {
	Line string
	Err  error
}

func (e *FrameDecodeError) Error() string {
	return fmt.Sprintf("malformed stream frame %q: %v", e.Line, e.Err)
}

func (e *FrameDecodeError) Unwrap() error {
	return e.Err
}

// IsConfigurationError reports whether err is (or wraps) a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
