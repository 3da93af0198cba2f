// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jeranaias/agentic-studio/internal/model"
	"github.com/jeranaias/agentic-studio/internal/util"
)

// =============================================================================
// PROVIDERS
// =============================================================================

// ProviderID names a backend.
type ProviderID string

const (
	ProviderGemini ProviderID = "gemini"
	ProviderGroq   ProviderID = "groq"
)

// MinAPIKeyLength is the shortest API key accepted. Keys of ten characters
// or fewer are rejected before any request is made.
const MinAPIKeyLength = 11

// KnownProviders lists every provider id in display order.
func KnownProviders() []ProviderID {
	return []ProviderID{ProviderGemini, ProviderGroq}
}

// ParseProvider converts a user-supplied name to a ProviderID.
func ParseProvider(name string) (ProviderID, error) {
	id := ProviderID(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range KnownProviders() {
		if id == known {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProvider, name)
}

// =============================================================================
// CREDENTIALS
// =============================================================================

// Credentials is the single active provider configuration.
type Credentials struct {
	Provider ProviderID `json:"provider"`
	APIKey   string     `json:"apiKey"`
}

// IsConfigured reports whether both fields are present.
func (c Credentials) IsConfigured() bool {
	return c.Provider != "" && strings.TrimSpace(c.APIKey) != ""
}

// Validate returns a ConfigurationError when the credentials cannot be used.
func (c Credentials) Validate() error {
	if c.Provider == "" {
		return &ConfigurationError{Field: "provider", Message: "no AI provider selected"}
	}
	if _, err := ParseProvider(string(c.Provider)); err != nil {
		return &ConfigurationError{Field: "provider", Message: err.Error()}
	}
	key := strings.TrimSpace(c.APIKey)
	if key == "" {
		return &ConfigurationError{Field: "apiKey", Message: "no API key set"}
	}
	if len(key) < MinAPIKeyLength {
		return &ConfigurationError{
			Field:   "apiKey",
			Message: fmt.Sprintf("API key must be longer than %d characters", MinAPIKeyLength-1),
		}
	}
	return nil
}

// Masked returns the API key in a form safe to print.
func (c Credentials) Masked() string {
	return util.MaskSecret(c.APIKey)
}

// =============================================================================
// TRANSPORT
// =============================================================================

// Stream is a pull-based, finite, non-restartable sequence of text deltas.
//
//	for s.Next() {
//	    fmt.Print(s.Delta())
//	}
//	if err := s.Err(); err != nil { ... }
//
// Close releases the underlying connection; it is safe to call more than
// once and after the stream is exhausted.
type Stream interface {
	Next() bool
	Delta() string
	Err() error
	Close() error
}

// Transport opens a delta stream for one assistant turn. history holds the
// earlier turns in order; message is the new user input.
//
// Implementations must return a ConfigurationError for unusable credentials
// before doing any network I/O.
type Transport interface {
	Provider() ProviderID
	OpenStream(ctx context.Context, history []model.Message, message string, creds Credentials) (Stream, error)
}

// Pinger is implemented by transports that can check credentials with a
// cheap request.
type Pinger interface {
	Ping(ctx context.Context, creds Credentials) error
}

// checkCredentials validates creds and that they belong to provider.
func checkCredentials(provider ProviderID, creds Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}
	if creds.Provider != provider {
		return &ConfigurationError{
			Field:   "provider",
			Message: fmt.Sprintf("credentials are for %s, not %s", creds.Provider, provider),
		}
	}
	return nil
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry is the lookup table from provider id to transport.
type Registry struct {
	transports map[ProviderID]Transport
}

// NewRegistry builds a registry from transports. A later transport with the
// same provider id replaces an earlier one.
func NewRegistry(transports ...Transport) *Registry {
	r := &Registry{transports: make(map[ProviderID]Transport, len(transports))}
	for _, t := range transports {
		r.transports[t.Provider()] = t
	}
	return r
}

// Lookup returns the transport for id.
func (r *Registry) Lookup(id ProviderID) (Transport, error) {
	if id == "" {
		return nil, &ConfigurationError{Field: "provider", Message: "no AI provider selected"}
	}
	t, ok := r.transports[id]
	if !ok {
		return nil, &ConfigurationError{Field: "provider", Message: fmt.Sprintf("%v: %s", ErrUnknownProvider, id)}
	}
	return t, nil
}

// Providers returns the registered provider ids, sorted.
func (r *Registry) Providers() []ProviderID {
	ids := make([]ProviderID, 0, len(r.transports))
	for id := range r.transports {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
