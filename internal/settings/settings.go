// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package settings holds the active AI provider and API key.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/agentic-studio/internal/cloud"
	"github.com/jeranaias/agentic-studio/internal/logging"
	"github.com/jeranaias/agentic-studio/internal/storage"
)

// Key is the storage key of the persisted settings.
const Key = "agentic-studio-settings"

// DefaultTestTimeout bounds a connection test.
const DefaultTestTimeout = 15 * time.Second

// Connection test messages.
const (
	MsgConnectionOK   = "Connection successful!"
	MsgInvalidKey     = "Invalid API Key. Please check and try again."
	MsgNoProvider     = "Please select an AI provider."
	msgConnectionFail = "Connection failed: "
)

// TransportResolver selects the transport for a provider.
type TransportResolver interface {
	Lookup(id cloud.ProviderID) (cloud.Transport, error)
}

// TestResult is the outcome of TestConnection.
type TestResult struct {
	OK      bool
	Message string
}

// Store is the single provider configuration. It is safe for concurrent
// use.
type Store struct {
	blobs      storage.Store
	transports TransportResolver
	logger     *zap.Logger

	mu       sync.RWMutex
	saved    cloud.Credentials
	override cloud.Credentials
}

// New creates a store. blobs may be nil for settings that live only in
// memory; transports may be nil to limit TestConnection to a format check.
func New(blobs storage.Store, transports TransportResolver, logger *zap.Logger) *Store {
	return &Store{
		blobs:      blobs,
		transports: transports,
		logger:     logging.OrNop(logger).Named("settings"),
	}
}

// Load reads the persisted settings. Missing or unreadable settings leave
// the store unconfigured; only a cancelled context is returned.
func (s *Store) Load(ctx context.Context) error {
	if s.blobs == nil {
		return nil
	}
	data, err := s.blobs.Load(ctx, Key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		s.logger.Warn("failed to load settings", zap.Error(err))
		return nil
	}

	var creds cloud.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		s.logger.Warn("ignoring malformed settings", zap.Error(err))
		return nil
	}

	s.mu.Lock()
	s.saved = creds
	s.mu.Unlock()
	s.logger.Debug("settings loaded",
		zap.String("provider", string(creds.Provider)),
		zap.String("api_key", creds.Masked()))
	return nil
}

// Save validates the provider id and persists creds.
func (s *Store) Save(ctx context.Context, creds cloud.Credentials) error {
	creds.APIKey = strings.TrimSpace(creds.APIKey)
	if creds.Provider != "" {
		id, err := cloud.ParseProvider(string(creds.Provider))
		if err != nil {
			return err
		}
		creds.Provider = id
	}

	if s.blobs != nil {
		data, err := json.Marshal(creds)
		if err != nil {
			return fmt.Errorf("failed to encode settings: %w", err)
		}
		if err := s.blobs.Save(ctx, Key, data); err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}
	}

	s.mu.Lock()
	s.saved = creds
	s.mu.Unlock()
	s.logger.Info("settings saved",
		zap.String("provider", string(creds.Provider)),
		zap.String("api_key", creds.Masked()))
	return nil
}

// Clear forgets the persisted settings.
func (s *Store) Clear(ctx context.Context) error {
	if s.blobs != nil {
		if err := s.blobs.Clear(ctx, Key); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.saved = cloud.Credentials{}
	s.mu.Unlock()
	return nil
}

// Override sets values that take precedence over the saved ones for this
// process only, such as those from environment variables. Empty fields do
// not override.
func (s *Store) Override(creds cloud.Credentials) {
	s.mu.Lock()
	s.override = creds
	s.mu.Unlock()
}

// Saved returns the persisted credentials without overrides.
func (s *Store) Saved() cloud.Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saved
}

// Credentials returns the effective credentials.
func (s *Store) Credentials() cloud.Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	creds := s.saved
	if s.override.Provider != "" {
		creds.Provider = s.override.Provider
	}
	if s.override.APIKey != "" {
		creds.APIKey = s.override.APIKey
	}
	return creds
}

// IsConfigured reports whether both a provider and a key are set.
func (s *Store) IsConfigured() bool {
	return s.Credentials().IsConfigured()
}

// TestConnection checks creds: first their format, then, when the
// provider's transport supports it, a live request.
func (s *Store) TestConnection(ctx context.Context, creds cloud.Credentials) TestResult {
	if creds.Provider == "" {
		return TestResult{Message: MsgNoProvider}
	}
	if err := creds.Validate(); err != nil {
		var cfgErr *cloud.ConfigurationError
		if errors.As(err, &cfgErr) && cfgErr.Field == "provider" {
			return TestResult{Message: cfgErr.Message}
		}
		return TestResult{Message: MsgInvalidKey}
	}
	if s.transports == nil {
		return TestResult{OK: true, Message: MsgConnectionOK}
	}

	transport, err := s.transports.Lookup(creds.Provider)
	if err != nil {
		return TestResult{Message: err.Error()}
	}
	pinger, ok := transport.(cloud.Pinger)
	if !ok {
		return TestResult{OK: true, Message: MsgConnectionOK}
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultTestTimeout)
	defer cancel()
	if err := pinger.Ping(ctx, creds); err != nil {
		s.logger.Info("connection test failed",
			zap.String("provider", string(creds.Provider)),
			zap.String("api_key", creds.Masked()),
			zap.Error(err))
		if errors.Is(err, cloud.ErrAuthFailed) {
			return TestResult{Message: MsgInvalidKey}
		}
		var tErr *cloud.TransportError
		if errors.As(err, &tErr) && tErr.Status == 400 && strings.Contains(strings.ToLower(tErr.Body), "api key") {
			return TestResult{Message: MsgInvalidKey}
		}
		if tErr != nil {
			return TestResult{Message: msgConnectionFail + tErr.Detail()}
		}
		return TestResult{Message: msgConnectionFail + err.Error()}
	}
	return TestResult{OK: true, Message: MsgConnectionOK}
}
