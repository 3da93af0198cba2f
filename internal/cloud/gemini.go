// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/jeranaias/agentic-studio/internal/logging"
	"github.com/jeranaias/agentic-studio/internal/model"
)

// DefaultGeminiModel is the model used when none is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// ContentStreamer is the slice of the genai Models service the Gemini
// transport uses. *genai.Models satisfies it.
type ContentStreamer interface {
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
	Get(ctx context.Context, model string, config *genai.GetModelConfig) (*genai.Model, error)
}

// StreamerFactory creates a ContentStreamer for an API key.
type StreamerFactory func(ctx context.Context, apiKey string, baseURL string) (ContentStreamer, error)

// newGenAIStreamer builds a Gemini API client.
func newGenAIStreamer(ctx context.Context, apiKey string, baseURL string) (ContentStreamer, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return client.Models, nil
}

// =============================================================================
// GEMINI TRANSPORT
// =============================================================================

// GeminiTransport streams tokens through the Google GenAI SDK. Each unit the
// SDK yields is already decoded text, so no framing is involved.
type GeminiTransport struct {
	model       string
	baseURL     string
	idleTimeout time.Duration
	factory     StreamerFactory
	logger      *zap.Logger

	mu       sync.Mutex
	streamer ContentStreamer
	keyUsed  string
}

// NewGeminiTransport creates a transport for DefaultGeminiModel.
func NewGeminiTransport(logger *zap.Logger) *GeminiTransport {
	return &GeminiTransport{
		model:   DefaultGeminiModel,
		factory: newGenAIStreamer,
		logger:  logging.OrNop(logger).Named("gemini"),
	}
}

// WithModel sets the model identifier.
func (t *GeminiTransport) WithModel(model string) *GeminiTransport {
	if model != "" {
		t.model = model
	}
	return t
}

// WithBaseURL points the SDK at a different API host.
func (t *GeminiTransport) WithBaseURL(url string) *GeminiTransport {
	t.baseURL = url
	return t
}

// WithIdleTimeout cancels a stream that yields nothing for d.
func (t *GeminiTransport) WithIdleTimeout(d time.Duration) *GeminiTransport {
	t.idleTimeout = d
	return t
}

// WithStreamerFactory replaces how SDK clients are built.
func (t *GeminiTransport) WithStreamerFactory(f StreamerFactory) *GeminiTransport {
	if f != nil {
		t.factory = f
	}
	return t
}

// Provider returns ProviderGemini.
func (t *GeminiTransport) Provider() ProviderID { return ProviderGemini }

// Model returns the configured model identifier.
func (t *GeminiTransport) Model() string { return t.model }

// streamerFor returns a cached client, rebuilding it when the key changes.
func (t *GeminiTransport) streamerFor(ctx context.Context, apiKey string) (ContentStreamer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.streamer != nil && t.keyUsed == apiKey {
		return t.streamer, nil
	}
	s, err := t.factory(ctx, apiKey, t.baseURL)
	if err != nil {
		return nil, &TransportError{Provider: ProviderGemini, Err: err}
	}
	t.streamer, t.keyUsed = s, apiKey
	return s, nil
}

// OpenStream starts a streaming generation for history plus message.
func (t *GeminiTransport) OpenStream(ctx context.Context, history []model.Message, message string, creds Credentials) (Stream, error) {
	if err := checkCredentials(ProviderGemini, creds); err != nil {
		return nil, err
	}
	streamer, err := t.streamerFor(ctx, strings.TrimSpace(creds.APIKey))
	if err != nil {
		return nil, err
	}

	streamCtx, cancel := context.WithCancel(ctx)
	watchdog := newIdleWatchdog(t.idleTimeout, cancel)
	seq := streamer.GenerateContentStream(streamCtx, t.model, toGenAIContents(history, message), nil)
	next, stop := iter.Pull2(seq)

	t.logger.Debug("stream opened", zap.String("model", t.model), zap.Int("history", len(history)))

	return &sdkStream{
		next:     next,
		stop:     stop,
		ctx:      ctx,
		cancel:   cancel,
		watchdog: watchdog,
	}, nil
}

// Ping fetches the configured model's metadata.
func (t *GeminiTransport) Ping(ctx context.Context, creds Credentials) error {
	if err := checkCredentials(ProviderGemini, creds); err != nil {
		return err
	}
	streamer, err := t.streamerFor(ctx, strings.TrimSpace(creds.APIKey))
	if err != nil {
		return err
	}
	if _, err := streamer.Get(ctx, t.model, nil); err != nil {
		return geminiError(err)
	}
	return nil
}

// toGenAIContents maps chat roles onto Gemini roles (assistant -> model).
func toGenAIContents(history []model.Message, message string) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, m := range history {
		if m.Content == "" {
			continue
		}
		role := genai.Role(genai.RoleUser)
		if m.Role == model.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	return append(contents, genai.NewContentFromText(message, genai.RoleUser))
}

// geminiError wraps an SDK error, keeping the API status and message.
func geminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		var sentinel error = apiErr
		switch apiErr.Code {
		case 401, 403:
			sentinel = ErrAuthFailed
		case 429:
			sentinel = ErrRateLimited
		}
		return &TransportError{Provider: ProviderGemini, Status: apiErr.Code, Body: apiErr.Message, Err: sentinel}
	}
	return &TransportError{Provider: ProviderGemini, Err: err}
}

// =============================================================================
// SDK STREAM
// =============================================================================

// sdkStream adapts the SDK's push iterator to the pull-based Stream.
type sdkStream struct {
	next     func() (*genai.GenerateContentResponse, error, bool)
	stop     func()
	ctx      context.Context
	cancel   context.CancelFunc
	watchdog *idleWatchdog

	delta  string
	err    error
	done   bool
	closed bool
}

func (s *sdkStream) Next() bool {
	s.delta = ""
	for !s.done {
		resp, err, ok := s.next()
		if !ok {
			s.finish()
			return false
		}
		if err != nil {
			s.err = s.mapErr(err)
			s.finish()
			return false
		}
		s.watchdog.Touch()
		if resp == nil {
			continue
		}
		if text := resp.Text(); text != "" {
			s.delta = text
			return true
		}
	}
	return false
}

func (s *sdkStream) mapErr(err error) error {
	if s.watchdog.Fired() {
		return &TransportError{Provider: ProviderGemini, Err: ErrStreamTimeout}
	}
	if ctxErr := s.ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return geminiError(err)
}

func (s *sdkStream) finish() {
	s.done = true
	s.watchdog.Stop()
}

func (s *sdkStream) Delta() string { return s.delta }

func (s *sdkStream) Err() error { return s.err }

func (s *sdkStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.finish()
	s.stop()
	s.cancel()
	return nil
}
