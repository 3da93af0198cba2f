// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jeranaias/agentic-studio/internal/logging"
	"github.com/jeranaias/agentic-studio/internal/model"
)

// Configuration constants for the Groq API.
const (
	// DefaultGroqEndpoint is the OpenAI-compatible chat completions endpoint.
	DefaultGroqEndpoint = "https://api.groq.com/openai/v1/chat/completions"

	// DefaultGroqModel is used when no model is configured.
	DefaultGroqModel = "llama-3.3-70b-versatile"

	// DefaultRequestsPerMinute matches Groq's free-tier limit.
	DefaultRequestsPerMinute = 30

	// MaxErrorBodySize bounds how much of an error response is read.
	MaxErrorBodySize = 64 * 1024

	userAgent = "agentic-studio/0.1"
)

// sharedStreamingClient has no overall timeout; streams are bounded by the
// request context and the idle watchdog.
var sharedStreamingClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
}

// chatRequest is the body of a streaming chat completion request.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// =============================================================================
// GROQ TRANSPORT
// =============================================================================

// GroqTransport streams chat completions over HTTP server-sent events.
type GroqTransport struct {
	endpoint    string
	model       string
	httpClient  *http.Client
	limiter     *rate.Limiter
	idleTimeout time.Duration
	logger      *zap.Logger
}

// NewGroqTransport creates a transport with default endpoint, model and
// rate limit.
func NewGroqTransport(logger *zap.Logger) *GroqTransport {
	t := &GroqTransport{
		endpoint:   DefaultGroqEndpoint,
		model:      DefaultGroqModel,
		httpClient: sharedStreamingClient,
		logger:     logging.OrNop(logger).Named("groq"),
	}
	return t.WithRateLimit(DefaultRequestsPerMinute)
}

// WithEndpoint sets the chat completions URL.
func (t *GroqTransport) WithEndpoint(url string) *GroqTransport {
	if url != "" {
		t.endpoint = url
	}
	return t
}

// WithModel sets the model identifier.
func (t *GroqTransport) WithModel(model string) *GroqTransport {
	if model != "" {
		t.model = model
	}
	return t
}

// WithHTTPClient replaces the HTTP client.
func (t *GroqTransport) WithHTTPClient(c *http.Client) *GroqTransport {
	if c != nil {
		t.httpClient = c
	}
	return t
}

// WithRateLimit limits requests per minute. Zero or less disables limiting.
func (t *GroqTransport) WithRateLimit(perMinute int) *GroqTransport {
	if perMinute <= 0 {
		t.limiter = nil
		return t
	}
	t.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
	return t
}

// WithIdleTimeout cancels a stream that delivers no bytes for d.
func (t *GroqTransport) WithIdleTimeout(d time.Duration) *GroqTransport {
	t.idleTimeout = d
	return t
}

// Provider returns ProviderGroq.
func (t *GroqTransport) Provider() ProviderID { return ProviderGroq }

// Model returns the configured model identifier.
func (t *GroqTransport) Model() string { return t.model }

// OpenStream posts the conversation and returns the decoded delta stream.
func (t *GroqTransport) OpenStream(ctx context.Context, history []model.Message, message string, creds Credentials) (Stream, error) {
	if err := checkCredentials(ProviderGroq, creds); err != nil {
		return nil, err
	}

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Provider: ProviderGroq, Err: fmt.Errorf("rate limiter: %w", err)}
		}
	}

	body, err := json.Marshal(chatRequest{
		Model:    t.model,
		Messages: toChatMessages(history, message),
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(streamCtx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	t.setHeaders(req, creds)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	start := time.Now()
	resp, err := t.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, &TransportError{Provider: ProviderGroq, Err: fmt.Errorf("request failed: %w", err)}
	}
	t.logger.Debug("stream opened",
		zap.String("model", t.model),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer cancel()
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, MaxErrorBodySize))
		return nil, handleErrorResponse(ProviderGroq, resp.StatusCode, errBody)
	}

	watchdog := newIdleWatchdog(t.idleTimeout, cancel)
	var bodyReader io.ReadCloser = resp.Body
	if watchdog != nil {
		bodyReader = &touchReader{r: resp.Body, w: watchdog}
	}

	return &httpStream{
		Decoder:  NewDecoder(bodyReader, t.logger),
		cancel:   cancel,
		watchdog: watchdog,
		ctx:      ctx,
	}, nil
}

// Ping lists models to check that the key is accepted.
func (t *GroqTransport) Ping(ctx context.Context, creds Credentials) error {
	if err := checkCredentials(ProviderGroq, creds); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, modelsURL(t.endpoint), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	t.setHeaders(req, creds)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return &TransportError{Provider: ProviderGroq, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxErrorBodySize))
	if resp.StatusCode != http.StatusOK {
		return handleErrorResponse(ProviderGroq, resp.StatusCode, body)
	}
	return nil
}

// setHeaders sets auth and content headers. The key is never logged.
func (t *GroqTransport) setHeaders(req *http.Request, creds Credentials) {
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(creds.APIKey))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
}

// modelsURL derives the model listing URL from a chat completions URL.
func modelsURL(endpoint string) string {
	base := strings.TrimSuffix(strings.TrimRight(endpoint, "/"), "/chat/completions")
	return base + "/models"
}

// toChatMessages converts history plus the new message to wire messages.
// Empty assistant turns are dropped; providers reject empty content.
func toChatMessages(history []model.Message, message string) []chatMessage {
	msgs := make([]chatMessage, 0, len(history)+1)
	for _, m := range history {
		if m.Content == "" {
			continue
		}
		msgs = append(msgs, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	return append(msgs, chatMessage{Role: string(model.RoleUser), Content: message})
}

// handleErrorResponse converts a non-2xx response into a TransportError
// carrying the provider's error text.
func handleErrorResponse(provider ProviderID, statusCode int, body []byte) error {
	text := strings.TrimSpace(string(body))
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		text = apiErr.Error.Message
	}

	var sentinel error
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		sentinel = ErrAuthFailed
	case http.StatusTooManyRequests:
		sentinel = ErrRateLimited
	default:
		sentinel = errors.New(http.StatusText(statusCode))
	}

	return &TransportError{Provider: provider, Status: statusCode, Body: text, Err: sentinel}
}

// =============================================================================
// HTTP STREAM
// =============================================================================

// httpStream couples a Decoder with the request lifetime.
type httpStream struct {
	*Decoder
	ctx      context.Context
	cancel   context.CancelFunc
	watchdog *idleWatchdog
	closed   bool
	finished bool
}

// Next stops the watchdog once the stream ends.
func (s *httpStream) Next() bool {
	if s.Decoder.Next() {
		return true
	}
	s.watchdog.Stop()
	if !s.finished {
		s.finished = true
		s.logger.Debug("stream finished",
			zap.String("provider", string(ProviderGroq)),
			zap.Int("frames", s.Frames()),
			zap.Int("skipped", s.Skipped()),
			zap.Bool("failed", s.Decoder.Err() != nil))
	}
	return false
}

// Err maps read failures to TransportError. Caller cancellation is returned
// as the context error.
func (s *httpStream) Err() error {
	err := s.Decoder.Err()
	if err == nil {
		return nil
	}
	if s.watchdog.Fired() {
		return &TransportError{Provider: ProviderGroq, Err: ErrStreamTimeout}
	}
	if ctxErr := s.ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return &TransportError{Provider: ProviderGroq, Err: err}
}

func (s *httpStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.watchdog.Stop()
	err := s.Decoder.Close()
	s.cancel()
	return err
}
