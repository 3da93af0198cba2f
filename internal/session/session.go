// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/agentic-studio/internal/action"
	"github.com/jeranaias/agentic-studio/internal/cloud"
	"github.com/jeranaias/agentic-studio/internal/logging"
	"github.com/jeranaias/agentic-studio/internal/model"
	"github.com/jeranaias/agentic-studio/internal/workspace"
)

// Text shown in place of an assistant reply that could not be produced.
const (
	FailureMessage       = "Sorry, something went wrong. Please try again."
	NotConfiguredMessage = "No AI provider is configured. Choose a provider and enter an API key with /settings, then try again."
)

var (
	// ErrEmptyMessage rejects a blank submission.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrBusy rejects a submission while another turn is in flight.
	ErrBusy = errors.New("a reply is already in progress")

	// ErrCancelled reports a turn stopped by Cancel. The partial reply is
	// kept.
	ErrCancelled = errors.New("reply cancelled")
)

// =============================================================================
// STATE
// =============================================================================

// State is the phase of the current turn.
type State int

const (
	StateIdle State = iota
	StateSending
	StateStreaming
	StateFinalizing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}

// =============================================================================
// COLLABORATORS
// =============================================================================

// Sink renders the conversation as it changes. Calls arrive on the
// goroutine running Submit, in order.
type Sink interface {
	// MessageAdded is called for the user message and for the assistant
	// message as soon as it starts, before any delta.
	MessageAdded(msg model.Message)

	// DeltaReceived is called with each chunk of the streaming reply.
	DeltaReceived(messageID string, delta string)

	// MessageFinalized is called once the assistant message is frozen.
	MessageFinalized(msg model.Message)
}

// TransportResolver selects the transport for a provider.
type TransportResolver interface {
	Lookup(id cloud.ProviderID) (cloud.Transport, error)
}

// CredentialsSource supplies the active provider configuration.
type CredentialsSource interface {
	Credentials() cloud.Credentials
}

// FileOpener opens a file into the workspace.
type FileOpener interface {
	OpenPath(ctx context.Context, path string) (workspace.Pane, error)
}

// Result describes a completed turn.
type Result struct {
	Reply model.Message

	// Directive is the action found in the reply, if any.
	Directive *action.Directive

	// Opened is the pane opened by the directive.
	Opened *workspace.Pane

	Duration time.Duration
}

// =============================================================================
// SESSION
// =============================================================================

// Session is a single chat conversation.
type Session struct {
	transports TransportResolver
	creds      CredentialsSource
	opener     FileOpener
	logger     *zap.Logger

	conv *model.Conversation

	mu        sync.Mutex
	state     State
	sink      Sink
	cancel    context.CancelFunc
	cancelled bool
}

// New creates an idle session. opener may be nil, in which case directives
// are stripped but not acted on.
func New(transports TransportResolver, creds CredentialsSource, opener FileOpener, logger *zap.Logger) *Session {
	return &Session{
		transports: transports,
		creds:      creds,
		opener:     opener,
		logger:     logging.OrNop(logger).Named("session"),
		conv:       model.NewConversation(),
	}
}

// Attach sets the sink that receives updates.
func (s *Session) Attach(sink Sink) {
	s.mu.Lock()
	s.sink = sink
	s.mu.Unlock()
}

// Detach stops updates to the current sink. A turn in flight keeps
// draining its stream into the history.
func (s *Session) Detach() {
	s.Attach(nil)
}

// State returns the current phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Messages returns a copy of the conversation.
func (s *Session) Messages() []model.Message {
	return s.conv.History()
}

// Reset clears the conversation. It fails with ErrBusy mid-turn.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return ErrBusy
	}
	s.conv.Clear()
	return nil
}

// Cancel stops the turn in flight, if any.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancelled = true
		s.cancel()
	}
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) currentSink() Sink {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink
}

// begin moves idle to sending and returns the context for the turn.
func (s *Session) begin(ctx context.Context) (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return nil, ErrBusy
	}
	turnCtx, cancel := context.WithCancel(ctx)
	s.state = StateSending
	s.cancel = cancel
	s.cancelled = false
	return turnCtx, nil
}

// end returns to idle and reports whether Cancel was called during the
// turn.
func (s *Session) end() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.state = StateIdle
	return s.cancelled
}

// Submit sends text and blocks until the reply is complete. The returned
// error is ErrEmptyMessage or ErrBusy when the submission was rejected, a
// *cloud.ConfigurationError or *cloud.TransportError when the turn failed,
// and ErrCancelled when Cancel stopped it. In every case except rejection
// the conversation holds an assistant message for the turn.
func (s *Session) Submit(ctx context.Context, text string) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	turnCtx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer s.end()

	start := time.Now()
	history := s.conv.History()
	user := s.conv.AddUserMessage(text)
	s.emitAdded(user)

	transport, creds, err := s.resolve()
	if err != nil {
		return s.fail(err, NotConfiguredMessage)
	}

	stream, err := transport.OpenStream(turnCtx, history, text, creds)
	if err != nil {
		if cloud.IsConfigurationError(err) {
			return s.fail(err, NotConfiguredMessage)
		}
		if s.wasCancelled() {
			return s.fail(ErrCancelled, "")
		}
		return s.fail(err, FailureMessage)
	}
	defer stream.Close()

	s.setState(StateStreaming)
	reply := s.conv.StartAssistantMessage()
	s.emitAdded(reply)

	var received strings.Builder
	for stream.Next() {
		delta := stream.Delta()
		received.WriteString(delta)
		s.conv.AppendToLast(delta)
		if sink := s.currentSink(); sink != nil {
			sink.DeltaReceived(reply.ID, delta)
		}
	}
	stream.Close()

	if s.wasCancelled() {
		// Keep what arrived; a truncated directive is never acted on.
		final := s.conv.FinalizeLast(received.String())
		s.emitFinalized(final)
		s.logger.Info("reply cancelled", zap.Int("chars", received.Len()))
		return &Result{Reply: final, Duration: time.Since(start)}, ErrCancelled
	}
	if err := stream.Err(); err != nil {
		return s.fail(err, FailureMessage)
	}

	s.setState(StateFinalizing)
	return s.finalize(ctx, received.String(), start), nil
}

// resolve returns the transport and credentials for this turn.
func (s *Session) resolve() (cloud.Transport, cloud.Credentials, error) {
	var creds cloud.Credentials
	if s.creds != nil {
		creds = s.creds.Credentials()
	}
	if err := creds.Validate(); err != nil {
		return nil, creds, err
	}
	if s.transports == nil {
		return nil, creds, &cloud.ConfigurationError{Field: "provider", Message: "no transports registered"}
	}
	transport, err := s.transports.Lookup(creds.Provider)
	if err != nil {
		return nil, creds, err
	}
	return transport, creds, nil
}

// finalize runs the action parser on the complete reply and freezes it.
func (s *Session) finalize(ctx context.Context, text string, start time.Time) *Result {
	parsed := action.Parse(text)
	result := &Result{Directive: parsed.Directive}

	if parsed.HasAction() {
		s.logger.Debug("directive found",
			zap.String("raw", parsed.Directive.Raw),
			zap.Int("start", parsed.Directive.Start),
			zap.Int("end", parsed.Directive.End))
		if action.HasDirective(parsed.Text) {
			s.logger.Info("ignoring directives after the first")
		}
	}

	if parsed.HasAction() && s.opener != nil {
		pane, err := s.opener.OpenPath(ctx, parsed.Directive.Path)
		if err != nil {
			s.logger.Warn("action failed",
				zap.String("kind", string(parsed.Directive.Kind)),
				zap.String("path", parsed.Directive.Path),
				zap.Error(err))
		} else {
			result.Opened = &pane
			s.logger.Info("action executed",
				zap.String("kind", string(parsed.Directive.Kind)),
				zap.String("pane", pane.ID))
		}
	}

	result.Reply = s.conv.FinalizeLast(parsed.Text)
	result.Duration = time.Since(start)
	s.emitFinalized(result.Reply)
	return result
}

// fail replaces the turn's reply with text and returns err. An empty text
// keeps whatever streamed so far.
func (s *Session) fail(err error, text string) (*Result, error) {
	last, _ := s.conv.Last()
	if last.Role != model.RoleAssistant || !last.Streaming {
		last = s.conv.StartAssistantMessage()
		s.emitAdded(last)
	}
	if text == "" {
		text = last.Content
	}
	final := s.conv.FinalizeLast(text)
	s.emitFinalized(final)

	s.logFailure(err)
	return &Result{Reply: final}, err
}

func (s *Session) logFailure(err error) {
	var (
		cfgErr *cloud.ConfigurationError
		tErr   *cloud.TransportError
	)
	switch {
	case errors.As(err, &cfgErr):
		s.logger.Info("provider not configured", zap.String("field", cfgErr.Field), zap.String("reason", cfgErr.Message))
	case errors.As(err, &tErr):
		s.logger.Warn("transport failure",
			zap.String("provider", string(tErr.Provider)),
			zap.Int("status", tErr.Status),
			zap.String("detail", tErr.Detail()))
	case errors.Is(err, ErrCancelled):
		s.logger.Info("reply cancelled before streaming")
	default:
		s.logger.Warn("reply failed", zap.Error(err))
	}
}

func (s *Session) wasCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

func (s *Session) emitAdded(msg model.Message) {
	if sink := s.currentSink(); sink != nil {
		sink.MessageAdded(msg)
	}
}

func (s *Session) emitFinalized(msg model.Message) {
	if sink := s.currentSink(); sink != nil {
		sink.MessageFinalized(msg)
	}
}

// Describe returns a one-line explanation of a Submit error for display.
func Describe(err error) string {
	var (
		cfgErr *cloud.ConfigurationError
		tErr   *cloud.TransportError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &cfgErr):
		return cfgErr.Message
	case errors.As(err, &tErr):
		if tErr.Status != 0 {
			return fmt.Sprintf("%s returned HTTP %d: %s", tErr.Provider, tErr.Status, tErr.Detail())
		}
		return fmt.Sprintf("%s: %s", tErr.Provider, tErr.Detail())
	default:
		return err.Error()
	}
}
