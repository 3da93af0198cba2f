// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat REPL.
//
// Command: chat (default)
//
// Interactive Commands (during chat): see /help.
//
//	Ctrl+C   Cancel the reply in progress, or exit at the prompt
//	Ctrl+D   Exit chat
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/peterh/liner"
	"go.uber.org/zap"

	"github.com/jeranaias/agentic-studio/internal/config"
	"github.com/jeranaias/agentic-studio/internal/model"
	"github.com/jeranaias/agentic-studio/internal/session"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a line editor with history loaded from the config
// directory.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	c.line.SetCompleter(completeSlash)

	if f, err := os.Open(c.historyFile); err == nil {
		_, _ = c.line.ReadHistory(f)
		f.Close()
	}
	return c
}

// ReadInput reads a line of input with the given prompt.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history with owner-only permissions and restores the terminal.
func (c *ChatCLI) Close() {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			_, _ = c.line.WriteHistory(f)
			f.Close()
		}
	}
	c.line.Close()
}

func completeSlash(line string) []string {
	if !strings.HasPrefix(line, "/") || strings.Contains(line, " ") {
		return nil
	}
	var out []string
	for _, cmd := range slashCommands {
		if strings.HasPrefix("/"+cmd.name, line) {
			out = append(out, "/"+cmd.name)
		}
	}
	return out
}

// =============================================================================
// STREAM PRINTER
// =============================================================================

// streamPrinter is the session sink for a terminal. Deltas are written as
// they arrive; a reply that streamed nothing is printed when finalized.
type streamPrinter struct {
	w        io.Writer
	renderer *Renderer

	mu       sync.Mutex
	streamed map[string]int
}

func newStreamPrinter(w io.Writer, r *Renderer) *streamPrinter {
	return &streamPrinter{w: w, renderer: r, streamed: make(map[string]int)}
}

func (p *streamPrinter) MessageAdded(msg model.Message) {
	if msg.Role != model.RoleAssistant {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.streamed[msg.ID] = 0
	fmt.Fprint(p.w, p.renderer.style("Agent", AssistantStyle.Render)+" ")
}

func (p *streamPrinter) DeltaReceived(messageID, delta string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.streamed[messageID] += len(delta)
	fmt.Fprint(p.w, delta)
}

func (p *streamPrinter) MessageFinalized(msg model.Message) {
	if msg.Role != model.RoleAssistant {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.streamed[msg.ID] == 0 {
		fmt.Fprint(p.w, msg.Content)
	}
	delete(p.streamed, msg.ID)
	fmt.Fprintln(p.w)
}

// =============================================================================
// REPL
// =============================================================================

// RunChat runs the interactive chat loop until /quit, Ctrl+D, or Ctrl+C at
// the prompt.
func (a *App) RunChat(ctx context.Context, args Args) error {
	stopWatch := a.WatchWorkspace()
	defer stopWatch()

	a.Session.Attach(newStreamPrinter(a.out(), a.renderer()))
	defer a.Session.Detach()

	if !args.Quiet {
		a.printWelcome()
	}

	input := NewChatCLI()
	defer input.Close()

	// Ctrl+C while a reply streams cancels only that reply.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			case <-sigChan:
				if a.Session.State() != session.StateIdle {
					a.Session.Cancel()
				}
			}
		}
	}()

	prompt := a.renderer().style("you> ", PromptStyle.Render)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line, err := input.ReadInput(prompt)
		if err != nil {
			// ErrPromptAborted (Ctrl+C) and io.EOF (Ctrl+D) both end the session.
			fmt.Fprintln(a.out())
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := a.HandleSlash(ctx, line)
			if err != nil {
				DisplayError(a.errOut(), err, false)
			}
			if quit {
				return nil
			}
			continue
		}
		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			return nil
		}

		a.submit(ctx, line)
	}
}

// submit sends one message. The reply is printed by the attached sink.
func (a *App) submit(ctx context.Context, text string) {
	result, err := a.Session.Submit(ctx, text)
	switch {
	case errors.Is(err, session.ErrCancelled):
		fmt.Fprintln(a.errOut(), a.renderer().style("[Cancelled]", WarningStyle.Render))
	case err != nil && !errors.Is(err, session.ErrEmptyMessage):
		a.logger().Debug("turn failed", zap.Error(err))
		fmt.Fprintln(a.errOut(), a.renderer().style(session.Describe(err), DimStyle.Render))
	}
	if result == nil {
		return
	}
	if result.Opened != nil {
		fmt.Fprintln(a.out(), a.renderer().style("Opened "+result.Opened.Name, ActionStyle.Render))
	} else if result.Directive != nil {
		fmt.Fprintln(a.errOut(), a.renderer().style("Could not open "+result.Directive.Path, WarningStyle.Render))
	}
}

func (a *App) printWelcome() {
	r := a.renderer()
	fmt.Fprintln(a.out(), r.style("Agentic Studio", TitleStyle.Render))

	creds := a.Settings.Credentials()
	if creds.IsConfigured() {
		fmt.Fprintln(a.out(), r.style(fmt.Sprintf("Provider: %s  Key: %s", creds.Provider, creds.Masked()), DimStyle.Render))
	} else {
		fmt.Fprintln(a.out(), r.style(session.NotConfiguredMessage, WarningStyle.Render))
	}

	st := a.Workspace.GetState()
	if active, ok := st.Active(); ok {
		fmt.Fprintln(a.out(), r.style(fmt.Sprintf("%d pane(s) open, active: %s", len(st.Panes), active.Name), DimStyle.Render))
	}
	fmt.Fprintln(a.out(), r.style("Type /help for commands, Ctrl+C to cancel a reply, Ctrl+D to exit.", DimStyle.Render))
	fmt.Fprintln(a.out())
}
