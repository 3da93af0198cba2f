// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Command dispatch over the wired studio components.

package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/jeranaias/agentic-studio/internal/config"
	"github.com/jeranaias/agentic-studio/internal/files"
	"github.com/jeranaias/agentic-studio/internal/logging"
	"github.com/jeranaias/agentic-studio/internal/session"
	"github.com/jeranaias/agentic-studio/internal/settings"
	"github.com/jeranaias/agentic-studio/internal/workspace"
)

// App holds the components a command operates on. Watcher may be nil.
type App struct {
	Config    *config.Config
	Session   *session.Session
	Workspace *workspace.Store
	Settings  *settings.Store
	Files     *files.Local
	Watcher   *files.Watcher
	Logger    *zap.Logger

	Out      io.Writer
	Err      io.Writer
	Renderer *Renderer

	// ConfigPath is where "config set" writes. Empty means the default.
	ConfigPath string
}

func (a *App) out() io.Writer {
	if a.Out == nil {
		return os.Stdout
	}
	return a.Out
}

func (a *App) errOut() io.Writer {
	if a.Err == nil {
		return os.Stderr
	}
	return a.Err
}

func (a *App) renderer() *Renderer {
	if a.Renderer == nil {
		a.Renderer = PlainRenderer()
	}
	return a.Renderer
}

func (a *App) logger() *zap.Logger {
	a.Logger = logging.OrNop(a.Logger)
	return a.Logger
}

// Run executes cmd.
func (a *App) Run(ctx context.Context, cmd Command, args Args) error {
	switch cmd {
	case CmdChat:
		return a.RunChat(ctx, args)
	case CmdAsk:
		return a.RunAsk(ctx, args)
	case CmdSettings:
		return a.RunSettings(ctx, args)
	case CmdOpen:
		return a.RunOpen(ctx, args)
	case CmdLs:
		return a.RunLs(ctx, args)
	case CmdPanes:
		return a.RunPanes(ctx, args)
	case CmdConfig:
		return a.RunConfig(ctx, args)
	case CmdVersion:
		PrintVersion(a.out())
		return nil
	case CmdHelp:
		PrintUsage(a.out())
		return nil
	default:
		return &UsageError{Message: fmt.Sprintf("unknown command %q", args.Name), Example: "studio help"}
	}
}

// WatchWorkspace keeps the watcher's tracked files equal to the open
// file-backed panes. The returned func stops following the workspace.
func (a *App) WatchWorkspace() func() {
	if a.Watcher == nil || a.Workspace == nil {
		return func() {}
	}
	a.Watcher.Track(a.Workspace.GetState().FilePaths())
	return a.Workspace.Subscribe(func(st workspace.State) {
		a.Watcher.Track(st.FilePaths())
	})
}
