// agentic-studio - A chat agent with a file workspace for the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/jeranaias/agentic-studio/internal/cli"
	"github.com/jeranaias/agentic-studio/internal/cloud"
	"github.com/jeranaias/agentic-studio/internal/config"
	"github.com/jeranaias/agentic-studio/internal/files"
	"github.com/jeranaias/agentic-studio/internal/logging"
	"github.com/jeranaias/agentic-studio/internal/session"
	"github.com/jeranaias/agentic-studio/internal/settings"
	"github.com/jeranaias/agentic-studio/internal/storage"
	"github.com/jeranaias/agentic-studio/internal/workspace"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	os.Exit(run())
}

func run() int {
	cmd, args := cli.Parse(os.Args[1:])

	// Help and version need nothing else.
	switch cmd {
	case cli.CmdHelp:
		cli.PrintUsage(os.Stdout)
		return cli.ExitSuccess
	case cli.CmdVersion:
		cli.PrintVersion(os.Stdout)
		return cli.ExitSuccess
	case cli.CmdUnknown:
		err := &cli.UsageError{Message: fmt.Sprintf("unknown command %q", args.Name), Example: "studio help"}
		cli.DisplayError(os.Stderr, err, args.JSON)
		return cli.GetExitCode(err)
	}

	cfg, err := loadConfig(args)
	if cfg == nil {
		cli.DisplayError(os.Stderr, err, args.JSON)
		return cli.ExitConfigError
	}
	if err != nil && !args.Quiet {
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
	}

	logger, err := newLogger(cfg, args)
	if err != nil {
		cli.DisplayError(os.Stderr, err, args.JSON)
		return cli.ExitConfigError
	}
	defer func() { _ = logger.Sync() }()

	app, cleanup, err := wire(cfg, args, logger)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		cli.DisplayError(os.Stderr, err, args.JSON)
		return cli.GetExitCode(err)
	}
	defer cleanup()

	// Chat handles Ctrl+C itself so that it cancels a reply, not the process.
	ctx := context.Background()
	if cmd != cli.CmdChat {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
	}

	if err := app.Run(ctx, cmd, args); err != nil {
		logger.Debug("command failed", zap.String("command", cmd.String()), zap.Error(err))
		cli.DisplayError(os.Stderr, err, args.JSON)
		return cli.GetExitCode(err)
	}
	return cli.ExitSuccess
}

// loadConfig reads configuration and applies per-run flag overrides. A nil
// config means startup cannot continue; a non-nil config with an error
// means a file was unusable and defaults were used.
func loadConfig(args cli.Args) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(args.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if cfg == nil {
		return nil, err
	}

	if args.Provider != "" {
		provider, perr := cloud.ParseProvider(args.Provider)
		if perr != nil {
			return nil, &cli.UsageError{Message: perr.Error(), Example: "studio --provider gemini|groq"}
		}
		cfg.Provider = string(provider)
	}
	if args.Model != "" {
		switch cloud.ProviderID(cfg.Provider) {
		case cloud.ProviderGemini:
			cfg.Gemini.Model = args.Model
		default:
			cfg.Groq.Model = args.Model
		}
	}
	return cfg, err
}

func newLogger(cfg *config.Config, args cli.Args) (*zap.Logger, error) {
	opts := logging.Options{Level: cfg.Logging.Level, File: cfg.Logging.File}
	if args.Verbose {
		opts = logging.Options{Level: "debug", File: "stderr", Development: true}
	}
	return logging.New(opts)
}

// wire builds the application graph. cleanup releases the watcher and the
// storage backend.
func wire(cfg *config.Config, args cli.Args, logger *zap.Logger) (*cli.App, func(), error) {
	dataDir, err := cfg.DataDir()
	if err != nil {
		return nil, nil, err
	}
	blobs, err := storage.Open(cfg.Storage.Backend, dataDir)
	if err != nil {
		return nil, nil, &cli.CommandError{Command: "startup", Action: "open storage", Reason: cfg.Storage.Backend, Err: err}
	}
	closers := []func(){func() { _ = blobs.Close() }}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	fs, err := files.NewLocal(cfg.Workspace.Root, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	ctx := context.Background()
	ws := workspace.NewStore(fs, blobs, logger)
	if err := ws.Load(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}

	groq := cloud.NewGroqTransport(logger).
		WithEndpoint(cfg.Groq.Endpoint).
		WithModel(cfg.Groq.Model).
		WithRateLimit(cfg.Groq.RequestsPerMinute).
		WithIdleTimeout(cfg.IdleTimeout())
	gemini := cloud.NewGeminiTransport(logger).
		WithModel(cfg.Gemini.Model).
		WithBaseURL(cfg.Gemini.BaseURL).
		WithIdleTimeout(cfg.IdleTimeout())
	registry := cloud.NewRegistry(groq, gemini)

	set := settings.New(blobs, registry, logger)
	if err := set.Load(ctx); err != nil {
		logger.Warn("settings not loaded", zap.Error(err))
	}
	override, _ := cfg.APIKeyFromEnv()
	if args.Provider != "" || os.Getenv(config.EnvProvider) != "" {
		override.Provider = cloud.ProviderID(cfg.Provider)
	}
	set.Override(override)

	var watcher *files.Watcher
	if cfg.Workspace.Watch && !args.NoWatch {
		watcher, err = files.NewWatcher(ws, cfg.Debounce(), logger)
		if err != nil {
			logger.Warn("file watching disabled", zap.Error(err))
			watcher = nil
		} else {
			closers = append(closers, func() { _ = watcher.Close() })
		}
	}

	cli.ApplyTheme(cfg.UI.Theme)
	app := &cli.App{
		Config:     cfg,
		Session:    session.New(registry, set, ws, logger),
		Workspace:  ws,
		Settings:   set,
		Files:      fs,
		Watcher:    watcher,
		Logger:     logger,
		Out:        os.Stdout,
		Err:        os.Stderr,
		Renderer:   cli.NewRenderer(cfg.UI.Theme, cfg.UI.RenderMarkdown),
		ConfigPath: args.ConfigPath,
	}
	return app, cleanup, nil
}
