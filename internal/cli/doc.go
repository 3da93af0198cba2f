// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and execution for the studio.
//
// # Key Types
//
//   - Command: Enumeration of the top-level commands
//   - Args: Parsed global flags and the arguments after the command word
//   - App: The wired components a command runs against
//   - Renderer: Terminal output for replies, panes and listings
//
// # Usage
//
//	cmd, args := cli.Parse(os.Args[1:])
//	app := &cli.App{Config: cfg, Session: sess, Workspace: ws, Settings: set}
//	if err := app.Run(ctx, cmd, args); err != nil {
//	    cli.DisplayError(os.Stderr, err, args.JSON)
//	    os.Exit(cli.GetExitCode(err))
//	}
//
// # Commands Overview
//
//   - chat: Interactive chat; the agent can open files in the workspace
//   - ask: Single message, reply printed to stdout
//   - settings: Provider and API key (show, set, test, clear)
//   - open, ls, panes: Workspace access without chat
//   - config: Configuration management
//
// Inside chat, slash commands (/open, /panes, /save, ...) operate on the
// same workspace. Run /help for the list.
package cli
