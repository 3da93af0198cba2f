// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session runs one chat conversation against the configured
// provider.
//
// A Session moves through idle, sending, streaming and finalizing, and
// back to idle. Only one turn runs at a time; a submission made while a
// turn is in flight is rejected with ErrBusy rather than queued.
//
// Deltas are forwarded to the attached Sink in arrival order. When the
// stream ends the reply is scanned for an action directive; a directive
// opens its file in the workspace and is removed from the displayed text.
//
// # Usage
//
//	sess := session.New(registry, settingsStore, workspaceStore, logger)
//	sess.Attach(sink)
//	result, err := sess.Submit(ctx, "Open the main app component")
package session
