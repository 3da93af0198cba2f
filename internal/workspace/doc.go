// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package workspace holds the ordered set of open panes and the active pane.
//
// Store is the single source of truth. Every mutation is applied to memory,
// then persisted as a Snapshot, then announced to subscribers, in that
// order. On startup Load restores the last snapshot, re-reading file-backed
// panes from disk so the workspace reflects what is on disk rather than a
// stale copy.
//
// # Closing panes
//
// Closing the active pane selects its left neighbor, else the first pane,
// else nothing:
//
//	[A, B*, C]  close B  ->  [A*, C]
//	[A*, B, C]  close A  ->  [B*, C]
//	[A*]        close A  ->  []
//
// # Usage
//
//	ws := workspace.NewStore(fileProvider, blobStore, logger)
//	ws.Load(ctx)
//	unsubscribe := ws.Subscribe(func(s workspace.State) { render(s) })
//	defer unsubscribe()
//	ws.OpenPath(ctx, "src/app.ts")
package workspace
