// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package files is the local file-content provider.
//
// It reads files as UTF-8 text or, for media extensions, as base64; lists
// directories with "~" as an alias for the home directory; writes files
// atomically; classifies paths by extension; and watches open files for
// changes made outside the workspace.
//
// # Key Types
//
//   - Local: filesystem-backed provider rooted at a working directory
//   - Content: file contents plus their Encoding
//   - Entry: one directory listing item
//   - Watcher: fsnotify watcher that refreshes open files after a debounce
//
// Read failures are returned as errors; a missing path is a *NotFoundError.
package files
