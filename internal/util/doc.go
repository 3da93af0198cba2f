// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across agentic-studio.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync, used by the
//     file-backed persistence store, config saving and pane saving
//
// String Utilities:
//   - TruncateRunes, TruncateWidth: UTF-8 and column aware truncation for
//     tab bars and previews
//   - MaskSecret: printable form of an API key
//
// # Usage
//
//	err := util.AtomicWriteFile(path, data, 0600)
//	label := util.TruncateWidth(pane.Name, 24)
package util
