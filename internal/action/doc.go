// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package action extracts action directives from assistant replies.
//
// A directive is a bracketed marker embedded in the reply text:
//
//	[ACTION:OPEN_FILE:src/app.ts]
//
// Parse is run once on the complete reply, never on a partial stream, so a
// truncated marker is never acted on. Only the first directive in a reply
// is honored.
package action
