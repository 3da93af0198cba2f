// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the chat data structures.
//
// # Key Types
//
//   - Role: message sender (user, assistant)
//   - Message: one chat turn with an id, role, content and timestamp
//   - Conversation: append-only history whose last assistant message grows
//     while streaming and is frozen once finalized
//
// # Usage
//
//	conv := model.NewConversation()
//	conv.AddUserMessage("Open the app component")
//	conv.StartAssistantMessage()
//	conv.AppendToLast("Sure.")
//	conv.FinalizeLast("Sure.")
//
// Conversations are not persisted; they live for one session.
package model
