// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"sync"
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is the ordered, append-only message history of one chat
// session. Only the last message may change, and only while it is an
// assistant message that is still streaming.
//
// Conversation is safe for concurrent use so a renderer can read History
// while a stream appends deltas.
type Conversation struct {
	mu       sync.RWMutex
	messages []Message
	pending  strings.Builder // content of the streaming message
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{}
}

// AddUserMessage appends a user message and returns it.
func (c *Conversation) AddUserMessage(content string) Message {
	msg := NewUserMessage(content)
	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.mu.Unlock()
	return msg
}

// StartAssistantMessage appends an empty, streaming assistant message.
// A previous streaming message, if any, is frozen first.
func (c *Conversation) StartAssistantMessage() Message {
	msg := NewAssistantMessage()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.freezeLocked()
	c.pending.Reset()
	c.messages = append(c.messages, msg)
	return msg
}

// AppendToLast appends a delta to the streaming assistant message.
// It is a no-op when the last message is frozen.
func (c *Conversation) AppendToLast(delta string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.messages)
	if n == 0 || !c.messages[n-1].Streaming {
		return
	}
	c.pending.WriteString(delta)
	c.messages[n-1].Content = c.pending.String()
}

// FinalizeLast freezes the last assistant message with the given content.
func (c *Conversation) FinalizeLast(content string) Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.messages)
	if n == 0 || c.messages[n-1].Role != RoleAssistant {
		return Message{}
	}
	c.messages[n-1].Content = content
	c.messages[n-1].Streaming = false
	c.pending.Reset()
	return c.messages[n-1]
}

func (c *Conversation) freezeLocked() {
	if n := len(c.messages); n > 0 {
		c.messages[n-1].Streaming = false
	}
}

// Last returns the last message, or false if the conversation is empty.
func (c *Conversation) Last() (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// History returns a copy of the messages in order.
func (c *Conversation) History() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Clear discards the history.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
	c.pending.Reset()
}
