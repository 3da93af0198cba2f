// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud streams assistant replies from hosted LLM providers.
//
// Two transports are provided: GroqTransport speaks the OpenAI-compatible
// server-sent events protocol over HTTP, and GeminiTransport drives the
// Google GenAI SDK. Both return a pull-based Stream of text deltas.
//
// # Key Types
//
//   - Stream: finite, non-restartable sequence of text deltas
//   - Transport: opens a Stream for one assistant turn
//   - Decoder: event-stream decoder independent of network chunking
//   - Registry: provider id to transport lookup
//   - Credentials: the active provider and API key
//
// # Usage
//
//	reg := cloud.NewRegistry(cloud.NewGroqTransport(logger), cloud.NewGeminiTransport(logger))
//	t, err := reg.Lookup(creds.Provider)
//	stream, err := t.OpenStream(ctx, history, "Hello", creds)
//	defer stream.Close()
//	for stream.Next() {
//	    fmt.Print(stream.Delta())
//	}
//	if err := stream.Err(); err != nil { ... }
//
// # Errors
//
// Unusable credentials yield a ConfigurationError before any network I/O.
// Provider failures yield a TransportError carrying the HTTP status and
// the provider's error text. API keys are never logged.
package cloud
