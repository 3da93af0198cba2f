// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the keyed blob stores behind workspace snapshots
// and provider settings.
//
// # Key Types
//
//   - Store: Save / Load / Clear by key
//   - FileStore: one JSON file per key, written atomically with 0600
//   - SQLiteStore: a single kv table in a WAL-mode SQLite database
//   - MemoryStore: process-local store for tests and --ephemeral runs
//
// # Usage
//
//	store, err := storage.Open(cfg.Storage.Backend, cfg.Storage.Dir)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	data, err := store.Load(ctx, "agentic-studio-settings")
//	if errors.Is(err, storage.ErrNotFound) {
//	    // first run
//	}
//
// # Storage Location
//
// The file store lives in ~/.agentic-studio/state/ and the SQLite database at
// ~/.agentic-studio/state/studio.db.
package storage
