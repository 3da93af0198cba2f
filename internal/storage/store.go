// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the keyed blob stores behind workspace snapshots
// and provider settings.
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// =============================================================================
// STORE INTERFACE
// =============================================================================

// ErrNotFound is returned by Load when no value exists for a key.
var ErrNotFound = errors.New("key not found")

// ErrInvalidKey is returned for keys that are empty or contain characters
// outside [A-Za-z0-9._-].
var ErrInvalidKey = errors.New("invalid storage key")

// Store is a keyed blob store. Values are opaque bytes; callers own the
// encoding.
type Store interface {
	// Save stores data under key, replacing any previous value.
	Save(ctx context.Context, key string, data []byte) error

	// Load returns the value for key or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)

	// Clear removes key. Clearing a missing key is not an error.
	Clear(ctx context.Context, key string) error

	// Close releases resources held by the store.
	Close() error
}

var validKey = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidateKey checks that key is usable by every Store implementation,
// including the file store where it becomes a file name.
func ValidateKey(key string) error {
	if key == "" || key == "." || key == ".." || !validKey.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Open returns the Store for backend rooted at dir.
func Open(backend, dir string) (Store, error) {
	switch backend {
	case BackendFile, "":
		return NewFileStore(dir)
	case BackendSQLite:
		return NewSQLiteStore(SQLitePath(dir))
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
