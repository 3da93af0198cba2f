// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jeranaias/agentic-studio/internal/storage"
)

// SnapshotKey is the storage key of the persisted workspace.
const SnapshotKey = "agentic-studio-workspace"

// SnapshotVersion is bumped when the persisted layout changes.
const SnapshotVersion = 1

// Snapshot is the persisted form of State. Playlists are not included.
type Snapshot struct {
	Version      int     `json:"version"`
	Panes        []Pane  `json:"panes"`
	ActivePaneID *string `json:"activePaneId"`
}

// NewSnapshot projects state into its persisted form.
func NewSnapshot(state State) Snapshot {
	snap := Snapshot{Version: SnapshotVersion, Panes: state.Panes}
	if snap.Panes == nil {
		snap.Panes = []Pane{}
	}
	if state.ActivePaneID != "" {
		id := state.ActivePaneID
		snap.ActivePaneID = &id
	}
	return snap
}

// PersistenceError reports a snapshot that could not be saved or loaded.
// It is logged and never returned to callers of Store.
type PersistenceError struct {
	Op  string // "save" or "load"
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("workspace %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// save writes state. Failures are logged and absorbed.
func (s *Store) save(ctx context.Context, state State) {
	if s.persist == nil {
		return
	}
	data, err := json.Marshal(NewSnapshot(state))
	if err == nil {
		err = s.persist.Save(ctx, SnapshotKey, data)
	}
	if err != nil {
		s.logger.Warn("snapshot not persisted", zap.Error(&PersistenceError{Op: "save", Err: err}))
	}
}

// readSnapshot returns the stored snapshot, or nil when there is none.
func (s *Store) readSnapshot(ctx context.Context) (*Snapshot, error) {
	if s.persist == nil {
		return nil, nil
	}
	data, err := s.persist.Load(ctx, SnapshotKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "load", Err: err}
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, &PersistenceError{Op: "load", Err: fmt.Errorf("decode snapshot: %w", err)}
	}
	if snap.Version > SnapshotVersion {
		return nil, &PersistenceError{Op: "load", Err: fmt.Errorf("snapshot version %d is newer than %d", snap.Version, SnapshotVersion)}
	}
	return &snap, nil
}

// Load restores the persisted workspace, replacing the current state. With
// no usable snapshot the workspace starts with the welcome pane. Saved
// file-backed panes are re-read from disk; transient and unsaved panes are
// restored as stored. Only a cancelled context is returned as an error.
func (s *Store) Load(ctx context.Context) error {
	snap, err := s.readSnapshot(ctx)
	if err != nil {
		s.logger.Warn("starting with a fresh workspace", zap.Error(err))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var (
		panes  []Pane
		active string
	)
	if snap == nil {
		panes = []Pane{WelcomePane()}
		active = WelcomeID
	} else {
		seen := make(map[string]bool, len(snap.Panes))
		for _, p := range snap.Panes {
			if p.ID == "" || seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			panes = append(panes, s.rehydrate(ctx, p))
		}
		if snap.ActivePaneID != nil && seen[*snap.ActivePaneID] {
			active = *snap.ActivePaneID
		} else if len(panes) > 0 {
			active = panes[0].ID
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.commit(ctx, func() bool {
		s.panes = panes
		s.activeID = active
		return true
	})
	s.logger.Debug("workspace loaded", zap.Int("panes", len(panes)), zap.String("active", active))
	return nil
}

// rehydrate prepares one stored pane for display.
func (s *Store) rehydrate(ctx context.Context, p Pane) Pane {
	switch {
	case p.Kind == KindGallery:
		items, err := s.fs.MediaIn(ctx, p.Content)
		if err != nil {
			s.logger.Debug("gallery folder unavailable", zap.String("dir", p.Content), zap.Error(err))
		}
		p.Playlist = items
		return p

	case !p.IsFileBacked():
		return p

	case p.Unsaved && p.Kind.IsText():
		// Keep edits that never reached disk.
		return p

	default:
		return s.loadPane(ctx, p.ID, p.ID)
	}
}
