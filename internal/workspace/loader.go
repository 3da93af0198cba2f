// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package workspace

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/jeranaias/agentic-studio/internal/files"
)

// Placeholder content prefixes.
const (
	notFoundPrefix   = "// File not found: "
	openFailedPrefix = "// Could not open "
)

// loadPane builds a pane for the file at resolved. Failures produce a
// plaintext placeholder naming display, the path as the user gave it.
func (s *Store) loadPane(ctx context.Context, resolved, display string) Pane {
	pane := Pane{
		ID:   resolved,
		Name: filepath.Base(resolved),
		Kind: KindForPath(resolved),
	}

	if pane.Kind.IsMedia() {
		playlist, err := s.fs.MediaPlaylist(ctx, resolved)
		if err != nil {
			return s.placeholder(pane, display, err)
		}
		if !containsPath(playlist, resolved) {
			return s.placeholder(pane, display, &files.NotFoundError{Path: display})
		}
		pane.Content = files.FileURL(resolved)
		pane.Playlist = playlist
		return pane
	}

	content, err := s.fs.ReadFile(ctx, resolved)
	if err != nil {
		return s.placeholder(pane, display, err)
	}
	pane.Content = content.Content
	pane.Language = files.DetectLanguage(resolved)
	return pane
}

// placeholder turns a failed load into a plaintext pane describing it.
func (s *Store) placeholder(pane Pane, display string, err error) Pane {
	s.logger.Info("file unavailable", zap.String("path", pane.ID), zap.Error(err))

	pane.Kind = KindCode
	pane.Language = "plaintext"
	pane.Playlist = nil
	if files.IsNotFound(err) {
		pane.Content = notFoundPrefix + display
	} else {
		pane.Content = fmt.Sprintf("%s%s: %v", openFailedPrefix, display, err)
	}
	return pane
}

// IsPlaceholder reports whether p stands in for a file that could not be
// loaded.
func (p Pane) IsPlaceholder() bool {
	if p.Kind != KindCode || p.Language != "plaintext" || !p.IsFileBacked() {
		return false
	}
	return strings.HasPrefix(p.Content, notFoundPrefix) ||
		(strings.HasPrefix(p.Content, openFailedPrefix) && !strings.Contains(p.Content, "\n"))
}

func containsPath(entries []files.Entry, path string) bool {
	for _, e := range entries {
		if e.Path == path {
			return true
		}
	}
	return false
}
