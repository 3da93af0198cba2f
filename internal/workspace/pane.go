// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package workspace

import (
	"strings"

	"github.com/jeranaias/agentic-studio/internal/files"
)

// Kind is what a pane shows.
type Kind string

const (
	KindCode     Kind = "code"
	KindMarkdown Kind = "markdown"
	KindImage    Kind = "image"
	KindVideo    Kind = "video"
	KindGallery  Kind = "gallery"
	KindWelcome  Kind = "welcome"
)

// IsText reports whether panes of this kind hold editable text.
func (k Kind) IsText() bool {
	return k == KindCode || k == KindMarkdown || k == KindWelcome
}

// IsMedia reports whether panes of this kind reference an image or video.
func (k Kind) IsMedia() bool {
	return k == KindImage || k == KindVideo
}

// KindForPath classifies a file path by extension.
func KindForPath(path string) Kind {
	switch {
	case files.IsImage(path):
		return KindImage
	case files.IsVideo(path):
		return KindVideo
	case files.IsMarkdown(path):
		return KindMarkdown
	default:
		return KindCode
	}
}

// Reserved pane ids and prefixes.
const (
	WelcomeID       = "welcome"
	TransientPrefix = "untitled-"
	GalleryPrefix   = "gallery:"
)

// IsFileBacked reports whether id names a real file rather than a
// synthetic pane.
func IsFileBacked(id string) bool {
	return id != "" &&
		id != WelcomeID &&
		!strings.HasPrefix(id, TransientPrefix) &&
		!strings.HasPrefix(id, GalleryPrefix)
}

// Pane is one open document or view.
type Pane struct {
	// ID is the file path for file-backed panes, otherwise a generated token.
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind Kind   `json:"kind"`

	// Content is the text for text panes, a file:// reference for media
	// and the folder path for galleries.
	Content  string `json:"content"`
	Language string `json:"language,omitempty"`
	Unsaved  bool   `json:"unsaved,omitempty"`

	// Playlist holds sibling media for image and video panes and the items
	// of a gallery. It is rebuilt on load, never persisted.
	Playlist []files.Entry `json:"-"`
}

// IsFileBacked reports whether the pane is bound to a file on disk.
func (p Pane) IsFileBacked() bool {
	return IsFileBacked(p.ID)
}

func (p Pane) clone() Pane {
	if p.Playlist != nil {
		p.Playlist = append([]files.Entry(nil), p.Playlist...)
	}
	return p
}

// State is a point-in-time copy of the workspace. ActivePaneID is empty
// when no pane is active, which is always the case when Panes is empty.
type State struct {
	Panes        []Pane
	ActivePaneID string
}

// Index returns the position of id, or -1.
func (s State) Index(id string) int {
	for i, p := range s.Panes {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// Pane returns the pane with id.
func (s State) Pane(id string) (Pane, bool) {
	if i := s.Index(id); i >= 0 {
		return s.Panes[i], true
	}
	return Pane{}, false
}

// Active returns the active pane.
func (s State) Active() (Pane, bool) {
	if s.ActivePaneID == "" {
		return Pane{}, false
	}
	return s.Pane(s.ActivePaneID)
}

// FilePaths returns the ids of file-backed panes in order.
func (s State) FilePaths() []string {
	var paths []string
	for _, p := range s.Panes {
		if p.IsFileBacked() {
			paths = append(paths, p.ID)
		}
	}
	return paths
}

// WelcomePane is the pane a fresh workspace starts with.
func WelcomePane() Pane {
	return Pane{
		ID:       WelcomeID,
		Name:     "Welcome.md",
		Kind:     KindWelcome,
		Language: "markdown",
		Content:  welcomeText,
	}
}

const welcomeText = `# Welcome to Agentic Studio

This is an interactive canvas where you can view and edit files.

- Use the **Explorer** (` + "`/ls`, `/open`" + `) to open files.
- Chat with the **AI Agent** to generate code, write documents, or perform tasks.
- The agent can open files here for you to review.

Try asking the agent: *"Open the main app component for me."*
`
