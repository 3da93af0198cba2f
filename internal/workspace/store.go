// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package workspace

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/agentic-studio/internal/files"
	"github.com/jeranaias/agentic-studio/internal/logging"
	"github.com/jeranaias/agentic-studio/internal/storage"
)

var (
	// ErrPaneNotFound indicates no open pane has the given id.
	ErrPaneNotFound = errors.New("pane not found")

	// ErrNeedsPath indicates a pane has no file yet; use SaveAs.
	ErrNeedsPath = errors.New("pane has no file path")

	// ErrNotEditable indicates a media or gallery pane was asked to save.
	ErrNotEditable = errors.New("pane is not editable")

	// ErrUnsupportedKind indicates CreateTransient was given a non-text kind.
	ErrUnsupportedKind = errors.New("cannot create a pane of this kind")
)

// FileProvider is the file-content collaborator. *files.Local implements it.
type FileProvider interface {
	Resolve(path string) (string, error)
	ReadFile(ctx context.Context, path string) (files.Content, error)
	WriteFile(ctx context.Context, path string, content string) error
	MediaPlaylist(ctx context.Context, path string) ([]files.Entry, error)
	MediaIn(ctx context.Context, dir string) ([]files.Entry, error)
}

// Store owns the open panes and the active pane pointer.
//
// Mutations are serialized: each one is applied, persisted and announced
// before the next begins. Subscribers run on the mutating goroutine and
// must not call mutating methods themselves.
type Store struct {
	fs      FileProvider
	persist storage.Store
	logger  *zap.Logger
	now     func() time.Time

	// commitMu serializes apply, persist and notify.
	commitMu sync.Mutex

	mu       sync.RWMutex
	panes    []Pane
	activeID string
	subs     map[int]func(State)
	nextSub  int
}

// NewStore creates an empty store. persist may be nil to disable
// persistence.
func NewStore(fs FileProvider, persist storage.Store, logger *zap.Logger) *Store {
	return &Store{
		fs:      fs,
		persist: persist,
		logger:  logging.OrNop(logger).Named("workspace"),
		now:     time.Now,
		subs:    make(map[int]func(State)),
	}
}

// WithClock replaces the time source used for transient ids.
func (s *Store) WithClock(now func() time.Time) *Store {
	if now != nil {
		s.now = now
	}
	return s
}

// =============================================================================
// READS
// =============================================================================

// GetState returns a copy of the current state.
func (s *Store) GetState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

func (s *Store) stateLocked() State {
	panes := make([]Pane, len(s.panes))
	for i, p := range s.panes {
		panes[i] = p.clone()
	}
	return State{Panes: panes, ActivePaneID: s.activeID}
}

// Subscribe registers fn to receive the state after every mutation. The
// returned function removes the subscription.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// =============================================================================
// COMMIT
// =============================================================================

// commit applies fn under the write lock. When fn reports a change the new
// state is persisted and then sent to subscribers.
func (s *Store) commit(ctx context.Context, fn func() bool) bool {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.mu.Lock()
	if !fn() {
		s.mu.Unlock()
		return false
	}
	state := s.stateLocked()
	subs := make([]func(State), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	s.save(ctx, state)
	for _, sub := range subs {
		sub(state)
	}
	return true
}

func (s *Store) indexLocked(id string) int {
	for i, p := range s.panes {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// =============================================================================
// PANE OPERATIONS
// =============================================================================

// Open appends pane unless its id is already open, then makes it active.
// Opening an existing id only moves the active pointer.
func (s *Store) Open(ctx context.Context, pane Pane) {
	if pane.ID == "" {
		return
	}
	s.commit(ctx, func() bool {
		if s.indexLocked(pane.ID) < 0 {
			s.panes = append(s.panes, pane.clone())
		} else if s.activeID == pane.ID {
			return false
		}
		s.activeID = pane.ID
		return true
	})
}

// OpenPath opens the file at path. A path that is already open is only
// activated. A path that cannot be read opens as a placeholder pane
// describing the failure.
func (s *Store) OpenPath(ctx context.Context, path string) (Pane, error) {
	resolved, err := s.fs.Resolve(path)
	if err != nil {
		return Pane{}, fmt.Errorf("invalid path %q: %w", path, err)
	}

	if existing, ok := s.GetState().Pane(resolved); ok {
		s.SetActive(ctx, resolved)
		return existing, nil
	}

	pane := s.loadPane(ctx, resolved, path)
	if err := ctx.Err(); err != nil {
		return Pane{}, err
	}
	s.Open(ctx, pane)
	return pane, nil
}

// OpenGallery opens a gallery of the media inside dir.
func (s *Store) OpenGallery(ctx context.Context, dir string) (Pane, error) {
	resolved, err := s.fs.Resolve(dir)
	if err != nil {
		return Pane{}, fmt.Errorf("invalid path %q: %w", dir, err)
	}
	items, err := s.fs.MediaIn(ctx, resolved)
	if err != nil {
		return Pane{}, err
	}

	pane := Pane{
		ID:       GalleryPrefix + resolved,
		Name:     filepath.Base(resolved),
		Kind:     KindGallery,
		Content:  resolved,
		Playlist: items,
	}
	s.commit(ctx, func() bool {
		if i := s.indexLocked(pane.ID); i >= 0 {
			s.panes[i].Playlist = pane.clone().Playlist
		} else {
			s.panes = append(s.panes, pane.clone())
		}
		s.activeID = pane.ID
		return true
	})
	return pane, nil
}

// SetActive makes id the active pane. Unknown ids are ignored.
func (s *Store) SetActive(ctx context.Context, id string) bool {
	return s.commit(ctx, func() bool {
		if s.activeID == id || s.indexLocked(id) < 0 {
			return false
		}
		s.activeID = id
		return true
	})
}

// Close removes the pane with id. When it was active, the pane to its left
// becomes active, else the new first pane, else none.
func (s *Store) Close(ctx context.Context, id string) bool {
	return s.commit(ctx, func() bool {
		idx := s.indexLocked(id)
		if idx < 0 {
			return false
		}
		s.panes = append(s.panes[:idx:idx], s.panes[idx+1:]...)

		if s.activeID == id {
			if len(s.panes) == 0 {
				s.activeID = ""
			} else {
				s.activeID = s.panes[max(0, idx-1)].ID
			}
		}
		return true
	})
}

// CreateTransient opens a new unsaved pane of kind. Only text kinds can be
// created.
func (s *Store) CreateTransient(ctx context.Context, kind Kind) (Pane, error) {
	if kind != KindCode && kind != KindMarkdown {
		return Pane{}, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}

	var pane Pane
	s.commit(ctx, func() bool {
		pane = Pane{
			ID:      s.transientIDLocked(),
			Name:    s.transientNameLocked(kind),
			Kind:    kind,
			Unsaved: true,
		}
		if kind == KindMarkdown {
			pane.Language = "markdown"
		} else {
			pane.Language = "plaintext"
		}
		s.panes = append(s.panes, pane)
		s.activeID = pane.ID
		return true
	})
	return pane, nil
}

// transientIDLocked returns "untitled-<unix millis>", suffixed when two
// panes are created within the same millisecond.
func (s *Store) transientIDLocked() string {
	base := TransientPrefix + strconv.FormatInt(s.now().UnixMilli(), 10)
	id := base
	for n := 2; s.indexLocked(id) >= 0; n++ {
		id = base + "-" + strconv.Itoa(n)
	}
	return id
}

var untitledName = regexp.MustCompile(`^Untitled-(\d+)\.`)

// transientNameLocked returns the lowest free "Untitled-N" name for kind.
func (s *Store) transientNameLocked(kind Kind) string {
	ext := ".txt"
	if kind == KindMarkdown {
		ext = ".md"
	}
	used := make(map[int]bool)
	for _, p := range s.panes {
		if p.Kind != kind {
			continue
		}
		if m := untitledName.FindStringSubmatch(p.Name); m != nil {
			n, _ := strconv.Atoi(m[1])
			used[n] = true
		}
	}
	n := 1
	for used[n] {
		n++
	}
	return fmt.Sprintf("Untitled-%d%s", n, ext)
}

// UpdateActiveContent replaces the active pane's text and marks it
// unsaved. It does nothing when no text pane is active.
func (s *Store) UpdateActiveContent(ctx context.Context, text string) bool {
	return s.commit(ctx, func() bool {
		idx := s.indexLocked(s.activeID)
		if idx < 0 || !s.panes[idx].Kind.IsText() {
			return false
		}
		s.panes[idx].Content = text
		s.panes[idx].Unsaved = true
		return true
	})
}

// =============================================================================
// SAVE
// =============================================================================

// Save writes a file-backed pane to disk and clears its unsaved flag.
func (s *Store) Save(ctx context.Context, id string) error {
	pane, ok := s.GetState().Pane(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrPaneNotFound, id)
	}
	if !pane.Kind.IsText() {
		return fmt.Errorf("%w: %s", ErrNotEditable, pane.Name)
	}
	if !pane.IsFileBacked() {
		return fmt.Errorf("%w: %s", ErrNeedsPath, pane.Name)
	}

	if err := s.fs.WriteFile(ctx, pane.ID, pane.Content); err != nil {
		return err
	}

	s.commit(ctx, func() bool {
		idx := s.indexLocked(id)
		// Edits made during the write stay unsaved.
		if idx < 0 || !s.panes[idx].Unsaved || s.panes[idx].Content != pane.Content {
			return false
		}
		s.panes[idx].Unsaved = false
		return true
	})
	s.logger.Info("pane saved", zap.String("path", pane.ID))
	return nil
}

// SaveAs writes a text pane to path and re-keys it to that file. A pane
// already open for path is replaced.
func (s *Store) SaveAs(ctx context.Context, id string, path string) (Pane, error) {
	pane, ok := s.GetState().Pane(id)
	if !ok {
		return Pane{}, fmt.Errorf("%w: %s", ErrPaneNotFound, id)
	}
	if !pane.Kind.IsText() {
		return Pane{}, fmt.Errorf("%w: %s", ErrNotEditable, pane.Name)
	}
	resolved, err := s.fs.Resolve(path)
	if err != nil {
		return Pane{}, fmt.Errorf("invalid path %q: %w", path, err)
	}
	if err := s.fs.WriteFile(ctx, resolved, pane.Content); err != nil {
		return Pane{}, err
	}

	kind := KindForPath(resolved)
	if !kind.IsText() {
		kind = KindCode
	}
	saved := Pane{
		ID:       resolved,
		Name:     filepath.Base(resolved),
		Kind:     kind,
		Content:  pane.Content,
		Language: files.DetectLanguage(resolved),
	}

	s.commit(ctx, func() bool {
		idx := s.indexLocked(id)
		if idx < 0 {
			return false
		}
		current := s.panes[idx]
		saved.Content = current.Content
		saved.Unsaved = current.Content != pane.Content

		if dup := s.indexLocked(resolved); dup >= 0 && dup != idx {
			s.panes = append(s.panes[:dup:dup], s.panes[dup+1:]...)
			if dup < idx {
				idx--
			}
		}
		s.panes[idx] = saved
		if s.activeID == id || s.activeID == resolved {
			s.activeID = resolved
		}
		return true
	})
	s.logger.Info("pane saved as", zap.String("from", id), zap.String("path", resolved))
	return saved, nil
}

// =============================================================================
// REFRESH
// =============================================================================

// RefreshPane re-reads one file-backed text pane from disk. The disk
// copy wins over unsaved edits. Paths that are not open are ignored.
func (s *Store) RefreshPane(ctx context.Context, path string) error {
	pane, ok := s.GetState().Pane(path)
	if !ok || !pane.IsFileBacked() || !pane.Kind.IsText() {
		return nil
	}

	content, err := s.fs.ReadFile(ctx, pane.ID)
	if err != nil {
		if files.IsNotFound(err) {
			// Deleted on disk; keep what is on screen.
			return nil
		}
		return err
	}

	s.commit(ctx, func() bool {
		idx := s.indexLocked(path)
		if idx < 0 {
			return false
		}
		p := &s.panes[idx]
		if p.Content == content.Content && !p.Unsaved {
			return false
		}
		p.Content = content.Content
		p.Unsaved = false
		return true
	})
	return nil
}

// RefreshOpenFiles re-reads every file-backed text pane. It returns how
// many panes were read and the first error encountered.
func (s *Store) RefreshOpenFiles(ctx context.Context) (int, error) {
	var (
		refreshed int
		firstErr  error
	)
	for _, path := range s.GetState().FilePaths() {
		if err := ctx.Err(); err != nil {
			return refreshed, err
		}
		pane, _ := s.GetState().Pane(path)
		if !pane.Kind.IsText() {
			continue
		}
		if err := s.RefreshPane(ctx, path); err != nil {
			s.logger.Warn("refresh failed", zap.String("path", path), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		refreshed++
	}
	return refreshed, firstErr
}
