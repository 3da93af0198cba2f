// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package files

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/jeranaias/agentic-studio/internal/logging"
	"github.com/jeranaias/agentic-studio/internal/util"
)

// DefaultMaxFileSize bounds a single read.
const DefaultMaxFileSize = 32 * 1024 * 1024

// Encoding names how Content.Content is encoded.
type Encoding string

const (
	EncodingUTF8   Encoding = "utf-8"
	EncodingBase64 Encoding = "base64"
)

// Content is the result of a successful read.
type Content struct {
	Content  string   `json:"content"`
	Encoding Encoding `json:"encoding"`
}

// Bytes decodes the content back to raw bytes.
func (c Content) Bytes() ([]byte, error) {
	if c.Encoding == EncodingBase64 {
		return base64.StdEncoding.DecodeString(c.Content)
	}
	return []byte(c.Content), nil
}

// EntryType distinguishes files from folders in a listing.
type EntryType string

const (
	EntryFile   EntryType = "file"
	EntryFolder EntryType = "folder"
)

// Entry is one item of a directory listing.
type Entry struct {
	Name string    `json:"name"`
	Path string    `json:"path"`
	Type EntryType `json:"type"`
}

// IsDir reports whether the entry is a folder.
func (e Entry) IsDir() bool { return e.Type == EntryFolder }

// Local reads and writes the local filesystem. Relative paths resolve
// against Root.
type Local struct {
	root        string
	home        string
	maxFileSize int64
	logger      *zap.Logger
}

// NewLocal creates a provider rooted at root. An empty root uses the
// current working directory.
func NewLocal(root string, logger *zap.Logger) (*Local, error) {
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}
	home, _ := os.UserHomeDir()
	return &Local{
		root:        abs,
		home:        home,
		maxFileSize: DefaultMaxFileSize,
		logger:      logging.OrNop(logger).Named("files"),
	}, nil
}

// WithMaxFileSize changes the read limit. Zero or less keeps the default.
func (l *Local) WithMaxFileSize(n int64) *Local {
	if n > 0 {
		l.maxFileSize = n
	}
	return l
}

// WithHome overrides the directory "~" expands to.
func (l *Local) WithHome(dir string) *Local {
	l.home = dir
	return l
}

// Root returns the directory relative paths resolve against.
func (l *Local) Root() string { return l.root }

// Resolve expands "~", makes path absolute and cleans it.
func (l *Local) Resolve(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("empty path")
	}
	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		if l.home == "" {
			return "", errors.New("home directory unknown")
		}
		path = filepath.Join(l.home, path[1:])
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.root, path)
	}
	return filepath.Clean(path), nil
}

// ReadFile reads path as base64 for media extensions and UTF-8 otherwise.
func (l *Local) ReadFile(ctx context.Context, path string) (Content, error) {
	if err := ctx.Err(); err != nil {
		return Content{}, err
	}
	resolved, err := l.Resolve(path)
	if err != nil {
		return Content{}, err
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return Content{}, l.statError(path, err)
	}
	if info.IsDir() {
		return Content{}, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > l.maxFileSize {
		return Content{}, fmt.Errorf("%s: %w (%d bytes)", path, ErrTooLarge, info.Size())
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return Content{}, l.statError(path, err)
	}

	if IsBinary(resolved) {
		return Content{Content: base64.StdEncoding.EncodeToString(data), Encoding: EncodingBase64}, nil
	}
	return Content{Content: string(data), Encoding: EncodingUTF8}, nil
}

// ReadDirectory lists path, omitting dot entries. Folders sort first,
// then names case-insensitively.
func (l *Local) ReadDirectory(ctx context.Context, path string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resolved, err := l.Resolve(path)
	if err != nil {
		return nil, err
	}

	dirEntries, err := os.ReadDir(resolved)
	if err != nil {
		return nil, l.statError(path, err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if strings.HasPrefix(de.Name(), ".") {
			continue
		}
		typ := EntryFile
		if isDirEntry(resolved, de) {
			typ = EntryFolder
		}
		entries = append(entries, Entry{
			Name: de.Name(),
			Path: filepath.Join(resolved, de.Name()),
			Type: typ,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
	return entries, nil
}

// isDirEntry follows symlinks so a linked folder lists as a folder.
func isDirEntry(dir string, de fs.DirEntry) bool {
	if de.Type()&fs.ModeSymlink == 0 {
		return de.IsDir()
	}
	info, err := os.Stat(filepath.Join(dir, de.Name()))
	return err == nil && info.IsDir()
}

// WriteFile atomically replaces path with content, creating parent
// directories as needed.
func (l *Local) WriteFile(ctx context.Context, path string, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	resolved, err := l.Resolve(path)
	if err != nil {
		return err
	}

	perm := os.FileMode(0644)
	if info, err := os.Stat(resolved); err == nil {
		if info.IsDir() {
			return fmt.Errorf("%s is a directory", path)
		}
		perm = info.Mode().Perm()
	}

	if err := util.AtomicWriteFile(resolved, []byte(content), perm); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	l.logger.Debug("file written", zap.String("path", resolved), zap.Int("bytes", len(content)))
	return nil
}

// MediaPlaylist returns the image and video files that share path's
// folder, sorted by name. path itself is included when it exists.
func (l *Local) MediaPlaylist(ctx context.Context, path string) ([]Entry, error) {
	resolved, err := l.Resolve(path)
	if err != nil {
		return nil, err
	}
	return l.MediaIn(ctx, filepath.Dir(resolved))
}

// MediaIn returns the image and video files directly inside dir.
func (l *Local) MediaIn(ctx context.Context, dir string) ([]Entry, error) {
	entries, err := l.ReadDirectory(ctx, dir)
	if err != nil {
		return nil, err
	}
	media := entries[:0]
	for _, e := range entries {
		if !e.IsDir() && IsMedia(e.Name) {
			media = append(media, e)
		}
	}
	sort.SliceStable(media, func(i, j int) bool { return media[i].Name < media[j].Name })
	return media, nil
}

func (l *Local) statError(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return &NotFoundError{Path: path, Err: err}
	}
	return fmt.Errorf("failed to read %s: %w", path, err)
}
