// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package files

import (
	"net/url"
	"path/filepath"
	"strings"
)

// base64Extensions are read as base64. Everything else, including vector
// images, is read as UTF-8 text.
var base64Extensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
	".mp4": true, ".webm": true, ".mov": true, ".mkv": true,
}

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true, ".svg": true,
}

var videoExtensions = map[string]bool{
	".mp4": true, ".webm": true, ".mov": true, ".mkv": true,
}

var languageByExtension = map[string]string{
	".ts":   "typescript",
	".tsx":  "typescript",
	".js":   "javascript",
	".jsx":  "javascript",
	".py":   "python",
	".go":   "go",
	".json": "json",
	".md":   "markdown",
	".html": "html",
	".css":  "css",
	".scss": "scss",
	".yaml": "yaml",
	".yml":  "yaml",
	".sh":   "shell",
}

func ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// IsBinary reports whether path is read as base64.
func IsBinary(path string) bool {
	return base64Extensions[ext(path)]
}

// IsImage reports whether path has an image extension.
func IsImage(path string) bool {
	return imageExtensions[ext(path)]
}

// IsVideo reports whether path has a video extension.
func IsVideo(path string) bool {
	return videoExtensions[ext(path)]
}

// IsMedia reports whether path is an image or a video.
func IsMedia(path string) bool {
	return IsImage(path) || IsVideo(path)
}

// IsMarkdown reports whether path is a markdown document.
func IsMarkdown(path string) bool {
	e := ext(path)
	return e == ".md" || e == ".markdown"
}

// DetectLanguage returns the editor language for path, or "plaintext".
func DetectLanguage(path string) string {
	if lang, ok := languageByExtension[ext(path)]; ok {
		return lang
	}
	return "plaintext"
}

// FileURL returns a file:// reference to an absolute path.
func FileURL(path string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}
