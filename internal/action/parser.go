// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package action

import (
	"regexp"
	"strings"
)

// Kind identifies what a directive asks for.
type Kind string

const (
	// KindOpenFile asks the workspace to open a file.
	KindOpenFile Kind = "OPEN_FILE"
)

// openFilePattern matches [ACTION:OPEN_FILE:<path>] with a non-greedy path.
var openFilePattern = regexp.MustCompile(`\[ACTION:OPEN_FILE:(.*?)\]`)

// Directive is one parsed action marker.
type Directive struct {
	Kind Kind

	// Path is the trimmed target path.
	Path string

	// Raw is the marker exactly as it appeared.
	Raw string

	// Start and End are byte offsets of Raw in the parsed text.
	Start int
	End   int
}

// Result is the outcome of parsing one reply.
type Result struct {
	// Directive is nil when the reply holds no marker.
	Directive *Directive

	// Text is the reply with the marker removed and surrounding
	// whitespace trimmed. It equals the input when there is no marker.
	Text string
}

// HasAction reports whether a directive was found.
func (r Result) HasAction() bool {
	return r.Directive != nil
}

// Parse finds the first directive in text. Later markers are left in the
// text untouched.
func Parse(text string) Result {
	loc := openFilePattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return Result{Text: text}
	}

	d := &Directive{
		Kind:  KindOpenFile,
		Path:  strings.TrimSpace(text[loc[2]:loc[3]]),
		Raw:   text[loc[0]:loc[1]],
		Start: loc[0],
		End:   loc[1],
	}
	return Result{Directive: d, Text: removeMarker(text, loc[0], loc[1])}
}

// HasDirective reports whether text contains a directive.
func HasDirective(text string) bool {
	return openFilePattern.MatchString(text)
}

// removeMarker cuts text[start:end] and trims the result. When the marker
// sat between two spaces only one of them is kept.
func removeMarker(text string, start, end int) string {
	left, right := text[:start], text[end:]
	if endsWithBlank(left) && startsWithBlank(right) {
		right = strings.TrimLeft(right, " \t")
	}
	return strings.TrimSpace(left + right)
}

func endsWithBlank(s string) bool {
	return s != "" && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t')
}

func startsWithBlank(s string) bool {
	return s != "" && (s[0] == ' ' || s[0] == '\t')
}
