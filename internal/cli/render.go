// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// render.go - Terminal rendering of replies, panes and directory listings.

package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/agentic-studio/internal/files"
	"github.com/jeranaias/agentic-studio/internal/util"
	"github.com/jeranaias/agentic-studio/internal/workspace"
)

// Renderer formats content for the terminal. With Plain set, output carries
// no escape sequences, which keeps piped output and tests stable.
type Renderer struct {
	Plain    bool
	Markdown bool
	Width    int

	md *glamour.TermRenderer
}

// NewRenderer creates a renderer for theme ("dark", "light" or "auto").
func NewRenderer(theme string, markdown bool) *Renderer {
	r := &Renderer{
		Plain:    !ColorsEnabled(),
		Markdown: markdown,
		Width:    GetTerminalWidth(),
	}
	if r.Plain || !markdown {
		return r
	}

	styleOpt := glamour.WithAutoStyle()
	switch strings.ToLower(theme) {
	case "dark", "light":
		styleOpt = glamour.WithStandardStyle(strings.ToLower(theme))
	}
	md, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(min(r.Width-4, 100)))
	if err == nil {
		r.md = md
	}
	return r
}

// PlainRenderer returns a renderer that never styles output.
func PlainRenderer() *Renderer {
	return &Renderer{Plain: true, Width: DefaultTerminalWidth}
}

// RenderMarkdown renders markdown, or returns it unchanged when rendering is off.
func (r *Renderer) RenderMarkdown(text string) string {
	if r.md == nil {
		return text
	}
	out, err := r.md.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}

func (r *Renderer) style(text string, apply func(...string) string) string {
	if r.Plain {
		return text
	}
	return apply(text)
}

// =============================================================================
// PANES
// =============================================================================

// WritePane renders one pane with a title bar.
func (r *Renderer) WritePane(w io.Writer, p workspace.Pane) {
	title := p.Name
	if p.Unsaved {
		title += " *"
	}
	fmt.Fprintln(w, r.style(title, PaneTitleStyle.Render)+" "+r.style(string(p.Kind), DimStyle.Render))

	switch p.Kind {
	case workspace.KindMarkdown, workspace.KindWelcome:
		fmt.Fprintln(w, r.RenderMarkdown(p.Content))
	case workspace.KindCode:
		r.writeCode(w, p.Content, p.Language)
	case workspace.KindImage, workspace.KindVideo:
		fmt.Fprintln(w, r.style(p.Content, InfoStyle.Render))
		r.writePlaylistPosition(w, p)
	case workspace.KindGallery:
		r.writeGallery(w, p)
	default:
		fmt.Fprintln(w, p.Content)
	}
}

func (r *Renderer) writeCode(w io.Writer, content, language string) {
	if !r.Plain {
		content = highlightCode(content, language)
	}
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	width := len(fmt.Sprint(len(lines)))
	for i, line := range lines {
		num := fmt.Sprintf("%*d ", width, i+1)
		fmt.Fprintln(w, r.style(num, LineNumberStyle.Render)+line)
	}
}

func (r *Renderer) writePlaylistPosition(w io.Writer, p workspace.Pane) {
	if len(p.Playlist) < 2 {
		return
	}
	for i, e := range p.Playlist {
		if e.Path == p.ID {
			fmt.Fprintln(w, r.style(fmt.Sprintf("%d of %d in %s", i+1, len(p.Playlist), filepath.Dir(p.ID)), DimStyle.Render))
			return
		}
	}
}

func (r *Renderer) writeGallery(w io.Writer, p workspace.Pane) {
	if len(p.Playlist) == 0 {
		fmt.Fprintln(w, r.style("No images or videos in "+p.Content, DimStyle.Render))
		return
	}
	for i, e := range p.Playlist {
		kind := "image"
		if files.IsVideo(e.Path) {
			kind = "video"
		}
		fmt.Fprintf(w, "%3d  %-5s  %s\n", i+1, kind, e.Name)
	}
}

// WritePaneList renders the open panes, marking the active one.
func (r *Renderer) WritePaneList(w io.Writer, st workspace.State) {
	if len(st.Panes) == 0 {
		fmt.Fprintln(w, r.style("No open panes.", DimStyle.Render))
		return
	}
	nameWidth := min(max(r.Width-30, 20), 60)
	for i, p := range st.Panes {
		marker := " "
		if p.ID == st.ActivePaneID {
			marker = r.style("●", HighlightStyle.Render)
		}
		name := util.TruncateWidth(p.Name, nameWidth)
		pad := strings.Repeat(" ", max(nameWidth-util.StringWidth(name), 0))
		flag := ""
		if p.Unsaved {
			flag = r.style(" unsaved", WarningStyle.Render)
		}
		fmt.Fprintf(w, "%s %2d  %s%s  %s%s\n", marker, i+1, name, pad, r.style(string(p.Kind), DimStyle.Render), flag)
	}
}

// WriteEntries renders a directory listing.
func (r *Renderer) WriteEntries(w io.Writer, dir string, entries []files.Entry) {
	fmt.Fprintln(w, r.style(dir, TitleStyle.Render))
	if len(entries) == 0 {
		fmt.Fprintln(w, r.style("  (empty)", DimStyle.Render))
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			fmt.Fprintln(w, "  "+r.style(e.Name+"/", InfoStyle.Render))
			continue
		}
		fmt.Fprintln(w, "  "+e.Name)
	}
}

// =============================================================================
// SYNTAX HIGHLIGHTING
// =============================================================================

// highlightCode applies chroma highlighting for a workspace language name.
func highlightCode(code, language string) string {
	var lexer chroma.Lexer
	if language != "" && language != "plaintext" {
		lexer = lexers.Get(language)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return buf.String()
}
