// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// slash.go - Workspace and session commands typed at the chat prompt.

package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jeranaias/agentic-studio/internal/workspace"
)

type slashCommand struct {
	name    string
	aliases []string
	usage   string
	help    string
	run     func(a *App, ctx context.Context, p *ArgParser) (quit bool, err error)
}

var slashCommands []slashCommand

func init() {
	slashCommands = []slashCommand{
		{name: "help", aliases: []string{"h", "?"}, help: "Show this help", run: (*App).slashHelp},
		{name: "open", aliases: []string{"o"}, usage: "<path>", help: "Open a file as a pane", run: (*App).slashOpen},
		{name: "gallery", usage: "<dir>", help: "Open a folder's images and videos", run: (*App).slashGallery},
		{name: "panes", aliases: []string{"p"}, help: "List open panes", run: (*App).slashPanes},
		{name: "switch", aliases: []string{"sw"}, usage: "<n|id>", help: "Make a pane active", run: (*App).slashSwitch},
		{name: "show", usage: "[n|id]", help: "Print a pane (default: active)", run: (*App).slashShow},
		{name: "close", usage: "[n|id]", help: "Close a pane (default: active)", run: (*App).slashClose},
		{name: "new", usage: "[code|markdown]", help: "Create an untitled pane", run: (*App).slashNew},
		{name: "append", usage: "<text>", help: "Append a line to the active pane", run: (*App).slashAppend},
		{name: "save", usage: "[n|id]", help: "Save a pane to its file", run: (*App).slashSave},
		{name: "saveas", usage: "<path>", help: "Save the active pane under a new path", run: (*App).slashSaveAs},
		{name: "refresh", help: "Reload open files from disk", run: (*App).slashRefresh},
		{name: "ls", usage: "[dir]", help: "List a directory", run: (*App).slashLs},
		{name: "reset", aliases: []string{"clear"}, help: "Clear the conversation", run: (*App).slashReset},
		{name: "history", help: "Show the conversation", run: (*App).slashHistory},
		{name: "settings", usage: "[show|set|test|clear]", help: "Provider and API key", run: (*App).slashSettings},
		{name: "quit", aliases: []string{"q", "exit"}, help: "Exit chat", run: func(*App, context.Context, *ArgParser) (bool, error) { return true, nil }},
	}
}

func findSlash(name string) (slashCommand, bool) {
	name = strings.ToLower(name)
	for _, cmd := range slashCommands {
		if cmd.name == name {
			return cmd, true
		}
		for _, alias := range cmd.aliases {
			if alias == name {
				return cmd, true
			}
		}
	}
	return slashCommand{}, false
}

// HandleSlash runs one slash command line. quit is true for /quit.
func (a *App) HandleSlash(ctx context.Context, line string) (quit bool, err error) {
	fields := strings.Fields(strings.TrimPrefix(line, "/"))
	if len(fields) == 0 {
		return false, &UsageError{Message: "empty command", Example: "/help"}
	}
	cmd, ok := findSlash(fields[0])
	if !ok {
		return false, &UsageError{Message: fmt.Sprintf("unknown command /%s", fields[0]), Example: "/help"}
	}
	return cmd.run(a, ctx, NewArgParser(fields[1:], "test", "force"))
}

// resolvePaneRef accepts a 1-based position or a pane id. Empty means the
// active pane.
func resolvePaneRef(st workspace.State, ref string) (workspace.Pane, error) {
	if ref == "" {
		if p, ok := st.Active(); ok {
			return p, nil
		}
		return workspace.Pane{}, errors.New("no active pane")
	}
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(st.Panes) {
			return workspace.Pane{}, fmt.Errorf("%w: no pane %d", workspace.ErrPaneNotFound, n)
		}
		return st.Panes[n-1], nil
	}
	if p, ok := st.Pane(ref); ok {
		return p, nil
	}
	// Allow a path relative to the workspace root.
	for _, p := range st.Panes {
		if p.Name == ref || strings.HasSuffix(p.ID, "/"+ref) {
			return p, nil
		}
	}
	return workspace.Pane{}, fmt.Errorf("%w: %s", workspace.ErrPaneNotFound, ref)
}

func (a *App) slashHelp(_ context.Context, _ *ArgParser) (bool, error) {
	r := a.renderer()
	fmt.Fprintln(a.out(), r.style("Commands", SectionStyle.Render))
	for _, cmd := range slashCommands {
		usage := "/" + cmd.name
		if cmd.usage != "" {
			usage += " " + cmd.usage
		}
		fmt.Fprintf(a.out(), "  %-28s %s\n", usage, r.style(cmd.help, DimStyle.Render))
	}
	return false, nil
}

func (a *App) slashOpen(ctx context.Context, p *ArgParser) (bool, error) {
	path := JoinPositionalArgs(p, 0)
	if path == "" {
		return false, ErrMissingArgument("path", "/open <path>")
	}
	pane, err := a.Workspace.OpenPath(ctx, path)
	if err != nil {
		return false, err
	}
	a.reportOpened(pane)
	return false, nil
}

// reportOpened prints the opened pane's name, or the placeholder text when
// the file could not be read.
func (a *App) reportOpened(pane workspace.Pane) {
	if pane.IsPlaceholder() {
		fmt.Fprintln(a.out(), a.renderer().style(pane.Content, WarningStyle.Render))
		return
	}
	fmt.Fprintln(a.out(), a.renderer().style("Opened "+pane.Name, ActionStyle.Render))
}

func (a *App) slashGallery(ctx context.Context, p *ArgParser) (bool, error) {
	dir := JoinPositionalArgs(p, 0)
	if dir == "" {
		dir = "."
	}
	pane, err := a.Workspace.OpenGallery(ctx, dir)
	if err != nil {
		return false, err
	}
	a.renderer().WritePane(a.out(), pane)
	return false, nil
}

func (a *App) slashPanes(_ context.Context, _ *ArgParser) (bool, error) {
	a.renderer().WritePaneList(a.out(), a.Workspace.GetState())
	return false, nil
}

func (a *App) slashSwitch(ctx context.Context, p *ArgParser) (bool, error) {
	ref := p.Positional(0)
	if ref == "" {
		return false, ErrMissingArgument("pane", "/switch <n|id>")
	}
	pane, err := resolvePaneRef(a.Workspace.GetState(), ref)
	if err != nil {
		return false, err
	}
	a.Workspace.SetActive(ctx, pane.ID)
	fmt.Fprintln(a.out(), "Active: "+pane.Name)
	return false, nil
}

func (a *App) slashShow(_ context.Context, p *ArgParser) (bool, error) {
	pane, err := resolvePaneRef(a.Workspace.GetState(), p.Positional(0))
	if err != nil {
		return false, err
	}
	a.renderer().WritePane(a.out(), pane)
	return false, nil
}

func (a *App) slashClose(ctx context.Context, p *ArgParser) (bool, error) {
	pane, err := resolvePaneRef(a.Workspace.GetState(), p.Positional(0))
	if err != nil {
		return false, err
	}
	if pane.Unsaved && !p.BoolFlag("force") {
		return false, &UsageError{
			Message: pane.Name + " has unsaved changes",
			Example: "/save, or /close " + p.Positional(0) + " --force",
		}
	}
	a.Workspace.Close(ctx, pane.ID)
	fmt.Fprintln(a.out(), "Closed "+pane.Name)
	return false, nil
}

func (a *App) slashNew(ctx context.Context, p *ArgParser) (bool, error) {
	kind := workspace.KindCode
	switch strings.ToLower(p.Positional(0)) {
	case "", "code", "text", "txt":
	case "markdown", "md":
		kind = workspace.KindMarkdown
	default:
		return false, &UsageError{Message: "unsupported pane kind " + p.Positional(0), Example: "/new [code|markdown]"}
	}
	pane, err := a.Workspace.CreateTransient(ctx, kind)
	if err != nil {
		return false, err
	}
	fmt.Fprintln(a.out(), "Created "+pane.Name)
	return false, nil
}

func (a *App) slashAppend(ctx context.Context, p *ArgParser) (bool, error) {
	text := strings.Join(p.Raw(), " ")
	active, ok := a.Workspace.GetState().Active()
	if !ok {
		return false, errors.New("no active pane")
	}
	content := active.Content
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	if !a.Workspace.UpdateActiveContent(ctx, content+text+"\n") {
		return false, fmt.Errorf("%s: %w", active.Name, workspace.ErrNotEditable)
	}
	return false, nil
}

func (a *App) slashSave(ctx context.Context, p *ArgParser) (bool, error) {
	pane, err := resolvePaneRef(a.Workspace.GetState(), p.Positional(0))
	if err != nil {
		return false, err
	}
	if err := a.Workspace.Save(ctx, pane.ID); err != nil {
		if errors.Is(err, workspace.ErrNeedsPath) {
			return false, &UsageError{Message: pane.Name + " has no file yet", Example: "/saveas <path>"}
		}
		return false, err
	}
	fmt.Fprintln(a.out(), a.renderer().style("Saved "+pane.ID, SuccessStyle.Render))
	return false, nil
}

func (a *App) slashSaveAs(ctx context.Context, p *ArgParser) (bool, error) {
	path := JoinPositionalArgs(p, 0)
	if path == "" {
		return false, ErrMissingArgument("path", "/saveas <path>")
	}
	active, ok := a.Workspace.GetState().Active()
	if !ok {
		return false, errors.New("no active pane")
	}
	pane, err := a.Workspace.SaveAs(ctx, active.ID, path)
	if err != nil {
		return false, err
	}
	fmt.Fprintln(a.out(), a.renderer().style("Saved "+pane.ID, SuccessStyle.Render))
	return false, nil
}

func (a *App) slashRefresh(ctx context.Context, _ *ArgParser) (bool, error) {
	n, err := a.Workspace.RefreshOpenFiles(ctx)
	if err != nil {
		return false, err
	}
	fmt.Fprintf(a.out(), "Refreshed %d file(s)\n", n)
	return false, nil
}

func (a *App) slashLs(ctx context.Context, p *ArgParser) (bool, error) {
	return false, a.listDirectory(ctx, JoinPositionalArgs(p, 0))
}

func (a *App) slashReset(_ context.Context, _ *ArgParser) (bool, error) {
	if err := a.Session.Reset(); err != nil {
		return false, err
	}
	fmt.Fprintln(a.out(), "Conversation cleared")
	return false, nil
}

func (a *App) slashHistory(_ context.Context, _ *ArgParser) (bool, error) {
	r := a.renderer()
	msgs := a.Session.Messages()
	if len(msgs) == 0 {
		fmt.Fprintln(a.out(), r.style("No messages yet.", DimStyle.Render))
		return false, nil
	}
	for _, m := range msgs {
		fmt.Fprintf(a.out(), "%s %s\n", r.style(m.Role.DisplayName()+":", LabelStyle.Render), m.Preview(200))
	}
	return false, nil
}

func (a *App) slashSettings(ctx context.Context, p *ArgParser) (bool, error) {
	return false, a.settingsCommand(ctx, p)
}
