// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/agentic-studio/internal/cloud"
	"github.com/jeranaias/agentic-studio/internal/config"
	"github.com/jeranaias/agentic-studio/internal/files"
	"github.com/jeranaias/agentic-studio/internal/model"
	"github.com/jeranaias/agentic-studio/internal/session"
	"github.com/jeranaias/agentic-studio/internal/settings"
	"github.com/jeranaias/agentic-studio/internal/storage"
	"github.com/jeranaias/agentic-studio/internal/workspace"
)

var ctx = context.Background()

// =============================================================================
// ARG PARSER TESTS (args.go)
// =============================================================================

func TestArgParser_BasicParsing(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		bools    []string
		wantSub  string
		validate func(*testing.T, *ArgParser)
	}{
		{
			name:    "simple subcommand",
			args:    []string{"show"},
			wantSub: "show",
		},
		{
			name:    "subcommand with flag",
			args:    []string{"set", "--provider", "groq"},
			wantSub: "set",
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "groq", p.Flag("provider"))
			},
		},
		{
			name:    "flag with equals",
			args:    []string{"set", "--key=gsk_abc"},
			wantSub: "set",
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "gsk_abc", p.Flag("key"))
			},
		},
		{
			name:    "trailing flag is boolean",
			args:    []string{"show", "--json"},
			wantSub: "show",
			validate: func(t *testing.T, p *ArgParser) {
				assert.True(t, p.BoolFlag("json"))
				assert.True(t, p.HasFlag("--json"))
			},
		},
		{
			name:    "explicit boolean value",
			args:    []string{"set", "--test=false"},
			wantSub: "set",
			validate: func(t *testing.T, p *ArgParser) {
				assert.False(t, p.BoolFlag("test"))
				assert.True(t, p.HasFlag("test"))
			},
		},
		{
			name:    "boolean name does not consume the next argument",
			args:    []string{"set", "--test", "groq", "gsk_0123456789"},
			bools:   []string{"test"},
			wantSub: "set",
			validate: func(t *testing.T, p *ArgParser) {
				assert.True(t, p.BoolFlag("test"))
				assert.Equal(t, "groq", p.Positional(1))
				assert.Equal(t, "gsk_0123456789", p.Positional(2))
			},
		},
		{
			name:    "multiple positional args",
			args:    []string{"open", "src", "my file.go"},
			wantSub: "open",
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, 3, p.PositionalCount())
				assert.Equal(t, "src my file.go", JoinPositionalArgs(p, 1))
			},
		},
		{
			name:    "no args",
			args:    nil,
			wantSub: "",
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "", p.Positional(3))
				assert.Empty(t, p.PositionalFrom(1))
				assert.Equal(t, "fallback", p.FlagOrDefault("missing", "fallback"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewArgParser(tt.args, tt.bools...)
			assert.Equal(t, tt.wantSub, p.Subcommand())
			assert.Equal(t, tt.args, p.Raw())
			if tt.validate != nil {
				tt.validate(t, p)
			}
		})
	}
}

func TestParseBoolString(t *testing.T) {
	for _, s := range []string{"true", "YES", "y", "1", "on"} {
		v, err := ParseBoolString(s)
		require.NoError(t, err, s)
		assert.True(t, v, s)
	}
	for _, s := range []string{"false", "No", "n", "0", "off"} {
		v, err := ParseBoolString(s)
		require.NoError(t, err, s)
		assert.False(t, v, s)
	}
	_, err := ParseBoolString("maybe")
	assert.Error(t, err)
}

// =============================================================================
// COMMAND PARSING TESTS (cli.go)
// =============================================================================

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		argv    []string
		wantCmd Command
		check   func(*testing.T, Args)
	}{
		{name: "no args starts chat", argv: nil, wantCmd: CmdChat},
		{name: "chat", argv: []string{"chat"}, wantCmd: CmdChat},
		{
			name:    "ask joins words",
			argv:    []string{"ask", "open", "the", "app"},
			wantCmd: CmdAsk,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "open the app", a.Query)
			},
		},
		{
			name:    "global flags before command",
			argv:    []string{"--provider", "gemini", "-m", "gemini-2.0-flash", "-q", "ask", "hi"},
			wantCmd: CmdAsk,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "gemini", a.Provider)
				assert.Equal(t, "gemini-2.0-flash", a.Model)
				assert.True(t, a.Quiet)
				assert.Equal(t, "hi", a.Query)
			},
		},
		{
			name:    "config flag with equals",
			argv:    []string{"--config=/tmp/studio.toml", "--no-watch", "panes"},
			wantCmd: CmdPanes,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "/tmp/studio.toml", a.ConfigPath)
				assert.True(t, a.NoWatch)
			},
		},
		{
			name:    "settings keeps its arguments",
			argv:    []string{"--json", "settings", "set", "--test"},
			wantCmd: CmdSettings,
			check: func(t *testing.T, a Args) {
				assert.True(t, a.JSON)
				assert.Equal(t, "set", a.Subcommand)
				assert.Equal(t, []string{"set", "--test"}, a.Rest)
			},
		},
		{
			name:    "list alias",
			argv:    []string{"list", "src"},
			wantCmd: CmdLs,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "src", a.Query)
			},
		},
		{name: "version flag", argv: []string{"--version"}, wantCmd: CmdVersion},
		{name: "short version flag", argv: []string{"-V"}, wantCmd: CmdVersion},
		{name: "version after global flag", argv: []string{"-v", "-V"}, wantCmd: CmdVersion},
		{name: "command word is case insensitive", argv: []string{"VERSION"}, wantCmd: CmdVersion},
		{name: "help flag", argv: []string{"-h"}, wantCmd: CmdHelp},
		{
			name:    "unknown command",
			argv:    []string{"deploy"},
			wantCmd: CmdUnknown,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "deploy", a.Name)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args := Parse(tt.argv)
			assert.Equal(t, tt.wantCmd, cmd, "got %s", cmd)
			if tt.check != nil {
				tt.check(t, args)
			}
		})
	}
}

func TestCommand_String(t *testing.T) {
	assert.Equal(t, "settings", CmdSettings.String())
	assert.Equal(t, "unknown", Command(99).String())
}

// =============================================================================
// ERROR TESTS (errors.go)
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"generic", errors.New("boom"), ExitGeneralError},
		{"usage", &UsageError{Message: "bad"}, ExitUsageError},
		{"empty message", session.ErrEmptyMessage, ExitUsageError},
		{"cancelled turn", session.ErrCancelled, ExitCancelled},
		{"cancelled context", fmt.Errorf("wrap: %w", context.Canceled), ExitCancelled},
		{"configuration", &cloud.ConfigurationError{Field: "apiKey", Message: "no API key set"}, ExitConfigError},
		{"invalid config", config.ValidateErrors{{Field: "ui.theme", Message: "bad"}}, ExitConfigError},
		{"auth", &cloud.TransportError{Provider: cloud.ProviderGroq, Status: 401, Err: cloud.ErrAuthFailed}, ExitAuthError},
		{"idle timeout", &cloud.TransportError{Provider: cloud.ProviderGemini, Err: cloud.ErrStreamTimeout}, ExitTimeoutError},
		{"server error", &cloud.TransportError{Provider: cloud.ProviderGroq, Status: 500}, ExitNetworkError},
		{"missing file", &files.NotFoundError{Path: "x.go"}, ExitNotFoundError},
		{"missing pane", fmt.Errorf("%w: 9", workspace.ErrPaneNotFound), ExitNotFoundError},
		{"command wrapping cause", &CommandError{Command: "settings", Action: "set", Reason: "r", Err: session.ErrCancelled}, ExitCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestDisplayError_JSON(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, &files.NotFoundError{Path: "src/nope.ts"}, true)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "not_found_error", out["error_type"])
	assert.Equal(t, "src/nope.ts", out["path"])
	assert.Equal(t, float64(ExitNotFoundError), out["exit_code"])
	assert.Equal(t, false, out["success"])
}

func TestDisplayError_TransportUsesDetail(t *testing.T) {
	var buf bytes.Buffer
	err := &cloud.TransportError{Provider: cloud.ProviderGroq, Status: 429, Body: `{"error":{"message":"slow down"}}`}
	DisplayError(&buf, err, false)
	assert.Contains(t, buf.String(), "[ERROR]")
	assert.Contains(t, buf.String(), session.Describe(err))
}

// =============================================================================
// TEST APP
// =============================================================================

// replyTransport answers every turn with the same deltas.
type replyTransport struct {
	deltas []string
}

func (r *replyTransport) Provider() cloud.ProviderID { return cloud.ProviderGroq }

func (r *replyTransport) OpenStream(_ context.Context, _ []model.Message, _ string, _ cloud.Credentials) (cloud.Stream, error) {
	return &sliceStream{deltas: r.deltas, pos: -1}, nil
}

type sliceStream struct {
	deltas []string
	pos    int
}

func (s *sliceStream) Next() bool {
	if s.pos+1 >= len(s.deltas) {
		return false
	}
	s.pos++
	return true
}

func (s *sliceStream) Delta() string { return s.deltas[s.pos] }
func (s *sliceStream) Err() error    { return nil }
func (s *sliceStream) Close() error  { return nil }

type testApp struct {
	*App
	root   string
	out    *bytes.Buffer
	errOut *bytes.Buffer
}

func newTestApp(t *testing.T, reply ...string) *testApp {
	t.Helper()
	root := t.TempDir()
	fs, err := files.NewLocal(root, nil)
	require.NoError(t, err)

	ws := workspace.NewStore(fs, storage.NewMemoryStore(), nil)
	require.NoError(t, ws.Load(ctx))

	registry := cloud.NewRegistry(&replyTransport{deltas: reply})
	set := settings.New(nil, registry, nil)
	set.Override(cloud.Credentials{Provider: cloud.ProviderGroq, APIKey: "gsk_0123456789abcdef"})

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	app := &App{
		Config:    config.Default(),
		Session:   session.New(registry, set, ws, nil),
		Workspace: ws,
		Settings:  set,
		Files:     fs,
		Out:       out,
		Err:       errOut,
		Renderer:  PlainRenderer(),
	}
	return &testApp{App: app, root: root, out: out, errOut: errOut}
}

func (a *testApp) write(t *testing.T, rel, content string) string {
	t.Helper()
	path := filepath.Join(a.root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func (a *testApp) slash(t *testing.T, line string) error {
	t.Helper()
	quit, err := a.HandleSlash(ctx, line)
	assert.False(t, quit, line)
	return err
}

// =============================================================================
// SLASH COMMAND TESTS (slash.go)
// =============================================================================

func TestSlash_OpenAndList(t *testing.T) {
	app := newTestApp(t)
	path := app.write(t, "main.go", "package main\n")

	require.NoError(t, app.slash(t, "/open main.go"))
	assert.Contains(t, app.out.String(), "Opened main.go")

	active, ok := app.Workspace.GetState().Active()
	require.True(t, ok)
	assert.Equal(t, path, active.ID)

	app.out.Reset()
	require.NoError(t, app.slash(t, "/panes"))
	lines := strings.Split(strings.TrimSpace(app.out.String()), "\n")
	require.Len(t, lines, 2, "welcome pane and main.go")
	assert.Contains(t, lines[1], "●")
	assert.Contains(t, lines[1], "main.go")
	assert.NotContains(t, lines[0], "●")
}

func TestSlash_OpenMissingShowsPlaceholder(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, app.slash(t, "/open src/nope.ts"))
	assert.Contains(t, app.out.String(), "// File not found: src/nope.ts")
	assert.NotContains(t, app.out.String(), "Opened")
}

func TestSlash_SwitchShowClose(t *testing.T) {
	app := newTestApp(t)
	app.write(t, "a.txt", "alpha\n")
	app.write(t, "b.txt", "beta\n")
	require.NoError(t, app.slash(t, "/open a.txt"))
	require.NoError(t, app.slash(t, "/open b.txt"))

	require.NoError(t, app.slash(t, "/switch 2"))
	active, _ := app.Workspace.GetState().Active()
	assert.Equal(t, "a.txt", active.Name)

	app.out.Reset()
	require.NoError(t, app.slash(t, "/show"))
	assert.Contains(t, app.out.String(), "1 alpha")

	require.NoError(t, app.slash(t, "/close"))
	st := app.Workspace.GetState()
	assert.Len(t, st.Panes, 2)
	active, _ = st.Active()
	assert.Equal(t, workspace.WelcomeID, active.ID, "closing moves to the left neighbour")

	err := app.slash(t, "/switch 9")
	assert.ErrorIs(t, err, workspace.ErrPaneNotFound)
}

func TestSlash_NewAppendSaveAs(t *testing.T) {
	app := newTestApp(t)

	require.NoError(t, app.slash(t, "/new markdown"))
	assert.Contains(t, app.out.String(), "Created Untitled-1.md")

	require.NoError(t, app.slash(t, "/append # Notes"))
	require.NoError(t, app.slash(t, "/append first line"))

	err := app.slash(t, "/save")
	var usage *UsageError
	require.ErrorAs(t, err, &usage)
	assert.Contains(t, usage.Example, "/saveas")

	err = app.slash(t, "/close")
	require.ErrorAs(t, err, &usage, "unsaved panes need --force")

	require.NoError(t, app.slash(t, "/saveas notes.md"))
	data, err := os.ReadFile(filepath.Join(app.root, "notes.md"))
	require.NoError(t, err)
	assert.Equal(t, "# Notes\nfirst line\n", string(data))

	active, _ := app.Workspace.GetState().Active()
	assert.False(t, active.Unsaved)
	assert.Equal(t, "notes.md", active.Name)
}

func TestSlash_CloseForce(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, app.slash(t, "/new"))
	require.NoError(t, app.slash(t, "/append draft"))
	require.NoError(t, app.slash(t, "/close --force"))
	assert.Len(t, app.Workspace.GetState().Panes, 1)
}

func TestSlash_Errors(t *testing.T) {
	app := newTestApp(t)

	var usage *UsageError
	assert.ErrorAs(t, app.slash(t, "/deploy"), &usage)
	assert.ErrorAs(t, app.slash(t, "/open"), &usage)
	assert.ErrorAs(t, app.slash(t, "/new image"), &usage)

	quit, err := app.HandleSlash(ctx, "/q")
	assert.NoError(t, err)
	assert.True(t, quit)
}

func TestSlash_Help(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, app.slash(t, "/help"))
	for _, cmd := range slashCommands {
		assert.Contains(t, app.out.String(), "/"+cmd.name)
	}
}

func TestCompleteSlash(t *testing.T) {
	assert.Equal(t, []string{"/switch", "/show", "/save", "/saveas", "/settings"}, completeSlash("/s"))
	assert.Nil(t, completeSlash("open"))
	assert.Nil(t, completeSlash("/open x"))
}

func TestResolvePaneRef(t *testing.T) {
	st := workspace.State{
		Panes: []workspace.Pane{
			{ID: workspace.WelcomeID, Name: "Welcome"},
			{ID: "/ws/src/app.tsx", Name: "app.tsx"},
		},
		ActivePaneID: "/ws/src/app.tsx",
	}
	tests := []struct {
		ref    string
		wantID string
		wantNF bool
	}{
		{ref: "", wantID: "/ws/src/app.tsx"},
		{ref: "1", wantID: workspace.WelcomeID},
		{ref: workspace.WelcomeID, wantID: workspace.WelcomeID},
		{ref: "app.tsx", wantID: "/ws/src/app.tsx"},
		{ref: "src/app.tsx", wantID: "/ws/src/app.tsx"},
		{ref: "3", wantNF: true},
		{ref: "other.go", wantNF: true},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			p, err := resolvePaneRef(st, tt.ref)
			if tt.wantNF {
				assert.ErrorIs(t, err, workspace.ErrPaneNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, p.ID)
		})
	}

	_, err := resolvePaneRef(workspace.State{}, "")
	assert.Error(t, err)
}

// =============================================================================
// CHAT TESTS (chat.go, commands.go)
// =============================================================================

func TestStreamPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := newStreamPrinter(&buf, PlainRenderer())

	p.MessageAdded(model.NewUserMessage("hi"))
	assert.Empty(t, buf.String(), "user messages are echoed by the prompt")

	streamed := model.NewAssistantMessage()
	p.MessageAdded(streamed)
	p.DeltaReceived(streamed.ID, "Hello")
	p.DeltaReceived(streamed.ID, " there")
	streamed.Content = "Hello there"
	p.MessageFinalized(streamed)
	assert.Equal(t, "Agent Hello there\n", buf.String())

	buf.Reset()
	silent := model.NewAssistantMessage()
	p.MessageAdded(silent)
	silent.Content = "Error: no reply"
	p.MessageFinalized(silent)
	assert.Equal(t, "Agent Error: no reply\n", buf.String())
}

func TestStreamPrinter_StyledRenderer(t *testing.T) {
	var buf bytes.Buffer
	p := newStreamPrinter(&buf, &Renderer{Width: DefaultTerminalWidth})

	msg := model.NewAssistantMessage()
	p.MessageAdded(msg)
	p.DeltaReceived(msg.ID, "styled")
	msg.Content = "styled"
	p.MessageFinalized(msg)

	out := buf.String()
	assert.Contains(t, out, "Agent")
	assert.Contains(t, out, "styled")

	r := &Renderer{}
	assert.Contains(t, r.style("dim", DimStyle.Render), "dim")
	assert.Equal(t, "dim", PlainRenderer().style("dim", DimStyle.Render))
}

func TestRunAsk_OpensFile(t *testing.T) {
	app := newTestApp(t, "Opening it now. ", "[ACTION:OPEN_FILE:src/app.tsx]")
	path := app.write(t, "src/app.tsx", "export default App\n")

	require.NoError(t, app.Run(ctx, CmdAsk, Args{Query: "open the app"}))

	assert.Contains(t, app.out.String(), "Agent Opening it now.")
	assert.Contains(t, app.errOut.String(), "Opened app.tsx")

	active, ok := app.Workspace.GetState().Active()
	require.True(t, ok)
	assert.Equal(t, path, active.ID)

	msgs := app.Session.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Opening it now.", msgs[1].Content)
}

func TestRunAsk_RequiresQuestion(t *testing.T) {
	app := newTestApp(t, "unused")
	err := app.Run(ctx, CmdAsk, Args{Query: "  "})
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestRunAsk_NotConfigured(t *testing.T) {
	app := newTestApp(t, "unused")
	app.Settings.Override(cloud.Credentials{})
	require.NoError(t, app.Settings.Clear(ctx))

	err := app.Run(ctx, CmdAsk, Args{Query: "hello"})
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, GetExitCode(err))
}

// =============================================================================
// COMMAND TESTS (commands.go)
// =============================================================================

func TestRunOpen_PrintsPane(t *testing.T) {
	app := newTestApp(t)
	app.write(t, "main.go", "package main\n\nfunc main() {}\n")

	require.NoError(t, app.Run(ctx, CmdOpen, Args{Query: "main.go"}))
	out := app.out.String()
	assert.Contains(t, out, "main.go code")
	assert.Contains(t, out, "1 package main")
	assert.Contains(t, out, "3 func main() {}")
}

func TestRunOpen_JSON(t *testing.T) {
	app := newTestApp(t)
	app.write(t, "notes.md", "# Hi\n")

	require.NoError(t, app.Run(ctx, CmdOpen, Args{Query: "notes.md", JSON: true}))
	var pane workspace.Pane
	require.NoError(t, json.Unmarshal(app.out.Bytes(), &pane))
	assert.Equal(t, workspace.KindMarkdown, pane.Kind)
	assert.Equal(t, "# Hi\n", pane.Content)
}

func TestRunLs(t *testing.T) {
	app := newTestApp(t)
	app.write(t, "src/app.tsx", "x")
	app.write(t, "README.md", "x")

	require.NoError(t, app.Run(ctx, CmdLs, Args{}))
	out := app.out.String()
	assert.Contains(t, out, "  src/")
	assert.Contains(t, out, "  README.md")

	err := app.Run(ctx, CmdLs, Args{Query: "missing"})
	assert.Equal(t, ExitNotFoundError, GetExitCode(err))
}

func TestRunPanes_JSON(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, app.Run(ctx, CmdPanes, Args{JSON: true}))

	var snap workspace.Snapshot
	require.NoError(t, json.Unmarshal(app.out.Bytes(), &snap))
	require.Len(t, snap.Panes, 1)
	assert.Equal(t, workspace.WelcomeID, snap.Panes[0].ID)
}

func TestRunSettings(t *testing.T) {
	app := newTestApp(t)
	app.Settings.Override(cloud.Credentials{})

	require.NoError(t, app.Run(ctx, CmdSettings, Args{Rest: []string{"set", "--provider", "gemini", "--key", "AIza0123456789abc"}}))
	assert.Contains(t, app.out.String(), "Saved gemini key")
	assert.Equal(t, cloud.ProviderGemini, app.Settings.Saved().Provider)

	app.out.Reset()
	require.NoError(t, app.Run(ctx, CmdSettings, Args{}))
	assert.Contains(t, app.out.String(), "gemini")
	assert.NotContains(t, app.out.String(), "AIza0123456789abc")

	err := app.Run(ctx, CmdSettings, Args{Rest: []string{"set", "groq", "short"}})
	assert.Equal(t, ExitConfigError, GetExitCode(err))
	assert.Equal(t, cloud.ProviderGemini, app.Settings.Saved().Provider, "invalid keys are not saved")

	require.NoError(t, app.Run(ctx, CmdSettings, Args{Rest: []string{"clear"}}))
	assert.False(t, app.Settings.IsConfigured())
}

func TestRunConfig(t *testing.T) {
	app := newTestApp(t)
	app.ConfigPath = filepath.Join(t.TempDir(), "config.toml")

	require.NoError(t, app.Run(ctx, CmdConfig, Args{Rest: []string{"get", "provider"}}))
	assert.Equal(t, "groq\n", app.out.String())

	app.out.Reset()
	require.NoError(t, app.Run(ctx, CmdConfig, Args{Rest: []string{"keys"}}))
	assert.Equal(t, config.GetAllKeys(), strings.Split(strings.TrimSpace(app.out.String()), "\n"))

	require.NoError(t, app.Run(ctx, CmdConfig, Args{Rest: []string{"set", "workspace.debounce_ms", "500"}}))
	assert.Equal(t, 500, app.Config.Workspace.DebounceMs)
	saved, err := config.LoadFromPath(app.ConfigPath)
	require.NoError(t, err)
	assert.Equal(t, 500, saved.Workspace.DebounceMs)

	err = app.Run(ctx, CmdConfig, Args{Rest: []string{"set", "ui.theme", "neon"}})
	assert.Equal(t, ExitConfigError, GetExitCode(err))
	assert.Equal(t, "dark", app.Config.UI.Theme, "rejected values are not applied")

	err = app.Run(ctx, CmdConfig, Args{Rest: []string{"get", "nope"}})
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestRun_Unknown(t *testing.T) {
	app := newTestApp(t)
	err := app.Run(ctx, CmdUnknown, Args{Name: "deploy"})
	var usage *UsageError
	require.ErrorAs(t, err, &usage)
	assert.Contains(t, usage.Message, "deploy")
}
