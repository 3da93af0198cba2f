// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// commands.go - Non-interactive command handlers.

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jeranaias/agentic-studio/internal/cloud"
	"github.com/jeranaias/agentic-studio/internal/config"
	"github.com/jeranaias/agentic-studio/internal/workspace"
)

// =============================================================================
// ASK
// =============================================================================

// RunAsk submits one message and prints the reply.
//
//	studio ask "Open the main app component for me"
func (a *App) RunAsk(ctx context.Context, args Args) error {
	if strings.TrimSpace(args.Query) == "" {
		return ErrMissingArgument("question", `studio ask "question"`)
	}

	a.Session.Attach(newStreamPrinter(a.out(), a.renderer()))
	defer a.Session.Detach()

	result, err := a.Session.Submit(ctx, args.Query)
	if result != nil && result.Opened != nil && !args.Quiet {
		fmt.Fprintln(a.errOut(), a.renderer().style("Opened "+result.Opened.Name, ActionStyle.Render))
	}
	return err
}

// =============================================================================
// SETTINGS
// =============================================================================

// RunSettings handles "settings [show|set|test|clear]".
func (a *App) RunSettings(ctx context.Context, args Args) error {
	if args.JSON && (args.Subcommand == "" || args.Subcommand == "show") {
		creds := a.Settings.Credentials()
		return writeJSON(a, map[string]interface{}{
			"provider":   creds.Provider,
			"api_key":    creds.Masked(),
			"configured": creds.IsConfigured(),
		})
	}
	return a.settingsCommand(ctx, NewArgParser(args.Rest, "test"))
}

func (a *App) settingsCommand(ctx context.Context, p *ArgParser) error {
	switch p.Subcommand() {
	case "", "show":
		a.showSettings()
		return nil

	case "set":
		return a.setSettings(ctx, p)

	case "test":
		creds := a.Settings.Credentials()
		return a.reportTest(ctx, creds)

	case "clear":
		if err := a.Settings.Clear(ctx); err != nil {
			return &CommandError{Command: "settings", Action: "clear", Reason: "could not remove saved settings", Err: err}
		}
		fmt.Fprintln(a.out(), "Saved provider and key removed")
		return nil

	default:
		return &UsageError{Message: "unknown settings command " + p.Subcommand(), Example: "settings [show|set|test|clear]"}
	}
}

func (a *App) showSettings() {
	r := a.renderer()
	creds := a.Settings.Credentials()
	saved := a.Settings.Saved()

	provider := string(creds.Provider)
	if provider == "" {
		provider = "(none)"
	}
	key := creds.Masked()
	if key == "" {
		key = "(none)"
	}
	fmt.Fprintln(a.out(), RenderField("Provider", provider))
	fmt.Fprintln(a.out(), RenderField("API key", key))
	if creds != saved {
		fmt.Fprintln(a.out(), r.style("Values from "+config.EnvProvider+"/"+config.EnvAPIKey+" apply to this run only.", DimStyle.Render))
	}
	status := "ok"
	if !creds.IsConfigured() {
		status = "warn"
	}
	fmt.Fprintln(a.out(), RenderLabel("Status")+RenderStatus(status))
}

func (a *App) setSettings(ctx context.Context, p *ArgParser) error {
	current := a.Settings.Saved()

	providerName := p.FlagOrDefault("provider", p.Positional(1))
	if providerName == "" {
		providerName = string(current.Provider)
	}
	if providerName == "" {
		providerName = a.Config.Provider
	}
	provider, err := cloud.ParseProvider(providerName)
	if err != nil {
		return &UsageError{Message: err.Error(), Example: "settings set --provider gemini|groq --key KEY"}
	}

	key := p.FlagOrDefault("key", p.Positional(2))
	if key == "" {
		key, err = readSecret(a.out(), fmt.Sprintf("%s API key: ", provider), "read the API key")
		if err != nil {
			return err
		}
	}
	creds := cloud.Credentials{Provider: provider, APIKey: key}

	if p.BoolFlag("test") {
		if err := a.reportTest(ctx, creds); err != nil {
			return err
		}
	} else if err := creds.Validate(); err != nil {
		return err
	}

	if err := a.Settings.Save(ctx, creds); err != nil {
		return &CommandError{Command: "settings", Action: "set", Reason: "could not save settings", Err: err}
	}
	fmt.Fprintln(a.out(), a.renderer().style(fmt.Sprintf("Saved %s key %s", creds.Provider, creds.Masked()), SuccessStyle.Render))
	return nil
}

// reportTest prints the connection test result and returns an error when
// it failed.
func (a *App) reportTest(ctx context.Context, creds cloud.Credentials) error {
	result := a.Settings.TestConnection(ctx, creds)
	if result.OK {
		fmt.Fprintln(a.out(), RenderStatus("ok")+" "+result.Message)
		return nil
	}
	fmt.Fprintln(a.out(), RenderStatus("fail")+" "+result.Message)
	return &CommandError{Command: "settings", Action: "test", Reason: result.Message}
}

// =============================================================================
// WORKSPACE
// =============================================================================

// RunOpen opens a path in the persisted workspace and prints it.
func (a *App) RunOpen(ctx context.Context, args Args) error {
	if args.Query == "" {
		return ErrMissingArgument("path", "studio open <path>")
	}
	pane, err := a.Workspace.OpenPath(ctx, args.Query)
	if err != nil {
		return err
	}
	if args.JSON {
		return writeJSON(a, pane)
	}
	if pane.IsPlaceholder() {
		a.reportOpened(pane)
		return nil
	}
	a.renderer().WritePane(a.out(), pane)
	return nil
}

// RunLs lists a directory.
func (a *App) RunLs(ctx context.Context, args Args) error {
	if args.JSON {
		dir := args.Query
		if dir == "" {
			dir = "."
		}
		entries, err := a.Files.ReadDirectory(ctx, dir)
		if err != nil {
			return err
		}
		return writeJSON(a, entries)
	}
	return a.listDirectory(ctx, args.Query)
}

func (a *App) listDirectory(ctx context.Context, dir string) error {
	if dir == "" {
		dir = "."
	}
	resolved, err := a.Files.Resolve(dir)
	if err != nil {
		return err
	}
	entries, err := a.Files.ReadDirectory(ctx, resolved)
	if err != nil {
		return err
	}
	a.renderer().WriteEntries(a.out(), resolved, entries)
	return nil
}

// RunPanes lists the persisted workspace.
func (a *App) RunPanes(_ context.Context, args Args) error {
	st := a.Workspace.GetState()
	if args.JSON {
		return writeJSON(a, workspace.NewSnapshot(st))
	}
	a.renderer().WritePaneList(a.out(), st)
	return nil
}

// =============================================================================
// CONFIG
// =============================================================================

// RunConfig handles "config [show|get|set|keys|path]".
func (a *App) RunConfig(_ context.Context, args Args) error {
	p := NewArgParser(args.Rest)
	switch p.Subcommand() {
	case "", "show":
		if args.JSON {
			return writeJSON(a, a.Config)
		}
		for _, key := range config.GetAllKeys() {
			v, _ := a.Config.Get(key)
			fmt.Fprintf(a.out(), "%-26s %s\n", a.renderer().style(key, DimStyle.Render), fmt.Sprint(v))
		}
		return nil

	case "get":
		key := p.Positional(1)
		if key == "" {
			return ErrMissingArgument("key", "config get <key>")
		}
		v, err := a.Config.Get(key)
		if err != nil {
			return &UsageError{Message: err.Error(), Example: "config keys"}
		}
		fmt.Fprintln(a.out(), v)
		return nil

	case "set":
		key, value := p.Positional(1), JoinPositionalArgs(p, 2)
		if key == "" || p.PositionalCount() < 3 {
			return ErrMissingArgument("key and value", "config set <key> <value>")
		}
		updated := *a.Config
		if err := updated.Set(key, value); err != nil {
			return &UsageError{Message: err.Error(), Example: "config keys"}
		}
		if err := updated.Validate(); err != nil {
			return err
		}
		if err := a.saveConfig(&updated); err != nil {
			return &CommandError{Command: "config", Action: "set", Reason: "could not write config", Err: err}
		}
		*a.Config = updated
		fmt.Fprintf(a.out(), "%s = %s\n", key, value)
		return nil

	case "keys":
		for _, key := range config.GetAllKeys() {
			fmt.Fprintln(a.out(), key)
		}
		return nil

	case "path":
		path, err := a.configPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out(), path)
		return nil

	default:
		return &UsageError{Message: "unknown config command " + p.Subcommand(), Example: "config [show|get|set|keys|path]"}
	}
}

func (a *App) configPath() (string, error) {
	if a.ConfigPath != "" {
		return a.ConfigPath, nil
	}
	return config.ConfigPathTOML()
}

func (a *App) saveConfig(cfg *config.Config) error {
	path, err := a.configPath()
	if err != nil {
		return err
	}
	if strings.HasSuffix(path, ".json") {
		return config.SaveJSON(cfg, path)
	}
	return config.SaveTOML(cfg, path)
}

func writeJSON(a *App, v interface{}) error {
	enc := json.NewEncoder(a.out())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
