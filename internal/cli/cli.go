// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command parsing and usage text for the studio CLI.
package cli

import (
	"fmt"
	"io"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdChat Command = iota
	CmdAsk
	CmdSettings
	CmdOpen
	CmdLs
	CmdPanes
	CmdConfig
	CmdVersion
	CmdHelp
	CmdUnknown
)

var commandNames = map[Command]string{
	CmdChat:     "chat",
	CmdAsk:      "ask",
	CmdSettings: "settings",
	CmdOpen:     "open",
	CmdLs:       "ls",
	CmdPanes:    "panes",
	CmdConfig:   "config",
	CmdVersion:  "version",
	CmdHelp:     "help",
	CmdUnknown:  "unknown",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "unknown"
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	JSON    bool
	NoWatch bool

	// Provider and Model override the configured backend for this run.
	Provider string
	Model    string

	// ConfigPath loads configuration from a specific file.
	ConfigPath string

	// Command-specific
	Query      string
	Subcommand string
	Name       string // command word as typed, for error messages

	// Rest holds the arguments after the command word, flags included.
	Rest []string
}

const usageText = `agentic-studio - a chat agent and file workspace for the terminal

Usage:
  studio                       Start interactive chat (default)
  studio chat                  Interactive chat with the workspace
  studio ask "question"        Ask a single question and print the reply
  studio settings [show]       Show the active provider and key
  studio settings set          Save provider and API key
    --provider gemini|groq
    --key KEY                  Prompted for when omitted on a terminal
    --test                     Test the connection before saving
  studio settings test         Test the saved connection
  studio settings clear        Forget the saved provider and key
  studio open <path>           Open a file in the workspace
  studio ls [dir]              List a directory
  studio panes                 List open panes
  studio config [show]         Show configuration
  studio config get <key>      Show one value (dot notation)
  studio config set <key> <v>  Change one value and save
  studio config keys           List configuration keys
  studio config path           Show the config file location
  studio version               Show version information
  studio help                  Show this help

Global flags:
  --provider NAME              Use gemini or groq for this run
  -m, --model NAME             Use a specific model for this run
  --config FILE                Load configuration from FILE
  --no-watch                   Do not refresh panes on file changes
  --json                       JSON output where supported
  -q, --quiet                  Minimal output
  -v, --verbose                Log to stderr at debug level

Environment:
  STUDIO_PROVIDER, STUDIO_API_KEY, STUDIO_GROQ_MODEL, STUDIO_GEMINI_MODEL,
  STUDIO_LOG_LEVEL, STUDIO_STORAGE, STUDIO_DATA_DIR

In chat, type /help for workspace commands.`

// PrintUsage writes the usage text.
func PrintUsage(w io.Writer) {
	fmt.Fprintln(w, usageText)
}

// PrintVersion writes version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "agentic-studio %s\n", Version)
	fmt.Fprintf(w, "  Commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Built:  %s\n", BuildDate)
	fmt.Fprintf(w, "  Go:     %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Parse parses command-line arguments, excluding the program name.
func Parse(argv []string) (Command, Args) {
	remaining, parsed := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdChat, parsed
	}

	// Flag-form words are case sensitive: -V is version, -v is verbose.
	cmd := remaining[0]
	if !strings.HasPrefix(cmd, "-") {
		cmd = strings.ToLower(cmd)
	}
	parsed.Name = remaining[0]
	rest := remaining[1:]
	parsed.Rest = rest

	sub := NewArgParser(rest)
	parsed.Subcommand = sub.Subcommand()

	switch cmd {
	case "chat":
		return CmdChat, parsed
	case "ask":
		parsed.Query = JoinPositionalArgs(sub, 0)
		return CmdAsk, parsed
	case "settings", "setting":
		return CmdSettings, parsed
	case "open":
		parsed.Query = JoinPositionalArgs(sub, 0)
		return CmdOpen, parsed
	case "ls", "list":
		parsed.Query = sub.Positional(0)
		return CmdLs, parsed
	case "panes":
		return CmdPanes, parsed
	case "config":
		return CmdConfig, parsed
	case "version", "--version", "-V":
		return CmdVersion, parsed
	case "help", "--help", "-h":
		return CmdHelp, parsed
	default:
		return CmdUnknown, parsed
	}
}

// parseGlobalFlags removes global flags that appear before the command word.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var args Args
	i := 0
	for i < len(argv) {
		arg := argv[i]
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			break
		}

		takeValue := func() (string, bool) {
			if hasValue {
				return value, true
			}
			if i+1 < len(argv) {
				i++
				return argv[i], true
			}
			return "", false
		}

		switch name {
		case "q", "quiet":
			args.Quiet = true
		case "v", "verbose":
			args.Verbose = true
		case "json":
			args.JSON = true
		case "no-watch":
			args.NoWatch = true
		case "provider":
			args.Provider, _ = takeValue()
		case "m", "model":
			args.Model, _ = takeValue()
		case "config":
			args.ConfigPath, _ = takeValue()
		default:
			// Not global; let the command see it.
			return argv[i:], args
		}
		i++
	}
	return argv[i:], args
}
