// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and saves studio configuration.
//
// TOML and JSON files are supported, with built-in defaults, environment
// variable overrides and validation. API keys are not part of Config; they
// live in the settings store, and STUDIO_API_KEY supplies a session-only
// override.
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (STUDIO_*)
//   - ~/.agentic-studio/config.toml
//   - ~/.agentic-studio/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if cfg == nil {
//	    log.Fatal(err)
//	}
//	timeout := cfg.IdleTimeout()
package config
