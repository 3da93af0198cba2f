// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for the
// studio.
//
// Configuration file locations (in order of precedence):
//   - ~/.agentic-studio/config.toml
//   - ~/.agentic-studio/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/agentic-studio/internal/cloud"
	"github.com/jeranaias/agentic-studio/internal/logging"
	"github.com/jeranaias/agentic-studio/internal/storage"
	"github.com/jeranaias/agentic-studio/internal/util"
)

// CurrentVersion is the configuration schema version written by Save.
const CurrentVersion = "1"

// Environment variables recognized by ApplyEnvOverrides and APIKeyFromEnv.
const (
	EnvProvider    = "STUDIO_PROVIDER"
	EnvAPIKey      = "STUDIO_API_KEY"
	EnvGroqModel   = "STUDIO_GROQ_MODEL"
	EnvGeminiModel = "STUDIO_GEMINI_MODEL"
	EnvLogLevel    = "STUDIO_LOG_LEVEL"
	EnvStorage     = "STUDIO_STORAGE"
	EnvDataDir     = "STUDIO_DATA_DIR"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete studio configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Provider is the default backend used when no credentials are saved.
	Provider string `toml:"provider" json:"provider"`

	Gemini    GeminiConfig    `toml:"gemini" json:"gemini"`
	Groq      GroqConfig      `toml:"groq" json:"groq"`
	Chat      ChatConfig      `toml:"chat" json:"chat"`
	Storage   StorageConfig   `toml:"storage" json:"storage"`
	Workspace WorkspaceConfig `toml:"workspace" json:"workspace"`
	Logging   LoggingConfig   `toml:"logging" json:"logging"`
	UI        UIConfig        `toml:"ui" json:"ui"`
}

// GeminiConfig configures the Gemini transport.
type GeminiConfig struct {
	Model string `toml:"model" json:"model"`

	// BaseURL overrides the SDK endpoint. Empty uses the SDK default.
	BaseURL string `toml:"base_url" json:"base_url"`
}

// GroqConfig configures the Groq transport.
type GroqConfig struct {
	Endpoint          string `toml:"endpoint" json:"endpoint"`
	Model             string `toml:"model" json:"model"`
	RequestsPerMinute int    `toml:"requests_per_minute" json:"requests_per_minute"`
}

// ChatConfig holds chat session settings.
type ChatConfig struct {
	// IdleTimeoutSecs aborts a stream that sends nothing for this long.
	// Zero disables the watchdog.
	IdleTimeoutSecs int `toml:"idle_timeout_secs" json:"idle_timeout_secs"`
}

// StorageConfig selects where settings and the workspace snapshot live.
type StorageConfig struct {
	// Backend is "file" or "sqlite".
	Backend string `toml:"backend" json:"backend"`

	// Dir is the data directory. Empty means the config directory.
	Dir string `toml:"dir" json:"dir"`
}

// WorkspaceConfig holds pane store settings.
type WorkspaceConfig struct {
	// Root resolves relative paths. Empty means the working directory.
	Root string `toml:"root" json:"root"`

	// Watch refreshes open panes when their files change on disk.
	Watch      bool `toml:"watch" json:"watch"`
	DebounceMs int  `toml:"debounce_ms" json:"debounce_ms"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level string `toml:"level" json:"level"`

	// File receives log output. "stderr" is accepted; empty disables logging.
	File string `toml:"file" json:"file"`
}

// UIConfig holds terminal presentation settings.
type UIConfig struct {
	// Theme is "dark", "light" or "auto".
	Theme string `toml:"theme" json:"theme"`

	// RenderMarkdown renders finished replies and markdown panes with glamour.
	RenderMarkdown bool `toml:"render_markdown" json:"render_markdown"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version:  CurrentVersion,
		Provider: string(cloud.ProviderGroq),
		Gemini: GeminiConfig{
			Model: cloud.DefaultGeminiModel,
		},
		Groq: GroqConfig{
			Endpoint:          cloud.DefaultGroqEndpoint,
			Model:             cloud.DefaultGroqModel,
			RequestsPerMinute: cloud.DefaultRequestsPerMinute,
		},
		Chat: ChatConfig{
			IdleTimeoutSecs: 60,
		},
		Storage: StorageConfig{
			Backend: storage.BackendFile,
		},
		Workspace: WorkspaceConfig{
			Watch:      true,
			DebounceMs: 300,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		UI: UIConfig{
			Theme:          "dark",
			RenderMarkdown: true,
		},
	}
}

// IdleTimeout returns the stream idle timeout.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Chat.IdleTimeoutSecs) * time.Second
}

// Debounce returns the file watcher debounce interval.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Workspace.DebounceMs) * time.Millisecond
}

// DataDir returns the storage directory, defaulting to the config directory.
func (c *Config) DataDir() (string, error) {
	if c.Storage.Dir != "" {
		return expandHome(c.Storage.Dir)
	}
	return ConfigDir()
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the studio configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".agentic-studio"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// ensureSecurePermissions checks and fixes permissions on config files.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
//
// A file that fails to parse is reported alongside the default config so
// the caller can warn and continue.
func Load() (*Config, error) {
	tomlPath, err := ConfigPathTOML()
	if err != nil {
		return finish(Default(), err)
	}
	if _, statErr := os.Stat(tomlPath); statErr == nil {
		cfg := Default()
		if err := LoadTOML(cfg, tomlPath); err != nil {
			return finish(Default(), fmt.Errorf("failed to load TOML config: %w", err))
		}
		return finish(cfg, nil)
	}

	jsonPath, err := ConfigPathJSON()
	if err != nil {
		return finish(Default(), err)
	}
	if _, statErr := os.Stat(jsonPath); statErr == nil {
		cfg := Default()
		if err := LoadJSON(cfg, jsonPath); err != nil {
			return finish(Default(), fmt.Errorf("failed to load JSON config: %w", err))
		}
		return finish(cfg, nil)
	}

	return finish(Default(), nil)
}

// finish applies env overrides, migration, defaults and validation. A
// validation failure replaces loadErr; the returned config is nil then.
func finish(cfg *Config, loadErr error) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.Migrate()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, loadErr
}

// LoadTOML decodes a TOML file into cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		fmt.Fprintf(os.Stderr, "Warning: unknown config keys in %s: %s\n", path, strings.Join(keys, ", "))
	}
	return nil
}

// LoadJSON decodes a JSON file into cfg.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finish(cfg, nil)
}

// Migrate upgrades older configurations to CurrentVersion.
func (c *Config) Migrate() {
	if c.Version == "" || c.Version == "0" {
		c.Version = CurrentVersion
	}
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
}

// SetDefaults fills empty fields with defaults.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Provider == "" {
		c.Provider = defaults.Provider
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = defaults.Gemini.Model
	}
	if c.Groq.Endpoint == "" {
		c.Groq.Endpoint = defaults.Groq.Endpoint
	}
	if c.Groq.Model == "" {
		c.Groq.Model = defaults.Groq.Model
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaults.Storage.Backend
	}
	if c.Workspace.DebounceMs == 0 {
		c.Workspace.DebounceMs = defaults.Workspace.DebounceMs
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg to path with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf strings.Builder
	buf.WriteString("# Agentic Studio configuration file\n")
	buf.WriteString("# API keys are not stored here; use the settings command.\n")
	buf.WriteString("\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, []byte(buf.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON writes cfg to path as indented JSON with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors as
// ValidateErrors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if _, err := cloud.ParseProvider(c.Provider); err != nil {
		errs = append(errs, ValidationError{
			Field:   "provider",
			Message: fmt.Sprintf("unknown provider '%s', must be one of: gemini, groq", c.Provider),
		})
	}

	if c.Gemini.BaseURL != "" {
		if err := validateURL(c.Gemini.BaseURL); err != nil {
			errs = append(errs, ValidationError{Field: "gemini.base_url", Message: err.Error()})
		}
	}
	if err := validateURL(c.Groq.Endpoint); err != nil {
		errs = append(errs, ValidationError{Field: "groq.endpoint", Message: err.Error()})
	}
	if c.Groq.RequestsPerMinute < 0 {
		errs = append(errs, ValidationError{
			Field:   "groq.requests_per_minute",
			Message: "must be zero (unlimited) or positive",
		})
	}

	if c.Chat.IdleTimeoutSecs < 0 || c.Chat.IdleTimeoutSecs > 3600 {
		errs = append(errs, ValidationError{
			Field:   "chat.idle_timeout_secs",
			Message: fmt.Sprintf("must be between 0 and 3600, got %d", c.Chat.IdleTimeoutSecs),
		})
	}

	switch c.Storage.Backend {
	case storage.BackendFile, storage.BackendSQLite:
	default:
		errs = append(errs, ValidationError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("invalid backend '%s', must be one of: file, sqlite", c.Storage.Backend),
		})
	}

	if c.Workspace.DebounceMs < 10 || c.Workspace.DebounceMs > 60000 {
		errs = append(errs, ValidationError{
			Field:   "workspace.debounce_ms",
			Message: fmt.Sprintf("must be between 10 and 60000, got %d", c.Workspace.DebounceMs),
		})
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, ValidationError{Field: "logging.level", Message: err.Error()})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL must use http or https, got %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host: %q", raw)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - STUDIO_PROVIDER: overrides provider
//   - STUDIO_GROQ_MODEL: overrides groq.model
//   - STUDIO_GEMINI_MODEL: overrides gemini.model
//   - STUDIO_LOG_LEVEL: overrides logging.level
//   - STUDIO_STORAGE: overrides storage.backend
//   - STUDIO_DATA_DIR: overrides storage.dir
//
// STUDIO_API_KEY is read separately by APIKeyFromEnv.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv(EnvProvider); v != "" {
		c.Provider = v
	}
	if v := os.Getenv(EnvGroqModel); v != "" {
		c.Groq.Model = v
	}
	if v := os.Getenv(EnvGeminiModel); v != "" {
		c.Gemini.Model = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
		if c.Logging.File == "" {
			c.Logging.File = "stderr"
		}
	}
	if v := os.Getenv(EnvStorage); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		c.Storage.Dir = v
	}
}

// APIKeyFromEnv returns credentials from STUDIO_API_KEY for the configured
// provider. ok is false when the variable is unset.
func (c *Config) APIKeyFromEnv() (creds cloud.Credentials, ok bool) {
	key := strings.TrimSpace(os.Getenv(EnvAPIKey))
	if key == "" {
		return cloud.Credentials{}, false
	}
	return cloud.Credentials{Provider: cloud.ProviderID(c.Provider), APIKey: key}, true
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "groq.model").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "groq.model").
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("field '%s' is a section, not a value", key)
			}
			return field, nil
		}

		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}

	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Bool:
			lower := strings.ToLower(strVal)
			field.SetBool(lower == "1" || lower == "true" || lower == "yes")
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"provider",
		"gemini.model",
		"gemini.base_url",
		"groq.endpoint",
		"groq.model",
		"groq.requests_per_minute",
		"chat.idle_timeout_secs",
		"storage.backend",
		"storage.dir",
		"workspace.root",
		"workspace.watch",
		"workspace.debounce_ms",
		"logging.level",
		"logging.file",
		"ui.theme",
		"ui.render_markdown",
	}
}

// String returns the configuration as indented JSON.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
