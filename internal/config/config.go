// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/lumenlabs/lumen-tui/internal/model"
	"github.com/lumenlabs/lumen-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete lumen configuration.
type Config struct {
	// DefaultModel is used when the backend's model list is unavailable or
	// the selected model disappears from it.
	DefaultModel string `toml:"default_model"`

	Backend    BackendConfig    `toml:"backend"`
	Generation GenerationConfig `toml:"generation"`
	Storage    StorageConfig    `toml:"storage"`
	UI         UIConfig         `toml:"ui"`
	Logging    LoggingConfig    `toml:"logging"`
}

// BackendConfig points at the completion backend.
type BackendConfig struct {
	// BaseURL is the backend root (e.g. https://api.lumenlabs.dev).
	BaseURL string `toml:"base_url"`
	// APIKey is the bearer token for the backend.
	APIKey string `toml:"api_key"`
}

// GenerationConfig carries default sampling parameters for new
// conversations.
type GenerationConfig struct {
	Temperature  float64 `toml:"temperature"`
	TopP         float64 `toml:"top_p"`
	SystemPrompt string  `toml:"system_prompt"`
}

// StorageConfig configures local persistence.
type StorageConfig struct {
	// DatabasePath is the SQLite database location (empty = default).
	DatabasePath string `toml:"database_path"`
}

// UIConfig configures the terminal interface.
type UIConfig struct {
	// Theme is "dark" or "light".
	Theme string `toml:"theme"`
	// Markdown enables rendered markdown for assistant messages.
	Markdown bool `toml:"markdown"`
}

// LoggingConfig configures the debug log file.
type LoggingConfig struct {
	// Path is the log file location (empty = ~/.lumen/lumen.log).
	Path string `toml:"path"`
	// Debug enables verbose logging.
	Debug bool `toml:"debug"`
}

// =============================================================================
// DEFAULTS & VALIDATION
// =============================================================================

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		DefaultModel: "lumen-mini",
		Backend: BackendConfig{
			BaseURL: "http://127.0.0.1:8080",
		},
		Generation: GenerationConfig{
			Temperature: 0.7,
			TopP:        1.0,
		},
		UI: UIConfig{
			Theme:    "dark",
			Markdown: true,
		},
	}
}

// Validate checks the configuration for out-of-range values.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url must not be empty")
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		return fmt.Errorf("generation.temperature %g out of range [0, 2]", c.Generation.Temperature)
	}
	if c.Generation.TopP < 0 || c.Generation.TopP > 1 {
		return fmt.Errorf("generation.top_p %g out of range [0, 1]", c.Generation.TopP)
	}
	if c.UI.Theme != "dark" && c.UI.Theme != "light" {
		return fmt.Errorf("ui.theme must be %q or %q", "dark", "light")
	}
	return nil
}

// Settings converts configuration defaults into conversation settings.
func (c *Config) Settings() model.Settings {
	s := model.DefaultSettings()
	s.Model = c.DefaultModel
	s.Temperature = c.Generation.Temperature
	s.TopP = c.Generation.TopP
	s.SystemPrompt = c.Generation.SystemPrompt
	return s
}

// =============================================================================
// LOADING & SAVING
// =============================================================================

// Dir returns the lumen configuration directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lumen"
	}
	return filepath.Join(home, ".lumen")
}

// Path returns the default configuration file location.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// Load reads configuration from the default path, falling back to
// defaults when no file exists. Environment overrides apply last.
func Load() (*Config, error) {
	cfg, err := LoadFromPath(Path())
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath reads configuration from an explicit path. A missing file
// is not an error; defaults are returned.
func LoadFromPath(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to the default path atomically.
func Save(cfg *Config) error {
	return SaveToPath(cfg, Path())
}

// SaveToPath writes the configuration to an explicit path atomically.
func SaveToPath(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	// 0600: the file can hold an API key.
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ApplyEnvOverrides applies LUMEN_* environment variables on top of the
// loaded configuration.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("LUMEN_BASE_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("LUMEN_API_KEY"); v != "" {
		c.Backend.APIKey = v
	}
	if v := os.Getenv("LUMEN_MODEL"); v != "" {
		c.DefaultModel = v
	}
}
