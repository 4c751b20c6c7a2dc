// Package config loads and saves the CLI's document-ingestion settings —
// the EOL policy handed to piecetable's Builder.Create, plus logging — in
// the teacher's hand-rolled TOML dialect (see toml/toml.go).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Bistard/piece-table/toml"
)

const fileName = ".panka.toml"

// Config holds the document ingestion options forwarded to
// piecetable.Builder.Create, plus whether to log.
type Config struct {
	EnableLogger bool

	NormalizeEOL bool
	DefaultEOL   string
	ForceEOL     bool
}

// DefaultConfig returns the settings used when no config file exists.
func DefaultConfig() Config {
	return Config{
		EnableLogger: false,
		NormalizeEOL: false,
		DefaultEOL:   "\n",
		ForceEOL:     false,
	}
}

// LoadConfig reads the config file from the user's home directory,
// falling back to DefaultConfig if it is absent or fails to parse.
func LoadConfig() Config {
	cfg := DefaultConfig()
	path, err := configPath()
	if err != nil {
		return cfg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	values, err := toml.ParseNative(string(data))
	if err != nil {
		return cfg
	}
	applyValues(&cfg, values)
	return cfg
}

func applyValues(cfg *Config, values map[string]any) {
	if v, ok := values["enable_logger"].(bool); ok {
		cfg.EnableLogger = v
	}
	if v, ok := values["normalize_eol"].(bool); ok {
		cfg.NormalizeEOL = v
	}
	if v, ok := values["default_eol"].(string); ok {
		cfg.DefaultEOL = v
	}
	if v, ok := values["force_eol"].(bool); ok {
		cfg.ForceEOL = v
	}
}

// SaveConfig writes cfg to the user's config file. toml.go only parses
// TOML, so the write side is a direct emission of this package's own
// flat key set rather than a generic encoder.
func SaveConfig(cfg Config) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	body := fmt.Sprintf(
		"enable_logger = %t\nnormalize_eol = %t\ndefault_eol = %q\nforce_eol = %t\n",
		cfg.EnableLogger, cfg.NormalizeEOL, cfg.DefaultEOL, cfg.ForceEOL,
	)
	return os.WriteFile(path, []byte(body), 0644)
}

func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, fileName), nil
}
