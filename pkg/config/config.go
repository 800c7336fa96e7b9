// Package config stores msq2midi defaults in a JSON file under the user's config directory
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/james-see/msq2midi/pkg/converter"
)

// Config is the main configuration structure
type Config struct {
	Filter     converter.Filter `json:"filter"`
	Timebase   int              `json:"timebase"`
	Track      int              `json:"track"`
	Truncate   bool             `json:"truncate"`
	Name       string           `json:"name,omitempty"`
	ServerPort string           `json:"serverPort"`
	DebugLog   string           `json:"debugLog,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Timebase:   converter.Timebase,
		ServerPort: "8080",
	}
}

// dirOverride is set by tests
var dirOverride string

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	if dirOverride != "" {
		return dirOverride, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "msq2midi"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found.
// Missing fields keep their default values.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Timebase = int(converter.NormalizeTimebase(cfg.Timebase))

	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Exists reports whether a config file has been written
func Exists() bool {
	path, err := ConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}
