// Package config implements host configuration parsing for the plugin
// subsystem: the data directory plugins are installed under, the
// platform's ABI tag, logging, and metrics toggles.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the plugin subsystem's own slice of the host's configuration
// file.
type Config struct {
	// DataDir is the root the host stores per-user data under; plugins
	// install to DataDir/plugins/<name>.
	DataDir string `yaml:"data_dir"`

	// ABITag selects which per-platform shared library a .jpl package
	// extracts, e.g. "x86_64-linux-gnu", "arm64-v8a".
	ABITag string `yaml:"abi_tag"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// MetricsAddr, if non-empty, is the address the read-only status
	// HTTP endpoints are served on. No Prometheus /metrics endpoint is
	// served there.
	MetricsAddr string `yaml:"metrics_addr"`

	// WatchPluginsDir enables the fsnotify watch of the plugins
	// directory (see manager.Watch): shared libraries created directly
	// in it are loaded; subdirectories are not watched.
	WatchPluginsDir bool `yaml:"watch_plugins_dir"`
}

// Default returns a Config with every field set to its default value.
func Default() Config {
	return Config{
		DataDir:   defaultDataDir(),
		ABITag:    defaultABITag(),
		LogLevel:  "info",
		LogFormat: "json",
	}
}

// Parse parses raw YAML bytes into a Config, injecting defaults for any
// field left unset.
func Parse(raw []byte) (Config, error) {
	c := Default()
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Load reads and parses a Config from path.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return Parse(raw)
}

func (c Config) validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("config: data_dir must not be empty")
	}
	if c.ABITag == "" {
		return fmt.Errorf("config: abi_tag must not be empty")
	}
	return nil
}

// PluginsDir is DataDir/plugins, the root every installed plugin lives
// under.
func (c Config) PluginsDir() string {
	return c.DataDir + "/plugins"
}

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home + "/.local/share/ring-plugind"
	}
	return "./ring-plugind-data"
}
