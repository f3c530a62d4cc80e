package main

import "github.com/ringphone/pluginhost/internal/config"

// loadConfig reads --config if given, otherwise falls back to the
// built-in defaults: config is optional, every field has a usable
// default.
func loadConfig() (config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}
