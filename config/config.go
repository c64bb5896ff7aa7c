// Copyright (C) 2025 Vizworks Labs (oss@vizworks.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads tool configuration from YAML files.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var configValidate = validator.New()

// Config is the file-based configuration of a refcore session and the
// tools built on it.
//
// # Validation
//
// Uses go-playground/validator:
//   - UndoLimit: 0-100000 stored undo records
//   - Log.Level: one of debug, info, warn, error
type Config struct {
	// UndoLimit caps the number of stored undo records per session.
	UndoLimit int `yaml:"undo_limit" validate:"gte=0,lte=100000"`

	// SettingsDir is the directory of the persistent settings store.
	// Empty keeps settings in memory only.
	SettingsDir string `yaml:"settings_dir"`

	Log LogConfig `yaml:"log"`
}

// LogConfig configures the logging package.
type LogConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`

	// Dir enables JSON file logging when set.
	Dir string `yaml:"dir"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		UndoLimit: 20,
		Log:       LogConfig{Level: "info"},
	}
}

// Load reads and validates a YAML configuration file. Settings absent
// from the file keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the struct tags.
func (c *Config) Validate() error {
	return configValidate.Struct(c)
}
