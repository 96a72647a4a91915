// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package config loads the hypervisor's TOML configuration file and
// applies environment-variable overrides on top of it.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the hypervisor's process configuration. ExecutorPath,
// AppPath, and Listening are the three keys the wire format mandates;
// everything else is an additive, defaulted field a deployable service
// needs but the spec doesn't name.
type Config struct {
	ExecutorPath string `toml:"executor_path"`
	AppPath      string `toml:"app_path"`
	Listening    string `toml:"listening"`

	LogLevel             string `toml:"log_level"`
	MetricsAddr          string `toml:"metrics_addr"`
	PolicyFile           string `toml:"policy_file"`
	RequireOperatorToken bool   `toml:"require_operator_token"`

	// OpenAIAPIKey is never read from the TOML file: it is populated
	// exclusively from the OPENAI_API_KEY environment variable so the
	// key never round-trips through a config file on disk.
	OpenAIAPIKey string `toml:"-"`
}

// Default returns the built-in configuration used when no config file
// is found and no overrides apply.
func Default() Config {
	return Config{
		ExecutorPath:         "./bin/executor",
		AppPath:              ".",
		Listening:            "127.0.0.1:8080",
		LogLevel:             "info",
		MetricsAddr:          "127.0.0.1:9090",
		PolicyFile:           "",
		RequireOperatorToken: false,
	}
}

// LoadFromFile parses a TOML file at path into a Config, starting from
// Default so any key the file omits keeps its built-in value.
func LoadFromFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	return cfg, nil
}

// Save writes cfg to path as TOML, for `hypervisor genkey --write-config`
// and similar bootstrapping flows.
func Save(cfg Config, path string) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
