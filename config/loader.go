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

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// LoaderOptions configures Load. The zero value loads "./hypervisor.toml"
// and applies every override and validation step.
type LoaderOptions struct {
	// Path is an explicit config file path, checked before any fallback.
	Path string
	// SkipEnvOverrides disables the HYPERVISOR_* environment overrides.
	SkipEnvOverrides bool
	// SkipValidation disables post-load validation.
	SkipValidation bool
}

// Load resolves a Config by trying, in order: an explicit --config path,
// ./hypervisor.toml, then the built-in defaults. Environment variable
// overrides and validation run last regardless of which file (if any)
// was found.
func Load(opts ...LoaderOptions) (Config, error) {
	options := LoaderOptions{}
	if len(opts) > 0 {
		options = opts[0]
	}

	cfg, err := resolveFile(options.Path)
	if err != nil {
		return Config{}, err
	}

	if !options.SkipEnvOverrides {
		applyEnvOverrides(&cfg)
	}

	if !options.SkipValidation {
		if err := Validate(cfg); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

func resolveFile(explicitPath string) (Config, error) {
	if explicitPath != "" {
		cfg, err := LoadFromFile(explicitPath)
		if err == nil {
			return cfg, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load config from %q: %w", explicitPath, err)
		}
	}

	if cfg, err := LoadFromFile("./hypervisor.toml"); err == nil {
		return cfg, nil
	}

	return Default(), nil
}

// applyEnvOverrides applies HYPERVISOR_* overrides, highest priority,
// plus OPENAI_API_KEY which is never read any other way.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HYPERVISOR_EXECUTOR_PATH"); v != "" {
		cfg.ExecutorPath = v
	}
	if v := os.Getenv("HYPERVISOR_APP_PATH"); v != "" {
		cfg.AppPath = v
	}
	if v := os.Getenv("HYPERVISOR_LISTENING"); v != "" {
		cfg.Listening = v
	}
	if v := os.Getenv("HYPERVISOR_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("HYPERVISOR_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("HYPERVISOR_POLICY_FILE"); v != "" {
		cfg.PolicyFile = v
	}
	if v := os.Getenv("HYPERVISOR_REQUIRE_OPERATOR_TOKEN"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.RequireOperatorToken = b
		}
	}

	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
}

// MustLoad loads configuration or panics. cmd/hypervisor calls Load
// instead and reports the error itself.
func MustLoad(opts ...LoaderOptions) Config {
	cfg, err := Load(opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
