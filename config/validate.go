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

import "fmt"

// Validate checks a Config for the conditions that must hold before the
// process starts serving: the spec's exit-codes requirement demands a
// non-zero exit on any failure to bind or parse configuration, so this
// runs before the listener is ever opened.
func Validate(cfg Config) error {
	if cfg.Listening == "" {
		return fmt.Errorf("config: listening address must not be empty")
	}
	if cfg.AppPath == "" {
		return fmt.Errorf("config: app_path must not be empty")
	}
	if cfg.OpenAIAPIKey == "" {
		return fmt.Errorf("config: OPENAI_API_KEY must be set in the process environment")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: invalid log_level %q", cfg.LogLevel)
	}
	return nil
}
