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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFallsBackToDefaultsWhenNoFileFound(t *testing.T) {
	cfg, err := Load(LoaderOptions{
		Path:             filepath.Join(t.TempDir(), "nonexistent.toml"),
		SkipEnvOverrides: true,
		SkipValidation:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, Default().ExecutorPath, cfg.ExecutorPath)
}

func TestLoadExplicitPathOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte("listening = \"0.0.0.0:1234\"\n"), 0o644))

	cfg, err := Load(LoaderOptions{Path: path, SkipEnvOverrides: true, SkipValidation: true})
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:1234", cfg.Listening)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("HYPERVISOR_LISTENING", "10.0.0.1:9999")
	t.Setenv("HYPERVISOR_LOG_LEVEL", "debug")
	t.Setenv("HYPERVISOR_REQUIRE_OPERATOR_TOKEN", "true")
	t.Setenv("OPENAI_API_KEY", "test-key")

	cfg, err := Load(LoaderOptions{
		Path:           filepath.Join(t.TempDir(), "missing.toml"),
		SkipValidation: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.1:9999", cfg.Listening)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.RequireOperatorToken)
	assert.Equal(t, "test-key", cfg.OpenAIAPIKey)
}

func TestLoadValidationFailsWithoutOpenAIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := Load(LoaderOptions{Path: filepath.Join(t.TempDir(), "missing.toml")})
	assert.Error(t, err)
}

func TestValidateRejectsEmptyListening(t *testing.T) {
	cfg := Default()
	cfg.Listening = ""
	cfg.OpenAIAPIKey = "k"
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := Default()
	cfg.OpenAIAPIKey = "k"
	cfg.LogLevel = "verbose"
	assert.Error(t, Validate(cfg))
}
