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

package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "hypervisor",
	Short: "Policy hypervisor - a TEE-hosted policy-gated LLM agent service",
	Long: `hypervisor runs the confidential-compute service that mediates encrypted
user queries to an LLM agent: session-key establishment, a declarative
compliance engine, and a plan/gate/execute/answer agent pipeline, each
exposed in a plain and a TEE-attested ("verifiable") variant.`,
}

func main() {
	// Best-effort: a .env file is a local-dev convenience for OPENAI_API_KEY
	// and friends, never required in a real deployment where the process
	// environment is set directly.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Note: commands are registered in their respective files
	// - serve.go: serveCmd
	// - genkey.go: genkeyCmd
}
