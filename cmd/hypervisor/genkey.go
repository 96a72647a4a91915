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
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sage-x-project/policy-hypervisor/config"
	"github.com/sage-x-project/policy-hypervisor/crypto"
)

var (
	genkeyWriteConfig string
)

var genkeyCmd = &cobra.Command{
	Use:   "genkey",
	Short: "Generate a secp256k1 key pair for the user-identity side of a session handshake",
	Long: `genkey generates a fresh secp256k1 key pair and prints the private and
public key as hex. This is the long-lived identity key a client presents
to POST /encrypt/create_keypair, not a per-session key: those are minted
by the hypervisor itself on every handshake.`,
	RunE: runGenkey,
}

func init() {
	rootCmd.AddCommand(genkeyCmd)

	genkeyCmd.Flags().StringVar(&genkeyWriteConfig, "write-config", "", "also write a default hypervisor.toml to this path")
}

func runGenkey(cmd *cobra.Command, args []string) error {
	keyPair, err := crypto.GenerateKeyPair()
	if err != nil {
		return fmt.Errorf("generate key pair: %w", err)
	}

	fmt.Printf("private_key: %s\n", hex.EncodeToString(keyPair.Private.Serialize()))
	fmt.Printf("public_key:  %s\n", crypto.EncodePublicKeyHex(keyPair.Public))

	if genkeyWriteConfig != "" {
		if err := config.Save(config.Default(), genkeyWriteConfig); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("config written to: %s\n", genkeyWriteConfig)
	}

	return nil
}
