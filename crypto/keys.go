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

// Package crypto implements the session-key agreement and AEAD primitives
// the hypervisor uses to mediate encrypted queries: secp256k1 key pairs,
// ECDH + HKDF key derivation, BLAKE3-derived deterministic nonces, and
// AES-256-GCM-SIV.
package crypto

import (
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// KeyPair is a secp256k1 signing key together with its public key.
type KeyPair struct {
	Private *secp256k1.PrivateKey
	Public  *secp256k1.PublicKey
}

// GenerateKeyPair creates a fresh random secp256k1 key pair, used both for
// an end user's long-lived identity key and for the ephemeral per-session
// key the hypervisor hands back from create_keypair.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate secp256k1 key: %w", err)
	}
	return &KeyPair{Private: priv, Public: priv.PubKey()}, nil
}

// EncodePublicKey returns the SEC1 compressed (33-byte) encoding of pub.
func EncodePublicKey(pub *secp256k1.PublicKey) []byte {
	return pub.SerializeCompressed()
}

// DecodePublicKey parses a SEC1 compressed public key.
func DecodePublicKey(b []byte) (*secp256k1.PublicKey, error) {
	pub, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	return pub, nil
}

// EncodePublicKeyHex returns the lowercase hex of the SEC1 compressed
// encoding, the wire form used by every JSON request/response in the
// hypervisor's HTTP surface.
func EncodePublicKeyHex(pub *secp256k1.PublicKey) string {
	return hex.EncodeToString(EncodePublicKey(pub))
}

// DecodePublicKeyHex parses the hex wire form back into a public key.
func DecodePublicKeyHex(s string) (*secp256k1.PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode public key hex: %w", err)
	}
	return DecodePublicKey(b)
}

// Zero overwrites b in place; used to scrub key material and shared
// secrets from memory once a session is replaced or closed.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
