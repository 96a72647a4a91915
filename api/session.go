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

package api

import (
	"encoding/hex"
	"fmt"
	"unicode/utf8"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/sage-x-project/policy-hypervisor/crypto"
	"github.com/sage-x-project/policy-hypervisor/session"
)

// resolvedSession bundles the per-request state an encrypted handler needs
// after session lookup: the user's public key (for query-commitment
// hashing), the session entry, and the derived AEAD key. Cloned out of the
// registry before any suspension point per the handler's concurrency
// contract, never held across the request beyond this struct's lifetime.
type resolvedSession struct {
	userPubKey *secp256k1.PublicKey
	entry      *session.Entry
	aeadKey    []byte
}

// resolveSession looks up the session bound to pubKeyHex and derives its
// AEAD key. Returns errUnknownSession when no session is bound to the
// pubkey (caller answers 401), and any other error when the hex is
// malformed or key derivation fails (caller answers 400).
func (s *Server) resolveSession(pubKeyHex string) (*resolvedSession, error) {
	userPubKey, err := crypto.DecodePublicKeyHex(pubKeyHex)
	if err != nil {
		return nil, fmt.Errorf("malformed public key hex: %w", err)
	}

	entry, ok := s.Sessions.Get(userPubKey)
	if !ok {
		return nil, errUnknownSession
	}

	aeadKey, err := crypto.EstablishKey(entry.KeyPair.Private, userPubKey, entry.SessionID.String())
	if err != nil {
		return nil, fmt.Errorf("derive aead key: %w", err)
	}

	return &resolvedSession{userPubKey: userPubKey, entry: entry, aeadKey: aeadKey}, nil
}

// errUnknownSession is a sentinel distinguishing a session-lookup miss
// (401) from a malformed-input failure (400).
var errUnknownSession = fmt.Errorf("unknown session")

// decryptHex hex-decodes ciphertext and opens it with rs's AEAD key, using
// the nonce derived from the raw session id bytes — the nonce used for
// every request decryption in a session, as opposed to the per-response
// nonce derived from plaintext.
func decryptHex(rs *resolvedSession, ciphertextHex string) (string, error) {
	ciphertext, err := hex.DecodeString(ciphertextHex)
	if err != nil {
		return "", fmt.Errorf("malformed ciphertext hex: %w", err)
	}

	aead, err := crypto.NewAEAD(rs.aeadKey)
	if err != nil {
		return "", fmt.Errorf("build aead: %w", err)
	}

	nonce := crypto.DeriveNonce(rs.entry.SessionID[:])
	plaintext, err := aead.Open(nil, nonce[:], ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	if !utf8.Valid(plaintext) {
		return "", fmt.Errorf("decrypted plaintext is not valid UTF-8")
	}
	return string(plaintext), nil
}

// encryptResponse encrypts plaintext under rs's AEAD key, deriving the
// nonce from the plaintext itself, and returns (ciphertext_hex, nonce_hex).
func encryptResponse(rs *resolvedSession, plaintext string) (ciphertextHex, nonceHex string, err error) {
	aead, err := crypto.NewAEAD(rs.aeadKey)
	if err != nil {
		return "", "", fmt.Errorf("build aead: %w", err)
	}

	nonce := crypto.DeriveNonce([]byte(plaintext))
	ciphertext := aead.Seal(nil, nonce[:], []byte(plaintext), nil)
	return hex.EncodeToString(ciphertext), hex.EncodeToString(nonce[:]), nil
}
