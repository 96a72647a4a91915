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

package crypto

import (
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/hkdf"
)

// SharedSecret derives the ECDH shared point for sk and pk, compressed to
// its 32-byte x-coordinate the same way the session layer consumes it.
func SharedSecret(sk *secp256k1.PrivateKey, pk *secp256k1.PublicKey) []byte {
	var point, result secp256k1.JacobianPoint
	pk.AsJacobian(&point)

	var scalar secp256k1.ModNScalar
	scalar.Set(&sk.Key)
	secp256k1.ScalarMultNonConst(&scalar, &point, &result)
	result.ToAffine()

	x := result.X.Bytes()
	return x[:]
}

// DeriveAEADKey turns an ECDH shared secret into the single 32-byte key
// used for session AEAD traffic: HKDF-Extract(SHA-256) salted with the
// session id, then HKDF-Expand with empty info, 32 bytes out.
//
// This mirrors original_source's create_encrypt_key, which differs from
// this repo's teacher session layer in using one key and one salted
// extract step rather than two info-differentiated sub-keys.
func DeriveAEADKey(sharedSecret []byte, sessionID string) ([]byte, error) {
	prk := hkdf.Extract(sha256.New, sharedSecret, []byte(sessionID))

	expander := hkdf.Expand(sha256.New, prk, nil)
	key := make([]byte, 32)
	if _, err := io.ReadFull(expander, key); err != nil {
		return nil, fmt.Errorf("hkdf expand: %w", err)
	}
	return key, nil
}

// EstablishKey runs the full ECDH + HKDF pipeline and returns the 32-byte
// AEAD key a session uses for both directions of traffic.
func EstablishKey(sk *secp256k1.PrivateKey, pk *secp256k1.PublicKey, sessionID string) ([]byte, error) {
	shared := SharedSecret(sk, pk)
	defer Zero(shared)
	return DeriveAEADKey(shared, sessionID)
}
