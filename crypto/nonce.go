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

import "lukechampine.com/blake3"

// NonceSize is the nonce length AES-256-GCM-SIV expects.
const NonceSize = 12

// DeriveNonce takes the first NonceSize bytes of the BLAKE3 digest of data.
// Request decryption derives the nonce from the session id; response
// encryption derives it from the plaintext response, so both directions of
// a session get a distinct, deterministic, non-repeating nonce without a
// counter, matching original_source's derive_msg_nonce and relying on
// GCM-SIV's nonce-misuse resistance rather than a nonce that is secret.
func DeriveNonce(data []byte) [NonceSize]byte {
	digest := blake3.Sum256(data)
	var nonce [NonceSize]byte
	copy(nonce[:], digest[:NonceSize])
	return nonce
}
