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

package attest

import "lukechampine.com/blake3"

// HashSessionHandshake produces the report_data digest for a session
// handshake quote: BLAKE3(session_pk_compressed || session_id_bytes).
func HashSessionHandshake(sessionPubKeyCompressed []byte, sessionIDBytes []byte) [32]byte {
	h := blake3.New(32, nil)
	h.Write(sessionPubKeyCompressed)
	h.Write(sessionIDBytes)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// HashExecution produces the report_data digest for an execution-hash
// quote over an already-computed execution hash: the hash itself is the
// 32-byte digest, so this is the identity mapping. The agent query
// handlers pass the execution hash to GenerateQuoteForHash directly and
// do not call it.
func HashExecution(executionHash [32]byte) [32]byte { return executionHash }
