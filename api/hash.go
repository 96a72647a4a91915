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
	"encoding/binary"
	"math"

	"lukechampine.com/blake3"

	"github.com/sage-x-project/policy-hypervisor/agent"
)

// queryCommitment hashes the full OpenAI query/response pair so a client
// can later prove exactly what was asked and returned, in the exact field
// order the wire format fixes: user key, session key, session id, prompt,
// model, sampling parameters, response nonce, response ciphertext.
func queryCommitment(userPubKeyCompressed, sessionPubKeyCompressed, sessionIDBytes []byte, encryptedPrompt, model string, temperature float32, maxTokens uint32, responseNonce []byte, encryptedResponse string) [32]byte {
	h := blake3.New(32, nil)
	h.Write(userPubKeyCompressed)
	h.Write(sessionPubKeyCompressed)
	h.Write(sessionIDBytes)
	h.Write([]byte(encryptedPrompt))
	h.Write([]byte(model))

	var tempBuf [4]byte
	binary.LittleEndian.PutUint32(tempBuf[:], math.Float32bits(temperature))
	h.Write(tempBuf[:])

	var tokBuf [4]byte
	binary.LittleEndian.PutUint32(tokBuf[:], maxTokens)
	h.Write(tokBuf[:])

	h.Write(responseNonce)
	h.Write([]byte(encryptedResponse))

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// executionHash hashes the complete agent execution trace: session id,
// system prompt, user query, each thought, each tool call's (id, name,
// arguments), each result's (call id, success byte, result or error),
// and the
// final response, in that exact order.
func executionHash(sessionIDBytes []byte, exec *agent.Execution) [32]byte {
	h := blake3.New(32, nil)
	h.Write(sessionIDBytes)
	h.Write([]byte(exec.Plan.SystemPrompt))
	h.Write([]byte(exec.Plan.UserQuery))

	for _, thought := range exec.Plan.ThoughtProcess {
		h.Write([]byte(thought.Content))
	}

	for _, call := range exec.ToolCalls {
		idBytes, _ := call.ID.MarshalBinary()
		h.Write(idBytes)
		h.Write([]byte(call.ToolName))
		h.Write([]byte(call.Arguments))
	}

	for _, result := range exec.ToolResults {
		idBytes, _ := result.CallID.MarshalBinary()
		h.Write(idBytes)
		if result.Success {
			h.Write([]byte{1})
			h.Write([]byte(result.Result))
		} else {
			h.Write([]byte{0})
			h.Write([]byte(result.Error))
		}
	}

	h.Write([]byte(exec.FinalResponse))

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
