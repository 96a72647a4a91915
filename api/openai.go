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
	"errors"
	"net/http"

	"github.com/sage-x-project/policy-hypervisor/attest"
	"github.com/sage-x-project/policy-hypervisor/crypto"
	"github.com/sage-x-project/policy-hypervisor/internal/logger"
	"github.com/sage-x-project/policy-hypervisor/llm"
)

type openAIQueryRequest struct {
	EncryptedPrompt string   `json:"encrypted_prompt"`
	PublicKey       string   `json:"public_key"`
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxTokens       *int     `json:"max_tokens,omitempty"`
}

type openAIQueryResponse struct {
	SessionID         string `json:"session_id"`
	EncryptedResponse string `json:"encrypted_response"`
	ResponseNonce     string `json:"response_nonce"`
	Model             string `json:"model"`
	QueryCommitment   string `json:"query_commitment"`
	Quote             string `json:"quote,omitempty"`
}

type modelNamer interface{ Model() string }

// handleOpenAIQuery passes a single encrypted prompt straight through to
// the LLM provider (no planning, no tools, no policy gate) and returns the
// encrypted completion together with a commitment hash binding the whole
// exchange. The verifiable variant additionally quotes the commitment.
func (s *Server) handleOpenAIQuery(verifiable bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req openAIQueryRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request body")
			return
		}
		if req.EncryptedPrompt == "" || req.PublicKey == "" {
			writeError(w, http.StatusBadRequest, "encrypted_prompt and public_key are required")
			return
		}

		rs, err := s.resolveSession(req.PublicKey)
		if err != nil {
			s.writeSessionError(w, err)
			return
		}

		prompt, err := decryptHex(rs, req.EncryptedPrompt)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		temperature := 0.7
		if req.Temperature != nil {
			temperature = *req.Temperature
		}
		maxTokens := 1000
		if req.MaxTokens != nil {
			maxTokens = *req.MaxTokens
		}

		completion, err := s.LLM.CompleteWithParams(r.Context(), llm.CompletionRequest{
			UserPrompt:  prompt,
			Temperature: temperature,
			MaxTokens:   maxTokens,
		})
		if err != nil {
			s.Log.Error("openai completion", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "llm completion failed")
			return
		}

		encryptedResponse, responseNonceHex, err := encryptResponse(rs, completion.Content)
		if err != nil {
			s.Log.Error("encrypt response", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to encrypt response")
			return
		}
		responseNonce, _ := hex.DecodeString(responseNonceHex)

		model := "unknown"
		if namer, ok := s.LLM.(modelNamer); ok {
			model = namer.Model()
		}

		sessionIDBytes, _ := rs.entry.SessionID.MarshalBinary()
		commitment := queryCommitment(
			crypto.EncodePublicKey(rs.userPubKey),
			crypto.EncodePublicKey(rs.entry.KeyPair.Public),
			sessionIDBytes,
			req.EncryptedPrompt,
			model,
			float32(temperature),
			uint32(maxTokens),
			responseNonce,
			encryptedResponse,
		)

		resp := openAIQueryResponse{
			SessionID:         rs.entry.SessionID.String(),
			EncryptedResponse: encryptedResponse,
			ResponseNonce:     responseNonceHex,
			Model:             model,
			QueryCommitment:   hex.EncodeToString(commitment[:]),
		}

		if verifiable {
			quote, err := attest.GenerateQuoteForHash(r.Context(), s.QuoteProvider, commitment)
			if err != nil {
				s.Log.Error("generate query commitment quote", logger.Error(err))
				writeError(w, http.StatusInternalServerError, "failed to attest query commitment")
				return
			}
			resp.Quote = hex.EncodeToString(quote.ToBytes())
		}

		writeJSON(w, resp)
	}
}

// writeSessionError maps resolveSession's error classes to the spec's
// BadRequest/Unauthorized split: an unknown session is 401, everything
// else (malformed hex, decrypt failure) is 400.
func (s *Server) writeSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, errUnknownSession) {
		writeError(w, http.StatusUnauthorized, "unknown session")
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}
