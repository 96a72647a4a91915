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
	"net/http"
	"time"

	"github.com/sage-x-project/policy-hypervisor/agent"
	"github.com/sage-x-project/policy-hypervisor/attest"
	"github.com/sage-x-project/policy-hypervisor/internal/logger"
)

type agentQueryRequest struct {
	EncryptedQuery   string `json:"encrypted_query"`
	PublicKey        string `json:"public_key"`
	UseLLMCompliance bool   `json:"use_llm_compliance,omitempty"`
}

type agentComplianceSummary struct {
	Compliant bool `json:"compliant"`
}

type agentQueryResponse struct {
	SessionID         string                  `json:"session_id"`
	EncryptedResponse string                  `json:"encrypted_response"`
	ResponseNonce     string                  `json:"response_nonce"`
	ExecutionTimeMS   int64                   `json:"execution_time_ms"`
	ExecutionHash     string                  `json:"execution_hash"`
	Execution         *agent.Execution        `json:"execution"`
	Quote             string                  `json:"quote,omitempty"`
	Compliance        *agentComplianceSummary `json:"compliance,omitempty"`
}

// handleAgentQuery runs the full plan -> gate -> execute -> answer
// pipeline over a decrypted user query and returns the encrypted final
// answer together with the execution trace and its hash. The verifiable
// variant additionally quotes the execution hash and reports whether
// every tool call in the trace succeeded.
func (s *Server) handleAgentQuery(verifiable bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req agentQueryRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request body")
			return
		}
		if req.EncryptedQuery == "" || req.PublicKey == "" {
			writeError(w, http.StatusBadRequest, "encrypted_query and public_key are required")
			return
		}

		rs, err := s.resolveSession(req.PublicKey)
		if err != nil {
			s.writeSessionError(w, err)
			return
		}

		query, err := decryptHex(rs, req.EncryptedQuery)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		start := time.Now()
		exec, err := s.Agent.Execute(r.Context(), query, rs.entry.SessionID, req.UseLLMCompliance)
		if err != nil {
			s.Log.Error("agent execution", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "agent execution failed")
			return
		}
		exec.ExecutionTimeMS = time.Since(start).Milliseconds()

		sessionIDBytes, _ := rs.entry.SessionID.MarshalBinary()
		execHash := executionHash(sessionIDBytes, exec)

		encryptedResponse, responseNonceHex, err := encryptResponse(rs, exec.FinalResponse)
		if err != nil {
			s.Log.Error("encrypt response", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to encrypt response")
			return
		}

		resp := agentQueryResponse{
			SessionID:         rs.entry.SessionID.String(),
			EncryptedResponse: encryptedResponse,
			ResponseNonce:     responseNonceHex,
			ExecutionTimeMS:   exec.ExecutionTimeMS,
			ExecutionHash:     hex.EncodeToString(execHash[:]),
			Execution:         exec,
		}

		if verifiable {
			quote, err := attest.GenerateQuoteForHash(r.Context(), s.QuoteProvider, execHash)
			if err != nil {
				s.Log.Error("generate execution quote", logger.Error(err))
				writeError(w, http.StatusInternalServerError, "failed to attest execution")
				return
			}
			resp.Quote = hex.EncodeToString(quote.ToBytes())

			allSucceeded := true
			for _, result := range exec.ToolResults {
				if !result.Success {
					allSucceeded = false
					break
				}
			}
			resp.Compliance = &agentComplianceSummary{Compliant: allSucceeded}
		}

		writeJSON(w, resp)
	}
}
