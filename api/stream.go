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

	"github.com/gorilla/websocket"

	"github.com/sage-x-project/policy-hypervisor/internal/logger"
)

var streamUpgrader = websocket.Upgrader{
	// Streaming is opened by the same operator clients the rest of the
	// HTTP surface serves over open CORS; there is no cookie-based
	// session to protect against cross-origin hijack.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamEvent is one message pushed down the /agent/stream socket. Kind is
// one of "thought", "result", or "error".
type streamEvent struct {
	Kind  string      `json:"kind"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// handleAgentStream is a WebSocket variant of /agent/query: it runs the
// same pipeline but pushes each planning ThoughtStep to the client as soon
// as the plan is available, ahead of the (comparatively slow) gate and
// execute phases, rather than making the client wait for one buffered
// response. The provider's Complete/CompleteWithParams calls are not
// themselves token-streaming, so thoughts are pushed as a completed batch
// immediately after planning rather than incrementally per token.
func (s *Server) handleAgentStream(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	publicKey := query.Get("public_key")
	encryptedQuery := query.Get("encrypted_query")
	useLLMCompliance := query.Get("use_llm_compliance") == "true"

	if publicKey == "" || encryptedQuery == "" {
		writeError(w, http.StatusBadRequest, "public_key and encrypted_query query parameters are required")
		return
	}

	rs, err := s.resolveSession(publicKey)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}

	plaintext, err := decryptHex(rs, encryptedQuery)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := streamUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.Warn("websocket upgrade failed", logger.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	ctx := r.Context()

	plan, err := s.Agent.Plan(ctx, plaintext)
	if err != nil {
		_ = conn.WriteJSON(streamEvent{Kind: "error", Error: err.Error()})
		return
	}
	for _, thought := range plan.ThoughtProcess {
		if err := conn.WriteJSON(streamEvent{Kind: "thought", Data: thought}); err != nil {
			return
		}
	}

	// Execute re-plans internally; Plan has no side effects worth caching
	// across the call, so the cost is one extra planning round trip in
	// exchange for thoughts reaching the client before gate/execute run.
	start := time.Now()
	exec, err := s.Agent.Execute(ctx, plaintext, rs.entry.SessionID, useLLMCompliance)
	if err != nil {
		_ = conn.WriteJSON(streamEvent{Kind: "error", Error: err.Error()})
		return
	}
	exec.ExecutionTimeMS = time.Since(start).Milliseconds()

	sessionIDBytes, _ := rs.entry.SessionID.MarshalBinary()
	execHash := executionHash(sessionIDBytes, exec)

	encryptedResponse, responseNonceHex, err := encryptResponse(rs, exec.FinalResponse)
	if err != nil {
		_ = conn.WriteJSON(streamEvent{Kind: "error", Error: err.Error()})
		return
	}

	_ = conn.WriteJSON(streamEvent{Kind: "result", Data: agentQueryResponse{
		SessionID:         rs.entry.SessionID.String(),
		EncryptedResponse: encryptedResponse,
		ResponseNonce:     responseNonceHex,
		ExecutionTimeMS:   exec.ExecutionTimeMS,
		ExecutionHash:     hex.EncodeToString(execHash[:]),
		Execution:         exec,
	}})
}
