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

	"github.com/sage-x-project/policy-hypervisor/attest"
	"github.com/sage-x-project/policy-hypervisor/crypto"
	"github.com/sage-x-project/policy-hypervisor/internal/logger"
)

type createKeypairRequest struct {
	PubKey string `json:"pubkey"`
}

type createKeypairResponse struct {
	SessionPubKey string `json:"session_pubkey"`
	SessionID     string `json:"session_id"`
	Quote         string `json:"quote,omitempty"`
}

// handleCreateKeypair establishes a session for the user's long-lived
// public key: a fresh ephemeral session key pair and UUIDv7 session id are
// minted and stored in the registry. The verifiable variant additionally
// quotes hash(session_pk || session_id).
func (s *Server) handleCreateKeypair(verifiable bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createKeypairRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request body")
			return
		}
		if req.PubKey == "" {
			writeError(w, http.StatusBadRequest, "pubkey is required")
			return
		}

		userPubKey, err := crypto.DecodePublicKeyHex(req.PubKey)
		if err != nil {
			writeError(w, http.StatusBadRequest, "malformed public key hex")
			return
		}

		entry, err := s.Sessions.Create(userPubKey)
		if err != nil {
			s.Log.Error("create session", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to create session")
			return
		}

		resp := createKeypairResponse{
			SessionPubKey: crypto.EncodePublicKeyHex(entry.KeyPair.Public),
			SessionID:     entry.SessionID.String(),
		}

		if verifiable {
			sessionIDBytes, err := entry.SessionID.MarshalBinary()
			if err != nil {
				s.Log.Error("marshal session id", logger.Error(err))
				writeError(w, http.StatusInternalServerError, "failed to attest session")
				return
			}
			hash := attest.HashSessionHandshake(crypto.EncodePublicKey(entry.KeyPair.Public), sessionIDBytes)
			quote, err := attest.GenerateQuoteForHash(r.Context(), s.QuoteProvider, hash)
			if err != nil {
				s.Log.Error("generate handshake quote", logger.Error(err))
				writeError(w, http.StatusInternalServerError, "failed to attest session")
				return
			}
			resp.Quote = hex.EncodeToString(quote.ToBytes())
		}

		writeJSON(w, resp)
	}
}
