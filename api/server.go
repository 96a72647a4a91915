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

// Package api wires the hypervisor's HTTP surface: session handshake,
// encrypted chat-completion passthrough, and the policy-gated agent
// pipeline, each in a plain and a verifiable (TEE-quoted) variant.
package api

import (
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/sage-x-project/policy-hypervisor/agent"
	"github.com/sage-x-project/policy-hypervisor/attest"
	"github.com/sage-x-project/policy-hypervisor/health"
	"github.com/sage-x-project/policy-hypervisor/internal/logger"
	"github.com/sage-x-project/policy-hypervisor/internal/metrics"
	"github.com/sage-x-project/policy-hypervisor/llm"
	"github.com/sage-x-project/policy-hypervisor/policy"
	"github.com/sage-x-project/policy-hypervisor/session"
	"github.com/sage-x-project/policy-hypervisor/tool"
)

// Server holds every piece of shared state an HTTP handler needs.
type Server struct {
	Sessions      *session.Registry
	Policies      *policy.Registry
	Checker       *policy.Checker
	Tools         *tool.Registry
	Agent         *agent.Agent
	LLM           llm.Provider
	QuoteProvider attest.Provider
	Health        *health.HealthChecker
	Log           logger.Logger

	// OperatorToken, when non-empty, is the HMAC secret that a Bearer JWT
	// must be signed with on every /agent/query, /verifiable/agent/query,
	// /openai/query, and /verifiable/openai/query request.
	OperatorToken string
}

// Routes builds the full handler tree, wrapped in CORS and panic-recovery
// middleware matching spec §6 (CORS open, GET/POST) and §7 (no panic
// escapes a handler).
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /ping", s.handlePing)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("POST /encrypt/create_keypair", s.handleCreateKeypair(false))
	mux.HandleFunc("POST /verifiable/encrypt/create_keypair", s.handleCreateKeypair(true))

	mux.Handle("POST /openai/query", s.requireOperatorToken(s.handleOpenAIQuery(false)))
	mux.Handle("POST /verifiable/openai/query", s.requireOperatorToken(s.handleOpenAIQuery(true)))

	mux.Handle("POST /agent/query", s.requireOperatorToken(s.handleAgentQuery(false)))
	mux.Handle("POST /verifiable/agent/query", s.requireOperatorToken(s.handleAgentQuery(true)))

	mux.HandleFunc("GET /agent/tools", s.handleToolCatalog)
	mux.HandleFunc("GET /agent/stream", s.handleAgentStream)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})

	return corsMiddleware.Handler(s.withMetrics(s.recoverMiddleware(mux)))
}

// recoverMiddleware converts a panicking handler into a 500 instead of
// crashing the process, matching spec §7's "no panic escapes a handler".
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.Log.Error("panic recovered in handler",
					logger.String("path", r.URL.Path),
					logger.Any("panic", rec),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"msg":"internal error"}`))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// withMetrics records request counts and latency per route.
func (s *Server) withMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = r.URL.Path
		}
		metrics.HTTPRequests.WithLabelValues(route, statusClass(rec.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// requireOperatorToken gates next behind a Bearer JWT verified with
// s.OperatorToken (see checkBearerToken) when s.OperatorToken is
// configured; a no-op passthrough otherwise.
func (s *Server) requireOperatorToken(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.OperatorToken == "" {
			next(w, r)
			return
		}
		if !checkBearerToken(r, s.OperatorToken) {
			writeError(w, http.StatusUnauthorized, "missing or invalid operator token")
			return
		}
		next(w, r)
	})
}
