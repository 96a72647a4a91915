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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "policy_hypervisor"

// Registry is the process-wide Prometheus registry. All collectors in
// this package are registered against it; Handler serves it over HTTP.
var Registry = prometheus.NewRegistry()

var (
	// PolicyRejections counts tool calls rejected by a compliance policy,
	// labeled by the rejecting policy id and the tool name.
	PolicyRejections = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "policy",
			Name:      "rejections_total",
			Help:      "Total number of tool calls rejected by a compliance policy",
		},
		[]string{"policy_id", "tool"},
	)

	// PolicyEvaluations is labeled by the kind of rule (deterministic or
	// llm) and its outcome. Nothing in this module increments it.
	PolicyEvaluations = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "policy",
			Name:      "evaluations_total",
			Help:      "Total number of compliance rule evaluations",
		},
		[]string{"rule_kind", "outcome"},
	)

	// ComplianceQuoteDuration measures how long minting a compliance
	// quote takes, labeled by whether it succeeded.
	ComplianceQuoteDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "attestation",
			Name:      "compliance_quote_seconds",
			Help:      "Time spent generating a compliance quote",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"outcome"},
	)

	// ExecutionQuoteDuration is a histogram for execution-hash quote
	// minting time, labeled by outcome. Nothing in this module observes it.
	ExecutionQuoteDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "attestation",
			Name:      "execution_quote_seconds",
			Help:      "Time spent generating an execution-hash quote",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"outcome"},
	)

	// AgentToolCalls counts tool invocations attempted by the agent
	// pipeline, labeled by tool name and result.
	AgentToolCalls = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "tool_calls_total",
			Help:      "Total number of tool calls attempted by the agent",
		},
		[]string{"tool", "result"},
	)

	// AgentExecutionDuration measures end-to-end agent query latency.
	AgentExecutionDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "execution_seconds",
			Help:      "Time spent executing a full plan/gate/execute/answer cycle",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// SessionsActive tracks the number of established encrypted sessions.
	SessionsActive = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "active",
			Help:      "Number of currently active encrypted sessions",
		},
	)

	// SessionsCreated counts handshake completions, labeled by outcome.
	SessionsCreated = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "created_total",
			Help:      "Total number of session handshakes completed",
		},
		[]string{"outcome"},
	)

	// HTTPRequests counts inbound API requests, labeled by route and
	// status class.
	HTTPRequests = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests served",
		},
		[]string{"route", "status"},
	)

	// HTTPRequestDuration measures HTTP handler latency, labeled by route.
	HTTPRequestDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request handling latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)
