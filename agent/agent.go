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

package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sage-x-project/policy-hypervisor/attest"
	"github.com/sage-x-project/policy-hypervisor/internal/metrics"
	"github.com/sage-x-project/policy-hypervisor/llm"
	"github.com/sage-x-project/policy-hypervisor/policy"
	"github.com/sage-x-project/policy-hypervisor/tool"
)

// Agent answers crypto-research questions by planning synthetic tool
// calls, having the hypervisor gate each call against policy, executing
// only the approved calls, and synthesizing a policy-aware final answer.
type Agent struct {
	config        Config
	tools         *tool.Registry
	checker       *policy.Checker
	llmProvider   llm.Provider
	quoteProvider attest.Provider
}

// New builds an Agent wired to the given tool registry, compliance
// checker, LLM provider, and TEE quote provider.
func New(config Config, tools *tool.Registry, checker *policy.Checker, llmProvider llm.Provider, quoteProvider attest.Provider) *Agent {
	if config.SystemPrompt == "" {
		config = DefaultConfig()
	}
	if quoteProvider == nil {
		quoteProvider = attest.Default()
	}
	return &Agent{
		config:        config,
		tools:         tools,
		checker:       checker,
		llmProvider:   llmProvider,
		quoteProvider: quoteProvider,
	}
}

// SystemPrompt returns the agent's system prompt, exposed so callers can
// run a full-plan compliance check before any tool-level gating happens.
func (a *Agent) SystemPrompt() string { return a.config.SystemPrompt }

// Execute runs the full plan -> gate -> execute -> answer pipeline for a
// single user query and returns the complete execution trace.
// useLLMCompliance additionally runs the LLM-mediated compliance rules
// during gating, at the cost of one extra model call per LLM-mediated
// rule of each policy bound to a tool call.
func (a *Agent) Execute(ctx context.Context, userQuery string, sessionID uuid.UUID, useLLMCompliance bool) (*Execution, error) {
	start := time.Now()
	defer func() { metrics.AgentExecutionDuration.Observe(time.Since(start).Seconds()) }()

	plan, err := a.Plan(ctx, userQuery)
	if err != nil {
		return nil, fmt.Errorf("plan execution: %w", err)
	}

	g, err := a.gate(ctx, userQuery, plan, useLLMCompliance)
	if err != nil {
		return nil, fmt.Errorf("gate tool calls: %w", err)
	}

	results := a.execute(ctx, g)

	finalResponse, err := a.answer(ctx, userQuery, results, g.approvedPolicies)
	if err != nil {
		return nil, fmt.Errorf("generate final answer: %w", err)
	}

	allCalls := make([]ToolCall, 0, len(g.approved)+len(g.rejected))
	allCalls = append(allCalls, g.approved...)
	allCalls = append(allCalls, g.rejected...)

	return &Execution{
		SessionID:       sessionID,
		Plan:            *plan,
		ToolCalls:       allCalls,
		ToolResults:     results,
		FinalResponse:   finalResponse,
		ExecutionTimeMS: time.Since(start).Milliseconds(),
	}, nil
}
