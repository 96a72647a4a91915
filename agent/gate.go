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

	"github.com/sage-x-project/policy-hypervisor/attest"
	"github.com/sage-x-project/policy-hypervisor/internal/logger"
	"github.com/sage-x-project/policy-hypervisor/internal/metrics"
)

// gateResult is the outcome of running every intended tool call through
// the compliance checker.
type gateResult struct {
	approved        []ToolCall
	rejected        []ToolCall
	approvedPolicies map[string][]string // tool name -> formatted policy texts
}

// gate runs each intended tool call through the compliance checker,
// mints a compliance quote for every approved call, and separates
// approved from rejected calls. It never fails the whole plan: an
// individual tool's absence from the registry or a policy violation
// produces a rejection, not an error.
func (a *Agent) gate(ctx context.Context, userQuery string, plan *Plan, useLLMCompliance bool) (*gateResult, error) {
	result := &gateResult{
		approvedPolicies: make(map[string][]string),
	}

	for _, call := range plan.IntendedToolCalls {
		t, ok := a.tools.Get(call.ToolName)
		if !ok {
			call.RejectionReason = fmt.Sprintf("Tool '%s' not found", call.ToolName)
			result.rejected = append(result.rejected, call)
			metrics.AgentToolCalls.WithLabelValues(call.ToolName, "rejected").Inc()
			continue
		}

		if err := a.tools.ValidateArguments(call.ToolName, call.Arguments); err != nil {
			call.RejectionReason = fmt.Sprintf("invalid arguments: %v", err)
			result.rejected = append(result.rejected, call)
			metrics.AgentToolCalls.WithLabelValues(call.ToolName, "rejected").Inc()
			continue
		}

		policyIDs := t.PolicyIDs()

		var reason string
		var err error
		if useLLMCompliance {
			reason, err = a.checker.CheckToolComplianceAsync(ctx, a.llmProvider, call.ToolName, userQuery, call.Arguments)
		} else {
			reason = a.checker.CheckToolCompliance(call.ToolName, userQuery, call.Arguments)
		}
		if err != nil {
			call.RejectionReason = fmt.Sprintf("compliance check error: %v", err)
			result.rejected = append(result.rejected, call)
			metrics.AgentToolCalls.WithLabelValues(call.ToolName, "rejected").Inc()
			continue
		}
		if reason != "" {
			call.RejectionReason = reason
			result.rejected = append(result.rejected, call)
			metrics.AgentToolCalls.WithLabelValues(call.ToolName, "rejected").Inc()
			for _, id := range policyIDs {
				metrics.PolicyRejections.WithLabelValues(id, call.ToolName).Inc()
			}
			continue
		}

		quoteStart := time.Now()
		quote, err := attest.GenerateComplianceQuote(ctx, a.quoteProvider, call.ToolName, true, policyIDs, userQuery, call.Arguments)
		if err != nil {
			// Quote generation failing shouldn't block an otherwise-approved
			// call: proceed without attestation, matching the upstream
			// "proceed without quote" fallback.
			logger.Warn("compliance quote generation failed; proceeding without quote",
				logger.String("tool", call.ToolName), logger.Error(err))
			quote = nil
			metrics.ComplianceQuoteDuration.WithLabelValues("error").Observe(time.Since(quoteStart).Seconds())
		} else {
			metrics.ComplianceQuoteDuration.WithLabelValues("ok").Observe(time.Since(quoteStart).Seconds())
		}
		call.ComplianceQuote = quote
		result.approved = append(result.approved, call)
		metrics.AgentToolCalls.WithLabelValues(call.ToolName, "approved").Inc()

		var texts []string
		for _, id := range policyIDs {
			if p, ok := a.checker.PolicyByID(id); ok {
				texts = append(texts, fmt.Sprintf("%s (%s): %s", p.ID, p.Name, p.Text))
			}
		}
		result.approvedPolicies[call.ToolName] = texts
	}

	return result, nil
}
