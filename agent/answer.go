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
	"sort"
	"strings"

	"github.com/sage-x-project/policy-hypervisor/llm"
)

const rejectionGuidance = "\n\nIMPORTANT: Some tool calls were rejected by compliance policies. " +
	"If critical tools were rejected and you cannot answer the question without them, " +
	"you MUST respond with 'IMPOSSIBLE: [reason]' explaining why you cannot complete the request. " +
	"Otherwise, answer based on the available tool results."

// answer generates the final response, pinning the policy text that
// governs every approved tool into the prompt and instructing the model
// to declare impossibility rather than silently ignore a rejection.
func (a *Agent) answer(ctx context.Context, userQuery string, results []ToolResult, approvedPolicies map[string][]string) (string, error) {
	policyContext := buildPolicyContext(approvedPolicies)
	toolContext, hadRejections := buildToolContext(results)

	guidance := ""
	if hadRejections {
		guidance = rejectionGuidance
	}

	prompt := fmt.Sprintf(
		"%s\n\nUser Question: %s\n\n%s%s%s\n\n"+
			"Based on the available data, please provide a clear answer to the user's question. "+
			"CRITICAL: You MUST strictly follow all applicable policies listed above. "+
			"If you cannot answer due to policy restrictions, say so clearly.",
		a.config.SystemPrompt, userQuery, policyContext, toolContext, guidance,
	)

	resp, err := a.llmProvider.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: a.config.SystemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	})
	if err != nil {
		return "", fmt.Errorf("llm final answer call: %w", err)
	}
	return resp.Content, nil
}

func buildPolicyContext(approvedPolicies map[string][]string) string {
	var b strings.Builder
	hasPolicies := false

	names := make([]string, 0, len(approvedPolicies))
	for name := range approvedPolicies {
		names = append(names, name)
	}
	sort.Strings(names)

	b.WriteString("\n\nAPPLICABLE POLICIES (You MUST follow these policies in your response):\n")
	for _, name := range names {
		texts := approvedPolicies[name]
		if len(texts) == 0 {
			continue
		}
		hasPolicies = true
		fmt.Fprintf(&b, "\nFor tool '%s':\n", name)
		for _, text := range texts {
			fmt.Fprintf(&b, "  - %s\n", text)
		}
	}

	if !hasPolicies {
		return "\n\nNo specific policies apply to the approved tools.\n"
	}
	return b.String()
}

func buildToolContext(results []ToolResult) (string, bool) {
	var b strings.Builder
	hadRejections := false

	b.WriteString("\n\nTool Results:\n")
	for i, r := range results {
		if r.Success {
			fmt.Fprintf(&b, "%d. SUCCESS: %s\n", i+1, r.Result)
			continue
		}
		hadRejections = true
		if strings.Contains(r.Error, "Policy compliance failed") {
			fmt.Fprintf(&b, "%d. REJECTED (Policy): Tool use was rejected by compliance policy.\n", i+1)
		} else {
			fmt.Fprintf(&b, "%d. ERROR: %s\n", i+1, r.Error)
		}
	}

	return b.String(), hadRejections
}
