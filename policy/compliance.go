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

package policy

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"lukechampine.com/blake3"

	"github.com/sage-x-project/policy-hypervisor/llm"
)

// ToolCallInput is the reduced shape of a planned tool call the compliance
// checker needs: enough to evaluate keyword/pattern rules against, without
// the agent package's full bookkeeping (timestamps, ids, quotes).
type ToolCallInput struct {
	ToolName  string
	Arguments string
}

// Plan is the reduced shape of an agent plan the compliance checker
// evaluates and hashes for attestation.
type Plan struct {
	SystemPrompt   string
	UserQuery      string
	ThoughtProcess []string
	ToolCalls      []ToolCallInput
}

// Result is the outcome of checking a full plan against every
// deterministic policy rule.
type Result struct {
	Compliant  bool
	Reason     string
	PolicyHash string
	PlanHash   string
}

// LLMResult is the parsed response of an LLM-mediated compliance rule.
type LLMResult struct {
	Compliant   bool   `json:"compliant"`
	Explanation string `json:"explanation"`
}

// IsCompliant reports the LLM's verdict.
func (r LLMResult) IsCompliant() bool { return r.Compliant }

// Checker evaluates agent plans and individual tool calls against a set
// of policies and a tool-to-policy mapping.
type Checker struct {
	policies      []Policy
	toolPolicyMap map[string][]string
}

// NewChecker builds a Checker from an explicit policy set and mapping.
func NewChecker(policies []Policy, toolPolicyMap map[string][]string) *Checker {
	return &Checker{policies: policies, toolPolicyMap: toolPolicyMap}
}

// DefaultCryptoPolicyChecker builds a Checker from the L1-L4/T1-T4 default
// registry.
func DefaultCryptoPolicyChecker() *Checker {
	reg := DefaultCryptoPolicy()
	policies, toolMap := reg.CloneData()
	return &Checker{policies: policies, toolPolicyMap: toolMap}
}

// Policies returns the policies this checker evaluates against.
func (c *Checker) Policies() []Policy { return c.policies }

// PolicyIDsForTool returns the policy ids bound to toolName.
func (c *Checker) PolicyIDsForTool(toolName string) []string {
	return append([]string{}, c.toolPolicyMap[toolName]...)
}

// CheckCompliance runs every deterministic rule in every policy against
// the full plan, returning the first violation found (if any) along with
// the plan and policy-set hashes bound into the compliance quote.
func (c *Checker) CheckCompliance(plan Plan) Result {
	planHash := c.hashPlan(plan)
	policyHash := c.hashPolicies()

	for _, p := range c.policies {
		for _, method := range p.Methods {
			if method.Method != MethodDeterministic {
				continue
			}
			for _, rule := range method.Rules {
				if err := c.checkRule(rule, plan, ""); err != "" {
					return Result{
						Compliant:  false,
						Reason:     fmt.Sprintf("Policy '%s' (%s) rule '%s' violated: %s", p.ID, p.Name, rule.ID, err),
						PolicyHash: hex.EncodeToString(policyHash[:]),
						PlanHash:   hex.EncodeToString(planHash[:]),
					}
				}
			}
		}
	}

	return Result{
		Compliant:  true,
		Reason:     "All policy checks passed",
		PolicyHash: hex.EncodeToString(policyHash[:]),
		PlanHash:   hex.EncodeToString(planHash[:]),
	}
}

// CheckToolCompliance runs every deterministic rule bound to toolName
// against a single proposed call, returning a non-empty reason on the
// first violation.
func (c *Checker) CheckToolCompliance(toolName, userQuery, toolArguments string) string {
	policyIDs := c.PolicyIDsForTool(toolName)
	if len(policyIDs) == 0 {
		return ""
	}

	plan := Plan{
		UserQuery: userQuery,
		ToolCalls: []ToolCallInput{{ToolName: toolName, Arguments: toolArguments}},
	}

	for _, id := range policyIDs {
		p, ok := c.policyByID(id)
		if !ok {
			return fmt.Sprintf("Policy '%s' not found for tool '%s'", id, toolName)
		}
		for _, method := range p.Methods {
			if method.Method != MethodDeterministic {
				continue
			}
			for _, rule := range method.Rules {
				if err := c.checkRule(rule, plan, ""); err != "" {
					return fmt.Sprintf("Tool '%s' policy '%s' (%s) rule '%s' violated: %s", toolName, p.ID, p.Name, rule.ID, err)
				}
			}
		}
	}
	return ""
}

// CheckToolComplianceAsync additionally runs LLM-mediated rules when a
// provider is supplied; when provider is nil the LLM checks are skipped,
// matching the "no API key, skip LLM checks" behavior of the original.
func (c *Checker) CheckToolComplianceAsync(ctx context.Context, provider llm.Provider, toolName, userQuery, toolArguments string) (string, error) {
	policyIDs := c.PolicyIDsForTool(toolName)
	if len(policyIDs) == 0 {
		return "", nil
	}

	for _, id := range policyIDs {
		p, ok := c.policyByID(id)
		if !ok {
			return fmt.Sprintf("Policy '%s' not found for tool '%s'", id, toolName), nil
		}

		plan := Plan{
			UserQuery: userQuery,
			ToolCalls: []ToolCallInput{{ToolName: toolName, Arguments: toolArguments}},
		}

		for _, method := range p.Methods {
			switch method.Method {
			case MethodDeterministic:
				for _, rule := range method.Rules {
					if err := c.checkRule(rule, plan, ""); err != "" {
						return fmt.Sprintf("Tool '%s' policy '%s' (%s) rule '%s' violated: %s", toolName, p.ID, p.Name, rule.ID, err), nil
					}
				}
			case MethodLLM:
				if provider == nil {
					continue
				}
				for _, rule := range method.Rules {
					reason, err := c.checkLLMRule(ctx, provider, rule, p.Text, toolName, userQuery, toolArguments)
					if err != nil {
						return "", err
					}
					if reason != "" {
						return fmt.Sprintf("Tool '%s' policy '%s' (%s) LLM rule '%s' violated: %s", toolName, p.ID, p.Name, rule.ID, reason), nil
					}
				}
			}
		}
	}
	return "", nil
}

func (c *Checker) checkLLMRule(ctx context.Context, provider llm.Provider, rule Rule, policyText, toolName, userQuery, toolArguments string) (string, error) {
	if rule.Type != RuleLLMCompliance {
		return "", nil
	}

	promptContext := fmt.Sprintf("Tool: %s\nUser Query: %s\nTool Arguments: %s", toolName, userQuery, toolArguments)
	prompt := fmt.Sprintf(
		"Policy: %s\n\n%s\n\nContext:\n%s\n\nPlease respond in JSON format with two fields:\n1. \"compliant\": true or false\n2. \"explanation\": a brief explanation of your decision\n\nExample: {\"compliant\": true, \"explanation\": \"The query does not violate the policy because...\"}",
		policyText, rule.CheckPrompt, promptContext,
	)

	var result LLMResult
	err := provider.CompleteJSON(ctx, llm.CompletionRequest{
		SystemPrompt: "You are a compliance checker that examines whether the tool use of the LLM agent complies with the policy set by the tool owner. Respond with a JSON object containing 'compliant' (boolean) and 'explanation' (string).",
		UserPrompt:   prompt,
		Temperature:  0.0,
		MaxTokens:    150,
	}, &result)
	if err != nil {
		return "", fmt.Errorf("llm compliance check: %w", err)
	}

	if !result.IsCompliant() {
		return fmt.Sprintf("LLM compliance check failed: %s", result.Explanation), nil
	}
	return "", nil
}

// PolicyByID returns the policy with the given id, if this checker
// evaluates against it.
func (c *Checker) PolicyByID(id string) (Policy, bool) {
	return c.policyByID(id)
}

func (c *Checker) policyByID(id string) (Policy, bool) {
	for _, p := range c.policies {
		if p.ID == id {
			return p, true
		}
	}
	return Policy{}, false
}

// checkRule evaluates a single rule against plan, and against response
// when the rule is one of the output-facing kinds (OutputRestriction,
// NoIdentityInference, RequireAttribution). Returns "" when the rule is
// satisfied, else a human-readable violation reason.
func (c *Checker) checkRule(rule Rule, plan Plan, response string) string {
	switch rule.Type {
	case RuleProhibitedKeywords:
		queryLower := strings.ToLower(plan.UserQuery)
		systemLower := strings.ToLower(plan.SystemPrompt)
		for _, kw := range rule.Keywords {
			kwLower := strings.ToLower(kw)
			if strings.Contains(queryLower, kwLower) {
				return fmt.Sprintf("Prohibited keyword '%s' found in user query", kw)
			}
			if strings.Contains(systemLower, kwLower) {
				return fmt.Sprintf("Prohibited keyword '%s' found in system prompt", kw)
			}
			for _, call := range plan.ToolCalls {
				if strings.Contains(strings.ToLower(call.Arguments), kwLower) {
					return fmt.Sprintf("Prohibited keyword '%s' found in tool arguments", kw)
				}
			}
		}
		return ""

	case RuleRequiredAbsentPatterns:
		queryLower := strings.ToLower(plan.UserQuery)
		for _, pattern := range rule.Keywords {
			if strings.Contains(queryLower, strings.ToLower(pattern)) {
				return fmt.Sprintf("Prohibited pattern '%s' found", pattern)
			}
		}
		return ""

	case RuleOutputRestriction:
		if response == "" {
			return ""
		}
		if rule.RequireAggregation {
			respLower := strings.ToLower(response)
			hasAgg := strings.Contains(respLower, "total") ||
				strings.Contains(respLower, "average") ||
				strings.Contains(respLower, "summary") ||
				strings.Contains(respLower, "aggregated")
			if !hasAgg {
				return "Response should contain aggregated data"
			}
		}
		return ""

	case RuleNoIdentityInference:
		queryLower := strings.ToLower(plan.UserQuery)
		for _, term := range rule.ProhibitedTerms {
			if strings.Contains(queryLower, strings.ToLower(term)) {
				return fmt.Sprintf("Identity inference term '%s' found", term)
			}
		}
		if response != "" {
			respLower := strings.ToLower(response)
			for _, term := range rule.ProhibitedTerms {
				if strings.Contains(respLower, strings.ToLower(term)) {
					return fmt.Sprintf("Identity inference term '%s' found in response", term)
				}
			}
		}
		return ""

	case RuleRequireAttribution:
		if response == "" {
			return ""
		}
		respLower := strings.ToLower(response)
		if rule.RequireSource {
			hasSource := strings.Contains(respLower, "according to") ||
				strings.Contains(respLower, "source:") ||
				strings.Contains(respLower, "from")
			if !hasSource {
				return "Response must include source attribution"
			}
		}
		if rule.RequireTimestamp {
			hasTimestamp := strings.Contains(respLower, "as of") ||
				strings.Contains(respLower, "timestamp") ||
				strings.Contains(respLower, "utc") ||
				strings.Contains(respLower, "time:")
			if !hasTimestamp {
				return "Response must include timestamp"
			}
		}
		return ""

	case RuleLLMCompliance:
		// Handled separately by CheckToolComplianceAsync; a direct
		// checkRule call on this type is always a pass.
		return ""

	default:
		return ""
	}
}

// CheckOutputRules runs the output-facing deterministic rules (the ones
// that only bite when a response is available) bound to toolName against
// a generated response. Nothing in the agent pipeline calls it.
func (c *Checker) CheckOutputRules(toolName, response string) string {
	for _, id := range c.PolicyIDsForTool(toolName) {
		p, ok := c.policyByID(id)
		if !ok {
			continue
		}
		for _, method := range p.Methods {
			if method.Method != MethodDeterministic {
				continue
			}
			for _, rule := range method.Rules {
				if err := c.checkRule(rule, Plan{}, response); err != "" {
					return fmt.Sprintf("Policy '%s' (%s) rule '%s' violated: %s", p.ID, p.Name, rule.ID, err)
				}
			}
		}
	}
	return ""
}

// hashPlan produces the deterministic BLAKE3 digest a compliance result's
// plan_hash reports: system prompt, user query, thought process contents,
// and each tool call's name and arguments, in order.
func (c *Checker) hashPlan(plan Plan) [32]byte {
	h := blake3.New(32, nil)
	h.Write([]byte(plan.SystemPrompt))
	h.Write([]byte(plan.UserQuery))
	for _, step := range plan.ThoughtProcess {
		h.Write([]byte(step))
	}
	for _, call := range plan.ToolCalls {
		h.Write([]byte(call.ToolName))
		h.Write([]byte(call.Arguments))
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// hashPolicies produces the deterministic BLAKE3 digest of the full
// policy set, so a compliance quote also attests to which policy
// definitions were in force.
func (c *Checker) hashPolicies() [32]byte {
	h := blake3.New(32, nil)
	for _, p := range c.policies {
		h.Write([]byte(p.ID))
		h.Write([]byte(p.Name))
		h.Write([]byte(p.Text))
		for _, method := range p.Methods {
			h.Write([]byte(method.Method))
			for _, rule := range method.Rules {
				h.Write([]byte(rule.ID))
				h.Write([]byte(rule.Type))
				for _, kw := range rule.Keywords {
					h.Write([]byte(kw))
				}
				for _, term := range rule.ProhibitedTerms {
					h.Write([]byte(term))
				}
				h.Write([]byte(rule.CheckPrompt))
			}
		}
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
