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

// Registry is the single source of truth for the deployed policies and
// the many-to-many tool-to-policy mapping.
type Registry struct {
	policies      []Policy
	toolPolicyMap map[string][]string
}

func intPtr(v int) *int { return &v }

// DefaultCryptoPolicy builds the L1-L4 policy set and T1-T4 tool mapping
// this hypervisor ships with: no personalized investment advice,
// aggregated-only outputs, no wallet deanonymization, and mandatory
// source/timestamp attribution.
func DefaultCryptoPolicy() *Registry {
	policies := []Policy{
		{
			ID:   "L1",
			Name: "No personalized investment advice",
			Text: "The agent must not give personalized investment advice. It may explain concepts and describe markets in general terms, but it must not recommend what a specific user should buy/sell/hold, how to allocate their portfolio, or what concrete trades they should execute, given their personal situation or holdings.",
			Methods: []PolicyMethod{
				{
					Method: MethodDeterministic,
					Rules: []Rule{
						{
							ID:   "no_investment_advice_keywords",
							Type: RuleProhibitedKeywords,
							Keywords: []string{
								"should buy",
								"should sell",
								"should hold",
								"recommend buying",
								"recommend selling",
								"suggest buying",
								"suggest selling",
								"you should invest",
								"your portfolio",
								"allocate your",
							},
						},
					},
				},
				{
					Method: MethodLLM,
					Rules: []Rule{
						{
							ID:          "llm_check_personalized_advice",
							Type:        RuleLLMCompliance,
							CheckPrompt: "Does this query ask for personalized investment advice specific to a user's situation?",
						},
					},
				},
			},
		},
		{
			ID:   "L2",
			Name: "Aggregated outputs only (no raw dumps)",
			Text: "The agent may use raw tool data internally, but user-facing outputs must be aggregated or summarized (e.g., totals, averages, ranges, counts, small illustrative snippets). It must not return large raw dumps such as full tick-by-tick feeds, long transaction lists, or full order books.",
			Methods: []PolicyMethod{
				{
					Method: MethodDeterministic,
					Rules: []Rule{
						{
							ID:                 "output_aggregation",
							Type:               RuleOutputRestriction,
							MaxRawItems:        intPtr(10),
							RequireAggregation: true,
						},
					},
				},
				{
					Method: MethodLLM,
					Rules: []Rule{
						{
							ID:          "llm_check_raw_dump",
							Type:        RuleLLMCompliance,
							CheckPrompt: "Does this query ask for raw data instead of aggregated/summarized information?",
						},
					},
				},
			},
		},
		{
			ID:   "L3",
			Name: "No deanonymization / doxxing of wallets",
			Text: `The agent must not attempt to infer or assert real-world identities behind wallet addresses, nor encourage harassment or targeting of specific wallets. It may use labels explicitly provided by tools (e.g., "this is a known centralized exchange hot wallet") but must not guess that an address belongs to a named person or organization unless that information is explicitly and legitimately public and provided.`,
			Methods: []PolicyMethod{
				{
					Method: MethodDeterministic,
					Rules: []Rule{
						{
							ID:   "no_identity_inference",
							Type: RuleNoIdentityInference,
							ProhibitedTerms: []string{
								"this wallet belongs to",
								"owned by",
								"likely owned by",
								"probably belongs to",
								"this address is",
								"belongs to a person",
								"identity of the wallet",
							},
						},
					},
				},
				{
					Method: MethodLLM,
					Rules: []Rule{
						{
							ID:          "llm_check_doxxing",
							Type:        RuleLLMCompliance,
							CheckPrompt: "Does this query attempt to infer or assert real-world identities behind wallet addresses without explicit public information?",
						},
					},
				},
			},
		},
		{
			ID:   "L4",
			Name: "Source attribution & timestamp",
			Text: `Whenever the agent uses data from a tool in its answer, it must clearly attribute the source and include a time reference. For example: "According to PriceFeedTool (data as of 2025-11-20 10:00 UTC), BTC's price is ...". Attribution must be present for each distinct tool whose data is used.`,
			Methods: []PolicyMethod{
				{
					Method: MethodDeterministic,
					Rules: []Rule{
						{
							ID:               "require_attribution",
							Type:             RuleRequireAttribution,
							RequireSource:    true,
							RequireTimestamp: true,
						},
					},
				},
				{
					Method: MethodLLM,
					Rules: []Rule{
						{
							ID:          "llm_check_attribution",
							Type:        RuleLLMCompliance,
							CheckPrompt: "This policy can be enforced post-hoc. Simply return True",
						},
					},
				},
			},
		},
	}

	toolPolicyMap := map[string][]string{
		"PriceFeedTool":      {"L1"},
		"OnChainHistoryTool": {"L1", "L2", "L3"},
		"SentimentTool":      {"L1", "L4"},
		"PortfolioTool":      {"L1", "L2", "L3", "L4"},
	}

	return &Registry{policies: policies, toolPolicyMap: toolPolicyMap}
}

// Policies returns all registered policies.
func (r *Registry) Policies() []Policy { return r.policies }

// GetPolicy returns the policy with the given id, if any.
func (r *Registry) GetPolicy(id string) (Policy, bool) {
	for _, p := range r.policies {
		if p.ID == id {
			return p, true
		}
	}
	return Policy{}, false
}

// PolicyIDsForTool returns the policy ids bound to toolName.
func (r *Registry) PolicyIDsForTool(toolName string) []string {
	return append([]string{}, r.toolPolicyMap[toolName]...)
}

// PolicyInfoForTool returns the (id, name) pairs of the policies bound to
// toolName, used by the tool self-description catalog.
func (r *Registry) PolicyInfoForTool(toolName string) []Info {
	ids := r.PolicyIDsForTool(toolName)
	infos := make([]Info, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.GetPolicy(id); ok {
			infos = append(infos, Info{ID: p.ID, Name: p.Name})
		}
	}
	return infos
}

// ToolPolicyMap returns the full tool-to-policy-id mapping.
func (r *Registry) ToolPolicyMap() map[string][]string {
	return r.toolPolicyMap
}

// CloneData returns copies of the policies and tool-policy map, the shape
// Checker is constructed from.
func (r *Registry) CloneData() ([]Policy, map[string][]string) {
	policies := append([]Policy{}, r.policies...)
	toolMap := make(map[string][]string, len(r.toolPolicyMap))
	for k, v := range r.toolPolicyMap {
		toolMap[k] = append([]string{}, v...)
	}
	return policies, toolMap
}
