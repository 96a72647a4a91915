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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultPolicyStructure(t *testing.T) {
	checker := DefaultCryptoPolicyChecker()
	require.Len(t, checker.Policies(), 4)

	ids := make(map[string]bool)
	for _, p := range checker.Policies() {
		ids[p.ID] = true
	}
	require.True(t, ids["L1"])
	require.True(t, ids["L2"])
	require.True(t, ids["L3"])
	require.True(t, ids["L4"])
}

func TestToolPolicyMapping(t *testing.T) {
	checker := DefaultCryptoPolicyChecker()

	require.Equal(t, []string{"L1"}, checker.PolicyIDsForTool("PriceFeedTool"))
	require.Equal(t, []string{"L1", "L2", "L3"}, checker.PolicyIDsForTool("OnChainHistoryTool"))
	require.Equal(t, []string{"L1", "L4"}, checker.PolicyIDsForTool("SentimentTool"))
	require.Equal(t, []string{"L1", "L2", "L3", "L4"}, checker.PolicyIDsForTool("PortfolioTool"))
}

func TestComplianceL1ProhibitedKeywords(t *testing.T) {
	checker := DefaultCryptoPolicyChecker()

	plan := Plan{
		SystemPrompt: "Test system prompt",
		UserQuery:    "You should buy Bitcoin now",
	}

	result := checker.CheckCompliance(plan)
	require.False(t, result.Compliant)
	require.Contains(t, result.Reason, "should buy")
}

func TestComplianceL3IdentityInference(t *testing.T) {
	checker := DefaultCryptoPolicyChecker()

	plan := Plan{
		SystemPrompt: "Test system prompt",
		UserQuery:    "This wallet belongs to Satoshi",
	}

	result := checker.CheckCompliance(plan)
	require.False(t, result.Compliant)
	require.Contains(t, result.Reason, "belongs to")
}

func TestCompliancePassesCleanPlan(t *testing.T) {
	checker := DefaultCryptoPolicyChecker()

	plan := Plan{
		SystemPrompt: "Test system prompt",
		UserQuery:    "What is the current price of Bitcoin?",
	}

	result := checker.CheckCompliance(plan)
	require.True(t, result.Compliant)
	require.NotEmpty(t, result.PolicyHash)
	require.NotEmpty(t, result.PlanHash)
}

func TestToolComplianceCheck(t *testing.T) {
	checker := DefaultCryptoPolicyChecker()

	reason := checker.CheckToolCompliance("PriceFeedTool", "You should buy this coin", `{"symbol": "BTC"}`)
	require.Contains(t, reason, "should buy")
}

func TestLLMComplianceResult(t *testing.T) {
	compliant := LLMResult{Compliant: true, Explanation: "Passes all checks"}
	require.True(t, compliant.IsCompliant())

	nonCompliant := LLMResult{Compliant: false, Explanation: "Violates policy"}
	require.False(t, nonCompliant.IsCompliant())
}

func TestCheckToolComplianceAsyncSkipsWithoutProvider(t *testing.T) {
	checker := DefaultCryptoPolicyChecker()

	reason, err := checker.CheckToolComplianceAsync(context.Background(), nil, "PriceFeedTool", "What is the price of Bitcoin?", `{"symbol": "BTC"}`)
	require.NoError(t, err)
	require.Empty(t, reason)
}

func TestHashesStableAcrossCalls(t *testing.T) {
	checker := DefaultCryptoPolicyChecker()
	plan := Plan{UserQuery: "hello"}

	r1 := checker.CheckCompliance(plan)
	r2 := checker.CheckCompliance(plan)
	require.Equal(t, r1.PolicyHash, r2.PolicyHash)
	require.Equal(t, r1.PlanHash, r2.PlanHash)
}
