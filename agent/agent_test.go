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
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/sage-x-project/policy-hypervisor/llm"
	"github.com/sage-x-project/policy-hypervisor/policy"
	"github.com/sage-x-project/policy-hypervisor/tool"
)

// scriptedProvider returns queued responses in order, one per Complete
// call, so a test can drive the plan then answer stages deterministically
// without a real model.
type scriptedProvider struct {
	responses []string
	calls     int
}

func (p *scriptedProvider) Complete(ctx context.Context, messages []llm.Message) (*llm.Response, error) {
	if p.calls >= len(p.responses) {
		return &llm.Response{Content: ""}, nil
	}
	resp := p.responses[p.calls]
	p.calls++
	return &llm.Response{Content: resp}, nil
}

func (p *scriptedProvider) CompleteJSON(ctx context.Context, req llm.CompletionRequest, out interface{}) error {
	return nil
}

func (p *scriptedProvider) CompleteWithParams(ctx context.Context, req llm.CompletionRequest) (*llm.Response, error) {
	return p.Complete(ctx, nil)
}

func newTestAgent(t *testing.T, responses []string) *Agent {
	t.Helper()
	reg := tool.NewRegistry()
	require.NoError(t, tool.RegisterDefaultTools(reg))

	checker := policy.DefaultCryptoPolicyChecker()
	provider := &scriptedProvider{responses: responses}

	return New(DefaultConfig(), reg, checker, provider, nil)
}

func TestPlanParsesThoughtsAndToolCalls(t *testing.T) {
	a := newTestAgent(t, []string{
		"THOUGHT: I need the current price\nTOOL_CALL: {\"tool\": \"PriceFeedTool\", \"arguments\": {\"symbol\": \"BTC\"}}",
	})

	plan, err := a.Plan(context.Background(), "What is the price of BTC?")
	require.NoError(t, err)
	require.Len(t, plan.ThoughtProcess, 1)
	require.Len(t, plan.IntendedToolCalls, 1)
	require.Equal(t, "PriceFeedTool", plan.IntendedToolCalls[0].ToolName)
}

func TestExecuteApprovesAndRunsCleanQuery(t *testing.T) {
	a := newTestAgent(t, []string{
		"THOUGHT: need price\nTOOL_CALL: {\"tool\": \"PriceFeedTool\", \"arguments\": {\"symbol\": \"BTC\"}}",
		"According to PriceFeedTool (data as of synthetic-timestamp UTC), BTC is priced accordingly.",
	})

	sessionID, err := uuid.NewV7()
	require.NoError(t, err)

	exec, err := a.Execute(context.Background(), "What is the price of BTC?", sessionID, false)
	require.NoError(t, err)
	require.Len(t, exec.ToolResults, 1)
	require.True(t, exec.ToolResults[0].Success)
	require.NotEmpty(t, exec.FinalResponse)
}

func TestExecuteRejectsPolicyViolatingQuery(t *testing.T) {
	a := newTestAgent(t, []string{
		"THOUGHT: user wants advice\nTOOL_CALL: {\"tool\": \"PriceFeedTool\", \"arguments\": {\"symbol\": \"BTC\"}}",
		"IMPOSSIBLE: cannot give personalized investment advice.",
	})

	sessionID, err := uuid.NewV7()
	require.NoError(t, err)

	exec, err := a.Execute(context.Background(), "You should buy Bitcoin now", sessionID, false)
	require.NoError(t, err)
	require.Len(t, exec.ToolResults, 1)
	require.False(t, exec.ToolResults[0].Success)
	require.Contains(t, exec.ToolResults[0].Error, "Policy compliance failed")
}

func TestExecuteRejectsUnknownTool(t *testing.T) {
	a := newTestAgent(t, []string{
		"THOUGHT: need made-up tool\nTOOL_CALL: {\"tool\": \"NoSuchTool\", \"arguments\": {}}",
		"IMPOSSIBLE: no suitable tool available.",
	})

	sessionID, err := uuid.NewV7()
	require.NoError(t, err)

	exec, err := a.Execute(context.Background(), "Do something unsupported", sessionID, false)
	require.NoError(t, err)
	require.Len(t, exec.ToolResults, 1)
	require.False(t, exec.ToolResults[0].Success)
	require.Contains(t, exec.ToolResults[0].Error, "not found")
}
