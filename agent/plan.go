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
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sage-x-project/policy-hypervisor/llm"
)

const planningSystemPrompt = "You are a planning assistant that helps determine which synthetic tools to use."

const planningPromptTemplate = `You are an in-house synthetic assistant planning how to answer a question about cryptocurrencies with synthetic tools.

%s

User question: %s

Please analyze this question and plan which synthetic tools you need to use. For each tool you want to use, provide:
1. Your reasoning for why you need this tool
2. The exact tool call in JSON format

Respond in this format:
THOUGHT: [your reasoning]
TOOL_CALL: {"tool": "tool_name_1", "arguments": {"param": "value_1"}}
THOUGHT: [your reasoning]
TOOL_CALL: {"tool": "tool_name_2", "arguments": {"param": "value_2"}}

If no tools are needed, output only a THOUGHT explaining your reasoning.
THOUGHT: [your reasoning]

You can specify multiple THOUGHT/TOOL_CALL pairs if you need multiple tools.
`

// Plan asks the LLM to plan which tools to call for userQuery and returns
// the resulting plan. Compliance gating happens in a later phase; nothing
// here has been approved yet.
func (a *Agent) Plan(ctx context.Context, userQuery string) (*Plan, error) {
	toolDescriptions := a.toolDescriptions()
	prompt := fmt.Sprintf(planningPromptTemplate, toolDescriptions, userQuery)

	resp, err := a.llmProvider.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: planningSystemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	})
	if err != nil {
		return nil, fmt.Errorf("llm planning call: %w", err)
	}

	thoughtProcess, toolCalls := parsePlanningResponse(resp.Content)

	return &Plan{
		SystemPrompt:      a.config.SystemPrompt,
		UserQuery:         userQuery,
		ThoughtProcess:    thoughtProcess,
		IntendedToolCalls: toolCalls,
	}, nil
}

// toolDescriptions renders the registered tool catalog into the plain-text
// block the planning prompt embeds.
func (a *Agent) toolDescriptions() string {
	var b strings.Builder
	b.WriteString("Available synthetic tools:\n")
	for _, t := range a.tools.List() {
		fmt.Fprintf(&b, "- %s: %s\n  parameters: %s\n", t.Name(), t.Description(), string(t.Schema()))
	}
	return b.String()
}

// parsePlanningResponse extracts THOUGHT:/TOOL_CALL: lines from the LLM's
// planning output. Malformed TOOL_CALL lines are skipped rather than
// failing the whole plan, since a single bad line shouldn't block an
// otherwise-useful thought process.
func parsePlanningResponse(text string) ([]ThoughtStep, []ToolCall) {
	var thoughts []ThoughtStep
	var calls []ToolCall
	step := 1

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(line, "THOUGHT:"):
			content := strings.TrimSpace(strings.TrimPrefix(line, "THOUGHT:"))
			if content == "" {
				continue
			}
			thoughts = append(thoughts, ThoughtStep{
				Step:      step,
				Content:   content,
				Timestamp: time.Now(),
			})
			step++

		case strings.HasPrefix(line, "TOOL_CALL:"):
			raw := strings.TrimSpace(strings.TrimPrefix(line, "TOOL_CALL:"))
			var spec struct {
				Tool      string          `json:"tool"`
				Arguments json.RawMessage `json:"arguments"`
			}
			if err := json.Unmarshal([]byte(raw), &spec); err != nil {
				continue
			}
			if spec.Tool == "" || len(spec.Arguments) == 0 {
				continue
			}
			id, err := uuid.NewV7()
			if err != nil {
				continue
			}
			calls = append(calls, ToolCall{
				ID:        id,
				ToolName:  spec.Tool,
				Arguments: string(spec.Arguments),
				Timestamp: time.Now(),
			})
		}
	}

	return thoughts, calls
}
