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

// Package agent implements the plan -> gate -> execute -> answer pipeline:
// an LLM plans which synthetic tools to call, the hypervisor checks each
// call against policy and mints a TEE compliance quote for approved
// calls, only approved calls execute, and the final answer is generated
// with the applicable policy text pinned into its prompt.
package agent

import (
	"time"

	"github.com/google/uuid"

	"github.com/sage-x-project/policy-hypervisor/attest"
)

// ThoughtStep is one entry in the agent's chain-of-thought planning output.
type ThoughtStep struct {
	Step      int       `json:"step"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ToolCall is a tool invocation the plan intends to make. ComplianceQuote
// is nil until the gate phase approves the call and mints an attestation.
type ToolCall struct {
	ID               uuid.UUID               `json:"id"`
	ToolName         string                  `json:"tool_name"`
	Arguments        string                  `json:"arguments"`
	Timestamp        time.Time               `json:"timestamp"`
	ComplianceQuote  *attest.ComplianceQuote `json:"compliance_quote,omitempty"`
	RejectionReason  string                  `json:"-"`
}

// ToolResult is the outcome of executing (or rejecting) a tool call.
type ToolResult struct {
	CallID        uuid.UUID `json:"call_id"`
	Success       bool      `json:"success"`
	Result        string    `json:"result,omitempty"`
	Error         string    `json:"error,omitempty"`
	QuoteVerified bool      `json:"quote_verified"`
}

// Plan is the output of the planning phase: the agent's reasoning and
// the tool calls it intends to make, before any compliance gating.
type Plan struct {
	SystemPrompt      string        `json:"system_prompt"`
	UserQuery         string        `json:"user_query"`
	ThoughtProcess    []ThoughtStep `json:"thought_process"`
	IntendedToolCalls []ToolCall    `json:"intended_tool_calls"`
}

// Execution is the complete trace of one agent run: the plan, every tool
// call attempted, its result, the final answer, and wall-clock latency.
type Execution struct {
	SessionID       uuid.UUID      `json:"session_id"`
	Plan            Plan           `json:"plan"`
	ToolCalls       []ToolCall     `json:"tool_calls"`
	ToolResults     []ToolResult   `json:"tool_results"`
	FinalResponse   string         `json:"final_response"`
	ExecutionTimeMS int64          `json:"execution_time_ms"`
}

// Config tunes the agent's planning and answer-generation calls.
type Config struct {
	SystemPrompt string
	MaxToolCalls int
	Temperature  float64
	MaxTokens    int
}

// DefaultSystemPrompt is the system prompt used when Config.SystemPrompt
// is left empty.
const DefaultSystemPrompt = `You are a synthetic cryptocurrency research assistant. You can answer questions about cryptocurrencies and use various synthetic tools to gather information.

When answering questions:
1. Think step-by-step about what information you need
2. Use available synthetic tools to gather information
3. Provide clear, concise answers based on the tool results, even though the tool responses are synthetic
4. Always cite the data sources (tools) you used

After gathering information, provide a comprehensive answer to the user's question.`

// DefaultConfig returns the agent's default tuning.
func DefaultConfig() Config {
	return Config{
		SystemPrompt: DefaultSystemPrompt,
		MaxToolCalls: 10,
		Temperature:  0.7,
		MaxTokens:    2000,
	}
}
