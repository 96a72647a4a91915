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

// Package llm is the chat-completions client the agent pipeline and the
// LLM-mediated compliance rules call through: planning, final-answer
// synthesis, and policy checks all go through the same Provider interface.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Role identifies the sender of a message in the chat conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry in a chat conversation.
type Message struct {
	Role    Role
	Content string
}

// Response holds an LLM's reply along with token usage metadata.
type Response struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// CompletionRequest is the common shape of every call the agent pipeline
// and compliance engine make: a system prompt, a user prompt, and the
// sampling parameters the original implementation pins per call site.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
	// JSONObject is carried with the request but OpenAIProvider does not
	// read it: no structured-output mode is requested, and CompleteJSON
	// recovers the JSON object from the reply text instead.
	JSONObject bool
}

// Provider is the interface for LLM backends. Implementations must be
// safe for concurrent use.
type Provider interface {
	Complete(ctx context.Context, messages []Message) (*Response, error)
	// CompleteJSON runs req and unmarshals the response content into out.
	CompleteJSON(ctx context.Context, req CompletionRequest, out interface{}) error
	// CompleteWithParams runs a single system/user exchange honoring
	// req's sampling parameters, for callers (the /openai/query surface)
	// that let a caller choose temperature and max tokens per request
	// rather than pinning them per call site the way the agent pipeline
	// and compliance engine do.
	CompleteWithParams(ctx context.Context, req CompletionRequest) (*Response, error)
}

// extractJSON trims Markdown code fences an LLM sometimes wraps a JSON
// response in, then returns the text from the first '{' to the last '}',
// so prose around a JSON object is tolerated. Content with no such span
// is an error.
func extractJSON(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	start := strings.IndexByte(trimmed, '{')
	end := strings.LastIndexByte(trimmed, '}')
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("no JSON object found in response")
	}
	return trimmed[start : end+1], nil
}

func unmarshalJSONResponse(content string, out interface{}) error {
	jsonStr, err := extractJSON(content)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(jsonStr), out); err != nil {
		return fmt.Errorf("parse LLM JSON response: %w (response: %s)", err, content)
	}
	return nil
}
