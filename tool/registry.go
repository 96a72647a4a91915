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

// Package tool defines the synthetic tool catalog the agent pipeline may
// call: each tool publishes a JSON Schema for its arguments and the
// policy ids that govern its use, mirroring the Tool trait of the
// original hypervisor.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/sage-x-project/policy-hypervisor/policy"
)

// Tool is a synthetic capability the agent plan may invoke. Execute
// receives raw JSON arguments already validated against Schema.
type Tool interface {
	Name() string
	Description() string
	Schema() json.RawMessage
	PolicyIDs() []string
	Execute(ctx context.Context, arguments string) (string, error)
}

// Registry holds the compiled-schema tool catalog and validates arguments
// before a tool ever runs.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	schemas map[string]*jsonschema.Schema
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*jsonschema.Schema),
	}
}

// Register compiles t's JSON Schema and adds it to the catalog.
func (r *Registry) Register(t Tool) error {
	var schemaDoc any
	if err := json.Unmarshal(t.Schema(), &schemaDoc); err != nil {
		return fmt.Errorf("tool %q: unmarshal schema: %w", t.Name(), err)
	}

	c := jsonschema.NewCompiler()
	resourceName := t.Name() + ".json"
	if err := c.AddResource(resourceName, schemaDoc); err != nil {
		return fmt.Errorf("tool %q: add schema resource: %w", t.Name(), err)
	}
	compiled, err := c.Compile(resourceName)
	if err != nil {
		return fmt.Errorf("tool %q: compile schema: %w", t.Name(), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
	r.schemas[t.Name()] = compiled
	return nil
}

// Get returns the tool registered under name, if any.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns every registered tool, used by the tool self-description
// catalog endpoint.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	return out
}

// ValidateArguments checks arguments (a raw JSON object) against the
// registered tool's compiled schema.
func (r *Registry) ValidateArguments(toolName, arguments string) error {
	r.mu.RLock()
	schema, ok := r.schemas[toolName]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("tool %q not registered", toolName)
	}

	var payload any
	if err := json.Unmarshal([]byte(arguments), &payload); err != nil {
		return fmt.Errorf("unmarshal arguments: %w", err)
	}
	if err := schema.Validate(payload); err != nil {
		return fmt.Errorf("arguments do not satisfy schema: %w", err)
	}
	return nil
}

// Describe returns the tool catalog shape exposed over GET /agent/tools:
// name, description, schema, and bound policy info.
type Describe struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      json.RawMessage `json:"schema"`
	Policies    []policy.Info   `json:"policies"`
}

// Catalog builds the Describe list for every registered tool, resolving
// policy names against reg.
func (r *Registry) Catalog(policies *policy.Registry) []Describe {
	tools := r.List()
	out := make([]Describe, 0, len(tools))
	for _, t := range tools {
		out = append(out, Describe{
			Name:        t.Name(),
			Description: t.Description(),
			Schema:      t.Schema(),
			Policies:    policies.PolicyInfoForTool(t.Name()),
		})
	}
	return out
}
