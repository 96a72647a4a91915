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

	"github.com/sage-x-project/policy-hypervisor/attest"
)

// execute runs every approved tool call and synthesizes a rejection
// result for every rejected one, returning them in a single slice in the
// order the caller should report them.
func (a *Agent) execute(ctx context.Context, g *gateResult) []ToolResult {
	results := make([]ToolResult, 0, len(g.approved)+len(g.rejected))

	for _, call := range g.approved {
		quoteVerified := false
		if call.ComplianceQuote != nil {
			ok, err := attest.VerifyComplianceQuoteDummy(call.ComplianceQuote, call.ToolName)
			quoteVerified = err == nil && ok
		}

		t, ok := a.tools.Get(call.ToolName)
		if !ok {
			results = append(results, ToolResult{
				CallID:        call.ID,
				Success:       false,
				Error:         fmt.Sprintf("tool '%s' disappeared from registry between gate and execute", call.ToolName),
				QuoteVerified: quoteVerified,
			})
			continue
		}

		out, err := t.Execute(ctx, call.Arguments)
		if err != nil {
			results = append(results, ToolResult{
				CallID:        call.ID,
				Success:       false,
				Error:         err.Error(),
				QuoteVerified: quoteVerified,
			})
			continue
		}

		results = append(results, ToolResult{
			CallID:        call.ID,
			Success:       true,
			Result:        out,
			QuoteVerified: quoteVerified,
		})
	}

	for _, call := range g.rejected {
		results = append(results, ToolResult{
			CallID:  call.ID,
			Success: false,
			Error:   fmt.Sprintf("Policy compliance failed: %s", call.RejectionReason),
		})
	}

	return results
}
