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

package attest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"lukechampine.com/blake3"
)

// ComplianceQuote binds a single per-tool compliance decision to a TEE
// quote: the hash embedded in the quote's report_data lets a relying
// party check that the decision the hypervisor claims to have made is the
// one actually attested to.
type ComplianceQuote struct {
	ToolName       string
	Compliant      bool
	QuoteBytes     []byte
	ComplianceHash [32]byte
	Timestamp      time.Time
}

// GenerateComplianceQuote hashes a compliance decision and its inputs,
// embeds the hash in a fresh TEE quote, and returns the packaged result.
func GenerateComplianceQuote(ctx context.Context, provider Provider, toolName string, compliant bool, policyIDs []string, userQuery, arguments string) (*ComplianceQuote, error) {
	hash := HashComplianceData(toolName, compliant, policyIDs, userQuery, arguments)

	var report [ReportDataLen]byte
	copy(report[:], hash[:])

	quote, err := provider.GetQuote(ctx, report)
	if err != nil {
		return nil, fmt.Errorf("generate compliance quote: %w", err)
	}

	return &ComplianceQuote{
		ToolName:       toolName,
		Compliant:      compliant,
		QuoteBytes:     quote.ToBytes(),
		ComplianceHash: hash,
		Timestamp:      time.Now(),
	}, nil
}

// HashComplianceData produces the deterministic BLAKE3 digest a compliance
// quote's report_data commits to: a version prefix, the tool name, the
// compliance verdict byte, the policy ids sorted for determinism, the user
// query, and the tool arguments.
func HashComplianceData(toolName string, compliant bool, policyIDs []string, userQuery, arguments string) [32]byte {
	h := blake3.New(32, nil)
	h.Write([]byte("COMPLIANCE_V1"))
	h.Write([]byte(toolName))
	if compliant {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}

	sorted := append([]string{}, policyIDs...)
	sort.Strings(sorted)
	for _, id := range sorted {
		h.Write([]byte(id))
	}

	h.Write([]byte(userQuery))
	h.Write([]byte(arguments))

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// VerifyComplianceQuoteDummy performs the same structural-only check the
// original hypervisor calls "dummy verification": it confirms the tool
// name matches, the quote bytes parse, and the embedded report_data
// matches the claimed compliance hash. It does not check a quote
// signature or certificate chain — real hardware quote verification is a
// non-goal of this repository.
func VerifyComplianceQuoteDummy(quote *ComplianceQuote, expectedToolName string) (bool, error) {
	if quote.ToolName != expectedToolName {
		return false, nil
	}
	if len(quote.QuoteBytes) == 0 {
		return false, nil
	}

	parsed, err := FromBytes(quote.QuoteBytes)
	if err != nil {
		return false, fmt.Errorf("verify compliance quote: %w", err)
	}

	reportData := parsed.ReportData()
	var embedded [32]byte
	copy(embedded[:], reportData[:32])

	return embedded == quote.ComplianceHash, nil
}
