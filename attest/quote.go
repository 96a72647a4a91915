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

// Package attest binds the hypervisor's compliance decisions and final
// execution hash to a TEE quote. Parsing real TDX/SGX DCAP quote bodies
// (the version 3/4/5 binary layouts a hardware quoting enclave produces)
// is out of scope here — per-tool compliance quote verification is
// explicitly dummy/structural, never real hardware quote verification —
// so this package defines a minimal quote envelope that carries a real
// header version and the 64-byte report_data field every DCAP quote
// version agrees on, and a software provider that fills it in.
package attest

import (
	"context"
	"encoding/binary"
	"fmt"
)

// HeaderLen is the size of the quote header, matching the DCAP quote
// header layout (version, attestation key type, TEE type, QE vendor,
// user data) this envelope mirrors.
const HeaderLen = 48

// ReportDataLen is the length of the report_data field embedded in every
// quote body version, the channel compliance and execution hashes ride in.
const ReportDataLen = 64

// Version identifies which quote body layout a Quote carries.
type Version uint16

const (
	VersionSGX  Version = 3
	VersionTD10 Version = 4
	VersionTD15 Version = 5
)

// Quote is a parsed attestation quote: a header plus opaque raw bytes,
// with report_data cheaply accessible without decoding the full body.
type Quote struct {
	raw        []byte
	version    Version
	reportData [ReportDataLen]byte
}

// QuoteError reports a malformed quote.
type QuoteError struct {
	Reason string
}

func (e *QuoteError) Error() string { return "attest: " + e.Reason }

// FromBytes parses a quote envelope previously produced by Provider.GetQuote.
func FromBytes(b []byte) (*Quote, error) {
	if len(b) < HeaderLen+ReportDataLen {
		return nil, &QuoteError{Reason: fmt.Sprintf("invalid header size: %d", len(b))}
	}

	version := Version(binary.LittleEndian.Uint16(b[0:2]))
	switch version {
	case VersionSGX, VersionTD10, VersionTD15:
	default:
		return nil, &QuoteError{Reason: fmt.Sprintf("unknown quote version: %d", version)}
	}

	q := &Quote{raw: append([]byte{}, b...), version: version}
	copy(q.reportData[:], b[HeaderLen:HeaderLen+ReportDataLen])
	return q, nil
}

// ToBytes returns the raw quote bytes.
func (q *Quote) ToBytes() []byte { return q.raw }

// ReportData returns the 64-byte report_data field, the binding point for
// compliance hashes and the final execution hash.
func (q *Quote) ReportData() [ReportDataLen]byte { return q.reportData }

// Version reports which quote body layout this quote carries.
func (q *Quote) Version() Version { return q.version }

// RawReportFromHash embeds a 32-byte hash into the first half of a 64-byte
// report_data value, zeroing the rest, mirroring
// generate_raw_report_from_hash.
func RawReportFromHash(hash [32]byte) [ReportDataLen]byte {
	var report [ReportDataLen]byte
	copy(report[:], hash[:])
	return report
}

// GenerateQuoteForHash embeds hash into a fresh report and obtains a quote
// over it. Used for the session-handshake quote (hash of session_pk ||
// session_id) and the execution-hash quote returned by verifiable_query,
// the two report bindings in the spec that aren't per-tool compliance
// decisions and so don't need ComplianceQuote's extra bookkeeping.
func GenerateQuoteForHash(ctx context.Context, provider Provider, hash [32]byte) (*Quote, error) {
	report := RawReportFromHash(hash)
	quote, err := provider.GetQuote(ctx, report)
	if err != nil {
		return nil, fmt.Errorf("generate quote for hash: %w", err)
	}
	return quote, nil
}

// buildQuote assembles a minimal quote envelope: a header carrying version
// and a zeroed remainder, followed by report_data. This is the software
// provider's quote shape; a hardware-backed provider would instead hand
// back the quoting enclave's real signed structure.
func buildQuote(version Version, report [ReportDataLen]byte) []byte {
	buf := make([]byte, HeaderLen+ReportDataLen)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(version))
	copy(buf[HeaderLen:], report[:])
	return buf
}
