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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashComplianceDataDeterministic(t *testing.T) {
	a := HashComplianceData("price_feed", true, []string{"L2", "L1"}, "how much is BTC", `{"symbol":"BTC"}`)
	b := HashComplianceData("price_feed", true, []string{"L1", "L2"}, "how much is BTC", `{"symbol":"BTC"}`)
	require.Equal(t, a, b, "policy id order must not affect the hash")

	c := HashComplianceData("price_feed", false, []string{"L1", "L2"}, "how much is BTC", `{"symbol":"BTC"}`)
	require.NotEqual(t, a, c)
}

func TestGenerateAndVerifyComplianceQuote(t *testing.T) {
	provider := NewSoftwareProvider()
	quote, err := GenerateComplianceQuote(context.Background(), provider, "price_feed", true, []string{"L1"}, "how much is BTC", "{}")
	require.NoError(t, err)

	ok, err := VerifyComplianceQuoteDummy(quote, "price_feed")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = VerifyComplianceQuoteDummy(quote, "portfolio")
	require.NoError(t, err)
	require.False(t, ok)
}
