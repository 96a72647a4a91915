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

package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sage-x-project/policy-hypervisor/policy"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	require.NoError(t, RegisterDefaultTools(reg))
	return reg
}

func TestRegisterDefaultTools(t *testing.T) {
	reg := newTestRegistry(t)
	require.Len(t, reg.List(), 4)

	for _, name := range []string{"PriceFeedTool", "OnChainHistoryTool", "SentimentTool", "PortfolioTool"} {
		_, ok := reg.Get(name)
		require.True(t, ok, "expected %s to be registered", name)
	}
}

func TestValidateArgumentsAccepts(t *testing.T) {
	reg := newTestRegistry(t)
	err := reg.ValidateArguments("PriceFeedTool", `{"symbol": "BTC"}`)
	require.NoError(t, err)
}

func TestValidateArgumentsRejectsMissingRequired(t *testing.T) {
	reg := newTestRegistry(t)
	err := reg.ValidateArguments("PriceFeedTool", `{}`)
	require.Error(t, err)
}

func TestValidateArgumentsRejectsUnknownTool(t *testing.T) {
	reg := newTestRegistry(t)
	err := reg.ValidateArguments("NoSuchTool", `{}`)
	require.Error(t, err)
}

func TestPriceFeedToolExecute(t *testing.T) {
	tool := PriceFeedTool{}
	out, err := tool.Execute(context.Background(), `{"symbol": "btc"}`)
	require.NoError(t, err)
	require.Contains(t, out, `"symbol":"BTC"`)
}

func TestOnChainHistoryToolExecuteRequiresAddress(t *testing.T) {
	tool := OnChainHistoryTool{}
	_, err := tool.Execute(context.Background(), `{"address": ""}`)
	require.Error(t, err)
}

func TestCatalogResolvesPolicies(t *testing.T) {
	reg := newTestRegistry(t)
	policies := policy.DefaultCryptoPolicy()

	catalog := reg.Catalog(policies)
	require.Len(t, catalog, 4)

	for _, d := range catalog {
		require.NotEmpty(t, d.Policies, "tool %s should have bound policies", d.Name)
	}
}
