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

package session

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	hvcrypto "github.com/sage-x-project/policy-hypervisor/crypto"
)

func TestRegistryCreateAndGet(t *testing.T) {
	reg := NewRegistry()
	user, err := hvcrypto.GenerateKeyPair()
	require.NoError(t, err)

	entry, err := reg.Create(user.Public)
	require.NoError(t, err)
	require.NotNil(t, entry.KeyPair)
	require.NotEqual(t, uuid.Nil, entry.SessionID)

	got, ok := reg.Get(user.Public)
	require.True(t, ok)
	require.Equal(t, entry.SessionID, got.SessionID)
}

func TestRegistryCreateReplacesPriorSession(t *testing.T) {
	reg := NewRegistry()
	user, err := hvcrypto.GenerateKeyPair()
	require.NoError(t, err)

	first, err := reg.Create(user.Public)
	require.NoError(t, err)
	second, err := reg.Create(user.Public)
	require.NoError(t, err)

	require.NotEqual(t, first.SessionID, second.SessionID)
	require.Equal(t, 1, reg.Len())

	got, ok := reg.Get(user.Public)
	require.True(t, ok)
	require.Equal(t, second.SessionID, got.SessionID)
}

func TestRegistryGetUnknownKey(t *testing.T) {
	reg := NewRegistry()
	user, err := hvcrypto.GenerateKeyPair()
	require.NoError(t, err)

	_, ok := reg.Get(user.Public)
	require.False(t, ok)
}
