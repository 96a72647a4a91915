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

// Package session holds the in-process registry that maps a requesting
// user's long-lived public key to the ephemeral session key pair and
// session id the hypervisor minted for them. There is no persistence and
// no expiry: a session lives exactly as long as the process, and a second
// create_keypair call for the same user key replaces the first.
package session

import (
	"sync"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/google/uuid"

	hvcrypto "github.com/sage-x-project/policy-hypervisor/crypto"
	"github.com/sage-x-project/policy-hypervisor/internal/metrics"
)

// Entry is one live session: the ephemeral key pair the hypervisor
// generated on the user's behalf, and the session id bound to it.
type Entry struct {
	KeyPair   *hvcrypto.KeyPair
	SessionID uuid.UUID
}

// Registry maps a user's compressed public key (hex-encoded, used as the
// map key since secp256k1.PublicKey is not itself comparable/hashable) to
// its current session Entry. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Entry
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Entry)}
}

// Create mints a fresh ephemeral session key pair and a UUIDv7 session id
// for userPubKey, replacing (and zeroizing) any prior entry for the same
// key — last writer wins, matching the single-entry-per-user semantics of
// a DashMap keyed by encoded point in the original implementation.
func (r *Registry) Create(userPubKey *secp256k1.PublicKey) (*Entry, error) {
	kp, err := hvcrypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}

	sessionID, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	entry := &Entry{KeyPair: kp, SessionID: sessionID}

	key := hvcrypto.EncodePublicKeyHex(userPubKey)
	r.mu.Lock()
	if old, ok := r.sessions[key]; ok {
		zeroize(old)
	}
	r.sessions[key] = entry
	active := len(r.sessions)
	r.mu.Unlock()

	metrics.SessionsCreated.WithLabelValues("ok").Inc()
	metrics.SessionsActive.Set(float64(active))

	return entry, nil
}

// Get returns the current session entry for userPubKey, if one exists.
func (r *Registry) Get(userPubKey *secp256k1.PublicKey) (*Entry, bool) {
	key := hvcrypto.EncodePublicKeyHex(userPubKey)
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.sessions[key]
	return entry, ok
}

// GetBySessionID scans for the entry matching sessionID. The registry is
// small and session lookups on the request path are keyed by user public
// key (see Get); no code path in this module calls GetBySessionID.
func (r *Registry) GetBySessionID(sessionID uuid.UUID) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, entry := range r.sessions {
		if entry.SessionID == sessionID {
			return entry, true
		}
	}
	return nil, false
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func zeroize(e *Entry) {
	if e == nil || e.KeyPair == nil || e.KeyPair.Private == nil {
		return
	}
	e.KeyPair.Private.Zero()
}
