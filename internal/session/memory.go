// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UE-1 Contributors

package session

import (
	"context"
	"slices"
	"sync"

	"github.com/samber/oops"
)

// MemoryRepository is an in-memory Repository for testing.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[uint32]Session
}

// NewMemoryRepository creates an empty in-memory session repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{sessions: make(map[uint32]Session)}
}

// Upsert stores s, replacing any existing session for the account.
func (r *MemoryRepository) Upsert(_ context.Context, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.AccountID] = *s
	return nil
}

// GetByAccount returns the session for an account.
func (r *MemoryRepository) GetByAccount(_ context.Context, accountID uint32) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[accountID]
	if !ok {
		return nil, oops.Code("SESSION_NOT_FOUND").With("account_id", accountID).Wrap(ErrNotFound)
	}
	return &s, nil
}

// Len returns the number of stored sessions.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// MemoryAuditLog is an in-memory AuditLog for testing.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// Append records entry.
func (l *MemoryAuditLog) Append(_ context.Context, entry AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

// Entries returns a copy of the recorded entries.
func (l *MemoryAuditLog) Entries() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.entries)
}

var (
	_ Repository = (*MemoryRepository)(nil)
	_ AuditLog   = (*MemoryAuditLog)(nil)
)
