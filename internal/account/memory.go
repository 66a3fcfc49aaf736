// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UE-1 Contributors

package account

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/oops"
)

// MemoryRepository is an in-memory Repository for testing.
type MemoryRepository struct {
	mu     sync.RWMutex
	byID   map[uint32]Record
	nextID uint32

	loads atomic.Int64
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:   make(map[uint32]Record),
		nextID: 1,
	}
}

// Put stores rec as-is, replacing any existing row with the same ID.
func (r *MemoryRepository) Put(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[rec.ID] = rec
	if rec.ID >= r.nextID {
		r.nextID = rec.ID + 1
	}
}

// Row returns the stored row for id.
func (r *MemoryRepository) Row(id uint32) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byID[id]
	return rec, ok
}

// Loads returns how many times GetByID has been called.
func (r *MemoryRepository) Loads() int64 {
	return r.loads.Load()
}

// GetByID retrieves an account row by numeric ID.
func (r *MemoryRepository) GetByID(_ context.Context, id uint32) (Record, error) {
	r.loads.Add(1)
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byID[id]
	if !ok {
		return Record{}, oops.Code("ACCOUNT_NOT_FOUND").With("account_id", id).Wrap(ErrNotFound)
	}
	return rec, nil
}

// GetByUsername retrieves an account row by username.
func (r *MemoryRepository) GetByUsername(_ context.Context, username string) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.byID {
		if rec.Username == username {
			return rec, nil
		}
	}
	return Record{}, oops.Code("ACCOUNT_NOT_FOUND").With("username", username).Wrap(ErrNotFound)
}

// Create inserts a new active account and returns the generated ID.
func (r *MemoryRepository) Create(_ context.Context, na NewAccount) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.byID {
		if rec.Username == na.Username {
			return 0, oops.Code("ACCOUNT_USERNAME_TAKEN").With("username", na.Username).Wrap(ErrUsernameTaken)
		}
	}
	id := r.nextID
	r.nextID++
	r.byID[id] = Record{
		ID:           id,
		Username:     na.Username,
		PasswordHash: na.PasswordHash,
		Salt:         na.Salt,
		StationID:    na.StationID,
		CreatedAt:    time.Now().UTC(),
		Active:       true,
	}
	return id, nil
}

// UpdateCredentials replaces the password hash and salt of an account.
func (r *MemoryRepository) UpdateCredentials(_ context.Context, id uint32, passwordHash, salt string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok {
		return oops.Code("ACCOUNT_NOT_FOUND").With("account_id", id).Wrap(ErrNotFound)
	}
	rec.PasswordHash = passwordHash
	rec.Salt = salt
	r.byID[id] = rec
	return nil
}

var _ Repository = (*MemoryRepository)(nil)
