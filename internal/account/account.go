// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UE-1 Contributors

package account

import (
	"context"
	"errors"
	"sync"
	"time"
)

// errDetached is returned when loading an entity that was evicted from
// its broker after a failed first load.
var errDetached = errors.New("account entity detached")

// Record is the row image of an account as persisted.
type Record struct {
	ID           uint32
	Username     string
	PasswordHash string
	Salt         string // empty means the legacy unsalted scheme
	StationID    uint32
	CreatedAt    time.Time
	AdminLevel   int
	Active       bool
	BanExpires   *time.Time // nil if never banned
	BanReason    string
}

// IsLegacy returns true if the record still uses the unsalted hash scheme.
func (r Record) IsLegacy() bool {
	return r.Salt == ""
}

// Credentials are a password hash and its salt taken from the same row
// image. They are verified together and never mixed across reads.
type Credentials struct {
	PasswordHash string
	Salt         string
}

// IsLegacy returns true if the credentials use the unsalted hash scheme.
func (c Credentials) IsLegacy() bool {
	return c.Salt == ""
}

// NewAccount holds the fields supplied when registering an account.
// The storage layer assigns the ID and creation time.
type NewAccount struct {
	Username     string
	PasswordHash string
	Salt         string
	StationID    uint32
}

// Account is the shared in-memory entity for one player identity.
// All access to its fields is serialized by the account's own mutex.
type Account struct {
	oid ObjectID

	mu       sync.Mutex
	rec      Record
	loaded   bool
	detached bool
}

// newAccount lazily creates an empty entity for oid.
func newAccount(oid ObjectID) *Account {
	return &Account{
		oid: oid,
		rec: Record{ID: oid.AccountID()},
	}
}

// ObjectID returns the entity's synthetic identifier.
func (a *Account) ObjectID() ObjectID {
	return a.oid
}

// ID returns the numeric account ID. It never changes once assigned.
func (a *Account) ID() uint32 {
	return a.oid.AccountID()
}

// Snapshot returns a consistent copy of the account's fields.
func (a *Account) Snapshot() Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rec
}

// Username returns the account's username.
func (a *Account) Username() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rec.Username
}

// Salt returns the stored salt.
func (a *Account) Salt() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rec.Salt
}

// StationID returns the legacy station identifier.
func (a *Account) StationID() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rec.StationID
}

// AdminLevel returns the privilege tier.
func (a *Account) AdminLevel() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rec.AdminLevel
}

// IsActive reports whether the account is enabled.
func (a *Account) IsActive() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rec.Active
}

// IsLoaded reports whether the fields have been populated from storage.
func (a *Account) IsLoaded() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loaded
}

// IsBanned reports whether a ban is in force at now.
// An expired ban counts as not banned.
func (a *Account) IsBanned(now time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rec.BanExpires != nil && a.rec.BanExpires.After(now)
}

// BanRemaining returns the time left on the ban and its reason.
// The duration is zero when no ban is in force.
func (a *Account) BanRemaining(now time.Time) (time.Duration, string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.rec.BanExpires == nil || !a.rec.BanExpires.After(now) {
		return 0, ""
	}
	return a.rec.BanExpires.Sub(now), a.rec.BanReason
}

// refresh loads the entity from storage while holding the account lock.
// Unless force is set, an already-loaded entity is returned untouched, so
// concurrent first references produce a single load.
func (a *Account) refresh(force bool, load func() (Record, error)) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.detached {
		return errDetached
	}
	if a.loaded && !force {
		return nil
	}

	rec, err := load()
	if err != nil {
		return err
	}
	a.applyLocked(rec)
	return nil
}

func (a *Account) applyLocked(rec Record) {
	// The ID is fixed by the ObjectID; storage cannot rewrite it.
	rec.ID = a.oid.AccountID()
	a.rec = rec
	a.loaded = true
}

// detachIfUnloaded marks a never-loaded entity as detached so no later
// load can revive it. It reports whether the entity was detached.
func (a *Account) detachIfUnloaded() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.loaded {
		return false
	}
	a.detached = true
	return true
}

// setCredentials replaces the hash and salt under the account lock.
func (a *Account) setCredentials(hash, salt string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rec.PasswordHash = hash
	a.rec.Salt = salt
}

// Repository manages account persistence.
type Repository interface {
	// GetByID retrieves an account row by numeric ID.
	// Returns ErrNotFound if no row exists.
	GetByID(ctx context.Context, id uint32) (Record, error)

	// GetByUsername retrieves an account row by username.
	// Returns ErrNotFound if no row exists.
	GetByUsername(ctx context.Context, username string) (Record, error)

	// Create inserts a new account and returns the generated ID.
	// Returns ErrUsernameTaken if the username already exists.
	Create(ctx context.Context, acc NewAccount) (uint32, error)

	// UpdateCredentials replaces the password hash and salt of an account.
	UpdateCredentials(ctx context.Context, id uint32, passwordHash, salt string) error
}
