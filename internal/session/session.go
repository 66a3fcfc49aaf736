// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UE-1 Contributors

package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/samber/oops"
)

// SessionTTL is how long an issued session stays valid.
const SessionTTL = 15 * time.Minute

// tokenBytes is the number of random bytes in a session token.
const tokenBytes = 32

// TokenLength is the length of an encoded session token.
const TokenLength = tokenBytes * 2

// Session is the live login session of an account.
type Session struct {
	AccountID uint32
	Token     string
	IPAddress string
	ExpiresAt time.Time
}

// IsExpired returns true if the session has expired at now.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// GenerateToken returns a new hex-encoded random session token.
func GenerateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", oops.Code("SESSION_TOKEN_FAILED").Wrap(err)
	}
	return hex.EncodeToString(b), nil
}

// VerifyToken reports whether token matches s and s has not expired.
func VerifyToken(s *Session, token string, now time.Time) bool {
	if s == nil || token == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(s.Token), []byte(token)) != 1 {
		return false
	}
	return !s.IsExpired(now)
}

// Repository persists sessions, one per account.
type Repository interface {
	// Upsert stores s, replacing any existing session for the account.
	Upsert(ctx context.Context, s *Session) error

	// GetByAccount returns the session for an account.
	// Returns ErrNotFound if none exists.
	GetByAccount(ctx context.Context, accountID uint32) (*Session, error)
}

// AuditEntry records one successful login.
type AuditEntry struct {
	AccountID uint32
	IPAddress string
	Timestamp time.Time
}

// AuditLog is an append-only login history.
type AuditLog interface {
	Append(ctx context.Context, entry AuditEntry) error
}
