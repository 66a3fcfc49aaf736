// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UE-1 Contributors

// Package postgres implements session persistence on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/UniversoExpandido2018/UE-1/internal/session"
)

// poolIface is the subset of *pgxpool.Pool used by the repositories.
// pgxmock.PgxPoolIface satisfies it in unit tests.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SessionRepository implements session.Repository using PostgreSQL.
type SessionRepository struct {
	pool poolIface
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool poolIface) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Upsert stores s, replacing any existing session for the account.
func (r *SessionRepository) Upsert(ctx context.Context, s *session.Session) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (account_id, session_token, ip_address, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id) DO UPDATE
		SET session_token = EXCLUDED.session_token,
		    ip_address = EXCLUDED.ip_address,
		    expires_at = EXCLUDED.expires_at
	`, int64(s.AccountID), s.Token, s.IPAddress, s.ExpiresAt)
	if err != nil {
		return oops.Code("SESSION_UPSERT_FAILED").
			With("operation", "upsert session").
			With("account_id", s.AccountID).
			Wrap(err)
	}
	return nil
}

// GetByAccount returns the session for an account.
func (r *SessionRepository) GetByAccount(ctx context.Context, accountID uint32) (*session.Session, error) {
	var (
		token     string
		ip        string
		expiresAt time.Time
	)
	err := r.pool.QueryRow(ctx, `
		SELECT session_token, ip_address, expires_at
		FROM sessions
		WHERE account_id = $1
	`, int64(accountID)).Scan(&token, &ip, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").
			With("account_id", accountID).
			Wrap(session.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").
			With("operation", "get session").
			With("account_id", accountID).
			Wrap(err)
	}
	return &session.Session{
		AccountID: accountID,
		Token:     token,
		IPAddress: ip,
		ExpiresAt: expiresAt,
	}, nil
}

// Compile-time interface check.
var _ session.Repository = (*SessionRepository)(nil)
