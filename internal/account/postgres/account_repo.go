// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UE-1 Contributors

// Package postgres implements account persistence on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/UniversoExpandido2018/UE-1/internal/account"
)

// poolIface is the subset of *pgxpool.Pool used by the repository.
// pgxmock.PgxPoolIface satisfies it in unit tests.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const selectAccount = `
	SELECT account_id, username, password_hash, salt, station_id,
	       created_at, admin_level, active, ban_expires, ban_reason
	FROM accounts
`

// AccountRepository implements account.Repository using PostgreSQL.
type AccountRepository struct {
	pool poolIface
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool poolIface) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// GetByID retrieves an account row by numeric ID.
func (r *AccountRepository) GetByID(ctx context.Context, id uint32) (account.Record, error) {
	row := r.pool.QueryRow(ctx, selectAccount+`WHERE account_id = $1 LIMIT 1`, int64(id))

	rec, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return account.Record{}, oops.Code("ACCOUNT_NOT_FOUND").
			With("account_id", id).
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return account.Record{}, oops.Code("ACCOUNT_GET_BY_ID_FAILED").
			With("operation", "get account by id").
			With("account_id", id).
			Wrap(err)
	}
	return rec, nil
}

// GetByUsername retrieves an account row by username.
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (account.Record, error) {
	row := r.pool.QueryRow(ctx, selectAccount+`WHERE username = $1 LIMIT 1`, username)

	rec, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return account.Record{}, oops.Code("ACCOUNT_NOT_FOUND").
			With("username", username).
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return account.Record{}, oops.Code("ACCOUNT_GET_BY_USERNAME_FAILED").
			With("operation", "get account by username").
			With("username", username).
			Wrap(err)
	}
	return rec, nil
}

// Create inserts a new account and returns the generated ID.
func (r *AccountRepository) Create(ctx context.Context, na account.NewAccount) (uint32, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (username, password_hash, salt, station_id)
		VALUES ($1, $2, $3, $4)
		RETURNING account_id
	`, na.Username, na.PasswordHash, na.Salt, int64(na.StationID)).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, oops.Code("ACCOUNT_USERNAME_TAKEN").
				With("username", na.Username).
				Wrap(account.ErrUsernameTaken)
		}
		return 0, oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert account").
			With("username", na.Username).
			Wrap(err)
	}
	if id <= 0 || id > int64(^uint32(0)) {
		return 0, oops.Code("ACCOUNT_INVALID_ID").
			With("operation", "insert account").
			With("account_id", id).
			Errorf("generated account id out of range")
	}
	return uint32(id), nil
}

// UpdateCredentials replaces the password hash and salt of an account.
func (r *AccountRepository) UpdateCredentials(ctx context.Context, id uint32, passwordHash, salt string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE accounts SET password_hash = $2, salt = $3
		WHERE account_id = $1
	`, int64(id), passwordHash, salt)
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_CREDENTIALS_FAILED").
			With("operation", "update credentials").
			With("account_id", id).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("account_id", id).
			Wrap(account.ErrNotFound)
	}
	return nil
}

// scanAccount scans a single row into a Record.
// Scan errors, including pgx.ErrNoRows, are returned unwrapped.
func scanAccount(row pgx.Row) (account.Record, error) {
	var (
		id         int64
		username   string
		hash       string
		salt       string
		stationID  int64
		createdAt  time.Time
		adminLevel int
		active     bool
		banExpires *time.Time
		banReason  *string
	)

	err := row.Scan(
		&id,
		&username,
		&hash,
		&salt,
		&stationID,
		&createdAt,
		&adminLevel,
		&active,
		&banExpires,
		&banReason,
	)
	if err != nil {
		return account.Record{}, err //nolint:wrapcheck // Callers wrap with context-specific info
	}

	if id <= 0 || id > int64(^uint32(0)) || stationID < 0 || stationID > int64(^uint32(0)) {
		return account.Record{}, oops.Code("ACCOUNT_INVARIANT").
			With("account_id", id).
			With("station_id", stationID).
			Errorf("account row out of range")
	}

	rec := account.Record{
		ID:           uint32(id),
		Username:     username,
		PasswordHash: hash,
		Salt:         salt,
		StationID:    uint32(stationID),
		CreatedAt:    createdAt,
		AdminLevel:   adminLevel,
		Active:       active,
		BanExpires:   banExpires,
	}
	if banReason != nil {
		rec.BanReason = *banReason
	}
	return rec, nil
}

// Compile-time interface check.
var _ account.Repository = (*AccountRepository)(nil)
