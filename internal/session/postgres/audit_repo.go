// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UE-1 Contributors

package postgres

import (
	"context"

	"github.com/samber/oops"

	"github.com/UniversoExpandido2018/UE-1/internal/session"
)

// AuditRepository implements session.AuditLog using PostgreSQL.
type AuditRepository struct {
	pool poolIface
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(pool poolIface) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Append inserts one row into account_log.
func (r *AuditRepository) Append(ctx context.Context, entry session.AuditEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO account_log (account_id, ip_address, logged_at)
		VALUES ($1, $2, $3)
	`, int64(entry.AccountID), entry.IPAddress, entry.Timestamp)
	if err != nil {
		return oops.Code("SESSION_AUDIT_FAILED").
			With("operation", "append account log").
			With("account_id", entry.AccountID).
			Wrap(err)
	}
	return nil
}

// Compile-time interface check.
var _ session.AuditLog = (*AuditRepository)(nil)
