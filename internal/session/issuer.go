// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UE-1 Contributors

package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/UniversoExpandido2018/UE-1/internal/account"
	"github.com/UniversoExpandido2018/UE-1/internal/message"
	"github.com/UniversoExpandido2018/UE-1/pkg/errutil"
)

// Client is the connection a session is issued to.
type Client interface {
	// IPAddress returns the remote address without port.
	IPAddress() string
	// SetAccountID records the logged-in account on the connection.
	SetAccountID(id uint32)
	// Send queues msg for delivery.
	Send(msg message.Message) error
}

// IssuerOption configures an Issuer.
type IssuerOption func(*Issuer)

// WithIssuerLogger sets the issuer's logger.
func WithIssuerLogger(logger *slog.Logger) IssuerOption {
	return func(i *Issuer) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithIssuerClock sets the time source for expiry and audit timestamps.
func WithIssuerClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}

// WithTokenSource replaces GenerateToken.
func WithTokenSource(gen func() (string, error)) IssuerOption {
	return func(i *Issuer) {
		if gen != nil {
			i.token = gen
		}
	}
}

// Issuer mints session tokens for approved logins.
type Issuer struct {
	sessions   Repository
	audit      AuditLog
	authority  Authority
	directory  message.Directory
	characters message.CharacterEnumerator
	logger     *slog.Logger
	now        func() time.Time
	token      func() (string, error)
}

// NewIssuer creates an Issuer.
func NewIssuer(
	sessions Repository,
	audit AuditLog,
	authority Authority,
	directory message.Directory,
	characters message.CharacterEnumerator,
	opts ...IssuerOption,
) (*Issuer, error) {
	if sessions == nil {
		return nil, oops.Errorf("session repository is required")
	}
	if audit == nil {
		return nil, oops.Errorf("audit log is required")
	}
	if authority == nil {
		return nil, oops.Errorf("session authority is required")
	}
	if directory == nil {
		return nil, oops.Errorf("cluster directory is required")
	}
	if characters == nil {
		return nil, oops.Errorf("character enumerator is required")
	}

	i := &Issuer{
		sessions:   sessions,
		audit:      audit,
		authority:  authority,
		directory:  directory,
		characters: characters,
		logger:     slog.New(slog.DiscardHandler),
		now:        time.Now,
		token:      GenerateToken,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Issue hands a new session token for acc to client, then records the
// session and forwards the post-login messages. Only token generation and
// token delivery can fail the call; the bookkeeping after delivery is
// best effort.
func (i *Issuer) Issue(ctx context.Context, acc *account.Account, client Client) error {
	rec := acc.Snapshot()
	ip := client.IPAddress()

	token, err := i.token()
	if err != nil {
		return oops.Code("SESSION_INVARIANT").
			With("operation", "generate token").
			With("account_id", rec.ID).
			Wrap(err)
	}

	err = client.Send(message.ClientToken{
		AccountID: rec.ID,
		StationID: rec.StationID,
		Username:  rec.Username,
		Token:     token,
	})
	if err != nil {
		return oops.Code("SESSION_DELIVERY_FAILED").
			With("account_id", rec.ID).
			Wrap(err)
	}
	client.SetAccountID(rec.ID)

	// The client holds the token now, so the session row is written even if
	// it disconnects.
	record := context.WithoutCancel(ctx)
	if err := i.authority.NotifySessionStart(record, ip, rec.ID); err != nil {
		errutil.LogWarn(i.logger, "session start notification failed", err)
	}

	now := i.now()
	err = i.sessions.Upsert(record, &Session{
		AccountID: rec.ID,
		Token:     token,
		IPAddress: ip,
		ExpiresAt: now.Add(SessionTTL),
	})
	if err != nil {
		errutil.LogError(i.logger, "session record write failed", err)
	}

	if err := i.audit.Append(record, AuditEntry{AccountID: rec.ID, IPAddress: ip, Timestamp: now}); err != nil {
		errutil.LogError(i.logger, "account log append failed", err)
	}

	i.forward(ctx, client, rec.ID)

	i.logger.Info("session issued",
		"event", "session_issued",
		"account_id", rec.ID,
		"ip", ip,
	)
	return nil
}

// forward sends the cluster and character messages produced by the
// collaborators. A collaborator failure skips only its own message.
func (i *Issuer) forward(ctx context.Context, client Client, accountID uint32) {
	producers := []struct {
		name string
		make func() (message.Message, error)
	}{
		{"cluster enumeration", func() (message.Message, error) {
			return i.directory.ClusterEnumeration(ctx, accountID)
		}},
		{"cluster status", func() (message.Message, error) {
			return i.directory.ClusterStatus(ctx, accountID)
		}},
		{"character enumeration", func() (message.Message, error) {
			return i.characters.EnumerateCharacters(ctx, accountID)
		}},
	}

	for _, p := range producers {
		msg, err := p.make()
		if err != nil {
			i.logger.Warn("post-login message unavailable",
				"message", p.name,
				"account_id", accountID,
				"error", err,
			)
			continue
		}
		if err := client.Send(msg); err != nil {
			i.logger.Debug("post-login message not delivered",
				"message", p.name,
				"account_id", accountID,
				"error", err,
			)
			return
		}
	}
}
