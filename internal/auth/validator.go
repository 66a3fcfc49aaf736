// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UE-1 Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/samber/oops"

	"github.com/UniversoExpandido2018/UE-1/internal/account"
)

// AccountStore is the subset of *account.Store used by the Validator.
type AccountStore interface {
	ResolveByUsername(ctx context.Context, username string, forceRefresh bool) (*account.Account, account.Credentials, error)
	Register(ctx context.Context, na account.NewAccount) (*account.Account, account.Credentials, error)
	UpdateCredentials(ctx context.Context, acc *account.Account, passwordHash, salt string) error
}

// Policy holds the configurable login policy.
type Policy struct {
	// AutoRegistration creates unknown accounts on first interactive login.
	AutoRegistration bool
	// RegistrationMessage overrides the "registration disabled" text.
	RegistrationMessage string
	// InactiveTitle and InactiveText override the "account disabled" texts.
	InactiveTitle string
	InactiveText  string
}

func (p Policy) registrationRejection() *Rejection {
	msg := p.RegistrationMessage
	if msg == "" {
		msg = DefaultRegistrationText
	}
	return &Rejection{Code: CodeRegistrationDisabled, Title: DefaultLoginErrorTitle, Message: msg}
}

func (p Policy) inactiveRejection() *Rejection {
	title, text := p.InactiveTitle, p.InactiveText
	if title == "" {
		title = DefaultInactiveTitle
	}
	if text == "" {
		text = DefaultInactiveText
	}
	return &Rejection{Code: CodeAccountInactive, Title: title, Message: text}
}

// Request is a decoded login request.
type Request struct {
	Username string
	Password string
	// Interactive is set when a live client is attached to the request.
	// Auto-registration only happens for interactive requests.
	Interactive bool
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithLogger sets the validator's logger.
func WithLogger(logger *slog.Logger) ValidatorOption {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithClock sets the time source used for ban checks.
func WithClock(now func() time.Time) ValidatorOption {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

// WithStationIDSource sets the generator for legacy station IDs assigned
// at registration.
func WithStationIDSource(next func() uint32) ValidatorOption {
	return func(v *Validator) {
		if next != nil {
			v.stationID = next
		}
	}
}

// Validator resolves accounts and enforces login policy.
type Validator struct {
	store     AccountStore
	hasher    CredentialHasher
	policy    Policy
	logger    *slog.Logger
	now       func() time.Time
	stationID func() uint32
}

// NewValidator creates a Validator.
func NewValidator(store AccountStore, hasher CredentialHasher, policy Policy, opts ...ValidatorOption) (*Validator, error) {
	if store == nil {
		return nil, oops.Errorf("account store is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("credential hasher is required")
	}

	v := &Validator{
		store:     store,
		hasher:    hasher,
		policy:    policy,
		logger:    slog.New(slog.DiscardHandler),
		now:       time.Now,
		stationID: rand.Uint32,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Validate resolves the account named in req and checks it against policy.
// It returns the account, a *Rejection, or an infrastructure error.
func (v *Validator) Validate(ctx context.Context, req Request) (*account.Account, error) {
	// Ban and active state must be current, so always refresh.
	acc, creds, err := v.store.ResolveByUsername(ctx, req.Username, true)
	switch {
	case errors.Is(err, account.ErrNotFound):
		if !v.policy.AutoRegistration || !req.Interactive {
			return nil, v.policy.registrationRejection()
		}
		acc, creds, err = v.register(ctx, req)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, oops.Code("AUTH_LOOKUP_FAILED").
			With("operation", "resolve account").
			With("username", req.Username).
			Wrap(err)
	}

	if !acc.IsActive() {
		return nil, v.policy.inactiveRejection()
	}

	// Hash and salt must come from the same row image.
	ok, legacy := Verify(v.hasher, req.Password, creds.PasswordHash, creds.Salt)
	if !ok {
		return nil, &Rejection{
			Code:    CodeInvalidCredentials,
			Title:   invalidCredentialsTitle,
			Message: invalidCredentialsText,
		}
	}

	if legacy {
		v.migrate(ctx, acc, req.Password)
	}

	now := v.now()
	if acc.IsBanned(now) {
		remaining, reason := acc.BanRemaining(now)
		return nil, bannedRejection(remaining, reason)
	}

	return acc, nil
}

// register creates an account for req with the salted scheme. A concurrent
// registration of the same username falls back to the winner's row.
func (v *Validator) register(ctx context.Context, req Request) (*account.Account, account.Credentials, error) {
	salt, err := v.hasher.NewSalt()
	if err != nil {
		return nil, account.Credentials{}, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "generate salt").
			With("username", req.Username).
			Wrap(err)
	}

	acc, creds, err := v.store.Register(ctx, account.NewAccount{
		Username:     req.Username,
		PasswordHash: v.hasher.SaltedHash(req.Password, salt),
		Salt:         salt,
		StationID:    v.stationID(),
	})
	if errors.Is(err, account.ErrUsernameTaken) {
		v.logger.Debug("registration lost race, resolving existing account",
			"username", req.Username,
		)
		acc, creds, err = v.store.ResolveByUsername(ctx, req.Username, true)
		if err != nil {
			return nil, account.Credentials{}, oops.Code("AUTH_LOOKUP_FAILED").
				With("operation", "resolve raced account").
				With("username", req.Username).
				Wrap(err)
		}
		return acc, creds, nil
	}
	if err != nil {
		return nil, account.Credentials{}, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "register account").
			With("username", req.Username).
			Wrap(err)
	}

	v.logger.Info("account auto-registered",
		"event", "account_auto_registered",
		"account_id", acc.ID(),
		"username", req.Username,
	)
	return acc, creds, nil
}

// migrate rotates a verified legacy account to the salted scheme.
// Failures are logged and never fail the login.
func (v *Validator) migrate(ctx context.Context, acc *account.Account, password string) {
	salt, err := v.hasher.NewSalt()
	if err != nil {
		v.logger.Warn("credential migration failed",
			"account_id", acc.ID(),
			"error", err,
		)
		return
	}

	if err := v.store.UpdateCredentials(ctx, acc, v.hasher.SaltedHash(password, salt), salt); err != nil {
		v.logger.Warn("credential migration failed",
			"account_id", acc.ID(),
			"error", err,
		)
		return
	}

	v.logger.Info("credentials migrated to salted scheme",
		"event", "credentials_migrated",
		"account_id", acc.ID(),
	)
}
