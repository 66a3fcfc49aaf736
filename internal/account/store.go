// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UE-1 Contributors

package account

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

// Option configures a Store.
type Option func(*Store)

// WithNamespace sets the namespace used to build ObjectIDs.
func WithNamespace(ns Namespace) Option {
	return func(s *Store) {
		s.namespace = ns
	}
}

// WithLogger sets the store's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store caches Account entities and mediates their persistence.
type Store struct {
	repo      Repository
	namespace Namespace
	broker    *Broker[Account]
	logger    *slog.Logger
}

// NewStore creates a Store backed by repo.
func NewStore(repo Repository, opts ...Option) (*Store, error) {
	if repo == nil {
		return nil, oops.Errorf("account repository is required")
	}

	s := &Store{
		repo:      repo,
		namespace: DefaultNamespace,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}

	broker, err := NewBroker(AccountDescriptor(s.namespace))
	if err != nil {
		return nil, err
	}
	s.broker = broker
	return s, nil
}

// ObjectID returns the ObjectID for an account ID in this store's namespace.
func (s *Store) ObjectID(accountID uint32) ObjectID {
	return MakeObjectID(s.namespace, accountID)
}

// Cached returns the cached entity for an account ID without touching storage.
func (s *Store) Cached(accountID uint32) (*Account, bool) {
	return s.broker.LookUp(s.ObjectID(accountID))
}

// Resolve returns the shared Account for id, loading it from storage on
// first reference or when forceRefresh is set. An id with no row leaves
// nothing behind in the cache.
func (s *Store) Resolve(ctx context.Context, id uint32, forceRefresh bool) (*Account, error) {
	acc, err := s.load(id, forceRefresh, func() (Record, error) {
		return s.repo.GetByID(ctx, id)
	})
	if err != nil {
		return nil, s.wrapLoadError(err, "resolve account by id").With("account_id", id).Wrap(err)
	}
	return acc, nil
}

// ResolveByUsername looks an account up by username and returns the shared
// entity together with the credentials from the row it was loaded from.
func (s *Store) ResolveByUsername(ctx context.Context, username string, forceRefresh bool) (*Account, Credentials, error) {
	rec, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, Credentials{}, s.wrapLoadError(err, "resolve account by username").With("username", username).Wrap(err)
	}
	if rec.ID == 0 {
		return nil, Credentials{}, oops.Code("ACCOUNT_INVARIANT").
			With("username", username).
			Errorf("storage returned an account without an id")
	}

	// The username query already fetched the row; reuse it as the load.
	acc, err := s.load(rec.ID, forceRefresh, func() (Record, error) {
		return rec, nil
	})
	if err != nil {
		return nil, Credentials{}, s.wrapLoadError(err, "resolve account by username").With("username", username).Wrap(err)
	}
	return acc, Credentials{PasswordHash: rec.PasswordHash, Salt: rec.Salt}, nil
}

// load refreshes the entity for id. A first load that finds no row evicts
// the unloaded entity; a caller holding an evicted entity starts over.
func (s *Store) load(id uint32, force bool, loader func() (Record, error)) (*Account, error) {
	for {
		acc, err := s.entity(id)
		if err != nil {
			return nil, err
		}
		err = acc.refresh(force, loader)
		if errors.Is(err, errDetached) {
			continue
		}
		if errors.Is(err, ErrNotFound) {
			s.broker.RemoveIf(acc.oid, acc, (*Account).detachIfUnloaded)
		}
		if err != nil {
			return nil, err
		}
		return acc, nil
	}
}

// Register persists a new account and resolves it by its generated ID.
// It returns the entity and the credentials it was created with.
func (s *Store) Register(ctx context.Context, na NewAccount) (*Account, Credentials, error) {
	id, err := s.repo.Create(ctx, na)
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return nil, Credentials{}, oops.Code("ACCOUNT_USERNAME_TAKEN").
				With("username", na.Username).
				Wrap(err)
		}
		return nil, Credentials{}, oops.Code("ACCOUNT_STORE_UNAVAILABLE").
			With("operation", "create account").
			With("username", na.Username).
			Wrap(err)
	}

	acc, err := s.Resolve(ctx, id, true)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// The insert committed, so the row must be readable.
			return nil, Credentials{}, oops.Code("ACCOUNT_INVARIANT").
				With("operation", "resolve created account").
				With("account_id", id).
				Wrap(err)
		}
		return nil, Credentials{}, err
	}

	s.logger.Info("account registered",
		"event", "account_registered",
		"account_id", id,
		"username", na.Username,
	)
	return acc, Credentials{PasswordHash: na.PasswordHash, Salt: na.Salt}, nil
}

// UpdateCredentials persists a new hash and salt and applies them to the
// cached entity.
func (s *Store) UpdateCredentials(ctx context.Context, acc *Account, passwordHash, salt string) error {
	if err := s.repo.UpdateCredentials(ctx, acc.ID(), passwordHash, salt); err != nil {
		return oops.Code("ACCOUNT_STORE_UNAVAILABLE").
			With("operation", "update credentials").
			With("account_id", acc.ID()).
			Wrap(err)
	}
	acc.setCredentials(passwordHash, salt)
	return nil
}

func (s *Store) entity(id uint32) (*Account, error) {
	oid := s.ObjectID(id)
	acc, created, err := s.broker.GetOrCreate(oid)
	if err != nil {
		return nil, oops.Code("ACCOUNT_INVARIANT").
			With("operation", "lazy create account object").
			With("account_id", id).
			Wrap(err)
	}
	if created {
		s.logger.Debug("account object created",
			"account_id", id,
			"oid", oid.String(),
		)
	}
	return acc, nil
}

func (s *Store) wrapLoadError(err error, operation string) oops.OopsErrorBuilder {
	if errors.Is(err, ErrNotFound) {
		return oops.Code("ACCOUNT_NOT_FOUND").With("operation", operation)
	}
	return oops.Code("ACCOUNT_STORE_UNAVAILABLE").With("operation", operation)
}
