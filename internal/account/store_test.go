// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UE-1 Contributors

package account_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/UniversoExpandido2018/UE-1/internal/account"
	"github.com/UniversoExpandido2018/UE-1/pkg/errutil"
)

// mockRepository is a mock for account.Repository.
type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) GetByID(ctx context.Context, id uint32) (account.Record, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(account.Record), args.Error(1)
}

func (m *mockRepository) GetByUsername(ctx context.Context, username string) (account.Record, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(account.Record), args.Error(1)
}

func (m *mockRepository) Create(ctx context.Context, na account.NewAccount) (uint32, error) {
	args := m.Called(ctx, na)
	return args.Get(0).(uint32), args.Error(1)
}

func (m *mockRepository) UpdateCredentials(ctx context.Context, id uint32, passwordHash, salt string) error {
	args := m.Called(ctx, id, passwordHash, salt)
	return args.Error(0)
}

func TestObjectID(t *testing.T) {
	oid := account.MakeObjectID(account.DefaultNamespace, 42)
	assert.Equal(t, account.ObjectID(0x0003_0000_0000_002A), oid)
	assert.Equal(t, account.DefaultNamespace, oid.Namespace())
	assert.Equal(t, uint32(42), oid.AccountID())
	assert.Equal(t, "0x000300000000002a", oid.String())

	maxID := account.MakeObjectID(account.Namespace(0xFFFF), ^uint32(0))
	assert.Equal(t, account.Namespace(0xFFFF), maxID.Namespace())
	assert.Equal(t, ^uint32(0), maxID.AccountID())
}

func TestNewStore_NilRepository(t *testing.T) {
	store, err := account.NewStore(nil)
	require.Error(t, err)
	assert.Nil(t, store)
	assert.Contains(t, err.Error(), "repository is required")
}

func TestStore_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("loads once and caches", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("GetByID", ctx, uint32(42)).
			Return(account.Record{ID: 42, Username: "luke", Active: true}, nil).Once()

		store, err := account.NewStore(repo)
		require.NoError(t, err)

		first, err := store.Resolve(ctx, 42, false)
		require.NoError(t, err)
		second, err := store.Resolve(ctx, 42, false)
		require.NoError(t, err)

		assert.Same(t, first, second)
		assert.Equal(t, "luke", first.Username())
		assert.True(t, first.IsLoaded())
		assert.Equal(t, store.ObjectID(42), first.ObjectID())
		repo.AssertExpectations(t)
	})

	t.Run("force refresh reloads the same instance", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("GetByID", ctx, uint32(7)).
			Return(account.Record{ID: 7, Username: "leia", Active: true}, nil).Once()
		repo.On("GetByID", ctx, uint32(7)).
			Return(account.Record{ID: 7, Username: "leia", Active: false}, nil).Once()

		store, err := account.NewStore(repo)
		require.NoError(t, err)

		first, err := store.Resolve(ctx, 7, false)
		require.NoError(t, err)
		assert.True(t, first.IsActive())

		second, err := store.Resolve(ctx, 7, true)
		require.NoError(t, err)
		assert.Same(t, first, second)
		assert.False(t, second.IsActive())
		repo.AssertExpectations(t)
	})

	t.Run("storage cannot rewrite the id", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("GetByID", ctx, uint32(9)).
			Return(account.Record{ID: 1000, Username: "han"}, nil)

		store, err := account.NewStore(repo)
		require.NoError(t, err)

		acc, err := store.Resolve(ctx, 9, false)
		require.NoError(t, err)
		assert.Equal(t, uint32(9), acc.ID())
		assert.Equal(t, uint32(9), acc.Snapshot().ID)
	})

	t.Run("missing account is not found", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("GetByID", ctx, uint32(5)).Return(account.Record{}, account.ErrNotFound)

		store, err := account.NewStore(repo)
		require.NoError(t, err)

		acc, err := store.Resolve(ctx, 5, false)
		require.Error(t, err)
		assert.Nil(t, acc)
		assert.ErrorIs(t, err, account.ErrNotFound)
		errutil.AssertErrorCode(t, err, "ACCOUNT_NOT_FOUND")

		_, ok := store.Cached(5)
		assert.False(t, ok, "missing account must not stay cached")
	})

	t.Run("account created after a miss resolves", func(t *testing.T) {
		repo := account.NewMemoryRepository()
		store, err := account.NewStore(repo)
		require.NoError(t, err)

		_, err = store.Resolve(ctx, 1, false)
		errutil.AssertErrorCode(t, err, "ACCOUNT_NOT_FOUND")

		acc, _, err := store.Register(ctx, account.NewAccount{Username: "bb8", PasswordHash: "h", Salt: "s"})
		require.NoError(t, err)
		require.Equal(t, uint32(1), acc.ID())

		cached, ok := store.Cached(1)
		require.True(t, ok)
		assert.Same(t, acc, cached)
		assert.True(t, cached.IsLoaded())
	})

	t.Run("storage failure is unavailable", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("GetByID", ctx, uint32(5)).Return(account.Record{}, errors.New("connection refused"))

		store, err := account.NewStore(repo)
		require.NoError(t, err)

		_, err = store.Resolve(ctx, 5, false)
		require.Error(t, err)
		assert.NotErrorIs(t, err, account.ErrNotFound)
		errutil.AssertErrorCode(t, err, "ACCOUNT_STORE_UNAVAILABLE")
	})
}

func TestStore_Resolve_ConcurrentFirstReference(t *testing.T) {
	ctx := context.Background()
	repo := account.NewMemoryRepository()
	repo.Put(account.Record{ID: 42, Username: "luke", Active: true})

	store, err := account.NewStore(repo)
	require.NoError(t, err)

	const workers = 32
	results := make([]*account.Account, workers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			acc, err := store.Resolve(ctx, 42, false)
			assert.NoError(t, err)
			results[i] = acc
		}(i)
	}
	close(start)
	wg.Wait()

	for _, acc := range results {
		assert.Same(t, results[0], acc)
	}
	assert.Equal(t, int64(1), repo.Loads())
}

func TestStore_ResolveByUsername(t *testing.T) {
	ctx := context.Background()

	t.Run("returns entity and stored credentials", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("GetByUsername", ctx, "luke").
			Return(account.Record{ID: 42, Username: "luke", PasswordHash: "abc", Salt: "xyz"}, nil)

		store, err := account.NewStore(repo)
		require.NoError(t, err)

		acc, creds, err := store.ResolveByUsername(ctx, "luke", false)
		require.NoError(t, err)
		assert.Equal(t, account.Credentials{PasswordHash: "abc", Salt: "xyz"}, creds)
		assert.False(t, creds.IsLegacy())
		assert.Equal(t, uint32(42), acc.ID())

		cached, ok := store.Cached(42)
		require.True(t, ok)
		assert.Same(t, acc, cached)
		repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("shares the instance resolved by id", func(t *testing.T) {
		repo := account.NewMemoryRepository()
		repo.Put(account.Record{ID: 3, Username: "chewie", PasswordHash: "x"})
		store, err := account.NewStore(repo)
		require.NoError(t, err)

		byID, err := store.Resolve(ctx, 3, false)
		require.NoError(t, err)
		byName, _, err := store.ResolveByUsername(ctx, "chewie", false)
		require.NoError(t, err)
		assert.Same(t, byID, byName)
	})

	t.Run("credentials come from the queried row", func(t *testing.T) {
		repo := account.NewMemoryRepository()
		repo.Put(account.Record{ID: 11, Username: "han", PasswordHash: "legacy"})
		store, err := account.NewStore(repo)
		require.NoError(t, err)

		acc, creds, err := store.ResolveByUsername(ctx, "han", false)
		require.NoError(t, err)
		require.True(t, creds.IsLegacy())

		// A concurrent login migrates the shared entity after the read.
		require.NoError(t, store.UpdateCredentials(ctx, acc, "salted", "pepper"))

		assert.Equal(t, "pepper", acc.Salt())
		assert.Equal(t, account.Credentials{PasswordHash: "legacy"}, creds)
	})

	t.Run("unknown username", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("GetByUsername", ctx, "ghost").Return(account.Record{}, account.ErrNotFound)

		store, err := account.NewStore(repo)
		require.NoError(t, err)

		_, _, err = store.ResolveByUsername(ctx, "ghost", false)
		assert.ErrorIs(t, err, account.ErrNotFound)
		errutil.AssertErrorCode(t, err, "ACCOUNT_NOT_FOUND")
	})

	t.Run("row without id is an invariant violation", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("GetByUsername", ctx, "zero").Return(account.Record{Username: "zero"}, nil)

		store, err := account.NewStore(repo)
		require.NoError(t, err)

		_, _, err = store.ResolveByUsername(ctx, "zero", false)
		errutil.AssertErrorCode(t, err, "ACCOUNT_INVARIANT")
	})
}

func TestStore_Register(t *testing.T) {
	ctx := context.Background()
	na := account.NewAccount{Username: "rey", PasswordHash: "h", Salt: "s", StationID: 77}

	t.Run("creates and resolves", func(t *testing.T) {
		repo := account.NewMemoryRepository()
		store, err := account.NewStore(repo)
		require.NoError(t, err)

		acc, creds, err := store.Register(ctx, na)
		require.NoError(t, err)
		assert.Equal(t, account.Credentials{PasswordHash: "h", Salt: "s"}, creds)
		assert.Equal(t, "rey", acc.Username())
		assert.Equal(t, uint32(77), acc.StationID())
		assert.True(t, acc.IsActive())
	})

	t.Run("duplicate username", func(t *testing.T) {
		repo := account.NewMemoryRepository()
		repo.Put(account.Record{ID: 1, Username: "rey"})
		store, err := account.NewStore(repo)
		require.NoError(t, err)

		_, _, err = store.Register(ctx, na)
		require.Error(t, err)
		assert.ErrorIs(t, err, account.ErrUsernameTaken)
	})

	t.Run("created row vanishes", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("Create", ctx, na).Return(uint32(8), nil)
		repo.On("GetByID", ctx, uint32(8)).Return(account.Record{}, account.ErrNotFound)

		store, err := account.NewStore(repo)
		require.NoError(t, err)

		_, _, err = store.Register(ctx, na)
		require.Error(t, err)
		assert.ErrorIs(t, err, account.ErrNotFound)
	})

	t.Run("storage failure", func(t *testing.T) {
		repo := new(mockRepository)
		repo.On("Create", ctx, na).Return(uint32(0), errors.New("disk full"))

		store, err := account.NewStore(repo)
		require.NoError(t, err)

		_, _, err = store.Register(ctx, na)
		errutil.AssertErrorCode(t, err, "ACCOUNT_STORE_UNAVAILABLE")
	})
}

func TestStore_UpdateCredentials(t *testing.T) {
	ctx := context.Background()
	repo := account.NewMemoryRepository()
	repo.Put(account.Record{ID: 4, Username: "finn", PasswordHash: "legacy"})
	store, err := account.NewStore(repo)
	require.NoError(t, err)

	acc, err := store.Resolve(ctx, 4, false)
	require.NoError(t, err)

	require.NoError(t, store.UpdateCredentials(ctx, acc, "salted", "pepper"))
	assert.Equal(t, "pepper", acc.Salt())
	assert.False(t, acc.Snapshot().IsLegacy())

	row, ok := repo.Row(4)
	require.True(t, ok)
	assert.Equal(t, "salted", row.PasswordHash)
	assert.Equal(t, "pepper", row.Salt)
}

func TestAccount_Ban(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	until := now.Add(3661 * time.Second)
	past := now.Add(-time.Minute)

	repo := account.NewMemoryRepository()
	repo.Put(account.Record{ID: 1, Username: "banned", BanExpires: &until, BanReason: "spam"})
	repo.Put(account.Record{ID: 2, Username: "served", BanExpires: &past, BanReason: "old"})
	store, err := account.NewStore(repo)
	require.NoError(t, err)

	banned, err := store.Resolve(ctx, 1, false)
	require.NoError(t, err)
	assert.True(t, banned.IsBanned(now))
	remaining, reason := banned.BanRemaining(now)
	assert.Equal(t, 3661*time.Second, remaining)
	assert.Equal(t, "spam", reason)

	served, err := store.Resolve(ctx, 2, false)
	require.NoError(t, err)
	assert.False(t, served.IsBanned(now))
	remaining, reason = served.BanRemaining(now)
	assert.Zero(t, remaining)
	assert.Empty(t, reason)
}

func TestBroker(t *testing.T) {
	t.Run("rejects nil constructor", func(t *testing.T) {
		_, err := account.NewBroker(account.Descriptor[account.Account]{Name: "accounts"})
		errutil.AssertErrorCode(t, err, "BROKER_INVALID_DESCRIPTOR")
	})

	t.Run("rejects foreign namespace", func(t *testing.T) {
		broker, err := account.NewBroker(account.AccountDescriptor(account.DefaultNamespace))
		require.NoError(t, err)

		_, _, err = broker.GetOrCreate(account.MakeObjectID(account.Namespace(9), 1))
		errutil.AssertErrorCode(t, err, "BROKER_NAMESPACE_MISMATCH")
		assert.Equal(t, 0, broker.Len())
	})

	t.Run("creates once", func(t *testing.T) {
		broker, err := account.NewBroker(account.AccountDescriptor(account.DefaultNamespace))
		require.NoError(t, err)

		oid := account.MakeObjectID(account.DefaultNamespace, 11)
		first, created, err := broker.GetOrCreate(oid)
		require.NoError(t, err)
		assert.True(t, created)

		second, created, err := broker.GetOrCreate(oid)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Same(t, first, second)

		found, ok := broker.LookUp(oid)
		assert.True(t, ok)
		assert.Same(t, first, found)
		assert.Equal(t, 1, broker.Len())
	})
}
