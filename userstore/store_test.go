package userstore

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *Store {
	store, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newUser(email string) *User {
	now := time.Now()
	return &User{
		ID:           uuid.New().String(),
		Name:         "alice",
		Email:        email,
		PasswordHash: []byte("hash"),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestUsers(t *testing.T) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		store := setupStore(t)
		user := newUser("alice@example.com")
		require.NoError(t, store.CreateUser(ctx, user))

		got, err := store.GetUser(ctx, user.ID)
		require.NoError(t, err)
		require.Equal(t, user.Email, got.Email)
		require.Nil(t, got.WalletAddress)

		got, err = store.GetUserByEmail(ctx, " Alice@Example.com")
		require.NoError(t, err)
		require.Equal(t, user.ID, got.ID)
	})

	t.Run("duplicate email", func(t *testing.T) {
		store := setupStore(t)
		require.NoError(t, store.CreateUser(ctx, newUser("bob@example.com")))
		err := store.CreateUser(ctx, newUser("BOB@example.com"))
		require.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("not found", func(t *testing.T) {
		store := setupStore(t)
		_, err := store.GetUser(ctx, "missing")
		require.ErrorIs(t, err, ErrNotFound)
		_, err = store.GetUserByEmail(ctx, "missing@example.com")
		require.ErrorIs(t, err, ErrNotFound)
		_, err = store.SetUserWallet(ctx, "missing", "0xabc")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("wallet overwrite", func(t *testing.T) {
		store := setupStore(t)
		user := newUser("carol@example.com")
		require.NoError(t, store.CreateUser(ctx, user))

		_, err := store.SetUserWallet(ctx, user.ID, "0xaaa")
		require.NoError(t, err)
		updated, err := store.SetUserWallet(ctx, user.ID, "0xbbb")
		require.NoError(t, err)
		require.Equal(t, "0xbbb", *updated.WalletAddress)

		got, err := store.GetUser(ctx, user.ID)
		require.NoError(t, err)
		require.Equal(t, "0xbbb", *got.WalletAddress)
	})
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	session := &Session{
		ID:        uuid.New().String(),
		UserID:    "user-1",
		Email:     "alice@example.com",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, store.PutSession(ctx, session))

	got, err := store.GetSession(ctx, session.ID)
	require.NoError(t, err)
	require.True(t, got.Authenticated())
	require.Nil(t, got.WalletAddress)

	require.NoError(t, store.SetSessionWallet(ctx, session.ID, "0xaaa"))
	got, err = store.GetSession(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, "0xaaa", *got.WalletAddress)

	require.NoError(t, store.DeleteSession(ctx, session.ID))
	_, err = store.GetSession(ctx, session.ID)
	require.ErrorIs(t, err, ErrNotFound)

	expired := &Session{ID: "old", ExpiresAt: time.Now().Add(-time.Minute)}
	require.Error(t, store.PutSession(ctx, expired))

	guest := &Session{ID: "guest", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, store.PutSession(ctx, guest))
	got, err = store.GetSession(ctx, "guest")
	require.NoError(t, err)
	require.False(t, got.Authenticated())
}

func TestHandle(t *testing.T) {
	ctx := context.Background()

	t.Run("concurrent first use opens once", func(t *testing.T) {
		handle := NewHandle("")
		defer handle.Close() //nolint

		var wg sync.WaitGroup
		stores := make([]*Store, 8)
		for i := range stores {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				store, err := handle.Get(ctx)
				require.NoError(t, err)
				stores[i] = store
			}(i)
		}
		wg.Wait()

		for _, store := range stores {
			require.Same(t, stores[0], store)
		}
		require.Equal(t, 1, handle.opens)
		require.NoError(t, stores[0].Ping(ctx))
	})

	t.Run("failed open is retried", func(t *testing.T) {
		// the directory lock is held by another instance
		blocker := filepath.Join(t.TempDir(), "db")
		store, err := Open(blocker)
		require.NoError(t, err)

		handle := NewHandle(blocker)
		_, err = handle.Get(ctx)
		require.Error(t, err)
		require.Nil(t, handle.current())

		require.NoError(t, store.Close())
		got, err := handle.Get(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		require.NoError(t, handle.Close())
	})

	t.Run("cancelled wait", func(t *testing.T) {
		handle := NewHandle("")
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := handle.Get(cctx); err != nil {
			require.ErrorIs(t, err, context.Canceled)
		}

		// the open started by the cancelled caller still completes
		store, err := handle.Get(ctx)
		require.NoError(t, err)
		require.NoError(t, store.Ping(ctx))
		require.NoError(t, handle.Close())
	})
}
