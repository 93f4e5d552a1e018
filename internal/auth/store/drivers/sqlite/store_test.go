package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pallidlabs/authgate/internal/auth/domain"
	"github.com/pallidlabs/authgate/internal/auth/store"
	"github.com/pallidlabs/authgate/pkg/idx"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func seedUser(t *testing.T, s *Store, username string) domain.User {
	t.Helper()

	u := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		Email:        username + "@example.com",
		Name:         "Test " + username,
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		Role:         domain.RoleUser,
		CreatedBy:    username,
	}
	require.NoError(t, s.Users().CreateUser(context.Background(), u))
	return u
}

func TestUsersRepo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("create and get round-trip", func(t *testing.T) {
		s := newTestStore(t)
		seedUser(t, s, "alice")

		got, err := s.Users().GetUserByUsername(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, "alice", got.Username)
		require.Equal(t, "alice@example.com", got.Email)
		require.Equal(t, domain.RoleUser, got.Role)
		require.Equal(t, "alice", got.CreatedBy)
		require.Empty(t, got.UpdatedBy)
		require.False(t, got.CreatedAt.IsZero())
	})

	t.Run("absent user reports ErrNotFound", func(t *testing.T) {
		s := newTestStore(t)
		_, err := s.Users().GetUserByUsername(ctx, "nobody")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("duplicate username reports ErrAlreadyExists", func(t *testing.T) {
		s := newTestStore(t)
		u := seedUser(t, s, "alice")

		dup := u
		dup.ID = idx.New().String()
		dup.Email = "other@example.com"
		require.ErrorIs(t, s.Users().CreateUser(ctx, dup), store.ErrAlreadyExists)
	})

	t.Run("duplicate email reports ErrAlreadyExists", func(t *testing.T) {
		s := newTestStore(t)
		u := seedUser(t, s, "alice")

		dup := u
		dup.ID = idx.New().String()
		dup.Username = "alice2"
		require.ErrorIs(t, s.Users().CreateUser(ctx, dup), store.ErrAlreadyExists)
	})

	t.Run("exists check matches either column", func(t *testing.T) {
		s := newTestStore(t)
		seedUser(t, s, "alice")

		exists, err := s.Users().ExistsByUsernameOrEmail(ctx, "alice", "unused@example.com")
		require.NoError(t, err)
		require.True(t, exists)

		exists, err = s.Users().ExistsByUsernameOrEmail(ctx, "unused", "alice@example.com")
		require.NoError(t, err)
		require.True(t, exists)

		exists, err = s.Users().ExistsByUsernameOrEmail(ctx, "bob", "bob@example.com")
		require.NoError(t, err)
		require.False(t, exists)
	})

	t.Run("update role records the actor", func(t *testing.T) {
		s := newTestStore(t)
		seedUser(t, s, "alice")

		require.NoError(t, s.Users().UpdateRole(ctx, "alice", domain.RoleAdmin, "SYSTEM"))

		got, err := s.Users().GetUserByUsername(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, domain.RoleAdmin, got.Role)
		require.Equal(t, "SYSTEM", got.UpdatedBy)
	})

	t.Run("update role on absent user reports ErrNotFound", func(t *testing.T) {
		s := newTestStore(t)
		err := s.Users().UpdateRole(ctx, "nobody", domain.RoleAdmin, "SYSTEM")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("update profile changes name and email", func(t *testing.T) {
		s := newTestStore(t)
		seedUser(t, s, "alice")

		require.NoError(t, s.Users().UpdateProfile(ctx, "alice", "Alice L.", "alice@new.example.com"))

		got, err := s.Users().GetUserByUsername(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, "Alice L.", got.Name)
		require.Equal(t, "alice@new.example.com", got.Email)
		require.Equal(t, "alice", got.UpdatedBy)
	})

	t.Run("update profile onto a taken email conflicts", func(t *testing.T) {
		s := newTestStore(t)
		seedUser(t, s, "alice")
		seedUser(t, s, "bob")

		err := s.Users().UpdateProfile(ctx, "bob", "Bob", "alice@example.com")
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("list returns all users", func(t *testing.T) {
		s := newTestStore(t)
		seedUser(t, s, "alice")
		seedUser(t, s, "bob")

		users, err := s.Users().ListUsers(ctx)
		require.NoError(t, err)
		require.Len(t, users, 2)
	})

	t.Run("delete cascades to ledger rows", func(t *testing.T) {
		s := newTestStore(t)
		seedUser(t, s, "alice")
		recordToken(t, s, "alice", "tok-1")

		live, err := s.Tokens().IsLive(ctx, "tok-1")
		require.NoError(t, err)
		require.True(t, live)

		require.NoError(t, s.Users().DeleteUser(ctx, "alice"))

		_, err = s.Users().GetUserByUsername(ctx, "alice")
		require.ErrorIs(t, err, store.ErrNotFound)

		live, err = s.Tokens().IsLive(ctx, "tok-1")
		require.NoError(t, err)
		require.False(t, live)
	})

	t.Run("delete of absent user reports ErrNotFound", func(t *testing.T) {
		s := newTestStore(t)
		require.ErrorIs(t, s.Users().DeleteUser(ctx, "nobody"), store.ErrNotFound)
	})
}

func TestWithTx(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("commit persists", func(t *testing.T) {
		s := newTestStore(t)
		seedUser(t, s, "alice")

		err := s.WithTx(ctx, func(tx store.Tx) error {
			return tx.Users().UpdateRole(ctx, "alice", domain.RoleManager, "SYSTEM")
		})
		require.NoError(t, err)

		got, err := s.Users().GetUserByUsername(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, domain.RoleManager, got.Role)
	})

	t.Run("error rolls everything back", func(t *testing.T) {
		s := newTestStore(t)
		seedUser(t, s, "alice")

		err := s.WithTx(ctx, func(tx store.Tx) error {
			if err := tx.Users().UpdateRole(ctx, "alice", domain.RoleManager, "SYSTEM"); err != nil {
				return err
			}
			return store.ErrUnavailable
		})
		require.ErrorIs(t, err, store.ErrUnavailable)

		got, err := s.Users().GetUserByUsername(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, domain.RoleUser, got.Role)
	})
}
