package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pallidlabs/authgate/internal/auth/domain"
	"github.com/pallidlabs/authgate/internal/auth/store/drivers/sqlite"
	"github.com/pallidlabs/authgate/pkg/jwtx"
)

const testAuthorizationKey = "shared-elevation-key"

func newAuthService(t *testing.T) *AuthService {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	return &AuthService{
		Store:            st,
		Codec:            jwtx.NewCodec([]byte("0123456789abcdef0123456789abcdef"), "authgate-test", 0, 0),
		AuthorizationKey: testAuthorizationKey,
	}
}

func register(t *testing.T, s *AuthService, username string) domain.TokenPair {
	t.Helper()

	pair, err := s.Register(context.Background(), username, username+"@example.com", "Test "+username, "Password123!")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	return pair
}

func isLive(t *testing.T, s *AuthService, raw string) bool {
	t.Helper()

	live, err := s.Store.Tokens().IsLive(context.Background(), raw)
	require.NoError(t, err)
	return live
}

func TestRegister(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("creates user with default role and live session", func(t *testing.T) {
		s := newAuthService(t)
		pair := register(t, s, "alice")

		u, err := s.Store.Users().GetUserByUsername(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, domain.RoleUser, u.Role)
		require.NotEqual(t, "Password123!", u.PasswordHash)

		require.True(t, isLive(t, s, pair.AccessToken))

		claims, err := s.Codec.Verify(pair.AccessToken)
		require.NoError(t, err)
		require.Equal(t, "alice", claims.Subject)
		require.Equal(t, "user", claims.Role)
		require.Equal(t, jwtx.KindAccess, claims.Kind)
	})

	t.Run("refresh token is not ledger-tracked", func(t *testing.T) {
		s := newAuthService(t)
		pair := register(t, s, "alice")
		require.False(t, isLive(t, s, pair.RefreshToken))
	})

	t.Run("duplicate username conflicts", func(t *testing.T) {
		s := newAuthService(t)
		register(t, s, "alice")

		_, err := s.Register(ctx, "alice", "other@example.com", "Other", "Password123!")
		require.ErrorIs(t, err, ErrConflict)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		s := newAuthService(t)
		register(t, s, "alice")

		_, err := s.Register(ctx, "alice2", "alice@example.com", "Other", "Password123!")
		require.ErrorIs(t, err, ErrConflict)
	})
}

func TestLogin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("valid credentials open a session", func(t *testing.T) {
		s := newAuthService(t)
		register(t, s, "alice")

		pair, err := s.Login(ctx, "alice", "Password123!")
		require.NoError(t, err)
		require.True(t, isLive(t, s, pair.AccessToken))
	})

	t.Run("login revokes every prior session", func(t *testing.T) {
		s := newAuthService(t)
		first := register(t, s, "alice")

		second, err := s.Login(ctx, "alice", "Password123!")
		require.NoError(t, err)

		require.False(t, isLive(t, s, first.AccessToken))
		require.True(t, isLive(t, s, second.AccessToken))
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		s := newAuthService(t)
		register(t, s, "alice")

		_, err := s.Login(ctx, "alice", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user looks like a wrong password", func(t *testing.T) {
		s := newAuthService(t)
		_, err := s.Login(ctx, "nobody", "Password123!")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("issues a new access token, keeps the refresh token", func(t *testing.T) {
		s := newAuthService(t)
		pair := register(t, s, "alice")

		next, err := s.Refresh(ctx, pair.RefreshToken)
		require.NoError(t, err)
		require.Equal(t, pair.RefreshToken, next.RefreshToken)
		require.NotEqual(t, pair.AccessToken, next.AccessToken)

		require.False(t, isLive(t, s, pair.AccessToken))
		require.True(t, isLive(t, s, next.AccessToken))
	})

	t.Run("repeated refreshes reuse the same refresh token", func(t *testing.T) {
		s := newAuthService(t)
		pair := register(t, s, "alice")

		first, err := s.Refresh(ctx, pair.RefreshToken)
		require.NoError(t, err)
		second, err := s.Refresh(ctx, first.RefreshToken)
		require.NoError(t, err)

		require.Equal(t, pair.RefreshToken, second.RefreshToken)
		require.False(t, isLive(t, s, first.AccessToken))
		require.True(t, isLive(t, s, second.AccessToken))
	})

	t.Run("access token cannot refresh", func(t *testing.T) {
		s := newAuthService(t)
		pair := register(t, s, "alice")

		_, err := s.Refresh(ctx, pair.AccessToken)
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})

	t.Run("expired refresh token propagates ErrExpired", func(t *testing.T) {
		s := newAuthService(t)
		register(t, s, "alice")

		short := jwtx.NewCodec(s.Codec.Key, s.Codec.Issuer, time.Nanosecond, time.Nanosecond)
		raw, err := short.IssueRefresh("alice", "user")
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond)

		_, err = s.Refresh(ctx, raw)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("foreign signature propagates ErrInvalidSig", func(t *testing.T) {
		s := newAuthService(t)
		register(t, s, "alice")

		forged := jwtx.NewCodec([]byte("some-entirely-different-hmac-key"), s.Codec.Issuer, 0, 0)
		raw, err := forged.IssueRefresh("alice", "user")
		require.NoError(t, err)

		_, err = s.Refresh(ctx, raw)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("deleted subject reports ErrNotFound", func(t *testing.T) {
		s := newAuthService(t)
		pair := register(t, s, "alice")

		require.NoError(t, s.Store.Users().DeleteUser(ctx, "alice"))

		_, err := s.Refresh(ctx, pair.RefreshToken)
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestLogout(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("revokes the session", func(t *testing.T) {
		s := newAuthService(t)
		pair := register(t, s, "alice")

		require.NoError(t, s.Logout(ctx, pair.AccessToken))
		require.False(t, isLive(t, s, pair.AccessToken))
	})

	t.Run("idempotent, even for unknown tokens", func(t *testing.T) {
		s := newAuthService(t)
		pair := register(t, s, "alice")

		require.NoError(t, s.Logout(ctx, pair.AccessToken))
		require.NoError(t, s.Logout(ctx, pair.AccessToken))
		require.NoError(t, s.Logout(ctx, "never-issued"))
	})
}

func TestAuthorize(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("elevates the role and bakes it into fresh claims", func(t *testing.T) {
		s := newAuthService(t)
		old := register(t, s, "alice")

		pair, err := s.Authorize(ctx, "alice", domain.RoleAdmin, testAuthorizationKey)
		require.NoError(t, err)

		u, err := s.Store.Users().GetUserByUsername(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, domain.RoleAdmin, u.Role)
		require.Equal(t, "SYSTEM", u.UpdatedBy)

		claims, err := s.Codec.Verify(pair.AccessToken)
		require.NoError(t, err)
		require.Equal(t, "admin", claims.Role)

		require.False(t, isLive(t, s, old.AccessToken))
		require.True(t, isLive(t, s, pair.AccessToken))
	})

	t.Run("wrong secret is forbidden and changes nothing", func(t *testing.T) {
		s := newAuthService(t)
		register(t, s, "alice")

		_, err := s.Authorize(ctx, "alice", domain.RoleAdmin, "guess")
		require.ErrorIs(t, err, ErrForbidden)

		u, err := s.Store.Users().GetUserByUsername(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, domain.RoleUser, u.Role)
	})

	t.Run("disabled when no key is configured", func(t *testing.T) {
		s := newAuthService(t)
		s.AuthorizationKey = ""
		register(t, s, "alice")

		_, err := s.Authorize(ctx, "alice", domain.RoleAdmin, "")
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("unknown user reports ErrNotFound", func(t *testing.T) {
		s := newAuthService(t)
		_, err := s.Authorize(ctx, "nobody", domain.RoleAdmin, testAuthorizationKey)
		require.ErrorIs(t, err, ErrNotFound)
	})
}
