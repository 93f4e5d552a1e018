// Package service holds the authentication flows. Handlers translate HTTP
// to these calls; stores and the token codec do the actual work.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pallidlabs/authgate/internal/auth/domain"
	"github.com/pallidlabs/authgate/internal/auth/store"
	"github.com/pallidlabs/authgate/pkg/cryptox"
	"github.com/pallidlabs/authgate/pkg/idx"
	"github.com/pallidlabs/authgate/pkg/jwtx"
	"github.com/pallidlabs/authgate/pkg/slogx"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrConflict           = errors.New("already_exists")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not_found")

	// ErrOperationFailed hides backend detail from callers; the detail is
	// logged where the failure happened.
	ErrOperationFailed = errors.New("operation_failed")
)

type AuthService struct {
	Store store.Store
	Codec *jwtx.Codec

	// AuthorizationKey guards the role-elevation flow. Empty disables it.
	AuthorizationKey string
}

// Register creates a new user with the default role and opens a session.
// The username/email conflict check and the session recording share one
// transaction, so a conflict never leaves a half-created account.
func (s *AuthService) Register(ctx context.Context, username, email, name, password string) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		l.Error("password hashing failed", slog.Any("error", err))
		return domain.TokenPair{}, ErrOperationFailed
	}

	u := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		CreatedBy:    username,
	}

	// Detached so a client disconnect cannot abort the account-plus-session
	// write midway.
	ctx = context.WithoutCancel(ctx)

	var pair domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		exists, err := tx.Users().ExistsByUsernameOrEmail(ctx, username, email)
		if err != nil {
			return err
		}
		if exists {
			return ErrConflict
		}
		if err := tx.Users().CreateUser(ctx, u); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrConflict
			}
			return err
		}
		pair, err = s.openSession(ctx, tx, u)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return domain.TokenPair{}, ErrConflict
		}
		l.Error("registration failed", slog.Any("error", err))
		return domain.TokenPair{}, ErrOperationFailed
	}

	l.Info("user registered", slog.String("username", username))
	return pair, nil
}

// Login verifies the password and opens a fresh session. Every token the
// subject held before is swept in the same transaction that records the new
// one, so there is never a moment with two live sessions.
func (s *AuthService) Login(ctx context.Context, username, password string) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	u, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Same error as a bad password; don't leak which usernames exist.
			return domain.TokenPair{}, ErrInvalidCredentials
		}
		l.Error("user lookup failed", slog.Any("error", err))
		return domain.TokenPair{}, ErrOperationFailed
	}

	if err := cryptox.VerifyPassword(password, u.PasswordHash); err != nil {
		l.Info("password verification failed", slog.String("username", username))
		return domain.TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.reissueSession(ctx, u)
	if err != nil {
		l.Error("login session issuance failed", slog.Any("error", err))
		return domain.TokenPair{}, ErrOperationFailed
	}

	l.Info("user logged in", slog.String("username", username))
	return pair, nil
}

// Refresh trades a refresh token for a new access token. The refresh token
// itself is returned unchanged: it is not rotated and not ledger-tracked, its
// signature expiry is its whole lifecycle. Codec failures propagate typed so
// the handler can distinguish expired from tampered.
func (s *AuthService) Refresh(ctx context.Context, raw string) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	claims, err := s.Codec.Verify(raw)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if claims.Kind != jwtx.KindRefresh {
		return domain.TokenPair{}, jwtx.ErrMalformed
	}

	u, err := s.Store.Users().GetUserByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrNotFound
		}
		l.Error("user lookup failed", slog.Any("error", err))
		return domain.TokenPair{}, ErrOperationFailed
	}

	ctx = context.WithoutCancel(ctx)

	var pair domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Tokens().RevokeAllLiveForSubject(ctx, u.Username); err != nil {
			return err
		}
		access, err := s.issueAccess(ctx, tx, u)
		if err != nil {
			return err
		}
		pair = domain.TokenPair{AccessToken: access, RefreshToken: raw}
		return nil
	})
	if err != nil {
		l.Error("refresh session issuance failed", slog.Any("error", err))
		return domain.TokenPair{}, ErrOperationFailed
	}

	l.Info("session refreshed", slog.String("username", u.Username))
	return pair, nil
}

// Logout revokes the presented access token. Revoking a token that was
// already revoked, or never recorded, succeeds the same way.
func (s *AuthService) Logout(ctx context.Context, raw string) error {
	if err := s.Store.Tokens().RevokeOne(context.WithoutCancel(ctx), raw); err != nil {
		slogx.FromContext(ctx).Error("token revocation failed", slog.Any("error", err))
		return ErrOperationFailed
	}
	return nil
}

// Authorize elevates a user's role given the shared authorization key,
// then opens a fresh session so the new role lands in the next token's
// claims immediately.
func (s *AuthService) Authorize(ctx context.Context, username string, role domain.Role, secret string) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	if s.AuthorizationKey == "" || !cryptox.ConstantTimeEquals(secret, s.AuthorizationKey) {
		l.Warn("authorization key rejected", slog.String("username", username))
		return domain.TokenPair{}, ErrForbidden
	}

	u, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrNotFound
		}
		l.Error("user lookup failed", slog.Any("error", err))
		return domain.TokenPair{}, ErrOperationFailed
	}

	u.Role = role
	ctx = context.WithoutCancel(ctx)

	var pair domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdateRole(ctx, username, role, "SYSTEM"); err != nil {
			return err
		}
		if err := tx.Tokens().RevokeAllLiveForSubject(ctx, username); err != nil {
			return err
		}
		pair, err = s.openSession(ctx, tx, u)
		return err
	})
	if err != nil {
		l.Error("role authorization failed", slog.Any("error", err))
		return domain.TokenPair{}, ErrOperationFailed
	}

	l.Info("role updated", slog.String("username", username), slog.String("role", role.String()))
	return pair, nil
}

// reissueSession sweeps the subject's live tokens and opens a new session,
// atomically. WithoutCancel keeps a client disconnect from aborting the
// commit between the sweep and the record.
func (s *AuthService) reissueSession(ctx context.Context, u domain.User) (domain.TokenPair, error) {
	ctx = context.WithoutCancel(ctx)

	var pair domain.TokenPair
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Tokens().RevokeAllLiveForSubject(ctx, u.Username); err != nil {
			return err
		}
		var err error
		pair, err = s.openSession(ctx, tx, u)
		return err
	})
	return pair, err
}

// openSession mints an access/refresh pair and records the access token in
// the ledger. Only access tokens are recorded; refresh tokens live and die
// by their signature.
func (s *AuthService) openSession(ctx context.Context, tx store.Tx, u domain.User) (domain.TokenPair, error) {
	access, err := s.issueAccess(ctx, tx, u)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := s.Codec.IssueRefresh(u.Username, u.Role.String())
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// issueAccess mints an access token and records its fingerprint.
func (s *AuthService) issueAccess(ctx context.Context, tx store.Tx, u domain.User) (string, error) {
	access, err := s.Codec.IssueAccess(u.Username, u.Role.String())
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	row := domain.IssuedToken{
		ID:        idx.New().String(),
		TokenHash: cryptox.FingerprintToken(access),
		Subject:   u.Username,
		Kind:      domain.TokenKindAccess,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.Tokens().Record(ctx, row); err != nil {
		return "", err
	}
	return access, nil
}
