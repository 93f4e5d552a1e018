package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pallidlabs/authgate/internal/auth/domain"
	"github.com/pallidlabs/authgate/internal/auth/store"
	"github.com/pallidlabs/authgate/pkg/slogx"
)

// UserService is the user-resource plumbing behind /users.
type UserService struct {
	Store store.Store
}

func (s *UserService) GetProfile(ctx context.Context, username string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrNotFound
		}
		slogx.FromContext(ctx).Error("user lookup failed", slog.Any("error", err))
		return domain.User{}, ErrOperationFailed
	}
	return u, nil
}

// UpdateProfile changes the caller's display name and email and returns the
// updated user. The email unique constraint surfaces as a conflict.
func (s *UserService) UpdateProfile(ctx context.Context, username, name, email string) (domain.User, error) {
	l := slogx.FromContext(ctx)

	err := s.Store.Users().UpdateProfile(ctx, username, name, email)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		return domain.User{}, ErrNotFound
	case errors.Is(err, store.ErrAlreadyExists):
		return domain.User{}, ErrConflict
	default:
		l.Error("profile update failed", slog.Any("error", err))
		return domain.User{}, ErrOperationFailed
	}

	return s.GetProfile(ctx, username)
}

func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.Store.Users().ListUsers(ctx)
	if err != nil {
		slogx.FromContext(ctx).Error("user listing failed", slog.Any("error", err))
		return nil, ErrOperationFailed
	}
	return users, nil
}

// DeleteUser removes the user; their ledger rows go with them via the
// schema's cascade, so any outstanding session dies at the same time.
func (s *UserService) DeleteUser(ctx context.Context, username string) error {
	l := slogx.FromContext(ctx)

	err := s.Store.Users().DeleteUser(context.WithoutCancel(ctx), username)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	default:
		l.Error("user deletion failed", slog.Any("error", err))
		return ErrOperationFailed
	}

	l.Info("user deleted", slog.String("username", username))
	return nil
}
