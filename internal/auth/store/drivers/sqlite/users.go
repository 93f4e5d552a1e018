package sqlite

import (
	"context"
	"time"

	"github.com/pallidlabs/authgate/internal/auth/domain"
)

type usersRepo struct {
	q querier
}

const userColumns = `id, username, email, name, password_hash, role, created_by, updated_by, created_at, updated_at`

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var count int64
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM users WHERE username = ? OR email = ?`,
		username, email).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := time.Now().UTC()
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO users (id, username, email, name, password_hash, role, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.Name, u.PasswordHash, string(u.Role), u.CreatedBy, now, now)
	return mapConstraint(err)
}

func (r *usersRepo) UpdateRole(ctx context.Context, username string, role domain.Role, updatedBy string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users SET role = ?, updated_by = ?, updated_at = ? WHERE username = ?`,
		string(role), updatedBy, time.Now().UTC(), username)
	if err != nil {
		return err
	}
	return requireRowChanged(res)
}

func (r *usersRepo) UpdateProfile(ctx context.Context, username, name, email string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users SET name = ?, email = ?, updated_by = username, updated_at = ? WHERE username = ?`,
		name, email, time.Now().UTC(), username)
	if err != nil {
		return mapConstraint(err)
	}
	return requireRowChanged(res)
}

func (r *usersRepo) DeleteUser(ctx context.Context, username string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM users WHERE username = ?`, username)
	if err != nil {
		return err
	}
	return requireRowChanged(res)
}

func (r *usersRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
