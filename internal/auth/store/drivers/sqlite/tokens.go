package sqlite

import (
	"context"
	"time"

	"github.com/pallidlabs/authgate/internal/auth/domain"
	"github.com/pallidlabs/authgate/pkg/cryptox"
)

// tokensRepo is the revocation ledger. Tokens are matched by SHA-256
// fingerprint; the raw string never touches disk.
type tokensRepo struct {
	q querier
}

func (r *tokensRepo) Record(ctx context.Context, t domain.IssuedToken) error {
	now := time.Now().UTC()
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO issued_tokens (id, token_hash, subject, kind, expired, revoked, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 0, 0, ?, ?)`,
		t.ID, t.TokenHash, t.Subject, t.Kind, now, now)
	return mapConstraint(err)
}

func (r *tokensRepo) IsLive(ctx context.Context, token string) (bool, error) {
	var count int64
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM issued_tokens WHERE token_hash = ? AND expired = 0 AND revoked = 0`,
		cryptox.FingerprintToken(token)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *tokensRepo) RevokeOne(ctx context.Context, token string) error {
	// Absent rows and already-dead rows are both fine: revocation is
	// idempotent.
	_, err := r.q.ExecContext(ctx,
		`UPDATE issued_tokens SET expired = 1, revoked = 1, updated_at = ? WHERE token_hash = ?`,
		time.Now().UTC(), cryptox.FingerprintToken(token))
	return err
}

func (r *tokensRepo) RevokeAllLiveForSubject(ctx context.Context, subject string) error {
	// One UPDATE, so the sweep operates on a statement-time snapshot:
	// tokens recorded after it starts are never swept.
	_, err := r.q.ExecContext(ctx,
		`UPDATE issued_tokens SET expired = 1, revoked = 1, updated_at = ?
		 WHERE subject = ? AND expired = 0 AND revoked = 0`,
		time.Now().UTC(), subject)
	return err
}

func (r *tokensRepo) DeleteRevokedBefore(ctx context.Context, cutoff time.Time) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM issued_tokens WHERE revoked = 1 AND updated_at < ?`, cutoff)
	return err
}
