package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/pallidlabs/authgate/internal/auth/store"
)

// txStore is a Store scoped to a single *sql.Tx. Nested transactions are
// not supported; Tx/WithTx on a txStore return an error.
type txStore struct {
	tx *sql.Tx
}

var errNestedTx = errors.New("sqlite: nested transactions are not supported")

func (t *txStore) Users() store.Users   { return &usersRepo{q: t.tx} }
func (t *txStore) Tokens() store.Tokens { return &tokensRepo{q: t.tx} }

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) { return nil, errNestedTx }

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return errNestedTx
}

func (t *txStore) ApplyMigrations() error { return errNestedTx }

func (t *txStore) Ping(ctx context.Context) error { return nil }

func (t *txStore) Close() error { return t.tx.Rollback() }
