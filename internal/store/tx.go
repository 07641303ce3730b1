package store

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// RunInTx runs fn inside a transaction. The transaction commits only when fn
// returns nil; any error (or panic) rolls it back.
func (db *DB) RunInTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
