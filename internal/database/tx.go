package database

import (
	"context"
	"database/sql"
)

// Queryer is the subset of database operations shared by *sql.DB and
// *sql.Tx. Store methods take a Queryer so single reads can run against the
// pool while multi-step mutations run inside one transaction.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx runs fn inside one serializable transaction. The transaction is
// committed only if fn returns nil; any error rolls the whole unit back, so
// a multi-step mutation is never partially visible.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}
