package ctxdb

import (
	"context"
	"database/sql"
	"fmt"
)

var (
	ErrNoDB = fmt.Errorf("ctxdb: no db found in context")
)

// context registration

var dbKey int

func WithDB(ctx context.Context, db *sql.DB) context.Context {
	return context.WithValue(ctx, &dbKey, db)
}

func GetDB(ctx context.Context) *sql.DB {
	if v := ctx.Value(&dbKey); v != nil {
		return v.(*sql.DB)
	}

	return nil
}

type TxFunc func(ctx context.Context, tx *sql.Tx) error

func UsingTx(ctx context.Context, opts *sql.TxOptions, fn TxFunc) error {
	db := GetDB(ctx)
	if db == nil {
		return ErrNoDB
	}

	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}
