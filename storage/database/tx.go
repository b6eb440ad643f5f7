package database

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
)

type transactor struct {
	db core.DB
}

var _ core.Transactor = (*transactor)(nil)

// NewTransactor returns a core.Transactor running functions in *sql.Tx transactions of db.
func NewTransactor(db core.DB) core.Transactor {
	return &transactor{db: db}
}

func (t *transactor) InTx(ctx context.Context, fn func(exec core.DBExecutor) error) (err error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return core.NewStorageError(err, "beginning transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rolling back: %v", rbErr)
		}
		return err
	}
	if err = tx.Commit(); err != nil {
		return core.NewStorageError(err, "committing transaction")
	}
	return nil
}
