package repository

import (
	"context"
	"database/sql"

	"github.com/maheshrc27/postflow/internal/logger"
)

// insertReturningID runs an INSERT ... RETURNING id inside tx when one is
// given, otherwise directly on db.
func insertReturningID(ctx context.Context, db *sql.DB, tx *sql.Tx, query string, args ...interface{}) (int64, error) {
	var row *sql.Row
	if tx != nil {
		row = tx.QueryRowContext(ctx, query, args...)
	} else {
		row = db.QueryRowContext(ctx, query, args...)
	}

	var id int64
	if err := row.Scan(&id); err != nil {
		logger.L().Info(err.Error())
		return 0, err
	}
	return id, nil
}
