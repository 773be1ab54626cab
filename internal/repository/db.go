package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// DBTX is the subset of *sql.DB and *sql.Tx the repositories need.
// Every repository is constructed over a DBTX, so the same code runs
// standalone (each mutating method opening its own transaction) or
// inside a caller-owned transaction when several repositories must
// commit together, e.g. the payment webhook marking a subscription
// paid and bulk-enrolling in one unit.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// runInTx executes fn inside a transaction when q is a plain *sql.DB.
// When q is already a transaction, fn runs directly on it and commit
// or rollback stays with the outer owner.
func runInTx(ctx context.Context, q DBTX, fn func(q DBTX) error) error {
	db, ok := q.(*sql.DB)
	if !ok {
		return fn(q)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// isDuplicateErr reports whether err is a MySQL duplicate-key error
// (error number 1062). Repositories use it to turn UNIQUE violations
// into domain results instead of opaque SQL errors.
func isDuplicateErr(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}

// dbTime formats a timestamp the way MySQL DATETIME columns expect,
// always in UTC.
func dbTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

// dbDate formats a date-only value for DATE columns.
func dbDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
