// Package sqlxrepos implements the repositories on postgres through sqlx.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/xronos/xronos/core"
)

// where accumulates AND-ed conditions written with ? placeholders.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// orderBy keeps the orderings on known fields (api field -> column) and falls back to `fallback`.
func orderBy(ordering []core.DBOrdering, fields map[string]string, fallback string) string {
	ordering = core.AllowedOrderings(ordering, fields)
	if len(ordering) == 0 {
		return " ORDER BY " + fallback
	}
	list := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		list = append(list, ord.String())
	}
	return " ORDER BY " + strings.Join(list, ", ")
}

// bind expands IN (?) slices and rebinds the placeholders for the driver.
func bind(db *sqlx.DB, query string, args []interface{}) (string, []interface{}, error) {
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, errors.Wrap(err, "expanding query arguments")
	}
	return db.Rebind(query), args, nil
}

// selectIn runs a select with ? placeholders into dest.
func selectIn(ctx context.Context, db *sqlx.DB, dest interface{}, query string, args []interface{}) error {
	query, args, err := bind(db, query, args)
	if err != nil {
		return err
	}
	return db.SelectContext(ctx, dest, query, args...)
}

// trapNoRowsErr maps psql "no rows" err to the domain's not found error
func trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// inTx runs fn in a transaction, rolling back if it fails.
func inTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// deleteByID removes a single row from `table`, returning notFound when nothing matched.
func deleteByID(ctx context.Context, db sqlx.ExecerContext, table, id string, notFound error) error {
	if _, err := uuid.Parse(id); err != nil {
		return notFound
	}
	res, err := db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = $1", id)
	if err != nil {
		return errors.Wrapf(err, "deleting %s", table)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound
	}
	return nil
}
