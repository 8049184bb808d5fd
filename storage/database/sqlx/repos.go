// Package sqlxrepos implements the repositories on PostgreSQL with sqlx.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/llpmm/campus/core"
)

// postgres error codes
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	invalidTextRepr     = "22P02" // eg. malformed uuid
)

// inTx runs fn in a transaction, committed only if fn succeeds.
// Errors returned by fn are passed through untouched.
func inTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return core.NewStoreError(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err = tx.Commit(); err != nil {
		return core.NewStoreError(err, "committing transaction")
	}
	return nil
}

// trapErr turns driver errors into core errors:
// no rows and malformed IDs into notFound, unique violations into the conflict registered for the constraint,
// anything else into a StoreError. Errors that already carry a kind are returned as is.
func trapErr(err error, msg string, notFound error, conflicts ...map[string]error) error {
	if err == nil {
		return nil
	}
	if core.ErrorKind(err) != core.KindInternal {
		return err
	}
	if errors.Cause(err) == sql.ErrNoRows && notFound != nil {
		return notFound
	}
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		switch pqErr.Code {
		case uniqueViolation:
			for _, cErrs := range conflicts {
				if cErr, ok := cErrs[pqErr.Constraint]; ok {
					return cErr
				}
			}
			return core.NewConflictError(pqErr.Message)
		case foreignKeyViolation:
			return core.NewValidationMessage("the referenced " + referencedTable(pqErr) + " does not exist")
		case invalidTextRepr:
			if notFound != nil {
				return notFound
			}
			return core.NewValidationMessage(pqErr.Message)
		}
	}
	return core.NewStoreError(err, msg)
}

func referencedTable(pqErr *pq.Error) string {
	// constraints are named <table>_<column>_fkey
	name := strings.TrimSuffix(pqErr.Constraint, "_fkey")
	if i := strings.Index(name, "_"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, "_id")
	if name == "" {
		return "record"
	}
	return strings.ReplaceAll(name, "_", " ")
}

// prefixed qualifies every column of cols with the table alias.
func prefixed(alias, cols string) string {
	fields := strings.Split(cols, ",")
	for i, f := range fields {
		fields[i] = alias + "." + strings.TrimSpace(f)
	}
	return strings.Join(fields, ", ")
}

func rowsAffected(res sql.Result, msg string) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, core.NewStoreError(err, msg)
	}
	return n, nil
}
