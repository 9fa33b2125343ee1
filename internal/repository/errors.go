// Package repository contains data access logic separated from HTTP
// handlers.  Each repository owns the SQL for one table and translates
// MySQL constraint violations into typed domain errors by matching the
// violated constraint's name.  An unmatched constraint is a programming
// error and propagates untranslated so it surfaces as a 500.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

const (
	mysqlErrDuplicate = 1062 // ER_DUP_ENTRY
	mysqlErrFKParent  = 1451 // ER_ROW_IS_REFERENCED_2 (delete/update parent)
	mysqlErrFKChild   = 1452 // ER_NO_REFERENCED_ROW_2 (insert/update child)
)

// isDuplicate reports whether err is a unique violation on the named key.
// MySQL embeds the key name in the error message
// (`Duplicate entry '...' for key 'table.key_name'`).
func isDuplicate(err error, key string) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlErrDuplicate {
		return strings.Contains(me.Message, key)
	}
	return false
}

// isFKViolation reports whether err is a foreign-key violation on the named
// constraint, on either side of the relation.
func isFKViolation(err error, constraint string) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) && (me.Number == mysqlErrFKParent || me.Number == mysqlErrFKChild) {
		return strings.Contains(me.Message, constraint)
	}
	return false
}

// rowExists runs an EXISTS() query.  Used after conditional UPDATEs: the
// MySQL driver reports rows *changed*, so a no-op update and a missing row
// both come back as zero affected rows and need to be told apart.
func rowExists(ctx context.Context, db *sql.DB, query string, args ...any) (bool, error) {
	var found bool
	if err := db.QueryRowContext(ctx, query, args...).Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}
