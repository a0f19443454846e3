package sql

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/magql/magql"
	"modernc.org/sqlite"
)

// MySQL error numbers for constraint violations.
const (
	mysqlDupEntry      = 1062
	mysqlRowIsRef      = 1451
	mysqlNoRefRow      = 1452
	mysqlBadNull       = 1048
	mysqlCheckViolated = 3819
)

// SQLITE_CONSTRAINT; extended constraint codes carry it in the low byte.
const sqliteConstraint = 19

// TranslateConstraint maps driver-specific constraint violations from the
// MySQL, Postgres and SQLite drivers onto magql.ConstraintError. Errors
// that are not constraint violations pass through unchanged.
func TranslateConstraint(err error) error {
	if err == nil {
		return nil
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDupEntry, mysqlRowIsRef, mysqlNoRefRow, mysqlBadNull, mysqlCheckViolated:
			return magql.NewConstraintError(myErr.Message, err)
		}
		return err
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// Class 23 covers integrity constraint violations.
		if pqErr.Code.Class() == "23" {
			return magql.NewConstraintError(pqErr.Message, err)
		}
		return err
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		if liteErr.Code()&0xff == sqliteConstraint {
			return magql.NewConstraintError(liteErr.Error(), err)
		}
		return err
	}
	return err
}
