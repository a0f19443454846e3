// Package dialect provides the database abstraction magql resolvers
// execute through, supporting PostgreSQL, MySQL and SQLite backends.
//
// Each dialect is identified by a constant string:
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite"
//
// The Driver interface wraps Exec/Query/Tx; dialect/sql provides the
// database/sql-backed implementation and the query builder.
package dialect

import (
	"context"

	"github.com/rs/zerolog"
)

// Supported dialect names. The names double as database/sql driver names
// for MySQL and Postgres; SQLite matches the modernc.org/sqlite driver.
const (
	MySQL    = "mysql"
	SQLite   = "sqlite"
	Postgres = "postgres"
)

// ExecQuerier wraps the two standard database operations.
type ExecQuerier interface {
	// Exec executes a query that does not return rows. v is either nil
	// or a *sql.Result destination.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query that returns rows. v is the *Rows
	// destination of the concrete driver.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the database abstraction the resolver layer executes through.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	Tx(ctx context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx is a database transaction.
type Tx interface {
	ExecQuerier
	Commit() error
	Rollback() error
}

// DebugDriver wraps a driver and logs every statement through zerolog.
type DebugDriver struct {
	Driver
	log zerolog.Logger
}

// Debug returns a driver that logs statements at debug level.
func Debug(d Driver, log zerolog.Logger) Driver {
	return &DebugDriver{Driver: d, log: log}
}

// Exec implements ExecQuerier.
func (d *DebugDriver) Exec(ctx context.Context, query string, args, v any) error {
	d.log.Debug().Str("op", "exec").Str("query", query).Any("args", args).Msg("magql")
	return d.Driver.Exec(ctx, query, args, v)
}

// Query implements ExecQuerier.
func (d *DebugDriver) Query(ctx context.Context, query string, args, v any) error {
	d.log.Debug().Str("op", "query").Str("query", query).Any("args", args).Msg("magql")
	return d.Driver.Query(ctx, query, args, v)
}

// Tx starts a transaction on the wrapped driver, logging the statements
// executed inside it.
func (d *DebugDriver) Tx(ctx context.Context) (Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &debugTx{Tx: tx, log: d.log}, nil
}

type debugTx struct {
	Tx
	log zerolog.Logger
}

func (t *debugTx) Exec(ctx context.Context, query string, args, v any) error {
	t.log.Debug().Str("op", "tx.exec").Str("query", query).Any("args", args).Msg("magql")
	return t.Tx.Exec(ctx, query, args, v)
}

func (t *debugTx) Query(ctx context.Context, query string, args, v any) error {
	t.log.Debug().Str("op", "tx.query").Str("query", query).Any("args", args).Msg("magql")
	return t.Tx.Query(ctx, query, args, v)
}
