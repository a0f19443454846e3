// Package resolver implements the SQL-backed resolver factory bound to
// the derived schema fields.
//
// Every operation resolver returns a payload map matching the derived
// payload types: mutation and single-query payloads carry errors and
// result, list payloads additionally carry the unpaginated count.
// Expected failures (row not found, validation and constraint
// violations) surface as payload error strings; unexpected failures
// return Go errors wrapped in the magql error taxonomy.
//
// Relationship resolvers batch through the loader registry when one is
// carried in the context, and fall back to direct queries otherwise.
package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/magql/magql"
	"github.com/magql/magql/dialect"
	"github.com/magql/magql/dialect/sql"
	"github.com/magql/magql/loader"
	"github.com/magql/magql/manager"
	"github.com/magql/magql/validator"
)

// Row is a database row keyed by column name.
type Row = loader.Row

// modelKey tags checkDelete rows with their source model for union type
// resolution.
const modelKey = "__table"

// Factory builds resolvers executing against a dialect.Driver.
type Factory struct {
	drv        dialect.Driver
	set        *magql.ModelSet
	validators *validator.Registry
	cache      magql.Cache
	cacheTTL   time.Duration
}

// Option configures a Factory.
type Option func(*Factory)

// WithValidators installs additional per-field validators, run after the
// constraint-derived ones.
func WithValidators(r *validator.Registry) Option {
	return func(f *Factory) { f.validators = r }
}

// WithCache caches list-query results in the given cache, msgpack
// encoded. Mutations invalidate the mutated model's entries.
func WithCache(c magql.Cache, ttl time.Duration) Option {
	return func(f *Factory) {
		f.cache = c
		f.cacheTTL = ttl
	}
}

// NewFactory returns a factory over the given driver and model set.
func NewFactory(drv dialect.Driver, set *magql.ModelSet, opts ...Option) *Factory {
	f := &Factory{drv: drv, set: set}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

var _ manager.ResolverFactory = (*Factory)(nil)

// NewLoaders returns a request-scoped loader registry for the factory's
// driver and model set. Install it with loader.WithLoaders before
// executing a request:
//
//	ctx = loader.WithLoaders(ctx, factory.NewLoaders())
func (f *Factory) NewLoaders() *loader.Loaders {
	return loader.NewLoaders(f.drv, f.set)
}

// ResolveModel implements manager.ResolverFactory, recovering the model
// name of a checkDelete row.
func (f *Factory) ResolveModel(value any) string {
	if row, ok := value.(map[string]any); ok {
		if m, ok := row[modelKey].(string); ok {
			return m
		}
	}
	return ""
}

// okPayload wraps a successful result.
func okPayload(result any) map[string]any {
	return map[string]any{"errors": nil, "result": result}
}

// errPayload wraps expected failures as payload error strings.
func errPayload(msgs ...string) map[string]any {
	return map[string]any{"errors": msgs, "result": nil}
}

func (f *Factory) model(name string) (*magql.Model, error) {
	m := f.set.Model(name)
	if m == nil {
		return nil, fmt.Errorf("resolver: unknown model %q", name)
	}
	return m, nil
}

// queryRows runs a selector through the given executor and scans all
// rows.
func (f *Factory) queryRows(ctx context.Context, ex dialect.ExecQuerier, s *sql.Selector) ([]Row, error) {
	query, args := s.Dialect(f.drv.Dialect()).Query()
	var rows sql.Rows
	if err := ex.Query(ctx, query, args, &rows); err != nil {
		return nil, err
	}
	return sql.ScanMaps(&rows)
}

// queryCount runs a COUNT(*) selector.
func (f *Factory) queryCount(ctx context.Context, s *sql.Selector) (int, error) {
	query, args := s.Dialect(f.drv.Dialect()).Query()
	var rows sql.Rows
	if err := f.drv.Query(ctx, query, args, &rows); err != nil {
		return 0, err
	}
	defer rows.Close()
	count := 0
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return 0, err
		}
	}
	return count, rows.Err()
}

// fetchRow fetches one row of m by primary key, batching through the
// context loaders when present.
func (f *Factory) fetchRow(ctx context.Context, m *magql.Model, id any) (Row, error) {
	key := loader.NormKey(id)
	if lds := loader.For[*loader.Loaders](ctx); lds != nil {
		if ld := lds.Row(m.Name); ld != nil {
			row, err := ld.Load(ctx, key)
			if err == loader.ErrNotFound {
				return nil, magql.NewNotFoundErrorWithID(m.Name, id)
			}
			return row, err
		}
	}
	return f.fetchRowDirect(ctx, m, key)
}

// fetchRowDirect fetches one row by primary key without consulting the
// loader registry, so mutations always observe fresh rows.
func (f *Factory) fetchRowDirect(ctx context.Context, m *magql.Model, id any) (Row, error) {
	pk := m.PrimaryKey()
	rows, err := f.queryRows(ctx, f.drv, sql.Select().From(m.Name).Where(sql.EQ(pk.Name, loader.NormKey(id))))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, magql.NewNotFoundErrorWithID(m.Name, id)
	}
	return rows[0], nil
}

// invalidate drops cached list results of a model after a mutation.
func (f *Factory) invalidate(ctx context.Context, model string) {
	if f.cache == nil {
		return
	}
	if err := f.cache.DeletePrefix(ctx, model+":"); err != nil {
		logger := magql.Logger()
		logger.Warn().Err(err).Str("model", model).Msg("cache invalidation failed")
	}
}
