package loader

import (
	"context"
	"fmt"
	"sync"

	"github.com/magql/magql"
	"github.com/magql/magql/dialect"
	"github.com/magql/magql/dialect/sql"
)

// Row is a database row keyed by column name, as scanned by
// sql.ScanMaps.
type Row = map[string]any

// NormKey normalizes a scanned column value into a stable map key:
// integer widths collapse to int64 and byte slices to string, matching
// what database drivers return for keys. Pass every loader key through
// NormKey so cached and scanned keys compare equal.
func NormKey(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case uint:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return int64(n)
	case []byte:
		return string(n)
	default:
		return v
	}
}

// Loaders is the per-request registry of batch loaders for a model set.
// Row loaders fetch single rows by primary key; Related loaders fetch the
// row groups of to-many relationships keyed by the owning row's primary
// key.
type Loaders struct {
	drv  dialect.Driver
	set  *magql.ModelSet
	opts []Option

	mu      sync.Mutex
	rows    map[string]*Loader[any, Row]
	related map[string]*Loader[any, []Row]
}

// NewLoaders returns a loader registry executing through the given
// driver. Create one per request.
func NewLoaders(drv dialect.Driver, set *magql.ModelSet, opts ...Option) *Loaders {
	return &Loaders{
		drv:     drv,
		set:     set,
		opts:    opts,
		rows:    make(map[string]*Loader[any, Row]),
		related: make(map[string]*Loader[any, []Row]),
	}
}

// Row returns the by-primary-key loader for a model, or nil for unknown
// models.
func (l *Loaders) Row(model string) *Loader[any, Row] {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ld, ok := l.rows[model]; ok {
		return ld
	}
	m := l.set.Model(model)
	if m == nil || m.PrimaryKey() == nil {
		return nil
	}
	ld := New(l.rowBatch(m), l.opts...)
	l.rows[model] = ld
	return ld
}

// Related returns the group loader for a to-many relationship. Loading an
// owner primary key yields the related target rows; owners without
// related rows yield an empty group.
func (l *Loaders) Related(model, rel string) (*Loader[any, []Row], error) {
	key := model + "." + rel
	l.mu.Lock()
	defer l.mu.Unlock()
	if ld, ok := l.related[key]; ok {
		return ld, nil
	}
	m := l.set.Model(model)
	if m == nil {
		return nil, fmt.Errorf("loader: unknown model %q", model)
	}
	r := m.Relationship(rel)
	if r == nil {
		return nil, fmt.Errorf("loader: unknown relationship %q.%q", model, rel)
	}
	var batch BatchFunc[any, []Row]
	switch r.Direction {
	case magql.OneToMany:
		batch = l.oneToManyBatch(r)
	case magql.ManyToMany:
		batch = l.manyToManyBatch(r)
	default:
		return nil, fmt.Errorf("loader: relationship %q.%q is to-one, use Row", model, rel)
	}
	ld := New(batch, l.opts...)
	l.related[key] = ld
	return ld, nil
}

func (l *Loaders) rowBatch(m *magql.Model) BatchFunc[any, Row] {
	pk := m.PrimaryKey()
	return func(ctx context.Context, keys []any) ([]Row, []error) {
		rows, err := l.queryRows(ctx, sql.Select().
			Dialect(l.drv.Dialect()).
			From(m.Name).
			Where(sql.In(pk.Name, keys...)))
		if err != nil {
			return nil, []error{err}
		}
		return OrderByKeys(keys, rows, func(r Row) any { return NormKey(r[pk.Name]) })
	}
}

func (l *Loaders) oneToManyBatch(r *magql.Relationship) BatchFunc[any, []Row] {
	return func(ctx context.Context, keys []any) ([][]Row, []error) {
		rows, err := l.queryRows(ctx, sql.Select().
			Dialect(l.drv.Dialect()).
			From(r.Target).
			Where(sql.In(r.Column, keys...)))
		if err != nil {
			return nil, []error{err}
		}
		groups := GroupByKey(rows, func(row Row) any { return NormKey(row[r.Column]) })
		return OrderGroupsByKeys(keys, groups), nil
	}
}

// manyToManyBatch loads the join table pairs for the owner keys, then the
// target rows those pairs point at, and groups targets per owner in join
// row order.
func (l *Loaders) manyToManyBatch(r *magql.Relationship) BatchFunc[any, []Row] {
	target := l.set.Model(r.Target)
	return func(ctx context.Context, keys []any) ([][]Row, []error) {
		fail := func(err error) ([][]Row, []error) { return nil, []error{err} }
		pk := target.PrimaryKey()
		if pk == nil {
			return fail(fmt.Errorf("loader: model %q has no primary key", r.Target))
		}
		pairs, err := l.queryRows(ctx, sql.Select(r.JoinColumn, r.JoinTargetColumn).
			Dialect(l.drv.Dialect()).
			From(r.JoinTable).
			Where(sql.In(r.JoinColumn, keys...)))
		if err != nil {
			return fail(err)
		}
		ids := make([]any, 0, len(pairs))
		seen := make(map[any]bool, len(pairs))
		for _, p := range pairs {
			id := NormKey(p[r.JoinTargetColumn])
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
		byID := make(map[any]Row, len(ids))
		if len(ids) > 0 {
			targets, err := l.queryRows(ctx, sql.Select().
				Dialect(l.drv.Dialect()).
				From(r.Target).
				Where(sql.In(pk.Name, ids...)))
			if err != nil {
				return fail(err)
			}
			for _, row := range targets {
				byID[NormKey(row[pk.Name])] = row
			}
		}
		groups := make(map[any][]Row, len(keys))
		for _, p := range pairs {
			owner := NormKey(p[r.JoinColumn])
			if row, ok := byID[NormKey(p[r.JoinTargetColumn])]; ok {
				groups[owner] = append(groups[owner], row)
			}
		}
		return OrderGroupsByKeys(keys, groups), nil
	}
}

func (l *Loaders) queryRows(ctx context.Context, s *sql.Selector) ([]Row, error) {
	query, args := s.Query()
	var rows sql.Rows
	if err := l.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, err
	}
	return sql.ScanMaps(&rows)
}
