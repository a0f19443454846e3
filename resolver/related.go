package resolver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/magql/magql"
	"github.com/magql/magql/dialect/sql"
	"github.com/magql/magql/loader"
	"github.com/magql/magql/schema"
	"golang.org/x/sync/errgroup"
)

// Related returns the resolver of a relationship field on rows of model.
// It batches through the context loader registry when one is installed;
// otherwise each row queries directly.
func (f *Factory) Related(model, rel string) schema.ResolveFunc {
	return func(ctx context.Context, source any, args map[string]any) (any, error) {
		m, err := f.model(model)
		if err != nil {
			return nil, err
		}
		r := m.Relationship(rel)
		if r == nil {
			return nil, fmt.Errorf("resolver: unknown relationship %q.%q", model, rel)
		}
		row, ok := source.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("resolver: cannot resolve %q from %T", rel, source)
		}
		if r.Direction == magql.ManyToOne {
			return f.relatedOne(ctx, r, row)
		}
		return f.relatedMany(ctx, m, r, row)
	}
}

func (f *Factory) relatedOne(ctx context.Context, r *magql.Relationship, row Row) (any, error) {
	fk := row[r.Column]
	if fk == nil {
		return nil, nil
	}
	key := loader.NormKey(fk)
	if lds := loader.For[*loader.Loaders](ctx); lds != nil {
		if ld := lds.Row(r.Target); ld != nil {
			target, err := ld.Load(ctx, key)
			if errors.Is(err, loader.ErrNotFound) {
				return nil, nil
			}
			return target, err
		}
	}
	target, err := f.model(r.Target)
	if err != nil {
		return nil, err
	}
	out, err := f.fetchRowDirect(ctx, target, key)
	if magql.IsNotFound(err) {
		return nil, nil
	}
	return out, err
}

func (f *Factory) relatedMany(ctx context.Context, m *magql.Model, r *magql.Relationship, row Row) (any, error) {
	pk := m.PrimaryKey()
	if pk == nil {
		return nil, fmt.Errorf("resolver: model %q has no primary key", m.Name)
	}
	key := loader.NormKey(row[pk.Name])
	if lds := loader.For[*loader.Loaders](ctx); lds != nil {
		ld, err := lds.Related(m.Name, r.Name)
		if err != nil {
			return nil, err
		}
		return ld.Load(ctx, key)
	}
	switch r.Direction {
	case magql.OneToMany:
		return f.queryRows(ctx, f.drv, sql.Select().From(r.Target).Where(sql.EQ(r.Column, key)))
	case magql.ManyToMany:
		target, err := f.model(r.Target)
		if err != nil {
			return nil, err
		}
		targetPK := target.PrimaryKey()
		pairs, err := f.queryRows(ctx, f.drv, sql.Select(r.JoinTargetColumn).
			From(r.JoinTable).
			Where(sql.EQ(r.JoinColumn, key)))
		if err != nil {
			return nil, err
		}
		if len(pairs) == 0 {
			return []Row(nil), nil
		}
		ids := make([]any, len(pairs))
		for i, p := range pairs {
			ids[i] = loader.NormKey(p[r.JoinTargetColumn])
		}
		rows, err := f.queryRows(ctx, f.drv, sql.Select().From(r.Target).
			Where(sql.In(targetPK.Name, ids...)))
		if err != nil {
			return nil, err
		}
		byID := make(map[any]Row, len(rows))
		for _, tr := range rows {
			byID[loader.NormKey(tr[targetPK.Name])] = tr
		}
		out := make([]Row, 0, len(ids))
		for _, id := range ids {
			if tr, ok := byID[id]; ok {
				out = append(out, tr)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("resolver: relationship %q is not to-many", r.Name)
	}
}

// CheckDelete returns the resolver reporting every row that still
// references the row about to be deleted: the rows blocking, or about to
// be orphaned by, the delete. Referencing tables are scanned
// concurrently.
func (f *Factory) CheckDelete() schema.ResolveFunc {
	return func(ctx context.Context, source any, args map[string]any) (any, error) {
		table, _ := args["tableName"].(string)
		m, err := f.model(table)
		if err != nil {
			return nil, magql.NewQueryError(table, "checkDelete", err)
		}
		id, err := coerceID(m, args["id"])
		if err != nil {
			return nil, magql.NewQueryError(table, "checkDelete", err)
		}

		var (
			mu  sync.Mutex
			out []Row
		)
		g, gctx := errgroup.WithContext(ctx)
		for refModel, rels := range f.set.Referencing(table) {
			for _, r := range rels {
				g.Go(func() error {
					rows, err := f.queryRows(gctx, f.drv, sql.Select().
						From(refModel.Name).
						Where(sql.EQ(r.Column, id)))
					if err != nil {
						return err
					}
					for _, row := range rows {
						row[modelKey] = refModel.Name
					}
					mu.Lock()
					out = append(out, rows...)
					mu.Unlock()
					return nil
				})
			}
		}
		if err := g.Wait(); err != nil {
			return nil, magql.NewQueryError(table, "checkDelete", err)
		}
		sortRows(f.set, out)
		return out, nil
	}
}

// sortRows orders checkDelete results by model name then primary key for
// stable output.
func sortRows(set *magql.ModelSet, rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		mi, _ := rows[i][modelKey].(string)
		mj, _ := rows[j][modelKey].(string)
		if mi != mj {
			return mi < mj
		}
		var ki, kj string
		if m := set.Model(mi); m != nil && m.PrimaryKey() != nil {
			ki = fmt.Sprint(rows[i][m.PrimaryKey().Name])
			kj = fmt.Sprint(rows[j][m.PrimaryKey().Name])
		}
		return ki < kj
	})
}
