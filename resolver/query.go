package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/99designs/gqlgen/graphql"
	"github.com/magql/magql"
	"github.com/magql/magql/dialect/sql"
	"github.com/magql/magql/filter"
	"github.com/magql/magql/schema"
	"github.com/vmihailenco/msgpack/v5"
)

// DefaultPerPage is the page size applied when a page argument sets
// current without perPage.
const DefaultPerPage = 30

// Single returns the by-ID query resolver. Missing rows surface as
// payload errors, not Go errors.
func (f *Factory) Single(model string) schema.ResolveFunc {
	return func(ctx context.Context, source any, args map[string]any) (any, error) {
		m, err := f.model(model)
		if err != nil {
			return nil, err
		}
		id, err := coerceID(m, args["id"])
		if err != nil {
			return errPayload(err.Error()), nil
		}
		row, err := f.fetchRow(ctx, m, id)
		if err != nil {
			if magql.IsNotFound(err) {
				return errPayload(err.Error()), nil
			}
			return nil, magql.NewQueryError(model, "single", err)
		}
		return okPayload(row), nil
	}
}

// manyResult is the msgpack-encoded cache entry of a list query.
type manyResult struct {
	Rows  []map[string]any `msgpack:"rows"`
	Count int              `msgpack:"count"`
}

// Many returns the list query resolver, applying filter, sort and page
// arguments. The payload count reports the total matching rows ignoring
// pagination.
func (f *Factory) Many(model string) schema.ResolveFunc {
	return func(ctx context.Context, source any, args map[string]any) (any, error) {
		m, err := f.model(model)
		if err != nil {
			return nil, err
		}
		preds, err := f.filterPredicates(m, args["filter"])
		if err != nil {
			return errPayload(err.Error()), nil
		}
		terms, err := sortTerms(m, args["sort"])
		if err != nil {
			return errPayload(err.Error()), nil
		}
		limit, offset, err := pageBounds(args["page"])
		if err != nil {
			return errPayload(err.Error()), nil
		}

		sel := sql.Select().From(m.Name)
		for _, p := range preds {
			sel.Where(p)
		}
		for _, t := range terms {
			sel.OrderBy(t.column, t.desc)
		}
		sel.Limit(limit).Offset(offset)

		key := f.manyKey(m, sel)
		if res, ok := f.cachedMany(ctx, key); ok {
			return res, nil
		}

		rows, err := f.queryRows(ctx, f.drv, sel)
		if err != nil {
			return nil, magql.NewQueryError(model, "many", err)
		}
		countSel := sql.SelectCount().From(m.Name)
		for _, p := range preds {
			countSel.Where(p)
		}
		count, err := f.queryCount(ctx, countSel)
		if err != nil {
			return nil, magql.NewQueryError(model, "count", err)
		}

		f.storeMany(ctx, key, rows, count)
		return map[string]any{"errors": nil, "result": rows, "count": count}, nil
	}
}

// filterPredicates translates the filter argument into SQL predicates.
// Keys are GraphQL field names mapping to columns or relationships.
func (f *Factory) filterPredicates(m *magql.Model, arg any) ([]sql.Predicate, error) {
	if arg == nil {
		return nil, nil
	}
	fields, ok := arg.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("filter must be an object, got %T", arg)
	}
	var preds []sql.Predicate
	// Walk the model's fields rather than the map for deterministic SQL.
	appendPred := func(name string, build func(op string, value any) (sql.Predicate, error)) error {
		raw, ok := fields[name]
		if !ok || raw == nil {
			return nil
		}
		cond, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("filter field %q must be an object", name)
		}
		op, _ := cond["operator"].(string)
		p, err := build(op, cond["value"])
		if err != nil {
			return err
		}
		preds = append(preds, p)
		return nil
	}
	for _, c := range m.ScalarColumns() {
		col := c
		err := appendPred(magql.FieldName(c.Name), func(op string, value any) (sql.Predicate, error) {
			v, err := coerceValue(col.Kind, value)
			if err != nil {
				return nil, fmt.Errorf("filter field %q: %w", col.Name, err)
			}
			return filter.Predicate(col, op, v)
		})
		if err != nil {
			return nil, err
		}
	}
	for _, r := range m.Relationships {
		rel := r
		err := appendPred(magql.FieldName(r.Name), func(op string, value any) (sql.Predicate, error) {
			target, err := f.model(rel.Target)
			if err != nil {
				return nil, err
			}
			id, err := coerceID(target, value)
			if err != nil {
				return nil, fmt.Errorf("filter field %q: %w", rel.Name, err)
			}
			return filter.RelPredicate(f.set, m, rel, op, id)
		})
		if err != nil {
			return nil, err
		}
	}
	return preds, nil
}

type sortTerm struct {
	column string
	desc   bool
}

// sortTerms parses the sort argument, a list of Sort enum values. Columns
// are checked against the model before reaching ORDER BY.
func sortTerms(m *magql.Model, arg any) ([]sortTerm, error) {
	if arg == nil {
		return nil, nil
	}
	var values []string
	switch v := arg.(type) {
	case []string:
		values = v
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("sort values must be strings, got %T", item)
			}
			values = append(values, s)
		}
	default:
		return nil, fmt.Errorf("sort must be a list, got %T", arg)
	}
	sortable := make(map[string]bool, len(m.Columns))
	for _, c := range m.ScalarColumns() {
		sortable[c.Name] = true
	}
	terms := make([]sortTerm, 0, len(values))
	for _, v := range values {
		column, desc, err := magql.ParseSort(v)
		if err != nil {
			return nil, err
		}
		if !sortable[column] {
			return nil, fmt.Errorf("unknown sort column %q", column)
		}
		terms = append(terms, sortTerm{column: column, desc: desc})
	}
	return terms, nil
}

// pageBounds converts the page argument into LIMIT/OFFSET bounds. No
// page argument means no bounds.
func pageBounds(arg any) (limit, offset int, err error) {
	if arg == nil {
		return -1, 0, nil
	}
	page, ok := arg.(map[string]any)
	if !ok {
		return 0, 0, fmt.Errorf("page must be an object, got %T", arg)
	}
	current := int64(1)
	if v, ok := page["current"]; ok && v != nil {
		if current, err = graphql.UnmarshalInt64(v); err != nil {
			return 0, 0, fmt.Errorf("page.current: %w", err)
		}
		if current < 1 {
			return 0, 0, fmt.Errorf("page.current must be positive, got %d", current)
		}
	}
	perPage := int64(DefaultPerPage)
	if v, ok := page["perPage"]; ok && v != nil {
		if perPage, err = graphql.UnmarshalInt64(v); err != nil {
			return 0, 0, fmt.Errorf("page.perPage: %w", err)
		}
		if perPage < 1 {
			return 0, 0, fmt.Errorf("page.perPage must be positive, got %d", perPage)
		}
	}
	return int(perPage), int((current - 1) * perPage), nil
}

// manyKey derives the cache key of a list query from its rendered SQL.
func (f *Factory) manyKey(m *magql.Model, sel *sql.Selector) string {
	if f.cache == nil {
		return ""
	}
	query, args := sel.Dialect(f.drv.Dialect()).Query()
	var sb strings.Builder
	sb.WriteString(query)
	for _, a := range args {
		fmt.Fprintf(&sb, "|%v", a)
	}
	return magql.CacheKey{
		Model:      m.Name,
		Operation:  "many",
		Predicates: sb.String(),
	}.String()
}

func (f *Factory) cachedMany(ctx context.Context, key string) (map[string]any, bool) {
	if f.cache == nil || key == "" {
		return nil, false
	}
	data, err := f.cache.Get(ctx, key)
	if err != nil {
		logger := magql.Logger()
		logger.Warn().Err(err).Msg("cache get failed")
		return nil, false
	}
	if data == nil {
		return nil, false
	}
	var res manyResult
	if err := msgpack.Unmarshal(data, &res); err != nil {
		logger := magql.Logger()
		logger.Warn().Err(err).Msg("cache decode failed")
		return nil, false
	}
	rows := make([]Row, len(res.Rows))
	for i, r := range res.Rows {
		rows[i] = r
	}
	return map[string]any{"errors": nil, "result": rows, "count": res.Count}, true
}

func (f *Factory) storeMany(ctx context.Context, key string, rows []Row, count int) {
	if f.cache == nil || key == "" {
		return
	}
	res := manyResult{Rows: make([]map[string]any, len(rows)), Count: count}
	for i, r := range rows {
		res.Rows[i] = r
	}
	data, err := msgpack.Marshal(res)
	if err != nil {
		logger := magql.Logger()
		logger.Warn().Err(err).Msg("cache encode failed")
		return
	}
	if err := f.cache.Set(ctx, key, data, f.cacheTTL); err != nil {
		logger := magql.Logger()
		logger.Warn().Err(err).Msg("cache set failed")
	}
}
