package resolver

import (
	"context"
	"fmt"

	"github.com/magql/magql"
	"github.com/magql/magql/dialect"
	"github.com/magql/magql/schema"
	"github.com/magql/magql/validator"

	"github.com/magql/magql/dialect/sql"
)

type colValue struct {
	col   *magql.Column
	value any
}

type relValue struct {
	rel   *magql.Relationship
	value any // coerced ID for to-one, []any of IDs for to-many
}

// decodeInput coerces and validates a mutation input against the model.
// Field names map back to columns and relationships; unknown fields,
// coercion failures and validator violations are collected as payload
// error strings. On create, required columns and relationships must be
// present.
func (f *Factory) decodeInput(ctx context.Context, m *magql.Model, input map[string]any, create bool) ([]colValue, []relValue, []string) {
	var (
		cols []colValue
		rels []relValue
		errs []string
	)
	known := make(map[string]bool, len(input))

	for _, c := range m.ScalarColumns() {
		if c.PrimaryKey {
			continue
		}
		name := magql.FieldName(c.Name)
		raw, present := input[name]
		known[name] = true
		if !present {
			if create && !c.Nullable && !c.HasDefault {
				errs = append(errs, fmt.Sprintf("field %q is required", name))
			}
			continue
		}
		v, err := coerceValue(c.Kind, raw)
		if err != nil {
			errs = append(errs, fmt.Sprintf("field %q: %v", name, err))
			continue
		}
		if v == nil && !c.Nullable {
			errs = append(errs, fmt.Sprintf("field %q cannot be null", name))
			continue
		}
		fns := validator.ForColumn(c)
		if f.validators != nil {
			fns = append(fns, f.validators.For(m.Name, c.Name)...)
		}
		for _, verr := range validator.Apply(ctx, name, fns, v) {
			errs = append(errs, verr.Error())
		}
		cols = append(cols, colValue{col: c, value: v})
	}

	for _, r := range m.Relationships {
		name := magql.FieldName(r.Name)
		raw, present := input[name]
		known[name] = true
		if !present {
			if create && r.Direction == magql.ManyToOne && r.IsRequired {
				errs = append(errs, fmt.Sprintf("field %q is required", name))
			}
			continue
		}
		target, err := f.model(r.Target)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		if r.Direction.ToMany() {
			ids, err := coerceIDList(target, raw)
			if err != nil {
				errs = append(errs, fmt.Sprintf("field %q: %v", name, err))
				continue
			}
			rels = append(rels, relValue{rel: r, value: ids})
			continue
		}
		var id any
		if raw != nil {
			if id, err = coerceID(target, raw); err != nil {
				errs = append(errs, fmt.Sprintf("field %q: %v", name, err))
				continue
			}
		} else if r.IsRequired {
			errs = append(errs, fmt.Sprintf("field %q cannot be null", name))
			continue
		}
		rels = append(rels, relValue{rel: r, value: id})
	}

	for name := range input {
		if !known[name] {
			errs = append(errs, fmt.Sprintf("unknown field %q", name))
		}
	}
	return cols, rels, errs
}

// Create returns the create mutation resolver. Validation and constraint
// violations surface as payload errors.
func (f *Factory) Create(model string) schema.ResolveFunc {
	return func(ctx context.Context, source any, args map[string]any) (any, error) {
		m, err := f.model(model)
		if err != nil {
			return nil, err
		}
		input, ok := args["input"].(map[string]any)
		if !ok {
			return errPayload("input must be an object"), nil
		}
		cols, rels, errs := f.decodeInput(ctx, m, input, true)
		if len(errs) > 0 {
			return errPayload(errs...), nil
		}

		tx, err := f.drv.Tx(ctx)
		if err != nil {
			return nil, magql.NewMutationError(model, "create", err)
		}
		id, err := f.insertRow(ctx, tx, m, cols, rels)
		if err == nil {
			err = f.applyToMany(ctx, tx, m, id, rels, false)
		}
		if payload, ferr := f.finishMutation(tx, m, "create", err); payload != nil || ferr != nil {
			return payload, ferr
		}

		f.invalidate(ctx, m.Name)
		if id == nil {
			return okPayload(nil), nil
		}
		row, err := f.fetchRowDirect(ctx, m, id)
		if err != nil {
			return nil, magql.NewMutationError(model, "create", err)
		}
		return okPayload(row), nil
	}
}

// Update returns the update mutation resolver. To-many relationship
// inputs replace the current set of related rows.
func (f *Factory) Update(model string) schema.ResolveFunc {
	return func(ctx context.Context, source any, args map[string]any) (any, error) {
		m, err := f.model(model)
		if err != nil {
			return nil, err
		}
		id, err := coerceID(m, args["id"])
		if err != nil {
			return errPayload(err.Error()), nil
		}
		input, ok := args["input"].(map[string]any)
		if !ok {
			return errPayload("input must be an object"), nil
		}
		if _, err := f.fetchRowDirect(ctx, m, id); err != nil {
			if magql.IsNotFound(err) {
				return errPayload(err.Error()), nil
			}
			return nil, magql.NewMutationError(model, "update", err)
		}
		cols, rels, errs := f.decodeInput(ctx, m, input, false)
		if len(errs) > 0 {
			return errPayload(errs...), nil
		}

		tx, err := f.drv.Tx(ctx)
		if err != nil {
			return nil, magql.NewMutationError(model, "update", err)
		}
		upd := sql.Update(m.Name).Dialect(f.drv.Dialect())
		for _, cv := range cols {
			upd.Set(cv.col.Name, cv.value)
		}
		for _, rv := range rels {
			if rv.rel.Direction == magql.ManyToOne {
				upd.Set(rv.rel.Column, rv.value)
			}
		}
		var execErr error
		if !upd.Empty() {
			query, queryArgs := upd.Where(sql.EQ(m.PrimaryKey().Name, id)).Query()
			execErr = tx.Exec(ctx, query, queryArgs, nil)
		}
		if execErr == nil {
			execErr = f.applyToMany(ctx, tx, m, id, rels, true)
		}
		if payload, ferr := f.finishMutation(tx, m, "update", execErr); payload != nil || ferr != nil {
			return payload, ferr
		}

		f.invalidate(ctx, m.Name)
		row, err := f.fetchRowDirect(ctx, m, id)
		if err != nil {
			return nil, magql.NewMutationError(model, "update", err)
		}
		return okPayload(row), nil
	}
}

// Delete returns the delete mutation resolver. The payload result is the
// row as it was before deletion.
func (f *Factory) Delete(model string) schema.ResolveFunc {
	return func(ctx context.Context, source any, args map[string]any) (any, error) {
		m, err := f.model(model)
		if err != nil {
			return nil, err
		}
		id, err := coerceID(m, args["id"])
		if err != nil {
			return errPayload(err.Error()), nil
		}
		row, err := f.fetchRowDirect(ctx, m, id)
		if err != nil {
			if magql.IsNotFound(err) {
				return errPayload(err.Error()), nil
			}
			return nil, magql.NewMutationError(model, "delete", err)
		}

		query, queryArgs := sql.Delete(m.Name).
			Dialect(f.drv.Dialect()).
			Where(sql.EQ(m.PrimaryKey().Name, id)).
			Query()
		if err := f.drv.Exec(ctx, query, queryArgs, nil); err != nil {
			err = sql.TranslateConstraint(err)
			if magql.IsConstraintError(err) {
				return errPayload(err.Error()), nil
			}
			return nil, magql.NewMutationError(model, "delete", err)
		}
		f.invalidate(ctx, m.Name)
		return okPayload(row), nil
	}
}

// insertRow inserts the row and reports the new primary key. Postgres
// reports it through RETURNING; other dialects through LastInsertId,
// which only integer keys support.
func (f *Factory) insertRow(ctx context.Context, tx dialect.Tx, m *magql.Model, cols []colValue, rels []relValue) (any, error) {
	pk := m.PrimaryKey()
	ins := sql.Insert(m.Name).Dialect(f.drv.Dialect())
	for _, cv := range cols {
		ins.Set(cv.col.Name, cv.value)
	}
	for _, rv := range rels {
		if rv.rel.Direction == magql.ManyToOne {
			ins.Set(rv.rel.Column, rv.value)
		}
	}
	if f.drv.Dialect() == dialect.Postgres {
		query, args := ins.Returning(pk.Name).Query()
		var rows sql.Rows
		if err := tx.Query(ctx, query, args, &rows); err != nil {
			return nil, err
		}
		scanned, err := sql.ScanMaps(&rows)
		if err != nil {
			return nil, err
		}
		if len(scanned) == 0 {
			return nil, fmt.Errorf("resolver: insert returned no row")
		}
		return scanned[0][pk.Name], nil
	}
	query, args := ins.Query()
	var res sql.Result
	if err := tx.Exec(ctx, query, args, &res); err != nil {
		return nil, err
	}
	if pk.Kind != magql.KindInt {
		// Non-integer keys are database-assigned and not reported by
		// LastInsertId; the payload result stays empty.
		logger := magql.Logger()
		logger.Debug().Str("model", m.Name).Msg("created row has unreportable primary key")
		return nil, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return id, nil
}

// applyToMany reconciles to-many relationship inputs after the owning
// row exists. With replace set, the new ID lists replace the current
// related rows.
func (f *Factory) applyToMany(ctx context.Context, tx dialect.Tx, m *magql.Model, id any, rels []relValue, replace bool) error {
	if id == nil {
		for _, rv := range rels {
			if rv.rel.Direction.ToMany() {
				return fmt.Errorf("resolver: cannot set %q without the created row's primary key", rv.rel.Name)
			}
		}
		return nil
	}
	for _, rv := range rels {
		r := rv.rel
		ids, _ := rv.value.([]any)
		switch r.Direction {
		case magql.OneToMany:
			target, err := f.model(r.Target)
			if err != nil {
				return err
			}
			targetPK := target.PrimaryKey()
			if replace {
				query, args := sql.Update(r.Target).
					Dialect(f.drv.Dialect()).
					Set(r.Column, nil).
					Where(sql.EQ(r.Column, id)).
					Query()
				if err := tx.Exec(ctx, query, args, nil); err != nil {
					return err
				}
			}
			if len(ids) > 0 {
				query, args := sql.Update(r.Target).
					Dialect(f.drv.Dialect()).
					Set(r.Column, id).
					Where(sql.In(targetPK.Name, ids...)).
					Query()
				if err := tx.Exec(ctx, query, args, nil); err != nil {
					return err
				}
			}
		case magql.ManyToMany:
			if replace {
				query, args := sql.Delete(r.JoinTable).
					Dialect(f.drv.Dialect()).
					Where(sql.EQ(r.JoinColumn, id)).
					Query()
				if err := tx.Exec(ctx, query, args, nil); err != nil {
					return err
				}
			}
			for _, tid := range ids {
				query, args := sql.Insert(r.JoinTable).
					Dialect(f.drv.Dialect()).
					Set(r.JoinColumn, id).
					Set(r.JoinTargetColumn, tid).
					Query()
				if err := tx.Exec(ctx, query, args, nil); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// finishMutation commits or rolls back the transaction. Constraint
// violations become payload errors; other failures become mutation
// errors. A nil, nil return means the mutation committed.
func (f *Factory) finishMutation(tx dialect.Tx, m *magql.Model, op string, err error) (map[string]any, error) {
	if err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			logger := magql.Logger()
			logger.Warn().Err(rerr).Str("model", m.Name).Msg("rollback failed")
		}
		err = sql.TranslateConstraint(err)
		if magql.IsConstraintError(err) {
			return errPayload(err.Error()), nil
		}
		return nil, magql.NewMutationError(m.Name, op, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, magql.NewMutationError(m.Name, op, err)
	}
	return nil, nil
}
