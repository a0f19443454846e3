package filter

import (
	"fmt"

	"github.com/magql/magql"
	"github.com/magql/magql/dialect/sql"
)

// ErrOperator is wrapped by errors reporting an operator a column kind
// does not support.
var ErrOperator = fmt.Errorf("filter: operator not found")

// Predicate translates a filter condition on a column into a SQL
// predicate. The operator must belong to the operator enum of the
// column's kind.
func Predicate(c *magql.Column, operator string, value any) (sql.Predicate, error) {
	k := c.Kind
	switch {
	case k.Numeric():
		switch operator {
		case "lt":
			return sql.LT(c.Name, value), nil
		case "lte":
			return sql.LTE(c.Name, value), nil
		case "eq":
			return sql.EQ(c.Name, value), nil
		case "neq":
			return sql.NEQ(c.Name, value), nil
		case "gt":
			return sql.GT(c.Name, value), nil
		case "gte":
			return sql.GTE(c.Name, value), nil
		}
	case k == magql.KindBool:
		switch operator {
		case "EQUALS":
			return sql.EQ(c.Name, value), nil
		case "NOTEQUALS":
			return sql.NEQ(c.Name, value), nil
		}
	case k.Temporal():
		switch operator {
		case "BEFORE":
			return sql.LT(c.Name, value), nil
		case "ON":
			return sql.EQ(c.Name, value), nil
		case "AFTER":
			return sql.GT(c.Name, value), nil
		}
	case k == magql.KindEnum:
		if operator == "INCLUDES" {
			return sql.EQ(c.Name, value), nil
		}
	case k.Textual():
		switch operator {
		case "INCLUDES":
			s, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("filter: INCLUDES on %q needs a string value, got %T",
					c.Name, value)
			}
			return sql.Contains(c.Name, s), nil
		case "EQUALS":
			return sql.EQ(c.Name, value), nil
		}
	default:
		return nil, fmt.Errorf("filter: column %q has unfilterable kind %s", c.Name, k)
	}
	return nil, fmt.Errorf("%w: %q on kind %s", ErrOperator, operator, k)
}

// RelPredicate translates a relationship filter into a SQL predicate on
// the owning model's table: rows related to the row with the given ID.
//
// To-one relationships compare the foreign-key column directly. To-many
// relationships use a correlated EXISTS subquery against the target or
// join table, so the owning column references must be qualified with the
// table name when the predicate is rendered.
func RelPredicate(set *magql.ModelSet, m *magql.Model, r *magql.Relationship, operator string, value any) (sql.Predicate, error) {
	if operator != "INCLUDES" {
		return nil, fmt.Errorf("%w: %q on relationship %q", ErrOperator, operator, r.Name)
	}
	pk := m.PrimaryKey()
	if pk == nil {
		return nil, fmt.Errorf("filter: model %q has no primary key", m.Name)
	}
	owner := m.Name + "." + pk.Name
	switch r.Direction {
	case magql.ManyToOne:
		return sql.EQ(m.Name+"."+r.Column, value), nil
	case magql.OneToMany:
		target := set.Model(r.Target)
		targetPK := target.PrimaryKey()
		if targetPK == nil {
			return nil, fmt.Errorf("filter: model %q has no primary key", r.Target)
		}
		sub := sql.Select(r.Column).
			From(r.Target).
			Where(sql.ColumnsEQ(r.Target+"."+r.Column, owner)).
			Where(sql.EQ(r.Target+"."+targetPK.Name, value))
		return sql.Exists(sub), nil
	case magql.ManyToMany:
		sub := sql.Select(r.JoinColumn).
			From(r.JoinTable).
			Where(sql.ColumnsEQ(r.JoinTable+"."+r.JoinColumn, owner)).
			Where(sql.EQ(r.JoinTable+"."+r.JoinTargetColumn, value))
		return sql.Exists(sub), nil
	default:
		return nil, fmt.Errorf("filter: relationship %q has invalid direction", r.Name)
	}
}
