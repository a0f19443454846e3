// Package filter defines the filter input types attached to list queries
// and translates filter operators into SQL predicates.
//
// Every filterable column kind maps to a shared filter input type holding
// an operator enum and a value:
//
//	input StringFilter { operator: StringOperator, value: String }
//
// Enum columns get a per-enum filter type (e.g. UserRoleFilter) so the
// value field keeps the enum type. Relationships are filtered through
// RelFilter, matching rows related to a given ID.
package filter

import (
	"fmt"

	"github.com/magql/magql"
	"github.com/magql/magql/schema"
)

// Operator enums shared by all filter input types.
var (
	StringOperator  = schema.NewEnum("StringOperator", "INCLUDES", "EQUALS")
	DateOperator    = schema.NewEnum("DateOperator", "BEFORE", "ON", "AFTER")
	IntOperator     = schema.NewEnum("IntOperator", "lt", "lte", "eq", "neq", "gt", "gte")
	FloatOperator   = schema.NewEnum("FloatOperator", "lt", "lte", "eq", "neq", "gt", "gte")
	BooleanOperator = schema.NewEnum("BooleanOperator", "EQUALS", "NOTEQUALS")
	RelOperator     = schema.NewEnum("RelOperator", "INCLUDES")
	EnumOperator    = schema.NewEnum("EnumOperator", "INCLUDES")
)

// Shared filter input types, one per filterable column kind family.
var (
	StringFilter  = newFilter("StringFilter", StringOperator, schema.String)
	DateFilter    = newFilter("DateFilter", DateOperator, schema.String)
	IntFilter     = newFilter("IntFilter", IntOperator, schema.Int)
	FloatFilter   = newFilter("FloatFilter", FloatOperator, schema.Float)
	BooleanFilter = newFilter("BooleanFilter", BooleanOperator, schema.Boolean)
	RelFilter     = newFilter("RelFilter", RelOperator, schema.ID)
)

func newFilter(name string, op *schema.Enum, value schema.Type) *schema.InputObject {
	return schema.NewInputObject(name).
		SetField(schema.NewInputField("operator", schema.Named(op.Name))).
		SetField(schema.NewInputField("value", value))
}

// EnumFilter returns the filter input type for an enum column type,
// named after the enum (e.g. UserRole -> UserRoleFilter).
func EnumFilter(enum *schema.Enum) *schema.InputObject {
	return schema.NewInputObject(enum.Name+"Filter").
		SetField(schema.NewInputField("operator", schema.Named(EnumOperator.Name))).
		SetField(schema.NewInputField("value", schema.Named(enum.Name)))
}

// ForKind returns the shared filter input type for a column kind. Enum
// columns are handled separately through EnumFilter.
func ForKind(k magql.Kind) (*schema.InputObject, error) {
	switch {
	case k == magql.KindInt:
		return IntFilter, nil
	case k == magql.KindFloat || k == magql.KindDecimal:
		return FloatFilter, nil
	case k == magql.KindBool:
		return BooleanFilter, nil
	case k.Temporal():
		return DateFilter, nil
	case k.Textual():
		return StringFilter, nil
	default:
		return nil, fmt.Errorf("filter: no filter type for kind %s", k)
	}
}

// OperatorEnum returns the operator enum consumed by the filter type of a
// column kind.
func OperatorEnum(k magql.Kind) (*schema.Enum, error) {
	switch {
	case k == magql.KindInt:
		return IntOperator, nil
	case k == magql.KindFloat || k == magql.KindDecimal:
		return FloatOperator, nil
	case k == magql.KindBool:
		return BooleanOperator, nil
	case k.Temporal():
		return DateOperator, nil
	case k.Textual():
		return StringOperator, nil
	case k == magql.KindEnum:
		return EnumOperator, nil
	default:
		return nil, fmt.Errorf("filter: no operator enum for kind %s", k)
	}
}

// Types returns the shared operator enums and filter input types, in a
// stable order, for declaring in a schema.
func Types() []schema.NamedType {
	return []schema.NamedType{
		StringOperator, StringFilter,
		DateOperator, DateFilter,
		IntOperator, IntFilter,
		FloatOperator, FloatFilter,
		BooleanOperator, BooleanFilter,
		RelOperator, RelFilter,
		EnumOperator,
	}
}
