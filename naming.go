package magql

import (
	"fmt"
	"strings"

	"github.com/go-openapi/inflect"
)

// Naming follows the JavaScript GraphQL conventions of the ecosystem:
// type names are PascalCase, field names are camelCase with a lower first
// letter, and the many-query name is the pluralized table name.

// TypeName converts a snake_case table name to the PascalCase GraphQL type
// name ("user_account" -> "UserAccount").
func TypeName(table string) string {
	return inflect.Camelize(table)
}

// FieldName converts a snake_case column or relationship name to a
// camelCase GraphQL field name ("created_at" -> "createdAt").
func FieldName(name string) string {
	return inflect.CamelizeDownFirst(name)
}

// SingleQueryName returns the query field name for fetching one row
// ("user_account" -> "userAccount").
func SingleQueryName(table string) string {
	return inflect.CamelizeDownFirst(table)
}

// ManyQueryName returns the query field name for fetching a list
// ("user_account" -> "userAccounts").
func ManyQueryName(table string) string {
	return inflect.CamelizeDownFirst(pluralizeLast(table))
}

// ColumnName converts a camelCase GraphQL field name back to the snake_case
// column name ("createdAt" -> "created_at"). The inverse of FieldName.
func ColumnName(field string) string {
	return inflect.Underscore(field)
}

// ParseSort splits a sort enum value ("createdAt_desc") into the
// snake_case column name and sort direction. Values without an _asc or
// _desc suffix are rejected.
func ParseSort(value string) (column string, desc bool, err error) {
	switch {
	case strings.HasSuffix(value, "_asc"):
		return ColumnName(strings.TrimSuffix(value, "_asc")), false, nil
	case strings.HasSuffix(value, "_desc"):
		return ColumnName(strings.TrimSuffix(value, "_desc")), true, nil
	}
	return "", false, fmt.Errorf("magql: invalid sort value %q", value)
}

// pluralizeLast pluralizes only the final word of a snake_case name, so
// "order_item" becomes "order_items" rather than "order_items" mangling
// earlier words.
func pluralizeLast(table string) string {
	i := strings.LastIndexByte(table, '_')
	if i < 0 {
		return inflect.Pluralize(table)
	}
	return table[:i+1] + inflect.Pluralize(table[i+1:])
}
