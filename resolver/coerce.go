package resolver

import (
	"fmt"
	"time"

	"github.com/99designs/gqlgen/graphql"
	"github.com/google/uuid"
	"github.com/magql/magql"
)

// Argument values arrive in whatever Go shape the GraphQL engine hands
// over (json.Number, string IDs, time.Time). Coercion through the gqlgen
// scalar helpers normalizes them to the types the SQL layer expects.

// coerceID coerces an ID argument to the primary-key column type of m:
// int64 for integer keys, string otherwise.
func coerceID(m *magql.Model, v any) (any, error) {
	pk := m.PrimaryKey()
	if pk != nil && pk.Kind == magql.KindInt {
		id, err := graphql.UnmarshalInt64(v)
		if err != nil {
			return nil, fmt.Errorf("id: %w", err)
		}
		return id, nil
	}
	id, err := graphql.UnmarshalID(v)
	if err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}
	if pk != nil && pk.Kind == magql.KindUUID {
		if _, err := uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("id: %w", err)
		}
	}
	return id, nil
}

// coerceValue coerces an input value to the Go type matching the column
// kind. Nil passes through so omitted and null fields stay nil.
func coerceValue(k magql.Kind, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch {
	case k == magql.KindInt:
		return graphql.UnmarshalInt64(v)
	case k == magql.KindFloat || k == magql.KindDecimal:
		return graphql.UnmarshalFloat(v)
	case k == magql.KindBool:
		return graphql.UnmarshalBoolean(v)
	case k == magql.KindDateTime:
		if t, ok := v.(time.Time); ok {
			return t, nil
		}
		return graphql.UnmarshalTime(v)
	case k == magql.KindJSON:
		return v, nil
	default:
		return graphql.UnmarshalString(v)
	}
}

// coerceIDList coerces a to-many relationship input into IDs of the
// target model.
func coerceIDList(target *magql.Model, v any) ([]any, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list of IDs, got %T", v)
	}
	out := make([]any, 0, len(items))
	for _, item := range items {
		id, err := coerceID(target, item)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
