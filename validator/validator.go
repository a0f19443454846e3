// Package validator checks mutation input values against model
// constraints before they reach the database.
//
// Validators are derived from column metadata (required, max length, enum
// membership, scalar kind) and extended per model field through a
// Registry. Violations become magql.ValidationError values, which
// resolvers surface as payload error strings instead of failing the
// request.
package validator

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/magql/magql"
)

// Func validates a single coerced input value. A nil value means the
// input omitted the field.
type Func func(ctx context.Context, value any) error

// Required rejects nil values.
func Required() Func {
	return func(ctx context.Context, value any) error {
		if value == nil {
			return fmt.Errorf("value is required")
		}
		return nil
	}
}

// MaxLen rejects strings longer than n runes.
func MaxLen(n int) Func {
	return func(ctx context.Context, value any) error {
		s, ok := value.(string)
		if !ok {
			return nil
		}
		if utf8.RuneCountInString(s) > n {
			return fmt.Errorf("value exceeds maximum length %d", n)
		}
		return nil
	}
}

// OneOf rejects values outside the allowed set.
func OneOf(values ...string) Func {
	allowed := make(map[string]bool, len(values))
	for _, v := range values {
		allowed[v] = true
	}
	return func(ctx context.Context, value any) error {
		s, ok := value.(string)
		if !ok {
			return nil
		}
		if !allowed[s] {
			return fmt.Errorf("value %q is not one of the allowed values", s)
		}
		return nil
	}
}

// OfKind rejects values whose Go type does not match the column kind.
// Nil values pass; combine with Required for mandatory fields.
func OfKind(k magql.Kind) Func {
	return func(ctx context.Context, value any) error {
		if value == nil {
			return nil
		}
		ok := true
		switch {
		case k == magql.KindInt:
			switch value.(type) {
			case int, int32, int64:
			default:
				ok = false
			}
		case k == magql.KindFloat || k == magql.KindDecimal:
			switch value.(type) {
			case float32, float64, int, int64:
			default:
				ok = false
			}
		case k == magql.KindBool:
			_, ok = value.(bool)
		case k.Temporal():
			switch value.(type) {
			case time.Time, string:
			default:
				ok = false
			}
		case k == magql.KindUUID:
			switch v := value.(type) {
			case uuid.UUID:
			case string:
				if _, err := uuid.Parse(v); err != nil {
					return fmt.Errorf("value is not a valid UUID: %w", err)
				}
			default:
				ok = false
			}
		case k.Textual() || k == magql.KindEnum:
			_, ok = value.(string)
		}
		if !ok {
			return fmt.Errorf("value of type %T is not valid for a %s column", value, k)
		}
		return nil
	}
}

// ForColumn derives the validators implied by a column's constraints.
func ForColumn(c *magql.Column) []Func {
	fns := []Func{OfKind(c.Kind)}
	if c.Size > 0 {
		fns = append(fns, MaxLen(c.Size))
	}
	if c.Kind == magql.KindEnum {
		fns = append(fns, OneOf(c.Values...))
	}
	return fns
}

// Registry holds additional validators registered per model field. It is
// safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string][]Func
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string][]Func)}
}

// Add appends validators for a model field, run after the derived ones.
func (r *Registry) Add(model, field string, fns ...Func) {
	key := model + "." + field
	r.mu.Lock()
	r.funcs[key] = append(r.funcs[key], fns...)
	r.mu.Unlock()
}

// For returns the registered validators for a model field.
func (r *Registry) For(model, field string) []Func {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fns := r.funcs[model+"."+field]
	out := make([]Func, len(fns))
	copy(out, fns)
	return out
}

// Apply runs validators over a value and wraps each violation in a
// magql.ValidationError carrying the field name.
func Apply(ctx context.Context, field string, fns []Func, value any) []error {
	var errs []error
	for _, fn := range fns {
		if err := fn(ctx, value); err != nil {
			errs = append(errs, magql.NewValidationError(field, err))
		}
	}
	return errs
}
