// Package manager derives the per-model GraphQL type families and wires
// them into a full schema.
//
// A TableManager covers one model: the base object type, the Input and
// InputRequired mutation inputs, the Filter input, the Sort enum, the
// Payload and ListPayload result types, two query fields (single by ID
// and a filtered, sorted, paginated list) and the create, update and
// delete mutations. A Collection groups the managers of a model set,
// resolves relationships into object, input and filter fields, and adds
// the checkDelete union query and the Page input.
//
// Resolver bindings come from a ResolverFactory, normally the SQL-backed
// factory in the resolver package. Any field can be rebound afterwards
// through the schema tree.
package manager

import (
	"context"
	"fmt"

	"github.com/magql/magql"
	"github.com/magql/magql/filter"
	"github.com/magql/magql/schema"
)

// ResolverFactory produces the resolver bindings a Collection attaches to
// derived fields. Implementations receive model and relationship names in
// their database (snake_case) form.
type ResolverFactory interface {
	// Single resolves the by-ID query, returning a payload map.
	Single(model string) schema.ResolveFunc
	// Many resolves the list query with filter, sort and page arguments,
	// returning a list payload map.
	Many(model string) schema.ResolveFunc
	// Create, Update and Delete resolve the mutations, returning payload
	// maps with validation errors in the errors field.
	Create(model string) schema.ResolveFunc
	Update(model string) schema.ResolveFunc
	Delete(model string) schema.ResolveFunc
	// Related resolves a relationship field on a row of model.
	Related(model, rel string) schema.ResolveFunc
	// CheckDelete resolves the rows still referencing a candidate row.
	CheckDelete() schema.ResolveFunc
	// ResolveModel maps a value produced by CheckDelete back to its model
	// name, for union type resolution.
	ResolveModel(value any) string
}

// Option configures a TableManager.
type Option func(*TableManager)

// WithName overrides the GraphQL type name derived from the table name.
func WithName(name string) Option {
	return func(m *TableManager) { m.name = name }
}

// WithSingleQueryName overrides the single query field name.
func WithSingleQueryName(name string) Option {
	return func(m *TableManager) { m.singleName = name }
}

// WithManyQueryName overrides the list query field name.
func WithManyQueryName(name string) Option {
	return func(m *TableManager) { m.manyName = name }
}

// TableManager derives and holds the GraphQL type family of one model.
type TableManager struct {
	model *magql.Model

	name       string
	singleName string
	manyName   string

	base          *schema.Object
	input         *schema.InputObject
	inputRequired *schema.InputObject
	filterInput   *schema.InputObject
	sort          *schema.Enum
	payload       *schema.Object
	listPayload   *schema.Object
	enums         []*schema.Enum
	enumFilters   []*schema.InputObject

	// Query and Mutation hold the root fields this manager contributes.
	Query    *schema.Object
	Mutation *schema.Object
}

// NewTableManager derives the type family for a model. The model must
// have a single-column primary key.
func NewTableManager(m *magql.Model, opts ...Option) (*TableManager, error) {
	if m.PrimaryKey() == nil {
		return nil, fmt.Errorf("manager: model %q has no primary key", m.Name)
	}
	mgr := &TableManager{
		model:    m,
		name:     magql.TypeName(m.Name),
		Query:    schema.NewObject("Query"),
		Mutation: schema.NewObject("Mutation"),
	}
	for _, opt := range opts {
		opt(mgr)
	}
	if mgr.singleName == "" {
		mgr.singleName = magql.SingleQueryName(m.Name)
	}
	if mgr.manyName == "" {
		mgr.manyName = magql.ManyQueryName(m.Name)
	}
	mgr.generateTypes()
	mgr.generateFields()
	return mgr, nil
}

// Model returns the managed model.
func (m *TableManager) Model() *magql.Model { return m.model }

// Name returns the GraphQL type name of the base object.
func (m *TableManager) Name() string { return m.name }

// SingleQueryName returns the single query field name.
func (m *TableManager) SingleQueryName() string { return m.singleName }

// ManyQueryName returns the list query field name.
func (m *TableManager) ManyQueryName() string { return m.manyName }

// CreateMutationName returns the create mutation field name.
func (m *TableManager) CreateMutationName() string { return "create" + m.name }

// UpdateMutationName returns the update mutation field name.
func (m *TableManager) UpdateMutationName() string { return "update" + m.name }

// DeleteMutationName returns the delete mutation field name.
func (m *TableManager) DeleteMutationName() string { return "delete" + m.name }

// Base returns the base object type.
func (m *TableManager) Base() *schema.Object { return m.base }

// Input returns the update mutation input type.
func (m *TableManager) Input() *schema.InputObject { return m.input }

// InputRequired returns the create mutation input type, where mandatory
// columns are non-null.
func (m *TableManager) InputRequired() *schema.InputObject { return m.inputRequired }

// FilterInput returns the list query filter type.
func (m *TableManager) FilterInput() *schema.InputObject { return m.filterInput }

// Sort returns the list query sort enum.
func (m *TableManager) Sort() *schema.Enum { return m.sort }

// Types returns every named type this manager declares, in a stable
// order.
func (m *TableManager) Types() []schema.NamedType {
	out := []schema.NamedType{m.base, m.input, m.inputRequired, m.filterInput, m.sort}
	for _, e := range m.enums {
		out = append(out, e)
	}
	for _, f := range m.enumFilters {
		out = append(out, f)
	}
	return append(out, m.payload, m.listPayload)
}

// generateTypes builds the column-driven part of the type family.
// Foreign-key columns are skipped entirely; relationships cover them.
// Primary-key columns appear in the base object, filter and sort but are
// excluded from mutation inputs.
func (m *TableManager) generateTypes() {
	m.base = schema.NewObject(m.name)
	if m.model.Comment != "" {
		m.base.Description = m.model.Comment
	}
	m.input = schema.NewInputObject(m.name + "Input")
	m.inputRequired = schema.NewInputObject(m.name + "InputRequired")
	m.filterInput = schema.NewInputObject(m.name + "Filter")
	m.sort = schema.NewEnum(m.name + "Sort")

	for _, c := range m.model.ScalarColumns() {
		fieldName := magql.FieldName(c.Name)
		fieldType := m.columnType(c)

		f := schema.NewField(fieldName, fieldType).WithResolver(columnResolver(c.Name))
		if c.Comment != "" {
			f.WithDescription(c.Comment)
		}
		m.base.SetField(f)

		if !c.PrimaryKey {
			m.input.SetField(schema.NewInputField(fieldName, fieldType))
			m.inputRequired.SetField(schema.NewInputField(fieldName, m.requiredType(c, fieldType)))
		}
		m.filterInput.SetField(schema.NewInputField(fieldName, m.filterType(c)))

		m.sort.SetValue(&schema.EnumValue{Name: fieldName + "_asc"})
		m.sort.SetValue(&schema.EnumValue{Name: fieldName + "_desc"})
	}

	m.payload = schema.NewObject(m.name + "Payload").
		SetField(schema.NewField("errors", schema.ListOf(schema.String))).
		SetField(schema.NewField("result", schema.Named(m.name)))
	m.listPayload = schema.NewObject(m.name + "ListPayload").
		SetField(schema.NewField("errors", schema.ListOf(schema.String))).
		SetField(schema.NewField("result", schema.ListOf(schema.Named(m.name)))).
		SetField(schema.NewField("count", schema.Int))
}

// columnType maps a column to its GraphQL type. The primary key maps to
// ID; enum columns declare a named enum (e.g. UserRole).
func (m *TableManager) columnType(c *magql.Column) schema.Type {
	if c.PrimaryKey {
		return schema.ID
	}
	switch c.Kind {
	case magql.KindInt:
		return schema.Int
	case magql.KindFloat, magql.KindDecimal:
		return schema.Float
	case magql.KindBool:
		return schema.Boolean
	case magql.KindDate, magql.KindDateTime:
		return schema.DateTime
	case magql.KindJSON:
		return schema.JSON
	case magql.KindUUID:
		return schema.UUID
	case magql.KindEnum:
		e := schema.NewEnum(m.name+magql.TypeName(c.Name), c.Values...)
		m.enums = append(m.enums, e)
		return schema.Named(e.Name)
	default:
		return schema.String
	}
}

// requiredType wraps the type in NonNull for columns that must be set on
// create: non-nullable and without a storage default.
func (m *TableManager) requiredType(c *magql.Column, t schema.Type) schema.Type {
	if !c.Nullable && !c.HasDefault {
		return schema.NonNullOf(t)
	}
	return t
}

func (m *TableManager) filterType(c *magql.Column) schema.Type {
	if c.Kind == magql.KindEnum {
		for _, e := range m.enums {
			if e.Name == m.name+magql.TypeName(c.Name) {
				ef := filter.EnumFilter(e)
				m.enumFilters = append(m.enumFilters, ef)
				return schema.Named(ef.Name)
			}
		}
	}
	if f, err := filter.ForKind(c.Kind); err == nil {
		return schema.Named(f.Name)
	}
	return schema.Named(filter.StringFilter.Name)
}

// generateFields builds the root query and mutation fields.
func (m *TableManager) generateFields() {
	m.Query.SetField(schema.NewField(m.singleName, schema.NonNullOf(schema.Named(m.payload.Name))).
		WithArgs(&schema.Argument{Name: "id", Type: schema.NonNullOf(schema.ID)}))
	m.Query.SetField(schema.NewField(m.manyName, schema.NonNullOf(schema.Named(m.listPayload.Name))).
		WithArgs(
			&schema.Argument{Name: "filter", Type: schema.Named(m.filterInput.Name)},
			&schema.Argument{Name: "sort", Type: schema.ListOf(schema.NonNullOf(schema.Named(m.sort.Name)))},
			&schema.Argument{Name: "page", Type: schema.Named("Page")},
		))
	m.Mutation.SetField(schema.NewField(m.CreateMutationName(), schema.NonNullOf(schema.Named(m.payload.Name))).
		WithArgs(&schema.Argument{Name: "input", Type: schema.NonNullOf(schema.Named(m.inputRequired.Name))}))
	m.Mutation.SetField(schema.NewField(m.UpdateMutationName(), schema.NonNullOf(schema.Named(m.payload.Name))).
		WithArgs(
			&schema.Argument{Name: "id", Type: schema.NonNullOf(schema.ID)},
			&schema.Argument{Name: "input", Type: schema.NonNullOf(schema.Named(m.input.Name))},
		))
	m.Mutation.SetField(schema.NewField(m.DeleteMutationName(), schema.NonNullOf(schema.Named(m.payload.Name))).
		WithArgs(&schema.Argument{Name: "id", Type: schema.NonNullOf(schema.ID)}))
}

// bindResolvers attaches factory bindings to the root fields.
func (m *TableManager) bindResolvers(f ResolverFactory) {
	if f == nil {
		return
	}
	m.Query.Field(m.singleName).WithResolver(f.Single(m.model.Name))
	m.Query.Field(m.manyName).WithResolver(f.Many(m.model.Name))
	m.Mutation.Field(m.CreateMutationName()).WithResolver(f.Create(m.model.Name))
	m.Mutation.Field(m.UpdateMutationName()).WithResolver(f.Update(m.model.Name))
	m.Mutation.Field(m.DeleteMutationName()).WithResolver(f.Delete(m.model.Name))
}

// columnResolver reads a column from a row map, translating the GraphQL
// field name back to the snake_case column.
func columnResolver(column string) schema.ResolveFunc {
	return func(ctx context.Context, source any, args map[string]any) (any, error) {
		row, ok := source.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("manager: cannot resolve column %q from %T", column, source)
		}
		return row[column], nil
	}
}
