// Package magql derives a GraphQL schema from ORM-style model metadata.
//
// Given a set of models (tables, columns, relationships), magql generates a
// complete GraphQL type family per model — the base object type, mutation
// input types, a filter input, a sort enum and result payloads — together
// with query and mutation fields and SQL-backed resolver bindings, including
// filtering, sorting, pagination and batched relationship loading.
//
// A minimal end-to-end flow:
//
//	set, err := magql.NewModelSet(
//	    magql.NewModel("user",
//	        magql.Int("id").Primary(),
//	        magql.String("name").MaxLen(100),
//	        magql.Enum("role", "admin", "member").Default("member"),
//	    ).Relate(magql.ToMany("posts", "post").Via("user_id")),
//	    magql.NewModel("post",
//	        magql.Int("id").Primary(),
//	        magql.String("title"),
//	        magql.Int("user_id").References("user", "id"),
//	    ).Relate(magql.ToOne("author", "user").Via("user_id").Required()),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	drv, err := sql.Open(dialect.SQLite, "file:app.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	col, err := manager.NewCollection(set, resolver.NewFactory(drv, set))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sc, err := col.Schema()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(sc.SDL())
//
// The emitted SDL can be served by any GraphQL engine; the resolver
// functions attached to the schema execute against database/sql through
// the dialect/sql driver.
package magql

import (
	"fmt"
	"sort"
)

// Kind is the scalar kind of a model column. It determines the GraphQL
// scalar the column maps to and which filter operators apply to it.
type Kind int

// Column kinds. KindText behaves like KindString but signals an unbounded
// text column to storage-aware consumers.
const (
	KindInvalid Kind = iota
	KindString
	KindText
	KindInt
	KindFloat
	KindDecimal
	KindBool
	KindDate
	KindDateTime
	KindJSON
	KindEnum
	KindUUID
)

var kindNames = map[Kind]string{
	KindInvalid:  "invalid",
	KindString:   "string",
	KindText:     "text",
	KindInt:      "int",
	KindFloat:    "float",
	KindDecimal:  "decimal",
	KindBool:     "bool",
	KindDate:     "date",
	KindDateTime: "datetime",
	KindJSON:     "json",
	KindEnum:     "enum",
	KindUUID:     "uuid",
}

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Numeric reports whether the kind supports ordering comparators
// (lt/lte/gt/gte) in filters.
func (k Kind) Numeric() bool {
	return k == KindInt || k == KindFloat || k == KindDecimal
}

// Temporal reports whether the kind is a date or timestamp.
func (k Kind) Temporal() bool {
	return k == KindDate || k == KindDateTime
}

// Textual reports whether the kind is backed by a string column.
func (k Kind) Textual() bool {
	return k == KindString || k == KindText || k == KindUUID || k == KindJSON
}

// Direction describes how a relationship traverses between two models.
type Direction int

const (
	// ManyToOne means the owning model carries a foreign key to a single
	// target row (e.g. post.user_id -> user.id).
	ManyToOne Direction = iota + 1
	// OneToMany is the inverse of a ManyToOne: many target rows carry a
	// foreign key back to the owning model.
	OneToMany
	// ManyToMany traverses a join table carrying foreign keys to both sides.
	ManyToMany
)

// String returns the SQLAlchemy-style direction name.
func (d Direction) String() string {
	switch d {
	case ManyToOne:
		return "MANYTOONE"
	case OneToMany:
		return "ONETOMANY"
	case ManyToMany:
		return "MANYTOMANY"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ToMany reports whether the relationship resolves to a list of rows.
func (d Direction) ToMany() bool {
	return d == OneToMany || d == ManyToMany
}

// ForeignKey records a reference from a column to a column of another model.
type ForeignKey struct {
	// Model is the referenced model (table) name.
	Model string
	// Column is the referenced column name, usually the primary key.
	Column string
}

// Column describes a single model column.
//
// Columns are built with the fluent constructors (String, Int, Enum, ...)
// and configured by chaining:
//
//	magql.String("email").MaxLen(255).Unique()
type Column struct {
	// Name is the column name in snake_case.
	Name string
	// Kind is the scalar kind of the column.
	Kind Kind
	// Nullable reports whether the column accepts NULL.
	Nullable bool
	// PrimaryKey marks the column as (part of) the primary key.
	PrimaryKey bool
	// IsUnique marks the column as carrying a UNIQUE constraint.
	IsUnique bool
	// HasDefault reports whether the storage layer assigns a value when
	// none is provided. Such columns are never required in inputs.
	HasDefault bool
	// DefaultValue is the default assigned on insert when HasDefault is set
	// and the input omits the column. A nil value with HasDefault set means
	// the database itself assigns the default.
	DefaultValue any
	// Size is the maximum length for string-kinded columns; zero means
	// unbounded.
	Size int
	// Values holds the allowed values for KindEnum columns.
	Values []string
	// ForeignKey is non-nil when the column references another model.
	ForeignKey *ForeignKey
	// Comment is carried into the GraphQL field description.
	Comment string
}

// String returns a new string column.
func String(name string) *Column { return &Column{Name: name, Kind: KindString} }

// Text returns a new unbounded text column.
func Text(name string) *Column { return &Column{Name: name, Kind: KindText} }

// Int returns a new integer column.
func Int(name string) *Column { return &Column{Name: name, Kind: KindInt} }

// Float returns a new floating-point column.
func Float(name string) *Column { return &Column{Name: name, Kind: KindFloat} }

// Decimal returns a new fixed-precision decimal column.
func Decimal(name string) *Column { return &Column{Name: name, Kind: KindDecimal} }

// Bool returns a new boolean column.
func Bool(name string) *Column { return &Column{Name: name, Kind: KindBool} }

// Date returns a new date column.
func Date(name string) *Column { return &Column{Name: name, Kind: KindDate} }

// DateTime returns a new timestamp column.
func DateTime(name string) *Column { return &Column{Name: name, Kind: KindDateTime} }

// JSON returns a new JSON document column.
func JSON(name string) *Column { return &Column{Name: name, Kind: KindJSON} }

// UUID returns a new UUID column.
func UUID(name string) *Column { return &Column{Name: name, Kind: KindUUID} }

// Enum returns a new enum column restricted to the given values.
func Enum(name string, values ...string) *Column {
	return &Column{Name: name, Kind: KindEnum, Values: values}
}

// Primary marks the column as the primary key. Primary-key columns are
// excluded from mutation inputs.
func (c *Column) Primary() *Column {
	c.PrimaryKey = true
	c.HasDefault = true // assigned by the database
	return c
}

// Null allows NULL values. Nullable columns are optional in required
// inputs.
func (c *Column) Null() *Column {
	c.Nullable = true
	return c
}

// Unique adds a UNIQUE constraint.
func (c *Column) Unique() *Column {
	c.IsUnique = true
	return c
}

// MaxLen bounds the length of a string column. Inputs exceeding the bound
// fail validation.
func (c *Column) MaxLen(n int) *Column {
	c.Size = n
	return c
}

// Default records a storage-assigned default value. Columns with defaults
// are optional in required inputs.
func (c *Column) Default(v any) *Column {
	c.HasDefault = true
	c.DefaultValue = v
	return c
}

// References marks the column as a foreign key to model.column. Foreign-key
// columns are hidden from the GraphQL object type; the relationship covering
// them is exposed instead.
func (c *Column) References(model, column string) *Column {
	c.ForeignKey = &ForeignKey{Model: model, Column: column}
	return c
}

// WithComment sets the column comment, surfaced as the GraphQL field
// description.
func (c *Column) WithComment(s string) *Column {
	c.Comment = s
	return c
}

// Relationship describes a traversal from one model to another.
type Relationship struct {
	// Name is the relationship name in snake_case (e.g. "author", "posts").
	Name string
	// Target is the target model (table) name.
	Target string
	// Direction is the traversal direction.
	Direction Direction
	// Column is the foreign-key column: on the owning model for ManyToOne,
	// on the target model for OneToMany.
	Column string
	// JoinTable is the join table name for ManyToMany relationships.
	JoinTable string
	// JoinColumn and JoinTargetColumn are the join-table columns pointing
	// at the owning and target models respectively (ManyToMany only).
	JoinColumn       string
	JoinTargetColumn string
	// IsRequired reports whether the relationship must be set on create.
	// Only meaningful for ManyToOne.
	IsRequired bool
	// Comment is carried into the GraphQL field description.
	Comment string
}

// ToOne returns a many-to-one relationship to the target model.
func ToOne(name, target string) *Relationship {
	return &Relationship{Name: name, Target: target, Direction: ManyToOne}
}

// ToMany returns a one-to-many relationship to the target model.
func ToMany(name, target string) *Relationship {
	return &Relationship{Name: name, Target: target, Direction: OneToMany}
}

// Through returns a many-to-many relationship traversing the given join
// table. joinColumn points back at the owning model, targetColumn at the
// target model.
func Through(name, target, joinTable, joinColumn, targetColumn string) *Relationship {
	return &Relationship{
		Name:             name,
		Target:           target,
		Direction:        ManyToMany,
		JoinTable:        joinTable,
		JoinColumn:       joinColumn,
		JoinTargetColumn: targetColumn,
	}
}

// Via sets the foreign-key column backing the relationship. To-one and
// to-many relationships without it are rejected by NewModelSet.
func (r *Relationship) Via(column string) *Relationship {
	r.Column = column
	return r
}

// Required marks a to-one relationship as mandatory on create. Derived from
// foreign-key nullability when models are loaded from inspection.
func (r *Relationship) Required() *Relationship {
	r.IsRequired = true
	return r
}

// WithComment sets the relationship comment.
func (r *Relationship) WithComment(s string) *Relationship {
	r.Comment = s
	return r
}

// Model describes a single mapped table.
type Model struct {
	// Name is the table name in snake_case.
	Name string
	// Columns in declaration order.
	Columns []*Column
	// Relationships in declaration order.
	Relationships []*Relationship
	// Comment is carried into the GraphQL type description.
	Comment string
}

// NewModel returns a model with the given table name and columns.
func NewModel(name string, columns ...*Column) *Model {
	return &Model{Name: name, Columns: columns}
}

// Relate appends relationships to the model and returns it for chaining.
func (m *Model) Relate(rels ...*Relationship) *Model {
	m.Relationships = append(m.Relationships, rels...)
	return m
}

// WithComment sets the model comment.
func (m *Model) WithComment(s string) *Model {
	m.Comment = s
	return m
}

// Column returns the named column, or nil.
func (m *Model) Column(name string) *Column {
	for _, c := range m.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Relationship returns the named relationship, or nil.
func (m *Model) Relationship(name string) *Relationship {
	for _, r := range m.Relationships {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// PrimaryKey returns the primary-key column, or nil if the model has none.
// Models without a single-column primary key are skipped by the manager.
func (m *Model) PrimaryKey() *Column {
	for _, c := range m.Columns {
		if c.PrimaryKey {
			return c
		}
	}
	return nil
}

// ScalarColumns returns the columns exposed as GraphQL scalar fields:
// every column that is not a foreign key.
func (m *Model) ScalarColumns() []*Column {
	out := make([]*Column, 0, len(m.Columns))
	for _, c := range m.Columns {
		if c.ForeignKey == nil {
			out = append(out, c)
		}
	}
	return out
}

// ModelSet is a validated, ordered collection of models.
type ModelSet struct {
	models []*Model
	byName map[string]*Model
}

// NewModelSet validates the given models and returns them as a set.
// Validation rejects duplicate model or column names, relationships to
// unknown targets, and foreign keys referencing unknown models or columns.
func NewModelSet(models ...*Model) (*ModelSet, error) {
	s := &ModelSet{byName: make(map[string]*Model, len(models))}
	for _, m := range models {
		if m.Name == "" {
			return nil, fmt.Errorf("magql: model with empty name")
		}
		if _, ok := s.byName[m.Name]; ok {
			return nil, fmt.Errorf("magql: duplicate model %q", m.Name)
		}
		seen := make(map[string]struct{}, len(m.Columns))
		for _, c := range m.Columns {
			if c.Name == "" {
				return nil, fmt.Errorf("magql: model %q: column with empty name", m.Name)
			}
			if _, ok := seen[c.Name]; ok {
				return nil, fmt.Errorf("magql: model %q: duplicate column %q", m.Name, c.Name)
			}
			seen[c.Name] = struct{}{}
			if c.Kind == KindInvalid {
				return nil, fmt.Errorf("magql: model %q: column %q has invalid kind", m.Name, c.Name)
			}
			if c.Kind == KindEnum && len(c.Values) == 0 {
				return nil, fmt.Errorf("magql: model %q: enum column %q has no values", m.Name, c.Name)
			}
		}
		s.models = append(s.models, m)
		s.byName[m.Name] = m
	}
	for _, m := range s.models {
		if err := s.validateRefs(m); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *ModelSet) validateRefs(m *Model) error {
	for _, c := range m.Columns {
		if c.ForeignKey == nil {
			continue
		}
		target, ok := s.byName[c.ForeignKey.Model]
		if !ok {
			return fmt.Errorf("magql: model %q: column %q references unknown model %q",
				m.Name, c.Name, c.ForeignKey.Model)
		}
		if target.Column(c.ForeignKey.Column) == nil {
			return fmt.Errorf("magql: model %q: column %q references unknown column %q.%q",
				m.Name, c.Name, c.ForeignKey.Model, c.ForeignKey.Column)
		}
	}
	for _, r := range m.Relationships {
		target, ok := s.byName[r.Target]
		if !ok {
			return fmt.Errorf("magql: model %q: relationship %q targets unknown model %q",
				m.Name, r.Name, r.Target)
		}
		switch r.Direction {
		case ManyToOne:
			if r.Column == "" {
				return fmt.Errorf("magql: model %q: relationship %q is missing its foreign-key column",
					m.Name, r.Name)
			}
			if m.Column(r.Column) == nil {
				return fmt.Errorf("magql: model %q: relationship %q uses unknown column %q",
					m.Name, r.Name, r.Column)
			}
		case OneToMany:
			if r.Column == "" {
				return fmt.Errorf("magql: model %q: relationship %q is missing its foreign-key column",
					m.Name, r.Name)
			}
			if target.Column(r.Column) == nil {
				return fmt.Errorf("magql: model %q: relationship %q uses unknown column %q.%q",
					m.Name, r.Name, r.Target, r.Column)
			}
		case ManyToMany:
			if r.JoinTable == "" || r.JoinColumn == "" || r.JoinTargetColumn == "" {
				return fmt.Errorf("magql: model %q: relationship %q is missing join table columns",
					m.Name, r.Name)
			}
		default:
			return fmt.Errorf("magql: model %q: relationship %q has invalid direction",
				m.Name, r.Name)
		}
	}
	return nil
}

// Models returns the models in declaration order.
func (s *ModelSet) Models() []*Model {
	out := make([]*Model, len(s.models))
	copy(out, s.models)
	return out
}

// Model returns the named model, or nil.
func (s *ModelSet) Model(name string) *Model {
	return s.byName[name]
}

// Names returns the sorted model names.
func (s *ModelSet) Names() []string {
	out := make([]string, 0, len(s.models))
	for _, m := range s.models {
		out = append(out, m.Name)
	}
	sort.Strings(out)
	return out
}

// Referencing returns, for every model in the set, the many-to-one
// relationships whose target is the given model. It is the basis of the
// checkDelete query: rows in these models still point at a row about to be
// deleted.
func (s *ModelSet) Referencing(target string) map[*Model][]*Relationship {
	out := make(map[*Model][]*Relationship)
	for _, m := range s.models {
		for _, r := range m.Relationships {
			if r.Direction == ManyToOne && r.Target == target {
				out[m] = append(out[m], r)
			}
		}
	}
	return out
}
