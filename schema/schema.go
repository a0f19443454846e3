// Package schema holds the GraphQL type tree that magql derives from model
// metadata, and converts it to SDL through the gqlparser AST.
//
// The tree is engine-agnostic: objects, input objects, enums, unions and
// wrapped types reference each other by name, and fields may carry a
// ResolveFunc binding that a GraphQL engine integration invokes at
// execution time.
//
// Core Components:
//
//   - Type: the interface implemented by all type references
//   - Named: a reference to a named type, including built-in scalars
//   - Object, InputObject, Enum, Union, Scalar: declarable named types
//   - Schema: the container with Query/Mutation roots, AST conversion,
//     SDL printing and schema merging
package schema

import (
	"context"
	"fmt"
)

// Type is a GraphQL type reference. Named types are referenced by name so
// the tree can be built before all types are declared, mirroring how the
// manager derives types table by table.
type Type interface {
	isType()
}

// Named references a named type: a built-in scalar, a declared object,
// input object, enum, union or custom scalar.
type Named string

func (Named) isType() {}

// Built-in and magql custom scalar references. DateTime, JSON and UUID are
// declared as scalar definitions automatically when referenced.
const (
	String   Named = "String"
	Int      Named = "Int"
	Float    Named = "Float"
	Boolean  Named = "Boolean"
	ID       Named = "ID"
	DateTime Named = "DateTime"
	JSON     Named = "JSON"
	UUID     Named = "UUID"
)

// builtinScalars are part of the GraphQL spec and never declared.
var builtinScalars = map[Named]bool{
	String: true, Int: true, Float: true, Boolean: true, ID: true,
}

// customScalars are declared in the SDL on first reference.
var customScalars = map[Named]bool{
	DateTime: true, JSON: true, UUID: true,
}

// List wraps a type as a GraphQL list.
type List struct {
	Of Type
}

func (List) isType() {}

// NonNull wraps a type as non-nullable.
type NonNull struct {
	Of Type
}

func (NonNull) isType() {}

// ListOf returns a list wrapper around t.
func ListOf(t Type) List { return List{Of: t} }

// NonNullOf returns a non-null wrapper around t.
func NonNullOf(t Type) NonNull { return NonNull{Of: t} }

// Unwrap returns the named type at the bottom of a chain of List/NonNull
// wrappers.
func Unwrap(t Type) Named {
	for {
		switch v := t.(type) {
		case Named:
			return v
		case List:
			t = v.Of
		case NonNull:
			t = v.Of
		default:
			return ""
		}
	}
}

// ResolveFunc resolves a field value. source is the parent value (nil for
// root fields) and args holds the coerced GraphQL arguments.
type ResolveFunc func(ctx context.Context, source any, args map[string]any) (any, error)

// TypeResolver maps a concrete value to the name of a union member type.
type TypeResolver func(value any) string

// Argument is a field argument definition.
type Argument struct {
	Name        string
	Type        Type
	Description string
}

// Field is an output field on an object type.
type Field struct {
	Name        string
	Type        Type
	Args        []*Argument
	Description string
	// Resolve is the runtime binding invoked by the GraphQL engine
	// integration. Nil means default (source map lookup) resolution.
	Resolve ResolveFunc
}

// NewField returns a field with the given name and type.
func NewField(name string, t Type) *Field {
	return &Field{Name: name, Type: t}
}

// WithArgs appends arguments and returns the field for chaining.
func (f *Field) WithArgs(args ...*Argument) *Field {
	f.Args = append(f.Args, args...)
	return f
}

// WithResolver sets the resolver binding.
func (f *Field) WithResolver(r ResolveFunc) *Field {
	f.Resolve = r
	return f
}

// WithDescription sets the field description.
func (f *Field) WithDescription(s string) *Field {
	f.Description = s
	return f
}

// Arg returns the named argument, or nil.
func (f *Field) Arg(name string) *Argument {
	for _, a := range f.Args {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// Object is a GraphQL object type with ordered fields.
type Object struct {
	Name        string
	Description string
	fields      []*Field
	index       map[string]*Field
}

// NewObject returns an empty object type.
func NewObject(name string) *Object {
	return &Object{Name: name, index: make(map[string]*Field)}
}

// TypeName implements NamedType.
func (o *Object) TypeName() string { return o.Name }

func (o *Object) isType() {}

// SetField adds or replaces a field, preserving insertion order.
func (o *Object) SetField(f *Field) *Object {
	if prev, ok := o.index[f.Name]; ok {
		for i, ef := range o.fields {
			if ef == prev {
				o.fields[i] = f
				break
			}
		}
	} else {
		o.fields = append(o.fields, f)
	}
	o.index[f.Name] = f
	return o
}

// Field returns the named field, or nil.
func (o *Object) Field(name string) *Field {
	return o.index[name]
}

// Fields returns the fields in insertion order.
func (o *Object) Fields() []*Field {
	out := make([]*Field, len(o.fields))
	copy(out, o.fields)
	return out
}

// Len returns the number of fields.
func (o *Object) Len() int { return len(o.fields) }

// InputField is a field on an input object type.
type InputField struct {
	Name        string
	Type        Type
	Description string
}

// NewInputField returns an input field with the given name and type.
func NewInputField(name string, t Type) *InputField {
	return &InputField{Name: name, Type: t}
}

// InputObject is a GraphQL input object type with ordered fields.
type InputObject struct {
	Name        string
	Description string
	fields      []*InputField
	index       map[string]*InputField
}

// NewInputObject returns an empty input object type.
func NewInputObject(name string) *InputObject {
	return &InputObject{Name: name, index: make(map[string]*InputField)}
}

// TypeName implements NamedType.
func (o *InputObject) TypeName() string { return o.Name }

func (o *InputObject) isType() {}

// SetField adds or replaces an input field, preserving insertion order.
func (o *InputObject) SetField(f *InputField) *InputObject {
	if prev, ok := o.index[f.Name]; ok {
		for i, ef := range o.fields {
			if ef == prev {
				o.fields[i] = f
				break
			}
		}
	} else {
		o.fields = append(o.fields, f)
	}
	o.index[f.Name] = f
	return o
}

// Field returns the named input field, or nil.
func (o *InputObject) Field(name string) *InputField {
	return o.index[name]
}

// Fields returns the input fields in insertion order.
func (o *InputObject) Fields() []*InputField {
	out := make([]*InputField, len(o.fields))
	copy(out, o.fields)
	return out
}

// EnumValue is a single value of an enum type.
type EnumValue struct {
	Name        string
	Description string
}

// Enum is a GraphQL enum type with ordered values.
type Enum struct {
	Name        string
	Description string
	values      []*EnumValue
	index       map[string]*EnumValue
}

// NewEnum returns an enum with the given values.
func NewEnum(name string, values ...string) *Enum {
	e := &Enum{Name: name, index: make(map[string]*EnumValue, len(values))}
	for _, v := range values {
		e.SetValue(&EnumValue{Name: v})
	}
	return e
}

// TypeName implements NamedType.
func (e *Enum) TypeName() string { return e.Name }

func (e *Enum) isType() {}

// SetValue adds or replaces an enum value.
func (e *Enum) SetValue(v *EnumValue) *Enum {
	if prev, ok := e.index[v.Name]; ok {
		for i, ev := range e.values {
			if ev == prev {
				e.values[i] = v
				break
			}
		}
	} else {
		e.values = append(e.values, v)
	}
	e.index[v.Name] = v
	return e
}

// Has reports whether the enum declares the given value.
func (e *Enum) Has(name string) bool {
	_, ok := e.index[name]
	return ok
}

// Values returns the enum values in insertion order.
func (e *Enum) Values() []*EnumValue {
	out := make([]*EnumValue, len(e.values))
	copy(out, e.values)
	return out
}

// Union is a GraphQL union over the named member types.
type Union struct {
	Name        string
	Description string
	Types       []string
	// ResolveType maps a runtime value to a member type name.
	ResolveType TypeResolver
}

// NewUnion returns a union over the given member type names.
func NewUnion(name string, types ...string) *Union {
	return &Union{Name: name, Types: types}
}

// TypeName implements NamedType.
func (u *Union) TypeName() string { return u.Name }

func (u *Union) isType() {}

// Scalar declares a custom scalar type.
type Scalar struct {
	Name        string
	Description string
}

// TypeName implements NamedType.
func (s *Scalar) TypeName() string { return s.Name }

func (s *Scalar) isType() {}

// NamedType is any declarable named type.
type NamedType interface {
	TypeName() string
}

// Schema is the container for the derived GraphQL schema.
type Schema struct {
	// Query and Mutation are the root operation types.
	Query    *Object
	Mutation *Object

	types []NamedType
	index map[string]NamedType
}

// New returns a schema with empty Query and Mutation roots.
func New() *Schema {
	return &Schema{
		Query:    NewObject("Query"),
		Mutation: NewObject("Mutation"),
		index:    make(map[string]NamedType),
	}
}

// AddType declares a named type. Declaring a different type under an
// existing name is an error; re-adding the same value is a no-op.
func (s *Schema) AddType(t NamedType) error {
	name := t.TypeName()
	if prev, ok := s.index[name]; ok {
		if prev == t {
			return nil
		}
		return fmt.Errorf("schema: type %q already declared", name)
	}
	s.types = append(s.types, t)
	s.index[name] = t
	return nil
}

// Type returns the declared type with the given name, or nil.
func (s *Schema) Type(name string) NamedType {
	return s.index[name]
}

// Types returns the declared types in insertion order.
func (s *Schema) Types() []NamedType {
	out := make([]NamedType, len(s.types))
	copy(out, s.types)
	return out
}

// Merge folds other into s. Types declared in both schemas must be objects
// with disjoint field sets; their fields are joined. Root query and
// mutation fields from other override same-named fields in s.
func (s *Schema) Merge(other *Schema) error {
	for _, t := range other.types {
		existing, ok := s.index[t.TypeName()]
		if !ok {
			if err := s.AddType(t); err != nil {
				return err
			}
			continue
		}
		dst, dstOK := existing.(*Object)
		src, srcOK := t.(*Object)
		if !dstOK || !srcOK {
			return fmt.Errorf("schema: cannot merge non-object type %q", t.TypeName())
		}
		for _, f := range src.Fields() {
			if dst.Field(f.Name) != nil {
				return fmt.Errorf("schema: duplicate field %q in type %q, cannot merge",
					f.Name, dst.Name)
			}
			dst.SetField(f)
		}
	}
	if other.Query != nil {
		for _, f := range other.Query.Fields() {
			s.Query.SetField(f)
		}
	}
	if other.Mutation != nil {
		for _, f := range other.Mutation.Fields() {
			s.Mutation.SetField(f)
		}
	}
	return nil
}
