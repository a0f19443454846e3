package schema

import (
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
)

// SchemaDocument converts the schema into a gqlparser AST document.
// Custom scalars (DateTime, JSON, UUID) referenced anywhere in the tree are
// declared automatically; references to undeclared named types are an
// error.
func (s *Schema) SchemaDocument() (*ast.SchemaDocument, error) {
	doc := &ast.SchemaDocument{}

	refs := s.collectReferences()
	for _, name := range sortedScalarRefs(refs) {
		doc.Definitions = append(doc.Definitions, &ast.Definition{
			Kind: ast.Scalar,
			Name: name,
		})
	}
	if err := s.checkReferences(refs); err != nil {
		return nil, err
	}

	if s.Query != nil && s.Query.Len() > 0 {
		doc.Definitions = append(doc.Definitions, objectDefinition(s.Query))
	}
	if s.Mutation != nil && s.Mutation.Len() > 0 {
		doc.Definitions = append(doc.Definitions, objectDefinition(s.Mutation))
	}
	for _, t := range s.types {
		def, err := typeDefinition(t)
		if err != nil {
			return nil, err
		}
		doc.Definitions = append(doc.Definitions, def)
	}
	return doc, nil
}

// SDL renders the schema as GraphQL SDL.
func (s *Schema) SDL() (string, error) {
	doc, err := s.SchemaDocument()
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	formatter.NewFormatter(&sb).FormatSchemaDocument(doc)
	return sb.String(), nil
}

// Validate renders the schema and checks that the result parses and
// validates under gqlparser.
func (s *Schema) Validate() error {
	sdl, err := s.SDL()
	if err != nil {
		return err
	}
	if _, err := gqlparser.LoadSchema(&ast.Source{Name: "magql", Input: sdl}); err != nil {
		return fmt.Errorf("schema: generated SDL does not validate: %w", err)
	}
	return nil
}

// collectReferences walks the tree and returns every referenced named type.
func (s *Schema) collectReferences() map[Named]bool {
	refs := make(map[Named]bool)
	var walk func(t Type)
	walk = func(t Type) {
		switch v := t.(type) {
		case Named:
			refs[v] = true
		case List:
			walk(v.Of)
		case NonNull:
			walk(v.Of)
		case *Object, *InputObject, *Enum, *Union, *Scalar:
			if nt, ok := v.(NamedType); ok {
				refs[Named(nt.TypeName())] = true
			}
		}
	}
	walkObject := func(o *Object) {
		if o == nil {
			return
		}
		for _, f := range o.Fields() {
			walk(f.Type)
			for _, a := range f.Args {
				walk(a.Type)
			}
		}
	}
	walkObject(s.Query)
	walkObject(s.Mutation)
	for _, t := range s.types {
		switch v := t.(type) {
		case *Object:
			walkObject(v)
		case *InputObject:
			for _, f := range v.Fields() {
				walk(f.Type)
			}
		case *Union:
			for _, m := range v.Types {
				refs[Named(m)] = true
			}
		}
	}
	return refs
}

// checkReferences rejects references to names that are neither built-in,
// custom scalars, nor declared types.
func (s *Schema) checkReferences(refs map[Named]bool) error {
	for name := range refs {
		if builtinScalars[name] || customScalars[name] {
			continue
		}
		if _, ok := s.index[string(name)]; !ok {
			return fmt.Errorf("schema: reference to undeclared type %q", name)
		}
	}
	return nil
}

// sortedScalarRefs returns the referenced custom scalar names in a stable
// order.
func sortedScalarRefs(refs map[Named]bool) []string {
	var out []string
	for _, name := range []Named{DateTime, JSON, UUID} {
		if refs[name] {
			out = append(out, string(name))
		}
	}
	return out
}

func typeDefinition(t NamedType) (*ast.Definition, error) {
	switch v := t.(type) {
	case *Object:
		return objectDefinition(v), nil
	case *InputObject:
		def := &ast.Definition{
			Kind:        ast.InputObject,
			Name:        v.Name,
			Description: v.Description,
		}
		for _, f := range v.Fields() {
			def.Fields = append(def.Fields, &ast.FieldDefinition{
				Name:        f.Name,
				Description: f.Description,
				Type:        astType(f.Type),
			})
		}
		return def, nil
	case *Enum:
		def := &ast.Definition{
			Kind:        ast.Enum,
			Name:        v.Name,
			Description: v.Description,
		}
		for _, ev := range v.Values() {
			def.EnumValues = append(def.EnumValues, &ast.EnumValueDefinition{
				Name:        ev.Name,
				Description: ev.Description,
			})
		}
		return def, nil
	case *Union:
		return &ast.Definition{
			Kind:        ast.Union,
			Name:        v.Name,
			Description: v.Description,
			Types:       append([]string(nil), v.Types...),
		}, nil
	case *Scalar:
		return &ast.Definition{
			Kind:        ast.Scalar,
			Name:        v.Name,
			Description: v.Description,
		}, nil
	default:
		return nil, fmt.Errorf("schema: cannot render type %T", t)
	}
}

func objectDefinition(o *Object) *ast.Definition {
	def := &ast.Definition{
		Kind:        ast.Object,
		Name:        o.Name,
		Description: o.Description,
	}
	for _, f := range o.Fields() {
		fd := &ast.FieldDefinition{
			Name:        f.Name,
			Description: f.Description,
			Type:        astType(f.Type),
		}
		for _, a := range f.Args {
			fd.Arguments = append(fd.Arguments, &ast.ArgumentDefinition{
				Name:        a.Name,
				Description: a.Description,
				Type:        astType(a.Type),
			})
		}
		def.Fields = append(def.Fields, fd)
	}
	return def
}

// astType converts a Type into the gqlparser type reference.
func astType(t Type) *ast.Type {
	switch v := t.(type) {
	case Named:
		return ast.NamedType(string(v), nil)
	case List:
		return ast.ListType(astType(v.Of), nil)
	case NonNull:
		inner := astType(v.Of)
		inner.NonNull = true
		return inner
	case NamedType:
		return ast.NamedType(v.TypeName(), nil)
	default:
		panic(fmt.Sprintf("schema: unknown type %T", t))
	}
}
