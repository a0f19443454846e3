// Package manifest loads model sets from a YAML manifest, the file-based
// alternative to declaring models in Go code. The CLI reads a manifest
// and derives the schema from it.
//
// A manifest lists models in order; order is preserved so the derived
// schema is deterministic:
//
//	models:
//	  - name: user
//	    columns:
//	      - {name: id, type: int, primary: true}
//	      - {name: name, type: string, size: 100}
//	      - {name: role, type: enum, values: [admin, member], default: member}
//	    relationships:
//	      - {name: posts, kind: to_many, target: post, column: user_id}
package manifest

import (
	"fmt"
	"os"

	"github.com/magql/magql"
	"gopkg.in/yaml.v3"
)

// Manifest is the root document.
type Manifest struct {
	Models []ModelSpec `yaml:"models"`
}

// ModelSpec declares one model (table).
type ModelSpec struct {
	Name          string             `yaml:"name"`
	Comment       string             `yaml:"comment,omitempty"`
	Columns       []ColumnSpec       `yaml:"columns"`
	Relationships []RelationshipSpec `yaml:"relationships,omitempty"`
}

// ColumnSpec declares one column.
type ColumnSpec struct {
	Name       string         `yaml:"name"`
	Type       string         `yaml:"type"`
	Primary    bool           `yaml:"primary,omitempty"`
	Nullable   bool           `yaml:"nullable,omitempty"`
	Unique     bool           `yaml:"unique,omitempty"`
	Size       int            `yaml:"size,omitempty"`
	Default    any            `yaml:"default,omitempty"`
	Values     []string       `yaml:"values,omitempty"`
	References *ReferenceSpec `yaml:"references,omitempty"`
	Comment    string         `yaml:"comment,omitempty"`
}

// ReferenceSpec marks a column as a foreign key.
type ReferenceSpec struct {
	Table  string `yaml:"table"`
	Column string `yaml:"column"`
}

// RelationshipSpec declares one relationship. Kind is to_one, to_many or
// many_to_many.
type RelationshipSpec struct {
	Name         string `yaml:"name"`
	Kind         string `yaml:"kind"`
	Target       string `yaml:"target"`
	Column       string `yaml:"column,omitempty"`
	JoinTable    string `yaml:"join_table,omitempty"`
	JoinColumn   string `yaml:"join_column,omitempty"`
	TargetColumn string `yaml:"target_column,omitempty"`
	Required     bool   `yaml:"required,omitempty"`
	Comment      string `yaml:"comment,omitempty"`
}

// Load reads and parses the manifest at path.
func Load(path string) (*magql.ModelSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	return Parse(data)
}

// Parse builds a validated ModelSet from manifest bytes.
func Parse(data []byte) (*magql.ModelSet, error) {
	var doc Manifest
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	if len(doc.Models) == 0 {
		return nil, fmt.Errorf("manifest: no models declared")
	}
	models := make([]*magql.Model, 0, len(doc.Models))
	for _, ms := range doc.Models {
		m, err := ms.build()
		if err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	set, err := magql.NewModelSet(models...)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	return set, nil
}

func (ms ModelSpec) build() (*magql.Model, error) {
	if ms.Name == "" {
		return nil, fmt.Errorf("manifest: model without a name")
	}
	cols := make([]*magql.Column, 0, len(ms.Columns))
	for _, cs := range ms.Columns {
		c, err := cs.build(ms.Name)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	m := magql.NewModel(ms.Name, cols...)
	if ms.Comment != "" {
		m.WithComment(ms.Comment)
	}
	rels := make([]*magql.Relationship, 0, len(ms.Relationships))
	for _, rs := range ms.Relationships {
		r, err := rs.build(ms.Name)
		if err != nil {
			return nil, err
		}
		rels = append(rels, r)
	}
	return m.Relate(rels...), nil
}

func (cs ColumnSpec) build(model string) (*magql.Column, error) {
	var c *magql.Column
	switch cs.Type {
	case "string":
		c = magql.String(cs.Name)
	case "text":
		c = magql.Text(cs.Name)
	case "int":
		c = magql.Int(cs.Name)
	case "float":
		c = magql.Float(cs.Name)
	case "decimal":
		c = magql.Decimal(cs.Name)
	case "bool":
		c = magql.Bool(cs.Name)
	case "date":
		c = magql.Date(cs.Name)
	case "datetime":
		c = magql.DateTime(cs.Name)
	case "json":
		c = magql.JSON(cs.Name)
	case "uuid":
		c = magql.UUID(cs.Name)
	case "enum":
		if len(cs.Values) == 0 {
			return nil, fmt.Errorf("manifest: %s.%s: enum column needs values", model, cs.Name)
		}
		c = magql.Enum(cs.Name, cs.Values...)
	default:
		return nil, fmt.Errorf("manifest: %s.%s: unknown column type %q", model, cs.Name, cs.Type)
	}
	if cs.Primary {
		c.Primary()
	}
	if cs.Nullable {
		c.Null()
	}
	if cs.Unique {
		c.Unique()
	}
	if cs.Size > 0 {
		c.MaxLen(cs.Size)
	}
	if cs.Default != nil {
		c.Default(cs.Default)
	}
	if cs.References != nil {
		if cs.References.Table == "" || cs.References.Column == "" {
			return nil, fmt.Errorf("manifest: %s.%s: references needs table and column", model, cs.Name)
		}
		c.References(cs.References.Table, cs.References.Column)
	}
	if cs.Comment != "" {
		c.WithComment(cs.Comment)
	}
	return c, nil
}

func (rs RelationshipSpec) build(model string) (*magql.Relationship, error) {
	if rs.Name == "" || rs.Target == "" {
		return nil, fmt.Errorf("manifest: %s: relationship needs name and target", model)
	}
	var r *magql.Relationship
	switch rs.Kind {
	case "to_one":
		if rs.Column == "" {
			return nil, fmt.Errorf("manifest: %s.%s: to_one needs column", model, rs.Name)
		}
		r = magql.ToOne(rs.Name, rs.Target).Via(rs.Column)
		if rs.Required {
			r.Required()
		}
	case "to_many":
		if rs.Column == "" {
			return nil, fmt.Errorf("manifest: %s.%s: to_many needs column", model, rs.Name)
		}
		r = magql.ToMany(rs.Name, rs.Target).Via(rs.Column)
	case "many_to_many":
		if rs.JoinTable == "" || rs.JoinColumn == "" || rs.TargetColumn == "" {
			return nil, fmt.Errorf("manifest: %s.%s: many_to_many needs join_table, join_column and target_column", model, rs.Name)
		}
		r = magql.Through(rs.Name, rs.Target, rs.JoinTable, rs.JoinColumn, rs.TargetColumn)
	default:
		return nil, fmt.Errorf("manifest: %s.%s: unknown relationship kind %q", model, rs.Name, rs.Kind)
	}
	if rs.Comment != "" {
		r.WithComment(rs.Comment)
	}
	return r, nil
}
