// Package atlas maps database tables inspected by Atlas into a magql
// model set, so a schema can be derived from an existing database
// instead of hand-written models or a manifest.
//
// Single-column foreign keys become to-one relationships on the owning
// table and to-many relationships on the referenced table. Tables that
// consist of exactly two foreign keys are treated as join tables: they
// produce many-to-many relationships on both referenced tables and no
// model of their own.
package atlas

import (
	"fmt"
	"strings"

	atlasschema "ariga.io/atlas/sql/schema"
	"github.com/go-openapi/inflect"
	"github.com/magql/magql"
)

// ModelSet builds a validated model set from inspected tables. Table
// order is preserved so the derived schema is deterministic.
func ModelSet(tables []*atlasschema.Table) (*magql.ModelSet, error) {
	joins := make(map[string]*atlasschema.Table)
	for _, t := range tables {
		if isJoinTable(t) {
			joins[t.Name] = t
		}
	}
	models := make([]*magql.Model, 0, len(tables))
	byName := make(map[string]*magql.Model, len(tables))
	for _, t := range tables {
		if joins[t.Name] != nil {
			continue
		}
		m, err := model(t)
		if err != nil {
			return nil, err
		}
		models = append(models, m)
		byName[t.Name] = m
	}
	for _, t := range tables {
		if joins[t.Name] != nil {
			continue
		}
		for _, fk := range t.ForeignKeys {
			if len(fk.Columns) != 1 || len(fk.RefColumns) != 1 {
				return nil, fmt.Errorf("atlas: %s.%s: composite foreign keys are not supported", t.Name, fk.Symbol)
			}
			col := fk.Columns[0]
			target := byName[fk.RefTable.Name]
			if target == nil {
				return nil, fmt.Errorf("atlas: %s.%s references unknown table %q", t.Name, col.Name, fk.RefTable.Name)
			}
			owner := byName[t.Name]
			one := magql.ToOne(toOneName(col.Name, fk.RefTable.Name), fk.RefTable.Name).Via(col.Name)
			if !col.Type.Null {
				one.Required()
			}
			owner.Relate(one)
			target.Relate(magql.ToMany(pluralizeLast(t.Name), t.Name).Via(col.Name))
		}
	}
	for _, jt := range tables {
		if joins[jt.Name] == nil {
			continue
		}
		a, b := jt.ForeignKeys[0], jt.ForeignKeys[1]
		ma, mb := byName[a.RefTable.Name], byName[b.RefTable.Name]
		if ma == nil || mb == nil {
			return nil, fmt.Errorf("atlas: join table %q references an unknown table", jt.Name)
		}
		ma.Relate(magql.Through(pluralizeLast(b.RefTable.Name), b.RefTable.Name,
			jt.Name, a.Columns[0].Name, b.Columns[0].Name))
		mb.Relate(magql.Through(pluralizeLast(a.RefTable.Name), a.RefTable.Name,
			jt.Name, b.Columns[0].Name, a.Columns[0].Name))
	}
	set, err := magql.NewModelSet(models...)
	if err != nil {
		return nil, fmt.Errorf("atlas: %w", err)
	}
	return set, nil
}

// isJoinTable reports whether the table is a pure association table: two
// columns, each the single column of a foreign key.
func isJoinTable(t *atlasschema.Table) bool {
	if len(t.Columns) != 2 || len(t.ForeignKeys) != 2 {
		return false
	}
	covered := make(map[string]bool, 2)
	for _, fk := range t.ForeignKeys {
		if len(fk.Columns) != 1 {
			return false
		}
		covered[fk.Columns[0].Name] = true
	}
	return covered[t.Columns[0].Name] && covered[t.Columns[1].Name]
}

func model(t *atlasschema.Table) (*magql.Model, error) {
	if t.PrimaryKey == nil || len(t.PrimaryKey.Parts) != 1 || t.PrimaryKey.Parts[0].C == nil {
		return nil, fmt.Errorf("atlas: table %q needs a single-column primary key", t.Name)
	}
	pk := t.PrimaryKey.Parts[0].C
	cols := make([]*magql.Column, 0, len(t.Columns))
	for _, c := range t.Columns {
		col, err := column(t, c)
		if err != nil {
			return nil, err
		}
		if c == pk {
			col.Primary()
		}
		cols = append(cols, col)
	}
	return magql.NewModel(t.Name, cols...), nil
}

func column(t *atlasschema.Table, c *atlasschema.Column) (*magql.Column, error) {
	col, err := typedColumn(c)
	if err != nil {
		return nil, fmt.Errorf("atlas: %s.%s: %w", t.Name, c.Name, err)
	}
	if c.Type.Null {
		col.Null()
	}
	if c.Default != nil {
		col.Default(defaultValue(c.Default))
	}
	if uniqueColumn(t, c) {
		col.Unique()
	}
	for _, fk := range t.ForeignKeys {
		if len(fk.Columns) == 1 && fk.Columns[0] == c && len(fk.RefColumns) == 1 {
			col.References(fk.RefTable.Name, fk.RefColumns[0].Name)
		}
	}
	return col, nil
}

func typedColumn(c *atlasschema.Column) (*magql.Column, error) {
	switch ct := c.Type.Type.(type) {
	case *atlasschema.EnumType:
		return magql.Enum(c.Name, ct.Values...), nil
	case *atlasschema.IntegerType:
		return magql.Int(c.Name), nil
	case *atlasschema.StringType:
		if strings.Contains(strings.ToLower(ct.T), "text") {
			return magql.Text(c.Name), nil
		}
		col := magql.String(c.Name)
		if ct.Size > 0 {
			col.MaxLen(ct.Size)
		}
		return col, nil
	case *atlasschema.BoolType:
		return magql.Bool(c.Name), nil
	case *atlasschema.FloatType:
		return magql.Float(c.Name), nil
	case *atlasschema.DecimalType:
		return magql.Decimal(c.Name), nil
	case *atlasschema.TimeType:
		if strings.EqualFold(ct.T, "date") {
			return magql.Date(c.Name), nil
		}
		return magql.DateTime(c.Name), nil
	case *atlasschema.JSONType:
		return magql.JSON(c.Name), nil
	case *atlasschema.UUIDType:
		return magql.UUID(c.Name), nil
	default:
		return nil, fmt.Errorf("unsupported column type %T", c.Type.Type)
	}
}

// defaultValue unwraps a literal default; non-literal defaults (raw
// expressions such as CURRENT_TIMESTAMP) are database-assigned and map to
// a nil default.
func defaultValue(x atlasschema.Expr) any {
	if lit, ok := x.(*atlasschema.Literal); ok {
		return strings.Trim(lit.V, "'\"")
	}
	return nil
}

func uniqueColumn(t *atlasschema.Table, c *atlasschema.Column) bool {
	for _, idx := range t.Indexes {
		if idx.Unique && len(idx.Parts) == 1 && idx.Parts[0].C == c {
			return true
		}
	}
	return false
}

// toOneName derives the to-one relationship name from the foreign-key
// column, trimming the conventional _id suffix.
func toOneName(column, target string) string {
	if name := strings.TrimSuffix(column, "_id"); name != column && name != "" {
		return name
	}
	return target
}

func pluralizeLast(table string) string {
	i := strings.LastIndexByte(table, '_')
	if i < 0 {
		return inflect.Pluralize(table)
	}
	return table[:i+1] + inflect.Pluralize(table[i+1:])
}
