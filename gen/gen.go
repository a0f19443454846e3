// Package gen generates Go constants for a model set: per-model table
// and column names, and the derived query and mutation field names.
// Clients use the constants instead of repeating string literals when
// building queries against the derived schema.
package gen

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dave/jennifer/jen"
	"github.com/magql/magql"
)

// File builds the generated file for the model set.
func File(pkg string, set *magql.ModelSet) *jen.File {
	f := jen.NewFile(pkg)
	f.HeaderComment("Code generated by magql. DO NOT EDIT.")
	for _, m := range set.Models() {
		name := magql.TypeName(m.Name)
		f.Commentf("Table and column names of the %s model.", name)
		f.Const().DefsFunc(func(g *jen.Group) {
			g.Id(name + "Table").Op("=").Lit(m.Name)
			for _, c := range m.Columns {
				g.Id(name + "Column" + exportName(c.Name)).Op("=").Lit(c.Name)
			}
		})
		f.Commentf("Query and mutation field names derived for the %s model.", name)
		f.Const().DefsFunc(func(g *jen.Group) {
			g.Id(name + "Query").Op("=").Lit(magql.SingleQueryName(m.Name))
			g.Id(name + "ListQuery").Op("=").Lit(magql.ManyQueryName(m.Name))
			g.Id("Create" + name + "Mutation").Op("=").Lit("create" + name)
			g.Id("Update" + name + "Mutation").Op("=").Lit("update" + name)
			g.Id("Delete" + name + "Mutation").Op("=").Lit("delete" + name)
		})
	}
	return f
}

// Write renders the generated file to path, creating parent directories
// as needed.
func Write(path, pkg string, set *magql.ModelSet) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("gen: %w", err)
		}
	}
	if err := File(pkg, set).Save(path); err != nil {
		return fmt.Errorf("gen: %w", err)
	}
	return nil
}

// exportName converts a snake_case column name to an exported identifier,
// keeping the ID initialism upper-case ("user_id" -> "UserID").
func exportName(column string) string {
	name := magql.TypeName(column)
	if strings.HasSuffix(name, "Id") {
		name = strings.TrimSuffix(name, "Id") + "ID"
	}
	return name
}
