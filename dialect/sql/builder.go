package sql

import (
	"strconv"
	"strings"

	"github.com/magql/magql/dialect"
)

// Builder accumulates a SQL statement with dialect-aware identifier
// quoting and argument placeholders ("?" for MySQL/SQLite, "$n" for
// Postgres).
type Builder struct {
	dialect string
	sb      strings.Builder
	args    []any
}

// NewBuilder returns an empty builder for the given dialect.
func NewBuilder(dialect string) *Builder {
	return &Builder{dialect: dialect}
}

// Dialect returns the builder dialect.
func (b *Builder) Dialect() string { return b.dialect }

// WriteString appends raw SQL text.
func (b *Builder) WriteString(s string) {
	b.sb.WriteString(s)
}

// WriteByte appends a single byte of raw SQL text.
func (b *Builder) WriteByte(c byte) {
	b.sb.WriteByte(c)
}

// Ident appends a quoted identifier. Dotted identifiers are quoted per
// part ("t"."col").
func (b *Builder) Ident(ident string) {
	quote := byte('"')
	if b.dialect == dialect.MySQL {
		quote = '`'
	}
	for i, part := range strings.Split(ident, ".") {
		if i > 0 {
			b.sb.WriteByte('.')
		}
		b.sb.WriteByte(quote)
		b.sb.WriteString(part)
		b.sb.WriteByte(quote)
	}
}

// Arg appends an argument placeholder and records the value.
func (b *Builder) Arg(v any) {
	b.args = append(b.args, v)
	if b.dialect == dialect.Postgres {
		b.sb.WriteByte('$')
		b.sb.WriteString(strconv.Itoa(len(b.args)))
		return
	}
	b.sb.WriteByte('?')
}

// String returns the accumulated SQL.
func (b *Builder) String() string { return b.sb.String() }

// Args returns the accumulated argument values.
func (b *Builder) Args() []any { return b.args }

// Predicate writes a WHERE condition into a builder. Predicates compose
// with And, Or and Not.
type Predicate func(*Builder)

// EQ returns a column = value predicate.
func EQ(col string, v any) Predicate {
	return func(b *Builder) {
		b.Ident(col)
		b.WriteString(" = ")
		b.Arg(v)
	}
}

// NEQ returns a column <> value predicate.
func NEQ(col string, v any) Predicate {
	return func(b *Builder) {
		b.Ident(col)
		b.WriteString(" <> ")
		b.Arg(v)
	}
}

// GT returns a column > value predicate.
func GT(col string, v any) Predicate {
	return func(b *Builder) {
		b.Ident(col)
		b.WriteString(" > ")
		b.Arg(v)
	}
}

// GTE returns a column >= value predicate.
func GTE(col string, v any) Predicate {
	return func(b *Builder) {
		b.Ident(col)
		b.WriteString(" >= ")
		b.Arg(v)
	}
}

// LT returns a column < value predicate.
func LT(col string, v any) Predicate {
	return func(b *Builder) {
		b.Ident(col)
		b.WriteString(" < ")
		b.Arg(v)
	}
}

// LTE returns a column <= value predicate.
func LTE(col string, v any) Predicate {
	return func(b *Builder) {
		b.Ident(col)
		b.WriteString(" <= ")
		b.Arg(v)
	}
}

// Like returns a column LIKE pattern predicate.
func Like(col, pattern string) Predicate {
	return func(b *Builder) {
		b.Ident(col)
		b.WriteString(" LIKE ")
		b.Arg(pattern)
	}
}

// Contains returns a substring-match predicate (LIKE %v%). Wildcards in
// the value are escaped, and an explicit ESCAPE clause is emitted:
// SQLite has no default LIKE escape character, so without it escaped
// patterns would match nothing.
func Contains(col, v string) Predicate {
	return func(b *Builder) {
		b.Ident(col)
		b.WriteString(" LIKE ")
		b.Arg("%" + escapeLike(v) + "%")
		// MySQL string literals treat backslash as an escape, so the
		// clause itself needs a doubled one there.
		if b.dialect == dialect.MySQL {
			b.WriteString(` ESCAPE '\\'`)
		} else {
			b.WriteString(` ESCAPE '\'`)
		}
	}
}

// escapeLike escapes LIKE wildcards in a literal substring.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}

// In returns a column IN (...) predicate. An empty value list renders a
// constant-false condition.
func In(col string, vs ...any) Predicate {
	return func(b *Builder) {
		if len(vs) == 0 {
			b.WriteString("1 = 0")
			return
		}
		b.Ident(col)
		b.WriteString(" IN (")
		for i, v := range vs {
			if i > 0 {
				b.WriteString(", ")
			}
			b.Arg(v)
		}
		b.WriteByte(')')
	}
}

// ColumnsEQ returns a column = column predicate, used for correlated
// subqueries. Qualify the columns with their table names.
func ColumnsEQ(col1, col2 string) Predicate {
	return func(b *Builder) {
		b.Ident(col1)
		b.WriteString(" = ")
		b.Ident(col2)
	}
}

// IsNull returns a column IS NULL predicate.
func IsNull(col string) Predicate {
	return func(b *Builder) {
		b.Ident(col)
		b.WriteString(" IS NULL")
	}
}

// NotNull returns a column IS NOT NULL predicate.
func NotNull(col string) Predicate {
	return func(b *Builder) {
		b.Ident(col)
		b.WriteString(" IS NOT NULL")
	}
}

// And joins predicates with AND. A single predicate passes through
// unparenthesized.
func And(ps ...Predicate) Predicate {
	if len(ps) == 1 {
		return ps[0]
	}
	return func(b *Builder) {
		for i, p := range ps {
			if i > 0 {
				b.WriteString(" AND ")
			}
			b.WriteByte('(')
			p(b)
			b.WriteByte(')')
		}
	}
}

// Or joins predicates with OR.
func Or(ps ...Predicate) Predicate {
	if len(ps) == 1 {
		return ps[0]
	}
	return func(b *Builder) {
		for i, p := range ps {
			if i > 0 {
				b.WriteString(" OR ")
			}
			b.WriteByte('(')
			p(b)
			b.WriteByte(')')
		}
	}
}

// Not negates a predicate.
func Not(p Predicate) Predicate {
	return func(b *Builder) {
		b.WriteString("NOT (")
		p(b)
		b.WriteByte(')')
	}
}

// Exists returns an EXISTS (subquery) predicate.
func Exists(s *Selector) Predicate {
	return func(b *Builder) {
		b.WriteString("EXISTS (")
		s.writeTo(b)
		b.WriteByte(')')
	}
}

// Selector builds a SELECT statement.
type Selector struct {
	dialect string
	columns []string
	table   string
	where   []Predicate
	orderBy []orderTerm
	limit   int
	offset  int
	count   bool
}

type orderTerm struct {
	column string
	desc   bool
}

// Select returns a selector over the given columns; no columns means "*".
func Select(columns ...string) *Selector {
	return &Selector{columns: columns, limit: -1, offset: -1}
}

// SelectCount returns a COUNT(*) selector.
func SelectCount() *Selector {
	return &Selector{count: true, limit: -1, offset: -1}
}

// Dialect sets the selector dialect.
func (s *Selector) Dialect(d string) *Selector {
	s.dialect = d
	return s
}

// From sets the table.
func (s *Selector) From(table string) *Selector {
	s.table = table
	return s
}

// Where appends a predicate; multiple calls are ANDed.
func (s *Selector) Where(p Predicate) *Selector {
	if p != nil {
		s.where = append(s.where, p)
	}
	return s
}

// OrderBy appends an ordering term.
func (s *Selector) OrderBy(column string, desc bool) *Selector {
	s.orderBy = append(s.orderBy, orderTerm{column: column, desc: desc})
	return s
}

// Limit bounds the result size.
func (s *Selector) Limit(n int) *Selector {
	s.limit = n
	return s
}

// Offset skips the first n rows.
func (s *Selector) Offset(n int) *Selector {
	s.offset = n
	return s
}

func (s *Selector) writeTo(b *Builder) {
	b.WriteString("SELECT ")
	switch {
	case s.count:
		b.WriteString("COUNT(*)")
	case len(s.columns) == 0:
		b.WriteByte('*')
	default:
		for i, c := range s.columns {
			if i > 0 {
				b.WriteString(", ")
			}
			b.Ident(c)
		}
	}
	b.WriteString(" FROM ")
	b.Ident(s.table)
	if len(s.where) > 0 {
		b.WriteString(" WHERE ")
		And(s.where...)(b)
	}
	if len(s.orderBy) > 0 {
		b.WriteString(" ORDER BY ")
		for i, o := range s.orderBy {
			if i > 0 {
				b.WriteString(", ")
			}
			b.Ident(o.column)
			if o.desc {
				b.WriteString(" DESC")
			}
		}
	}
	if s.limit >= 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(s.limit))
	}
	if s.offset > 0 {
		b.WriteString(" OFFSET ")
		b.WriteString(strconv.Itoa(s.offset))
	}
}

// Query renders the statement and its arguments.
func (s *Selector) Query() (string, []any) {
	b := NewBuilder(s.dialect)
	s.writeTo(b)
	return b.String(), b.Args()
}

// Inserter builds an INSERT statement.
type Inserter struct {
	dialect   string
	table     string
	columns   []string
	values    []any
	returning string
}

// Insert returns an inserter for the given table.
func Insert(table string) *Inserter {
	return &Inserter{table: table}
}

// Dialect sets the inserter dialect.
func (i *Inserter) Dialect(d string) *Inserter {
	i.dialect = d
	return i
}

// Set appends a column/value pair.
func (i *Inserter) Set(column string, v any) *Inserter {
	i.columns = append(i.columns, column)
	i.values = append(i.values, v)
	return i
}

// Returning adds a RETURNING clause (Postgres). Other dialects report the
// inserted key through sql.Result.LastInsertId.
func (i *Inserter) Returning(column string) *Inserter {
	i.returning = column
	return i
}

// Query renders the statement and its arguments.
func (i *Inserter) Query() (string, []any) {
	b := NewBuilder(i.dialect)
	b.WriteString("INSERT INTO ")
	b.Ident(i.table)
	if len(i.columns) == 0 {
		b.WriteString(" DEFAULT VALUES")
	} else {
		b.WriteString(" (")
		for j, c := range i.columns {
			if j > 0 {
				b.WriteString(", ")
			}
			b.Ident(c)
		}
		b.WriteString(") VALUES (")
		for j, v := range i.values {
			if j > 0 {
				b.WriteString(", ")
			}
			b.Arg(v)
		}
		b.WriteByte(')')
	}
	if i.returning != "" && i.dialect == dialect.Postgres {
		b.WriteString(" RETURNING ")
		b.Ident(i.returning)
	}
	return b.String(), b.Args()
}

// Updater builds an UPDATE statement.
type Updater struct {
	dialect string
	table   string
	columns []string
	values  []any
	where   []Predicate
}

// Update returns an updater for the given table.
func Update(table string) *Updater {
	return &Updater{table: table}
}

// Dialect sets the updater dialect.
func (u *Updater) Dialect(d string) *Updater {
	u.dialect = d
	return u
}

// Set appends a column/value assignment.
func (u *Updater) Set(column string, v any) *Updater {
	u.columns = append(u.columns, column)
	u.values = append(u.values, v)
	return u
}

// Where appends a predicate; multiple calls are ANDed.
func (u *Updater) Where(p Predicate) *Updater {
	if p != nil {
		u.where = append(u.where, p)
	}
	return u
}

// Empty reports whether the updater has no assignments.
func (u *Updater) Empty() bool { return len(u.columns) == 0 }

// Query renders the statement and its arguments.
func (u *Updater) Query() (string, []any) {
	b := NewBuilder(u.dialect)
	b.WriteString("UPDATE ")
	b.Ident(u.table)
	b.WriteString(" SET ")
	for i, c := range u.columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.Ident(c)
		b.WriteString(" = ")
		b.Arg(u.values[i])
	}
	if len(u.where) > 0 {
		b.WriteString(" WHERE ")
		And(u.where...)(b)
	}
	return b.String(), b.Args()
}

// Deleter builds a DELETE statement.
type Deleter struct {
	dialect string
	table   string
	where   []Predicate
}

// Delete returns a deleter for the given table.
func Delete(table string) *Deleter {
	return &Deleter{table: table}
}

// Dialect sets the deleter dialect.
func (d *Deleter) Dialect(dl string) *Deleter {
	d.dialect = dl
	return d
}

// Where appends a predicate; multiple calls are ANDed.
func (d *Deleter) Where(p Predicate) *Deleter {
	if p != nil {
		d.where = append(d.where, p)
	}
	return d
}

// Query renders the statement and its arguments.
func (d *Deleter) Query() (string, []any) {
	b := NewBuilder(d.dialect)
	b.WriteString("DELETE FROM ")
	b.Ident(d.table)
	if len(d.where) > 0 {
		b.WriteString(" WHERE ")
		And(d.where...)(b)
	}
	return b.String(), b.Args()
}
