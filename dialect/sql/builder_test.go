package sql

import (
	"testing"

	"github.com/magql/magql/dialect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelector(t *testing.T) {
	t.Run("Basic", func(t *testing.T) {
		query, args := Select("id", "name").
			Dialect(dialect.SQLite).
			From("user").
			Query()
		assert.Equal(t, `SELECT "id", "name" FROM "user"`, query)
		assert.Empty(t, args)
	})

	t.Run("Star", func(t *testing.T) {
		query, _ := Select().Dialect(dialect.SQLite).From("user").Query()
		assert.Equal(t, `SELECT * FROM "user"`, query)
	})

	t.Run("Where", func(t *testing.T) {
		query, args := Select().
			Dialect(dialect.SQLite).
			From("user").
			Where(EQ("name", "alice")).
			Where(GT("id", 3)).
			Query()
		assert.Equal(t, `SELECT * FROM "user" WHERE ("name" = ?) AND ("id" > ?)`, query)
		assert.Equal(t, []any{"alice", 3}, args)
	})

	t.Run("OrderLimitOffset", func(t *testing.T) {
		query, _ := Select().
			Dialect(dialect.SQLite).
			From("user").
			OrderBy("name", false).
			OrderBy("id", true).
			Limit(10).
			Offset(20).
			Query()
		assert.Equal(t, `SELECT * FROM "user" ORDER BY "name", "id" DESC LIMIT 10 OFFSET 20`, query)
	})

	t.Run("Count", func(t *testing.T) {
		query, _ := SelectCount().Dialect(dialect.SQLite).From("user").Query()
		assert.Equal(t, `SELECT COUNT(*) FROM "user"`, query)
	})

	t.Run("MySQLQuoting", func(t *testing.T) {
		query, _ := Select("id").Dialect(dialect.MySQL).From("user").Query()
		assert.Equal(t, "SELECT `id` FROM `user`", query)
	})

	t.Run("PostgresPlaceholders", func(t *testing.T) {
		query, args := Select().
			Dialect(dialect.Postgres).
			From("user").
			Where(And(EQ("name", "alice"), NEQ("id", 1))).
			Query()
		assert.Equal(t, `SELECT * FROM "user" WHERE ("name" = $1) AND ("id" <> $2)`, query)
		assert.Equal(t, []any{"alice", 1}, args)
	})
}

func TestPredicates(t *testing.T) {
	render := func(p Predicate) (string, []any) {
		b := NewBuilder(dialect.SQLite)
		p(b)
		return b.String(), b.Args()
	}

	t.Run("Comparisons", func(t *testing.T) {
		for _, tt := range []struct {
			p    Predicate
			want string
		}{
			{EQ("a", 1), `"a" = ?`},
			{NEQ("a", 1), `"a" <> ?`},
			{GT("a", 1), `"a" > ?`},
			{GTE("a", 1), `"a" >= ?`},
			{LT("a", 1), `"a" < ?`},
			{LTE("a", 1), `"a" <= ?`},
		} {
			query, args := render(tt.p)
			assert.Equal(t, tt.want, query)
			assert.Equal(t, []any{1}, args)
		}
	})

	t.Run("Contains", func(t *testing.T) {
		query, args := render(Contains("name", "al%ce"))
		assert.Equal(t, `"name" LIKE ? ESCAPE '\'`, query)
		assert.Equal(t, []any{`%al\%ce%`}, args)
	})

	t.Run("ContainsEscapesWildcards", func(t *testing.T) {
		query, args := render(Contains("v", `100%_su\re`))
		assert.Equal(t, `"v" LIKE ? ESCAPE '\'`, query)
		assert.Equal(t, []any{`%100\%\_su\\re%`}, args)
	})

	t.Run("ContainsMySQL", func(t *testing.T) {
		b := NewBuilder(dialect.MySQL)
		Contains("name", "50%")(b)
		assert.Equal(t, "`name` LIKE ? ESCAPE '\\\\'", b.String())
		assert.Equal(t, []any{`%50\%%`}, b.Args())
	})

	t.Run("In", func(t *testing.T) {
		query, args := render(In("id", 1, 2, 3))
		assert.Equal(t, `"id" IN (?, ?, ?)`, query)
		assert.Equal(t, []any{1, 2, 3}, args)
	})

	t.Run("InEmpty", func(t *testing.T) {
		query, args := render(In("id"))
		assert.Equal(t, "1 = 0", query)
		assert.Empty(t, args)
	})

	t.Run("Null", func(t *testing.T) {
		query, _ := render(IsNull("deleted_at"))
		assert.Equal(t, `"deleted_at" IS NULL`, query)
		query, _ = render(NotNull("deleted_at"))
		assert.Equal(t, `"deleted_at" IS NOT NULL`, query)
	})

	t.Run("Compose", func(t *testing.T) {
		query, args := render(Or(EQ("a", 1), Not(EQ("b", 2))))
		assert.Equal(t, `("a" = ?) OR (NOT ("b" = ?))`, query)
		assert.Equal(t, []any{1, 2}, args)
	})

	t.Run("SingleAndPassthrough", func(t *testing.T) {
		query, _ := render(And(EQ("a", 1)))
		assert.Equal(t, `"a" = ?`, query)
	})

	t.Run("Exists", func(t *testing.T) {
		sub := Select("user_id").From("post").Where(EQ("title", "go"))
		query, args := render(Exists(sub))
		assert.Equal(t, `EXISTS (SELECT "user_id" FROM "post" WHERE "title" = ?)`, query)
		assert.Equal(t, []any{"go"}, args)
	})
}

func TestInserter(t *testing.T) {
	t.Run("Basic", func(t *testing.T) {
		query, args := Insert("user").
			Dialect(dialect.SQLite).
			Set("name", "alice").
			Set("role", "admin").
			Query()
		assert.Equal(t, `INSERT INTO "user" ("name", "role") VALUES (?, ?)`, query)
		assert.Equal(t, []any{"alice", "admin"}, args)
	})

	t.Run("Empty", func(t *testing.T) {
		query, args := Insert("user").Dialect(dialect.SQLite).Query()
		assert.Equal(t, `INSERT INTO "user" DEFAULT VALUES`, query)
		assert.Empty(t, args)
	})

	t.Run("Returning", func(t *testing.T) {
		query, _ := Insert("user").
			Dialect(dialect.Postgres).
			Set("name", "alice").
			Returning("id").
			Query()
		assert.Equal(t, `INSERT INTO "user" ("name") VALUES ($1) RETURNING "id"`, query)
	})

	t.Run("ReturningIgnoredOffPostgres", func(t *testing.T) {
		query, _ := Insert("user").
			Dialect(dialect.SQLite).
			Set("name", "alice").
			Returning("id").
			Query()
		assert.Equal(t, `INSERT INTO "user" ("name") VALUES (?)`, query)
	})
}

func TestUpdater(t *testing.T) {
	u := Update("user").
		Dialect(dialect.SQLite).
		Set("name", "bob").
		Where(EQ("id", 7))
	require.False(t, u.Empty())
	query, args := u.Query()
	assert.Equal(t, `UPDATE "user" SET "name" = ? WHERE "id" = ?`, query)
	assert.Equal(t, []any{"bob", 7}, args)
}

func TestDeleter(t *testing.T) {
	query, args := Delete("user").
		Dialect(dialect.SQLite).
		Where(EQ("id", 7)).
		Query()
	assert.Equal(t, `DELETE FROM "user" WHERE "id" = ?`, query)
	assert.Equal(t, []any{7}, args)
}
