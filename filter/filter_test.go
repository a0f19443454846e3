package filter

import (
	"testing"

	"github.com/magql/magql"
	"github.com/magql/magql/dialect"
	"github.com/magql/magql/dialect/sql"
	"github.com/magql/magql/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, p sql.Predicate) (string, []any) {
	t.Helper()
	b := sql.NewBuilder(dialect.SQLite)
	p(b)
	return b.String(), b.Args()
}

func TestForKind(t *testing.T) {
	for _, tt := range []struct {
		kind magql.Kind
		want *schema.InputObject
	}{
		{magql.KindString, StringFilter},
		{magql.KindText, StringFilter},
		{magql.KindUUID, StringFilter},
		{magql.KindJSON, StringFilter},
		{magql.KindInt, IntFilter},
		{magql.KindFloat, FloatFilter},
		{magql.KindDecimal, FloatFilter},
		{magql.KindBool, BooleanFilter},
		{magql.KindDate, DateFilter},
		{magql.KindDateTime, DateFilter},
	} {
		t.Run(tt.kind.String(), func(t *testing.T) {
			got, err := ForKind(tt.kind)
			require.NoError(t, err)
			assert.Same(t, tt.want, got)
		})
	}

	t.Run("Enum", func(t *testing.T) {
		_, err := ForKind(magql.KindEnum)
		assert.Error(t, err)
	})
}

func TestEnumFilter(t *testing.T) {
	role := schema.NewEnum("UserRole", "ADMIN", "MEMBER")
	f := EnumFilter(role)
	assert.Equal(t, "UserRoleFilter", f.Name)
	require.NotNil(t, f.Field("operator"))
	assert.Equal(t, schema.Named("EnumOperator"), f.Field("operator").Type)
	require.NotNil(t, f.Field("value"))
	assert.Equal(t, schema.Named("UserRole"), f.Field("value").Type)
}

func TestPredicate(t *testing.T) {
	t.Run("StringIncludes", func(t *testing.T) {
		p, err := Predicate(magql.String("name"), "INCLUDES", "ali")
		require.NoError(t, err)
		query, args := render(t, p)
		assert.Equal(t, `"name" LIKE ? ESCAPE '\'`, query)
		assert.Equal(t, []any{"%ali%"}, args)
	})

	t.Run("StringEquals", func(t *testing.T) {
		p, err := Predicate(magql.String("name"), "EQUALS", "alice")
		require.NoError(t, err)
		query, _ := render(t, p)
		assert.Equal(t, `"name" = ?`, query)
	})

	t.Run("IntOperators", func(t *testing.T) {
		for op, want := range map[string]string{
			"lt":  `"age" < ?`,
			"lte": `"age" <= ?`,
			"eq":  `"age" = ?`,
			"neq": `"age" <> ?`,
			"gt":  `"age" > ?`,
			"gte": `"age" >= ?`,
		} {
			p, err := Predicate(magql.Int("age"), op, 21)
			require.NoError(t, err)
			query, _ := render(t, p)
			assert.Equal(t, want, query)
		}
	})

	t.Run("Boolean", func(t *testing.T) {
		p, err := Predicate(magql.Bool("active"), "NOTEQUALS", true)
		require.NoError(t, err)
		query, _ := render(t, p)
		assert.Equal(t, `"active" <> ?`, query)
	})

	t.Run("Date", func(t *testing.T) {
		for op, want := range map[string]string{
			"BEFORE": `"born" < ?`,
			"ON":     `"born" = ?`,
			"AFTER":  `"born" > ?`,
		} {
			p, err := Predicate(magql.Date("born"), op, "2001-01-01")
			require.NoError(t, err)
			query, _ := render(t, p)
			assert.Equal(t, want, query)
		}
	})

	t.Run("EnumIncludes", func(t *testing.T) {
		p, err := Predicate(magql.Enum("role", "admin", "member"), "INCLUDES", "admin")
		require.NoError(t, err)
		query, _ := render(t, p)
		assert.Equal(t, `"role" = ?`, query)
	})

	t.Run("UnknownOperator", func(t *testing.T) {
		_, err := Predicate(magql.Int("age"), "BETWEEN", 1)
		assert.ErrorIs(t, err, ErrOperator)
	})

	t.Run("IncludesNeedsString", func(t *testing.T) {
		_, err := Predicate(magql.String("name"), "INCLUDES", 42)
		assert.Error(t, err)
	})
}

func TestRelPredicate(t *testing.T) {
	set, err := magql.NewModelSet(
		magql.NewModel("user",
			magql.Int("id").Primary(),
			magql.String("name"),
		).Relate(
			magql.ToMany("posts", "post").Via("user_id"),
			magql.Through("groups", "group", "user_group", "user_id", "group_id"),
		),
		magql.NewModel("post",
			magql.Int("id").Primary(),
			magql.String("title"),
			magql.Int("user_id").References("user", "id"),
		).Relate(magql.ToOne("author", "user").Via("user_id")),
		magql.NewModel("group",
			magql.Int("id").Primary(),
			magql.String("name"),
		),
	)
	require.NoError(t, err)

	t.Run("ToOne", func(t *testing.T) {
		post := set.Model("post")
		p, err := RelPredicate(set, post, post.Relationship("author"), "INCLUDES", 3)
		require.NoError(t, err)
		query, args := render(t, p)
		assert.Equal(t, `"post"."user_id" = ?`, query)
		assert.Equal(t, []any{3}, args)
	})

	t.Run("ToMany", func(t *testing.T) {
		user := set.Model("user")
		p, err := RelPredicate(set, user, user.Relationship("posts"), "INCLUDES", 9)
		require.NoError(t, err)
		query, args := render(t, p)
		assert.Equal(t,
			`EXISTS (SELECT "user_id" FROM "post" WHERE ("post"."user_id" = "user"."id") AND ("post"."id" = ?))`,
			query)
		assert.Equal(t, []any{9}, args)
	})

	t.Run("ManyToMany", func(t *testing.T) {
		user := set.Model("user")
		p, err := RelPredicate(set, user, user.Relationship("groups"), "INCLUDES", 4)
		require.NoError(t, err)
		query, args := render(t, p)
		assert.Equal(t,
			`EXISTS (SELECT "user_id" FROM "user_group" WHERE ("user_group"."user_id" = "user"."id") AND ("user_group"."group_id" = ?))`,
			query)
		assert.Equal(t, []any{4}, args)
	})

	t.Run("UnknownOperator", func(t *testing.T) {
		post := set.Model("post")
		_, err := RelPredicate(set, post, post.Relationship("author"), "EXCLUDES", 3)
		assert.ErrorIs(t, err, ErrOperator)
	})
}
