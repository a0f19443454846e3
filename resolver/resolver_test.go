package resolver

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/magql/magql"
	"github.com/magql/magql/dialect"
	"github.com/magql/magql/dialect/sql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func forumSet(t *testing.T) *magql.ModelSet {
	t.Helper()
	set, err := magql.NewModelSet(
		magql.NewModel("user",
			magql.Int("id").Primary(),
			magql.String("name").MaxLen(100),
			magql.Enum("role", "admin", "member").Default("member"),
		).Relate(
			magql.ToMany("posts", "post").Via("user_id"),
			magql.Through("groups", "group", "user_group", "user_id", "group_id"),
		),
		magql.NewModel("post",
			magql.Int("id").Primary(),
			magql.String("title"),
			magql.Text("body").Null(),
			magql.Int("user_id").References("user", "id"),
		).Relate(magql.ToOne("author", "user").Via("user_id").Required()),
		magql.NewModel("group",
			magql.Int("id").Primary(),
			magql.String("name"),
		),
	)
	require.NoError(t, err)
	return set
}

func mockFactory(t *testing.T, opts ...Option) (*Factory, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewFactory(sql.OpenDB(dialect.SQLite, db), forumSet(t), opts...), mock
}

func payloadOf(t *testing.T, v any) map[string]any {
	t.Helper()
	p, ok := v.(map[string]any)
	require.True(t, ok, "expected payload map, got %T", v)
	return p
}

func TestSingle(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		f, mock := mockFactory(t)
		mock.ExpectQuery(`SELECT * FROM "user" WHERE "id" = ?`).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "role"}).
				AddRow(1, "alice", "admin"))

		out, err := f.Single("user")(context.Background(), nil, map[string]any{"id": "1"})
		require.NoError(t, err)
		p := payloadOf(t, out)
		assert.Nil(t, p["errors"])
		row := p["result"].(Row)
		assert.Equal(t, "alice", row["name"])
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		f, mock := mockFactory(t)
		mock.ExpectQuery(`SELECT * FROM "user" WHERE "id" = ?`).
			WithArgs(int64(9)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "role"}))

		out, err := f.Single("user")(context.Background(), nil, map[string]any{"id": 9})
		require.NoError(t, err)
		p := payloadOf(t, out)
		require.Len(t, p["errors"], 1)
		assert.Nil(t, p["result"])
	})

	t.Run("BadID", func(t *testing.T) {
		f, _ := mockFactory(t)
		out, err := f.Single("user")(context.Background(), nil, map[string]any{"id": "abc"})
		require.NoError(t, err)
		assert.NotEmpty(t, payloadOf(t, out)["errors"])
	})
}

func TestMany(t *testing.T) {
	t.Run("FilterSortPage", func(t *testing.T) {
		f, mock := mockFactory(t)
		mock.ExpectQuery(`SELECT * FROM "user" WHERE "name" LIKE ? ESCAPE '\' ORDER BY "name" LIMIT 2 OFFSET 2`).
			WithArgs("%li%").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "role"}).
				AddRow(3, "alice", "member").
				AddRow(4, "charlie", "member"))
		mock.ExpectQuery(`SELECT COUNT(*) FROM "user" WHERE "name" LIKE ? ESCAPE '\'`).
			WithArgs("%li%").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

		out, err := f.Many("user")(context.Background(), nil, map[string]any{
			"filter": map[string]any{
				"name": map[string]any{"operator": "INCLUDES", "value": "li"},
			},
			"sort": []any{"name_asc"},
			"page": map[string]any{"current": 2, "perPage": 2},
		})
		require.NoError(t, err)
		p := payloadOf(t, out)
		assert.Nil(t, p["errors"])
		assert.Equal(t, 7, p["count"])
		rows := p["result"].([]Row)
		require.Len(t, rows, 2)
		assert.Equal(t, "alice", rows[0]["name"])
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RelationshipFilter", func(t *testing.T) {
		f, mock := mockFactory(t)
		mock.ExpectQuery(`SELECT * FROM "post" WHERE "post"."user_id" = ?`).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "title", "body", "user_id"}).
				AddRow(1, "hello", nil, 1))
		mock.ExpectQuery(`SELECT COUNT(*) FROM "post" WHERE "post"."user_id" = ?`).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		out, err := f.Many("post")(context.Background(), nil, map[string]any{
			"filter": map[string]any{
				"author": map[string]any{"operator": "INCLUDES", "value": "1"},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, payloadOf(t, out)["count"])
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("BadSort", func(t *testing.T) {
		f, _ := mockFactory(t)
		out, err := f.Many("user")(context.Background(), nil, map[string]any{
			"sort": []any{"name"},
		})
		require.NoError(t, err)
		assert.NotEmpty(t, payloadOf(t, out)["errors"])
	})

	t.Run("UnknownSortColumn", func(t *testing.T) {
		f, mock := mockFactory(t)
		out, err := f.Many("user")(context.Background(), nil, map[string]any{
			"sort": []any{"nickname_asc"},
		})
		require.NoError(t, err)
		p := payloadOf(t, out)
		require.NotEmpty(t, p["errors"])
		assert.Contains(t, p["errors"].([]string)[0], "unknown sort column")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestManyCache(t *testing.T) {
	cache := magql.NewMemoryCache()
	f, mock := mockFactory(t, WithCache(cache, 0))
	mock.ExpectQuery(`SELECT * FROM "user"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "role"}).AddRow(1, "alice", "admin"))
	mock.ExpectQuery(`SELECT COUNT(*) FROM "user"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	many := f.Many("user")
	out, err := many(context.Background(), nil, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, 1, payloadOf(t, out)["count"])
	require.NoError(t, mock.ExpectationsWereMet())

	// Second call is served from the cache; no further expectations.
	out, err = many(context.Background(), nil, map[string]any{})
	require.NoError(t, err)
	p := payloadOf(t, out)
	assert.Equal(t, 1, p["count"])
	rows := p["result"].([]Row)
	require.Len(t, rows, 1)
	assert.Equal(t, "alice", rows[0]["name"])
}

func TestCreate(t *testing.T) {
	t.Run("WithRelationship", func(t *testing.T) {
		f, mock := mockFactory(t)
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO "post" ("title", "user_id") VALUES (?, ?)`).
			WithArgs("hello", int64(1)).
			WillReturnResult(sqlmock.NewResult(7, 1))
		mock.ExpectCommit()
		mock.ExpectQuery(`SELECT * FROM "post" WHERE "id" = ?`).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "title", "body", "user_id"}).
				AddRow(7, "hello", nil, 1))

		out, err := f.Create("post")(context.Background(), nil, map[string]any{
			"input": map[string]any{"title": "hello", "author": "1"},
		})
		require.NoError(t, err)
		p := payloadOf(t, out)
		assert.Nil(t, p["errors"])
		assert.Equal(t, "hello", p["result"].(Row)["title"])
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("MissingRequired", func(t *testing.T) {
		f, _ := mockFactory(t)
		out, err := f.Create("post")(context.Background(), nil, map[string]any{
			"input": map[string]any{"body": "text"},
		})
		require.NoError(t, err)
		errs := payloadOf(t, out)["errors"].([]string)
		// title column and author relationship are both mandatory.
		assert.Len(t, errs, 2)
	})

	t.Run("ValidationError", func(t *testing.T) {
		f, _ := mockFactory(t)
		out, err := f.Create("user")(context.Background(), nil, map[string]any{
			"input": map[string]any{"name": "alice", "role": "root"},
		})
		require.NoError(t, err)
		errs := payloadOf(t, out)["errors"].([]string)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], "role")
	})

	t.Run("UnknownField", func(t *testing.T) {
		f, _ := mockFactory(t)
		out, err := f.Create("user")(context.Background(), nil, map[string]any{
			"input": map[string]any{"name": "alice", "nickname": "al"},
		})
		require.NoError(t, err)
		assert.NotEmpty(t, payloadOf(t, out)["errors"])
	})

	t.Run("ToManyJoinRows", func(t *testing.T) {
		f, mock := mockFactory(t)
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO "user" ("name") VALUES (?)`).
			WithArgs("alice").
			WillReturnResult(sqlmock.NewResult(3, 1))
		mock.ExpectExec(`INSERT INTO "user_group" ("user_id", "group_id") VALUES (?, ?)`).
			WithArgs(int64(3), int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
		mock.ExpectQuery(`SELECT * FROM "user" WHERE "id" = ?`).
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "role"}).
				AddRow(3, "alice", "member"))

		out, err := f.Create("user")(context.Background(), nil, map[string]any{
			"input": map[string]any{"name": "alice", "groups": []any{"5"}},
		})
		require.NoError(t, err)
		assert.Nil(t, payloadOf(t, out)["errors"])
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdate(t *testing.T) {
	f, mock := mockFactory(t)
	mock.ExpectQuery(`SELECT * FROM "user" WHERE "id" = ?`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "role"}).
			AddRow(1, "alice", "member"))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "user" SET "name" = ? WHERE "id" = ?`).
		WithArgs("alicia", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(`SELECT * FROM "user" WHERE "id" = ?`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "role"}).
			AddRow(1, "alicia", "member"))

	out, err := f.Update("user")(context.Background(), nil, map[string]any{
		"id":    "1",
		"input": map[string]any{"name": "alicia"},
	})
	require.NoError(t, err)
	p := payloadOf(t, out)
	assert.Nil(t, p["errors"])
	assert.Equal(t, "alicia", p["result"].(Row)["name"])
	require.NoError(t, mock.ExpectationsWereMet())

	t.Run("NotFound", func(t *testing.T) {
		f, mock := mockFactory(t)
		mock.ExpectQuery(`SELECT * FROM "user" WHERE "id" = ?`).
			WithArgs(int64(9)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "role"}))
		out, err := f.Update("user")(context.Background(), nil, map[string]any{
			"id":    9,
			"input": map[string]any{"name": "x"},
		})
		require.NoError(t, err)
		assert.NotEmpty(t, payloadOf(t, out)["errors"])
	})
}

func TestDelete(t *testing.T) {
	t.Run("OK", func(t *testing.T) {
		f, mock := mockFactory(t)
		mock.ExpectQuery(`SELECT * FROM "user" WHERE "id" = ?`).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "role"}).
				AddRow(1, "alice", "member"))
		mock.ExpectExec(`DELETE FROM "user" WHERE "id" = ?`).
			WithArgs(int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		out, err := f.Delete("user")(context.Background(), nil, map[string]any{"id": 1})
		require.NoError(t, err)
		p := payloadOf(t, out)
		assert.Nil(t, p["errors"])
		assert.Equal(t, "alice", p["result"].(Row)["name"])
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ConstraintBlocked", func(t *testing.T) {
		f, mock := mockFactory(t)
		mock.ExpectQuery(`SELECT * FROM "user" WHERE "id" = ?`).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "role"}).
				AddRow(1, "alice", "member"))
		mock.ExpectExec(`DELETE FROM "user" WHERE "id" = ?`).
			WithArgs(int64(1)).
			WillReturnError(&mysql.MySQLError{Number: 1451, Message: "a foreign key constraint fails"})

		out, err := f.Delete("user")(context.Background(), nil, map[string]any{"id": 1})
		require.NoError(t, err)
		errs := payloadOf(t, out)["errors"].([]string)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], "constraint")
	})
}

func TestRelated(t *testing.T) {
	t.Run("ToOne", func(t *testing.T) {
		f, mock := mockFactory(t)
		mock.ExpectQuery(`SELECT * FROM "user" WHERE "id" = ?`).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "role"}).
				AddRow(1, "alice", "member"))

		source := Row{"id": int64(7), "title": "hello", "user_id": int64(1)}
		out, err := f.Related("post", "author")(context.Background(), source, nil)
		require.NoError(t, err)
		assert.Equal(t, "alice", out.(Row)["name"])
	})

	t.Run("ToOneNullForeignKey", func(t *testing.T) {
		f, _ := mockFactory(t)
		source := Row{"id": int64(7), "title": "hello", "user_id": nil}
		out, err := f.Related("post", "author")(context.Background(), source, nil)
		require.NoError(t, err)
		assert.Nil(t, out)
	})

	t.Run("ToMany", func(t *testing.T) {
		f, mock := mockFactory(t)
		mock.ExpectQuery(`SELECT * FROM "post" WHERE "user_id" = ?`).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "title", "body", "user_id"}).
				AddRow(10, "first", nil, 1))

		source := Row{"id": int64(1), "name": "alice"}
		out, err := f.Related("user", "posts")(context.Background(), source, nil)
		require.NoError(t, err)
		rows := out.([]Row)
		require.Len(t, rows, 1)
		assert.Equal(t, "first", rows[0]["title"])
	})
}

func TestCheckDelete(t *testing.T) {
	f, mock := mockFactory(t)
	mock.ExpectQuery(`SELECT * FROM "post" WHERE "user_id" = ?`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "body", "user_id"}).
			AddRow(10, "first", nil, 1).
			AddRow(11, "second", nil, 1))

	out, err := f.CheckDelete()(context.Background(), nil, map[string]any{
		"tableName": "user",
		"id":        "1",
	})
	require.NoError(t, err)
	rows := out.([]Row)
	require.Len(t, rows, 2)
	assert.Equal(t, "post", f.ResolveModel(rows[0]))
	assert.Equal(t, "first", rows[0]["title"])
	require.NoError(t, mock.ExpectationsWereMet())
}
