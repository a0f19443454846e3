package atlas

import (
	"testing"

	atlasschema "ariga.io/atlas/sql/schema"
	"github.com/magql/magql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intCol(name string) *atlasschema.Column {
	return &atlasschema.Column{
		Name: name,
		Type: &atlasschema.ColumnType{Type: &atlasschema.IntegerType{T: "bigint"}},
	}
}

func pkOf(t *atlasschema.Table, c *atlasschema.Column) {
	t.PrimaryKey = &atlasschema.Index{Parts: []*atlasschema.IndexPart{{C: c}}}
}

func forumTables() []*atlasschema.Table {
	user := &atlasschema.Table{Name: "user"}
	userID := intCol("id")
	userName := &atlasschema.Column{
		Name: "name",
		Type: &atlasschema.ColumnType{Type: &atlasschema.StringType{T: "varchar(100)", Size: 100}},
	}
	userRole := &atlasschema.Column{
		Name:    "role",
		Type:    &atlasschema.ColumnType{Type: &atlasschema.EnumType{T: "enum", Values: []string{"admin", "member"}}},
		Default: &atlasschema.Literal{V: "'member'"},
	}
	user.Columns = []*atlasschema.Column{userID, userName, userRole}
	pkOf(user, userID)
	user.Indexes = []*atlasschema.Index{
		{Name: "user_name_key", Unique: true, Parts: []*atlasschema.IndexPart{{C: userName}}},
	}

	post := &atlasschema.Table{Name: "post"}
	postID := intCol("id")
	postTitle := &atlasschema.Column{
		Name: "title",
		Type: &atlasschema.ColumnType{Type: &atlasschema.StringType{T: "varchar(255)", Size: 255}},
	}
	postBody := &atlasschema.Column{
		Name: "body",
		Type: &atlasschema.ColumnType{Type: &atlasschema.StringType{T: "text"}, Null: true},
	}
	postUserID := intCol("user_id")
	post.Columns = []*atlasschema.Column{postID, postTitle, postBody, postUserID}
	pkOf(post, postID)
	post.ForeignKeys = []*atlasschema.ForeignKey{{
		Symbol:     "post_user_id_fkey",
		Table:      post,
		Columns:    []*atlasschema.Column{postUserID},
		RefTable:   user,
		RefColumns: []*atlasschema.Column{userID},
	}}

	group := &atlasschema.Table{Name: "group"}
	groupID := intCol("id")
	groupName := &atlasschema.Column{
		Name: "name",
		Type: &atlasschema.ColumnType{Type: &atlasschema.StringType{T: "varchar(255)", Size: 255}},
	}
	group.Columns = []*atlasschema.Column{groupID, groupName}
	pkOf(group, groupID)

	join := &atlasschema.Table{Name: "user_group"}
	joinUserID := intCol("user_id")
	joinGroupID := intCol("group_id")
	join.Columns = []*atlasschema.Column{joinUserID, joinGroupID}
	join.ForeignKeys = []*atlasschema.ForeignKey{
		{
			Symbol:     "user_group_user_id_fkey",
			Table:      join,
			Columns:    []*atlasschema.Column{joinUserID},
			RefTable:   user,
			RefColumns: []*atlasschema.Column{userID},
		},
		{
			Symbol:     "user_group_group_id_fkey",
			Table:      join,
			Columns:    []*atlasschema.Column{joinGroupID},
			RefTable:   group,
			RefColumns: []*atlasschema.Column{groupID},
		},
	}

	return []*atlasschema.Table{user, post, group, join}
}

func TestModelSet(t *testing.T) {
	set, err := ModelSet(forumTables())
	require.NoError(t, err)

	// The join table produces relationships, not a model.
	assert.Equal(t, []string{"user", "post", "group"}, set.Names())

	user := set.Model("user")
	require.NotNil(t, user)
	require.NotNil(t, user.PrimaryKey())
	assert.Equal(t, "id", user.PrimaryKey().Name)

	name := user.Column("name")
	require.NotNil(t, name)
	assert.Equal(t, magql.KindString, name.Kind)
	assert.Equal(t, 100, name.Size)
	assert.True(t, name.IsUnique)

	role := user.Column("role")
	require.NotNil(t, role)
	assert.Equal(t, magql.KindEnum, role.Kind)
	assert.Equal(t, []string{"admin", "member"}, role.Values)
	assert.True(t, role.HasDefault)
	assert.Equal(t, "member", role.DefaultValue)

	t.Run("ForeignKey", func(t *testing.T) {
		post := set.Model("post")
		require.NotNil(t, post)
		fk := post.Column("user_id")
		require.NotNil(t, fk)
		require.NotNil(t, fk.ForeignKey)
		assert.Equal(t, "user", fk.ForeignKey.Model)

		body := post.Column("body")
		require.NotNil(t, body)
		assert.Equal(t, magql.KindText, body.Kind)
		assert.True(t, body.Nullable)

		author := post.Relationship("user")
		require.NotNil(t, author)
		assert.Equal(t, magql.ManyToOne, author.Direction)
		assert.Equal(t, "user_id", author.Column)
		assert.True(t, author.IsRequired)

		posts := user.Relationship("posts")
		require.NotNil(t, posts)
		assert.Equal(t, magql.OneToMany, posts.Direction)
		assert.Equal(t, "user_id", posts.Column)
	})

	t.Run("ManyToMany", func(t *testing.T) {
		groups := user.Relationship("groups")
		require.NotNil(t, groups)
		assert.Equal(t, magql.ManyToMany, groups.Direction)
		assert.Equal(t, "user_group", groups.JoinTable)
		assert.Equal(t, "user_id", groups.JoinColumn)
		assert.Equal(t, "group_id", groups.JoinTargetColumn)

		users := set.Model("group").Relationship("users")
		require.NotNil(t, users)
		assert.Equal(t, magql.ManyToMany, users.Direction)
		assert.Equal(t, "group_id", users.JoinColumn)
		assert.Equal(t, "user_id", users.JoinTargetColumn)
	})
}

func TestModelSetErrors(t *testing.T) {
	t.Run("CompositePrimaryKey", func(t *testing.T) {
		tbl := &atlasschema.Table{Name: "t"}
		a, b := intCol("a"), intCol("b")
		tbl.Columns = []*atlasschema.Column{a, b}
		tbl.PrimaryKey = &atlasschema.Index{Parts: []*atlasschema.IndexPart{{C: a}, {C: b}}}
		_, err := ModelSet([]*atlasschema.Table{tbl})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "single-column primary key")
	})

	t.Run("NoPrimaryKey", func(t *testing.T) {
		tbl := &atlasschema.Table{Name: "t", Columns: []*atlasschema.Column{intCol("a")}}
		// A second scalar column keeps it from looking like a join table.
		tbl.Columns = append(tbl.Columns, intCol("b"))
		_, err := ModelSet([]*atlasschema.Table{tbl})
		require.Error(t, err)
	})

	t.Run("UnsupportedType", func(t *testing.T) {
		tbl := &atlasschema.Table{Name: "t"}
		id := intCol("id")
		blob := &atlasschema.Column{
			Name: "data",
			Type: &atlasschema.ColumnType{Type: &atlasschema.BinaryType{T: "blob"}},
		}
		tbl.Columns = []*atlasschema.Column{id, blob}
		pkOf(tbl, id)
		_, err := ModelSet([]*atlasschema.Table{tbl})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported column type")
	})
}
