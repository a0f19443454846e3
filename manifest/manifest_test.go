package manifest

import (
	"testing"

	"github.com/magql/magql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const forumManifest = `
models:
  - name: user
    comment: A registered account.
    columns:
      - {name: id, type: int, primary: true}
      - {name: name, type: string, size: 100, unique: true}
      - {name: role, type: enum, values: [admin, member], default: member}
      - {name: joined_at, type: datetime, nullable: true}
    relationships:
      - {name: posts, kind: to_many, target: post, column: user_id}
      - name: groups
        kind: many_to_many
        target: group
        join_table: user_group
        join_column: user_id
        target_column: group_id
  - name: post
    columns:
      - {name: id, type: int, primary: true}
      - {name: title, type: string}
      - {name: body, type: text, nullable: true}
      - {name: user_id, type: int, references: {table: user, column: id}}
    relationships:
      - {name: author, kind: to_one, target: user, column: user_id, required: true}
  - name: group
    columns:
      - {name: id, type: int, primary: true}
      - {name: name, type: string}
`

func TestParse(t *testing.T) {
	set, err := Parse([]byte(forumManifest))
	require.NoError(t, err)
	assert.Equal(t, []string{"user", "post", "group"}, set.Names())

	user := set.Model("user")
	require.NotNil(t, user)
	assert.Equal(t, "A registered account.", user.Comment)
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

	joined := user.Column("joined_at")
	require.NotNil(t, joined)
	assert.True(t, joined.Nullable)

	post := set.Model("post")
	require.NotNil(t, post)
	fk := post.Column("user_id")
	require.NotNil(t, fk)
	require.NotNil(t, fk.ForeignKey)
	assert.Equal(t, "user", fk.ForeignKey.Model)

	author := post.Relationship("author")
	require.NotNil(t, author)
	assert.Equal(t, magql.ManyToOne, author.Direction)
	assert.Equal(t, "user_id", author.Column)
	assert.True(t, author.IsRequired)

	groups := user.Relationship("groups")
	require.NotNil(t, groups)
	assert.Equal(t, magql.ManyToMany, groups.Direction)
	assert.Equal(t, "user_group", groups.JoinTable)
	assert.Equal(t, "user_id", groups.JoinColumn)
	assert.Equal(t, "group_id", groups.JoinTargetColumn)

	posts := user.Relationship("posts")
	require.NotNil(t, posts)
	assert.Equal(t, magql.OneToMany, posts.Direction)
}

func TestParseErrors(t *testing.T) {
	for _, tt := range []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "Empty",
			doc:  "models: []",
			want: "no models",
		},
		{
			name: "UnknownColumnType",
			doc: `
models:
  - name: user
    columns:
      - {name: id, type: serial, primary: true}
`,
			want: `unknown column type "serial"`,
		},
		{
			name: "EnumWithoutValues",
			doc: `
models:
  - name: user
    columns:
      - {name: id, type: int, primary: true}
      - {name: role, type: enum}
`,
			want: "enum column needs values",
		},
		{
			name: "UnknownRelationshipKind",
			doc: `
models:
  - name: user
    columns:
      - {name: id, type: int, primary: true}
    relationships:
      - {name: posts, kind: has_many, target: post, column: user_id}
`,
			want: `unknown relationship kind "has_many"`,
		},
		{
			name: "ManyToManyMissingJoin",
			doc: `
models:
  - name: user
    columns:
      - {name: id, type: int, primary: true}
    relationships:
      - {name: groups, kind: many_to_many, target: group}
`,
			want: "many_to_many needs join_table",
		},
		{
			name: "ToOneMissingColumn",
			doc: `
models:
  - name: post
    columns:
      - {name: id, type: int, primary: true}
    relationships:
      - {name: author, kind: to_one, target: user}
`,
			want: "to_one needs column",
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
