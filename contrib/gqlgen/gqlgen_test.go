package gqlgen

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/magql/magql/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringList(t *testing.T) {
	t.Run("Scalar", func(t *testing.T) {
		var cfg Config
		require.NoError(t, unmarshal(t, "schema: graph/schema.graphqls", &cfg))
		assert.Equal(t, StringList{"graph/schema.graphqls"}, cfg.SchemaFilename)
	})

	t.Run("Sequence", func(t *testing.T) {
		var cfg Config
		require.NoError(t, unmarshal(t, "schema:\n  - a.graphqls\n  - b.graphqls", &cfg))
		assert.Equal(t, StringList{"a.graphqls", "b.graphqls"}, cfg.SchemaFilename)
	})
}

func unmarshal(t *testing.T, doc string, cfg *Config) error {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gqlgen.yml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	loaded, err := LoadConfig(path)
	if err != nil {
		return err
	}
	*cfg = *loaded
	return nil
}

func TestLoadConfigMissing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "gqlgen.yml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.SchemaFilename)
	assert.NotNil(t, cfg.Models)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "gqlgen.yml")
	cfg := &Config{}
	cfg.AddSchemaPath("graph/schema.graphqls")
	cfg.AddAutobind("example.com/app/graph/model")
	cfg.SetModel("User", "github.com/99designs/gqlgen/graphql.Map")
	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.SchemaFilename, loaded.SchemaFilename)
	assert.Equal(t, cfg.Autobind, loaded.Autobind)
	assert.Equal(t, StringList{"github.com/99designs/gqlgen/graphql.Map"}, loaded.Models["User"].Model)
}

func TestAddIdempotent(t *testing.T) {
	cfg := &Config{}
	cfg.AddSchemaPath("schema.graphqls")
	cfg.AddSchemaPath("schema.graphqls")
	assert.Len(t, cfg.SchemaFilename, 1)

	cfg.AddAutobind("example.com/pkg")
	cfg.AddAutobind("example.com/pkg")
	assert.Len(t, cfg.Autobind, 1)

	cfg.SetModel("User", "graphql.Map")
	cfg.SetModel("User", "graphql.Map")
	assert.Len(t, cfg.Models["User"].Model, 1)
}

func TestInjectBindings(t *testing.T) {
	s := schema.New()
	require.NoError(t, s.AddType(schema.NewObject("User").
		SetField(schema.NewField("id", schema.NonNullOf(schema.ID)))))
	require.NoError(t, s.AddType(schema.NewInputObject("UserInput").
		SetField(schema.NewInputField("name", schema.String))))
	require.NoError(t, s.AddType(schema.NewEnum("UserSort", "name_asc", "name_desc")))
	require.NoError(t, s.AddType(schema.NewUnion("TableUnion", "User")))

	cfg := &Config{}
	cfg.InjectBindings("graph/schema.graphqls", s)

	assert.Equal(t, StringList{"graph/schema.graphqls"}, cfg.SchemaFilename)
	assert.Contains(t, cfg.Models, "User")
	assert.Contains(t, cfg.Models, "UserInput")
	assert.Contains(t, cfg.Models, "TableUnion")
	assert.Contains(t, cfg.Models, "JSON")
	// Enums map onto generated string constants, not row maps.
	assert.NotContains(t, cfg.Models, "UserSort")
}

func TestWriteSchema(t *testing.T) {
	s := schema.New()
	require.NoError(t, s.AddType(schema.NewObject("User").
		SetField(schema.NewField("id", schema.NonNullOf(schema.ID)))))
	s.Query.SetField(schema.NewField("user", schema.Named("User")).
		WithArgs(&schema.Argument{Name: "id", Type: schema.NonNullOf(schema.ID)}))

	path := filepath.Join(t.TempDir(), "graph", "schema.graphqls")
	require.NoError(t, WriteSchema(path, s))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "type User")
	assert.Contains(t, string(data), "user(id: ID!): User")
}
