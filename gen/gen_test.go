package gen

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/magql/magql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSet(t *testing.T) *magql.ModelSet {
	t.Helper()
	set, err := magql.NewModelSet(
		magql.NewModel("user_account",
			magql.Int("id").Primary(),
			magql.String("name"),
		),
		magql.NewModel("post",
			magql.Int("id").Primary(),
			magql.String("title"),
			magql.Int("user_account_id").References("user_account", "id"),
		),
	)
	require.NoError(t, err)
	return set
}

func TestFile(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, File("forum", testSet(t)).Render(&buf))
	src := buf.String()

	assert.Contains(t, src, "package forum")
	assert.Contains(t, src, "Code generated by magql. DO NOT EDIT.")
	assert.Contains(t, src, `UserAccountTable = "user_account"`)
	assert.Contains(t, src, `UserAccountColumnID = "id"`)
	assert.Contains(t, src, `UserAccountColumnName = "name"`)
	assert.Contains(t, src, `PostColumnUserAccountID = "user_account_id"`)
	assert.Contains(t, src, `UserAccountQuery = "userAccount"`)
	assert.Contains(t, src, `UserAccountListQuery = "userAccounts"`)
	assert.Contains(t, src, `CreateUserAccountMutation = "createUserAccount"`)
	assert.Contains(t, src, `DeletePostMutation = "deletePost"`)
}

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gen", "names.go")
	require.NoError(t, Write(path, "forum", testSet(t)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `PostTable = "post"`)
}

func TestExportName(t *testing.T) {
	assert.Equal(t, "ID", exportName("id"))
	assert.Equal(t, "UserID", exportName("user_id"))
	assert.Equal(t, "CreatedAt", exportName("created_at"))
}
