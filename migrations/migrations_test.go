package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFS_PairsUpAndDown(t *testing.T) {
	ups, err := fs.Glob(FS, "*.up.sql")
	require.NoError(t, err)
	require.NotEmpty(t, ups)

	for _, up := range ups {
		down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
		_, err := fs.Stat(FS, down)
		assert.NoError(t, err, "missing %s", down)
	}
}

func TestFS_UsersTable(t *testing.T) {
	content, err := fs.ReadFile(FS, "001_create_users.up.sql")
	require.NoError(t, err)

	sql := string(content)
	for _, col := range []string{"id", "email", "hashed_password", "full_name", "is_active", "is_superuser", "created_at", "updated_at"} {
		assert.Contains(t, sql, col)
	}
	assert.Contains(t, sql, "UNIQUE INDEX")
}
