package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discussdraft/internal/models"
)

func TestInit_MigratesTables(t *testing.T) {
	db, err := Init(Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)

	assert.True(t, db.Migrator().HasTable(&models.Settings{}))
	assert.True(t, db.Migrator().HasTable(&models.HistoryRecord{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}

func TestInit_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "test.db")

	db, err := Init(Config{Path: path})
	require.NoError(t, err)
	assert.FileExists(t, path)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}
