// Package testutil holds helpers shared by package tests.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"

	"github.com/stitts-dev/nhl-cortex/pkg/database"
)

// NewTestDB opens a private in-memory sqlite database and migrates models
func NewTestDB(t *testing.T, models ...interface{}) *database.DB {
	t.Helper()

	cfg := database.DefaultConnectionConfig(false)
	cfg.MaxOpenConns = 1
	cfg.MaxIdleConns = 1
	cfg.PrepareStmt = false

	db, err := database.NewConnectionWithDialector(sqlite.Open("file::memory:"), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	if len(models) > 0 {
		require.NoError(t, db.AutoMigrate(models...))
	}
	return db
}
