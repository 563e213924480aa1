package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

func TestNewConnectionWithDialector(t *testing.T) {
	cfg := DefaultConnectionConfig(false)
	cfg.MaxOpenConns = 1
	cfg.PrepareStmt = false

	db, err := NewConnectionWithDialector(sqlite.Open("file::memory:"), cfg)
	require.NoError(t, err)

	assert.NoError(t, db.HealthCheck(context.Background()))
	require.NoError(t, db.Close())
	assert.Error(t, db.HealthCheck(context.Background()))
}
