package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/nhl-cortex/internal/testutil"
)

func TestTeamFullName(t *testing.T) {
	assert.Equal(t, "Montreal Canadiens", TeamFullName("MTL"))
	assert.Equal(t, "XYZ", TeamFullName("XYZ"))
	assert.True(t, IsKnownTeam("VGK"))
	assert.False(t, IsKnownTeam("QUE"))
}

func TestNHLTeams(t *testing.T) {
	teams := NHLTeams()
	require.Len(t, teams, 32)
	assert.Equal(t, "ANA", teams[0].Abbreviation)
	assert.Equal(t, "WSH", teams[31].Abbreviation)
}

func TestSeedTeams(t *testing.T) {
	db := testutil.NewTestDB(t, All()...)

	require.NoError(t, SeedTeams(db))
	require.NoError(t, SeedTeams(db))

	var count int64
	require.NoError(t, db.Model(&Team{}).Count(&count).Error)
	assert.Equal(t, int64(32), count)
}
