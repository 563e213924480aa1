package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/nhl-cortex/internal/models"
	"github.com/stitts-dev/nhl-cortex/internal/nhl"
	"github.com/stitts-dev/nhl-cortex/internal/projection"
	"github.com/stitts-dev/nhl-cortex/internal/testutil"
	"github.com/stitts-dev/nhl-cortex/pkg/database"
)

var puckDrop = time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)

func newIngestService(t *testing.T, source NHLDataSource, notifier Notifier, cache Cache) (*ProjectionIngestService, *database.DB) {
	t.Helper()
	db := testutil.NewTestDB(t, models.All()...)

	cfg := DefaultIngestConfig()
	cfg.ValuePickThreshold = 100

	svc := NewProjectionIngestService(db, source, nil, cache, notifier, cfg, quietLogger())
	svc.now = fixedClock(time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))
	return svc, db
}

func clubStats(skaters ...nhl.SkaterStats) *nhl.ClubStatsResponse {
	return &nhl.ClubStatsResponse{Skaters: skaters}
}

func TestProjectionIngestRun(t *testing.T) {
	source := new(MockNHLDataSource)
	notifier := new(MockNotifier)
	cache := newMemoryCache()
	require.NoError(t, cache.Set(context.Background(), DashboardCacheKey("", false), "stale", time.Minute))

	source.On("GetSchedule", mock.Anything, "2024-01-15").
		Return(scheduleFor("2024-01-15", game(2023020650, "TOR", "BOS", "FUT", puckDrop)), nil)
	source.On("GetSchedule", mock.Anything, "2024-01-14").
		Return(scheduleFor("2024-01-14"), nil)
	source.On("GetStandings", mock.Anything).Return(nil, errors.New("standings down"))

	rookie := sniper(8484000, "Rookie", "Callup")
	rookie.GamesPlayed = 3
	depth := nhl.SkaterStats{PlayerID: 8475000, FirstName: nhl.LocalizedName{Default: "Depth"}, LastName: nhl.LocalizedName{Default: "Guy"}, PositionCode: "D", GamesPlayed: 40}

	source.On("GetClubStats", mock.Anything, "TOR").Return(clubStats(sniper(8479318, "Auston", "Matthews"), rookie, depth), nil)
	source.On("GetClubStats", mock.Anything, "BOS").Return(clubStats(sniper(8477956, "David", "Pastrnak")), nil)

	notifier.On("NotifyValuePicks", mock.Anything, "2024-01-15", mock.MatchedBy(func(picks []models.Pick) bool {
		return len(picks) == 1 && picks[0].PlayerID == "8479318"
	})).Return(nil).Once()

	svc, db := newIngestService(t, source, notifier, cache)

	report, err := svc.Run(context.Background(), "2024-01-15")
	require.NoError(t, err)

	assert.Equal(t, &IngestReport{
		Date:             "2024-01-15",
		Games:            1,
		Teams:            2,
		PlayersEvaluated: 4,
		Saved:            2,
		Skipped:          2,
		Errors:           0,
		ValuePicks:       1,
	}, report)

	home, err := models.GetLatestPickForPlayer(db, "8479318")
	require.NoError(t, err)
	assert.Equal(t, "Auston Matthews", home.PlayerName)
	assert.Equal(t, "TOR", home.Team)
	assert.Equal(t, "BOS", home.Opp)
	assert.True(t, home.IsHome)
	assert.Equal(t, int64(2023020650), home.GameID)
	require.NotNil(t, home.Ts)
	assert.True(t, puckDrop.Equal(*home.Ts))
	assert.Equal(t, 101, *home.AlgoScoreGoal)
	assert.Equal(t, "1.95", home.ResultGoal)

	away, err := models.GetLatestPickForPlayer(db, "8477956")
	require.NoError(t, err)
	assert.False(t, away.IsHome)
	assert.Equal(t, 100, *away.AlgoScoreGoal)
	assert.Equal(t, "2.05", away.ResultGoal)

	assert.False(t, cache.has(DashboardCacheKey("", false)))
	source.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestProjectionIngestBackToBackFatigue(t *testing.T) {
	source := new(MockNHLDataSource)
	source.On("GetSchedule", mock.Anything, "2024-01-15").
		Return(scheduleFor("2024-01-15", game(1, "TOR", "BOS", "FUT", puckDrop)), nil)
	source.On("GetSchedule", mock.Anything, "2024-01-14").
		Return(scheduleFor("2024-01-14", game(0, "BOS", "NYR", "OFF", puckDrop.AddDate(0, 0, -1))), nil)
	source.On("GetStandings", mock.Anything).Return(&nhl.StandingsResponse{}, nil)
	source.On("GetClubStats", mock.Anything, "TOR").Return(clubStats(sniper(8479318, "Auston", "Matthews")), nil)
	source.On("GetClubStats", mock.Anything, "BOS").Return(clubStats(sniper(8477956, "David", "Pastrnak")), nil)

	svc, db := newIngestService(t, source, nil, nil)
	_, err := svc.Run(context.Background(), "2024-01-15")
	require.NoError(t, err)

	stats := sniper(0, "", "").SeasonStats()
	torCtx := projection.NewGameContext(true)
	torCtx.OpponentTired = true
	bosCtx := projection.NewGameContext(false)
	bosCtx.TeamTired = true

	tor, err := models.GetLatestPickForPlayer(db, "8479318")
	require.NoError(t, err)
	assert.Equal(t, projection.CalculateProjection(stats, projection.DefaultTeamStats(), projection.DefaultOpponentStats(), torCtx), tor.Projection.Data())

	bos, err := models.GetLatestPickForPlayer(db, "8477956")
	require.NoError(t, err)
	assert.Equal(t, projection.CalculateProjection(stats, projection.DefaultTeamStats(), projection.DefaultOpponentStats(), bosCtx), bos.Projection.Data())
}

func TestProjectionIngestFallsBackToFirstDay(t *testing.T) {
	source := new(MockNHLDataSource)
	source.On("GetSchedule", mock.Anything, "2024-01-15").
		Return(scheduleFor("2024-01-16", game(7, "MTL", "OTT", "FUT", puckDrop.Add(24*time.Hour))), nil)
	source.On("GetStandings", mock.Anything).Return(&nhl.StandingsResponse{}, nil)
	source.On("GetClubStats", mock.Anything, mock.Anything).Return(clubStats(), nil)

	svc, _ := newIngestService(t, source, nil, nil)
	report, err := svc.Run(context.Background(), "2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-16", report.Date)
	assert.Equal(t, 1, report.Games)
}

func TestProjectionIngestCountsClubStatsErrors(t *testing.T) {
	source := new(MockNHLDataSource)
	source.On("GetSchedule", mock.Anything, "2024-01-15").
		Return(scheduleFor("2024-01-15", game(1, "TOR", "BOS", "FUT", puckDrop)), nil)
	source.On("GetSchedule", mock.Anything, "2024-01-14").Return(nil, errors.New("timeout"))
	source.On("GetStandings", mock.Anything).Return(&nhl.StandingsResponse{}, nil)
	source.On("GetClubStats", mock.Anything, "TOR").Return(nil, errors.New("boom"))
	source.On("GetClubStats", mock.Anything, "BOS").Return(clubStats(sniper(8477956, "David", "Pastrnak")), nil)

	svc, _ := newIngestService(t, source, nil, nil)
	report, err := svc.Run(context.Background(), "2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Errors)
	assert.Equal(t, 1, report.Saved)
}

func TestProjectionIngestEmptyAndInvalid(t *testing.T) {
	source := new(MockNHLDataSource)
	source.On("GetSchedule", mock.Anything, "2024-07-01").Return(&nhl.ScheduleResponse{}, nil)

	svc, _ := newIngestService(t, source, nil, nil)

	report, err := svc.Run(context.Background(), "2024-07-01")
	require.NoError(t, err)
	assert.Zero(t, report.Games)

	_, err = svc.Run(context.Background(), "July 1st")
	assert.Error(t, err)

	source.On("GetSchedule", mock.Anything, "2024-07-02").Return(nil, errors.New("down"))
	_, err = svc.Run(context.Background(), "2024-07-02")
	assert.Error(t, err)
}

func TestProjectionIngestDoesNotOverwriteSettledPicks(t *testing.T) {
	source := new(MockNHLDataSource)
	source.On("GetSchedule", mock.Anything, "2024-01-15").
		Return(scheduleFor("2024-01-15", game(1, "TOR", "BOS", "FUT", puckDrop)), nil)
	source.On("GetSchedule", mock.Anything, "2024-01-14").Return(scheduleFor("2024-01-14"), nil)
	source.On("GetStandings", mock.Anything).Return(&nhl.StandingsResponse{}, nil)
	source.On("GetClubStats", mock.Anything, "TOR").Return(clubStats(sniper(8479318, "Auston", "Matthews")), nil)
	source.On("GetClubStats", mock.Anything, "BOS").Return(clubStats(), nil)

	svc, db := newIngestService(t, source, nil, nil)
	_, err := svc.Run(context.Background(), "2024-01-15")
	require.NoError(t, err)

	pick, err := models.GetLatestPickForPlayer(db, "8479318")
	require.NoError(t, err)
	require.NoError(t, models.SaveResult(db, pick, 1, 0, 4, puckDrop.Add(3*time.Hour)))

	_, err = svc.Run(context.Background(), "2024-01-15")
	require.NoError(t, err)

	reloaded, err := models.GetLatestPickForPlayer(db, "8479318")
	require.NoError(t, err)
	assert.Equal(t, models.ResultHit, reloaded.ResultGoal)
	assert.Equal(t, "4", reloaded.ResultShot)
}

func TestProjectionIngestRerunSkipsInjuredPicks(t *testing.T) {
	source := new(MockNHLDataSource)
	notifier := new(MockNotifier)
	source.On("GetSchedule", mock.Anything, "2024-01-15").
		Return(scheduleFor("2024-01-15", game(1, "TOR", "BOS", "FUT", puckDrop)), nil)
	source.On("GetSchedule", mock.Anything, "2024-01-14").Return(scheduleFor("2024-01-14"), nil)
	source.On("GetStandings", mock.Anything).Return(&nhl.StandingsResponse{}, nil)
	source.On("GetClubStats", mock.Anything, "TOR").Return(clubStats(sniper(8479318, "Auston", "Matthews")), nil)
	source.On("GetClubStats", mock.Anything, "BOS").Return(clubStats(), nil)
	notifier.On("NotifyValuePicks", mock.Anything, "2024-01-15", mock.Anything).Return(nil).Once()

	svc, db := newIngestService(t, source, notifier, nil)
	report, err := svc.Run(context.Background(), "2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Saved)
	assert.Equal(t, 1, report.ValuePicks)

	_, err = models.MarkPlayersInjured(db, []string{"8479318"})
	require.NoError(t, err)

	report, err = svc.Run(context.Background(), "2024-01-15")
	require.NoError(t, err)
	assert.Zero(t, report.Saved)
	assert.Equal(t, 1, report.Unchanged)
	assert.Zero(t, report.ValuePicks)

	stored, err := models.GetLatestPickForPlayer(db, "8479318")
	require.NoError(t, err)
	assert.Equal(t, models.ResultInjured, stored.ResultGoal)

	notifier.AssertNumberOfCalls(t, "NotifyValuePicks", 1)
}

func TestProjectionIngestDefaultsToCurrentWeek(t *testing.T) {
	source := new(MockNHLDataSource)
	source.On("GetScheduleNow", mock.Anything).
		Return(scheduleFor("2024-01-15", game(1, "TOR", "BOS", "FUT", puckDrop)), nil)
	source.On("GetSchedule", mock.Anything, "2024-01-14").Return(scheduleFor("2024-01-14"), nil)
	source.On("GetStandings", mock.Anything).Return(&nhl.StandingsResponse{}, nil)
	source.On("GetClubStats", mock.Anything, mock.Anything).Return(clubStats(), nil)

	svc, _ := newIngestService(t, source, nil, nil)
	report, err := svc.Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15", report.Date)
	assert.Equal(t, 1, report.Games)

	source.AssertNotCalled(t, "GetSchedule", mock.Anything, "2024-01-15")
	source.AssertExpectations(t)
}
