package services

import (
	"context"
	"encoding/json"
	"io"
	"path"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"

	"github.com/stitts-dev/nhl-cortex/internal/models"
	"github.com/stitts-dev/nhl-cortex/internal/nhl"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// memoryCache is an in-process Cache
type memoryCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	deleted []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (m *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	if !ok {
		return ErrCacheMiss
	}
	return json.Unmarshal(b, dest)
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = b
	return nil
}

func (m *memoryCache) DeletePattern(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, pattern)
	for key := range m.data {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.data, key)
		}
	}
	return nil
}

func (m *memoryCache) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

// MockNHLDataSource for testing
type MockNHLDataSource struct {
	mock.Mock
}

func (m *MockNHLDataSource) GetScheduleNow(ctx context.Context) (*nhl.ScheduleResponse, error) {
	args := m.Called(ctx)
	resp, _ := args.Get(0).(*nhl.ScheduleResponse)
	return resp, args.Error(1)
}

func (m *MockNHLDataSource) GetSchedule(ctx context.Context, date string) (*nhl.ScheduleResponse, error) {
	args := m.Called(ctx, date)
	resp, _ := args.Get(0).(*nhl.ScheduleResponse)
	return resp, args.Error(1)
}

func (m *MockNHLDataSource) GetStandings(ctx context.Context) (*nhl.StandingsResponse, error) {
	args := m.Called(ctx)
	resp, _ := args.Get(0).(*nhl.StandingsResponse)
	return resp, args.Error(1)
}

func (m *MockNHLDataSource) GetClubStats(ctx context.Context, team string) (*nhl.ClubStatsResponse, error) {
	args := m.Called(ctx, team)
	resp, _ := args.Get(0).(*nhl.ClubStatsResponse)
	return resp, args.Error(1)
}

func (m *MockNHLDataSource) GetRoster(ctx context.Context, team string) (*nhl.RosterResponse, error) {
	args := m.Called(ctx, team)
	resp, _ := args.Get(0).(*nhl.RosterResponse)
	return resp, args.Error(1)
}

func (m *MockNHLDataSource) GetBoxscore(ctx context.Context, gameID int64) (*nhl.BoxscoreResponse, error) {
	args := m.Called(ctx, gameID)
	resp, _ := args.Get(0).(*nhl.BoxscoreResponse)
	return resp, args.Error(1)
}

// MockNotifier for testing
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyValuePicks(ctx context.Context, date string, picks []models.Pick) error {
	args := m.Called(ctx, date, picks)
	return args.Error(0)
}

// MockSMSSender for testing
type MockSMSSender struct {
	mock.Mock
}

func (m *MockSMSSender) SendMessage(phoneNumber, message string) error {
	args := m.Called(phoneNumber, message)
	return args.Error(0)
}

func sniper(id int64, first, last string) nhl.SkaterStats {
	return nhl.SkaterStats{
		PlayerID:     id,
		FirstName:    nhl.LocalizedName{Default: first},
		LastName:     nhl.LocalizedName{Default: last},
		PositionCode: "C",
		GamesPlayed:  20,
		Goals:        14,
		Assists:      8,
		Points:       22,
		Shots:        70,
	}
}

func scheduleFor(date string, games ...nhl.Game) *nhl.ScheduleResponse {
	return &nhl.ScheduleResponse{GameWeek: []nhl.GameDay{{Date: date, Games: games}}}
}

func game(id int64, home, away, state string, start time.Time) nhl.Game {
	return nhl.Game{
		ID:           id,
		StartTimeUTC: start,
		GameState:    state,
		HomeTeam:     nhl.GameTeam{Abbrev: home},
		AwayTeam:     nhl.GameTeam{Abbrev: away},
	}
}

func intPtr(v int) *int { return &v }
