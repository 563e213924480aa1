package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/nhl-cortex/internal/models"
	"github.com/stitts-dev/nhl-cortex/internal/nhl"
	"github.com/stitts-dev/nhl-cortex/internal/projection"
	"github.com/stitts-dev/nhl-cortex/pkg/database"
)

const dateLayout = "2006-01-02"

// NHLDataSource is the slice of the NHL web API the jobs read from
type NHLDataSource interface {
	GetScheduleNow(ctx context.Context) (*nhl.ScheduleResponse, error)
	GetSchedule(ctx context.Context, date string) (*nhl.ScheduleResponse, error)
	GetStandings(ctx context.Context) (*nhl.StandingsResponse, error)
	GetClubStats(ctx context.Context, team string) (*nhl.ClubStatsResponse, error)
	GetRoster(ctx context.Context, team string) (*nhl.RosterResponse, error)
	GetBoxscore(ctx context.Context, gameID int64) (*nhl.BoxscoreResponse, error)
}

type IngestConfig struct {
	MinGamesPlayed     int
	PickScoreThreshold float64
	ValuePickThreshold int
}

func DefaultIngestConfig() IngestConfig {
	return IngestConfig{
		MinGamesPlayed:     5,
		PickScoreThreshold: 40,
		ValuePickThreshold: models.DefaultValuePickThreshold,
	}
}

// IngestReport summarises one projection run
type IngestReport struct {
	Date             string `json:"date"`
	Games            int    `json:"games"`
	Teams            int    `json:"teams"`
	PlayersEvaluated int    `json:"players_evaluated"`
	Saved            int    `json:"saved"`
	Skipped          int    `json:"skipped"`
	Unchanged        int    `json:"unchanged"`
	Errors           int    `json:"errors"`
	ValuePicks       int    `json:"value_picks"`
}

// ProjectionIngestService projects every skater on a game day and stores
// the ones worth surfacing in the data lake
type ProjectionIngestService struct {
	db         *database.DB
	source     NHLDataSource
	calculator *projection.Calculator
	cache      Cache
	notifier   Notifier
	cfg        IngestConfig
	logger     *logrus.Logger
	now        func() time.Time
}

func NewProjectionIngestService(
	db *database.DB,
	source NHLDataSource,
	calculator *projection.Calculator,
	cache Cache,
	notifier Notifier,
	cfg IngestConfig,
	logger *logrus.Logger,
) *ProjectionIngestService {
	if calculator == nil {
		calculator = projection.NewCalculator(projection.DefaultTuning())
	}
	return &ProjectionIngestService{
		db:         db,
		source:     source,
		calculator: calculator,
		cache:      cache,
		notifier:   notifier,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// Run ingests projections for date. An empty date reads the current game
// week for today. When the schedule has no games on date the first day of
// that week is used instead.
func (s *ProjectionIngestService) Run(ctx context.Context, date string) (*IngestReport, error) {
	var (
		schedule *nhl.ScheduleResponse
		err      error
	)
	if date == "" {
		date = s.now().UTC().Format(dateLayout)
		schedule, err = s.source.GetScheduleNow(ctx)
	} else {
		if _, perr := time.Parse(dateLayout, date); perr != nil {
			return nil, fmt.Errorf("invalid date %q: %w", date, perr)
		}
		schedule, err = s.source.GetSchedule(ctx, date)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch schedule: %w", err)
	}

	report := &IngestReport{Date: date}
	day, ok := schedule.Day(date)
	if !ok || len(day.Games) == 0 {
		s.logger.WithField("date", date).Info("No games scheduled")
		return report, nil
	}
	if day.Date != date {
		s.logger.Infof("No games on %s, using %s", date, day.Date)
		date = day.Date
		report.Date = date
	}

	contexts := nhl.TeamContexts{}
	if standings, err := s.source.GetStandings(ctx); err != nil {
		s.logger.Warnf("Standings unavailable, using league defaults: %v", err)
	} else {
		contexts = nhl.BuildTeamContexts(*standings)
	}
	tired := s.backToBack(ctx, date)

	var valuePicks []models.Pick
	for _, game := range day.Games {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Games++

		ts := game.StartTimeUTC
		if ts.IsZero() {
			ts = s.now()
		}

		sides := []struct {
			team, opp string
			isHome    bool
		}{
			{game.HomeTeam.Abbrev, game.AwayTeam.Abbrev, true},
			{game.AwayTeam.Abbrev, game.HomeTeam.Abbrev, false},
		}
		for _, side := range sides {
			report.Teams++
			gameCtx := projection.NewGameContext(side.isHome)
			gameCtx.TeamTired = tired[side.team]
			gameCtx.OpponentTired = tired[side.opp]

			log := s.logger.WithFields(logrus.Fields{
				"date": date,
				"team": side.team,
				"opp":  side.opp,
			})

			stats, err := s.source.GetClubStats(ctx, side.team)
			if err != nil {
				report.Errors++
				log.Errorf("Failed to fetch club stats: %v", err)
				continue
			}

			teamStats := contexts.Get(side.team).TeamStats()
			oppStats := contexts.Get(side.opp).OpponentStats()

			for _, skater := range stats.Skaters {
				report.PlayersEvaluated++
				if skater.GamesPlayed <= s.cfg.MinGamesPlayed {
					report.Skipped++
					continue
				}

				result := s.calculator.Calculate(skater.SeasonStats(), teamStats, oppStats, gameCtx)
				if result.ScorePoint <= s.cfg.PickScoreThreshold && result.ScoreShot <= s.cfg.PickScoreThreshold {
					report.Skipped++
					continue
				}

				pick := models.NewPickFromProjection(
					skater.ID(), skater.FullName(), projection.ParsePosition(skater.PositionCode),
					side.team, side.opp, date, ts, side.isHome, result,
				)
				pick.GameID = game.ID

				written, err := models.UpsertPick(s.db, pick)
				if err != nil {
					report.Errors++
					log.WithField("player_id", pick.PlayerID).Errorf("Failed to save pick: %v", err)
					continue
				}
				if !written {
					// already settled or ruled out
					report.Unchanged++
					continue
				}
				report.Saved++

				if pick.IsValuePick(s.cfg.ValuePickThreshold) {
					valuePicks = append(valuePicks, *pick)
				}
			}
		}
	}
	report.ValuePicks = len(valuePicks)

	if report.Saved > 0 {
		InvalidatePicks(ctx, s.cache, s.logger)
	}
	if s.notifier != nil && len(valuePicks) > 0 {
		if err := s.notifier.NotifyValuePicks(ctx, date, valuePicks); err != nil {
			s.logger.Warnf("Value pick notification failed: %v", err)
		}
	}

	s.logger.WithFields(logrus.Fields{
		"date":      report.Date,
		"games":     report.Games,
		"saved":     report.Saved,
		"skipped":   report.Skipped,
		"unchanged": report.Unchanged,
		"errors":    report.Errors,
	}).Info("Projection ingest completed")

	return report, nil
}

// backToBack returns the teams that also played the day before date
func (s *ProjectionIngestService) backToBack(ctx context.Context, date string) map[string]bool {
	day, _ := time.Parse(dateLayout, date)
	prev := day.AddDate(0, 0, -1).Format(dateLayout)

	schedule, err := s.source.GetSchedule(ctx, prev)
	if err != nil {
		s.logger.Debugf("Previous day schedule unavailable, skipping fatigue: %v", err)
		return map[string]bool{}
	}
	return schedule.TeamsPlayingOn(prev)
}
