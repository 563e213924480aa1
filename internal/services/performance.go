package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/stitts-dev/nhl-cortex/internal/models"
	"github.com/stitts-dev/nhl-cortex/pkg/database"
	"github.com/stitts-dev/nhl-cortex/pkg/utils"
)

const (
	DefaultPerformanceDays = 30
	MaxPerformanceDays     = 365
	recentWinsLimit        = 10
)

// PerformanceStats is the track record of a set of settled goal picks,
// staking one unit on each at the stored goal odds
type PerformanceStats struct {
	Picks         int     `json:"picks"`
	Hits          int     `json:"hits"`
	HitRate       float64 `json:"hit_rate"`
	Profit        string  `json:"profit"`
	ROI           float64 `json:"roi"`
	MeanPredicted float64 `json:"mean_predicted"`
	Brier         float64 `json:"brier"`
}

type WeeklyPerformance struct {
	Week string `json:"week"`
	PerformanceStats
}

type RecentWin struct {
	PlayerID      string  `json:"player_id"`
	PlayerName    string  `json:"player_name"`
	Team          string  `json:"team"`
	Opp           string  `json:"opp"`
	Date          string  `json:"date"`
	GoalOdds      float64 `json:"goal_odds"`
	AlgoScoreGoal int     `json:"algo_score_goal"`
}

type PerformanceSummary struct {
	Days       int                 `json:"days"`
	Since      time.Time           `json:"since"`
	Overall    PerformanceStats    `json:"overall"`
	Weeks      []WeeklyPerformance `json:"weeks"`
	RecentWins []RecentWin         `json:"recent_wins"`
}

// PerformanceService reports how settled picks fared
type PerformanceService struct {
	db             *database.DB
	cache          Cache
	valueThreshold int
	cacheTTL       time.Duration
	logger         *logrus.Logger
	now            func() time.Time
}

func NewPerformanceService(db *database.DB, cache Cache, valueThreshold int, cacheTTL time.Duration, logger *logrus.Logger) *PerformanceService {
	return &PerformanceService{
		db:             db,
		cache:          cache,
		valueThreshold: valueThreshold,
		cacheTTL:       cacheTTL,
		logger:         logger,
		now:            time.Now,
	}
}

// Summary covers the last days days; zero means the default window
func (s *PerformanceService) Summary(ctx context.Context, days int) (*PerformanceSummary, error) {
	if days == 0 {
		days = DefaultPerformanceDays
	}
	if days < 0 || days > MaxPerformanceDays {
		return nil, fmt.Errorf("days must be between 1 and %d: %w", MaxPerformanceDays, utils.ErrInvalidInput)
	}

	key := PerformanceCacheKey(days)
	if s.cache != nil {
		var cached PerformanceSummary
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	since := s.now().UTC().AddDate(0, 0, -days)
	settled, err := models.ListSettledPicks(s.db, since)
	if err != nil {
		return nil, fmt.Errorf("list settled picks: %w", err)
	}
	wins, err := models.ListRecentValueWins(s.db, s.valueThreshold, since, recentWinsLimit)
	if err != nil {
		return nil, fmt.Errorf("list recent wins: %w", err)
	}

	summary := &PerformanceSummary{
		Days:       days,
		Since:      since,
		Overall:    computeStats(settled),
		Weeks:      weeklyStats(settled),
		RecentWins: make([]RecentWin, 0, len(wins)),
	}
	for i := range wins {
		w := &wins[i]
		win := RecentWin{
			PlayerID:   w.PlayerID,
			PlayerName: w.PlayerName,
			Team:       w.Team,
			Opp:        w.Opp,
			Date:       w.Date,
			GoalOdds:   w.RealOdds.Data().Goal,
		}
		if w.AlgoScoreGoal != nil {
			win.AlgoScoreGoal = *w.AlgoScoreGoal
		}
		summary.RecentWins = append(summary.RecentWins, win)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, summary, s.cacheTTL); err != nil {
			s.logger.Debugf("Failed to cache performance: %v", err)
		}
	}
	return summary, nil
}

// weeklyStats groups picks by ISO week of the game date, oldest first
func weeklyStats(picks []models.Pick) []WeeklyPerformance {
	byWeek := make(map[string][]models.Pick)
	for _, p := range picks {
		week := isoWeek(p)
		byWeek[week] = append(byWeek[week], p)
	}

	weeks := make([]string, 0, len(byWeek))
	for w := range byWeek {
		weeks = append(weeks, w)
	}
	sort.Strings(weeks)

	out := make([]WeeklyPerformance, len(weeks))
	for i, w := range weeks {
		out[i] = WeeklyPerformance{Week: w, PerformanceStats: computeStats(byWeek[w])}
	}
	return out
}

func isoWeek(p models.Pick) string {
	t, err := time.Parse(dateLayout, p.Date)
	if err != nil && p.Ts != nil {
		t = *p.Ts
	}
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func computeStats(picks []models.Pick) PerformanceStats {
	stats := PerformanceStats{Picks: len(picks), Profit: "0.00"}
	if len(picks) == 0 {
		return stats
	}

	one := decimal.NewFromInt(1)
	profit := decimal.Zero
	predicted := make([]float64, 0, len(picks))
	squaredErr := make([]float64, 0, len(picks))

	for i := range picks {
		p := &picks[i]
		hit := p.ResultGoal == models.ResultHit
		outcome := 0.0
		if hit {
			stats.Hits++
			outcome = 1
			profit = profit.Add(decimal.NewFromFloat(p.RealOdds.Data().Goal).Sub(one))
		} else {
			profit = profit.Sub(one)
		}

		prob := p.SuccessProbability() / 100
		if p.PythonProb != nil {
			prob = *p.PythonProb / 100
		}
		predicted = append(predicted, prob)
		squaredErr = append(squaredErr, (prob-outcome)*(prob-outcome))
	}

	n := decimal.NewFromInt(int64(len(picks)))
	stats.HitRate = math.Round(float64(stats.Hits)/float64(len(picks))*1000) / 10
	stats.Profit = profit.StringFixed(2)
	stats.ROI = profit.Div(n).Mul(decimal.NewFromInt(100)).Round(1).InexactFloat64()
	stats.MeanPredicted = math.Round(stat.Mean(predicted, nil)*1000) / 10
	stats.Brier = math.Round(stat.Mean(squaredErr, nil)*10000) / 10000
	return stats
}
