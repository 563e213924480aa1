package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/nhl-cortex/internal/models"
	"github.com/stitts-dev/nhl-cortex/pkg/database"
)

type InjuryReport struct {
	Teams          int   `json:"teams"`
	InjuredPlayers int   `json:"injured_players"`
	PicksMarked    int64 `json:"picks_marked"`
	Errors         int   `json:"errors"`
}

// InjuryGuardian flags open picks of players the rosters list as injured
type InjuryGuardian struct {
	db     *database.DB
	source NHLDataSource
	cache  Cache
	logger *logrus.Logger
}

func NewInjuryGuardian(db *database.DB, source NHLDataSource, cache Cache, logger *logrus.Logger) *InjuryGuardian {
	return &InjuryGuardian{
		db:     db,
		source: source,
		cache:  cache,
		logger: logger,
	}
}

func (g *InjuryGuardian) Run(ctx context.Context) (*InjuryReport, error) {
	teams, err := models.ListDistinctTeams(g.db)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}

	report := &InjuryReport{}
	seen := make(map[string]bool)
	var injured []string

	for _, team := range teams {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Teams++

		roster, err := g.source.GetRoster(ctx, team)
		if err != nil {
			report.Errors++
			g.logger.WithField("team", team).Errorf("Failed to fetch roster: %v", err)
			continue
		}
		for _, id := range roster.InjuredIDs() {
			if !seen[id] {
				seen[id] = true
				injured = append(injured, id)
			}
		}
	}
	report.InjuredPlayers = len(injured)

	marked, err := models.MarkPlayersInjured(g.db, injured)
	if err != nil {
		return report, fmt.Errorf("mark injured: %w", err)
	}
	report.PicksMarked = marked

	if marked > 0 {
		InvalidatePicks(ctx, g.cache, g.logger)
	}

	g.logger.WithFields(logrus.Fields{
		"teams":   report.Teams,
		"injured": report.InjuredPlayers,
		"marked":  report.PicksMarked,
	}).Info("Injury sweep completed")

	return report, nil
}
