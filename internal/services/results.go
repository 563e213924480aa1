package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/nhl-cortex/internal/models"
	"github.com/stitts-dev/nhl-cortex/pkg/database"
)

type ResultsReport struct {
	Date         string `json:"date"`
	Games        int    `json:"games"`
	FinalGames   int    `json:"final_games"`
	Skaters      int    `json:"skaters"`
	PicksSettled int    `json:"picks_settled"`
	Hits         int    `json:"hits"`
	Errors       int    `json:"errors"`
}

// ResultsService settles picks from final boxscores
type ResultsService struct {
	db     *database.DB
	source NHLDataSource
	cache  Cache
	logger *logrus.Logger
	now    func() time.Time
}

func NewResultsService(db *database.DB, source NHLDataSource, cache Cache, logger *logrus.Logger) *ResultsService {
	return &ResultsService{
		db:     db,
		source: source,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

// Run settles picks for date, yesterday when empty. Games that are not
// final yet are skipped and picked up by the next run.
func (s *ResultsService) Run(ctx context.Context, date string) (*ResultsReport, error) {
	if date == "" {
		date = s.now().UTC().AddDate(0, 0, -1).Format(dateLayout)
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	schedule, err := s.source.GetSchedule(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("fetch schedule: %w", err)
	}

	report := &ResultsReport{Date: date}
	for _, day := range schedule.GameWeek {
		if day.Date != date {
			continue
		}
		for _, game := range day.Games {
			report.Games++
			if !game.IsFinal() {
				continue
			}
			report.FinalGames++

			if err := ctx.Err(); err != nil {
				return report, err
			}

			box, err := s.source.GetBoxscore(ctx, game.ID)
			if err != nil {
				report.Errors++
				s.logger.WithField("game_id", game.ID).Errorf("Failed to fetch boxscore: %v", err)
				continue
			}

			settledAt := s.now()
			for _, skater := range box.Skaters() {
				report.Skaters++

				picks, err := models.FindPicksForResult(s.db, skater.ID(), models.LastName(skater.Name.Default), date)
				if err != nil {
					report.Errors++
					s.logger.WithField("player_id", skater.ID()).Errorf("Failed to look up picks: %v", err)
					continue
				}

				for i := range picks {
					if err := models.SaveResult(s.db, &picks[i], skater.Goals, skater.Assists, skater.ShotsOnGoal(), settledAt); err != nil {
						report.Errors++
						s.logger.WithField("pick_id", picks[i].ID).Errorf("Failed to save result: %v", err)
						continue
					}
					report.PicksSettled++
					if picks[i].ResultGoal == models.ResultHit {
						report.Hits++
					}
				}
			}
		}
	}

	if report.PicksSettled > 0 {
		InvalidatePicks(ctx, s.cache, s.logger)
	}

	s.logger.WithFields(logrus.Fields{
		"date":    report.Date,
		"games":   report.FinalGames,
		"settled": report.PicksSettled,
		"hits":    report.Hits,
	}).Info("Results sync completed")

	return report, nil
}
