package nhl

import "github.com/stitts-dev/nhl-cortex/internal/projection"

// TeamContext is the per-team input the projection needs, derived from
// the standings table
type TeamContext struct {
	GoalsAgainstAvg float64 `json:"goals_against_avg"`
	PowerPlayPct    float64 `json:"power_play_pct"`
	PenaltyKillPct  float64 `json:"penalty_kill_pct"`
	Last10PointsPct float64 `json:"last10_points_pct"`
	ShotsAllowedAvg float64 `json:"shots_allowed_avg"`
}

// DefaultTeamContext is used for teams missing from the standings
func DefaultTeamContext() TeamContext {
	return TeamContext{
		GoalsAgainstAvg: projection.DefaultGoalsAgainstAvg,
		PowerPlayPct:    projection.DefaultPowerPlayPct,
		PenaltyKillPct:  projection.DefaultPenaltyKillPct,
		Last10PointsPct: projection.DefaultLast10PointsPct,
		ShotsAllowedAvg: projection.DefaultShotsAllowedAvg,
	}
}

// TeamContexts indexes standings by team abbreviation
type TeamContexts map[string]TeamContext

// BuildTeamContexts converts standings rows. Goals against average uses a
// games-played divisor floored at one; the standings feed carries no shots
// against, so every team gets the league placeholder.
func BuildTeamContexts(s StandingsResponse) TeamContexts {
	out := make(TeamContexts, len(s.Standings))
	for _, row := range s.Standings {
		abbrev := row.TeamAbbrev.Default
		if abbrev == "" {
			continue
		}

		gp := row.GamesPlayed
		if gp < 1 {
			gp = 1
		}

		ctx := DefaultTeamContext()
		ctx.GoalsAgainstAvg = float64(row.GoalAgainst) / float64(gp)
		if row.PowerPlayPctg != nil {
			ctx.PowerPlayPct = *row.PowerPlayPctg
		}
		if row.PenaltyKillPctg != nil {
			ctx.PenaltyKillPct = *row.PenaltyKillPctg
		}
		if row.L10PtsPctg != nil {
			ctx.Last10PointsPct = *row.L10PtsPctg
		}
		out[abbrev] = ctx
	}
	return out
}

// Get returns the context for team or the defaults
func (t TeamContexts) Get(team string) TeamContext {
	if ctx, ok := t[team]; ok {
		return ctx
	}
	return DefaultTeamContext()
}

func (c TeamContext) TeamStats() projection.TeamStats {
	return projection.TeamStats{
		PowerPlayPct:    c.PowerPlayPct,
		Last10PointsPct: c.Last10PointsPct,
	}
}

func (c TeamContext) OpponentStats() projection.OpponentStats {
	return projection.OpponentStats{
		GoalsAgainstAvg: c.GoalsAgainstAvg,
		PenaltyKillPct:  c.PenaltyKillPct,
		ShotsAllowedAvg: c.ShotsAllowedAvg,
	}
}

// SeasonStats converts a club-stats skater row into engine input
func (s SkaterStats) SeasonStats() projection.PlayerSeasonStats {
	return projection.PlayerSeasonStats{
		GamesPlayed: s.GamesPlayed,
		Goals:       s.Goals,
		Assists:     s.Assists,
		Points:      s.Points,
		Shots:       s.Shots,
		Position:    projection.ParsePosition(s.PositionCode),
	}
}
