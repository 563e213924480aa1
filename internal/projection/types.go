package projection

// Position is the skater position used by the odds estimator
type Position string

const (
	PositionForward Position = "F"
	PositionDefense Position = "D"
)

// ParsePosition maps NHL API position codes (C, L, R, D) onto the two
// positions the engine distinguishes. Anything other than D is a forward.
func ParsePosition(code string) Position {
	if code == string(PositionDefense) {
		return PositionDefense
	}
	return PositionForward
}

// PlayerSeasonStats are season totals for one skater
type PlayerSeasonStats struct {
	GamesPlayed int      `json:"games_played"`
	Goals       int      `json:"goals"`
	Assists     int      `json:"assists"`
	Points      int      `json:"points"`
	Shots       int      `json:"shots"`
	Position    Position `json:"position"`
}

// TeamStats describe the player's own team
type TeamStats struct {
	PowerPlayPct    float64 `json:"power_play_pct"`
	Last10PointsPct float64 `json:"last10_points_pct"`
}

// OpponentStats describe the team being played against
type OpponentStats struct {
	GoalsAgainstAvg float64 `json:"goals_against_avg"`
	PenaltyKillPct  float64 `json:"penalty_kill_pct"`
	ShotsAllowedAvg float64 `json:"shots_allowed_avg"`
}

// GameContext carries the situational inputs for a single game
type GameContext struct {
	IsHome        bool    `json:"is_home"`
	OpponentTired bool    `json:"opponent_tired"`
	TeamTired     bool    `json:"team_tired"`
	GoalieForm    float64 `json:"goalie_form"` // -0.15 to +0.15
	AIFactor      float64 `json:"ai_factor"`
}

const (
	DefaultPowerPlayPct    = 0.20
	DefaultLast10PointsPct = 0.50
	DefaultGoalsAgainstAvg = 3.0
	DefaultPenaltyKillPct  = 0.80
	DefaultShotsAllowedAvg = 30.0
	DefaultAIFactor        = 1.0
)

func DefaultTeamStats() TeamStats {
	return TeamStats{
		PowerPlayPct:    DefaultPowerPlayPct,
		Last10PointsPct: DefaultLast10PointsPct,
	}
}

func DefaultOpponentStats() OpponentStats {
	return OpponentStats{
		GoalsAgainstAvg: DefaultGoalsAgainstAvg,
		PenaltyKillPct:  DefaultPenaltyKillPct,
		ShotsAllowedAvg: DefaultShotsAllowedAvg,
	}
}

// NewGameContext returns a context with a neutral AI factor
func NewGameContext(isHome bool) GameContext {
	return GameContext{IsHome: isHome, AIFactor: DefaultAIFactor}
}

// OddsResult holds decimal odds for the four markets plus the shots line
type OddsResult struct {
	Goal     float64 `json:"goal"`
	Assist   float64 `json:"assist"`
	Point    float64 `json:"point"`
	ShotLine float64 `json:"shot_line"`
	ShotOdds float64 `json:"shot_odds"`
}

// ProjectionResult is the engine output. Probabilities are percentages.
type ProjectionResult struct {
	ProbGoal    float64 `json:"prob_goal"`
	ProbAssist  float64 `json:"prob_assist"`
	ProbPoint   float64 `json:"prob_point"`
	ProbShot    float64 `json:"prob_shot"`
	ScoreGoal   float64 `json:"score_goal"`
	ScoreAssist float64 `json:"score_assist"`
	ScorePoint  float64 `json:"score_point"`
	ScoreShot   float64 `json:"score_shot"`

	RealOdds OddsResult `json:"real_odds"`

	// Persisted alongside the pick
	AlgoScoreGoal int     `json:"algo_score_goal"`
	AlgoScoreShot int     `json:"algo_score_shot"`
	SecondaryProb float64 `json:"python_prob"`
	Volatility    float64 `json:"python_vol"`
}

// rates are per-game averages with the divisor floored at one game
type rates struct {
	goals, assists, points, shots float64
}

func perGameRates(s PlayerSeasonStats) rates {
	gp := float64(s.GamesPlayed)
	if gp < 1 {
		gp = 1
	}
	return rates{
		goals:   float64(s.Goals) / gp,
		assists: float64(s.Assists) / gp,
		points:  float64(s.Points) / gp,
		shots:   float64(s.Shots) / gp,
	}
}
