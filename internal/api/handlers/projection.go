package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/stitts-dev/nhl-cortex/internal/projection"
	"github.com/stitts-dev/nhl-cortex/pkg/utils"
)

type playerRequest struct {
	GamesPlayed int    `json:"games_played" binding:"min=0"`
	Goals       int    `json:"goals" binding:"min=0"`
	Assists     int    `json:"assists" binding:"min=0"`
	Points      int    `json:"points" binding:"min=0"`
	Shots       int    `json:"shots" binding:"min=0"`
	Position    string `json:"position"`
}

func (p *playerRequest) stats() projection.PlayerSeasonStats {
	return projection.PlayerSeasonStats{
		GamesPlayed: p.GamesPlayed,
		Goals:       p.Goals,
		Assists:     p.Assists,
		Points:      p.Points,
		Shots:       p.Shots,
		Position:    projection.ParsePosition(p.Position),
	}
}

type teamRequest struct {
	PowerPlayPct    *float64 `json:"power_play_pct" binding:"omitempty,min=0,max=1"`
	Last10PointsPct *float64 `json:"last10_points_pct" binding:"omitempty,min=0,max=1"`
}

type opponentRequest struct {
	GoalsAgainstAvg *float64 `json:"goals_against_avg" binding:"omitempty,min=0"`
	PenaltyKillPct  *float64 `json:"penalty_kill_pct" binding:"omitempty,min=0,max=1"`
	ShotsAllowedAvg *float64 `json:"shots_allowed_avg" binding:"omitempty,min=0"`
}

type contextRequest struct {
	IsHome        bool     `json:"is_home"`
	OpponentTired bool     `json:"opponent_tired"`
	TeamTired     bool     `json:"team_tired"`
	GoalieForm    float64  `json:"goalie_form" binding:"min=-0.15,max=0.15"`
	AIFactor      *float64 `json:"ai_factor" binding:"omitempty,gt=0"`
}

// ProjectionRequest is the engine input. Omitted team, opponent and context
// fields take the league-average defaults.
type ProjectionRequest struct {
	Player   *playerRequest   `json:"player" binding:"required"`
	Team     *teamRequest     `json:"team"`
	Opponent *opponentRequest `json:"opponent"`
	Context  *contextRequest  `json:"context"`
}

func (r *ProjectionRequest) inputs() (projection.PlayerSeasonStats, projection.TeamStats, projection.OpponentStats, projection.GameContext) {
	team := projection.DefaultTeamStats()
	if r.Team != nil {
		setIfPresent(&team.PowerPlayPct, r.Team.PowerPlayPct)
		setIfPresent(&team.Last10PointsPct, r.Team.Last10PointsPct)
	}

	opponent := projection.DefaultOpponentStats()
	if r.Opponent != nil {
		setIfPresent(&opponent.GoalsAgainstAvg, r.Opponent.GoalsAgainstAvg)
		setIfPresent(&opponent.PenaltyKillPct, r.Opponent.PenaltyKillPct)
		setIfPresent(&opponent.ShotsAllowedAvg, r.Opponent.ShotsAllowedAvg)
	}

	ctx := projection.NewGameContext(false)
	if r.Context != nil {
		ctx.IsHome = r.Context.IsHome
		ctx.OpponentTired = r.Context.OpponentTired
		ctx.TeamTired = r.Context.TeamTired
		ctx.GoalieForm = r.Context.GoalieForm
		setIfPresent(&ctx.AIFactor, r.Context.AIFactor)
	}

	return r.Player.stats(), team, opponent, ctx
}

func setIfPresent(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

type OddsRequest struct {
	Player *playerRequest `json:"player" binding:"required"`
	IsHome bool           `json:"is_home"`
}

type ProjectionHandler struct {
	calculator *projection.Calculator
}

func NewProjectionHandler(calculator *projection.Calculator) *ProjectionHandler {
	if calculator == nil {
		calculator = projection.NewCalculator(projection.DefaultTuning())
	}
	return &ProjectionHandler{calculator: calculator}
}

// Project runs the hybrid projection for one player and game
func (h *ProjectionHandler) Project(c *gin.Context) {
	var req ProjectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid projection request", err.Error())
		return
	}

	player, team, opponent, ctx := req.inputs()
	utils.SendSuccess(c, h.calculator.Calculate(player, team, opponent, ctx))
}

// Odds estimates the market odds for a player's season line
func (h *ProjectionHandler) Odds(c *gin.Context) {
	var req OddsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid odds request", err.Error())
		return
	}

	utils.SendSuccess(c, projection.EstimateOdds(req.Player.stats(), req.IsHome))
}
