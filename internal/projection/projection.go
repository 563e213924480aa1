package projection

import "math"

const (
	DefaultBlendWeight = 0.35

	homeFactor = 1.05
	awayFactor = 0.95

	minGoalsAgainstAvg = 0.1

	defenseFactorMin = 0.70
	defenseFactorMax = 1.40

	opponentTiredBoost = 1.05
	teamTiredPenalty   = 0.97

	hotFormThreshold = 0.65
	hotFormBonus     = 1.04

	powerPlayThreshold   = 0.22
	penaltyKillThreshold = 0.78
	powerPlayBonus       = 1.08

	shotFactorMin = 0.85
	shotFactorMax = 1.25

	secondaryDefenseMin = 0.85
	secondaryDefenseMax = 1.25
	secondaryGoalMax    = 6.0
	secondaryShotsMin   = 0.90
	secondaryShotsMax   = 1.15
	secondaryShotsCap   = 12.0
)

// Tuning holds the adjustable weights of the hybrid model
type Tuning struct {
	// BlendWeight is the share given to the secondary model when blending
	// goal and shot lambdas. Must be within [0, 1].
	BlendWeight float64 `json:"blend_weight" mapstructure:"blend_weight"`
}

func DefaultTuning() Tuning {
	return Tuning{BlendWeight: DefaultBlendWeight}
}

func (t Tuning) valid() bool {
	return t.BlendWeight >= 0 && t.BlendWeight <= 1 && !math.IsNaN(t.BlendWeight)
}

// Calculator runs the hybrid projection with a fixed tuning. It holds no
// mutable state and is safe for concurrent use.
type Calculator struct {
	tuning Tuning
}

// NewCalculator returns a calculator using tuning, falling back to the
// default tuning when the weight is out of range.
func NewCalculator(tuning Tuning) *Calculator {
	if !tuning.valid() {
		tuning = DefaultTuning()
	}
	return &Calculator{tuning: tuning}
}

func (c *Calculator) Tuning() Tuning {
	return c.tuning
}

var defaultCalculator = NewCalculator(DefaultTuning())

// CalculateProjection runs the hybrid projection with the default tuning
func CalculateProjection(player PlayerSeasonStats, team TeamStats, opponent OpponentStats, ctx GameContext) ProjectionResult {
	return defaultCalculator.Calculate(player, team, opponent, ctx)
}

// contextFactors are the multipliers derived from team, opponent and game context
type contextFactors struct {
	home      float64
	defense   float64
	form      float64
	powerPlay float64
	shotOpp   float64
}

func buildContextFactors(team TeamStats, opponent OpponentStats, ctx GameContext, gaa float64) contextFactors {
	f := contextFactors{home: awayFactor, form: 1.0, powerPlay: 1.0}
	if ctx.IsHome {
		f.home = homeFactor
	}

	def := 1.0 + 0.08*(gaa-3.0)
	if ctx.GoalieForm != 0 {
		def *= 1.0 - ctx.GoalieForm
	}
	def = clamp(def, defenseFactorMin, defenseFactorMax)

	// fatigue compounds after the clamp
	if ctx.OpponentTired {
		def *= opponentTiredBoost
	}
	if ctx.TeamTired {
		def *= teamTiredPenalty
	}
	f.defense = def

	if team.Last10PointsPct > hotFormThreshold {
		f.form = hotFormBonus
	}
	if team.PowerPlayPct > powerPlayThreshold && opponent.PenaltyKillPct < penaltyKillThreshold {
		f.powerPlay = powerPlayBonus
	}

	f.shotOpp = clamp(1.0+0.10*(gaa-3.0), shotFactorMin, shotFactorMax)
	return f
}

type secondaryModel struct {
	lambdaGoal    float64
	probGoal      float64 // percent
	expectedShots float64
}

func runSecondaryModel(r rates, home float64, opponent OpponentStats, gaa float64) secondaryModel {
	def := clamp(1.0+0.08*(gaa-3.0), secondaryDefenseMin, secondaryDefenseMax)
	lambdaGoal := clamp(r.goals*home*def, 0.0, secondaryGoalMax)

	shotsOpp := clamp(1.0+0.05*(opponent.ShotsAllowedAvg-30.0)/10.0, secondaryShotsMin, secondaryShotsMax)
	expectedShots := clamp(r.shots*home*shotsOpp, 0.0, secondaryShotsCap)

	return secondaryModel{
		lambdaGoal:    lambdaGoal,
		probGoal:      PoissonAtLeast(1, lambdaGoal) * 100.0,
		expectedShots: expectedShots,
	}
}

// Calculate produces probabilities, value scores and odds for one player in
// one game. It never fails; all derived factors are clamped.
func (c *Calculator) Calculate(player PlayerSeasonStats, team TeamStats, opponent OpponentStats, ctx GameContext) ProjectionResult {
	r := perGameRates(player)
	odds := estimateOdds(r, player.Position, ctx.IsHome)

	gaa := math.Max(minGoalsAgainstAvg, opponent.GoalsAgainstAvg)
	f := buildContextFactors(team, opponent, ctx, gaa)

	lambdaGoal := r.goals * f.home * f.defense * f.form * f.powerPlay * ctx.AIFactor
	lambdaAssist := r.assists * f.defense * f.form * f.powerPlay * ctx.AIFactor
	lambdaPoint := r.points * f.home * f.defense * f.form * f.powerPlay * ctx.AIFactor
	lambdaShot := r.shots * f.home * f.shotOpp * ctx.AIFactor

	sec := runSecondaryModel(r, f.home, opponent, gaa)

	// only goal and shot lambdas are blended
	w := c.tuning.BlendWeight
	lambdaGoal = (1-w)*lambdaGoal + w*sec.lambdaGoal
	lambdaShot = (1-w)*lambdaShot + w*sec.expectedShots

	probGoal := PoissonAtLeast(1, lambdaGoal) * 100.0
	probAssist := PoissonAtLeast(1, lambdaAssist) * 100.0
	probPoint := PoissonAtLeast(1, lambdaPoint) * 100.0
	shotK := int(math.Floor(odds.ShotLine)) + 1
	probShot := PoissonAtLeast(shotK, lambdaShot) * 100.0

	scoreGoal := probGoal * odds.Goal
	scoreAssist := probAssist * odds.Assist
	scorePoint := probPoint * odds.Point
	scoreShot := probShot * odds.ShotOdds

	return ProjectionResult{
		ProbGoal:      round1(probGoal),
		ProbAssist:    round1(probAssist),
		ProbPoint:     round1(probPoint),
		ProbShot:      round1(probShot),
		ScoreGoal:     round1(scoreGoal),
		ScoreAssist:   round1(scoreAssist),
		ScorePoint:    round1(scorePoint),
		ScoreShot:     round1(scoreShot),
		RealOdds:      odds,
		AlgoScoreGoal: int(math.Round(scoreGoal)),
		AlgoScoreShot: int(math.Round(scoreShot)),
		SecondaryProb: round1(sec.probGoal),
		Volatility:    round1(sec.expectedShots),
	}
}
