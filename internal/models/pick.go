package models

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stitts-dev/nhl-cortex/internal/projection"
	"github.com/stitts-dev/nhl-cortex/pkg/database"
	"github.com/stitts-dev/nhl-cortex/pkg/utils"
)

// Result markers stored in result_goal
const (
	ResultHit     = "HIT"
	ResultMiss    = "MISS"
	ResultInjured = "INJURED"
	ResultPending = "PENDING"
)

const DefaultValuePickThreshold = 130

// Pick is one projected player for one game date. Rows live in the
// data_lake table and are unique per (player_id, date).
type Pick struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	PlayerID   string     `gorm:"size:20;not null;uniqueIndex:idx_pick_player_date" json:"player_id"`
	PlayerName string     `gorm:"size:100" json:"player_name"`
	Position   string     `gorm:"size:2" json:"position"`
	Team       string     `gorm:"size:3;index" json:"team"`
	Opp        string     `gorm:"size:3;index" json:"opp"`
	Date       string     `gorm:"size:10;not null;uniqueIndex:idx_pick_player_date;index" json:"date"` // YYYY-MM-DD
	Ts         *time.Time `gorm:"index" json:"ts"`
	IsHome     bool       `json:"is_home"`
	GameID     int64      `json:"game_id,omitempty"`

	// Engine output
	AlgoScoreGoal *int                                            `json:"algo_score_goal"`
	AlgoScoreShot *int                                            `json:"algo_score_shot"`
	PythonProb    *float64                                        `json:"python_prob"`
	PythonVol     *float64                                        `json:"python_vol"`
	RealOdds      datatypes.JSONType[projection.OddsResult]       `json:"real_odds"`
	Projection    datatypes.JSONType[projection.ProjectionResult] `json:"projection"`

	// Results. result_goal holds the goal odds until the game is settled,
	// then HIT, MISS or INJURED; result_shot holds shot odds then the shot count.
	ResultGoal    string     `gorm:"size:20" json:"result_goal"`
	ResultShot    string     `gorm:"size:20" json:"result_shot"`
	GoalsActual   *int       `json:"goals_actual,omitempty"`
	AssistsActual *int       `json:"assists_actual,omitempty"`
	ShotsActual   *int       `json:"shots_actual,omitempty"`
	SettledAt     *time.Time `json:"settled_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Pick) TableName() string {
	return "data_lake"
}

// NewPickFromProjection builds a pick ready for upsert. Result fields start
// out holding the goal and shot odds as strings.
func NewPickFromProjection(playerID, name string, position projection.Position, team, opp, date string, ts time.Time, isHome bool, result projection.ProjectionResult) *Pick {
	goal, shot := result.AlgoScoreGoal, result.AlgoScoreShot
	prob, vol := result.SecondaryProb, result.Volatility
	ts = ts.UTC()

	return &Pick{
		PlayerID:      playerID,
		PlayerName:    name,
		Position:      string(position),
		Team:          team,
		Opp:           opp,
		Date:          date,
		Ts:            &ts,
		IsHome:        isHome,
		AlgoScoreGoal: &goal,
		AlgoScoreShot: &shot,
		PythonProb:    &prob,
		PythonVol:     &vol,
		RealOdds:      datatypes.NewJSONType(result.RealOdds),
		Projection:    datatypes.NewJSONType(result),
		ResultGoal:    strconv.FormatFloat(result.RealOdds.Goal, 'f', -1, 64),
		ResultShot:    strconv.FormatFloat(result.RealOdds.ShotOdds, 'f', -1, 64),
	}
}

// IsValuePick reports whether the goal score clears threshold
func (p *Pick) IsValuePick(threshold int) bool {
	return p.AlgoScoreGoal != nil && *p.AlgoScoreGoal > threshold
}

// CortexScore blends the goal value score with the secondary probability:
// 0.6 * algo_score_goal + 0.4 * python_prob, rounded to one decimal.
func (p *Pick) CortexScore() float64 {
	if p.AlgoScoreGoal == nil || p.PythonProb == nil {
		return 0
	}
	return math.Round((float64(*p.AlgoScoreGoal)*0.6+*p.PythonProb*0.4)*10) / 10
}

// SuccessProbability is the whole-percent chance of a goal. It prefers the
// secondary model probability and falls back to the odds-implied one.
func (p *Pick) SuccessProbability() float64 {
	if p.PythonProb != nil {
		return math.Round(*p.PythonProb)
	}
	if p.ResultGoal == "" || p.ResultGoal == ResultInjured {
		return 0
	}
	odds, err := strconv.ParseFloat(p.ResultGoal, 64)
	if err != nil || odds <= 0 {
		return 0
	}
	return math.Round(100 / odds)
}

func (p *Pick) IsInjured() bool {
	return p.ResultGoal == ResultInjured
}

func (p *Pick) IsSettled() bool {
	return p.ResultGoal == ResultHit || p.ResultGoal == ResultMiss
}

// Outcome is HIT, MISS, INJURED or PENDING
func (p *Pick) Outcome() string {
	switch p.ResultGoal {
	case ResultHit, ResultMiss, ResultInjured:
		return p.ResultGoal
	default:
		return ResultPending
	}
}

func (p *Pick) TeamFullName() string {
	return TeamFullName(p.Team)
}

func (p *Pick) OppFullName() string {
	return TeamFullName(p.Opp)
}

// LastName returns the final word of the player name, used when boxscore
// ids do not line up with stored ids.
func LastName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// UpsertPick inserts or refreshes the projection for (player_id, date) and
// reports whether a row was written. Settled and injured rows are left
// untouched and report false.
func UpsertPick(db *database.DB, pick *Pick) (bool, error) {
	res := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "player_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"player_name", "position", "team", "opp", "ts", "is_home", "game_id",
			"algo_score_goal", "algo_score_shot", "python_prob", "python_vol",
			"real_odds", "projection", "result_goal", "result_shot", "updated_at",
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "data_lake.settled_at IS NULL AND (data_lake.result_goal IS NULL OR data_lake.result_goal <> ?)", Vars: []interface{}{ResultInjured}},
		}},
	}).Create(pick)
	if res.Error != nil {
		return false, fmt.Errorf("upsert pick %s/%s: %w", pick.PlayerID, pick.Date, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// GetLatestPickForPlayer returns the most recent pick for playerID
func GetLatestPickForPlayer(db *database.DB, playerID string) (*Pick, error) {
	var pick Pick
	err := db.Where("player_id = ?", playerID).Order("date DESC").Order("ts DESC").First(&pick).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("pick for player %s: %w", playerID, utils.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &pick, nil
}

// ListPicksInWindow returns scored picks with ts in [from, to], newest
// first. A non-empty team matches either side of the game.
func ListPicksInWindow(db *database.DB, from, to time.Time, team string) ([]Pick, error) {
	q := db.Where("algo_score_goal IS NOT NULL AND python_prob IS NOT NULL").
		Where("ts >= ? AND ts <= ?", from.UTC(), to.UTC())
	if team != "" {
		q = q.Where("team = ? OR opp = ?", team, team)
	}

	var picks []Pick
	if err := q.Order("ts DESC").Order("player_name").Find(&picks).Error; err != nil {
		return nil, err
	}
	return picks, nil
}

// ListDistinctTeams returns every team with at least one pick, sorted
func ListDistinctTeams(db *database.DB) ([]string, error) {
	var teams []string
	if err := db.Model(&Pick{}).Where("team IS NOT NULL AND team <> ''").Distinct("team").Pluck("team", &teams).Error; err != nil {
		return nil, err
	}
	sort.Strings(teams)
	return teams, nil
}

// MarkPlayersInjured flags every unsettled pick of the given players
func MarkPlayersInjured(db *database.DB, playerIDs []string) (int64, error) {
	if len(playerIDs) == 0 {
		return 0, nil
	}
	res := db.Model(&Pick{}).
		Where("player_id IN ?", playerIDs).
		Where("settled_at IS NULL").
		Updates(map[string]interface{}{
			"result_goal": ResultInjured,
			"result_shot": ResultInjured,
		})
	return res.RowsAffected, res.Error
}

// FindPicksForResult looks a boxscore player up by id and date, falling back
// to a case-insensitive last-name match on the same date.
func FindPicksForResult(db *database.DB, playerID, lastName, date string) ([]Pick, error) {
	var picks []Pick
	if err := db.Where("player_id = ? AND date = ?", playerID, date).Find(&picks).Error; err != nil {
		return nil, err
	}
	if len(picks) > 0 || lastName == "" {
		return picks, nil
	}

	err := db.Where("date = ? AND LOWER(player_name) LIKE ?", date, "%"+strings.ToLower(lastName)).Find(&picks).Error
	return picks, err
}

// SaveResult settles a pick with the boxscore line
func SaveResult(db *database.DB, pick *Pick, goals, assists, shots int, settledAt time.Time) error {
	outcome := ResultMiss
	if goals > 0 {
		outcome = ResultHit
	}
	settledAt = settledAt.UTC()

	pick.ResultGoal = outcome
	pick.ResultShot = strconv.Itoa(shots)
	pick.GoalsActual = &goals
	pick.AssistsActual = &assists
	pick.ShotsActual = &shots
	pick.SettledAt = &settledAt

	return db.Model(pick).Select("result_goal", "result_shot", "goals_actual", "assists_actual", "shots_actual", "settled_at").Updates(pick).Error
}

// ListRecentValueWins returns the latest value picks that scored
func ListRecentValueWins(db *database.DB, threshold int, since time.Time, limit int) ([]Pick, error) {
	var picks []Pick
	err := db.Where("algo_score_goal >= ?", threshold).
		Where("result_goal = ?", ResultHit).
		Where("ts >= ?", since.UTC()).
		Order("ts DESC").
		Limit(limit).
		Find(&picks).Error
	return picks, err
}

// ListSettledPicks returns picks with a HIT or MISS result since the given time
func ListSettledPicks(db *database.DB, since time.Time) ([]Pick, error) {
	var picks []Pick
	err := db.Where("result_goal IN ?", []string{ResultHit, ResultMiss}).
		Where("ts >= ?", since.UTC()).
		Order("ts ASC").
		Find(&picks).Error
	return picks, err
}
