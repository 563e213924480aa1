package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/nhl-cortex/internal/models"
	"github.com/stitts-dev/nhl-cortex/pkg/database"
	"github.com/stitts-dev/nhl-cortex/pkg/utils"
)

const topPlayersPerList = 5

// Match context labels, from the average goal probability of the match
const (
	ContextOffensive = "offensive"
	ContextClosed    = "closed"
	ContextBalanced  = "balanced"
)

// Viewer is who is looking at the picks
type Viewer struct {
	UserID  string
	Premium bool
}

type DashboardConfig struct {
	WindowHours            int
	FreeMatchLimit         int
	FreePlayersPerMatch    int
	PremiumPlayersPerMatch int
	CacheTTL               time.Duration
}

func DefaultDashboardConfig() DashboardConfig {
	return DashboardConfig{
		WindowHours:            24,
		FreeMatchLimit:         2,
		FreePlayersPerMatch:    3,
		PremiumPlayersPerMatch: topPlayersPerList,
		CacheTTL:               5 * time.Minute,
	}
}

// PlayerCard is one pick as shown on the dashboard
type PlayerCard struct {
	PlayerID      string  `json:"player_id"`
	PlayerName    string  `json:"player_name"`
	Position      string  `json:"position"`
	Team          string  `json:"team"`
	Opp           string  `json:"opp"`
	IsHome        bool    `json:"is_home"`
	AlgoScoreGoal int     `json:"algo_score_goal"`
	AlgoScoreShot int     `json:"algo_score_shot"`
	PythonProb    float64 `json:"python_prob"`
	PythonVol     float64 `json:"python_vol"`
	CortexScore   float64 `json:"cortex_score"`
	SuccessProb   float64 `json:"success_probability"`
	GoalOdds      float64 `json:"goal_odds"`
	ShotLine      float64 `json:"shot_line"`
	ShotOdds      float64 `json:"shot_odds"`
	Outcome       string  `json:"outcome"`
	IsValuePick   bool    `json:"is_value_pick"`
	Locked        bool    `json:"locked,omitempty"`
}

func newPlayerCard(p *models.Pick, valueThreshold int) PlayerCard {
	odds := p.RealOdds.Data()
	card := PlayerCard{
		PlayerID:    p.PlayerID,
		PlayerName:  p.PlayerName,
		Position:    p.Position,
		Team:        p.Team,
		Opp:         p.Opp,
		IsHome:      p.IsHome,
		CortexScore: p.CortexScore(),
		SuccessProb: p.SuccessProbability(),
		GoalOdds:    odds.Goal,
		ShotLine:    odds.ShotLine,
		ShotOdds:    odds.ShotOdds,
		Outcome:     p.Outcome(),
		IsValuePick: p.IsValuePick(valueThreshold),
	}
	if p.AlgoScoreGoal != nil {
		card.AlgoScoreGoal = *p.AlgoScoreGoal
	}
	if p.AlgoScoreShot != nil {
		card.AlgoScoreShot = *p.AlgoScoreShot
	}
	if p.PythonProb != nil {
		card.PythonProb = *p.PythonProb
	}
	if p.PythonVol != nil {
		card.PythonVol = *p.PythonVol
	}
	return card
}

// redacted hides every model output, keeping who plays whom
func (c PlayerCard) redacted() PlayerCard {
	return PlayerCard{
		PlayerID:   c.PlayerID,
		PlayerName: c.PlayerName,
		Position:   c.Position,
		Team:       c.Team,
		Opp:        c.Opp,
		IsHome:     c.IsHome,
		Outcome:    c.Outcome,
		Locked:     true,
	}
}

type Match struct {
	Key           string       `json:"key"`
	Date          string       `json:"date"`
	Time          *time.Time   `json:"time,omitempty"`
	HomeTeam      string       `json:"home_team"`
	AwayTeam      string       `json:"away_team"`
	HomeTeamName  string       `json:"home_team_name"`
	AwayTeamName  string       `json:"away_team_name"`
	Context       string       `json:"context"`
	AvgProb       float64      `json:"avg_prob"`
	TotalPlayers  int          `json:"total_players"`
	TopScorers    []PlayerCard `json:"top_scorers"`
	TopPlaymakers []PlayerCard `json:"top_playmakers"`
}

type TeamOption struct {
	Abbreviation string `json:"abbreviation"`
	FullName     string `json:"full_name"`
}

type Dashboard struct {
	Matches       []Match      `json:"matches"`
	Teams         []TeamOption `json:"teams"`
	SelectedTeam  string       `json:"selected_team,omitempty"`
	IsPremium     bool         `json:"is_premium"`
	LockedMatches int          `json:"locked_matches"`
	GeneratedAt   time.Time    `json:"generated_at"`
}

// DashboardService builds the match board and player pages from the data lake
type DashboardService struct {
	db             *database.DB
	cache          Cache
	cfg            DashboardConfig
	valueThreshold int
	logger         *logrus.Logger
	now            func() time.Time
}

func NewDashboardService(db *database.DB, cache Cache, cfg DashboardConfig, valueThreshold int, logger *logrus.Logger) *DashboardService {
	if cfg.WindowHours <= 0 {
		cfg.WindowHours = DefaultDashboardConfig().WindowHours
	}
	return &DashboardService{
		db:             db,
		cache:          cache,
		cfg:            cfg,
		valueThreshold: valueThreshold,
		logger:         logger,
		now:            time.Now,
	}
}

// NormalizeTeamFilter upper-cases a team filter and rejects unknown clubs
func NormalizeTeamFilter(team string) (string, error) {
	team = strings.ToUpper(strings.TrimSpace(team))
	if team != "" && !models.IsKnownTeam(team) {
		return "", fmt.Errorf("unknown team %q: %w", team, utils.ErrInvalidInput)
	}
	return team, nil
}

// Build returns the games within the dashboard window, gated for the viewer
func (s *DashboardService) Build(ctx context.Context, team string, viewer Viewer) (*Dashboard, error) {
	team, err := NormalizeTeamFilter(team)
	if err != nil {
		return nil, err
	}

	key := DashboardCacheKey(team, viewer.Premium)
	if s.cache != nil {
		var cached Dashboard
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	now := s.now().UTC()
	window := time.Duration(s.cfg.WindowHours) * time.Hour
	picks, err := models.ListPicksInWindow(s.db, now.Add(-window), now.Add(window), team)
	if err != nil {
		return nil, fmt.Errorf("list picks: %w", err)
	}

	teams, err := s.Teams(ctx)
	if err != nil {
		return nil, err
	}

	matches := s.groupMatches(picks)
	dash := &Dashboard{
		Matches:      matches,
		Teams:        teams,
		SelectedTeam: team,
		IsPremium:    viewer.Premium,
		GeneratedAt:  now,
	}
	s.applyFreemium(dash)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, dash, s.cfg.CacheTTL); err != nil {
			s.logger.Debugf("Failed to cache dashboard: %v", err)
		}
	}
	return dash, nil
}

// groupMatches buckets picks by game. Both sides of a game share a key made
// from the sorted team pair and the date.
func (s *DashboardService) groupMatches(picks []models.Pick) []Match {
	type bucket struct {
		match Match
		picks []*models.Pick
	}

	buckets := make(map[string]*bucket)
	var order []string
	for i := range picks {
		p := &picks[i]
		pair := []string{p.Team, p.Opp}
		sort.Strings(pair)
		key := fmt.Sprintf("%s_vs_%s_%s", pair[0], pair[1], p.Date)

		b, ok := buckets[key]
		if !ok {
			home, away := p.Team, p.Opp
			if !p.IsHome {
				home, away = p.Opp, p.Team
			}
			b = &bucket{match: Match{
				Key:          key,
				Date:         p.Date,
				Time:         p.Ts,
				HomeTeam:     home,
				AwayTeam:     away,
				HomeTeamName: models.TeamFullName(home),
				AwayTeamName: models.TeamFullName(away),
			}}
			buckets[key] = b
			order = append(order, key)
		}
		b.picks = append(b.picks, p)
	}

	matches := make([]Match, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		m := b.match
		m.TotalPlayers = len(b.picks)

		var sum float64
		for _, p := range b.picks {
			if p.PythonProb != nil {
				sum += *p.PythonProb
			}
		}
		m.AvgProb = sum / float64(len(b.picks))
		m.Context = matchContext(m.AvgProb)

		m.TopScorers = s.topCards(b.picks, func(p *models.Pick) float64 {
			if p.PythonProb == nil {
				return 0
			}
			return *p.PythonProb
		})
		m.TopPlaymakers = s.topCards(b.picks, func(p *models.Pick) float64 {
			if p.AlgoScoreShot == nil {
				return 0
			}
			return float64(*p.AlgoScoreShot)
		})
		matches = append(matches, m)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matchTime(matches[i]).After(matchTime(matches[j]))
	})
	return matches
}

func (s *DashboardService) topCards(picks []*models.Pick, score func(*models.Pick) float64) []PlayerCard {
	sorted := make([]*models.Pick, len(picks))
	copy(sorted, picks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return score(sorted[i]) > score(sorted[j])
	})
	if len(sorted) > topPlayersPerList {
		sorted = sorted[:topPlayersPerList]
	}

	cards := make([]PlayerCard, len(sorted))
	for i, p := range sorted {
		cards[i] = newPlayerCard(p, s.valueThreshold)
	}
	return cards
}

func matchTime(m Match) time.Time {
	if m.Time == nil {
		return time.Time{}
	}
	return *m.Time
}

func matchContext(avgProb float64) string {
	switch {
	case avgProb > 50:
		return ContextOffensive
	case avgProb < 30:
		return ContextClosed
	default:
		return ContextBalanced
	}
}

// applyFreemium trims the board for viewers without a subscription
func (s *DashboardService) applyFreemium(d *Dashboard) {
	perMatch := s.cfg.PremiumPlayersPerMatch
	if !d.IsPremium {
		if s.cfg.FreeMatchLimit >= 0 && len(d.Matches) > s.cfg.FreeMatchLimit {
			d.LockedMatches = len(d.Matches) - s.cfg.FreeMatchLimit
			d.Matches = d.Matches[:s.cfg.FreeMatchLimit]
		}
		perMatch = s.cfg.FreePlayersPerMatch
	}
	if perMatch <= 0 {
		return
	}
	for i := range d.Matches {
		d.Matches[i].TopScorers = limitCards(d.Matches[i].TopScorers, perMatch)
		d.Matches[i].TopPlaymakers = limitCards(d.Matches[i].TopPlaymakers, perMatch)
	}
}

func limitCards(cards []PlayerCard, n int) []PlayerCard {
	if len(cards) > n {
		return cards[:n]
	}
	return cards
}

// Teams lists every team with at least one pick
func (s *DashboardService) Teams(ctx context.Context) ([]TeamOption, error) {
	abbrevs, err := models.ListDistinctTeams(s.db)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	out := make([]TeamOption, len(abbrevs))
	for i, a := range abbrevs {
		out[i] = TeamOption{Abbreviation: a, FullName: models.TeamFullName(a)}
	}
	return out, nil
}

// Risk levels from the expected shot volume
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

type PlayerInsight struct {
	Player       PlayerCard `json:"player"`
	Date         string     `json:"date"`
	Time         *time.Time `json:"time,omitempty"`
	TeamName     string     `json:"team_name"`
	OppName      string     `json:"opp_name"`
	RiskLevel    string     `json:"risk_level,omitempty"`
	RiskColor    string     `json:"risk_color,omitempty"`
	Verdict      string     `json:"verdict,omitempty"`
	VerdictColor string     `json:"verdict_color,omitempty"`
	ContextText  string     `json:"context_text"`
	Locked       bool       `json:"locked"`
}

// BuildPlayerInsight derives risk, verdict and context for a pick
func BuildPlayerInsight(p *models.Pick, valueThreshold int) PlayerInsight {
	card := newPlayerCard(p, valueThreshold)
	insight := PlayerInsight{
		Player:       card,
		Date:         p.Date,
		Time:         p.Ts,
		TeamName:     p.TeamFullName(),
		OppName:      p.OppFullName(),
		RiskLevel:    RiskLow,
		RiskColor:    "green",
		Verdict:      "Standard value",
		VerdictColor: "blue",
	}

	switch {
	case card.PythonVol > 8.0:
		insight.RiskLevel, insight.RiskColor = RiskHigh, "red"
	case card.PythonVol > 5.0:
		insight.RiskLevel, insight.RiskColor = RiskMedium, "orange"
	}

	cortex := card.CortexScore
	switch {
	case cortex > 130:
		insight.Verdict, insight.VerdictColor = "Maximum value", "red"
	case cortex > 110:
		insight.Verdict, insight.VerdictColor = "Excellent value", "yellow"
	case cortex > 90:
		insight.Verdict, insight.VerdictColor = "Good value", "green"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s faces %s. ", p.PlayerName, p.Opp)
	if p.IsHome {
		b.WriteString("Home game (advantage).")
	} else {
		b.WriteString("Road game.")
	}
	if cortex > 120 {
		fmt.Fprintf(&b, " A cortex score of %.1f points to a market that undervalues the player.", cortex)
	}
	insight.ContextText = b.String()
	return insight
}

// Redacted returns the insight with every model output hidden
func (i PlayerInsight) Redacted() PlayerInsight {
	return PlayerInsight{
		Player:      i.Player.redacted(),
		Date:        i.Date,
		Time:        i.Time,
		TeamName:    i.TeamName,
		OppName:     i.OppName,
		ContextText: fmt.Sprintf("%s faces %s.", i.Player.PlayerName, i.Player.Opp),
		Locked:      true,
	}
}

// PlayerDetail returns the latest pick for a player with its insight
func (s *DashboardService) PlayerDetail(ctx context.Context, playerID string, viewer Viewer) (*PlayerInsight, error) {
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return nil, fmt.Errorf("player id is required: %w", utils.ErrInvalidInput)
	}

	var insight PlayerInsight
	key := PlayerCacheKey(playerID)
	cached := false
	if s.cache != nil {
		cached = s.cache.Get(ctx, key, &insight) == nil
	}

	if !cached {
		pick, err := models.GetLatestPickForPlayer(s.db, playerID)
		if err != nil {
			if errors.Is(err, utils.ErrNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("load pick: %w", err)
		}
		insight = BuildPlayerInsight(pick, s.valueThreshold)
		if s.cache != nil {
			if err := s.cache.Set(ctx, key, insight, s.cfg.CacheTTL); err != nil {
				s.logger.Debugf("Failed to cache player %s: %v", playerID, err)
			}
		}
	}

	if !viewer.Premium {
		locked := insight.Redacted()
		return &locked, nil
	}
	return &insight, nil
}
