// Package nhl holds the response shapes of the NHL web API and the
// conversions the ingestion jobs need from them.
package nhl

import (
	"strconv"
	"strings"
	"time"
)

// LocalizedName is the {"default": "..."} wrapper the API uses for names
type LocalizedName struct {
	Default string `json:"default"`
}

// ScheduleResponse is returned by schedule/now and schedule/{date}
type ScheduleResponse struct {
	NextStartDate     string    `json:"nextStartDate"`
	PreviousStartDate string    `json:"previousStartDate"`
	GameWeek          []GameDay `json:"gameWeek"`
}

type GameDay struct {
	Date  string `json:"date"`
	Games []Game `json:"games"`
}

type Game struct {
	ID           int64     `json:"id"`
	StartTimeUTC time.Time `json:"startTimeUTC"`
	GameState    string    `json:"gameState"`
	HomeTeam     GameTeam  `json:"homeTeam"`
	AwayTeam     GameTeam  `json:"awayTeam"`
}

type GameTeam struct {
	Abbrev string `json:"abbrev"`
	Score  *int   `json:"score,omitempty"`
}

// IsFinal reports whether the game is over and its boxscore settled
func (g Game) IsFinal() bool {
	return g.GameState == "OFF" || g.GameState == "FINAL"
}

// Day returns the game day matching date, or the first day of the week
// when there is no exact match. ok is false when the week is empty.
func (s ScheduleResponse) Day(date string) (day GameDay, ok bool) {
	for _, d := range s.GameWeek {
		if d.Date == date {
			return d, true
		}
	}
	if len(s.GameWeek) > 0 {
		return s.GameWeek[0], true
	}
	return GameDay{}, false
}

// TeamsPlayingOn returns the abbreviations of every team with a game on date
func (s ScheduleResponse) TeamsPlayingOn(date string) map[string]bool {
	teams := make(map[string]bool)
	for _, d := range s.GameWeek {
		if d.Date != date {
			continue
		}
		for _, g := range d.Games {
			teams[g.HomeTeam.Abbrev] = true
			teams[g.AwayTeam.Abbrev] = true
		}
	}
	return teams
}

// StandingsResponse is returned by standings/now
type StandingsResponse struct {
	Standings []TeamStanding `json:"standings"`
}

// TeamStanding carries the team context fields. Percentages are optional
// and fall back to league-average defaults when absent.
type TeamStanding struct {
	TeamAbbrev      LocalizedName `json:"teamAbbrev"`
	GamesPlayed     int           `json:"gamesPlayed"`
	GoalAgainst     int           `json:"goalAgainst"`
	PowerPlayPctg   *float64      `json:"powerPlayPctg,omitempty"`
	PenaltyKillPctg *float64      `json:"penaltyKillPctg,omitempty"`
	L10PtsPctg      *float64      `json:"l10PtsPctg,omitempty"`
}

// ClubStatsResponse is returned by club-stats/{team}/now
type ClubStatsResponse struct {
	Skaters []SkaterStats `json:"skaters"`
}

type SkaterStats struct {
	PlayerID     int64         `json:"playerId"`
	FirstName    LocalizedName `json:"firstName"`
	LastName     LocalizedName `json:"lastName"`
	PositionCode string        `json:"positionCode"`
	GamesPlayed  int           `json:"gamesPlayed"`
	Goals        int           `json:"goals"`
	Assists      int           `json:"assists"`
	Points       int           `json:"points"`
	Shots        int           `json:"shots"`
}

func (s SkaterStats) FullName() string {
	return strings.TrimSpace(s.FirstName.Default + " " + s.LastName.Default)
}

func (s SkaterStats) ID() string {
	return strconv.FormatInt(s.PlayerID, 10)
}

// RosterResponse is returned by roster/{team}/current
type RosterResponse struct {
	Forwards   []RosterPlayer `json:"forwards"`
	Defensemen []RosterPlayer `json:"defensemen"`
	Goalies    []RosterPlayer `json:"goalies"`
}

type RosterPlayer struct {
	ID           int64         `json:"id"`
	FirstName    LocalizedName `json:"firstName"`
	LastName     LocalizedName `json:"lastName"`
	PositionCode string        `json:"positionCode"`
	Status       string        `json:"status,omitempty"`
	Injured      bool          `json:"injured,omitempty"`
	RosterStatus string        `json:"rosterStatus,omitempty"`
}

var injuredRosterStatuses = map[string]bool{
	"IR":    true,
	"LTIR":  true,
	"IR-NR": true,
}

// IsInjured checks the status text, the injured flag and the roster status
func (p RosterPlayer) IsInjured() bool {
	status := strings.ToUpper(p.Status)
	if strings.Contains(status, "IR") || strings.Contains(status, "OUT") || strings.Contains(status, "INJURED") {
		return true
	}
	if p.Injured {
		return true
	}
	return injuredRosterStatuses[strings.ToUpper(p.RosterStatus)]
}

// InjuredIDs returns the ids of injured players across all position groups
func (r RosterResponse) InjuredIDs() []string {
	var ids []string
	for _, group := range [][]RosterPlayer{r.Forwards, r.Defensemen, r.Goalies} {
		for _, p := range group {
			if p.IsInjured() {
				ids = append(ids, strconv.FormatInt(p.ID, 10))
			}
		}
	}
	return ids
}

// BoxscoreResponse is returned by gamecenter/{id}/boxscore. Skater lines
// are read from playerByGameStats, or from the team objects on older payloads.
type BoxscoreResponse struct {
	ID                int64             `json:"id"`
	GameState         string            `json:"gameState"`
	HomeTeam          BoxscoreTeam      `json:"homeTeam"`
	AwayTeam          BoxscoreTeam      `json:"awayTeam"`
	PlayerByGameStats *PlayerByGameStat `json:"playerByGameStats,omitempty"`
}

type PlayerByGameStat struct {
	HomeTeam BoxscoreTeam `json:"homeTeam"`
	AwayTeam BoxscoreTeam `json:"awayTeam"`
}

type BoxscoreTeam struct {
	Abbrev   string           `json:"abbrev,omitempty"`
	Forwards []BoxscoreSkater `json:"forwards,omitempty"`
	Defense  []BoxscoreSkater `json:"defense,omitempty"`
}

type BoxscoreSkater struct {
	PlayerID int64         `json:"playerId"`
	Name     LocalizedName `json:"name"`
	Position string        `json:"position"`
	Goals    int           `json:"goals"`
	Assists  int           `json:"assists"`
	Shots    *int          `json:"shots,omitempty"`
	SOG      *int          `json:"sog,omitempty"`
}

func (s BoxscoreSkater) ID() string {
	return strconv.FormatInt(s.PlayerID, 10)
}

// ShotsOnGoal reads either the shots or the sog field
func (s BoxscoreSkater) ShotsOnGoal() int {
	if s.Shots != nil {
		return *s.Shots
	}
	if s.SOG != nil {
		return *s.SOG
	}
	return 0
}

// Skaters returns every forward and defenseman line for both teams
func (b BoxscoreResponse) Skaters() []BoxscoreSkater {
	home, away := b.HomeTeam, b.AwayTeam
	if b.PlayerByGameStats != nil {
		home, away = b.PlayerByGameStats.HomeTeam, b.PlayerByGameStats.AwayTeam
	}

	var out []BoxscoreSkater
	for _, team := range []BoxscoreTeam{home, away} {
		out = append(out, team.Forwards...)
		out = append(out, team.Defense...)
	}
	return out
}

// CacheProvider interface for cache operations
type CacheProvider interface {
	SetSimple(key string, value interface{}, expiration time.Duration) error
	GetSimple(key string, dest interface{}) error
}
