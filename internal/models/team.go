package models

import (
	"sort"
	"time"

	"gorm.io/gorm/clause"

	"github.com/stitts-dev/nhl-cortex/pkg/database"
)

// Team stores full club information keyed by NHL abbreviation
type Team struct {
	Abbreviation string    `gorm:"primaryKey;size:3" json:"abbreviation"`
	FullName     string    `gorm:"size:100;not null" json:"full_name"`
	Conference   string    `gorm:"size:20" json:"conference"`
	Division     string    `gorm:"size:20" json:"division"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

var nhlTeams = []Team{
	{Abbreviation: "ANA", FullName: "Anaheim Ducks", Conference: "Western", Division: "Pacific"},
	{Abbreviation: "BOS", FullName: "Boston Bruins", Conference: "Eastern", Division: "Atlantic"},
	{Abbreviation: "BUF", FullName: "Buffalo Sabres", Conference: "Eastern", Division: "Atlantic"},
	{Abbreviation: "CAR", FullName: "Carolina Hurricanes", Conference: "Eastern", Division: "Metropolitan"},
	{Abbreviation: "CBJ", FullName: "Columbus Blue Jackets", Conference: "Eastern", Division: "Metropolitan"},
	{Abbreviation: "CGY", FullName: "Calgary Flames", Conference: "Western", Division: "Pacific"},
	{Abbreviation: "CHI", FullName: "Chicago Blackhawks", Conference: "Western", Division: "Central"},
	{Abbreviation: "COL", FullName: "Colorado Avalanche", Conference: "Western", Division: "Central"},
	{Abbreviation: "DAL", FullName: "Dallas Stars", Conference: "Western", Division: "Central"},
	{Abbreviation: "DET", FullName: "Detroit Red Wings", Conference: "Eastern", Division: "Atlantic"},
	{Abbreviation: "EDM", FullName: "Edmonton Oilers", Conference: "Western", Division: "Pacific"},
	{Abbreviation: "FLA", FullName: "Florida Panthers", Conference: "Eastern", Division: "Atlantic"},
	{Abbreviation: "LAK", FullName: "Los Angeles Kings", Conference: "Western", Division: "Pacific"},
	{Abbreviation: "MIN", FullName: "Minnesota Wild", Conference: "Western", Division: "Central"},
	{Abbreviation: "MTL", FullName: "Montreal Canadiens", Conference: "Eastern", Division: "Atlantic"},
	{Abbreviation: "NJD", FullName: "New Jersey Devils", Conference: "Eastern", Division: "Metropolitan"},
	{Abbreviation: "NSH", FullName: "Nashville Predators", Conference: "Western", Division: "Central"},
	{Abbreviation: "NYI", FullName: "New York Islanders", Conference: "Eastern", Division: "Metropolitan"},
	{Abbreviation: "NYR", FullName: "New York Rangers", Conference: "Eastern", Division: "Metropolitan"},
	{Abbreviation: "OTT", FullName: "Ottawa Senators", Conference: "Eastern", Division: "Atlantic"},
	{Abbreviation: "PHI", FullName: "Philadelphia Flyers", Conference: "Eastern", Division: "Metropolitan"},
	{Abbreviation: "PIT", FullName: "Pittsburgh Penguins", Conference: "Eastern", Division: "Metropolitan"},
	{Abbreviation: "SEA", FullName: "Seattle Kraken", Conference: "Western", Division: "Pacific"},
	{Abbreviation: "SJS", FullName: "San Jose Sharks", Conference: "Western", Division: "Pacific"},
	{Abbreviation: "STL", FullName: "St. Louis Blues", Conference: "Western", Division: "Central"},
	{Abbreviation: "TBL", FullName: "Tampa Bay Lightning", Conference: "Eastern", Division: "Atlantic"},
	{Abbreviation: "TOR", FullName: "Toronto Maple Leafs", Conference: "Eastern", Division: "Atlantic"},
	{Abbreviation: "UTA", FullName: "Utah Hockey Club", Conference: "Western", Division: "Central"},
	{Abbreviation: "VAN", FullName: "Vancouver Canucks", Conference: "Western", Division: "Pacific"},
	{Abbreviation: "VGK", FullName: "Vegas Golden Knights", Conference: "Western", Division: "Pacific"},
	{Abbreviation: "WPG", FullName: "Winnipeg Jets", Conference: "Western", Division: "Central"},
	{Abbreviation: "WSH", FullName: "Washington Capitals", Conference: "Eastern", Division: "Metropolitan"},
}

var teamNames = func() map[string]string {
	m := make(map[string]string, len(nhlTeams))
	for _, t := range nhlTeams {
		m[t.Abbreviation] = t.FullName
	}
	return m
}()

// TeamFullName returns the club name for an abbreviation, or the
// abbreviation itself when it is unknown
func TeamFullName(abbrev string) string {
	if name, ok := teamNames[abbrev]; ok {
		return name
	}
	return abbrev
}

// IsKnownTeam reports whether abbrev is a current NHL club
func IsKnownTeam(abbrev string) bool {
	_, ok := teamNames[abbrev]
	return ok
}

// NHLTeams returns a copy of the static club list sorted by abbreviation
func NHLTeams() []Team {
	out := make([]Team, len(nhlTeams))
	copy(out, nhlTeams)
	sort.Slice(out, func(i, j int) bool { return out[i].Abbreviation < out[j].Abbreviation })
	return out
}

// SeedTeams upserts the static club list
func SeedTeams(db *database.DB) error {
	teams := NHLTeams()
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "abbreviation"}},
		DoUpdates: clause.AssignmentColumns([]string{"full_name", "conference", "division", "updated_at"}),
	}).Create(&teams).Error
}
