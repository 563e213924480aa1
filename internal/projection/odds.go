package projection

// comparison selects how a tier threshold is tested against a rate
type comparison int

const (
	above comparison = iota // rate > threshold
	below                   // rate < threshold
)

type tier struct {
	cmp       comparison
	threshold float64
	value     float64
}

// tierTable is an ordered list of tiers checked top to bottom; the first
// satisfied tier wins, otherwise base applies. Comparisons are strict.
type tierTable struct {
	base  float64
	tiers []tier
}

func (t tierTable) lookup(rate float64) float64 {
	for _, tr := range t.tiers {
		if tr.matches(rate) {
			return tr.value
		}
	}
	return t.base
}

func (tr tier) matches(rate float64) bool {
	return satisfies(tr.cmp, tr.threshold, rate)
}

func satisfies(cmp comparison, threshold, rate float64) bool {
	if cmp == below {
		return rate < threshold
	}
	return rate > threshold
}

var (
	goalOdds = tierTable{
		base: 3.50,
		tiers: []tier{
			{above, 0.60, 1.95},
			{above, 0.45, 2.30},
			{above, 0.30, 2.90},
			{below, 0.10, 6.50},
		},
	}

	assistOdds = tierTable{
		base: 2.40,
		tiers: []tier{
			{above, 0.70, 1.55},
			{above, 0.50, 1.85},
			{below, 0.20, 3.20},
		},
	}

	pointOdds = tierTable{
		base: 1.65,
		tiers: []tier{
			{above, 1.30, 1.22},
			{above, 1.00, 1.38},
			{above, 0.70, 1.62},
			{below, 0.40, 2.10},
		},
	}
)

type shotMarket struct {
	line float64
	odds float64
}

type shotTier struct {
	cmp       comparison
	threshold float64
	market    shotMarket
}

var (
	defaultShotMarket = shotMarket{line: 2.5, odds: 1.75}

	shotTiers = []shotTier{
		{above, 3.8, shotMarket{line: 3.5, odds: 1.68}},
		{above, 2.8, shotMarket{line: 2.5, odds: 1.60}},
		{below, 1.8, shotMarket{line: 1.5, odds: 1.55}},
	}
)

func lookupShotMarket(shotsPerGame float64) shotMarket {
	for _, st := range shotTiers {
		if satisfies(st.cmp, st.threshold, shotsPerGame) {
			return st.market
		}
	}
	return defaultShotMarket
}

const (
	defenseGoalOddsMultiplier = 1.4
	awayGoalOddsPenalty       = 0.10
	awayPointOddsPenalty      = 0.05
)

// EstimateOdds derives realistic decimal odds from per-game season rates.
// Defensemen get longer goal odds and away games lengthen goal and point odds.
func EstimateOdds(stats PlayerSeasonStats, isHome bool) OddsResult {
	return estimateOdds(perGameRates(stats), stats.Position, isHome)
}

func estimateOdds(r rates, position Position, isHome bool) OddsResult {
	goal := goalOdds.lookup(r.goals)
	if position == PositionDefense {
		goal *= defenseGoalOddsMultiplier
	}
	assist := assistOdds.lookup(r.assists)
	point := pointOdds.lookup(r.points)
	shots := lookupShotMarket(r.shots)

	if !isHome {
		goal += awayGoalOddsPenalty
		point += awayPointOddsPenalty
	}

	return OddsResult{
		Goal:     round2(goal),
		Assist:   round2(assist),
		Point:    round2(point),
		ShotLine: shots.line,
		ShotOdds: round2(shots.odds),
	}
}
