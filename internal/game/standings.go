package game

// Rank is a badge earned by cumulative points across a pair's matches
type Rank struct {
	Color     string `json:"color"`
	MinPoints int    `json:"min_points"`
}

// Ranks in ascending order
var Ranks = []Rank{
	{Color: "Gray", MinPoints: 0},
	{Color: "Violet", MinPoints: 300},
	{Color: "Indigo", MinPoints: 600},
	{Color: "Blue", MinPoints: 1000},
	{Color: "Green", MinPoints: 1500},
	{Color: "Yellow", MinPoints: 2200},
	{Color: "Orange", MinPoints: 3000},
	{Color: "Red", MinPoints: 4000},
}

// Standings is the head-to-head record of a pair over its completed matches
type Standings struct {
	PairID string          `json:"pair_id"`
	Played int             `json:"played"`
	Draws  int             `json:"draws"`
	Wins   map[string]int  `json:"wins"`
	Points map[string]int  `json:"points"`
	Ranks  map[string]Rank `json:"ranks"`
}

// GetRankByPoints returns the highest rank whose threshold points reaches.
func GetRankByPoints(points int) Rank {
	rank := Ranks[0]
	for _, r := range Ranks {
		if points >= r.MinPoints {
			rank = r
		}
	}
	return rank
}

// Tally folds completed matches into standings. Active matches are ignored.
func Tally(pair *Pair, matches []*Match) *Standings {
	s := &Standings{
		PairID: pair.ID,
		Wins:   make(map[string]int),
		Points: make(map[string]int),
		Ranks:  make(map[string]Rank),
	}
	for _, player := range pair.Players() {
		s.Wins[player] = 0
		s.Points[player] = 0
	}

	for _, m := range matches {
		if m.IsActive() {
			continue
		}
		s.Played++
		if m.WinnerID == "" {
			s.Draws++
		} else {
			s.Wins[m.WinnerID]++
		}
		for player, score := range m.Scores {
			if pair.Has(player) {
				s.Points[player] += score
			}
		}
	}

	for player, points := range s.Points {
		s.Ranks[player] = GetRankByPoints(points)
	}
	return s
}
