package game

import (
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// EventType represents different types of match events
type EventType string

const (
	EventTypeMatchCreated   EventType = "match_created"
	EventTypeTurnSubmitted  EventType = "turn_submitted"
	EventTypeTurnChanged    EventType = "turn_changed"
	EventTypeMatchCompleted EventType = "match_completed"
	EventTypeHintUsed       EventType = "hint_used"
)

// MatchStatus represents the lifecycle state of a match
type MatchStatus string

const (
	MatchStatusActive    MatchStatus = "active"
	MatchStatusCompleted MatchStatus = "completed"
)

const (
	DefaultLetterPoints  = 10
	DefaultWordBonus     = 20
	DefaultHintAllowance = 3
	DefaultRackSize      = 7
)

// Pair is two players who play matches against each other
type Pair struct {
	ID        string    `json:"id" db:"id"`
	PlayerA   string    `json:"player_a" db:"player_a"`
	PlayerB   string    `json:"player_b" db:"player_b"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Players returns both members in seat order.
func (p *Pair) Players() []string {
	return []string{p.PlayerA, p.PlayerB}
}

// Has reports whether playerID belongs to the pair.
func (p *Pair) Has(playerID string) bool {
	return playerID != "" && (p.PlayerA == playerID || p.PlayerB == playerID)
}

// Match is the authoritative record of one game between a pair.
type Match struct {
	ID                string         `json:"id"`
	PairID            string         `json:"pair_id"`
	PuzzleID          string         `json:"puzzle_id"`
	Players           []string       `json:"players"`
	Board             map[int]string `json:"board_state"`
	Rack              []string       `json:"current_rack"`
	StartedBy         string         `json:"started_by"`
	CurrentTurnUserID string         `json:"current_turn_user_id"`
	TurnNumber        int            `json:"turn_number"`
	Scores            map[string]int `json:"scores"`
	Vision            map[string]int `json:"vision"`
	Status            MatchStatus    `json:"status"`
	WinnerID          string         `json:"winner_id,omitempty"`
	Version           int            `json:"version"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	CompletedAt       *time.Time     `json:"completed_at,omitempty"`
}

// Placement is one letter put on one cell
type Placement struct {
	CellIndex int    `json:"cell_index"`
	Letter    string `json:"letter"`
}

// CellResult reports what happened to a single placement
type CellResult struct {
	CellIndex int    `json:"cell_index"`
	Letter    string `json:"letter"`
	Correct   bool   `json:"correct"`
}

// CompletedWord is a clue word whose last cell was locked by a submission
type CompletedWord struct {
	ClueIndex int    `json:"clue_index"`
	Direction string `json:"direction"`
	Word      string `json:"word"`
	Cells     []int  `json:"cells"`
	Bonus     int    `json:"bonus"`
}

// TurnSubmissionResult is the outcome of an accepted submission. It carries
// everything needed to fold the submission into any copy of the match.
type TurnSubmissionResult struct {
	MatchID        string          `json:"match_id"`
	SubmitterID    string          `json:"submitter_id"`
	Cells          []CellResult    `json:"cells"`
	LetterPoints   int             `json:"letter_points"`
	WordBonus      int             `json:"word_bonus"`
	NewScore       int             `json:"new_score"`
	Scores         map[string]int  `json:"scores"`
	CompletedWords []CompletedWord `json:"completed_words"`
	GameComplete   bool            `json:"game_complete"`
	WinnerID       string          `json:"winner_id,omitempty"`
	NextTurnUserID string          `json:"next_turn_user_id"`
	TurnNumber     int             `json:"turn_number"`
	Version        int             `json:"version"`
	UpdatedAt      time.Time       `json:"updated_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
}

// HintResult is the outcome of one hint request
type HintResult struct {
	MatchID        string    `json:"match_id"`
	PlayerID       string    `json:"player_id"`
	ValidCells     []int     `json:"valid_cells"`
	HintsRemaining int       `json:"hints_remaining"`
	Version        int       `json:"version"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// MatchEvent is published on the service's event bus
type MatchEvent struct {
	Type      EventType      `json:"type"`
	MatchID   string         `json:"match_id"`
	PlayerID  *string        `json:"player_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload"`
}

// Scoring holds the point values of a match
type Scoring struct {
	LetterPoints int `json:"letter_points"`
	WordBonus    int `json:"word_bonus"`
}

func DefaultScoring() Scoring {
	return Scoring{LetterPoints: DefaultLetterPoints, WordBonus: DefaultWordBonus}
}

// IsActive reports whether the match still accepts turns.
func (m *Match) IsActive() bool {
	return m.Status == MatchStatusActive
}

// Opponent returns the other player, or "" if playerID is not seated.
func (m *Match) Opponent(playerID string) string {
	if len(m.Players) != 2 {
		return ""
	}
	switch playerID {
	case m.Players[0]:
		return m.Players[1]
	case m.Players[1]:
		return m.Players[0]
	}
	return ""
}

// HasPlayer reports whether playerID is seated in the match.
func (m *Match) HasPlayer(playerID string) bool {
	return playerID != "" && slices.Contains(m.Players, playerID)
}

// LockedCells returns the locked cell indices in ascending order.
func (m *Match) LockedCells() []int {
	cells := maps.Keys(m.Board)
	slices.Sort(cells)
	return cells
}

// Clone returns a deep copy of the match.
func (m *Match) Clone() *Match {
	c := *m
	c.Players = slices.Clone(m.Players)
	c.Rack = slices.Clone(m.Rack)
	c.Board = maps.Clone(m.Board)
	c.Scores = maps.Clone(m.Scores)
	c.Vision = maps.Clone(m.Vision)
	if m.CompletedAt != nil {
		t := *m.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// ViewFor returns the copy of the match that playerID is allowed to see:
// the rack is only visible to the turn holder of an active match.
func (m *Match) ViewFor(playerID string) *Match {
	v := m.Clone()
	if !m.IsActive() || m.CurrentTurnUserID != playerID {
		v.Rack = []string{}
	}
	return v
}

// ApplyTurn folds an accepted submission into the match. The server applies
// it right after Evaluate and clients apply it to their local view, so both
// copies end up identical.
func (m *Match) ApplyTurn(r *TurnSubmissionResult) {
	if m.Board == nil {
		m.Board = make(map[int]string)
	}
	for _, cell := range r.Cells {
		if !cell.Correct {
			continue
		}
		if _, locked := m.Board[cell.CellIndex]; !locked {
			m.Board[cell.CellIndex] = cell.Letter
		}
	}
	m.Scores = maps.Clone(r.Scores)
	m.TurnNumber = r.TurnNumber
	m.CurrentTurnUserID = r.NextTurnUserID
	m.Rack = []string{}
	m.Version = r.Version
	m.UpdatedAt = r.UpdatedAt
	if r.GameComplete {
		m.Status = MatchStatusCompleted
		m.WinnerID = r.WinnerID
		if r.CompletedAt != nil {
			t := *r.CompletedAt
			m.CompletedAt = &t
		}
	}
}

// ApplyHint folds a hint outcome into the match.
func (m *Match) ApplyHint(r *HintResult) {
	if m.Vision == nil {
		m.Vision = make(map[string]int)
	}
	m.Vision[r.PlayerID] = r.HintsRemaining
	m.Version = r.Version
	m.UpdatedAt = r.UpdatedAt
}
