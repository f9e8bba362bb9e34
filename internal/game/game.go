package game

import (
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"linked-go/internal/puzzle"
)

// NewMatch builds the opening state of a match. The rack is left empty;
// the caller deals it once the match exists.
func NewMatch(id string, pair *Pair, puzzleID, firstTurn string, hintAllowance int, now time.Time) *Match {
	m := &Match{
		ID:                id,
		PairID:            pair.ID,
		PuzzleID:          puzzleID,
		Players:           pair.Players(),
		Board:             make(map[int]string),
		Rack:              []string{},
		StartedBy:         firstTurn,
		CurrentTurnUserID: firstTurn,
		Scores:            make(map[string]int),
		Vision:            make(map[string]int),
		Status:            MatchStatusActive,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	for _, player := range m.Players {
		m.Scores[player] = 0
		m.Vision[player] = hintAllowance
	}
	return m
}

// Evaluate validates a submission against the match and puzzle without
// mutating either. Placements that are wrong, off the answer grid or on an
// already locked cell are reported incorrect and cost nothing.
func Evaluate(m *Match, p *puzzle.Puzzle, submitterID string, placements []Placement, scoring Scoring, now time.Time) (*TurnSubmissionResult, error) {
	if !m.IsActive() || submitterID == "" || m.CurrentTurnUserID != submitterID {
		return nil, ErrTurnConflict
	}
	if p.ID() != m.PuzzleID {
		return nil, ErrPuzzleMismatch
	}

	board := maps.Clone(m.Board)
	if board == nil {
		board = make(map[int]string)
	}

	result := &TurnSubmissionResult{
		MatchID:        m.ID,
		SubmitterID:    submitterID,
		Cells:          make([]CellResult, 0, len(placements)),
		CompletedWords: []CompletedWord{},
	}

	for _, pl := range placements {
		letter := puzzle.NormalizeLetter(pl.Letter)
		cell := CellResult{CellIndex: pl.CellIndex, Letter: letter}
		if letter == "" {
			cell.Letter = pl.Letter
		}
		answer, err := p.AnswerLetter(pl.CellIndex)
		if _, locked := board[pl.CellIndex]; err == nil && !locked && letter == answer {
			board[pl.CellIndex] = letter
			cell.Correct = true
			result.LetterPoints += scoring.LetterPoints
		}
		result.Cells = append(result.Cells, cell)
	}

	for _, word := range p.Words() {
		if filled(m.Board, word.Cells) || !filled(board, word.Cells) {
			continue
		}
		result.CompletedWords = append(result.CompletedWords, CompletedWord{
			ClueIndex: word.CellIndex,
			Direction: string(word.Direction),
			Word:      word.Answer(p),
			Cells:     slices.Clone(word.Cells),
			Bonus:     scoring.WordBonus,
		})
		result.WordBonus += scoring.WordBonus
	}

	result.Scores = maps.Clone(m.Scores)
	if result.Scores == nil {
		result.Scores = make(map[string]int)
	}
	result.Scores[submitterID] += result.LetterPoints + result.WordBonus
	result.NewScore = result.Scores[submitterID]

	result.TurnNumber = m.TurnNumber + 1
	result.Version = m.Version + 1
	result.UpdatedAt = now
	result.GameComplete = filled(board, p.AnswerCells())

	if result.GameComplete {
		completedAt := now
		result.CompletedAt = &completedAt
		result.WinnerID = leader(m.Players, result.Scores)
		result.NextTurnUserID = m.CurrentTurnUserID
	} else {
		result.NextTurnUserID = m.Opponent(submitterID)
	}

	return result, nil
}

// ComputeHint returns the unlocked answer cells that would accept one of the
// given letters, in ascending order.
func ComputeHint(m *Match, p *puzzle.Puzzle, remaining []string) []int {
	letters := make(map[string]bool, len(remaining))
	for _, l := range remaining {
		if n := puzzle.NormalizeLetter(l); n != "" {
			letters[n] = true
		}
	}

	cells := []int{}
	for _, idx := range p.AnswerCells() {
		if _, locked := m.Board[idx]; locked {
			continue
		}
		answer, err := p.AnswerLetter(idx)
		if err == nil && letters[answer] {
			cells = append(cells, idx)
		}
	}
	return cells
}

// IsComplete reports whether every answer cell of the puzzle is locked.
func IsComplete(m *Match, p *puzzle.Puzzle) bool {
	return filled(m.Board, p.AnswerCells())
}

func filled(board map[int]string, cells []int) bool {
	for _, idx := range cells {
		if _, ok := board[idx]; !ok {
			return false
		}
	}
	return true
}

// leader returns the higher scorer, or "" on a draw.
func leader(players []string, scores map[string]int) string {
	if len(players) != 2 {
		return ""
	}
	a, b := scores[players[0]], scores[players[1]]
	switch {
	case a > b:
		return players[0]
	case b > a:
		return players[1]
	}
	return ""
}
