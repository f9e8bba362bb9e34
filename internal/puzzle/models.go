package puzzle

import "errors"

// CellType classifies a single grid cell
type CellType string

const (
	CellVoid   CellType = "void"
	CellClue   CellType = "clue"
	CellAnswer CellType = "answer"
)

// Direction is the reading direction of a clue's answer word
type Direction string

const (
	Across Direction = "across"
	Down   Direction = "down"
)

var (
	ErrCellOutOfRange    = errors.New("cell index out of range")
	ErrNotAnswerCell     = errors.New("cell is not an answer cell")
	ErrInvalidDefinition = errors.New("invalid puzzle definition")
	ErrPuzzleNotFound    = errors.New("puzzle not found")
)

// ClueDefinition is a clue as authored inside a clue cell
type ClueDefinition struct {
	Direction Direction `json:"direction"`
	Text      string    `json:"text"`
}

// CellDefinition is one authored cell of the grid, in row-major order
type CellDefinition struct {
	Type   CellType         `json:"type"`
	Letter string           `json:"letter,omitempty"`
	Clues  []ClueDefinition `json:"clues,omitempty"`
}

// Definition is the published, serialised form of a puzzle
type Definition struct {
	ID     string           `json:"id"`
	Title  string           `json:"title,omitempty"`
	Width  int              `json:"width"`
	Height int              `json:"height"`
	Cells  []CellDefinition `json:"cells"`
}

// Clue is a resolved clue: where it sits and which answer cells it spells.
type Clue struct {
	CellIndex int       `json:"cell_index"`
	Direction Direction `json:"direction"`
	Text      string    `json:"text"`
	Cells     []int     `json:"cells"`
}

// Answer returns the word spelled by the clue's target cells.
func (c Clue) Answer(p *Puzzle) string {
	word := make([]byte, 0, len(c.Cells))
	for _, idx := range c.Cells {
		word = append(word, p.letters[idx]...)
	}
	return string(word)
}
