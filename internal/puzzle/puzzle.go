package puzzle

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var upper = cases.Upper(language.Und)

// NormalizeLetter upper-cases and trims a single letter. It returns an empty
// string when the input is not exactly one character.
func NormalizeLetter(letter string) string {
	l := upper.String(strings.TrimSpace(letter))
	if utf8.RuneCountInString(l) != 1 {
		return ""
	}
	return l
}

// Puzzle is an immutable, validated puzzle grid. Safe for concurrent use.
type Puzzle struct {
	id      string
	title   string
	width   int
	height  int
	types   []CellType
	letters map[int]string
	clues   map[int][]Clue
	words   []Clue
	answers []int
}

// New validates a definition and derives every clue's target cells.
func New(def Definition) (*Puzzle, error) {
	if def.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidDefinition)
	}
	if def.Width <= 0 || def.Height <= 0 {
		return nil, fmt.Errorf("%w: grid must be at least 1x1", ErrInvalidDefinition)
	}
	size := def.Width * def.Height
	if len(def.Cells) != size {
		return nil, fmt.Errorf("%w: expected %d cells, got %d", ErrInvalidDefinition, size, len(def.Cells))
	}

	p := &Puzzle{
		id:      def.ID,
		title:   def.Title,
		width:   def.Width,
		height:  def.Height,
		types:   make([]CellType, size),
		letters: make(map[int]string),
		clues:   make(map[int][]Clue),
	}

	for i, cell := range def.Cells {
		switch cell.Type {
		case CellVoid:
		case CellAnswer:
			letter := NormalizeLetter(cell.Letter)
			if letter == "" {
				return nil, fmt.Errorf("%w: answer cell %d needs exactly one letter", ErrInvalidDefinition, i)
			}
			p.letters[i] = letter
			p.answers = append(p.answers, i)
		case CellClue:
			if len(cell.Clues) == 0 || len(cell.Clues) > 2 {
				return nil, fmt.Errorf("%w: clue cell %d must hold one or two clues", ErrInvalidDefinition, i)
			}
			if len(cell.Clues) == 2 && cell.Clues[0].Direction == cell.Clues[1].Direction {
				return nil, fmt.Errorf("%w: split cell %d repeats direction %s", ErrInvalidDefinition, i, cell.Clues[0].Direction)
			}
		default:
			return nil, fmt.Errorf("%w: cell %d has unknown type %q", ErrInvalidDefinition, i, cell.Type)
		}
		p.types[i] = cell.Type
	}

	for i, cell := range def.Cells {
		if cell.Type != CellClue {
			continue
		}
		for _, cd := range cell.Clues {
			if cd.Direction != Across && cd.Direction != Down {
				return nil, fmt.Errorf("%w: clue cell %d has unknown direction %q", ErrInvalidDefinition, i, cd.Direction)
			}
			targets := p.walk(i, cd.Direction)
			if len(targets) == 0 {
				return nil, fmt.Errorf("%w: clue cell %d (%s) targets no answer cells", ErrInvalidDefinition, i, cd.Direction)
			}
			clue := Clue{CellIndex: i, Direction: cd.Direction, Text: cd.Text, Cells: targets}
			p.clues[i] = append(p.clues[i], clue)
			p.words = append(p.words, clue)
		}
	}

	return p, nil
}

// walk collects the consecutive answer cells after a clue cell.
func (p *Puzzle) walk(from int, dir Direction) []int {
	var cells []int
	switch dir {
	case Across:
		row := from / p.width
		for i := from + 1; i < p.Size() && i/p.width == row && p.types[i] == CellAnswer; i++ {
			cells = append(cells, i)
		}
	case Down:
		for i := from + p.width; i < p.Size() && p.types[i] == CellAnswer; i += p.width {
			cells = append(cells, i)
		}
	}
	return cells
}

func (p *Puzzle) ID() string    { return p.id }
func (p *Puzzle) Title() string { return p.title }
func (p *Puzzle) Width() int    { return p.width }
func (p *Puzzle) Height() int   { return p.height }
func (p *Puzzle) Size() int     { return p.width * p.height }

// Classify returns the type of the cell at index.
func (p *Puzzle) Classify(index int) (CellType, error) {
	if index < 0 || index >= p.Size() {
		return "", ErrCellOutOfRange
	}
	return p.types[index], nil
}

// AnswerLetter returns the solution letter of an answer cell.
func (p *Puzzle) AnswerLetter(index int) (string, error) {
	t, err := p.Classify(index)
	if err != nil {
		return "", err
	}
	if t != CellAnswer {
		return "", ErrNotAnswerCell
	}
	return p.letters[index], nil
}

// ClueAt returns the clues held by a cell: one for a plain clue cell, two
// for a split cell and none for answer or void cells.
func (p *Puzzle) ClueAt(index int) ([]Clue, error) {
	if _, err := p.Classify(index); err != nil {
		return nil, err
	}
	clues := p.clues[index]
	out := make([]Clue, len(clues))
	copy(out, clues)
	return out, nil
}

// IsSplit reports whether the cell holds both an across and a down clue.
func (p *Puzzle) IsSplit(index int) bool {
	return len(p.clues[index]) == 2
}

// Words returns every clue word in grid order.
func (p *Puzzle) Words() []Clue {
	out := make([]Clue, len(p.words))
	copy(out, p.words)
	return out
}

// AnswerCells returns the indices of all answer cells in ascending order.
func (p *Puzzle) AnswerCells() []int {
	out := make([]int, len(p.answers))
	copy(out, p.answers)
	return out
}
