package matchsync

import (
	"errors"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"linked-go/internal/game"
	"linked-go/internal/puzzle"
)

var (
	ErrCellLocked       = errors.New("cell is already locked")
	ErrRackSlotInvalid  = errors.New("rack slot out of range")
	ErrRackSlotUsed     = errors.New("rack slot already placed")
	ErrLetterMismatch   = errors.New("letter does not match rack slot")
	ErrNoDraftPlacement = errors.New("cell has no draft letter")
)

// Draft is a player's unsubmitted placements for one turn. It is never
// merged into the board: the submission result replaces it.
type Draft struct {
	rack    []string
	locked  map[int]string
	letters map[int]string
	sources map[int]int
	used    map[int]bool
}

// NewDraft starts an empty draft over the given rack and locked board.
func NewDraft(rack []string, board map[int]string) *Draft {
	return &Draft{
		rack:    slices.Clone(rack),
		locked:  maps.Clone(board),
		letters: make(map[int]string),
		sources: make(map[int]int),
		used:    make(map[int]bool),
	}
}

// Place puts the letter from rackIndex on cell. A letter already drafted on
// cell goes back to its rack slot first.
func (d *Draft) Place(cell int, letter string, rackIndex int) error {
	if _, locked := d.locked[cell]; locked {
		return ErrCellLocked
	}
	if rackIndex < 0 || rackIndex >= len(d.rack) {
		return ErrRackSlotInvalid
	}
	if puzzle.NormalizeLetter(letter) != puzzle.NormalizeLetter(d.rack[rackIndex]) {
		return ErrLetterMismatch
	}
	if d.used[rackIndex] {
		if src, ok := d.sources[cell]; !ok || src != rackIndex {
			return ErrRackSlotUsed
		}
	}

	d.release(cell)
	d.letters[cell] = d.rack[rackIndex]
	d.sources[cell] = rackIndex
	d.used[rackIndex] = true
	return nil
}

// MoveDraft moves a drafted letter to another cell, returning whatever was
// drafted on the target to the rack.
func (d *Draft) MoveDraft(from, to int) error {
	letter, ok := d.letters[from]
	if !ok {
		return ErrNoDraftPlacement
	}
	if from == to {
		return nil
	}
	if _, locked := d.locked[to]; locked {
		return ErrCellLocked
	}

	source := d.sources[from]
	d.release(to)
	delete(d.letters, from)
	delete(d.sources, from)
	d.letters[to] = letter
	d.sources[to] = source
	return nil
}

// ReturnToRack removes the draft letter on cell and frees its rack slot.
func (d *Draft) ReturnToRack(cell int) error {
	if _, ok := d.letters[cell]; !ok {
		return ErrNoDraftPlacement
	}
	d.release(cell)
	return nil
}

func (d *Draft) release(cell int) {
	if _, ok := d.letters[cell]; !ok {
		return
	}
	delete(d.used, d.sources[cell])
	delete(d.letters, cell)
	delete(d.sources, cell)
}

// Letter returns the drafted letter on cell.
func (d *Draft) Letter(cell int) (string, bool) {
	l, ok := d.letters[cell]
	return l, ok
}

// Used reports whether the rack slot is currently placed.
func (d *Draft) Used(rackIndex int) bool {
	return d.used[rackIndex]
}

func (d *Draft) Len() int {
	return len(d.letters)
}

// Placements returns the draft as a submission, ordered by cell.
func (d *Draft) Placements() []game.Placement {
	cells := maps.Keys(d.letters)
	slices.Sort(cells)
	out := make([]game.Placement, 0, len(cells))
	for _, cell := range cells {
		out = append(out, game.Placement{CellIndex: cell, Letter: d.letters[cell]})
	}
	return out
}

// RemainingLetters returns the unplaced rack letters in rack order.
func (d *Draft) RemainingLetters() []string {
	out := []string{}
	for i, l := range d.rack {
		if !d.used[i] {
			out = append(out, l)
		}
	}
	return out
}

func (d *Draft) Clear() {
	d.letters = make(map[int]string)
	d.sources = make(map[int]int)
	d.used = make(map[int]bool)
}
