package game

import (
	"hash/fnv"
	"math/rand"
	"strconv"

	"linked-go/internal/puzzle"
)

// RackDealer deals the letters available to the current turn holder
type RackDealer interface {
	Deal(m *Match, p *puzzle.Puzzle) []string
}

// SampleDealer deals up to Size letters drawn without replacement from the
// answers of the still-unlocked cells, so every rack letter has somewhere to
// go. The draw is seeded by match id and turn number and is reproducible.
type SampleDealer struct {
	Size int
}

func (d SampleDealer) Deal(m *Match, p *puzzle.Puzzle) []string {
	size := d.Size
	if size <= 0 {
		size = DefaultRackSize
	}

	pool := []string{}
	for _, idx := range p.AnswerCells() {
		if _, locked := m.Board[idx]; locked {
			continue
		}
		if letter, err := p.AnswerLetter(idx); err == nil {
			pool = append(pool, letter)
		}
	}

	h := fnv.New64a()
	h.Write([]byte(m.ID + ":" + strconv.Itoa(m.TurnNumber)))
	r := rand.New(rand.NewSource(int64(h.Sum64())))
	r.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	if len(pool) > size {
		pool = pool[:size]
	}
	return pool
}
