// Package store holds the persistence implementations of game.Store.
package store

import (
	"context"
	"sort"
	"sync"

	"linked-go/internal/game"
)

// Memory is a map-backed game.Store. State is lost when the process exits.
type Memory struct {
	mu      sync.RWMutex
	seq     int
	matches map[string]*memoryMatch
	pairs   map[string]*game.Pair
}

type memoryMatch struct {
	seq   int
	match *game.Match
}

func NewMemory() *Memory {
	return &Memory{
		matches: make(map[string]*memoryMatch),
		pairs:   make(map[string]*game.Pair),
	}
}

func (m *Memory) CreatePair(ctx context.Context, pair *game.Pair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := *pair
	m.pairs[pair.ID] = &p
	return nil
}

func (m *Memory) GetPair(ctx context.Context, id string) (*game.Pair, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pairs[id]
	if !ok {
		return nil, game.ErrPairNotFound
	}
	out := *p
	return &out, nil
}

func (m *Memory) CreateMatch(ctx context.Context, match *game.Match) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.matches[match.ID] = &memoryMatch{seq: m.seq, match: match.Clone()}
	return nil
}

func (m *Memory) GetMatch(ctx context.Context, id string) (*game.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.matches[id]
	if !ok {
		return nil, game.ErrMatchNotFound
	}
	return entry.match.Clone(), nil
}

func (m *Memory) UpdateMatch(ctx context.Context, match *game.Match, expectedVersion int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.matches[match.ID]
	if !ok {
		return game.ErrMatchNotFound
	}
	if entry.match.Version != expectedVersion {
		return game.ErrVersionConflict
	}
	entry.match = match.Clone()
	return nil
}

func (m *Memory) ListMatches(ctx context.Context, filter game.MatchFilter) ([]*game.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var entries []*memoryMatch
	for _, entry := range m.matches {
		if filter.PairID != "" && entry.match.PairID != filter.PairID {
			continue
		}
		if filter.Status != nil && entry.match.Status != *filter.Status {
			continue
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].match, entries[j].match
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return entries[i].seq > entries[j].seq
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(entries) {
			entries = nil
		} else {
			entries = entries[filter.Offset:]
		}
	}
	if filter.Limit > 0 && len(entries) > filter.Limit {
		entries = entries[:filter.Limit]
	}

	out := make([]*game.Match, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.match.Clone())
	}
	return out, nil
}
