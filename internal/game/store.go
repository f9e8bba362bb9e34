package game

import (
	"context"
)

// MatchStore defines the interface for match persistence operations.
// UpdateMatch must only succeed when the stored version equals
// expectedVersion, otherwise it returns ErrVersionConflict.
type MatchStore interface {
	CreateMatch(ctx context.Context, match *Match) error
	GetMatch(ctx context.Context, id string) (*Match, error)
	UpdateMatch(ctx context.Context, match *Match, expectedVersion int) error
	ListMatches(ctx context.Context, filter MatchFilter) ([]*Match, error)
}

// PairStore defines the interface for pair lookups
type PairStore interface {
	CreatePair(ctx context.Context, pair *Pair) error
	GetPair(ctx context.Context, id string) (*Pair, error)
}

// Store is everything the game service persists
type Store interface {
	MatchStore
	PairStore
}

// MatchFilter defines the criteria for filtering matches. Results are
// ordered newest first; a Limit of zero or less returns every match.
type MatchFilter struct {
	PairID string
	Status *MatchStatus
	Limit  int
	Offset int
}

// NewMatchFilter creates a new MatchFilter with default values
func NewMatchFilter() MatchFilter {
	return MatchFilter{
		Limit:  50,
		Offset: 0,
	}
}
