// Package snapshot keeps a non-authoritative copy of a player's match view
// for offline display.
package snapshot

import (
	"context"
	"errors"
	"strings"
	"time"

	"linked-go/internal/game"
)

var (
	ErrNotFound   = errors.New("snapshot not found")
	ErrInvalidKey = errors.New("invalid snapshot key")
)

// Snapshot is one saved match view
type Snapshot struct {
	MatchID  string      `json:"match_id"`
	PlayerID string      `json:"player_id"`
	Match    *game.Match `json:"match"`
	SavedAt  time.Time   `json:"saved_at"`
}

// Store persists the last view each player saw of a match.
type Store interface {
	Save(ctx context.Context, playerID string, match *game.Match) error
	Load(ctx context.Context, matchID, playerID string) (*Snapshot, error)
}

func validKey(matchID, playerID string) error {
	for _, part := range []string{matchID, playerID} {
		if part == "" || strings.ContainsAny(part, `/\`) || part == "." || part == ".." {
			return ErrInvalidKey
		}
	}
	return nil
}
