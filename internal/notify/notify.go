package notify

import (
	"context"
	"errors"
	"time"
)

// Notifier tells a player that it is now their turn in a match.
type Notifier interface {
	NotifyTurnChanged(ctx context.Context, matchID string, playerID string) error
}

// TurnNotification is the payload every channel delivers.
type TurnNotification struct {
	Type     string    `json:"type"`
	MatchID  string    `json:"match_id"`
	PlayerID string    `json:"player_id"`
	SentAt   time.Time `json:"sent_at"`
}

const notificationTypeTurnChanged = "turn_changed"

func newTurnNotification(matchID, playerID string, now time.Time) TurnNotification {
	return TurnNotification{
		Type:     notificationTypeTurnChanged,
		MatchID:  matchID,
		PlayerID: playerID,
		SentAt:   now.UTC(),
	}
}

// Multi delivers to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) NotifyTurnChanged(ctx context.Context, matchID string, playerID string) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyTurnChanged(ctx, matchID, playerID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
