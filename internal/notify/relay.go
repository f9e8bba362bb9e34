package notify

import (
	"context"
	"log/slog"
	"time"

	"linked-go/internal/game"
)

const DefaultRelayTimeout = 5 * time.Second

type EventSource interface {
	Subscribe(buffer int) (<-chan game.MatchEvent, func())
}

// Relay forwards turn changes from the game event bus to a Notifier.
// Failures are logged and dropped.
type Relay struct {
	source   EventSource
	notifier Notifier
	timeout  time.Duration
	logger   *slog.Logger
}

func NewRelay(source EventSource, notifier Notifier, timeout time.Duration, logger *slog.Logger) *Relay {
	if timeout <= 0 {
		timeout = DefaultRelayTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{source: source, notifier: notifier, timeout: timeout, logger: logger}
}

// Run blocks until ctx is done or the source closes the subscription.
func (r *Relay) Run(ctx context.Context) {
	events, unsubscribe := r.source.Subscribe(0)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			r.handle(ctx, event)
		}
	}
}

func (r *Relay) handle(ctx context.Context, event game.MatchEvent) {
	if event.Type != game.EventTypeTurnChanged || event.PlayerID == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.notifier.NotifyTurnChanged(ctx, event.MatchID, *event.PlayerID); err != nil {
		r.logger.Warn("turn notification failed",
			"match_id", event.MatchID,
			"player_id", *event.PlayerID,
			"error", err,
		)
	}
}
