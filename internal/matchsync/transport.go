package matchsync

import (
	"context"

	"linked-go/internal/game"
)

// MatchAPI is how a Client reaches the authoritative match. The acting
// player is bound by the transport.
type MatchAPI interface {
	GetOrCreateMatch(ctx context.Context, pairID string) (*game.Match, error)
	PollMatchState(ctx context.Context, matchID string) (*game.Match, error)
	SubmitTurn(ctx context.Context, matchID string, placements []game.Placement) (*game.TurnSubmissionResult, error)
	UseHint(ctx context.Context, matchID string, remaining []string) (*game.HintResult, error)
}

// LocalTransport calls a GameService in the same process as one player.
type LocalTransport struct {
	service  game.GameService
	playerID string
}

func NewLocalTransport(service game.GameService, playerID string) *LocalTransport {
	return &LocalTransport{service: service, playerID: playerID}
}

func (t *LocalTransport) GetOrCreateMatch(ctx context.Context, pairID string) (*game.Match, error) {
	return t.service.GetOrCreateMatch(ctx, pairID, t.playerID)
}

func (t *LocalTransport) PollMatchState(ctx context.Context, matchID string) (*game.Match, error) {
	return t.service.GetMatch(ctx, matchID, t.playerID)
}

func (t *LocalTransport) SubmitTurn(ctx context.Context, matchID string, placements []game.Placement) (*game.TurnSubmissionResult, error) {
	return t.service.SubmitTurn(ctx, matchID, t.playerID, placements)
}

func (t *LocalTransport) UseHint(ctx context.Context, matchID string, remaining []string) (*game.HintResult, error) {
	return t.service.UseHint(ctx, matchID, t.playerID, remaining)
}
