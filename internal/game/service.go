package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"linked-go/internal/puzzle"
)

const hintAttempts = 3

type GameService interface {
	GetOrCreateMatch(ctx context.Context, pairID string, playerID string) (*Match, error)
	GetMatch(ctx context.Context, matchID string, playerID string) (*Match, error)
	SubmitTurn(ctx context.Context, matchID string, playerID string, placements []Placement) (*TurnSubmissionResult, error)
	UseHint(ctx context.Context, matchID string, playerID string, remaining []string) (*HintResult, error)
	GetStandings(ctx context.Context, pairID string, playerID string) (*Standings, error)
	Subscribe(buffer int) (<-chan MatchEvent, func())
}

// Options tunes a GameService. Zero values fall back to defaults.
type Options struct {
	Scoring       Scoring
	HintAllowance int
	Cooldown      CooldownGate
	Dealer        RackDealer
	Logger        *slog.Logger
	Clock         func() time.Time
}

type gameService struct {
	store    Store
	catalog  puzzle.Catalog
	scoring  Scoring
	hints    int
	cooldown CooldownGate
	dealer   RackDealer
	logger   *slog.Logger
	now      func() time.Time
	locks    *keyedMutex
	events   *EventBus
}

func NewGameService(store Store, catalog puzzle.Catalog, opts Options) GameService {
	s := &gameService{
		store:    store,
		catalog:  catalog,
		scoring:  opts.Scoring,
		hints:    opts.HintAllowance,
		cooldown: opts.Cooldown,
		dealer:   opts.Dealer,
		logger:   opts.Logger,
		now:      opts.Clock,
		locks:    newKeyedMutex(),
		events:   NewEventBus(),
	}
	if s.scoring == (Scoring{}) {
		s.scoring = DefaultScoring()
	}
	if s.hints <= 0 {
		s.hints = DefaultHintAllowance
	}
	if s.cooldown.Window <= 0 {
		s.cooldown = NewCooldownGate(DefaultCooldownWindow)
	}
	if s.dealer == nil {
		s.dealer = SampleDealer{Size: DefaultRackSize}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *gameService) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *gameService) GetOrCreateMatch(ctx context.Context, pairID string, playerID string) (*Match, error) {
	pair, err := s.store.GetPair(ctx, pairID)
	if err != nil {
		return nil, err
	}
	if !pair.Has(playerID) {
		return nil, ErrNotPairMember
	}

	unlock := s.locks.Lock("pair:" + pairID)
	defer unlock()

	filter := NewMatchFilter()
	filter.PairID = pairID
	filter.Limit = 0
	history, err := s.store.ListMatches(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}

	var lastCompleted *time.Time
	played := make(map[string]bool, len(history))
	for _, m := range history {
		if m.IsActive() {
			return m.ViewFor(playerID), nil
		}
		played[m.PuzzleID] = true
		if m.CompletedAt != nil && (lastCompleted == nil || m.CompletedAt.After(*lastCompleted)) {
			lastCompleted = m.CompletedAt
		}
	}

	now := s.clock()
	if err := s.cooldown.Check(lastCompleted, now); err != nil {
		return nil, err
	}

	p, err := s.nextPuzzle(ctx, played)
	if err != nil {
		return nil, err
	}

	first := pair.PlayerA
	if len(history) > 0 && history[0].StartedBy == pair.PlayerA {
		first = pair.PlayerB
	}

	match := NewMatch(uuid.New().String(), pair, p.ID(), first, s.hints, now)
	match.Rack = s.dealer.Deal(match, p)

	if err := s.store.CreateMatch(ctx, match); err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}

	s.logger.Info("match created",
		"match_id", match.ID, "pair_id", pairID, "puzzle_id", p.ID(), "first_turn", first)
	s.emitEvent(EventTypeMatchCreated, match.ID, &first, map[string]any{
		"pair_id":   pairID,
		"puzzle_id": p.ID(),
	})

	return match.ViewFor(playerID), nil
}

func (s *gameService) nextPuzzle(ctx context.Context, played map[string]bool) (*puzzle.Puzzle, error) {
	ids, err := s.catalog.IDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list puzzles: %w", err)
	}
	for _, id := range ids {
		if played[id] {
			continue
		}
		p, err := s.catalog.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load puzzle %s: %w", id, err)
		}
		return p, nil
	}
	return nil, ErrNoPuzzleAvailable
}

func (s *gameService) GetMatch(ctx context.Context, matchID string, playerID string) (*Match, error) {
	match, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.HasPlayer(playerID) {
		return nil, ErrNotMatchPlayer
	}
	return match.ViewFor(playerID), nil
}

func (s *gameService) SubmitTurn(ctx context.Context, matchID string, playerID string, placements []Placement) (*TurnSubmissionResult, error) {
	unlock := s.locks.Lock(matchID)
	defer unlock()

	match, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.HasPlayer(playerID) {
		return nil, ErrNotMatchPlayer
	}
	if !match.IsActive() || match.CurrentTurnUserID != playerID {
		return nil, ErrTurnConflict
	}
	if len(placements) == 0 {
		return nil, ErrEmptySubmission
	}

	p, err := s.catalog.Get(ctx, match.PuzzleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load puzzle: %w", err)
	}

	result, err := Evaluate(match, p, playerID, placements, s.scoring, s.clock())
	if err != nil {
		return nil, err
	}

	expected := match.Version
	match.ApplyTurn(result)
	if !result.GameComplete {
		match.Rack = s.dealer.Deal(match, p)
	}

	if err := s.store.UpdateMatch(ctx, match, expected); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return nil, fmt.Errorf("%w: %v", ErrTurnConflict, err)
		}
		return nil, fmt.Errorf("failed to update match: %w", err)
	}

	s.logger.Info("turn submitted",
		"match_id", matchID,
		"player_id", playerID,
		"turn", result.TurnNumber,
		"placements", len(placements),
		"score", result.NewScore,
		"words", len(result.CompletedWords),
	)

	s.emitEvent(EventTypeTurnSubmitted, matchID, &playerID, map[string]any{
		"turn_number": result.TurnNumber,
		"score":       result.NewScore,
	})
	if result.GameComplete {
		s.emitEvent(EventTypeMatchCompleted, matchID, nil, map[string]any{
			"winner_id": result.WinnerID,
			"scores":    result.Scores,
		})
	} else {
		next := result.NextTurnUserID
		s.emitEvent(EventTypeTurnChanged, matchID, &next, map[string]any{
			"turn_number": result.TurnNumber,
		})
	}

	return result, nil
}

func (s *gameService) UseHint(ctx context.Context, matchID string, playerID string, remaining []string) (*HintResult, error) {
	unlock := s.locks.Lock(matchID)
	defer unlock()

	for attempt := 1; ; attempt++ {
		result, err := s.useHint(ctx, matchID, playerID, remaining)
		if errors.Is(err, ErrVersionConflict) && attempt < hintAttempts {
			s.logger.Debug("hint retry after concurrent update", "match_id", matchID, "attempt", attempt)
			continue
		}
		return result, err
	}
}

func (s *gameService) useHint(ctx context.Context, matchID string, playerID string, remaining []string) (*HintResult, error) {
	match, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.HasPlayer(playerID) {
		return nil, ErrNotMatchPlayer
	}
	if !match.IsActive() {
		return nil, ErrTurnConflict
	}

	vision := match.Vision[playerID]
	if vision <= 0 {
		return nil, ErrNoHintsRemaining
	}

	p, err := s.catalog.Get(ctx, match.PuzzleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load puzzle: %w", err)
	}

	result := &HintResult{
		MatchID:        matchID,
		PlayerID:       playerID,
		ValidCells:     ComputeHint(match, p, remaining),
		HintsRemaining: vision - 1,
		Version:        match.Version + 1,
		UpdatedAt:      s.clock(),
	}

	expected := match.Version
	match.ApplyHint(result)
	if err := s.store.UpdateMatch(ctx, match, expected); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update match: %w", err)
	}

	s.emitEvent(EventTypeHintUsed, matchID, &playerID, map[string]any{
		"cells":           len(result.ValidCells),
		"hints_remaining": result.HintsRemaining,
	})

	return result, nil
}

func (s *gameService) GetStandings(ctx context.Context, pairID string, playerID string) (*Standings, error) {
	pair, err := s.store.GetPair(ctx, pairID)
	if err != nil {
		return nil, err
	}
	if !pair.Has(playerID) {
		return nil, ErrNotPairMember
	}

	completed := MatchStatusCompleted
	filter := NewMatchFilter()
	filter.PairID = pairID
	filter.Status = &completed
	filter.Limit = 0
	matches, err := s.store.ListMatches(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return Tally(pair, matches), nil
}

func (s *gameService) emitEvent(eventType EventType, matchID string, playerID *string, payload map[string]any) {
	s.events.Publish(MatchEvent{
		Type:      eventType,
		MatchID:   matchID,
		PlayerID:  playerID,
		Timestamp: s.clock(),
		Payload:   payload,
	})
}

func (s *gameService) Subscribe(buffer int) (<-chan MatchEvent, func()) {
	return s.events.Subscribe(buffer)
}
