package game

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"linked-go/internal/puzzle"
)

type serviceFixture struct {
	store   *MockStore
	dealer  *MockRackDealer
	service GameService
	now     time.Time
}

func newServiceFixture(t *testing.T) *serviceFixture {
	f := &serviceFixture{
		store:  new(MockStore),
		dealer: new(MockRackDealer),
		now:    testNow.Add(48 * time.Hour),
	}
	catalog := puzzle.NewMemoryCatalog(scenarioPuzzle(t), wordPuzzle(t))
	f.service = NewGameService(f.store, catalog, Options{
		Dealer: f.dealer,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:  func() time.Time { return f.now },
	})
	return f
}

func completedMatch(id, puzzleID, startedBy string, completedAt time.Time) *Match {
	m := NewMatch(id, testPair(), puzzleID, startedBy, DefaultHintAllowance, completedAt.Add(-time.Hour))
	m.Status = MatchStatusCompleted
	m.CompletedAt = &completedAt
	return m
}

func TestGetOrCreateMatch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the active match", func(t *testing.T) {
		f := newServiceFixture(t)
		active := newTestMatch(scenarioPuzzle(t))
		active.Rack = []string{"A", "B"}

		f.store.On("GetPair", ctx, "pair-1").Return(testPair(), nil)
		f.store.On("ListMatches", ctx, mock.Anything).Return([]*Match{active}, nil)

		match, err := f.service.GetOrCreateMatch(ctx, "pair-1", "bob")
		require.NoError(t, err)
		assert.Equal(t, "match-1", match.ID)
		assert.Equal(t, []string{}, match.Rack)

		f.store.AssertNotCalled(t, "CreateMatch", mock.Anything, mock.Anything)
	})

	t.Run("creates the first match", func(t *testing.T) {
		f := newServiceFixture(t)
		f.store.On("GetPair", ctx, "pair-1").Return(testPair(), nil)
		f.store.On("ListMatches", ctx, mock.MatchedBy(func(filter MatchFilter) bool {
			return filter.PairID == "pair-1" && filter.Limit == 0
		})).Return([]*Match{}, nil)
		f.dealer.On("Deal", mock.AnythingOfType("*game.Match"), mock.Anything).Return([]string{"A", "B", "C"})
		f.store.On("CreateMatch", ctx, mock.AnythingOfType("*game.Match")).Return(nil)

		events, unsubscribe := f.service.Subscribe(4)
		defer unsubscribe()

		match, err := f.service.GetOrCreateMatch(ctx, "pair-1", "alice")
		require.NoError(t, err)
		assert.NotEmpty(t, match.ID)
		assert.Equal(t, "scenario", match.PuzzleID)
		assert.Equal(t, "alice", match.CurrentTurnUserID)
		assert.Equal(t, []string{"A", "B", "C"}, match.Rack)
		assert.Equal(t, f.now, match.CreatedAt)

		event := <-events
		assert.Equal(t, EventTypeMatchCreated, event.Type)
		assert.Equal(t, match.ID, event.MatchID)

		f.store.AssertExpectations(t)
		f.dealer.AssertExpectations(t)
	})

	t.Run("alternates the first turn and skips played puzzles", func(t *testing.T) {
		f := newServiceFixture(t)
		previous := completedMatch("old", "scenario", "alice", f.now.Add(-25*time.Hour))

		f.store.On("GetPair", ctx, "pair-1").Return(testPair(), nil)
		f.store.On("ListMatches", ctx, mock.Anything).Return([]*Match{previous}, nil)
		f.dealer.On("Deal", mock.Anything, mock.Anything).Return([]string{"D"})
		f.store.On("CreateMatch", ctx, mock.MatchedBy(func(m *Match) bool {
			return m.StartedBy == "bob" && m.PuzzleID == "split"
		})).Return(nil)

		match, err := f.service.GetOrCreateMatch(ctx, "pair-1", "alice")
		require.NoError(t, err)
		assert.Equal(t, "bob", match.CurrentTurnUserID)
		assert.Equal(t, []string{}, match.Rack)
		f.store.AssertExpectations(t)
	})

	t.Run("blocked by cooldown", func(t *testing.T) {
		f := newServiceFixture(t)
		completedAt := f.now.Add(-2 * time.Hour)
		previous := completedMatch("old", "scenario", "alice", completedAt)

		f.store.On("GetPair", ctx, "pair-1").Return(testPair(), nil)
		f.store.On("ListMatches", ctx, mock.Anything).Return([]*Match{previous}, nil)

		_, err := f.service.GetOrCreateMatch(ctx, "pair-1", "alice")
		var cooldown *CooldownError
		require.True(t, errors.As(err, &cooldown))
		assert.Equal(t, completedAt.Add(24*time.Hour), cooldown.RetryAt)
		f.store.AssertNotCalled(t, "CreateMatch", mock.Anything, mock.Anything)
	})

	t.Run("every puzzle played", func(t *testing.T) {
		f := newServiceFixture(t)
		history := []*Match{
			completedMatch("m2", "split", "bob", f.now.Add(-30*time.Hour)),
			completedMatch("m1", "scenario", "alice", f.now.Add(-60*time.Hour)),
		}
		f.store.On("GetPair", ctx, "pair-1").Return(testPair(), nil)
		f.store.On("ListMatches", ctx, mock.Anything).Return(history, nil)

		_, err := f.service.GetOrCreateMatch(ctx, "pair-1", "alice")
		assert.ErrorIs(t, err, ErrNoPuzzleAvailable)
	})

	t.Run("outsider", func(t *testing.T) {
		f := newServiceFixture(t)
		f.store.On("GetPair", ctx, "pair-1").Return(testPair(), nil)

		_, err := f.service.GetOrCreateMatch(ctx, "pair-1", "carol")
		assert.ErrorIs(t, err, ErrNotPairMember)
	})

	t.Run("unknown pair", func(t *testing.T) {
		f := newServiceFixture(t)
		f.store.On("GetPair", ctx, "nope").Return(nil, ErrPairNotFound)

		_, err := f.service.GetOrCreateMatch(ctx, "nope", "alice")
		assert.ErrorIs(t, err, ErrPairNotFound)
	})
}

func TestGetMatch(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	m := newTestMatch(scenarioPuzzle(t))
	m.Rack = []string{"A"}
	f.store.On("GetMatch", ctx, "match-1").Return(m, nil)

	view, err := f.service.GetMatch(ctx, "match-1", "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, view.Rack)

	view, err = f.service.GetMatch(ctx, "match-1", "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{}, view.Rack)

	_, err = f.service.GetMatch(ctx, "match-1", "carol")
	assert.ErrorIs(t, err, ErrNotMatchPlayer)
}

func TestSubmitTurn(t *testing.T) {
	ctx := context.Background()
	placements := []Placement{{CellIndex: 0, Letter: "A"}, {CellIndex: 1, Letter: "X"}}

	t.Run("correct and incorrect split", func(t *testing.T) {
		f := newServiceFixture(t)
		m := newTestMatch(scenarioPuzzle(t))
		m.Rack = []string{"A", "X"}

		f.store.On("GetMatch", ctx, "match-1").Return(m, nil)
		f.dealer.On("Deal", mock.Anything, mock.Anything).Return([]string{"B", "C"})
		f.store.On("UpdateMatch", ctx, mock.MatchedBy(func(saved *Match) bool {
			return saved.Board[0] == "A" &&
				len(saved.Board) == 1 &&
				saved.CurrentTurnUserID == "bob" &&
				saved.Scores["alice"] == 10 &&
				saved.Version == 2 &&
				len(saved.Rack) == 2
		}), 1).Return(nil)

		events, unsubscribe := f.service.Subscribe(4)
		defer unsubscribe()

		result, err := f.service.SubmitTurn(ctx, "match-1", "alice", placements)
		require.NoError(t, err)
		assert.Equal(t, 10, result.NewScore)
		assert.Equal(t, "bob", result.NextTurnUserID)
		assert.False(t, result.GameComplete)
		assert.Equal(t, f.now, result.UpdatedAt)

		assert.Equal(t, EventTypeTurnSubmitted, (<-events).Type)
		changed := <-events
		assert.Equal(t, EventTypeTurnChanged, changed.Type)
		require.NotNil(t, changed.PlayerID)
		assert.Equal(t, "bob", *changed.PlayerID)

		f.store.AssertExpectations(t)
	})

	t.Run("final submission completes the match", func(t *testing.T) {
		f := newServiceFixture(t)
		m := newTestMatch(scenarioPuzzle(t))
		m.Board = map[int]string{0: "A", 1: "B"}

		f.store.On("GetMatch", ctx, "match-1").Return(m, nil)
		f.store.On("UpdateMatch", ctx, mock.MatchedBy(func(saved *Match) bool {
			return saved.Status == MatchStatusCompleted && saved.WinnerID == "alice" && len(saved.Rack) == 0
		}), 1).Return(nil)

		events, unsubscribe := f.service.Subscribe(4)
		defer unsubscribe()

		result, err := f.service.SubmitTurn(ctx, "match-1", "alice", []Placement{{CellIndex: 2, Letter: "C"}})
		require.NoError(t, err)
		assert.True(t, result.GameComplete)
		assert.Equal(t, "alice", result.WinnerID)

		<-events
		assert.Equal(t, EventTypeMatchCompleted, (<-events).Type)
		f.dealer.AssertNotCalled(t, "Deal", mock.Anything, mock.Anything)
	})

	t.Run("out of turn leaves the match unchanged", func(t *testing.T) {
		f := newServiceFixture(t)
		f.store.On("GetMatch", ctx, "match-1").Return(newTestMatch(scenarioPuzzle(t)), nil)

		_, err := f.service.SubmitTurn(ctx, "match-1", "bob", placements)
		assert.ErrorIs(t, err, ErrTurnConflict)
		f.store.AssertNotCalled(t, "UpdateMatch", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("lost race reports a turn conflict", func(t *testing.T) {
		f := newServiceFixture(t)
		f.store.On("GetMatch", ctx, "match-1").Return(newTestMatch(scenarioPuzzle(t)), nil)
		f.dealer.On("Deal", mock.Anything, mock.Anything).Return([]string{})
		f.store.On("UpdateMatch", ctx, mock.Anything, 1).Return(ErrVersionConflict)

		_, err := f.service.SubmitTurn(ctx, "match-1", "alice", placements)
		assert.ErrorIs(t, err, ErrTurnConflict)
	})

	t.Run("empty submission", func(t *testing.T) {
		f := newServiceFixture(t)
		f.store.On("GetMatch", ctx, "match-1").Return(newTestMatch(scenarioPuzzle(t)), nil)

		_, err := f.service.SubmitTurn(ctx, "match-1", "alice", nil)
		assert.ErrorIs(t, err, ErrEmptySubmission)
		f.store.AssertNotCalled(t, "UpdateMatch", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("empty submission off turn is a turn conflict", func(t *testing.T) {
		f := newServiceFixture(t)
		f.store.On("GetMatch", ctx, "match-1").Return(newTestMatch(scenarioPuzzle(t)), nil)

		_, err := f.service.SubmitTurn(ctx, "match-1", "bob", nil)
		assert.ErrorIs(t, err, ErrTurnConflict)
	})

	t.Run("empty submission on a completed match is a turn conflict", func(t *testing.T) {
		f := newServiceFixture(t)
		m := newTestMatch(scenarioPuzzle(t))
		m.Status = MatchStatusCompleted
		f.store.On("GetMatch", ctx, "match-1").Return(m, nil)

		_, err := f.service.SubmitTurn(ctx, "match-1", "alice", []Placement{})
		assert.ErrorIs(t, err, ErrTurnConflict)
	})

	t.Run("outsider", func(t *testing.T) {
		f := newServiceFixture(t)
		f.store.On("GetMatch", ctx, "match-1").Return(newTestMatch(scenarioPuzzle(t)), nil)

		_, err := f.service.SubmitTurn(ctx, "match-1", "carol", placements)
		assert.ErrorIs(t, err, ErrNotMatchPlayer)
	})
}

func TestUseHint(t *testing.T) {
	ctx := context.Background()

	t.Run("hint decrement", func(t *testing.T) {
		f := newServiceFixture(t)
		f.store.On("GetMatch", ctx, "match-1").Return(newTestMatch(scenarioPuzzle(t)), nil)
		f.store.On("UpdateMatch", ctx, mock.MatchedBy(func(saved *Match) bool {
			return saved.Vision["alice"] == 2 && saved.Vision["bob"] == 3 && saved.Version == 2
		}), 1).Return(nil)

		result, err := f.service.UseHint(ctx, "match-1", "alice", []string{"C"})
		require.NoError(t, err)
		assert.Equal(t, []int{2}, result.ValidCells)
		assert.Equal(t, 2, result.HintsRemaining)
		f.store.AssertExpectations(t)
	})

	t.Run("allowed off turn", func(t *testing.T) {
		f := newServiceFixture(t)
		f.store.On("GetMatch", ctx, "match-1").Return(newTestMatch(scenarioPuzzle(t)), nil)
		f.store.On("UpdateMatch", ctx, mock.Anything, 1).Return(nil)

		result, err := f.service.UseHint(ctx, "match-1", "bob", []string{"A"})
		require.NoError(t, err)
		assert.Equal(t, []int{0}, result.ValidCells)
	})

	t.Run("retries after a concurrent update", func(t *testing.T) {
		f := newServiceFixture(t)
		f.store.On("GetMatch", ctx, "match-1").Return(newTestMatch(scenarioPuzzle(t)), nil)
		f.store.On("UpdateMatch", ctx, mock.Anything, 1).Return(ErrVersionConflict).Once()
		f.store.On("UpdateMatch", ctx, mock.Anything, 1).Return(nil).Once()

		result, err := f.service.UseHint(ctx, "match-1", "alice", []string{"B"})
		require.NoError(t, err)
		assert.Equal(t, []int{1}, result.ValidCells)
		f.store.AssertNumberOfCalls(t, "GetMatch", 2)
	})

	t.Run("no hints remaining", func(t *testing.T) {
		f := newServiceFixture(t)
		m := newTestMatch(scenarioPuzzle(t))
		m.Vision["alice"] = 0
		f.store.On("GetMatch", ctx, "match-1").Return(m, nil)

		_, err := f.service.UseHint(ctx, "match-1", "alice", []string{"A"})
		assert.ErrorIs(t, err, ErrNoHintsRemaining)
		f.store.AssertNotCalled(t, "UpdateMatch", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("completed match", func(t *testing.T) {
		f := newServiceFixture(t)
		m := newTestMatch(scenarioPuzzle(t))
		m.Status = MatchStatusCompleted
		f.store.On("GetMatch", ctx, "match-1").Return(m, nil)

		_, err := f.service.UseHint(ctx, "match-1", "alice", []string{"A"})
		assert.ErrorIs(t, err, ErrTurnConflict)
	})
}

func TestGetStandings(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	won := completedMatch("m1", "scenario", "alice", f.now.Add(-30*time.Hour))
	won.WinnerID = "alice"
	won.Scores = map[string]int{"alice": 40, "bob": 10}

	f.store.On("GetPair", ctx, "pair-1").Return(testPair(), nil)
	f.store.On("ListMatches", ctx, mock.MatchedBy(func(filter MatchFilter) bool {
		return filter.Status != nil && *filter.Status == MatchStatusCompleted
	})).Return([]*Match{won}, nil)

	standings, err := f.service.GetStandings(ctx, "pair-1", "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, standings.Played)
	assert.Equal(t, 1, standings.Wins["alice"])

	_, err = f.service.GetStandings(ctx, "pair-1", "carol")
	assert.ErrorIs(t, err, ErrNotPairMember)
}
