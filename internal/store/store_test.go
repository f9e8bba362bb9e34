package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linked-go/internal/game"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testPair(id string) *game.Pair {
	return &game.Pair{ID: id, PlayerA: "alice", PlayerB: "bob", CreatedAt: baseTime}
}

func testMatch(id string, pair *game.Pair, created time.Time) *game.Match {
	m := game.NewMatch(id, pair, "puzzle-"+id, pair.PlayerA, 3, created)
	m.Rack = []string{"A", "B"}
	return m
}

// testStore runs the behaviour every game.Store implementation shares.
func testStore(t *testing.T, newStore func(t *testing.T) game.Store) {
	ctx := context.Background()

	t.Run("pair round trip", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreatePair(ctx, testPair("p1")))

		got, err := s.GetPair(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, testPair("p1"), got)

		_, err = s.GetPair(ctx, "missing")
		assert.ErrorIs(t, err, game.ErrPairNotFound)
	})

	t.Run("match round trip", func(t *testing.T) {
		s := newStore(t)
		pair := testPair("p1")
		require.NoError(t, s.CreatePair(ctx, pair))

		m := testMatch("m1", pair, baseTime)
		m.Board[4] = "Q"
		require.NoError(t, s.CreateMatch(ctx, m))

		got, err := s.GetMatch(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, m, got)

		_, err = s.GetMatch(ctx, "missing")
		assert.ErrorIs(t, err, game.ErrMatchNotFound)
	})

	t.Run("update checks version", func(t *testing.T) {
		s := newStore(t)
		pair := testPair("p1")
		require.NoError(t, s.CreatePair(ctx, pair))
		m := testMatch("m1", pair, baseTime)
		require.NoError(t, s.CreateMatch(ctx, m))

		updated := m.Clone()
		updated.Board[0] = "A"
		updated.Scores["alice"] = 10
		updated.CurrentTurnUserID = "bob"
		updated.TurnNumber = 1
		updated.Rack = []string{}
		updated.Version = 2
		updated.UpdatedAt = baseTime.Add(time.Minute)
		require.NoError(t, s.UpdateMatch(ctx, updated, 1))

		got, err := s.GetMatch(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, updated, got)

		stale := m.Clone()
		stale.Version = 2
		err = s.UpdateMatch(ctx, stale, 1)
		assert.ErrorIs(t, err, game.ErrVersionConflict)

		got, err = s.GetMatch(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, updated, got)

		missing := testMatch("nope", pair, baseTime)
		assert.ErrorIs(t, s.UpdateMatch(ctx, missing, 1), game.ErrMatchNotFound)
	})

	t.Run("completed match keeps completion fields", func(t *testing.T) {
		s := newStore(t)
		pair := testPair("p1")
		require.NoError(t, s.CreatePair(ctx, pair))
		m := testMatch("m1", pair, baseTime)
		require.NoError(t, s.CreateMatch(ctx, m))

		done := m.Clone()
		completed := baseTime.Add(time.Hour)
		done.Status = game.MatchStatusCompleted
		done.WinnerID = "bob"
		done.CompletedAt = &completed
		done.Rack = []string{}
		done.Version = 2
		require.NoError(t, s.UpdateMatch(ctx, done, 1))

		got, err := s.GetMatch(ctx, "m1")
		require.NoError(t, err)
		require.NotNil(t, got.CompletedAt)
		assert.True(t, completed.Equal(*got.CompletedAt))
		assert.Equal(t, "bob", got.WinnerID)
		assert.False(t, got.IsActive())
	})

	t.Run("list filters and orders newest first", func(t *testing.T) {
		s := newStore(t)
		p1, p2 := testPair("p1"), testPair("p2")
		require.NoError(t, s.CreatePair(ctx, p1))
		require.NoError(t, s.CreatePair(ctx, p2))

		require.NoError(t, s.CreateMatch(ctx, testMatch("m1", p1, baseTime)))
		require.NoError(t, s.CreateMatch(ctx, testMatch("m2", p1, baseTime.Add(time.Hour))))
		require.NoError(t, s.CreateMatch(ctx, testMatch("m3", p2, baseTime.Add(2*time.Hour))))
		require.NoError(t, s.CreateMatch(ctx, testMatch("m4", p1, baseTime.Add(3*time.Hour))))

		done := testMatch("m2", p1, baseTime.Add(time.Hour))
		done.Status = game.MatchStatusCompleted
		done.Version = 2
		require.NoError(t, s.UpdateMatch(ctx, done, 1))

		ids := func(ms []*game.Match) []string {
			out := make([]string, 0, len(ms))
			for _, m := range ms {
				out = append(out, m.ID)
			}
			return out
		}

		active := game.MatchStatusActive
		tests := []struct {
			name   string
			filter game.MatchFilter
			want   []string
		}{
			{"all", game.MatchFilter{}, []string{"m4", "m3", "m2", "m1"}},
			{"by pair", game.MatchFilter{PairID: "p1"}, []string{"m4", "m2", "m1"}},
			{"by status", game.MatchFilter{PairID: "p1", Status: &active}, []string{"m4", "m1"}},
			{"limit", game.MatchFilter{Limit: 2}, []string{"m4", "m3"}},
			{"limit offset", game.MatchFilter{Limit: 2, Offset: 1}, []string{"m3", "m2"}},
			{"offset only", game.MatchFilter{Offset: 3}, []string{"m1"}},
			{"offset past end", game.MatchFilter{Offset: 10}, []string{}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := s.ListMatches(ctx, tt.filter)
				require.NoError(t, err)
				assert.Equal(t, tt.want, ids(got))
			})
		}
	})

	t.Run("returned matches are copies", func(t *testing.T) {
		s := newStore(t)
		pair := testPair("p1")
		require.NoError(t, s.CreatePair(ctx, pair))
		require.NoError(t, s.CreateMatch(ctx, testMatch("m1", pair, baseTime)))

		got, err := s.GetMatch(ctx, "m1")
		require.NoError(t, err)
		got.Board[0] = "Z"
		got.Scores["alice"] = 99

		again, err := s.GetMatch(ctx, "m1")
		require.NoError(t, err)
		assert.Empty(t, again.Board)
		assert.Equal(t, 0, again.Scores["alice"])
	})
}
