package game

import (
	"context"

	"github.com/stretchr/testify/mock"

	"linked-go/internal/puzzle"
)

// MockStore is a mock implementation of Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateMatch(ctx context.Context, match *Match) error {
	args := m.Called(ctx, match)
	return args.Error(0)
}

func (m *MockStore) GetMatch(ctx context.Context, id string) (*Match, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Match).Clone(), args.Error(1)
}

func (m *MockStore) UpdateMatch(ctx context.Context, match *Match, expectedVersion int) error {
	args := m.Called(ctx, match, expectedVersion)
	return args.Error(0)
}

func (m *MockStore) ListMatches(ctx context.Context, filter MatchFilter) ([]*Match, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Match), args.Error(1)
}

func (m *MockStore) CreatePair(ctx context.Context, pair *Pair) error {
	args := m.Called(ctx, pair)
	return args.Error(0)
}

func (m *MockStore) GetPair(ctx context.Context, id string) (*Pair, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Pair), args.Error(1)
}

// MockRackDealer is a mock implementation of RackDealer
type MockRackDealer struct {
	mock.Mock
}

func (m *MockRackDealer) Deal(match *Match, p *puzzle.Puzzle) []string {
	args := m.Called(match, p)
	return args.Get(0).([]string)
}

// MockGameService is a mock implementation of GameService
type MockGameService struct {
	mock.Mock
}

func (m *MockGameService) GetOrCreateMatch(ctx context.Context, pairID string, playerID string) (*Match, error) {
	args := m.Called(ctx, pairID, playerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Match), args.Error(1)
}

func (m *MockGameService) GetMatch(ctx context.Context, matchID string, playerID string) (*Match, error) {
	args := m.Called(ctx, matchID, playerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Match), args.Error(1)
}

func (m *MockGameService) SubmitTurn(ctx context.Context, matchID string, playerID string, placements []Placement) (*TurnSubmissionResult, error) {
	args := m.Called(ctx, matchID, playerID, placements)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*TurnSubmissionResult), args.Error(1)
}

func (m *MockGameService) UseHint(ctx context.Context, matchID string, playerID string, remaining []string) (*HintResult, error) {
	args := m.Called(ctx, matchID, playerID, remaining)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*HintResult), args.Error(1)
}

func (m *MockGameService) GetStandings(ctx context.Context, pairID string, playerID string) (*Standings, error) {
	args := m.Called(ctx, pairID, playerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Standings), args.Error(1)
}

func (m *MockGameService) Subscribe(buffer int) (<-chan MatchEvent, func()) {
	args := m.Called(buffer)
	return args.Get(0).(<-chan MatchEvent), args.Get(1).(func())
}
