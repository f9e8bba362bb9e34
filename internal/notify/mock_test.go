package notify

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/stretchr/testify/mock"
	"github.com/wneessen/go-mail"

	"linked-go/internal/game"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyTurnChanged(ctx context.Context, matchID string, playerID string) error {
	args := m.Called(ctx, matchID, playerID)
	return args.Error(0)
}

type MockLambda struct {
	mock.Mock
}

func (m *MockLambda) Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*lambda.InvokeOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockSender struct {
	mock.Mock
}

func (m *MockSender) DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error {
	args := m.Called(ctx, messages)
	return args.Error(0)
}

type stubMatches map[string][]string

func (s stubMatches) GetMatch(_ context.Context, matchID string, playerID string) (*game.Match, error) {
	players, ok := s[matchID]
	if !ok {
		return nil, game.ErrMatchNotFound
	}
	for _, p := range players {
		if p == playerID {
			return &game.Match{ID: matchID}, nil
		}
	}
	return nil, game.ErrNotMatchPlayer
}

type chanSource chan game.MatchEvent

func (c chanSource) Subscribe(int) (<-chan game.MatchEvent, func()) {
	return c, func() {}
}
