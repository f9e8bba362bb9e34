package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"linked-go/internal/game"
)

// DynamoAPI is the part of the DynamoDB client DynamoStore uses
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoStore keeps snapshots in a table keyed by match_id and player_id.
// The match view is stored as JSON in the state attribute.
type DynamoStore struct {
	client DynamoAPI
	table  string
	now    func() time.Time
}

func NewDynamoStore(client DynamoAPI, table string) *DynamoStore {
	return &DynamoStore{client: client, table: table, now: time.Now}
}

func (s *DynamoStore) Save(ctx context.Context, playerID string, match *game.Match) error {
	if err := validKey(match.ID, playerID); err != nil {
		return err
	}
	state, err := json.Marshal(match)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item: map[string]types.AttributeValue{
			"match_id":  &types.AttributeValueMemberS{Value: match.ID},
			"player_id": &types.AttributeValueMemberS{Value: playerID},
			"saved_at":  &types.AttributeValueMemberS{Value: s.now().UTC().Format(time.RFC3339Nano)},
			"version":   &types.AttributeValueMemberN{Value: fmt.Sprint(match.Version)},
			"state":     &types.AttributeValueMemberS{Value: string(state)},
		},
		// never replace a newer view with an older one
		ConditionExpression: aws.String("attribute_not_exists(match_id) OR version <= :version"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":version": &types.AttributeValueMemberN{Value: fmt.Sprint(match.Version)},
		},
	})
	if err != nil {
		var stale *types.ConditionalCheckFailedException
		if errors.As(err, &stale) {
			return nil
		}
		return fmt.Errorf("failed to put snapshot: %w", err)
	}
	return nil
}

func (s *DynamoStore) Load(ctx context.Context, matchID, playerID string) (*Snapshot, error) {
	if err := validKey(matchID, playerID); err != nil {
		return nil, err
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"match_id":  &types.AttributeValueMemberS{Value: matchID},
			"player_id": &types.AttributeValueMemberS{Value: playerID},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}

	state, ok := out.Item["state"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, fmt.Errorf("failed to decode snapshot: missing state")
	}
	var match game.Match
	if err := json.Unmarshal([]byte(state.Value), &match); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	snap := &Snapshot{MatchID: matchID, PlayerID: playerID, Match: &match}
	if saved, ok := out.Item["saved_at"].(*types.AttributeValueMemberS); ok {
		if t, err := time.Parse(time.RFC3339Nano, saved.Value); err == nil {
			snap.SavedAt = t
		}
	}
	return snap, nil
}
