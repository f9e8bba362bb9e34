package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	DefaultSnapshotTable = "match_snapshots"
	PlayerSnapshotsIndex = "player_snapshots"
)

// TableAPI is the part of the DynamoDB client used to manage tables
type TableAPI interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

type SchemaService struct {
	client TableAPI
}

func NewSchemaService(client TableAPI) *SchemaService {
	return &SchemaService{client: client}
}

// CreateTables creates the snapshot table unless it already exists
func (s *SchemaService) CreateTables(ctx context.Context, snapshotTable string) error {
	if snapshotTable == "" {
		snapshotTable = DefaultSnapshotTable
	}

	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(snapshotTable)})
	if err == nil {
		return nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("failed to describe table %s: %w", snapshotTable, err)
	}

	if _, err := s.client.CreateTable(ctx, SnapshotTableSchema(snapshotTable)); err != nil {
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			return nil
		}
		return fmt.Errorf("failed to create table %s: %w", snapshotTable, err)
	}
	return nil
}

// SnapshotTableSchema keys snapshots by match and player, with an index to
// list a player's snapshots by save time.
func SnapshotTableSchema(name string) *dynamodb.CreateTableInput {
	return &dynamodb.CreateTableInput{
		TableName: aws.String(name),
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String("match_id"),
				AttributeType: types.ScalarAttributeTypeS,
			},
			{
				AttributeName: aws.String("player_id"),
				AttributeType: types.ScalarAttributeTypeS,
			},
			{
				AttributeName: aws.String("saved_at"),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String("match_id"),
				KeyType:       types.KeyTypeHash,
			},
			{
				AttributeName: aws.String("player_id"),
				KeyType:       types.KeyTypeRange,
			},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName: aws.String(PlayerSnapshotsIndex),
				KeySchema: []types.KeySchemaElement{
					{
						AttributeName: aws.String("player_id"),
						KeyType:       types.KeyTypeHash,
					},
					{
						AttributeName: aws.String("saved_at"),
						KeyType:       types.KeyTypeRange,
					},
				},
				Projection: &types.Projection{
					ProjectionType: types.ProjectionTypeAll,
				},
			},
		},
		BillingMode: types.BillingModePayPerRequest,
	}
}
