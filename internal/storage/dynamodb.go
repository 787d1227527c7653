package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cloo-solutions/docinsight/internal/domain"
)

const (
	attrDocID     = "docId"
	attrTimestamp = "extractionTimestamp"
	attrExpiresAt = "expiresAt"

	tableActiveTimeout = 2 * time.Minute
)

// DynamoDBAPI is the subset of *dynamodb.Client the cache table uses.
type DynamoDBAPI interface {
	dynamodb.QueryAPIClient
	dynamodb.DescribeTableAPIClient
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	UpdateTimeToLive(ctx context.Context, params *dynamodb.UpdateTimeToLiveInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateTimeToLiveOutput, error)
}

// DynamoDBStore keeps cache entries in a table keyed by docId (hash) and
// extractionTimestamp (range), with DynamoDB TTL on expiresAt.
type DynamoDBStore struct {
	client DynamoDBAPI
	table  string
}

// NewDynamoDBClient creates a DynamoDB client, pointed at Endpoint when set
// (DynamoDB Local).
func NewDynamoDBClient(awsCfg aws.Config, endpoint string) *dynamodb.Client {
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

func NewDynamoDBStore(client DynamoDBAPI, table string) *DynamoDBStore {
	return &DynamoDBStore{client: client, table: table}
}

type cacheKey struct {
	DocID               string `dynamodbav:"docId"`
	ExtractionTimestamp int64  `dynamodbav:"extractionTimestamp"`
}

type entityItem struct {
	Name    string `dynamodbav:"name"`
	Type    string `dynamodbav:"type"`
	Context string `dynamodbav:"context"`
}

type insightsItem struct {
	Summary    string         `dynamodbav:"summary"`
	KeyPoints  []string       `dynamodbav:"keyPoints"`
	Entities   []entityItem   `dynamodbav:"entities"`
	Answer     string         `dynamodbav:"answer"`
	Confidence float64        `dynamodbav:"confidence"`
	Metadata   map[string]any `dynamodbav:"metadata"`
}

type cacheItem struct {
	DocID               string       `dynamodbav:"docId"`
	ExtractionTimestamp int64        `dynamodbav:"extractionTimestamp"`
	Prompt              string       `dynamodbav:"prompt"`
	Insights            insightsItem `dynamodbav:"insights"`
	ModelID             string       `dynamodbav:"modelId"`
	ChunkCount          int          `dynamodbav:"chunkCount"`
	ExpiresAt           int64        `dynamodbav:"expiresAt"`
}

func toItem(e *domain.CacheEntry) cacheItem {
	entities := make([]entityItem, 0, len(e.Insights.Entities))
	for _, en := range e.Insights.Entities {
		entities = append(entities, entityItem{Name: en.Name, Type: en.Type, Context: en.Context})
	}
	keyPoints := e.Insights.KeyPoints
	if keyPoints == nil {
		keyPoints = []string{}
	}
	metadata := e.Insights.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	return cacheItem{
		DocID:               e.DocumentID,
		ExtractionTimestamp: e.ExtractionTimestamp,
		Prompt:              e.Prompt,
		Insights: insightsItem{
			Summary:    e.Insights.Summary,
			KeyPoints:  keyPoints,
			Entities:   entities,
			Answer:     e.Insights.Answer,
			Confidence: e.Insights.Confidence,
			Metadata:   metadata,
		},
		ModelID:    e.ModelID,
		ChunkCount: e.ChunkCount,
		ExpiresAt:  e.ExpiresAt,
	}
}

func fromItem(it cacheItem) domain.CacheEntry {
	entities := make([]domain.Entity, 0, len(it.Insights.Entities))
	for _, en := range it.Insights.Entities {
		entities = append(entities, domain.Entity{Name: en.Name, Type: en.Type, Context: en.Context})
	}
	keyPoints := it.Insights.KeyPoints
	if keyPoints == nil {
		keyPoints = []string{}
	}
	metadata := it.Insights.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	return domain.CacheEntry{
		DocumentID:          it.DocID,
		ExtractionTimestamp: it.ExtractionTimestamp,
		Prompt:              it.Prompt,
		Insights: domain.Insights{
			Summary:    it.Insights.Summary,
			KeyPoints:  keyPoints,
			Entities:   entities,
			Answer:     it.Insights.Answer,
			Confidence: it.Insights.Confidence,
			Metadata:   metadata,
		},
		ModelID:    it.ModelID,
		ChunkCount: it.ChunkCount,
		ExpiresAt:  it.ExpiresAt,
	}
}

// QueryByDocument returns all entries of a document, newest first. Expired
// entries the TTL sweeper has not removed yet are included.
func (s *DynamoDBStore) QueryByDocument(ctx context.Context, documentID string) ([]domain.CacheEntry, error) {
	keyCond := expression.Key(attrDocID).Equal(expression.Value(documentID))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build query expression: %w", err)
	}

	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false),
	})

	var entries []domain.CacheEntry
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "cache query failed", err)
		}

		var items []cacheItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to decode cache items: %w", err)
		}
		for _, it := range items {
			entries = append(entries, fromItem(it))
		}
	}
	return entries, nil
}

// Put writes a new entry, refusing to replace an existing key.
func (s *DynamoDBStore) Put(ctx context.Context, entry *domain.CacheEntry) error {
	if err := domain.ValidateCacheEntry(entry); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cache entry", err)
	}

	item, err := attributevalue.MarshalMap(toItem(entry))
	if err != nil {
		return fmt.Errorf("failed to encode cache item: %w", err)
	}

	cond := expression.AttributeNotExists(expression.Name(attrTimestamp))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("failed to build put condition: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(s.table),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return domain.ErrCacheEntryExists
		}
		return domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "cache put failed", err)
	}
	return nil
}

// Delete removes one entry by its full key. Deleting a missing key succeeds.
func (s *DynamoDBStore) Delete(ctx context.Context, documentID string, extractionTimestamp int64) error {
	key, err := attributevalue.MarshalMap(cacheKey{DocID: documentID, ExtractionTimestamp: extractionTimestamp})
	if err != nil {
		return fmt.Errorf("failed to encode cache key: %w", err)
	}

	_, err = s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       key,
	})
	if err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "cache delete failed", err)
	}
	return nil
}

// Ping checks that the table is reachable.
func (s *DynamoDBStore) Ping(ctx context.Context) error {
	if _, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)}); err != nil {
		return fmt.Errorf("failed to describe table %s: %w", s.table, err)
	}
	return nil
}

// EnsureTable creates the cache table when it does not exist yet, waits for
// it to become active and enables TTL on expiresAt.
func (s *DynamoDBStore) EnsureTable(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)})
	if err == nil {
		return nil
	}
	var rnf *types.ResourceNotFoundException
	if !errors.As(err, &rnf) {
		return fmt.Errorf("failed to describe table %s: %w", s.table, err)
	}

	_, err = s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.table),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(attrDocID), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(attrTimestamp), AttributeType: types.ScalarAttributeTypeN},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(attrDocID), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(attrTimestamp), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.table, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(s.client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)}, tableActiveTimeout); err != nil {
		return fmt.Errorf("table %s did not become active: %w", s.table, err)
	}

	_, err = s.client.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
		TableName: aws.String(s.table),
		TimeToLiveSpecification: &types.TimeToLiveSpecification{
			AttributeName: aws.String(attrExpiresAt),
			Enabled:       aws.Bool(true),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to enable TTL on %s: %w", s.table, err)
	}
	return nil
}
