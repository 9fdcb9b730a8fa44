package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// gsi1Events is the fixed GSI1 partition that lists every event.
const gsi1Events = "EVENTS"

// DynamoAPI is the part of *dynamodb.Client the journal uses.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoEventStore stores the journal in DynamoDB. New items reach the Lambda
// notifier through the table's Kinesis stream, so nothing is published here.
type DynamoEventStore struct {
	client    DynamoAPI
	tableName string
}

type dynamoEvent struct {
	AggregateID   string `dynamodbav:"aggregate_id"`
	Version       int    `dynamodbav:"version"`
	ID            string `dynamodbav:"id"`
	AggregateType string `dynamodbav:"aggregate_type"`
	EventType     string `dynamodbav:"event_type"`
	Data          string `dynamodbav:"data"`
	CreatedAt     string `dynamodbav:"created_at"`
	GSI1PK        string `dynamodbav:"gsi1pk"`
}

func NewDynamoEventStore(client DynamoAPI, tableName string) *DynamoEventStore {
	return &DynamoEventStore{
		client:    client,
		tableName: tableName,
	}
}

// Append writes the event with a conditional put so two writers can never
// claim the same version; the loser retries with a fresh version.
func (es *DynamoEventStore) Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*Event, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	event, err := retryOnConflict(ctx, func() (Event, error) {
		return es.putNext(ctx, aggregateID, aggregateType, eventType, jsonData)
	})
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (es *DynamoEventStore) putNext(ctx context.Context, aggregateID, aggregateType, eventType string, jsonData []byte) (Event, error) {
	version, err := es.nextVersion(ctx, aggregateID)
	if err != nil {
		return Event{}, fmt.Errorf("get next version: %w", err)
	}

	timestamp := time.Now().UTC()
	item := dynamoEvent{
		AggregateID:   aggregateID,
		Version:       version,
		ID:            uuid.New().String(),
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          string(jsonData),
		CreatedAt:     timestamp.Format(time.RFC3339Nano),
		GSI1PK:        gsi1Events,
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return Event{}, fmt.Errorf("marshal event: %w", err)
	}

	_, err = es.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(es.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(aggregate_id) AND attribute_not_exists(version)"),
	})
	var conflict *types.ConditionalCheckFailedException
	if errors.As(err, &conflict) {
		return Event{}, fmt.Errorf("put %s v%d: %w", aggregateID, version, ErrVersionConflict)
	}
	if err != nil {
		return Event{}, fmt.Errorf("put event: %w", err)
	}

	event := item.toEvent()
	event.Timestamp = timestamp
	return event, nil
}

func (es *DynamoEventStore) nextVersion(ctx context.Context, aggregateID string) (int, error) {
	result, err := es.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(es.tableName),
		KeyConditionExpression: aws.String("aggregate_id = :aid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":aid": &types.AttributeValueMemberS{Value: aggregateID},
		},
		ScanIndexForward:     aws.Bool(false),
		Limit:                aws.Int32(1),
		ProjectionExpression: aws.String("version"),
	})
	if err != nil {
		return 0, err
	}

	if len(result.Items) == 0 {
		return 1, nil
	}

	var item struct {
		Version int `dynamodbav:"version"`
	}
	if err := attributevalue.UnmarshalMap(result.Items[0], &item); err != nil {
		return 0, err
	}

	return item.Version + 1, nil
}

func (es *DynamoEventStore) GetEvents(ctx context.Context, aggregateID string) ([]Event, error) {
	result, err := es.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(es.tableName),
		KeyConditionExpression: aws.String("aggregate_id = :aid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":aid": &types.AttributeValueMemberS{Value: aggregateID},
		},
		ScanIndexForward: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}

	return unmarshalEvents(result.Items)
}

// GetAllEvents reads GSI1, which orders every event by created_at.
func (es *DynamoEventStore) GetAllEvents(ctx context.Context) ([]Event, error) {
	result, err := es.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(es.tableName),
		IndexName:              aws.String("GSI1"),
		KeyConditionExpression: aws.String("gsi1pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: gsi1Events},
		},
		ScanIndexForward: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query all events: %w", err)
	}

	return unmarshalEvents(result.Items)
}

func (de dynamoEvent) toEvent() Event {
	timestamp, _ := time.Parse(time.RFC3339Nano, de.CreatedAt)
	return Event{
		ID:            de.ID,
		AggregateID:   de.AggregateID,
		AggregateType: de.AggregateType,
		EventType:     de.EventType,
		Data:          json.RawMessage(de.Data),
		Timestamp:     timestamp,
		Version:       de.Version,
	}
}

func unmarshalEvents(items []map[string]types.AttributeValue) ([]Event, error) {
	events := make([]Event, 0, len(items))
	for _, item := range items {
		var de dynamoEvent
		if err := attributevalue.UnmarshalMap(item, &de); err != nil {
			return nil, fmt.Errorf("unmarshal event: %w", err)
		}
		events = append(events, de.toEvent())
	}
	return events, nil
}
