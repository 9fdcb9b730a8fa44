package kinesis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/example/promo-cart/internal/infrastructure/store"
	"go.uber.org/zap"
)

const insertEvent = "INSERT"

// FromKinesisRecord decodes a journal event from a Kinesis record that
// carries a DynamoDB stream change. Changes other than inserts yield nil.
func FromKinesisRecord(record events.KinesisEventRecord) (*store.Event, error) {
	var change events.DynamoDBEventRecord
	if err := json.Unmarshal(record.Kinesis.Data, &change); err != nil {
		return nil, fmt.Errorf("unmarshal stream record: %w", err)
	}
	return FromStreamRecord(change)
}

// FromStreamRecord decodes a journal event from a DynamoDB stream record.
func FromStreamRecord(record events.DynamoDBEventRecord) (*store.Event, error) {
	if record.EventName != insertEvent {
		return nil, nil
	}
	return fromImage(record.Change.NewImage)
}

func fromImage(image map[string]events.DynamoDBAttributeValue) (*store.Event, error) {
	if image == nil {
		return nil, fmt.Errorf("stream record has no new image")
	}

	event := &store.Event{
		ID:            stringAttr(image, "id"),
		AggregateID:   stringAttr(image, "aggregate_id"),
		AggregateType: stringAttr(image, "aggregate_type"),
		EventType:     stringAttr(image, "event_type"),
	}
	if event.ID == "" || event.AggregateID == "" || event.EventType == "" {
		return nil, fmt.Errorf("missing required fields: id=%q aggregate_id=%q event_type=%q",
			event.ID, event.AggregateID, event.EventType)
	}

	if v := stringAttr(image, "data"); v != "" {
		event.Data = json.RawMessage(v)
	}
	if v := stringAttr(image, "created_at"); v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		event.Timestamp = t
	}
	if v, ok := image["version"]; ok {
		version, err := v.Integer()
		if err != nil {
			return nil, fmt.Errorf("parse version: %w", err)
		}
		event.Version = int(version)
	}

	return event, nil
}

func stringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	v, ok := image[key]
	if !ok || v.DataType() != events.DataTypeString {
		return ""
	}
	return v.String()
}

// EventHandler consumes one decoded journal event.
type EventHandler func(ctx context.Context, event store.Event) error

// ProcessBatch decodes every record and hands inserts to handle. Records that
// fail to decode or handle are reported as batch item failures so the stream
// retries only those; non-insert changes are skipped.
func ProcessBatch(ctx context.Context, batch events.KinesisEvent, handle EventHandler, log *zap.Logger) events.KinesisEventResponse {
	var failures []events.KinesisBatchItemFailure
	fail := func(record events.KinesisEventRecord, err error) {
		log.Warn("record failed", zap.String("event_id", record.EventID), zap.Error(err))
		failures = append(failures, events.KinesisBatchItemFailure{ItemIdentifier: record.Kinesis.SequenceNumber})
	}

	for _, record := range batch.Records {
		event, err := FromKinesisRecord(record)
		if err != nil {
			fail(record, err)
			continue
		}
		if event == nil {
			continue
		}
		if err := handle(ctx, *event); err != nil {
			fail(record, err)
		}
	}

	log.Info("batch processed",
		zap.Int("records", len(batch.Records)),
		zap.Int("failed", len(failures)),
	)
	return events.KinesisEventResponse{BatchItemFailures: failures}
}
