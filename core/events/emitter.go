package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Event kinds consumed by the downstream search-index synchronizer.
const (
	KindEntitySync   = "entity.sync"
	KindEntityRemove = "entity.remove"
)

// EntityEvent tells downstream consumers to reindex or drop an entity.
type EntityEvent struct {
	Kind       string    `json:"kind"`
	EntityType string    `json:"entityType"`
	TenantID   uuid.UUID `json:"tenantId"`
	EntityID   uuid.UUID `json:"entityId"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Emitter publishes entity lifecycle events. Emission is best-effort by
// contract: callers fire it after their transaction has committed and
// log failures instead of propagating them.
type Emitter interface {
	EmitSync(ctx context.Context, entityType string, tenantID, entityID uuid.UUID) error
	EmitRemove(ctx context.Context, entityType string, tenantID, entityID uuid.UUID) error
	Close() error
}

type kafkaEmitter struct {
	writer *kafka.Writer
}

// NewEmitter creates a Kafka-backed emitter.
func NewEmitter(cfg Config) Emitter {
	brokers := strings.Split(cfg.Brokers, ",")
	batchTimeout := time.Duration(cfg.BatchTimeoutMs) * time.Millisecond
	if batchTimeout <= 0 {
		batchTimeout = 100 * time.Millisecond
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           batchTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}

	return &kafkaEmitter{writer: writer}
}

func (e *kafkaEmitter) EmitSync(ctx context.Context, entityType string, tenantID, entityID uuid.UUID) error {
	return e.emit(ctx, KindEntitySync, entityType, tenantID, entityID)
}

func (e *kafkaEmitter) EmitRemove(ctx context.Context, entityType string, tenantID, entityID uuid.UUID) error {
	return e.emit(ctx, KindEntityRemove, entityType, tenantID, entityID)
}

func (e *kafkaEmitter) emit(ctx context.Context, kind, entityType string, tenantID, entityID uuid.UUID) error {
	event := EntityEvent{
		Kind:       kind,
		EntityType: entityType,
		TenantID:   tenantID,
		EntityID:   entityID,
		OccurredAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return e.writer.WriteMessages(ctx, kafka.Message{
		// Key by entity so reindex/remove for the same entity stay ordered
		Key:   []byte(entityID.String()),
		Value: payload,
	})
}

func (e *kafkaEmitter) Close() error {
	return e.writer.Close()
}

// NopEmitter discards all events. Used when event emission is disabled
// and in tests.
type NopEmitter struct{}

func (NopEmitter) EmitSync(context.Context, string, uuid.UUID, uuid.UUID) error   { return nil }
func (NopEmitter) EmitRemove(context.Context, string, uuid.UUID, uuid.UUID) error { return nil }
func (NopEmitter) Close() error                                                   { return nil }
