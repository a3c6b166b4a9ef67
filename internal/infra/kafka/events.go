package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/StoryTeller-v2/back-end/internal/core/domain"
	"github.com/StoryTeller-v2/back-end/internal/core/port"
	"github.com/StoryTeller-v2/back-end/internal/infra/config"
)

const (
	schemaVersion = "1.0"
	authTopic     = "auth.events"
)

// EventPublisher publishes auth events to Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

var _ port.EventPublisher = (*EventPublisher)(nil)

func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type eventEnvelope struct {
	EventID     string            `json:"event_id"`
	EventType   string            `json:"event_type"`
	AuthMethod  string            `json:"auth_method,omitempty"`
	IdentityKey string            `json:"identity_key,omitempty"`
	Provider    string            `json:"provider,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	Version     string            `json:"version"`
	Payload     map[string]any    `json:"payload,omitempty"`
	Metadata    map[string]string `json:"metadata"`
}

// PublishAuthEvent enqueues the event on the auth topic, keyed by identity so
// that one identity's events stay ordered within a partition.
func (p *EventPublisher) PublishAuthEvent(ctx context.Context, event domain.AuthEvent) error {
	envelope := p.envelope(ctx, event)

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(authTopic),
		Key:   sarama.StringEncoder(event.IdentityKey),
		Value: sarama.ByteEncoder(bytes),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(envelope.EventType)},
		},
	}

	select {
	case p.producer.Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *EventPublisher) envelope(ctx context.Context, event domain.AuthEvent) eventEnvelope {
	ts := event.OccurredAt
	if ts.IsZero() {
		ts = time.Now()
	}

	id := event.EventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := map[string]string{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		metadata["trace_id"] = sc.TraceID().String()
	}

	return eventEnvelope{
		EventID:     id,
		EventType:   string(event.Type),
		AuthMethod:  string(event.Method),
		IdentityKey: event.IdentityKey,
		Provider:    event.Provider,
		Timestamp:   ts.UTC(),
		Version:     schemaVersion,
		Payload:     event.Metadata,
		Metadata:    metadata,
	}
}
