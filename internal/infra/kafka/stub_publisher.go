package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/StoryTeller-v2/back-end/internal/core/domain"
	"github.com/StoryTeller-v2/back-end/internal/core/port"
	"github.com/StoryTeller-v2/back-end/internal/infra/logger"
)

// StubPublisher logs events instead of sending them to Kafka.
type StubPublisher struct {
	logger *zap.Logger
}

var _ port.EventPublisher = (*StubPublisher)(nil)

func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) PublishAuthEvent(_ context.Context, event domain.AuthEvent) error {
	at := event.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", string(event.Type)),
		zap.String("auth_method", string(event.Method)),
		zap.String("identity", logger.MaskIdentity(event.IdentityKey)),
		zap.String("provider", event.Provider),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", event.Metadata),
	)
	return nil
}
