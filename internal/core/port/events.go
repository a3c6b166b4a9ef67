package port

import (
	"context"

	"github.com/StoryTeller-v2/back-end/internal/core/domain"
)

// EventPublisher publishes auth lifecycle events to the message bus.
type EventPublisher interface {
	PublishAuthEvent(ctx context.Context, event domain.AuthEvent) error
}
