package port

import (
	"context"

	"github.com/rawatapurva/HD-Notes-App/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error
	PublishUserSignedIn(ctx context.Context, event domain.UserSignedInEvent) error
	PublishGoogleAccountLinked(ctx context.Context, event domain.GoogleAccountLinkedEvent) error
}
