package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rawatapurva/HD-Notes-App/internal/core/domain"
	"github.com/rawatapurva/HD-Notes-App/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Selected when no brokers are configured.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Debug("stub event published",
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishUserRegistered logs notes.user.registered events.
func (p *StubPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	payload := map[string]any{
		"user_id":       event.UserID,
		"provider":      event.Provider,
		"registered_at": event.RegisteredAt,
		"metadata":      event.Metadata,
	}
	p.logEvent(TopicUserRegistered, event.UserID, event.RegisteredAt, payload)
	return nil
}

// PublishUserSignedIn logs notes.user.signed_in events.
func (p *StubPublisher) PublishUserSignedIn(_ context.Context, event domain.UserSignedInEvent) error {
	payload := map[string]any{
		"user_id":   event.UserID,
		"method":    event.Method,
		"signed_at": event.SignedAt,
	}
	p.logEvent(TopicUserSignedIn, event.UserID, event.SignedAt, payload)
	return nil
}

// PublishGoogleAccountLinked logs notes.user.google_linked events.
func (p *StubPublisher) PublishGoogleAccountLinked(_ context.Context, event domain.GoogleAccountLinkedEvent) error {
	payload := map[string]any{
		"user_id":   event.UserID,
		"linked_at": event.LinkedAt,
	}
	p.logEvent(TopicGoogleAccountLinked, event.UserID, event.LinkedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
