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

	"github.com/rawatapurva/HD-Notes-App/internal/core/domain"
	"github.com/rawatapurva/HD-Notes-App/internal/core/port"
	"github.com/rawatapurva/HD-Notes-App/internal/infra/config"
)

const schemaVersion = "1.0"

const (
	TopicUserRegistered      = "notes.user.registered"
	TopicUserSignedIn        = "notes.user.signed_in"
	TopicGoogleAccountLinked = "notes.user.google_linked"
)

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	UserID    string           `json:"user_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}
	if userID != "" {
		message.Key = sarama.StringEncoder(userID)
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishUserRegistered publishes notes.user.registered events.
func (p *EventPublisher) PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error {
	payload := struct {
		UserID       string         `json:"user_id"`
		Email        string         `json:"email"`
		Provider     string         `json:"provider"`
		RegisteredAt time.Time      `json:"registered_at"`
		Metadata     map[string]any `json:"metadata,omitempty"`
	}{
		UserID:       event.UserID,
		Email:        event.Email,
		Provider:     string(event.Provider),
		RegisteredAt: event.RegisteredAt.UTC(),
		Metadata:     event.Metadata,
	}

	return p.publish(ctx, event.EventID, TopicUserRegistered, event.UserID, event.RegisteredAt, payload)
}

// PublishUserSignedIn publishes notes.user.signed_in events.
func (p *EventPublisher) PublishUserSignedIn(ctx context.Context, event domain.UserSignedInEvent) error {
	payload := struct {
		UserID   string         `json:"user_id"`
		Method   string         `json:"method"`
		SignedAt time.Time      `json:"signed_at"`
		Metadata map[string]any `json:"metadata,omitempty"`
	}{
		UserID:   event.UserID,
		Method:   event.Method,
		SignedAt: event.SignedAt.UTC(),
		Metadata: event.Metadata,
	}

	return p.publish(ctx, event.EventID, TopicUserSignedIn, event.UserID, event.SignedAt, payload)
}

// PublishGoogleAccountLinked publishes notes.user.google_linked events.
func (p *EventPublisher) PublishGoogleAccountLinked(ctx context.Context, event domain.GoogleAccountLinkedEvent) error {
	payload := struct {
		UserID   string         `json:"user_id"`
		GoogleID string         `json:"google_id"`
		LinkedAt time.Time      `json:"linked_at"`
		Metadata map[string]any `json:"metadata,omitempty"`
	}{
		UserID:   event.UserID,
		GoogleID: event.GoogleID,
		LinkedAt: event.LinkedAt.UTC(),
		Metadata: event.Metadata,
	}

	return p.publish(ctx, event.EventID, TopicGoogleAccountLinked, event.UserID, event.LinkedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
