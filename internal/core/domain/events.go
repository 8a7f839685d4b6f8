package domain

import "time"

// UserRegisteredEvent represents the payload for notes.user.registered messages.
type UserRegisteredEvent struct {
	EventID      string
	UserID       string
	Email        string
	Provider     AuthProvider
	RegisteredAt time.Time
	Metadata     map[string]any
}

// UserSignedInEvent represents the payload for notes.user.signed_in messages.
type UserSignedInEvent struct {
	EventID  string
	UserID   string
	Method   string
	SignedAt time.Time
	Metadata map[string]any
}

// GoogleAccountLinkedEvent represents the payload for notes.user.google_linked messages.
type GoogleAccountLinkedEvent struct {
	EventID  string
	UserID   string
	GoogleID string
	LinkedAt time.Time
	Metadata map[string]any
}
