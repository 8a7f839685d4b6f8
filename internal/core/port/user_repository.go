package port

import (
	"context"
	"time"

	"github.com/rawatapurva/HD-Notes-App/internal/core/domain"
)

// UserRepository exposes persistence behavior for users. Lookups by email
// expect an already normalized address.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id string, name string, dob *time.Time, updatedAt time.Time) error
	LinkGoogle(ctx context.Context, id string, googleID string, updatedAt time.Time) error
}

// NoteRepository persists notes scoped to their owner.
type NoteRepository interface {
	Create(ctx context.Context, note domain.Note) error
	ListByUser(ctx context.Context, userID string) ([]domain.Note, error)
	DeleteByOwner(ctx context.Context, userID, noteID string) error
}
