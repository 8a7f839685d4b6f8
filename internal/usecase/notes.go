package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rawatapurva/HD-Notes-App/internal/core/domain"
	"github.com/rawatapurva/HD-Notes-App/internal/core/port"
	"github.com/rawatapurva/HD-Notes-App/internal/repository"
)

const (
	maxNoteTitleLength = 200
	maxNoteBodyLength  = 5000
)

// NoteService manages notes owned by an authenticated user.
type NoteService struct {
	notes  port.NoteRepository
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

func NewNoteService(notes port.NoteRepository, log *zap.Logger) (*NoteService, error) {
	if notes == nil {
		return nil, errors.New("note service: note repository is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &NoteService{
		notes:  notes,
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}, nil
}

// WithClock overrides the time source, used in tests.
func (s *NoteService) WithClock(now func() time.Time) *NoteService {
	if now != nil {
		s.now = now
	}
	return s
}

// List returns the user's notes, newest first.
func (s *NoteService) List(ctx context.Context, userID string) ([]domain.Note, error) {
	notes, err := s.notes.ListByUser(ctx, userID)
	if err != nil {
		return nil, dependencyError("list notes", err)
	}
	if notes == nil {
		notes = []domain.Note{}
	}
	return notes, nil
}

func (s *NoteService) Create(ctx context.Context, userID, title, body string) (*domain.Note, error) {
	title = strings.TrimSpace(title)
	if err := validateNoteTitle(title); err != nil {
		return nil, err
	}
	if err := validateNoteBody(body); err != nil {
		return nil, err
	}

	now := s.now()
	note := domain.Note{
		ID:        s.newID(),
		UserID:    userID,
		Title:     title,
		Body:      body,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, dependencyError("create note", err)
	}

	s.logger.Debug("note created", zap.String("user_id", userID), zap.String("note_id", note.ID))
	return &note, nil
}

// Delete removes a note only when it belongs to userID.
func (s *NoteService) Delete(ctx context.Context, userID, noteID string) error {
	if _, err := uuid.Parse(strings.TrimSpace(noteID)); err != nil {
		return &ValidationError{Field: "id", Message: "Invalid note id"}
	}

	if err := s.notes.DeleteByOwner(ctx, userID, strings.TrimSpace(noteID)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNoteNotFound
		}
		return dependencyError("delete note", err)
	}

	s.logger.Debug("note deleted", zap.String("user_id", userID), zap.String("note_id", noteID))
	return nil
}
