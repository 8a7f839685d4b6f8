package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func newTestNoteService(t *testing.T, repo *memoryNoteRepository) *NoteService {
	t.Helper()
	svc, err := NewNoteService(repo, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewNoteService returned error: %v", err)
	}
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time {
		now = now.Add(time.Second)
		return now
	})
	return svc
}

func TestNoteServiceCreateAndList(t *testing.T) {
	repo := &memoryNoteRepository{}
	svc := newTestNoteService(t, repo)
	ctx := context.Background()

	first, err := svc.Create(ctx, "u-1", "  Groceries ", "milk")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if first.Title != "Groceries" || first.UserID != "u-1" || first.ID == "" {
		t.Fatalf("unexpected note %+v", first)
	}
	if _, err := svc.Create(ctx, "u-1", "Todo", ""); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if _, err := svc.Create(ctx, "u-2", "Other", ""); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	notes, err := svc.List(ctx, "u-1")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(notes) != 2 || notes[0].Title != "Todo" {
		t.Fatalf("expected own notes newest first, got %+v", notes)
	}

	empty, err := svc.List(ctx, "nobody")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v, %v", empty, err)
	}
}

func TestNoteServiceCreateValidation(t *testing.T) {
	svc := newTestNoteService(t, &memoryNoteRepository{})
	ctx := context.Background()

	cases := []struct {
		title, body, message string
	}{
		{title: "   ", message: "Title is required"},
		{title: strings.Repeat("t", 201), message: "Title must be at most 200 characters"},
		{title: "ok", body: strings.Repeat("b", 5001), message: "Body must be at most 5000 characters"},
	}
	for _, tc := range cases {
		_, err := svc.Create(ctx, "u-1", tc.title, tc.body)
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Message != tc.message {
			t.Fatalf("expected %q, got %v", tc.message, err)
		}
	}

	if _, err := svc.Create(ctx, "u-1", strings.Repeat("t", 200), strings.Repeat("b", 5000)); err != nil {
		t.Fatalf("limits should be inclusive: %v", err)
	}
}

func TestNoteServiceDelete(t *testing.T) {
	repo := &memoryNoteRepository{}
	svc := newTestNoteService(t, repo)
	ctx := context.Background()

	note, err := svc.Create(ctx, "u-1", "Mine", "")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := svc.Delete(ctx, "u-2", note.ID); !errors.Is(err, ErrNoteNotFound) {
		t.Fatalf("foreign delete should look like not found, got %v", err)
	}
	if err := svc.Delete(ctx, "u-1", "not-a-uuid"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for malformed id, got %v", err)
	}
	if err := svc.Delete(ctx, "u-1", note.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if len(repo.notes) != 0 {
		t.Fatalf("note should be removed")
	}
}

func TestNoteServiceDependencyFailure(t *testing.T) {
	svc := newTestNoteService(t, &memoryNoteRepository{createErr: errors.New("db down")})

	if _, err := svc.Create(context.Background(), "u-1", "Title", ""); !errors.Is(err, ErrDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
