package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/rawatapurva/HD-Notes-App/internal/core/domain"
	"github.com/rawatapurva/HD-Notes-App/internal/core/port"
	"github.com/rawatapurva/HD-Notes-App/internal/repository"
)

const notesTable = "notes.notes"

// NoteRepository implements port.NoteRepository using PostgreSQL.
type NoteRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

func NewNoteRepository(exec pgExecutor) *NoteRepository {
	return &NoteRepository{exec: exec, builder: newBuilder()}
}

func (r *NoteRepository) Create(ctx context.Context, note domain.Note) error {
	stmt, args, err := r.builder.Insert(notesTable).
		Columns("id", "user_id", "title", "body", "created_at", "updated_at").
		Values(note.ID, note.UserID, note.Title, note.Body, note.CreatedAt, note.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert note sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

// ListByUser returns the owner's notes, newest first.
func (r *NoteRepository) ListByUser(ctx context.Context, userID string) ([]domain.Note, error) {
	stmt, args, err := r.builder.
		Select("id", "user_id", "title", "body", "created_at", "updated_at").
		From(notesTable).
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list notes sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	notes := make([]domain.Note, 0)
	for rows.Next() {
		var n domain.Note
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}

	return notes, nil
}

// DeleteByOwner removes a note only when it belongs to userID.
func (r *NoteRepository) DeleteByOwner(ctx context.Context, userID, noteID string) error {
	stmt, args, err := r.builder.Delete(notesTable).
		Where(squirrel.And{
			squirrel.Eq{"id": noteID},
			squirrel.Eq{"user_id": userID},
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete note sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ port.NoteRepository = (*NoteRepository)(nil)
