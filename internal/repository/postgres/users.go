package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/rawatapurva/HD-Notes-App/internal/core/domain"
	"github.com/rawatapurva/HD-Notes-App/internal/core/port"
	"github.com/rawatapurva/HD-Notes-App/internal/repository"
)

const usersTable = "notes.users"

var userColumns = []string{
	"id",
	"email",
	"name",
	"dob",
	"provider",
	"google_id",
	"created_at",
	"updated_at",
}

// UserRepository implements port.UserRepository using PostgreSQL.
type UserRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository wires a PostgreSQL-backed user repository.
func NewUserRepository(exec pgExecutor) *UserRepository {
	return &UserRepository{
		exec:    exec,
		builder: newBuilder(),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *UserRepository) WithTx(tx pgx.Tx) *UserRepository {
	if tx == nil {
		return r
	}
	return &UserRepository{exec: tx, builder: r.builder}
}

// Create inserts a new user row. A duplicate email yields repository.ErrConflict.
func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	stmt, args, err := r.builder.Insert(usersTable).
		Columns(userColumns...).
		Values(
			user.ID,
			user.Email,
			user.Name,
			user.DOB,
			string(user.Provider),
			user.GoogleID,
			user.CreatedAt,
			user.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByEmail retrieves a user by normalized email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, squirrel.Eq{"email": email})
}

func (r *UserRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(userColumns...).
		From(usersTable).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	var (
		user     domain.User
		provider string
	)
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.DOB,
		&provider,
		&user.GoogleID,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	user.Provider = domain.AuthProvider(provider)

	return &user, nil
}

// UpdateProfile overwrites name and date of birth.
func (r *UserRepository) UpdateProfile(ctx context.Context, id string, name string, dob *time.Time, updatedAt time.Time) error {
	stmt, args, err := r.builder.Update(usersTable).
		Set("name", name).
		Set("dob", dob).
		Set("updated_at", updatedAt).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update user profile sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update user profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// LinkGoogle attaches a Google subject id to an account that has none.
func (r *UserRepository) LinkGoogle(ctx context.Context, id string, googleID string, updatedAt time.Time) error {
	stmt, args, err := r.builder.Update(usersTable).
		Set("google_id", googleID).
		Set("updated_at", updatedAt).
		Where(squirrel.And{
			squirrel.Eq{"id": id},
			squirrel.Eq{"google_id": nil},
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build link google sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("link google account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.UserRepository = (*UserRepository)(nil)
