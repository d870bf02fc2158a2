package postgres

import (
	"errors"
	"fmt"
	"time"

	"context"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Bigalan09/PlayShelf-sub000/internal/core/domain"
	"github.com/Bigalan09/PlayShelf-sub000/internal/core/port"
	"github.com/Bigalan09/PlayShelf-sub000/internal/repository"
)

var identityColumns = []string{
	"id",
	"email",
	"username",
	"display_name",
	"password_hash",
	"role",
	"is_active",
	"created_at",
	"updated_at",
	"last_login",
}

// IdentityRepository implements port.IdentityRepository for PostgreSQL.
type IdentityRepository struct {
	pool    *pgxpool.Pool
	builder squirrel.StatementBuilderType
}

// NewIdentityRepository constructs an IdentityRepository.
func NewIdentityRepository(pool *pgxpool.Pool) *IdentityRepository {
	return &IdentityRepository{
		pool:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts an identity record.
func (r *IdentityRepository) Create(ctx context.Context, identity domain.Identity) error {
	sql, args, err := r.builder.Insert("identities").
		Columns(identityColumns...).
		Values(
			identity.ID,
			identity.Email,
			identity.Username,
			identity.DisplayName,
			identity.PasswordHash,
			identity.Role,
			identity.IsActive,
			identity.CreatedAt,
			identity.UpdatedAt,
			identity.LastLogin,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert identity sql: %w", err)
	}

	if _, err := r.pool.Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert identity: %w", err)
	}

	return nil
}

// GetByID returns the identity with the supplied identifier.
func (r *IdentityRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	return r.getWhere(ctx, squirrel.Eq{"id": id})
}

// GetByEmail returns the identity matching the email, case-insensitively.
func (r *IdentityRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	return r.getWhere(ctx, squirrel.Expr("lower(email) = lower(?)", email))
}

// EmailExists reports whether any identity holds the email, ignoring case.
func (r *IdentityRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, squirrel.Expr("lower(email) = lower(?)", email))
}

// UsernameExists reports whether any identity holds the username, ignoring case.
func (r *IdentityRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, squirrel.Expr("lower(username) = lower(?)", username))
}

// UpdatePassword stores a new password hash for the identity.
func (r *IdentityRepository) UpdatePassword(ctx context.Context, id string, passwordHash string, changedAt time.Time) error {
	sql, args, err := r.builder.Update("identities").
		Set("password_hash", passwordHash).
		Set("updated_at", changedAt).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password sql: %w", err)
	}

	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdateLastLogin stamps the most recent successful login.
func (r *IdentityRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	sql, args, err := r.builder.Update("identities").
		Set("last_login", at).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update last login sql: %w", err)
	}

	if _, err := r.pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}

	return nil
}

// Deactivate soft-deletes the identity by clearing the active flag.
func (r *IdentityRepository) Deactivate(ctx context.Context, id string) error {
	sql, args, err := r.builder.Update("identities").
		Set("is_active", false).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build deactivate sql: %w", err)
	}

	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("deactivate identity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *IdentityRepository) getWhere(ctx context.Context, pred any) (*domain.Identity, error) {
	sql, args, err := r.builder.Select(identityColumns...).
		From("identities").
		Where(pred).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select identity sql: %w", err)
	}

	row := r.pool.QueryRow(ctx, sql, args...)

	var identity domain.Identity
	if err := row.Scan(
		&identity.ID,
		&identity.Email,
		&identity.Username,
		&identity.DisplayName,
		&identity.PasswordHash,
		&identity.Role,
		&identity.IsActive,
		&identity.CreatedAt,
		&identity.UpdatedAt,
		&identity.LastLogin,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan identity: %w", err)
	}

	return &identity, nil
}

func (r *IdentityRepository) exists(ctx context.Context, pred any) (bool, error) {
	sql, args, err := r.builder.Select("1").
		From("identities").
		Where(pred).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists sql: %w", err)
	}

	var one int
	if err := r.pool.QueryRow(ctx, sql, args...).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query exists: %w", err)
	}

	return true, nil
}

var _ port.IdentityRepository = (*IdentityRepository)(nil)
