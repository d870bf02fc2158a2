package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Bigalan09/PlayShelf-sub000/internal/core/domain"
	"github.com/Bigalan09/PlayShelf-sub000/internal/core/port"
	"github.com/Bigalan09/PlayShelf-sub000/internal/repository"
)

// ResetTokenRepository persists password reset token hashes.
type ResetTokenRepository struct {
	pool    *pgxpool.Pool
	builder squirrel.StatementBuilderType
}

// NewResetTokenRepository constructs a ResetTokenRepository.
func NewResetTokenRepository(pool *pgxpool.Pool) *ResetTokenRepository {
	return &ResetTokenRepository{
		pool:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a reset token record.
func (r *ResetTokenRepository) Create(ctx context.Context, token domain.PasswordResetToken) error {
	sql, args, err := r.builder.Insert("password_reset_tokens").
		Columns("id", "user_id", "token_hash", "created_at", "expires_at", "used_at").
		Values(token.ID, token.UserID, token.TokenHash, token.CreatedAt, token.ExpiresAt, token.UsedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert reset token sql: %w", err)
	}

	if _, err := r.pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert reset token: %w", err)
	}

	return nil
}

// GetByHash returns the reset token holding the supplied hash.
func (r *ResetTokenRepository) GetByHash(ctx context.Context, hash string) (*domain.PasswordResetToken, error) {
	sql, args, err := r.builder.Select("id", "user_id", "token_hash", "created_at", "expires_at", "used_at").
		From("password_reset_tokens").
		Where(squirrel.Eq{"token_hash": hash}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select reset token sql: %w", err)
	}

	var token domain.PasswordResetToken
	if err := r.pool.QueryRow(ctx, sql, args...).Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.CreatedAt,
		&token.ExpiresAt,
		&token.UsedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan reset token: %w", err)
	}

	return &token, nil
}

// Consume marks the token used; consuming an already used token fails with
// ErrNotFound so single-use semantics hold under concurrency.
func (r *ResetTokenRepository) Consume(ctx context.Context, id string, at time.Time) error {
	sql, args, err := r.builder.Update("password_reset_tokens").
		Set("used_at", at).
		Where(squirrel.Eq{"id": id}).
		Where("used_at IS NULL").
		ToSql()
	if err != nil {
		return fmt.Errorf("build consume reset token sql: %w", err)
	}

	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.ResetTokenRepository = (*ResetTokenRepository)(nil)
