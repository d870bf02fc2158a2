package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Bigalan09/PlayShelf-sub000/internal/core/domain"
	"github.com/Bigalan09/PlayShelf-sub000/internal/core/port"
)

// LoginAuditRepository persists login attempt audit rows.
type LoginAuditRepository struct {
	pool    *pgxpool.Pool
	builder squirrel.StatementBuilderType
}

// NewLoginAuditRepository constructs a LoginAuditRepository.
func NewLoginAuditRepository(pool *pgxpool.Pool) *LoginAuditRepository {
	return &LoginAuditRepository{
		pool:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// RecordAttempt inserts a login attempt row. Callers treat failures as
// non-fatal; the error is returned for logging only.
func (r *LoginAuditRepository) RecordAttempt(ctx context.Context, attempt domain.LoginAttempt) error {
	sql, args, err := r.builder.Insert("login_attempts").
		Columns("id", "identity_id", "email", "succeeded", "ip", "user_agent", "created_at").
		Values(
			attempt.ID,
			attempt.IdentityID,
			attempt.Email,
			attempt.Succeeded,
			attempt.IP,
			attempt.UserAgent,
			attempt.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert login attempt sql: %w", err)
	}

	if _, err := r.pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert login attempt: %w", err)
	}

	return nil
}

var _ port.LoginAuditRepository = (*LoginAuditRepository)(nil)
