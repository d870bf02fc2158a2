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

var sessionColumns = []string{
	"id",
	"user_id",
	"refresh_token_hash",
	"expires_at",
	"created_at",
	"last_used_at",
	"ip_address",
	"user_agent",
	"is_revoked",
	"revoked_at",
	"revoked_reason",
}

// SessionRepository implements port.SessionRepository for PostgreSQL.
type SessionRepository struct {
	pool    *pgxpool.Pool
	builder squirrel.StatementBuilderType
}

// NewSessionRepository constructs a SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{
		pool:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a session record.
func (r *SessionRepository) Create(ctx context.Context, session domain.Session) error {
	sql, args, err := r.insertSQL(session)
	if err != nil {
		return err
	}

	if _, err := r.pool.Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

// GetByTokenHash returns the session holding the supplied refresh token hash.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	sql, args, err := r.builder.Select(sessionColumns...).
		From("sessions").
		Where(squirrel.Eq{"refresh_token_hash": tokenHash}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select session sql: %w", err)
	}

	row := r.pool.QueryRow(ctx, sql, args...)

	var session domain.Session
	if err := scanSession(row, &session); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	return &session, nil
}

// Revoke marks a session as revoked. The guard on is_revoked makes repeated
// revocations report false without touching revoked_at.
func (r *SessionRepository) Revoke(ctx context.Context, sessionID string, reason string) (bool, error) {
	sql, args, err := r.revokeSQL(squirrel.Eq{"id": sessionID}, reason)
	if err != nil {
		return false, err
	}

	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("revoke session: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// RevokeAllForUser revokes every active session owned by the user.
func (r *SessionRepository) RevokeAllForUser(ctx context.Context, userID string, reason string) (int, error) {
	sql, args, err := r.revokeSQL(squirrel.Eq{"user_id": userID}, reason)
	if err != nil {
		return 0, err
	}

	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("revoke sessions for user: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

// Rotate revokes the old session and inserts its replacement in one
// transaction. When the old session no longer qualifies (already revoked, or
// gone) the whole transaction rolls back and ErrNotFound is returned, so a
// concurrent rotation of the same token can succeed at most once.
func (r *SessionRepository) Rotate(ctx context.Context, oldSessionID string, reason string, next domain.Session) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin rotation: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	revokeSQL, revokeArgs, err := r.revokeSQL(squirrel.Eq{"id": oldSessionID}, reason)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, revokeSQL, revokeArgs...)
	if err != nil {
		return fmt.Errorf("revoke old session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	insertSQL, insertArgs, err := r.insertSQL(next)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, insertSQL, insertArgs...); err != nil {
		return fmt.Errorf("insert rotated session: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit rotation: %w", err)
	}

	return nil
}

// Touch updates the session's last-used timestamp.
func (r *SessionRepository) Touch(ctx context.Context, sessionID string, at time.Time) error {
	sql, args, err := r.builder.Update("sessions").
		Set("last_used_at", at).
		Where(squirrel.Eq{"id": sessionID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build touch session sql: %w", err)
	}

	if _, err := r.pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}

	return nil
}

// DeleteExpiredBefore physically removes sessions whose expiry predates the
// cutoff. Retention cleanup is the only path that deletes session rows.
func (r *SessionRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int, error) {
	sql, args, err := r.builder.Delete("sessions").
		Where(squirrel.Lt{"expires_at": cutoff}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete expired sql: %w", err)
	}

	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

func (r *SessionRepository) insertSQL(session domain.Session) (string, []any, error) {
	sql, args, err := r.builder.Insert("sessions").
		Columns(sessionColumns...).
		Values(
			session.ID,
			session.UserID,
			session.RefreshTokenHash,
			session.ExpiresAt,
			session.CreatedAt,
			session.LastUsedAt,
			session.IPAddress,
			session.UserAgent,
			session.IsRevoked,
			session.RevokedAt,
			session.RevokedReason,
		).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build insert session sql: %w", err)
	}
	return sql, args, nil
}

func (r *SessionRepository) revokeSQL(pred squirrel.Eq, reason string) (string, []any, error) {
	sql, args, err := r.builder.Update("sessions").
		Set("is_revoked", true).
		Set("revoked_at", time.Now().UTC()).
		Set("revoked_reason", reason).
		Where(pred).
		Where(squirrel.Eq{"is_revoked": false}).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build revoke session sql: %w", err)
	}
	return sql, args, nil
}

func scanSession(row pgx.Row, session *domain.Session) error {
	return row.Scan(
		&session.ID,
		&session.UserID,
		&session.RefreshTokenHash,
		&session.ExpiresAt,
		&session.CreatedAt,
		&session.LastUsedAt,
		&session.IPAddress,
		&session.UserAgent,
		&session.IsRevoked,
		&session.RevokedAt,
		&session.RevokedReason,
	)
}

var _ port.SessionRepository = (*SessionRepository)(nil)
