package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolationCode = "23505"

// Repositories bundles the postgres-backed repositories sharing one pool.
type Repositories struct {
	Identities  *IdentityRepository
	Sessions    *SessionRepository
	Attempts    *LoginAuditRepository
	ResetTokens *ResetTokenRepository
}

// NewRepositories constructs all repositories over the supplied pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Identities:  NewIdentityRepository(pool),
		Sessions:    NewSessionRepository(pool),
		Attempts:    NewLoginAuditRepository(pool),
		ResetTokens: NewResetTokenRepository(pool),
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
