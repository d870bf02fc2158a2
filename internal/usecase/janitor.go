package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Bigalan09/PlayShelf-sub000/internal/core/port"
)

// SessionJanitor periodically deletes sessions whose refresh tokens expired.
// Revoked-but-unexpired rows are kept for audit until their expiry passes.
type SessionJanitor struct {
	sessions port.SessionRepository
	interval time.Duration
	log      *zap.Logger
}

func NewSessionJanitor(sessions port.SessionRepository, interval time.Duration, log *zap.Logger) *SessionJanitor {
	if interval <= 0 {
		interval = time.Hour
	}
	return &SessionJanitor{sessions: sessions, interval: interval, log: log}
}

// Run blocks until the context is cancelled, sweeping on every tick.
func (j *SessionJanitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *SessionJanitor) sweep(ctx context.Context) {
	deleted, err := j.sessions.DeleteExpiredBefore(ctx, time.Now().UTC())
	if err != nil {
		j.log.Warn("session sweep failed", zap.Error(err))
		return
	}
	if deleted > 0 {
		j.log.Info("expired sessions deleted", zap.Int("count", deleted))
	}
}
