package usecase

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/Bigalan09/PlayShelf-sub000/internal/core/domain"
)

func TestJanitorSweepDeletesOnlyExpired(t *testing.T) {
	now := time.Now().UTC()
	repo := newStubSessionRepository(
		domain.Session{ID: "expired", UserID: "u1", ExpiresAt: now.Add(-time.Hour)},
		domain.Session{ID: "live", UserID: "u1", ExpiresAt: now.Add(time.Hour)},
		domain.Session{ID: "revoked-live", UserID: "u1", ExpiresAt: now.Add(time.Hour), IsRevoked: true},
	)

	janitor := NewSessionJanitor(repo, time.Hour, zaptest.NewLogger(t))
	janitor.sweep(context.Background())

	if _, ok := repo.sessions["expired"]; ok {
		t.Fatal("expected expired session to be deleted")
	}
	if _, ok := repo.sessions["live"]; !ok {
		t.Fatal("live session must survive the sweep")
	}
	// Revoked rows are kept for audit until their expiry passes.
	if _, ok := repo.sessions["revoked-live"]; !ok {
		t.Fatal("revoked but unexpired session must survive the sweep")
	}
}
