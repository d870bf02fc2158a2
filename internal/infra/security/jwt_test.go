package security

import (
	"errors"
	"testing"
	"time"

	"github.com/Bigalan09/PlayShelf-sub000/internal/core/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestIssuer(t *testing.T) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer(testSecret, "playshelf", 15*time.Minute, 720*time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer returned error: %v", err)
	}
	return issuer
}

func testIdentity() *domain.Identity {
	return &domain.Identity{
		ID:       "5e5be1b1-92d5-4f32-9a6e-6c9a6c3f1a01",
		Email:    "meeple@example.com",
		Username: "meeple",
		Role:     domain.RoleUser,
	}
}

func TestIssuePairAndParse(t *testing.T) {
	issuer := newTestIssuer(t)
	now := time.Now()

	pair, err := issuer.IssuePair(testIdentity(), now)
	if err != nil {
		t.Fatalf("IssuePair returned error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected non-empty tokens")
	}
	if pair.AccessToken == pair.RefreshToken {
		t.Fatal("access and refresh tokens must differ")
	}

	access, err := issuer.ParseAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccess returned error: %v", err)
	}
	if access.UserID != "5e5be1b1-92d5-4f32-9a6e-6c9a6c3f1a01" {
		t.Fatalf("unexpected user id: %s", access.UserID)
	}
	if access.TokenType != domain.TokenTypeAccess {
		t.Fatalf("unexpected token type: %s", access.TokenType)
	}

	refresh, err := issuer.ParseRefresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("ParseRefresh returned error: %v", err)
	}
	if refresh.TokenType != domain.TokenTypeRefresh {
		t.Fatalf("unexpected token type: %s", refresh.TokenType)
	}
}

func TestParseRejectsCrossTypeUse(t *testing.T) {
	issuer := newTestIssuer(t)

	pair, err := issuer.IssuePair(testIdentity(), time.Now())
	if err != nil {
		t.Fatalf("IssuePair returned error: %v", err)
	}

	if _, err := issuer.ParseAccess(pair.RefreshToken); !errors.Is(err, ErrWrongTokenType) {
		t.Fatalf("expected ErrWrongTokenType for refresh token in access slot, got %v", err)
	}
	if _, err := issuer.ParseRefresh(pair.AccessToken); !errors.Is(err, ErrWrongTokenType) {
		t.Fatalf("expected ErrWrongTokenType for access token in refresh slot, got %v", err)
	}
}

func TestParseRejectsExpired(t *testing.T) {
	issuer, err := NewTokenIssuer(testSecret, "playshelf", -time.Minute, -time.Minute)
	if err != nil {
		t.Fatalf("NewTokenIssuer returned error: %v", err)
	}

	pair, err := issuer.IssuePair(testIdentity(), time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("IssuePair returned error: %v", err)
	}

	if _, err := issuer.ParseAccess(pair.AccessToken); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestParseRejectsForeignSignature(t *testing.T) {
	issuer := newTestIssuer(t)
	other, err := NewTokenIssuer("ffffffffffffffffffffffffffffffff", "playshelf", 15*time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer returned error: %v", err)
	}

	pair, err := other.IssuePair(testIdentity(), time.Now())
	if err != nil {
		t.Fatalf("IssuePair returned error: %v", err)
	}

	if _, err := issuer.ParseAccess(pair.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestNewTokenIssuerRejectsShortSecret(t *testing.T) {
	if _, err := NewTokenIssuer("short", "playshelf", time.Minute, time.Hour); err == nil {
		t.Fatal("expected error for short secret")
	}
}
