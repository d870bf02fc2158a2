package client

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSigningSecret = "client-test-signing-secret"

// mintToken salts each token with a fresh jti so two tokens of the same kind
// and expiry never compare equal.
func mintToken(t *testing.T, kind string, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"uid":  "8d7f2c1a-9a53-4a51-8f43-1f6a0f0f9b21",
		"jti":  uuid.NewString(),
		"type": kind,
		"exp":  expiresAt.Unix(),
		"iat":  time.Now().Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSigningSecret))
	if err != nil {
		t.Fatalf("sign %s token: %v", kind, err)
	}
	return signed
}

func mintPair(t *testing.T, accessExpiresAt, refreshExpiresAt time.Time) TokenPair {
	t.Helper()
	return TokenPair{
		AccessToken:      mintToken(t, "access", accessExpiresAt),
		RefreshToken:     mintToken(t, "refresh", refreshExpiresAt),
		AccessExpiresAt:  accessExpiresAt,
		RefreshExpiresAt: refreshExpiresAt,
	}
}

func freshPair(t *testing.T) TokenPair {
	t.Helper()
	now := time.Now()
	return mintPair(t, now.Add(time.Hour), now.Add(24*time.Hour))
}
