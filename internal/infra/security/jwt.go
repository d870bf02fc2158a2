package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Bigalan09/PlayShelf-sub000/internal/core/domain"
)

var (
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrTokenExpired   = errors.New("token is expired")
	ErrWrongTokenType = errors.New("wrong token type")
)

// AccessClaims is the payload carried by short-lived access tokens.
type AccessClaims struct {
	UserID    string           `json:"uid"`
	Email     string           `json:"email"`
	Username  string           `json:"username"`
	Role      domain.Role      `json:"role"`
	TokenType domain.TokenType `json:"type"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload carried by refresh tokens. It is deliberately
// minimal; the authoritative session state lives server-side.
type RefreshClaims struct {
	UserID    string           `json:"uid"`
	TokenType domain.TokenType `json:"type"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 JWTs for the credential issuer.
type TokenIssuer struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenIssuer(secret, issuer string, accessTTL, refreshTTL time.Duration) (*TokenIssuer, error) {
	if len(secret) < 32 {
		return nil, errors.New("jwt secret must be at least 32 bytes")
	}
	return &TokenIssuer{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

func (ti *TokenIssuer) AccessTTL() time.Duration  { return ti.accessTTL }
func (ti *TokenIssuer) RefreshTTL() time.Duration { return ti.refreshTTL }

// IssuePair mints a fresh access/refresh token pair for the identity.
func (ti *TokenIssuer) IssuePair(identity *domain.Identity, now time.Time) (*domain.TokenPair, error) {
	accessExpiry := now.Add(ti.accessTTL)
	refreshExpiry := now.Add(ti.refreshTTL)

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		UserID:    identity.ID,
		Email:     identity.Email,
		Username:  identity.Username,
		Role:      identity.Role,
		TokenType: domain.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identity.ID,
			Issuer:    ti.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExpiry),
		},
	})
	signedAccess, err := access.SignedString(ti.secret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, RefreshClaims{
		UserID:    identity.ID,
		TokenType: domain.TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identity.ID,
			Issuer:    ti.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(refreshExpiry),
		},
	})
	signedRefresh, err := refresh.SignedString(ti.secret)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:      signedAccess,
		RefreshToken:     signedRefresh,
		AccessExpiresAt:  accessExpiry,
		RefreshExpiresAt: refreshExpiry,
	}, nil
}

// ParseAccess verifies an access token signature and claims.
func (ti *TokenIssuer) ParseAccess(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := ti.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != domain.TokenTypeAccess {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// ParseRefresh verifies a refresh token signature and claims. This is a
// pre-filter only; callers must still check the session store.
func (ti *TokenIssuer) ParseRefresh(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := ti.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != domain.TokenTypeRefresh {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

func (ti *TokenIssuer) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ti.secret, nil
	}, jwt.WithIssuer(ti.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return ErrTokenInvalid
	}
	return nil
}
