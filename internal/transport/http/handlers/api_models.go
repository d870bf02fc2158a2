package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Bigalan09/PlayShelf-sub000/internal/core/domain"
	"github.com/Bigalan09/PlayShelf-sub000/internal/transport/http/middleware"
)

// ErrorResponse represents a generic error payload with a request ID for
// correlation.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// NewErrorResponse creates an error response carrying the request ID.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:     errorMsg,
		RequestID: middleware.RequestIDFromContext(c.Request.Context()),
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// IdentitySummary is the public view of an identity returned by the API.
type IdentitySummary struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Username    string     `json:"username"`
	DisplayName *string    `json:"display_name,omitempty"`
	Role        string     `json:"role"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
}

func newIdentitySummary(identity domain.Identity) IdentitySummary {
	return IdentitySummary{
		ID:          identity.ID,
		Email:       identity.Email,
		Username:    identity.Username,
		DisplayName: identity.DisplayName,
		Role:        string(identity.Role),
		CreatedAt:   identity.CreatedAt,
		LastLogin:   identity.LastLogin,
	}
}

// RegisterRequest defines the payload for the registration endpoint.
type RegisterRequest struct {
	Email       string  `json:"email" binding:"required,email"`
	Username    string  `json:"username" binding:"required,min=3,max=32"`
	DisplayName *string `json:"display_name"`
	Password    string  `json:"password" binding:"required"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenPairResponse carries a freshly issued access/refresh pair.
type TokenPairResponse struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

func newTokenPairResponse(pair domain.TokenPair) TokenPairResponse {
	return TokenPairResponse{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		TokenType:        "Bearer",
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}
}

// AuthResponse carries the identity and token pair returned when a session
// opens, at registration or login.
type AuthResponse struct {
	User   IdentitySummary   `json:"user"`
	Tokens TokenPairResponse `json:"tokens"`
}

// RefreshRequest represents the payload to rotate a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest represents the payload to end a session. The token is
// optional; logout without one is a no-op.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LogoutAllResponse reports how many sessions were revoked.
type LogoutAllResponse struct {
	SessionsRevoked int `json:"sessions_revoked"`
}

// ForgotPasswordRequest starts the password reset flow.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest redeems a reset token.
type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ChangePasswordRequest replaces the password for the authenticated user.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}
