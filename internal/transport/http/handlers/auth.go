package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Bigalan09/PlayShelf-sub000/internal/transport/http/middleware"
	"github.com/Bigalan09/PlayShelf-sub000/internal/usecase"
)

// AuthHandler exposes the credential issuance endpoints.
type AuthHandler struct {
	auth *usecase.AuthService
}

func NewAuthHandler(auth *usecase.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func clientIP(c *gin.Context) *string {
	ip := c.ClientIP()
	if ip == "" {
		return nil
	}
	return &ip
}

func userAgent(c *gin.Context) *string {
	ua := c.Request.UserAgent()
	if ua == "" {
		return nil
	}
	return &ua
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	result, err := h.auth.Register(c.Request.Context(), usecase.RegisterInput{
		Email:       req.Email,
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Password:    req.Password,
		IP:          clientIP(c),
		UserAgent:   userAgent(c),
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrEmailTaken, Status: http.StatusConflict, Message: "email already registered"},
			{Err: usecase.ErrUsernameTaken, Status: http.StatusConflict, Message: "username already taken"},
			{Err: usecase.ErrWeakPassword, Status: http.StatusUnprocessableEntity, Message: "password does not meet requirements"},
		}, http.StatusInternalServerError, "registration failed")
		return
	}

	c.JSON(http.StatusCreated, AuthResponse{
		User:   newIdentitySummary(result.Identity),
		Tokens: newTokenPairResponse(result.Tokens),
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), usecase.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IP:        clientIP(c),
		UserAgent: userAgent(c),
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid email or password"},
		}, http.StatusInternalServerError, "login failed")
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		User:   newIdentitySummary(result.Identity),
		Tokens: newTokenPairResponse(result.Tokens),
	})
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	pair, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken, clientIP(c), userAgent(c))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidRefreshToken, Status: http.StatusUnauthorized, Message: "invalid refresh token"},
		}, http.StatusInternalServerError, "token refresh failed")
		return
	}

	c.JSON(http.StatusOK, newTokenPairResponse(*pair))
}

// Logout handles POST /auth/logout. Revoking an unknown, expired, or absent
// token is an idempotent no-op, so logout always reports success.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	_ = c.ShouldBindJSON(&req)

	if req.RefreshToken != "" {
		if err := h.auth.Logout(c.Request.Context(), req.RefreshToken); err != nil {
			RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "logout failed")
			return
		}
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}

// LogoutAll handles POST /auth/logout-all. Requires authentication.
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	count, err := h.auth.LogoutAll(c.Request.Context(), userID)
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "logout failed")
		return
	}

	c.JSON(http.StatusOK, LogoutAllResponse{SessionsRevoked: count})
}
