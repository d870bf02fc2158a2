package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Bigalan09/PlayShelf-sub000/internal/infra/logger"
	"github.com/Bigalan09/PlayShelf-sub000/internal/transport/http/middleware"
	"github.com/Bigalan09/PlayShelf-sub000/internal/usecase"
)

// PasswordHandler exposes the password lifecycle endpoints.
type PasswordHandler struct {
	passwords *usecase.PasswordService
	log       *zap.Logger
}

func NewPasswordHandler(passwords *usecase.PasswordService, log *zap.Logger) *PasswordHandler {
	return &PasswordHandler{passwords: passwords, log: log}
}

// Forgot handles POST /auth/password/forgot. The response is identical for
// known and unknown emails; delivery happens out of band.
func (h *PasswordHandler) Forgot(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	token, err := h.passwords.RequestReset(c.Request.Context(), req.Email)
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "password reset request failed")
		return
	}

	if token != "" {
		// Delivery is the notification pipeline's job; the token itself never
		// appears in the response.
		h.log.Info("reset token issued", zap.String("email", logger.MaskEmail(req.Email)))
	}

	c.JSON(http.StatusAccepted, MessageResponse{Message: "if the email is registered, a reset link has been sent"})
}

// Reset handles POST /auth/password/reset.
func (h *PasswordHandler) Reset(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	if err := h.passwords.Reset(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidResetToken, Status: http.StatusUnauthorized, Message: "invalid or expired reset token"},
			{Err: usecase.ErrWeakPassword, Status: http.StatusUnprocessableEntity, Message: "password does not meet requirements"},
		}, http.StatusInternalServerError, "password reset failed")
		return
	}

	c.Status(http.StatusNoContent)
}

// Change handles POST /auth/password/change. Requires authentication.
func (h *PasswordHandler) Change(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	if err := h.passwords.Change(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "current password is incorrect"},
			{Err: usecase.ErrWeakPassword, Status: http.StatusUnprocessableEntity, Message: "password does not meet requirements"},
		}, http.StatusInternalServerError, "password change failed")
		return
	}

	c.Status(http.StatusNoContent)
}
