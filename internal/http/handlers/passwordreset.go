package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/followerscart/backend/internal/config"
	"github.com/followerscart/backend/internal/observability"
	"github.com/followerscart/backend/internal/passwordreset"
	"github.com/gin-gonic/gin"
)

// The request endpoint answers this regardless of whether the email has an
// account, so the response cannot be used to enumerate users.
const resetRequestedMsg = "If an account with that email exists, a password reset link has been sent."

type ResetManager interface {
	RequestReset(ctx context.Context, email string) (passwordreset.Result, error)
	ConsumeReset(ctx context.Context, rawToken, newPassword, confirmPassword string) error
}

type PasswordResetHandler struct {
	mgr  ResetManager
	prom *observability.Prom
}

func NewPasswordResetHandler(mgr ResetManager, prom *observability.Prom) *PasswordResetHandler {
	return &PasswordResetHandler{mgr: mgr, prom: prom}
}

// No email-format rule here: a malformed address is just an address with no
// account, and it gets the same generic answer.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

// ResetPasswordRequest carries no binding rules on purpose: presence and
// equality of the fields are checked only after the token itself, so a bad
// body with a bad token still reports the token problem first.
type ResetPasswordRequest struct {
	NewPassword        string `json:"newPassword"`
	ConfirmNewPassword string `json:"confirmNewPassword"`
}

func (h *PasswordResetHandler) ForgotPassword(ctx *gin.Context) {
	var req ForgotPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	res, err := h.mgr.RequestReset(cctx, req.Email)

	if err != nil {
		// Token generation or storage failed; nothing was issued.
		RespondInternal(ctx, "Could not process the password reset request")
		return
	}

	if res.TokenIssued && h.prom != nil {
		h.prom.ObserveEmail("password_reset", res.DeliveryErr)
	}

	ctx.JSON(http.StatusOK, gin.H{"msg": resetRequestedMsg})
}

func (h *PasswordResetHandler) ResetPassword(ctx *gin.Context) {
	token := ctx.Param("token")

	var req ResetPasswordRequest

	// An absent body counts as empty fields, not a malformed request, so the
	// token check still runs first.
	if err := ctx.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		RespondBadRequest(ctx, "Invalid request body", parseBindError(err))
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	err := h.mgr.ConsumeReset(cctx, token, req.NewPassword, req.ConfirmNewPassword)

	switch {
	case err == nil:
		ctx.JSON(http.StatusOK, gin.H{"msg": "Password reset successfully."})
	case errors.Is(err, passwordreset.ErrInvalidOrExpiredToken):
		ctx.JSON(http.StatusBadRequest, gin.H{"msg": "Invalid or expired password reset token."})
	case errors.Is(err, passwordreset.ErrMissingFields):
		ctx.JSON(http.StatusBadRequest, gin.H{"msg": "Please provide both new and confirm password."})
	case errors.Is(err, passwordreset.ErrPasswordMismatch):
		ctx.JSON(http.StatusBadRequest, gin.H{"msg": "Passwords do not match."})
	default:
		RespondInternal(ctx, "Could not reset the password")
	}
}
