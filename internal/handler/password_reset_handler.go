package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/donation-service/internal/dto"
	"github.com/prperemyshlev/donation-service/internal/service"
	"go.uber.org/zap"
)

const recoveryRequestedMessage = "If an account exists for this email, password reset instructions have been sent"

// PasswordResetHandler exposes the active recovery flow
type PasswordResetHandler struct {
	recovery service.RecoveryService
	logger   *zap.Logger
}

func NewPasswordResetHandler(recovery service.RecoveryService, logger *zap.Logger) *PasswordResetHandler {
	return &PasswordResetHandler{recovery: recovery, logger: logger}
}

// ForgotPassword issues a recovery code or link, depending on the configured flow
func (h *PasswordResetHandler) ForgotPassword(c *gin.Context) {
	h.request(c, false)
}

// ResendOTP reissues the recovery code, replacing the previous one
func (h *PasswordResetHandler) ResendOTP(c *gin.Context) {
	h.request(c, true)
}

func (h *PasswordResetHandler) request(c *gin.Context, resend bool) {
	var req dto.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	ctx := c.Request.Context()
	var err error
	switch {
	case h.recovery.Flow() == service.FlowLink:
		err = h.recovery.RequestResetLink(ctx, req.Email)
	case resend:
		err = h.recovery.ResendOTP(ctx, req.Email)
	default:
		err = h.recovery.RequestOTP(ctx, req.Email)
	}
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: recoveryRequestedMessage})
}

// VerifyOTP checks a recovery code without consuming it
func (h *PasswordResetHandler) VerifyOTP(c *gin.Context) {
	var req dto.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	if err := h.recovery.VerifyOTP(c.Request.Context(), req.Email, req.OTP); err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Code is valid"})
}

// ResetPassword consumes the code or link token and sets the new password
func (h *PasswordResetHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	ctx := c.Request.Context()
	var err error
	if h.recovery.Flow() == service.FlowLink {
		err = h.recovery.ResetByToken(ctx, req.Token, req.NewPassword)
	} else {
		err = h.recovery.ConsumeOTP(ctx, req.Email, req.OTP, req.NewPassword)
	}
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Password has been reset"})
}
