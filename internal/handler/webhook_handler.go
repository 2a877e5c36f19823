package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/donation-service/internal/domain"
	"github.com/prperemyshlev/donation-service/internal/dto"
	"github.com/prperemyshlev/donation-service/internal/service"
	"go.uber.org/zap"
)

// Stripe caps event payloads well below this
const maxWebhookBody = 256 << 10

// WebhookHandler turns gateway callbacks into reconciliation steps
type WebhookHandler struct {
	gateway    service.PaymentGateway
	reconciler service.Reconciler
	logger     *zap.Logger
}

func NewWebhookHandler(gateway service.PaymentGateway, reconciler service.Reconciler, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{gateway: gateway, reconciler: reconciler, logger: logger}
}

// Stripe verifies the event signature and reconciles the referenced session.
// The event only triggers a step; the gateway query decides the outcome.
func (h *WebhookHandler) Stripe(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
	if err != nil {
		writeBindError(c, err)
		return
	}
	// oversized bodies are rejected, never truncated
	if len(payload) > maxWebhookBody {
		h.logger.Warn("webhook payload too large", zap.Int("limit", maxWebhookBody))
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.ErrorResponse{
			Error:   string(service.KindInvalidInput),
			Message: "webhook payload too large",
		})
		return
	}

	ref, ok, err := h.gateway.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		h.logger.Warn("webhook rejected", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   string(service.KindInvalidInput),
			Message: "invalid webhook signature",
		})
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	res, err := h.reconciler.Reconcile(c.Request.Context(), ref, domain.SourceWebhook)
	switch {
	case errors.Is(err, service.ErrNotFound):
		h.logger.Info("webhook for unknown session ignored", zap.String("session_ref", ref))
	case err != nil:
		writeError(c, h.logger, err)
		return
	default:
		h.logger.Debug("webhook reconciled",
			zap.String("session_ref", ref),
			zap.String("status", string(res.Status)),
		)
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
