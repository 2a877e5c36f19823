package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/donation-service/internal/domain"
	"github.com/prperemyshlev/donation-service/internal/dto"
	"github.com/prperemyshlev/donation-service/internal/service"
	"go.uber.org/zap"
)

// DonationHandler handles checkout initialization and donation reads
type DonationHandler struct {
	donations service.DonationService
	logger    *zap.Logger
}

func NewDonationHandler(donations service.DonationService, logger *zap.Logger) *DonationHandler {
	return &DonationHandler{donations: donations, logger: logger}
}

// Initialize opens a checkout session for the authenticated donor
// @Summary Initialize a donation
// @Tags donate
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param origin_url query string true "Origin the checkout returns to"
// @Param request body dto.InitializeDonationRequest true "Amount and currency"
// @Success 200 {object} dto.InitializeDonationResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /donate/initialize [post]
func (h *DonationHandler) Initialize(c *gin.Context) {
	var req dto.InitializeDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	res, err := h.donations.InitializeDonation(c.Request.Context(),
		c.GetString(ctxUserID), req.Amount, req.Currency, c.Query("origin_url"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.InitializeDonationResponse{
		CheckoutURL: res.CheckoutURL,
		SessionID:   res.SessionRef,
		DonationID:  res.DonationID,
	})
}

// Verify runs one reconciliation step and reports the stored status
// @Summary Verify a donation
// @Tags donate
// @Produce json
// @Security BearerAuth
// @Param session_ref path string true "Checkout session reference"
// @Success 200 {object} dto.VerifyDonationResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /donate/verify/{session_ref} [get]
func (h *DonationHandler) Verify(c *gin.Context) {
	res, err := h.donations.Verify(c.Request.Context(), viewer(c), c.Param("session_ref"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.VerifyDonationResponse{
		DonationID:    res.DonationID,
		Status:        string(res.Status),
		Amount:        res.Amount,
		Currency:      string(res.Currency),
		GatewayStatus: string(res.GatewayStatus),
	})
}

// Get returns a stored donation without contacting the gateway
// @Summary Get a donation
// @Tags donate
// @Produce json
// @Security BearerAuth
// @Param id path string true "Donation ID"
// @Success 200 {object} dto.DonationResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /donate/{id} [get]
func (h *DonationHandler) Get(c *gin.Context) {
	donation, err := h.donations.GetStatus(c.Request.Context(), viewer(c), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toDonationResponse(donation))
}

func toDonationResponse(d *domain.Donation) dto.DonationResponse {
	return dto.DonationResponse{
		ID:         d.ID,
		UserID:     d.UserID,
		Amount:     d.Amount,
		Currency:   string(d.Currency),
		SessionRef: d.SessionRef,
		Status:     string(d.Status),
		CreatedAt:  d.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  d.UpdatedAt.Format(time.RFC3339),
	}
}
