package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/donation-service/internal/dto"
	"github.com/prperemyshlev/donation-service/internal/service"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// UserHandler serves the donor profile
type UserHandler struct {
	authService service.AuthService
	donations   service.DonationService
	logger      *zap.Logger
}

func NewUserHandler(authService service.AuthService, donations service.DonationService, logger *zap.Logger) *UserHandler {
	return &UserHandler{authService: authService, donations: donations, logger: logger}
}

// Profile returns the account and its donation history
func (h *UserHandler) Profile(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.GetString(ctxUserID)

	user, err := h.authService.GetUser(ctx, userID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	history, err := h.donations.History(ctx, userID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	donations := make([]dto.DonationResponse, 0, len(history.Donations))
	for _, d := range history.Donations {
		donations = append(donations, toDonationResponse(d))
	}
	totals := make(map[string]decimal.Decimal, len(history.TotalDonated))
	for currency, amount := range history.TotalDonated {
		totals[string(currency)] = amount
	}

	c.JSON(http.StatusOK, dto.ProfileResponse{
		User: *user,
		DonationHistory: dto.DonationHistoryResponse{
			Donations:    donations,
			TotalDonated: totals,
		},
	})
}
