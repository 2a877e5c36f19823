package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/donation-service/internal/service"
	"go.uber.org/zap"
)

// AdminHandler serves admin-only reports
type AdminHandler struct {
	admin  service.AdminService
	logger *zap.Logger
}

func NewAdminHandler(admin service.AdminService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, logger: logger}
}

// Dashboard returns platform totals. Requires AdminMiddleware.
func (h *AdminHandler) Dashboard(c *gin.Context) {
	grant, _ := adminGrant(c)

	dashboard, err := h.admin.Dashboard(c.Request.Context(), grant)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dashboard)
}
