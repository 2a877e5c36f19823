package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/donation-service/internal/dto"
	"github.com/prperemyshlev/donation-service/internal/service"
	"go.uber.org/zap"
)

var kindStatus = map[service.Kind]int{
	service.KindUnauthorized:            http.StatusUnauthorized,
	service.KindForbidden:               http.StatusForbidden,
	service.KindInvalidInput:            http.StatusBadRequest,
	service.KindInvalidAmount:           http.StatusBadRequest,
	service.KindUnsupportedCurrency:     http.StatusBadRequest,
	service.KindInvalidOrExpired:        http.StatusBadRequest,
	service.KindGatewayUnavailable:      http.StatusBadGateway,
	service.KindNotificationUnavailable: http.StatusServiceUnavailable,
	service.KindNotFound:                http.StatusNotFound,
	service.KindConflict:                http.StatusConflict,
	service.KindTooManyRequests:         http.StatusTooManyRequests,
}

// upstream failures are reported with the sentinel text only
var genericMessages = map[service.Kind]string{
	service.KindGatewayUnavailable:      service.ErrGatewayUnavailable.Error(),
	service.KindNotificationUnavailable: service.ErrNotificationUnavailable.Error(),
	service.KindInternal:                "internal server error",
}

// writeError maps a service error to its HTTP status and stable kind
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	kind := service.KindOf(err)

	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	message, generic := genericMessages[kind]
	if !generic {
		message = err.Error()
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}

	c.AbortWithStatusJSON(status, dto.ErrorResponse{
		Error:   string(kind),
		Message: message,
	})
}

func writeBindError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{
		Error:   string(service.KindInvalidInput),
		Message: "Validation failed",
		Details: err.Error(),
	})
}
