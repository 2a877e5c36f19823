package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/donation-service/internal/dto"
	"github.com/prperemyshlev/donation-service/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWriteError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		err     error
		status  int
		kind    service.Kind
		message string
		logged  bool
	}{
		{
			name:    "validation keeps detail",
			err:     fmt.Errorf("amount must be greater than zero: %w", service.ErrInvalidAmount),
			status:  http.StatusBadRequest,
			kind:    service.KindInvalidAmount,
			message: "amount must be greater than zero: invalid amount",
		},
		{
			name:    "not found",
			err:     fmt.Errorf("donation not found: %w", service.ErrNotFound),
			status:  http.StatusNotFound,
			kind:    service.KindNotFound,
			message: "donation not found: not found",
		},
		{
			name:    "gateway failure hides cause",
			err:     fmt.Errorf("%w: %w", service.ErrGatewayUnavailable, errors.New("stripe: card_declined api_key=sk_test_123")),
			status:  http.StatusBadGateway,
			kind:    service.KindGatewayUnavailable,
			message: "payment gateway unavailable",
			logged:  true,
		},
		{
			name:    "notification failure hides cause",
			err:     fmt.Errorf("%w: %w", service.ErrNotificationUnavailable, errors.New("dial tcp 10.0.0.1:587")),
			status:  http.StatusServiceUnavailable,
			kind:    service.KindNotificationUnavailable,
			message: "notification could not be delivered",
			logged:  true,
		},
		{
			name:    "unclassified error",
			err:     errors.New("pq: relation \"donations\" does not exist"),
			status:  http.StatusInternalServerError,
			kind:    service.KindInternal,
			message: "internal server error",
			logged:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.ErrorLevel)
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			writeError(c, zap.New(core), tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.True(t, c.IsAborted())

			var body dto.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, string(tt.kind), body.Error)
			assert.Equal(t, tt.message, body.Message)

			if tt.logged {
				assert.Equal(t, 1, logs.Len())
			} else {
				assert.Zero(t, logs.Len())
			}
		})
	}
}
