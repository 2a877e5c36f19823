package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTelemetryExportsCounters(t *testing.T) {
	tel, err := InitTelemetry("donation-service-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = tel.MeterProvider.Shutdown(context.Background()) })

	counter, err := tel.MeterProvider.Meter("test").Int64Counter("donations_initialized_total")
	require.NoError(t, err)
	counter.Add(context.Background(), 2)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/metrics", PrometheusHandler(tel.Handler))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "donations_initialized_total")
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestPrometheusHandlerWithoutExporter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/metrics", PrometheusHandler(nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestInitLogger(t *testing.T) {
	logger, err := InitLogger("production", "warn")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(-1))
	assert.True(t, logger.Core().Enabled(1))

	_, err = InitLogger("development", "loud")
	assert.Error(t, err)
}
