package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

// Pinger is a dependency the health check pings
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthChecker struct {
	deps map[string]Pinger
}

func NewHealthChecker(deps map[string]Pinger) *HealthChecker {
	return &HealthChecker{
		deps: deps,
	}
}

func (h *HealthChecker) check(ctx context.Context) map[string]error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	type result struct {
		name string
		err  error
	}
	results := make(chan result, len(h.deps))

	for name, dep := range h.deps {
		go func() {
			results <- result{name: name, err: dep.Ping(ctx)}
		}()
	}

	failed := make(map[string]error)
	for range h.deps {
		if r := <-results; r.err != nil {
			failed[r.name] = r.err
		}
	}
	return failed
}

func (h *HealthChecker) Handler(c *gin.Context) {
	failed := h.check(c.Request.Context())
	if len(failed) > 0 {
		checks := make(gin.H, len(failed))
		errs := make([]error, 0, len(failed))
		for name, err := range failed {
			checks[name] = "fail"
			errs = append(errs, err)
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "fail",
			"checks": checks,
			"error":  errors.Join(errs...).Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "pass",
	})
}
