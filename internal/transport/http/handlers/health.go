package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const readinessTimeout = 2 * time.Second

// CheckFunc probes one dependency.
type CheckFunc func(ctx context.Context) error

type HealthOption func(*HealthHandler)

// WithReadinessCheck adds a named dependency probe to /readyz.
func WithReadinessCheck(name string, check CheckFunc) HealthOption {
	return func(h *HealthHandler) {
		if name != "" && check != nil {
			h.checks = append(h.checks, namedCheck{name: name, check: check})
		}
	}
}

type namedCheck struct {
	name  string
	check CheckFunc
}

// HealthHandler exposes liveness and readiness information.
type HealthHandler struct {
	startedAt time.Time
	checks    []namedCheck
}

func NewHealthHandler(opts ...HealthOption) *HealthHandler {
	h := &HealthHandler{startedAt: time.Now().UTC()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Ping keeps the {"ok": true} shape the web client polls.
func (h *HealthHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, OKResponse{OK: true})
}

// Status godoc
// @Summary Service liveness
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /healthz [get]
func (h *HealthHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", StartedAt: h.startedAt})
}

// Readiness pings every registered dependency and answers 503 if any fails.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	resp := ReadinessResponse{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	status := http.StatusOK
	for _, nc := range h.checks {
		if err := nc.check(ctx); err != nil {
			resp.Checks[nc.name] = err.Error()
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[nc.name] = "ok"
	}

	c.JSON(status, resp)
}
