package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestReadinessReportsFailingDependency(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewHealthHandler(
		WithReadinessCheck("postgres", func(context.Context) error { return nil }),
		WithReadinessCheck("redis", func(context.Context) error { return errors.New("connection refused") }),
	)
	router := gin.New()
	router.GET("/readyz", h.Readiness)
	router.GET("/health", h.Ping)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	var resp ReadinessResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Checks["postgres"] != "ok" || resp.Checks["redis"] != "connection refused" {
		t.Fatalf("unexpected checks %v", resp.Checks)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Body.String() != `{"ok":true}` {
		t.Fatalf("unexpected health body %s", rr.Body.String())
	}
}
