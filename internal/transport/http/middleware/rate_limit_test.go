package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	red "github.com/redis/go-redis/v9"
	"go.uber.org/zap/zaptest"

	redisrepo "github.com/rawatapurva/HD-Notes-App/internal/repository/redis"
)

type fakeRateLimitStore struct {
	trimErr   error
	count     int
	oldest    time.Time
	hasOldest bool

	recordedKey string
	recordCalls int
}

func (f *fakeRateLimitStore) TrimWindow(context.Context, string, time.Duration, time.Time) error {
	return f.trimErr
}

func (f *fakeRateLimitStore) CountAttempts(context.Context, string, time.Duration, time.Time) (int, error) {
	return f.count, nil
}

func (f *fakeRateLimitStore) RecordAttempt(_ context.Context, identifier string, _ time.Time) error {
	f.recordedKey = identifier
	f.recordCalls++
	return nil
}

func (f *fakeRateLimitStore) OldestAttempt(context.Context, string, time.Duration, time.Time) (time.Time, bool, error) {
	return f.oldest, f.hasOldest, nil
}

func otpRule() RateLimitRule {
	return RateLimitRule{
		Name:   "otp_request_ip",
		Limit:  5,
		Window: time.Minute,
		Identifier: func(*gin.Context) (string, bool) {
			return "192.0.2.1", true
		},
	}
}

func newLimitedRouter(limiter *RateLimiter, rule RateLimitRule) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/auth/request-otp", limiter.RateLimit(rule), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestRateLimiterAllowsWhenBelowLimit(t *testing.T) {
	now := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	oldest := now.Add(-30 * time.Second)
	store := &fakeRateLimitStore{count: 2, oldest: oldest, hasOldest: true}

	limiter := NewRateLimiter(store, zaptest.NewLogger(t)).WithClock(func() time.Time { return now })
	router := newLimitedRouter(limiter, otpRule())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/request-otp", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if store.recordCalls != 1 || store.recordedKey != "otp_request_ip:192.0.2.1" {
		t.Fatalf("expected one attempt under the rule key, got %d %q", store.recordCalls, store.recordedKey)
	}
	if got := rr.Header().Get("X-RateLimit-Remaining"); got != "2" {
		t.Fatalf("expected remaining header 2, got %q", got)
	}
	if got := rr.Header().Get("X-RateLimit-Reset"); got != strconv.FormatInt(oldest.Add(time.Minute).Unix(), 10) {
		t.Fatalf("unexpected reset header %q", got)
	}
	if got := rr.Header().Get("Retry-After"); got != "" {
		t.Fatalf("expected no retry-after header, got %q", got)
	}
}

func TestRateLimiterBlocksWhenLimitExceeded(t *testing.T) {
	now := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	store := &fakeRateLimitStore{count: 5, oldest: now.Add(-30 * time.Second), hasOldest: true}

	limiter := NewRateLimiter(store, zaptest.NewLogger(t)).WithClock(func() time.Time { return now })
	router := newLimitedRouter(limiter, otpRule())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/request-otp", nil))

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if store.recordCalls != 0 {
		t.Fatalf("blocked requests must not be recorded")
	}
	if got := rr.Header().Get("Retry-After"); got != "30" {
		t.Fatalf("expected retry-after 30, got %q", got)
	}

	var problem ProblemDetails
	if err := json.Unmarshal(rr.Body.Bytes(), &problem); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if problem.Status != http.StatusTooManyRequests || problem.RetryAfter != 30 {
		t.Fatalf("unexpected problem %+v", problem)
	}
	if problem.Error == "" || problem.Instance != "/auth/request-otp" {
		t.Fatalf("expected error message and instance, got %+v", problem)
	}
}

func TestRateLimiterFailsOpenOnStoreError(t *testing.T) {
	store := &fakeRateLimitStore{trimErr: errors.New("redis down")}
	router := newLimitedRouter(NewRateLimiter(store, zaptest.NewLogger(t)), otpRule())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/request-otp", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 when failing open, got %d", rr.Code)
	}
	if store.recordCalls != 0 {
		t.Fatalf("expected no record attempt on failure")
	}
}

func TestRateLimiterWithRedisSlidingWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := red.NewClient(&red.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := redisrepo.NewRateLimitRepository(client, redisrepo.SlidingWindowConfig{KeyPrefix: "notes:ratelimit", TTL: time.Minute})

	now := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(store, zaptest.NewLogger(t)).WithClock(func() time.Time { return now })

	rule := otpRule()
	rule.Limit = 2
	router := newLimitedRouter(limiter, rule)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		now = now.Add(time.Second)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/request-otp", nil))
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("expected two allowed then blocked, got %v", codes)
	}

	now = now.Add(time.Minute)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/request-otp", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected window to slide, got %d", rr.Code)
	}
}

func TestRateLimiterDisabledRule(t *testing.T) {
	rule := otpRule()
	rule.Limit = 0
	store := &fakeRateLimitStore{count: 100}
	router := newLimitedRouter(NewRateLimiter(store, nil), rule)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/request-otp", nil))
	if rr.Code != http.StatusOK || store.recordCalls != 0 {
		t.Fatalf("disabled rule should pass through, got %d", rr.Code)
	}
}
