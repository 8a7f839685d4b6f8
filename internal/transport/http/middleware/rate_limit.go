package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rawatapurva/HD-Notes-App/internal/core/port"
	appLogger "github.com/rawatapurva/HD-Notes-App/internal/infra/logger"
)

const (
	rateLimitProblemType  = "https://hd-notes-app.vercel.app/errors/too-many-requests"
	rateLimitProblemTitle = "Too Many Requests"
)

// IdentifierFunc extracts the key a limit is scoped to.
type IdentifierFunc func(*gin.Context) (string, bool)

// RateLimitRule configures a sliding-window limit.
type RateLimitRule struct {
	Name       string
	Limit      int
	Window     time.Duration
	Identifier IdentifierFunc
}

type RateLimiter struct {
	store  port.RateLimitStore
	logger *zap.Logger
	now    func() time.Time
}

type decision struct {
	allowed    bool
	remaining  int
	reset      time.Time
	retryAfter time.Duration
}

// ProblemDetails is an RFC 9457 payload. Error repeats Detail so clients that
// only read the "error" field still get a message.
type ProblemDetails struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Status     int    `json:"status"`
	Detail     string `json:"detail"`
	Instance   string `json:"instance"`
	RetryAfter int    `json:"retry_after"`
	Error      string `json:"error"`
	TraceID    string `json:"trace_id,omitempty"`
}

func NewRateLimiter(store port.RateLimitStore, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{store: store, logger: logger, now: time.Now}
}

// WithClock overrides the time source, used in tests.
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	if now != nil {
		rl.now = now
	}
	return rl
}

// ClientIPIdentifier scopes a rule to the caller's IP address.
func ClientIPIdentifier() IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		ip := c.ClientIP()
		return ip, ip != ""
	}
}

// RateLimit enforces rule. Store failures fail open and are logged.
func (rl *RateLimiter) RateLimit(rule RateLimitRule) gin.HandlerFunc {
	if rl == nil || rl.store == nil || rule.Identifier == nil || rule.Limit <= 0 || rule.Window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if rule.Name == "" {
		rule.Name = "default"
	}

	return func(c *gin.Context) {
		identifier, ok := rule.Identifier(c)
		if !ok {
			c.Next()
			return
		}

		key := fmt.Sprintf("%s:%s", rule.Name, identifier)
		d, err := rl.evaluate(c, rule, key, rl.now())
		if err != nil {
			rl.logger.Warn("rate limit check failed",
				zap.String("rule", rule.Name),
				zap.String("client_ip", appLogger.MaskIP(identifier)),
				zap.Error(err),
			)
			c.Next()
			return
		}

		headers := c.Writer.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(rule.Limit))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(d.remaining))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(d.reset.Unix(), 10))

		if !d.allowed {
			rl.reject(c, rule, d)
			return
		}

		c.Next()
	}
}

func (rl *RateLimiter) evaluate(c *gin.Context, rule RateLimitRule, key string, now time.Time) (decision, error) {
	ctx := c.Request.Context()

	if err := rl.store.TrimWindow(ctx, key, rule.Window, now); err != nil {
		return decision{}, err
	}
	count, err := rl.store.CountAttempts(ctx, key, rule.Window, now)
	if err != nil {
		return decision{}, err
	}
	oldest, hasAttempts, err := rl.store.OldestAttempt(ctx, key, rule.Window, now)
	if err != nil {
		return decision{}, err
	}

	d := decision{allowed: true, reset: now.Add(rule.Window)}
	if hasAttempts {
		d.reset = oldest.Add(rule.Window)
	}
	if d.retryAfter = d.reset.Sub(now); d.retryAfter < 0 {
		d.retryAfter = 0
	}

	if count >= rule.Limit {
		d.allowed = false
		return d, nil
	}

	if err := rl.store.RecordAttempt(ctx, key, now); err != nil {
		return decision{}, err
	}
	d.remaining = rule.Limit - count - 1
	return d, nil
}

func (rl *RateLimiter) reject(c *gin.Context, rule RateLimitRule, d decision) {
	seconds := int(math.Ceil(d.retryAfter.Seconds()))
	c.Header("Retry-After", strconv.Itoa(seconds))

	instance := c.FullPath()
	if instance == "" {
		instance = c.Request.URL.Path
	}
	detail := fmt.Sprintf("Too many requests. Try again in %d seconds.", seconds)

	rl.logger.Info("rate limit exceeded",
		zap.String("rule", rule.Name),
		zap.String("path", instance),
		zap.Int("retry_after", seconds),
	)

	c.AbortWithStatusJSON(http.StatusTooManyRequests, ProblemDetails{
		Type:       rateLimitProblemType,
		Title:      rateLimitProblemTitle,
		Status:     http.StatusTooManyRequests,
		Detail:     detail,
		Instance:   instance,
		RetryAfter: seconds,
		Error:      detail,
		TraceID:    GetTraceID(c),
	})
}
