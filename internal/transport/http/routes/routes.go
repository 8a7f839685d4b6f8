package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/rawatapurva/HD-Notes-App/internal/infra/config"
	"github.com/rawatapurva/HD-Notes-App/internal/transport/http/handlers"
	"github.com/rawatapurva/HD-Notes-App/internal/transport/http/middleware"
	"github.com/rawatapurva/HD-Notes-App/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth  *usecase.AuthService
	Notes *usecase.NoteService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Services    ServiceSet
	Metrics     *middleware.HTTPMetrics
	Gatherer    prometheus.Gatherer
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	if cfg == nil {
		cfg = &config.AppConfig{}
	}
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName(cfg)))
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(deps.Metrics.Handler())
	r.Use(middleware.CORS(cfg.App.CORSOrigins))

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("postgres", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}
	health := handlers.NewHealthHandler(healthOptions...)

	r.GET("/health", health.Ping)
	r.GET("/healthz", health.Status)
	r.GET("/readyz", health.Readiness)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	if deps.Services.Auth == nil {
		return r
	}
	session := middleware.RequireSession(deps.Services.Auth)

	authHandler := handlers.NewAuthHandler(deps.Services.Auth)
	authHandler.RegisterRoutes(r.Group("/auth"), session, buildOTPRequestMiddlewares(deps)...)

	if deps.Services.Notes != nil {
		notesHandler := handlers.NewNoteHandler(deps.Services.Notes)
		notesHandler.RegisterRoutes(r.Group("/notes", session))
	}

	return r
}

func buildOTPRequestMiddlewares(deps Dependencies) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}

	limit := deps.Config.RateLimit.OTPRequestMaxAttempts
	if limit <= 0 {
		return nil
	}
	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       "otp_request_ip",
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}
	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}

func serviceName(cfg *config.AppConfig) string {
	if cfg.Telemetry.ServiceName != "" {
		return cfg.Telemetry.ServiceName
	}
	if cfg.App.Name != "" {
		return cfg.App.Name
	}
	return "hd-notes-api"
}
