package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/rawatapurva/HD-Notes-App/internal/core/port"
	"github.com/rawatapurva/HD-Notes-App/internal/infra/config"
	"github.com/rawatapurva/HD-Notes-App/internal/infra/database"
	kafkainfra "github.com/rawatapurva/HD-Notes-App/internal/infra/kafka"
	"github.com/rawatapurva/HD-Notes-App/internal/infra/logger"
	"github.com/rawatapurva/HD-Notes-App/internal/infra/mail"
	redisinfra "github.com/rawatapurva/HD-Notes-App/internal/infra/redis"
	"github.com/rawatapurva/HD-Notes-App/internal/infra/security"
	"github.com/rawatapurva/HD-Notes-App/internal/infra/telemetry"
	postgresrepo "github.com/rawatapurva/HD-Notes-App/internal/repository/postgres"
	redisrepo "github.com/rawatapurva/HD-Notes-App/internal/repository/redis"
	"github.com/rawatapurva/HD-Notes-App/internal/transport/http/middleware"
	"github.com/rawatapurva/HD-Notes-App/internal/transport/http/routes"
	"github.com/rawatapurva/HD-Notes-App/internal/usecase"
)

const (
	sessionIssuer   = "hd-notes-api"
	otpCodeDigits   = 6
	shutdownTimeout = 10 * time.Second
)

type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
	tracer   *telemetry.TracerProvider
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env, logger.Options{
		Level:        cfg.Log.Level,
		FilePath:     cfg.Log.FilePath,
		MaxAge:       cfg.Log.MaxAge,
		RotationTime: cfg.Log.RotationTime,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &Application{cfg: cfg, logger: log}
	if err := a.init(ctx); err != nil {
		a.close(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *Application) init(ctx context.Context) error {
	cfg, log := a.cfg, a.logger

	tracer, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	a.tracer = tracer

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return fmt.Errorf("init postgres: %w", err)
	}
	a.pool = pool

	if cfg.Postgres.AutoMigrate {
		if err := database.RunMigrations(ctx, pool, log); err != nil {
			return fmt.Errorf("migrate postgres: %w", err)
		}
	}

	redisClient, err := redisinfra.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		return fmt.Errorf("init redis: %w", err)
	}
	a.redis = redisClient

	repos := postgresrepo.NewRepositories(pool)
	otpStore := redisrepo.NewOTPRepository(redisClient.Client(), cfg.Redis.OTPPrefix, cfg.OTP.Retention)

	tokens, err := security.NewSessionTokenManager(cfg.JWT.Secret, sessionIssuer, cfg.JWT.TTL)
	if err != nil {
		return fmt.Errorf("init session tokens: %w", err)
	}

	google, err := security.NewGoogleVerifier(ctx, cfg.Google.ClientID)
	if err != nil {
		return fmt.Errorf("init google verifier: %w", err)
	}
	if cfg.Google.ClientID == "" {
		log.Warn("google client id not configured, google sign-in will be rejected")
	}

	authService, err := usecase.NewAuthService(cfg.OTP, usecase.AuthDependencies{
		Users:    repos.Users,
		OTPs:     otpStore,
		Codes:    security.NewNumericCodeGenerator(otpCodeDigits),
		Hasher:   security.NewBcryptHasher(cfg.OTP.BcryptCost),
		Notifier: mail.NewSender(cfg.App, cfg.Mail, log),
		Tokens:   tokens,
		Identity: google,
		Events:   a.eventPublisher(),
		Metrics:  telemetry.NewAuthMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return fmt.Errorf("init auth service: %w", err)
	}
	authService.WithLogger(log.Named("auth")).WithTracer(tracer.Tracer("notes/usecase/auth"))

	noteService, err := usecase.NewNoteService(repos.Notes, log.Named("notes"))
	if err != nil {
		return fmt.Errorf("init note service: %w", err)
	}

	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{Registerer: prometheus.DefaultRegisterer})
	if err != nil {
		return fmt.Errorf("init http metrics: %w", err)
	}

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: "notes:rate-limit",
		TTL:       rateLimitWindow * 2,
	})

	a.engine = routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: middleware.NewRateLimiter(rateLimitStore, log),
		Metrics:     httpMetrics,
		Gatherer:    prometheus.DefaultGatherer,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Auth:  authService,
			Notes: noteService,
		},
	})

	return nil
}

// eventPublisher falls back to the logging stub when kafka is absent or unreachable.
func (a *Application) eventPublisher() port.EventPublisher {
	if len(a.cfg.Kafka.Brokers) == 0 {
		a.logger.Info("kafka brokers not configured, using stub publisher")
		return kafkainfra.NewStubPublisher(a.logger)
	}

	producer, err := kafkainfra.NewProducer(a.cfg.Kafka, a.logger)
	if err != nil {
		a.logger.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
		return kafkainfra.NewStubPublisher(a.logger)
	}
	a.producer = producer
	a.logger.Info("kafka event publisher initialized", zap.Strings("brokers", a.cfg.Kafka.Brokers))
	return kafkainfra.NewEventPublisher(producer, a.cfg.App, a.logger)
}

func (a *Application) Run(ctx context.Context) error {
	defer a.close(context.Background())

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting notes API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutting down notes API")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}

func (a *Application) close(ctx context.Context) {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("close kafka producer", zap.Error(err))
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.logger.Warn("shutdown tracer", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
