package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "NOTES"

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	JWT       JWTSettings       `mapstructure:"jwt"`
	OTP       OTPSettings       `mapstructure:"otp"`
	Mail      MailSettings      `mapstructure:"mail"`
	Google    GoogleSettings    `mapstructure:"google"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Log       LogSettings       `mapstructure:"log"`
}

type AppSettings struct {
	Name        string   `mapstructure:"name"`
	Env         string   `mapstructure:"env"`
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// IsProduction reports whether the service runs with production safeguards.
func (a AppSettings) IsProduction() bool {
	return strings.EqualFold(a.Env, "production")
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	AutoMigrate       bool          `mapstructure:"auto_migrate"`
}

// RedisSettings configures Redis connection and TLS
type RedisSettings struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
	OTPPrefix  string `mapstructure:"otp_prefix"`
}

// KafkaSettings configures Kafka producer
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

// RateLimitSettings configures the sliding window applied to OTP issuance per client IP.
type RateLimitSettings struct {
	WindowDuration        time.Duration `mapstructure:"window_duration"`
	OTPRequestMaxAttempts int           `mapstructure:"otp_request_max_attempts"`
}

type JWTSettings struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// OTPSettings controls one-time passcode lifetime and hashing.
type OTPSettings struct {
	TTL         time.Duration `mapstructure:"ttl"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	Retention   time.Duration `mapstructure:"retention"`
	BcryptCost  int           `mapstructure:"bcrypt_cost"`
}

// MailSettings configures the outbound SMTP transport. DebugLogCodes enables
// logging codes instead of sending them and is ignored in production.
type MailSettings struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	From          string `mapstructure:"from"`
	DebugLogCodes bool   `mapstructure:"debug_log_codes"`
}

// Configured reports whether an SMTP transport can be built.
func (m MailSettings) Configured() bool {
	return m.Host != "" && m.Username != "" && m.Password != ""
}

type GoogleSettings struct {
	ClientID string `mapstructure:"client_id"`
}

type TelemetrySettings struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

type LogSettings struct {
	Level        string        `mapstructure:"level"`
	FilePath     string        `mapstructure:"file_path"`
	MaxAge       time.Duration `mapstructure:"max_age"`
	RotationTime time.Duration `mapstructure:"rotation_time"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(envPrefix)

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"app.cors_origins",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"postgres.auto_migrate",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.otp_prefix",
		"kafka.brokers",
		"kafka.topic_prefix",
		"jwt.secret",
		"jwt.ttl",
		"otp.ttl",
		"otp.max_attempts",
		"otp.retention",
		"otp.bcrypt_cost",
		"mail.host",
		"mail.port",
		"mail.username",
		"mail.password",
		"mail.from",
		"mail.debug_log_codes",
		"google.client_id",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
		"rate_limit.window_duration",
		"rate_limit.otp_request_max_attempts",
		"log.level",
		"log.file_path",
		"log.max_age",
		"log.rotation_time",
	}); err != nil {
		return nil, err
	}

	// Names used by existing deployments of the notes backend.
	aliases := map[string]string{
		"app.port":         "PORT",
		"jwt.secret":       "JWT_SECRET",
		"google.client_id": "GOOGLE_CLIENT_ID",
		"mail.host":        "SMTP_HOST",
		"mail.port":        "SMTP_PORT",
		"mail.username":    "SMTP_USER",
		"mail.password":    "SMTP_PASS",
		"mail.from":        "SMTP_FROM",
	}
	for key, env := range aliases {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envPrefix+"_"+envKey, envKey, env); err != nil {
			return nil, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the service must not start with.
func (c *AppConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.JWT.Secret) == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if c.JWT.TTL <= 0 {
		errs = append(errs, errors.New("jwt.ttl must be positive"))
	}
	if c.OTP.TTL <= 0 {
		errs = append(errs, errors.New("otp.ttl must be positive"))
	}
	if c.OTP.MaxAttempts <= 0 {
		errs = append(errs, errors.New("otp.max_attempts must be positive"))
	}
	if c.App.Port <= 0 {
		errs = append(errs, errors.New("app.port must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "hd-notes")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 5001)
	v.SetDefault("app.cors_origins", []string{"http://localhost:5173", "https://hd-notes-app.vercel.app"})

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "notes")
	v.SetDefault("postgres.password", "notes_password")
	v.SetDefault("postgres.database", "notes")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")
	v.SetDefault("postgres.auto_migrate", true)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.otp_prefix", "notes:otp")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "notes")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.ttl", "168h")

	v.SetDefault("otp.ttl", "5m")
	v.SetDefault("otp.max_attempts", 5)
	v.SetDefault("otp.retention", "10m")
	v.SetDefault("otp.bcrypt_cost", 10)

	v.SetDefault("mail.host", "")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "")
	v.SetDefault("mail.debug_log_codes", false)

	v.SetDefault("google.client_id", "")

	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_name", "hd-notes")
	v.SetDefault("telemetry.sampling_rate", 1.0)

	v.SetDefault("rate_limit.window_duration", "1m")
	v.SetDefault("rate_limit.otp_request_max_attempts", 5)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file_path", "")
	v.SetDefault("log.max_age", "168h")
	v.SetDefault("log.rotation_time", "24h")
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envPrefix+"_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
