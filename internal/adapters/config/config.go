package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"salesdesk/internal/domain/availability"
	"salesdesk/pkg/errors"
)

type Config struct {
	App           AppConfig
	HTTP          HTTPConfig
	Schedule      ScheduleConfig
	State         StateConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	RateLimit     RateLimitConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"salesdesk"`
	Version  string `envconfig:"APP_VERSION" default:"dev"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type HTTPConfig struct {
	Port            int           `envconfig:"HTTP_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"10s"`
	ShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"15s"`
	CORSOrigins     []string      `envconfig:"HTTP_CORS_ORIGINS" default:"*"`
}

// ScheduleConfig describes the phone-service window. Times are HH:MM in the
// given IANA zone; the closed day is named in the opening zone.
type ScheduleConfig struct {
	OpenTime         string        `envconfig:"SCHEDULE_OPEN_TIME" default:"11:00"`
	OpenZone         string        `envconfig:"SCHEDULE_OPEN_ZONE" default:"Asia/Jerusalem"`
	CloseTime        string        `envconfig:"SCHEDULE_CLOSE_TIME" default:"20:00"`
	CloseZone        string        `envconfig:"SCHEDULE_CLOSE_ZONE" default:"America/Guatemala"`
	ClosedDay        string        `envconfig:"SCHEDULE_CLOSED_DAY" default:"sunday"`
	ImmediateBuffer  time.Duration `envconfig:"SCHEDULE_IMMEDIATE_BUFFER" default:"20m"`
	DelayedThreshold time.Duration `envconfig:"SCHEDULE_DELAYED_THRESHOLD" default:"4h"`
	FallbackLink     string        `envconfig:"SCHEDULE_FALLBACK_LINK" default:"https://calendly.com/lucentiveclub-support/30min"`
}

// WindowSpec converts the schedule section into a validated window description
func (c ScheduleConfig) WindowSpec() (availability.WindowSpec, error) {
	var errs errors.MultiError

	open, err := availability.ParseLocalTime(c.OpenTime)
	errs.Add(err)
	closeAt, err := availability.ParseLocalTime(c.CloseTime)
	errs.Add(err)
	day, err := availability.ParseWeekday(c.ClosedDay)
	errs.Add(err)

	if err := errs.ToError(); err != nil {
		return availability.WindowSpec{}, errors.NewConfigurationError("invalid schedule", err)
	}

	spec := availability.WindowSpec{
		Open:      availability.ZonedTime{At: open, Zone: strings.TrimSpace(c.OpenZone)},
		Close:     availability.ZonedTime{At: closeAt, Zone: strings.TrimSpace(c.CloseZone)},
		ClosedDay: day,
	}
	if err := spec.Validate(); err != nil {
		return availability.WindowSpec{}, err
	}
	return spec, nil
}

type StateConfig struct {
	Backend       string        `envconfig:"STATE_BACKEND" default:"memory"` // memory | redis
	TTL           time.Duration `envconfig:"STATE_TTL" default:"72h"`
	MaxEntries    int           `envconfig:"STATE_MAX_ENTRIES" default:"100000"`
	SweepInterval time.Duration `envconfig:"STATE_SWEEP_INTERVAL" default:"10m"`
}

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Enabled reports whether a redis host was configured
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

type KafkaConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS"`
	Async   bool     `envconfig:"KAFKA_ASYNC" default:"false"`
}

func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

type RateLimitConfig struct {
	Enabled bool    `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	RPS     float64 `envconfig:"RATE_LIMIT_RPS" default:"50"`
	Burst   int     `envconfig:"RATE_LIMIT_BURST" default:"100"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	Provider    string `envconfig:"ERROR_TRACKING_PROVIDER" default:"sentry"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Validate checks cross-field constraints envconfig cannot express
func (c *Config) Validate() error {
	var errs errors.MultiError

	if _, err := c.Schedule.WindowSpec(); err != nil {
		errs.Add(err)
	}
	if c.Schedule.ImmediateBuffer < 0 || c.Schedule.DelayedThreshold < 0 {
		errs.Add(errors.NewValidationError("schedule", "durations must be non-negative", nil))
	}
	switch c.State.Backend {
	case "":
		// a blank STATE_BACKEND= line bypasses the envconfig default
		c.State.Backend = BackendMemory
	case BackendMemory:
	case BackendRedis:
		if !c.Redis.Enabled() {
			errs.Add(errors.NewValidationError("REDIS_HOST", "required when STATE_BACKEND=redis", ""))
		}
	default:
		errs.Add(errors.NewValidationError("STATE_BACKEND", "must be memory or redis", c.State.Backend))
	}
	if c.State.MaxEntries <= 0 {
		errs.Add(errors.NewValidationError("STATE_MAX_ENTRIES", "must be positive", c.State.MaxEntries))
	}

	return errs.ToError()
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &cfg, nil
}
