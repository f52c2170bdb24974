package bootstrap

import (
	"github.com/prometheus/client_golang/prometheus"

	"salesdesk/internal/adapters/config"
	errnoop "salesdesk/internal/adapters/errors/noop"
	"salesdesk/internal/adapters/errors/sentry"
	"salesdesk/internal/adapters/kafka"
	redisclient "salesdesk/internal/adapters/redis"
	"salesdesk/internal/api"
	"salesdesk/internal/api/health"
	"salesdesk/internal/events"
	"salesdesk/internal/metrics"
	"salesdesk/internal/repository/memory"
	redisrepo "salesdesk/internal/repository/redis"
	"salesdesk/internal/services/availability"
	conversationsvc "salesdesk/internal/services/conversation"
	onboardingsvc "salesdesk/internal/services/onboarding"
	"salesdesk/internal/tools"
	"salesdesk/internal/tools/builtin"
	"salesdesk/internal/workers"
	"salesdesk/pkg/errors"
	"salesdesk/pkg/logger"
)

// ========================================
// Phase 1: Configuration & Logging
// ========================================

// MustInitConfig loads configuration and initializes logger
func (c *Container) MustInitConfig() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	c.Config = cfg

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}

	c.Log = logger.Get()
	c.Log.Infof("Starting %s %s in %s mode", cfg.App.Name, cfg.App.Version, cfg.App.Env)

	c.ErrorTracker = ProvideErrorTracker(cfg, c.Log)
	logger.SetErrorTracker(c.ErrorTracker)

	if cfg.HTTP.ShutdownTimeout > 0 {
		c.Lifecycle.httpTimeout = cfg.HTTP.ShutdownTimeout
	}
}

// ========================================
// Phase 2: Infrastructure Layer
// ========================================

// MustInitInfrastructure connects to redis when it backs the state stores
func (c *Container) MustInitInfrastructure() {
	if c.Config.State.Backend != config.BackendRedis {
		c.Log.Info("Using in-process state backend")
		return
	}

	c.Log.Infow("Connecting to Redis...", "addr", c.Config.Redis.Addr())
	client, err := redisclient.NewClient(c.Config.Redis)
	if err != nil {
		c.Log.Fatalf("failed to connect redis: %v", err)
	}
	c.Redis = client
	c.Log.Info("Redis connected")
}

// ========================================
// Phase 3: Repositories
// ========================================

// MustInitRepositories picks the state backend
func (c *Container) MustInitRepositories() {
	state := c.Config.State

	if c.Redis != nil {
		onb := redisrepo.NewOnboardingRepository(c.Redis.Client(), state.TTL)
		conv := redisrepo.NewConversationRepository(c.Redis.Client(), state.TTL)
		c.Repos.Onboarding = onb
		c.Repos.Conversation = conv
		c.Repos.Sizers = map[string]metrics.Sizer{"onboarding": onb, "conversation": conv}
	} else {
		policy := memory.Policy{TTL: state.TTL, MaxEntries: state.MaxEntries}
		onb := memory.NewOnboardingRepository(policy)
		conv := memory.NewConversationRepository(policy)
		c.Repos.Onboarding = onb
		c.Repos.Conversation = conv
		c.Repos.Sizers = map[string]metrics.Sizer{"onboarding": onb, "conversation": conv}
		c.Repos.Sweepers = map[string]workers.Sweeper{"onboarding": onb, "conversation": conv}
	}

	metrics.Init()
	prometheus.MustRegister(metrics.NewStateCollector(c.Log, c.Repos.Sizers))
	c.Log.Infow("Repositories initialized", "backend", state.Backend, "ttl", state.TTL)
}

// ========================================
// Phase 4: External Adapters
// ========================================

// MustInitAdapters sets up event publishing. Without brokers events are dropped.
func (c *Container) MustInitAdapters() {
	c.Adapters.KafkaProducer = provideKafkaProducer(c.Config, c.Log)

	var sink events.Sink
	if c.Adapters.KafkaProducer != nil {
		sink = c.Adapters.KafkaProducer
	}
	c.Adapters.Events = events.NewPublisher(sink, c.Log)
}

// ========================================
// Phase 5: Services
// ========================================

// MustInitServices wires the three domain services
func (c *Container) MustInitServices() {
	avail, err := ProvideAvailability(c.Config, c.Adapters.Events, c.Log)
	if err != nil {
		c.Log.Fatalf("invalid schedule configuration: %v", err)
	}
	c.Services.Availability = avail

	c.Services.Conversation = conversationsvc.NewService(c.Repos.Conversation, c.Adapters.Events, c.Log)
	c.Services.Onboarding = onboardingsvc.NewService(
		c.Repos.Onboarding,
		c.Services.Conversation,
		c.Adapters.Events,
		c.Log,
	)
	c.Log.Info("Services initialized")
}

// ========================================
// Phase 6: Business Logic
// ========================================

// MustInitBusiness registers the tools
func (c *Container) MustInitBusiness() {
	c.Business.ToolRegistry = tools.NewRegistry()
	builtin.RegisterAll(c.Business.ToolRegistry, builtin.Deps{
		Availability: c.Services.Availability,
		Onboarding:   c.Services.Onboarding,
		Conversation: c.Services.Conversation,
		Log:          c.Log,
	})
}

// ========================================
// Phase 7: Application Layer
// ========================================

// MustInitApplication builds the health handler and HTTP server
func (c *Container) MustInitApplication() {
	checks := map[string]health.Checker{}
	if c.Redis != nil {
		checks["redis"] = c.Redis
	}
	if c.Adapters.KafkaProducer != nil {
		checks["kafka"] = c.Adapters.KafkaProducer
	}
	c.Application.HealthHandler = health.New(c.Log, checks, c.Config.App.Name, c.Config.App.Version)

	c.Application.HTTPServer = api.NewServer(api.ServerConfig{
		Port:         c.Config.HTTP.Port,
		ServiceName:  c.Config.App.Name,
		Version:      c.Config.App.Version,
		ReadTimeout:  c.Config.HTTP.ReadTimeout,
		WriteTimeout: c.Config.HTTP.WriteTimeout,
		CORSOrigins:  c.Config.HTTP.CORSOrigins,
		RateLimit: api.RateLimit{
			Enabled: c.Config.RateLimit.Enabled,
			RPS:     c.Config.RateLimit.RPS,
			Burst:   c.Config.RateLimit.Burst,
		},
	}, c.Application.HealthHandler, c.Business.ToolRegistry, c.Log)
}

// ========================================
// Phase 8: Background
// ========================================

// MustInitBackground registers background workers
func (c *Container) MustInitBackground() {
	c.Background.WorkerScheduler = workers.NewScheduler(c.Log)
	for _, w := range provideWorkers(c.Config, c.Repos, c.Log) {
		c.Background.WorkerScheduler.RegisterWorker(w)
	}
}

// ========================================
// Helper Provider Functions
// ========================================

// ProvideErrorTracker returns Sentry when configured, otherwise a no-op tracker
func ProvideErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return errnoop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment, cfg.App.Version)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return errnoop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// ProvideAvailability builds the availability service from the schedule section.
// publisher may be nil.
func ProvideAvailability(cfg *config.Config, publisher availability.CallbackPublisher, log *logger.Logger) (*availability.Service, error) {
	spec, err := cfg.Schedule.WindowSpec()
	if err != nil {
		return nil, err
	}
	policy, err := availability.NewWindowPolicy(spec)
	if err != nil {
		return nil, err
	}
	engine, err := availability.NewEngine(policy, availability.OfferPolicy{
		ImmediateBuffer:  cfg.Schedule.ImmediateBuffer,
		DelayedThreshold: cfg.Schedule.DelayedThreshold,
		FallbackLink:     cfg.Schedule.FallbackLink,
	})
	if err != nil {
		return nil, err
	}
	return availability.NewService(engine, availability.SystemClock{}, publisher, log), nil
}

func provideKafkaProducer(cfg *config.Config, log *logger.Logger) *kafka.Producer {
	if !cfg.Kafka.Enabled() {
		log.Info("Kafka brokers not configured, domain events will be dropped")
		return nil
	}

	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers: cfg.Kafka.Brokers,
		Async:   cfg.Kafka.Async,
	}, log)
	log.Infow("Kafka producer initialized", "brokers", cfg.Kafka.Brokers)
	return producer
}
