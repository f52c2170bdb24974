package bootstrap

import (
	"context"
	"sync"

	"salesdesk/internal/adapters/config"
	"salesdesk/internal/adapters/kafka"
	redisclient "salesdesk/internal/adapters/redis"
	"salesdesk/internal/api"
	"salesdesk/internal/api/health"
	"salesdesk/internal/domain/conversation"
	"salesdesk/internal/domain/onboarding"
	"salesdesk/internal/events"
	"salesdesk/internal/metrics"
	"salesdesk/internal/services/availability"
	conversationsvc "salesdesk/internal/services/conversation"
	onboardingsvc "salesdesk/internal/services/onboarding"
	"salesdesk/internal/tools"
	"salesdesk/internal/workers"
	"salesdesk/pkg/errors"
	"salesdesk/pkg/logger"
)

// Container holds all application dependencies and their lifecycle
// Components are organized in initialization order
type Container struct {
	// Core configuration & logging
	Config       *config.Config
	Log          *logger.Logger
	ErrorTracker errors.Tracker

	// Infrastructure, only set for the redis state backend
	Redis *redisclient.Client

	Repos       *Repositories
	Adapters    *Adapters
	Services    *Services
	Business    *Business
	Application *Application
	Background  *Background

	// Lifecycle management
	Lifecycle *Lifecycle
	WG        *sync.WaitGroup
	Context   context.Context
	Cancel    context.CancelFunc
}

// Repositories groups the per-conversation state stores
type Repositories struct {
	Onboarding   onboarding.Repository
	Conversation conversation.Repository

	// Sizers feed the state collector; Sweepers are only set for the memory backend
	Sizers   map[string]metrics.Sizer
	Sweepers map[string]workers.Sweeper
}

// Adapters groups all external adapters
type Adapters struct {
	KafkaProducer *kafka.Producer
	Events        *events.Publisher
}

// Services groups all domain services
type Services struct {
	Availability *availability.Service
	Onboarding   *onboardingsvc.Service
	Conversation *conversationsvc.Service
}

// Business groups business logic components
type Business struct {
	ToolRegistry *tools.Registry
}

// Application groups application layer components
type Application struct {
	HTTPServer    *api.Server
	HealthHandler *health.Handler
}

// Background groups all background processing components
type Background struct {
	WorkerScheduler *workers.Scheduler
}

// NewContainer creates a new dependency container
func NewContainer() *Container {
	ctx, cancel := context.WithCancel(context.Background())

	return &Container{
		Repos:       &Repositories{},
		Adapters:    &Adapters{},
		Services:    &Services{},
		Business:    &Business{},
		Application: &Application{},
		Background:  &Background{},
		Lifecycle:   NewLifecycle(),
		WG:          &sync.WaitGroup{},
		Context:     ctx,
		Cancel:      cancel,
	}
}

// MustInit initializes all components in the correct order
// Panics on any initialization error (fail-fast at startup)
func (c *Container) MustInit() {
	c.MustInitConfig()
	c.MustInitInfrastructure()
	c.MustInitRepositories()
	c.MustInitAdapters()
	c.MustInitServices()
	c.MustInitBusiness()
	c.MustInitApplication()
	c.MustInitBackground()
}

// Start starts the HTTP server and background workers
func (c *Container) Start() error {
	c.Log.Info("Starting all systems...")

	if err := c.Background.WorkerScheduler.Start(c.Context); err != nil {
		return errors.Wrap(err, "failed to start workers")
	}

	c.WG.Add(1)
	go func() {
		defer c.WG.Done()
		if err := c.Application.HTTPServer.Start(); err != nil {
			c.Log.Errorf("HTTP server failed: %v", err)
			c.Cancel() // Trigger shutdown on fatal HTTP error
		}
	}()

	c.Log.Infow("All systems operational",
		"tools", len(c.Business.ToolRegistry.List()),
		"state_backend", c.Config.State.Backend,
		"events", c.Adapters.KafkaProducer != nil,
	)
	return nil
}

// Shutdown performs graceful shutdown in the correct order
func (c *Container) Shutdown() {
	c.Log.Info("Initiating graceful shutdown...")
	c.Cancel()

	c.Lifecycle.Shutdown(
		c.WG,
		c.Application.HTTPServer,
		c.Background.WorkerScheduler,
		c.Adapters.KafkaProducer,
		c.Redis,
		c.ErrorTracker,
		c.Log,
	)
}
