package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"salesdesk/internal/api/health"
	"salesdesk/internal/metrics"
	"salesdesk/internal/tools"
	"salesdesk/pkg/errors"
	"salesdesk/pkg/logger"
)

// ServerConfig contains configuration for HTTP server
type ServerConfig struct {
	Port         int
	ServiceName  string
	Version      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
	RateLimit    RateLimit
}

// RateLimit configures the shared token bucket in front of /v1
type RateLimit struct {
	Enabled bool
	RPS     float64
	Burst   int
}

// Server wraps HTTP server with lifecycle management
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

// NewServer creates and configures HTTP server with all routes
func NewServer(cfg ServerConfig, healthHandler *health.Handler, registry *tools.Registry, log *logger.Logger) *Server {
	port := 8080
	if cfg.Port > 0 {
		port = cfg.Port
	}
	readTimeout, writeTimeout := cfg.ReadTimeout, cfg.WriteTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}

	log.Infof("HTTP server configured on port %d", port)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      NewRouter(cfg, healthHandler, registry, log),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			IdleTimeout:  60 * time.Second,
		},
		log: log,
	}
}

// NewRouter wires every route and the middleware stack
func NewRouter(cfg ServerConfig, healthHandler *health.Handler, registry *tools.Registry, log *logger.Logger) http.Handler {
	r := mux.NewRouter()
	r.Use(requestID, instrument)

	// Health check endpoints (Kubernetes probes)
	r.HandleFunc("/health", healthHandler.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", healthHandler.HandleReadiness).Methods(http.MethodGet)
	r.HandleFunc("/live", healthHandler.HandleLiveness).Methods(http.MethodGet)

	// Prometheus metrics endpoint
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	h := NewHandler(registry, log)

	v1 := r.PathPrefix("/v1").Subrouter()
	if cfg.RateLimit.Enabled {
		v1.Use(newRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, log).Middleware)
	}

	v1.HandleFunc("/availability", h.CheckAvailability).Methods(http.MethodPost)
	v1.HandleFunc("/availability/recommendation", h.Recommend).Methods(http.MethodPost)
	v1.HandleFunc("/booking-link", h.BookingLink).Methods(http.MethodGet)

	conv := v1.PathPrefix("/conversations/{key}").Subrouter()
	conv.HandleFunc("/callback", h.ConfirmCallback).Methods(http.MethodPost)
	conv.HandleFunc("/onboarding", h.GetOnboarding).Methods(http.MethodGet)
	conv.HandleFunc("/onboarding", h.UpdateOnboarding).Methods(http.MethodPatch)
	conv.HandleFunc("/onboarding/complete", h.CompleteOnboarding).Methods(http.MethodPost)
	conv.HandleFunc("/lead", h.UpdateLead).Methods(http.MethodPatch)
	conv.HandleFunc("/context", h.RestoreContext).Methods(http.MethodPost)

	v1.HandleFunc("/tools", h.ListTools).Methods(http.MethodGet)
	v1.HandleFunc("/tools/{name}", h.InvokeTool).Methods(http.MethodPost)

	// Root endpoint (service info)
	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"service": cfg.ServiceName,
			"version": cfg.Version,
			"status":  "running",
		})
	}).Methods(http.MethodGet)

	// router middleware only runs on matched routes
	r.NotFoundHandler = requestID(instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, errors.Wrapf(errors.ErrNotFound, "no route for %s %s", r.Method, r.URL.Path), log)
	})))

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", requestIDHeader}),
		handlers.ExposedHeaders([]string{requestIDHeader}),
	)
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{log: log}),
		handlers.PrintRecoveryStack(false),
	)

	return recovery(cors(r))
}

// Start begins listening for HTTP requests
// Blocks until server is stopped or encounters an error
func (s *Server) Start() error {
	s.log.Infof("Starting HTTP server on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "http server failed")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
// Waits for active connections to complete within timeout
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Stopping HTTP server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "http server shutdown failed")
	}

	s.log.Info("HTTP server stopped")
	return nil
}
