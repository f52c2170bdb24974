package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Availability metrics
	AvailabilityChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesdesk_availability_checks_total",
			Help: "Total number of availability computations",
		},
		[]string{"status", "special_day"}, // status: open|closed
	)

	OffersRecommended = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesdesk_offers_recommended_total",
			Help: "Callback offers recommended to leads",
		},
		[]string{"offer"},
	)

	CallbacksAccepted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesdesk_callbacks_accepted_total",
			Help: "Callback offers accepted by leads",
		},
		[]string{"offer"},
	)

	// Onboarding metrics
	OnboardingSteps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesdesk_onboarding_steps_completed_total",
			Help: "Onboarding steps newly marked as completed",
		},
		[]string{"step"},
	)

	OnboardingCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "salesdesk_onboarding_completed_total",
			Help: "Conversations that finished onboarding",
		},
	)

	// Conversation state metrics
	ContextRestores = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesdesk_context_restores_total",
			Help: "Conversation context re-initializations by cache outcome",
		},
		[]string{"outcome"}, // outcome: hit|miss
	)

	StateEvictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesdesk_state_evictions_total",
			Help: "Per-conversation entries removed by the sweeper",
		},
		[]string{"store", "reason"}, // reason: ttl|capacity
	)

	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesdesk_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "salesdesk_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30},
		},
		[]string{"worker"},
	)

	WorkerLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "salesdesk_worker_last_run_timestamp",
			Help: "Unix timestamp of last worker execution",
		},
		[]string{"worker"},
	)

	// Tool metrics
	ToolExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesdesk_tool_executions_total",
			Help: "Total number of tool invocations",
		},
		[]string{"tool", "status"},
	)

	ToolLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "salesdesk_tool_latency_seconds",
			Help:    "Tool execution latency in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"tool"},
	)

	// HTTP metrics
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesdesk_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"route", "method", "code"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "salesdesk_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// Event metrics
	EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesdesk_events_published_total",
			Help: "Domain events handed to the publisher",
		},
		[]string{"type", "status"},
	)
)

var initOnce sync.Once

// Init registers all metrics with Prometheus. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(AvailabilityChecks)
		prometheus.MustRegister(OffersRecommended)
		prometheus.MustRegister(CallbacksAccepted)

		prometheus.MustRegister(OnboardingSteps)
		prometheus.MustRegister(OnboardingCompleted)

		prometheus.MustRegister(ContextRestores)
		prometheus.MustRegister(StateEvictions)

		prometheus.MustRegister(WorkerExecutions)
		prometheus.MustRegister(WorkerDuration)
		prometheus.MustRegister(WorkerLastRun)

		prometheus.MustRegister(ToolExecutions)
		prometheus.MustRegister(ToolLatency)

		prometheus.MustRegister(HTTPRequests)
		prometheus.MustRegister(HTTPDuration)

		prometheus.MustRegister(EventsPublished)
	})
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordWorkerExecution records a worker execution
func RecordWorkerExecution(worker string, duration time.Duration, err error) {
	WorkerExecutions.WithLabelValues(worker, statusLabel(err)).Inc()
	WorkerDuration.WithLabelValues(worker).Observe(duration.Seconds())
	WorkerLastRun.WithLabelValues(worker).SetToCurrentTime()
}

// RecordToolExecution records a tool invocation
func RecordToolExecution(tool string, latency time.Duration, err error) {
	ToolExecutions.WithLabelValues(tool, statusLabel(err)).Inc()
	ToolLatency.WithLabelValues(tool).Observe(latency.Seconds())
}

// RecordAvailability records one availability computation
func RecordAvailability(status string, specialDay bool) {
	special := "false"
	if specialDay {
		special = "true"
	}
	AvailabilityChecks.WithLabelValues(status, special).Inc()
}

// RecordHTTPRequest records a served request
func RecordHTTPRequest(route, method string, code int, duration time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	HTTPDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordEvent records a publish attempt
func RecordEvent(eventType string, err error) {
	EventsPublished.WithLabelValues(eventType, statusLabel(err)).Inc()
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
