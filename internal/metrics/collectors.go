package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"salesdesk/pkg/logger"
)

// Sizer reports how many per-conversation entries a store holds
type Sizer interface {
	Len(ctx context.Context) (int, error)
}

// StateCollector exposes store sizes at scrape time
type StateCollector struct {
	log    *logger.Logger
	stores map[string]Sizer

	entries *prometheus.Desc
}

// NewStateCollector creates a collector over the named stores
func NewStateCollector(log *logger.Logger, stores map[string]Sizer) *StateCollector {
	return &StateCollector{
		log:    log,
		stores: stores,
		entries: prometheus.NewDesc(
			"salesdesk_state_entries",
			"Number of per-conversation entries held by a store",
			[]string{"store"}, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *StateCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.entries
}

// Collect implements prometheus.Collector
func (c *StateCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for name, store := range c.stores {
		n, err := store.Len(ctx)
		if err != nil {
			c.log.Warnw("Failed to collect store size", "store", name, "error", err)
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(n), name)
	}
}
