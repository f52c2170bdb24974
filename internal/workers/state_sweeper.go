package workers

import (
	"context"
	"sort"
	"time"

	"salesdesk/internal/metrics"
	"salesdesk/internal/repository/memory"
	"salesdesk/pkg/errors"
	"salesdesk/pkg/logger"
)

// Sweeper is an in-process store that evicts idle and overflow entries on demand
type Sweeper interface {
	Sweep(ctx context.Context) (memory.SweepResult, error)
}

// StateSweeper periodically evicts per-conversation state from the memory backend.
// The redis backend expires keys itself and never registers this worker.
type StateSweeper struct {
	*BaseWorker
	stores map[string]Sweeper
}

// NewStateSweeper creates the sweeper; stores is keyed by the metrics label
func NewStateSweeper(stores map[string]Sweeper, interval time.Duration, log *logger.Logger) *StateSweeper {
	return &StateSweeper{
		BaseWorker: NewBaseWorker("state_sweeper", interval, len(stores) > 0, log),
		stores:     stores,
	}
}

// Run sweeps every store once. A failing store does not stop the others.
func (w *StateSweeper) Run(ctx context.Context) error {
	names := make([]string, 0, len(w.stores))
	for name := range w.stores {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs errors.MultiError
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			errs.Add(err)
			break
		}

		res, err := w.stores[name].Sweep(ctx)
		if err != nil {
			errs.Add(errors.Wrapf(err, "sweep %s", name))
			continue
		}

		metrics.StateEvictions.WithLabelValues(name, "ttl").Add(float64(res.Expired))
		metrics.StateEvictions.WithLabelValues(name, "capacity").Add(float64(res.Overflow))

		if res.Total() > 0 {
			w.Log().Infow("Evicted conversation state",
				"store", name,
				"expired", res.Expired,
				"overflow", res.Overflow,
			)
		}
	}

	return errs.ToError()
}
