package middleware

import (
	"context"
	"time"

	"salesdesk/internal/metrics"
	"salesdesk/internal/tools"
	"salesdesk/pkg/logger"
)

// MetricsMiddleware records tool latency and outcome, and logs failures.
type MetricsMiddleware struct {
	Log *logger.Logger
}

// Wrap instruments a tool.
func (m MetricsMiddleware) Wrap(t tools.Tool) tools.Tool {
	return tools.New(t.Name(), t.Description(), func(ctx context.Context, args interface{}) (interface{}, error) {
		start := time.Now()
		result, err := t.Execute(ctx, args)
		latency := time.Since(start)

		metrics.RecordToolExecution(t.Name(), latency, err)
		if err != nil && m.Log != nil {
			m.Log.Warnw("Tool execution failed",
				"tool", t.Name(),
				"duration_ms", latency.Milliseconds(),
				"error", err,
			)
		}

		return result, err
	})
}

// Chain applies wrappers so that the first one listed is outermost.
func Chain(t tools.Tool, wrappers ...interface{ Wrap(tools.Tool) tools.Tool }) tools.Tool {
	for i := len(wrappers) - 1; i >= 0; i-- {
		t = wrappers[i].Wrap(t)
	}
	return t
}
