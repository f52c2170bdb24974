package bootstrap

import (
	"salesdesk/internal/adapters/config"
	"salesdesk/internal/workers"
	"salesdesk/pkg/logger"
)

// provideWorkers initializes all background workers
func provideWorkers(cfg *config.Config, repos *Repositories, log *logger.Logger) []workers.Worker {
	var list []workers.Worker

	if len(repos.Sweepers) > 0 {
		list = append(list, workers.NewStateSweeper(repos.Sweepers, cfg.State.SweepInterval, log))
		log.Infow("State sweeper configured",
			"interval", cfg.State.SweepInterval,
			"ttl", cfg.State.TTL,
			"max_entries", cfg.State.MaxEntries,
		)
	}

	return list
}
