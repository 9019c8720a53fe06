// Package cleanup provides the background sweeper for the in-memory stores.
package cleanup

import (
	"context"
	"time"

	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
)

// Sweeper is anything that can purge its own expired entries.
type Sweeper interface {
	Sweep() int
}

// Target names a store for reporting.
type Target struct {
	Name  string
	Store Sweeper
}

// Worker periodically sweeps the registered stores. The stores also sweep
// lazily on access; the worker keeps idle maps from growing.
type Worker struct {
	targets []Target
	config  *Config
	logger  *logging.ChanneledLogger
}

// NewWorker creates a new cleanup worker with injected configuration
func NewWorker(cfg *Config, logger *logging.ChanneledLogger, targets ...Target) *Worker {
	if cfg == nil {
		cfg = NewConfig()
	}
	return &Worker{
		targets: targets,
		config:  cfg,
		logger:  logger,
	}
}

// Start runs until ctx is cancelled. It always returns nil so it can sit in
// an errgroup next to the HTTP server.
func (w *Worker) Start(ctx context.Context) error {
	if w.config.SweepInterval <= 0 {
		w.logger.System().Info("Store sweeper disabled")
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(w.config.SweepInterval)
	defer ticker.Stop()

	w.logger.System().Info("Store sweeper started",
		"interval", w.config.SweepInterval,
		"verbose", w.config.VerboseReporting,
		"stores", len(w.targets))

	for {
		select {
		case <-ctx.Done():
			w.logger.Shutdown().Info("Store sweeper stopping")
			return nil
		case <-ticker.C:
			w.SweepOnce(ctx)
		}
	}
}

// SweepOnce sweeps every target and returns the total removed.
func (w *Worker) SweepOnce(ctx context.Context) int {
	start := time.Now()

	var total int
	for _, target := range w.targets {
		select {
		case <-ctx.Done():
			return total
		default:
		}

		removed := target.Store.Sweep()
		total += removed
		if w.config.VerboseReporting {
			w.logger.Debug().Debug("Store swept", "store", target.Name, "removed", removed)
		}
	}

	duration := time.Since(start)
	if total > 0 {
		w.logger.System().Info("Store sweep finished", "removed", total, "duration", duration)
	} else if w.config.VerboseReporting {
		w.logger.System().Debug("Store sweep completed - nothing expired", "duration", duration)
	}
	return total
}
