package workers

import (
	"context"

	"traderwatch/internal/adapters/config"
	"traderwatch/internal/domain/trader"
	"traderwatch/internal/services/watch"
	"traderwatch/pkg/errors"
)

// WatchWorker drives one reconciliation pass over every tracked trader.
// Traders are checked sequentially: each trader's cycle writes state the
// next cycle for the same trader reads, and the shared fetch limiter makes
// parallelism pointless anyway.
type WatchWorker struct {
	*BaseWorker
	service  *watch.Service
	registry trader.Registry
}

// NewWatchWorker creates the position watch worker.
func NewWatchWorker(service *watch.Service, registry trader.Registry, cfg config.WatchConfig) *WatchWorker {
	return &WatchWorker{
		BaseWorker: NewBaseWorker("position_watch", cfg.Interval, cfg.Jitter, true),
		service:    service,
		registry:   registry,
	}
}

// Run checks every trader once. One trader's failure never blocks the rest;
// the pass reports an error if any trader's cycle failed.
func (w *WatchWorker) Run(ctx context.Context) error {
	traders, err := w.registry.List()
	if err != nil {
		return errors.Wrap(err, "list traders")
	}

	var failed int
	for _, t := range traders {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := w.service.CheckTrader(ctx, t); err != nil {
			failed++
			w.Log().Warnw("Trader cycle failed",
				"trader", t.Name,
				"trader_id", t.ID,
				"error", err,
			)
		}
	}

	if failed > 0 {
		return errors.Wrapf(errors.ErrInternal, "%d of %d trader cycles failed", failed, len(traders))
	}
	return nil
}
