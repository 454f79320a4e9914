package watch

import (
	"context"

	"traderwatch/internal/domain/signal"
	"traderwatch/internal/domain/trader"
	"traderwatch/internal/metrics"
	"traderwatch/internal/notify"
	"traderwatch/pkg/errors"
	"traderwatch/pkg/logger"
)

// Source provides one trader's currently open positions.
type Source interface {
	FetchTraderPositions(ctx context.Context, traderID string) ([]signal.PositionEntry, error)
}

// Notifier accepts outbound messages for ordered delivery.
type Notifier interface {
	Enqueue(msg notify.Message) error
}

// Config holds the delivery target for the notifications this service emits.
type Config struct {
	ChatID   int64
	ThreadID int
}

// Service runs the per-trader reconciliation cycle: fetch the open-position
// snapshot, diff it against the stored signals, persist each transition, then
// enqueue its notification. Persistence always precedes enqueueing so a crash
// between the two loses a message rather than duplicating one.
type Service struct {
	source  Source
	signals signal.Repository
	queue   Notifier
	cfg     Config
	log     *logger.Logger
}

// NewService creates the watch service.
func NewService(source Source, signals signal.Repository, queue Notifier, cfg Config) *Service {
	return &Service{
		source:  source,
		signals: signals,
		queue:   queue,
		cfg:     cfg,
		log:     logger.Get().With("component", "watch_service"),
	}
}

// CheckTrader runs one cycle for one trader.
//
// A failed fetch leaves the trader's state unknown: the stored signals are not
// touched and no closes are derived, because a missing snapshot is not
// evidence that anything closed.
func (s *Service) CheckTrader(ctx context.Context, t trader.Trader) error {
	fresh, err := s.source.FetchTraderPositions(ctx, t.ID)
	if err != nil {
		if errors.Is(err, errors.ErrFetchFailed) {
			s.log.Warnw("Snapshot fetch failed, skipping cycle",
				"trader_id", t.ID,
				"trader", t.Name,
				"error", err,
			)
		}
		return err
	}

	stored, err := s.signals.FindByTrader(ctx, t.ID)
	if err != nil {
		return errors.Wrapf(err, "load stored signals for trader %s", t.ID)
	}

	diff := signal.Reconcile(fresh, stored)
	if diff.Empty() {
		return nil
	}

	s.log.Infow("Position transitions detected",
		"trader", t.Name,
		"opened", len(diff.Opened),
		"closed", len(diff.Closed),
	)

	for _, entry := range diff.Opened {
		s.announceOpen(ctx, t, entry)
	}
	for _, sig := range diff.Closed {
		s.announceClose(ctx, sig)
	}

	return nil
}

func (s *Service) announceOpen(ctx context.Context, t trader.Trader, entry signal.PositionEntry) {
	sig := signal.NewFromEntry(t.ID, t.Name, entry)

	// Not persisted means not announced; the position is still open next
	// cycle and gets retried then.
	if err := s.signals.Insert(ctx, sig); err != nil {
		s.log.Errorw("Failed to persist open signal",
			"signal_id", sig.SignalID,
			"trader", t.Name,
			"error", err,
		)
		return
	}

	metrics.SignalsOpened.Inc()
	s.enqueue(sig.SignalID, FormatOpen(sig))
}

func (s *Service) announceClose(ctx context.Context, sig *signal.Signal) {
	// Delete first: once the record is gone the close cannot be derived
	// again, so at most one close notification exists per signal.
	if err := s.signals.DeleteByKey(ctx, sig.SignalID); err != nil {
		s.log.Errorw("Failed to delete closed signal",
			"signal_id", sig.SignalID,
			"trader", sig.TraderName,
			"error", err,
		)
		return
	}

	metrics.SignalsClosed.Inc()
	s.enqueue(sig.SignalID, FormatClose(sig))
}

func (s *Service) enqueue(signalID, text string) {
	msg := notify.Message{
		ChatID: s.cfg.ChatID,
		Text:   text,
		Options: notify.Options{
			ParseMode:             "HTML",
			MessageThreadID:       s.cfg.ThreadID,
			DisableWebPagePreview: true,
		},
	}
	if err := s.queue.Enqueue(msg); err != nil {
		s.log.Errorw("Failed to enqueue notification",
			"signal_id", signalID,
			"error", err,
		)
	}
}
