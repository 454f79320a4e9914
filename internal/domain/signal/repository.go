package signal

import "context"

// Repository defines the interface for durable signal storage.
//
// Single-writer-per-trader discipline is assumed: writes made during one
// reconciliation are visible to the next cycle's FindByTrader. Trader ids are
// independent key spaces, so cross-trader concurrency is unconstrained.
type Repository interface {
	// FindByTrader returns all stored signals for one trader.
	FindByTrader(ctx context.Context, traderID string) ([]*Signal, error)

	// Insert stores a signal. Inserting an already-present signal_id is a
	// no-op, keeping retries after partial failures idempotent.
	Insert(ctx context.Context, sig *Signal) error

	// DeleteByKey removes the signal with the given natural key.
	DeleteByKey(ctx context.Context, signalID string) error

	// ExistsByKey reports whether a signal with the key is stored.
	ExistsByKey(ctx context.Context, signalID string) (bool, error)
}
