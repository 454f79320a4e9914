package postgres

import (
	"context"

	"traderwatch/internal/domain/signal"
)

// Compile-time check
var _ signal.Repository = (*SignalRepository)(nil)

// SignalRepository implements signal.Repository using sqlx
type SignalRepository struct {
	db DBTX
}

// NewSignalRepository creates a new signal repository
func NewSignalRepository(db DBTX) *SignalRepository {
	return &SignalRepository{db: db}
}

// FindByTrader retrieves all stored signals for a trader
func (r *SignalRepository) FindByTrader(ctx context.Context, traderID string) ([]*signal.Signal, error) {
	var signals []*signal.Signal

	query := `
		SELECT * FROM signals
		WHERE trader_id = $1
		ORDER BY open_time DESC`

	err := r.db.SelectContext(ctx, &signals, query, traderID)
	if err != nil {
		return nil, err
	}

	return signals, nil
}

// Insert stores a signal. The unique index on signal_id makes re-inserting
// an announced position a no-op, which keeps retries after a partial failure
// from producing duplicate announcements.
func (r *SignalRepository) Insert(ctx context.Context, sig *signal.Signal) error {
	query := `
		INSERT INTO signals (
			id, signal_id, trader_id, trader_name,
			inst_id, pos_side,
			open_price, open_timestamp, open_time,
			leverage, size, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
		ON CONFLICT (signal_id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query,
		sig.ID, sig.SignalID, sig.TraderID, sig.TraderName,
		sig.InstID, sig.PosSide,
		sig.OpenPrice, sig.OpenTimestamp, sig.OpenTime,
		sig.Leverage, sig.Size, sig.CreatedAt,
	)

	return err
}

// DeleteByKey removes the signal with the given natural key
func (r *SignalRepository) DeleteByKey(ctx context.Context, signalID string) error {
	query := `DELETE FROM signals WHERE signal_id = $1`

	_, err := r.db.ExecContext(ctx, query, signalID)
	return err
}

// ExistsByKey reports whether a signal with the key is stored
func (r *SignalRepository) ExistsByKey(ctx context.Context, signalID string) (bool, error) {
	var exists bool

	query := `SELECT EXISTS(SELECT 1 FROM signals WHERE signal_id = $1)`

	err := r.db.GetContext(ctx, &exists, query, signalID)
	if err != nil {
		return false, err
	}

	return exists, nil
}
