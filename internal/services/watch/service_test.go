package watch

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traderwatch/internal/domain/signal"
	"traderwatch/internal/domain/trader"
	"traderwatch/internal/notify"
	"traderwatch/pkg/errors"
)

type fakeSource struct {
	entries []signal.PositionEntry
	err     error
}

func (f *fakeSource) FetchTraderPositions(context.Context, string) ([]signal.PositionEntry, error) {
	return f.entries, f.err
}

type memoryRepo struct {
	signals   map[string]*signal.Signal
	insertErr error
	deleteErr error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{signals: make(map[string]*signal.Signal)}
}

func (m *memoryRepo) FindByTrader(_ context.Context, traderID string) ([]*signal.Signal, error) {
	var out []*signal.Signal
	for _, sig := range m.signals {
		if sig.TraderID == traderID {
			out = append(out, sig)
		}
	}
	return out, nil
}

func (m *memoryRepo) Insert(_ context.Context, sig *signal.Signal) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	if _, ok := m.signals[sig.SignalID]; ok {
		return nil
	}
	m.signals[sig.SignalID] = sig
	return nil
}

func (m *memoryRepo) DeleteByKey(_ context.Context, signalID string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.signals, signalID)
	return nil
}

func (m *memoryRepo) ExistsByKey(_ context.Context, signalID string) (bool, error) {
	_, ok := m.signals[signalID]
	return ok, nil
}

type captureQueue struct {
	messages []notify.Message
}

func (c *captureQueue) Enqueue(msg notify.Message) error {
	c.messages = append(c.messages, msg)
	return nil
}

var testTrader = trader.Trader{ID: "3C0A650E43C9F05F", Name: "Top Trader"}

func entry(instID, side, openTime string) signal.PositionEntry {
	return signal.PositionEntry{
		InstID:    instID,
		PosSide:   side,
		OpenAvgPx: "64250.5",
		OpenTime:  openTime,
		Lever:     "10",
		Pos:       "2.5",
	}
}

func newTestService(source Source, repo signal.Repository, queue Notifier) *Service {
	return NewService(source, repo, queue, Config{ChatID: 42, ThreadID: 7})
}

func TestCheckTrader_NewPositionPersistsAndNotifies(t *testing.T) {
	source := &fakeSource{entries: []signal.PositionEntry{entry("BTC-USDT-SWAP", "long", "1700000000000")}}
	repo := newMemoryRepo()
	queue := &captureQueue{}

	svc := newTestService(source, repo, queue)
	require.NoError(t, svc.CheckTrader(context.Background(), testTrader))

	exists, err := repo.ExistsByKey(context.Background(), "BTC-USDT-SWAP_long_1700000000000")
	require.NoError(t, err)
	assert.True(t, exists)

	require.Len(t, queue.messages, 1)
	msg := queue.messages[0]
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, 7, msg.Options.MessageThreadID)
	assert.Equal(t, "HTML", msg.Options.ParseMode)
	assert.Contains(t, msg.Text, "Top Trader")
	assert.Contains(t, msg.Text, "BTC-USDT-SWAP")
}

func TestCheckTrader_NoDuplicateAcrossCycles(t *testing.T) {
	source := &fakeSource{entries: []signal.PositionEntry{entry("BTC-USDT-SWAP", "long", "1700000000000")}}
	repo := newMemoryRepo()
	queue := &captureQueue{}

	svc := newTestService(source, repo, queue)
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.CheckTrader(context.Background(), testTrader))
	}

	assert.Len(t, queue.messages, 1)
}

func TestCheckTrader_CloseDeletesAndNotifies(t *testing.T) {
	source := &fakeSource{entries: []signal.PositionEntry{entry("BTC-USDT-SWAP", "long", "1700000000000")}}
	repo := newMemoryRepo()
	queue := &captureQueue{}

	svc := newTestService(source, repo, queue)
	require.NoError(t, svc.CheckTrader(context.Background(), testTrader))

	// Position vanishes from the next snapshot.
	source.entries = nil
	require.NoError(t, svc.CheckTrader(context.Background(), testTrader))

	exists, err := repo.ExistsByKey(context.Background(), "BTC-USDT-SWAP_long_1700000000000")
	require.NoError(t, err)
	assert.False(t, exists)

	require.Len(t, queue.messages, 2)
	assert.Contains(t, queue.messages[1].Text, "closed")

	// With the record gone, further empty snapshots announce nothing.
	require.NoError(t, svc.CheckTrader(context.Background(), testTrader))
	assert.Len(t, queue.messages, 2)
}

func TestCheckTrader_FetchFailureDerivesNoCloses(t *testing.T) {
	source := &fakeSource{entries: []signal.PositionEntry{entry("ETH-USDT-SWAP", "short", "1700000000000")}}
	repo := newMemoryRepo()
	queue := &captureQueue{}

	svc := newTestService(source, repo, queue)
	require.NoError(t, svc.CheckTrader(context.Background(), testTrader))
	require.Len(t, queue.messages, 1)

	source.entries = nil
	source.err = errors.Wrap(errors.ErrFetchFailed, "upstream gone")
	err := svc.CheckTrader(context.Background(), testTrader)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrFetchFailed))

	// The stored signal survives; absence of a snapshot is not a close.
	exists, lookupErr := repo.ExistsByKey(context.Background(), "ETH-USDT-SWAP_short_1700000000000")
	require.NoError(t, lookupErr)
	assert.True(t, exists)
	assert.Len(t, queue.messages, 1)

	// Once fetching recovers with an empty snapshot, the close is announced.
	source.err = nil
	require.NoError(t, svc.CheckTrader(context.Background(), testTrader))
	assert.Len(t, queue.messages, 2)
}

func TestCheckTrader_InsertFailureSkipsNotification(t *testing.T) {
	source := &fakeSource{entries: []signal.PositionEntry{entry("BTC-USDT-SWAP", "long", "1700000000000")}}
	repo := newMemoryRepo()
	repo.insertErr = errors.New("db down")
	queue := &captureQueue{}

	svc := newTestService(source, repo, queue)
	require.NoError(t, svc.CheckTrader(context.Background(), testTrader))
	assert.Empty(t, queue.messages)

	// Persistence recovers: the still-open position is announced exactly once.
	repo.insertErr = nil
	require.NoError(t, svc.CheckTrader(context.Background(), testTrader))
	require.NoError(t, svc.CheckTrader(context.Background(), testTrader))
	assert.Len(t, queue.messages, 1)
}

func TestCheckTrader_DeleteFailureSkipsCloseNotification(t *testing.T) {
	source := &fakeSource{entries: []signal.PositionEntry{entry("BTC-USDT-SWAP", "long", "1700000000000")}}
	repo := newMemoryRepo()
	queue := &captureQueue{}

	svc := newTestService(source, repo, queue)
	require.NoError(t, svc.CheckTrader(context.Background(), testTrader))
	require.Len(t, queue.messages, 1)

	source.entries = nil
	repo.deleteErr = errors.New("db down")
	require.NoError(t, svc.CheckTrader(context.Background(), testTrader))
	assert.Len(t, queue.messages, 1)

	repo.deleteErr = nil
	require.NoError(t, svc.CheckTrader(context.Background(), testTrader))
	require.Len(t, queue.messages, 2)
	assert.Contains(t, queue.messages[1].Text, "closed")
}

func TestCheckTrader_ReopenAnnouncedAsDistinctSignal(t *testing.T) {
	source := &fakeSource{entries: []signal.PositionEntry{entry("BTC-USDT-SWAP", "long", "1700000000000")}}
	repo := newMemoryRepo()
	queue := &captureQueue{}

	svc := newTestService(source, repo, queue)
	require.NoError(t, svc.CheckTrader(context.Background(), testTrader))

	// Same instrument and side, new open timestamp: one close, one open.
	source.entries = []signal.PositionEntry{entry("BTC-USDT-SWAP", "long", "1700000099000")}
	require.NoError(t, svc.CheckTrader(context.Background(), testTrader))

	require.Len(t, queue.messages, 3)
	var opens, closes int
	for _, msg := range queue.messages {
		if strings.Contains(msg.Text, "closed") {
			closes++
		} else {
			opens++
		}
	}
	assert.Equal(t, 2, opens)
	assert.Equal(t, 1, closes)
}
