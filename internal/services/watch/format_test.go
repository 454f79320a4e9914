package watch

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"traderwatch/internal/domain/signal"
)

func formatFixture() *signal.Signal {
	return &signal.Signal{
		SignalID:   "BTC-USDT-SWAP_long_1700000000000",
		TraderName: "Top Trader",
		InstID:     "BTC-USDT-SWAP",
		PosSide:    signal.PositionLong,
		OpenPrice:  decimal.RequireFromString("64250.5"),
		Leverage:   decimal.RequireFromString("10"),
		Size:       decimal.RequireFromString("2.5"),
		OpenTime:   time.Now().Add(-2 * time.Hour),
	}
}

func TestFormatOpen(t *testing.T) {
	text := FormatOpen(formatFixture())

	assert.Contains(t, text, "🟢")
	assert.Contains(t, text, "Top Trader")
	assert.Contains(t, text, "<b>BTC-USDT-SWAP</b> LONG")
	assert.Contains(t, text, "64250.5")
	assert.Contains(t, text, "10x")
	assert.Contains(t, text, "2.5")
	assert.Contains(t, text, "hours ago")
}

func TestFormatOpen_ShortSide(t *testing.T) {
	sig := formatFixture()
	sig.PosSide = signal.PositionShort

	text := FormatOpen(sig)
	assert.Contains(t, text, "📉")
	assert.Contains(t, text, "SHORT")
}

func TestFormatOpen_UnparsableOpenTimeOmitted(t *testing.T) {
	sig := formatFixture()
	sig.OpenTime = time.Time{}

	text := FormatOpen(sig)
	assert.NotContains(t, text, "Opened:")
}

func TestFormatOpen_EscapesTraderName(t *testing.T) {
	sig := formatFixture()
	sig.TraderName = "Trader <1>"

	text := FormatOpen(sig)
	assert.Contains(t, text, "Trader &lt;1&gt;")
	assert.NotContains(t, text, "Trader <1>")
}

func TestFormatClose(t *testing.T) {
	text := FormatClose(formatFixture())

	assert.Contains(t, text, "🔴")
	assert.Contains(t, text, "closed")
	assert.Contains(t, text, "Top Trader")
	assert.Contains(t, text, "2h 0m")
}

func TestHoldDuration(t *testing.T) {
	now := time.Now()

	assert.Equal(t, "30s", holdDuration(now.Add(-30*time.Second)))
	assert.Equal(t, "5m", holdDuration(now.Add(-5*time.Minute)))
	assert.Equal(t, "3h 15m", holdDuration(now.Add(-195*time.Minute)))
	assert.Equal(t, "2d 6h", holdDuration(now.Add(-54*time.Hour)))
	assert.Equal(t, "0s", holdDuration(now.Add(time.Hour)))
}
