package signal

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PositionSide defines long or short
type PositionSide string

const (
	PositionLong  PositionSide = "long"
	PositionShort PositionSide = "short"
)

// Valid checks if position side is valid
func (s PositionSide) Valid() bool {
	return s == PositionLong || s == PositionShort
}

// String returns string representation
func (s PositionSide) String() string {
	return string(s)
}

// PositionEntry is one currently-open position exactly as the upstream
// endpoint reports it. Entries live only within a single poll cycle; the
// string fields are kept verbatim because the upstream does not guarantee
// numeric precision.
type PositionEntry struct {
	InstID    string `json:"instId"`
	PosSide   string `json:"posSide"`
	OpenAvgPx string `json:"openAvgPx"`
	// OpenTime is the upstream epoch-millis timestamp, kept as the raw
	// string because it is part of the de-duplication key.
	OpenTime string `json:"openTime"`
	Lever    string `json:"lever"`
	Pos      string `json:"pos"`
}

// SignalKey computes the natural key that bounds de-duplication. A position
// that closes and reopens on the same instrument and side gets a different
// OpenTime and therefore a different key.
func (p PositionEntry) SignalKey() string {
	return p.InstID + "_" + p.PosSide + "_" + p.OpenTime
}

// OpenedAt converts the raw upstream timestamp. Zero time on garbage input.
func (p PositionEntry) OpenedAt() time.Time {
	ms, err := parseMillis(p.OpenTime)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// Signal is the durable record of an announced open position. At most one
// Signal exists per SignalID at any time; it is created when a position first
// appears in a snapshot and deleted when its key vanishes from a later one.
type Signal struct {
	ID       uuid.UUID `db:"id"`
	SignalID string    `db:"signal_id"`

	TraderID   string `db:"trader_id"`
	TraderName string `db:"trader_name"`

	InstID  string       `db:"inst_id"`
	PosSide PositionSide `db:"pos_side"`

	OpenPrice decimal.Decimal `db:"open_price"`
	// OpenTimestamp is the raw upstream epoch-millis string, preserved
	// because it is a key component.
	OpenTimestamp string    `db:"open_timestamp"`
	OpenTime      time.Time `db:"open_time"`

	Leverage decimal.Decimal `db:"leverage"`
	Size     decimal.Decimal `db:"size"`

	CreatedAt time.Time `db:"created_at"`
}

// NewFromEntry builds the durable Signal for a freshly detected position.
func NewFromEntry(traderID, traderName string, entry PositionEntry) *Signal {
	return &Signal{
		ID:            uuid.New(),
		SignalID:      entry.SignalKey(),
		TraderID:      traderID,
		TraderName:    traderName,
		InstID:        entry.InstID,
		PosSide:       PositionSide(entry.PosSide),
		OpenPrice:     dec(entry.OpenAvgPx),
		OpenTimestamp: entry.OpenTime,
		OpenTime:      entry.OpenedAt(),
		Leverage:      dec(entry.Lever),
		Size:          dec(entry.Pos),
		CreatedAt:     time.Now().UTC(),
	}
}

func dec(value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return d
}
