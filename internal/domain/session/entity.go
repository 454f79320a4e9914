package session

import (
	"context"
	"time"
)

// State is the operator edit-flow state for one chat.
type State string

const (
	// StateIdle means no edit is in progress.
	StateIdle State = "idle"
	// StateAwaitingNewID means the bot asked for a replacement trader id and
	// the next reply from this chat is treated as that id.
	StateAwaitingNewID State = "awaiting_new_id"
)

// Session tracks one operator chat's position in the trader-edit flow. It is
// the explicit replacement for a process-wide edit-state map: every lookup
// goes through the injected repository, never ambient state.
type Session struct {
	ChatID      int64     `json:"chat_id"`
	State       State     `json:"state"`
	TraderIndex int       `json:"trader_index"`
	TraderName  string    `json:"trader_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// AwaitNewID transitions the session into the id-entry state for one trader.
func (s *Session) AwaitNewID(index int, traderName string) {
	s.State = StateAwaitingNewID
	s.TraderIndex = index
	s.TraderName = traderName
}

// Repository defines keyed storage for operator edit sessions.
type Repository interface {
	Get(ctx context.Context, chatID int64) (*Session, error)
	Save(ctx context.Context, sess *Session, ttl time.Duration) error
	Delete(ctx context.Context, chatID int64) error
}
