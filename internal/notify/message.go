package notify

import "context"

// Message is one unit of outbound text plus its delivery target. Messages
// are immutable once enqueued and consumed exactly once on success.
type Message struct {
	ChatID  int64
	Text    string
	Options Options
}

// Options carries per-message delivery options.
type Options struct {
	// ParseMode selects Telegram text formatting (HTML, Markdown).
	ParseMode string

	// MessageThreadID routes the message into a forum sub-thread (0 = main chat).
	MessageThreadID int

	DisableWebPagePreview bool
}

// Sink delivers a single message. A throttled sink reports
// *errors.RateLimitError so the queue can pause and replay; every other
// error is terminal for that message.
type Sink interface {
	Send(ctx context.Context, msg Message) error
}
