package telegram

import (
	"context"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"traderwatch/internal/adapters/config"
	"traderwatch/internal/notify"
	"traderwatch/pkg/errors"
	"traderwatch/pkg/logger"
)

// NewAPI creates the shared bot API client.
func NewAPI(cfg config.TelegramConfig) (*tgbotapi.BotAPI, error) {
	if cfg.BotToken == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "telegram bot token is required")
	}

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	api, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create telegram bot")
	}
	api.Debug = cfg.Debug

	logger.Get().Infof("Authorized on account %s", api.Self.UserName)
	return api, nil
}

// Compile-time check
var _ notify.Sink = (*Sender)(nil)

// Sender delivers queue messages through the Telegram bot API and translates
// throttling responses into *errors.RateLimitError so the queue can pause
// and replay instead of dropping.
type Sender struct {
	api *tgbotapi.BotAPI
	log *logger.Logger
}

// NewSender creates a notification sink over the bot API.
func NewSender(api *tgbotapi.BotAPI) *Sender {
	return &Sender{
		api: api,
		log: logger.Get().With("component", "telegram_sender"),
	}
}

// Send delivers one message. The underlying client has no context support;
// cancellation is bounded by its HTTP timeout.
func (s *Sender) Send(ctx context.Context, msg notify.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := tgbotapi.NewMessage(msg.ChatID, msg.Text)
	m.ParseMode = msg.Options.ParseMode
	m.DisableWebPagePreview = msg.Options.DisableWebPagePreview
	if msg.Options.MessageThreadID != 0 {
		// The client predates native forum-topic fields; replying to the
		// topic's root message routes into the sub-thread.
		m.ReplyToMessageID = msg.Options.MessageThreadID
		m.AllowSendingWithoutReply = true
	}

	if _, err := s.api.Send(m); err != nil {
		return classifySendError(err)
	}
	return nil
}

// classifySendError maps Telegram throttling onto the retryable error type.
func classifySendError(err error) error {
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) {
		if tgErr.RetryAfter > 0 || tgErr.Code == http.StatusTooManyRequests {
			return &errors.RateLimitError{
				RetryAfter: time.Duration(tgErr.RetryAfter) * time.Second,
			}
		}
	}
	return err
}
