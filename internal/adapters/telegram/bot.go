package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"traderwatch/internal/domain/session"
	"traderwatch/internal/domain/trader"
	"traderwatch/pkg/errors"
	"traderwatch/pkg/logger"
)

const (
	// minTraderIDLength rejects obviously truncated upstream ids.
	minTraderIDLength = 16

	editSessionTTL = 10 * time.Minute

	editCallbackPrefix = "edit_"
)

// Bot handles operator commands for inspecting and editing the tracked
// trader list. The edit flow is a per-chat state machine (idle, awaiting a
// new id) held in the injected session repository.
type Bot struct {
	api      *tgbotapi.BotAPI
	registry trader.Registry
	sessions session.Repository

	// onIDChange is invoked with the replaced upstream id so per-trader
	// cached state keyed by the old id can be invalidated.
	onIDChange func(oldID string)

	log *logger.Logger
}

// NewBot creates the operator bot.
func NewBot(api *tgbotapi.BotAPI, registry trader.Registry, sessions session.Repository, onIDChange func(oldID string)) *Bot {
	if onIDChange == nil {
		onIDChange = func(string) {}
	}
	return &Bot{
		api:        api,
		registry:   registry,
		sessions:   sessions,
		onIDChange: onIDChange,
		log:        logger.Get().With("component", "telegram_bot"),
	}
}

// Start begins long polling for operator updates and blocks until ctx is
// cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = 30

	updates := b.api.GetUpdatesChan(updateCfg)
	defer b.api.StopReceivingUpdates()

	b.log.Infow("Operator bot started")

	for {
		select {
		case <-ctx.Done():
			b.log.Infow("Operator bot stopped")
			return ctx.Err()

		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Errorw("Update handler panicked", "panic", r)
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)

	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)

	case update.Message != nil:
		b.handleReply(ctx, update.Message)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "traders", "bots":
		b.handleListTraders(msg.Chat.ID)
	case "changeid":
		b.handleChangeID(msg.Chat.ID)
	}
}

func (b *Bot) handleListTraders(chatID int64) {
	traders, err := b.registry.List()
	if err != nil {
		b.log.Errorw("Failed to list traders", "error", err)
		b.reply(chatID, "❌ Could not read the trader list.")
		return
	}

	var sb strings.Builder
	sb.WriteString("📊 Tracked traders:\n\n")
	for i, t := range traders {
		fmt.Fprintf(&sb, "%d. %s\nID: %s\n", i+1, t.Name, t.ID)
		if t.Description != "" {
			sb.WriteString(t.Description + "\n")
		}
		sb.WriteString("\n")
	}

	b.reply(chatID, sb.String())
}

func (b *Bot) handleChangeID(chatID int64) {
	traders, err := b.registry.List()
	if err != nil {
		b.log.Errorw("Failed to list traders", "error", err)
		b.reply(chatID, "❌ Could not read the trader list.")
		return
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(traders))
	for i, t := range traders {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%s (%s)", t.Name, t.ID),
				editCallbackPrefix+strconv.Itoa(i),
			),
		))
	}

	m := tgbotapi.NewMessage(chatID, "🔄 Pick the trader whose id should change:")
	m.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := b.api.Send(m); err != nil {
		b.log.Errorw("Failed to send trader keyboard", "error", err)
	}
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	defer func() {
		callback := tgbotapi.NewCallback(query.ID, "")
		if _, err := b.api.Request(callback); err != nil {
			b.log.Debugw("Failed to answer callback", "error", err)
		}
	}()

	if !strings.HasPrefix(query.Data, editCallbackPrefix) || query.Message == nil {
		return
	}

	index, err := strconv.Atoi(strings.TrimPrefix(query.Data, editCallbackPrefix))
	if err != nil {
		return
	}

	t, err := b.registry.Get(index)
	if err != nil {
		b.log.Warnw("Edit callback for unknown trader", "index", index, "error", err)
		return
	}

	chatID := query.Message.Chat.ID
	sess := &session.Session{
		ChatID:    chatID,
		State:     session.StateIdle,
		CreatedAt: time.Now().UTC(),
	}
	sess.AwaitNewID(index, t.Name)

	if err := b.sessions.Save(ctx, sess, editSessionTTL); err != nil {
		b.log.Errorw("Failed to save edit session", "chat_id", chatID, "error", err)
		b.reply(chatID, "❌ Something went wrong, please try again.")
		return
	}

	prompt := tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"📝 Send the new id for %s as a reply to this message.\nCurrent id: %s",
		t.Name, t.ID,
	))
	prompt.ReplyMarkup = tgbotapi.ForceReply{ForceReply: true}
	if _, err := b.api.Send(prompt); err != nil {
		b.log.Errorw("Failed to send edit prompt", "error", err)
	}
}

func (b *Bot) handleReply(ctx context.Context, msg *tgbotapi.Message) {
	// Only replies addressed to this bot advance the edit flow.
	if msg.ReplyToMessage == nil ||
		msg.ReplyToMessage.From == nil ||
		msg.ReplyToMessage.From.ID != b.api.Self.ID {
		return
	}

	chatID := msg.Chat.ID
	sess, err := b.sessions.Get(ctx, chatID)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			b.log.Errorw("Failed to load edit session", "chat_id", chatID, "error", err)
		}
		return
	}
	if sess.State != session.StateAwaitingNewID {
		return
	}

	newID := strings.TrimSpace(msg.Text)
	if len(newID) < minTraderIDLength {
		b.reply(chatID, "❌ That id looks invalid, please try again.")
		return
	}

	previous, err := b.registry.UpdateID(sess.TraderIndex, newID)
	if err != nil {
		b.log.Errorw("Failed to update trader id",
			"index", sess.TraderIndex,
			"error", err,
		)
		b.reply(chatID, "❌ The update failed, please try again.")
		return
	}

	// Drop any cached per-trader state keyed by the replaced id so the next
	// poll cycle starts clean under the new one.
	b.onIDChange(previous.ID)

	if err := b.sessions.Delete(ctx, chatID); err != nil {
		b.log.Warnw("Failed to clear edit session", "chat_id", chatID, "error", err)
	}

	b.reply(chatID, fmt.Sprintf(
		"✅ Updated!\n\nTrader: %s\nOld id: %s\nNew id: %s",
		previous.Name, previous.ID, newID,
	))
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.log.Errorw("Failed to send reply", "chat_id", chatID, "error", err)
	}
}
