package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	apperrors "yt-download-bot/internal/common/errors"
	"yt-download-bot/internal/common/logger"
	"yt-download-bot/internal/service/session"
)

// handleStart greets the user. Non-members are shown the subscription prompt and
// nothing is written for them.
func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	if b.gate.IsAdmin(userID) {
		b.register(ctx, msg.From)
		m := tgbotapi.NewMessage(chatID, textAdminWelcome)
		m.ReplyMarkup = adminStartKeyboard()
		b.send(m)
		return
	}

	if !b.gate.Allowed(ctx, userID) {
		b.sendSubscriptionPrompt(chatID)
		return
	}
	b.register(ctx, msg.From)
	m := tgbotapi.NewMessage(chatID, textWelcome)
	m.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	b.send(m)
}

func (b *Bot) handleCancel(ctx context.Context, msg *tgbotapi.Message) {
	if !b.gate.IsAdmin(msg.From.ID) {
		return
	}
	if err := b.sessions.Set(ctx, msg.Chat.ID, session.StateIdle); err != nil {
		logger.Error().Err(err).Fields(apperrors.Fields(err)).Int64("chat_id", msg.Chat.ID).Msg("Failed to reset session")
	}
	b.reply(msg.Chat.ID, textCancelled)
}

func (b *Bot) handleCheckSubscription(ctx context.Context, q *tgbotapi.CallbackQuery) {
	b.request(tgbotapi.NewCallback(q.ID, ""))
	if q.Message == nil || q.From == nil {
		return
	}
	chatID := q.Message.Chat.ID
	messageID := q.Message.MessageID

	if b.gate.Allowed(ctx, q.From.ID) {
		b.register(ctx, q.From)
		b.edit(chatID, messageID, textSubscribed)
		return
	}
	b.send(tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, textNotSubscribed,
		subscriptionKeyboard(b.gate.Channels())))
}

func (b *Bot) sendSubscriptionPrompt(chatID int64) {
	m := tgbotapi.NewMessage(chatID, textSubscribe)
	m.ReplyMarkup = subscriptionKeyboard(b.gate.Channels())
	b.send(m)
}

func (b *Bot) register(ctx context.Context, from *tgbotapi.User) bool {
	if err := b.users.Register(ctx, userFrom(from)); err != nil {
		logger.Error().Err(err).Fields(apperrors.Fields(err)).Int64("user_id", from.ID).Msg("Failed to register user")
		return false
	}
	return true
}
