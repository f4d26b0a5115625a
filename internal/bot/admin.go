package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	apperrors "yt-download-bot/internal/common/errors"
	"yt-download-bot/internal/common/logger"
	"yt-download-bot/internal/domain/user"
	"yt-download-bot/internal/service/session"
)

const listLimit = 20

func (b *Bot) handleAdminMode(msg *tgbotapi.Message) {
	if !b.gate.IsAdmin(msg.From.ID) {
		b.reply(msg.Chat.ID, textNoAdminRights)
		return
	}
	m := tgbotapi.NewMessage(msg.Chat.ID, textAdminModeOn)
	m.ReplyMarkup = adminKeyboard()
	b.send(m)
}

func (b *Bot) handleNormalMode(msg *tgbotapi.Message) {
	if !b.gate.IsAdmin(msg.From.ID) {
		return
	}
	m := tgbotapi.NewMessage(msg.Chat.ID, textNormalMode)
	m.ReplyMarkup = adminStartKeyboard()
	b.send(m)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) {
	b.replyHTML(msg.Chat.ID, fmt.Sprintf(textHelp, b.policy.Limit/bytesPerMB))
}

func (b *Bot) handleStats(ctx context.Context, msg *tgbotapi.Message) {
	if !b.gate.IsAdmin(msg.From.ID) {
		return
	}
	s, err := b.users.Stats(ctx, b.now())
	if err != nil {
		logger.Error().Err(err).Fields(apperrors.Fields(err)).Msg("Failed to load statistics")
		b.reply(msg.Chat.ID, textAdminError)
		return
	}
	b.replyHTML(msg.Chat.ID, fmt.Sprintf(
		"📊 <b>BOT STATISTICS</b>\n\n"+
			"👥 <b>Users:</b>\n"+
			"• Total: %d\n"+
			"• Today: %d\n"+
			"• Week: %d\n"+
			"• Month: %d\n"+
			"• Year: %d\n\n"+
			"⬇️ <b>Downloads:</b>\n"+
			"• Total: %d",
		s.TotalUsers, s.UsersToday, s.UsersWeek, s.UsersMonth, s.UsersYear, s.TotalDownloads))
}

func (b *Bot) handleTop(ctx context.Context, msg *tgbotapi.Message) {
	if !b.gate.IsAdmin(msg.From.ID) {
		return
	}
	users, err := b.users.Top(ctx, listLimit)
	if err != nil {
		logger.Error().Err(err).Fields(apperrors.Fields(err)).Msg("Failed to load leaderboard")
		b.reply(msg.Chat.ID, textAdminError)
		return
	}
	if len(users) == 0 {
		b.reply(msg.Chat.ID, textNoStats)
		return
	}
	b.replyHTML(msg.Chat.ID, renderUsers("🏆 <b>TOP 20 USERS</b>", users, func(u user.User) string {
		return fmt.Sprintf("%d downloads", u.DownloadCount)
	}))
}

func (b *Bot) handleUsers(ctx context.Context, msg *tgbotapi.Message) {
	if !b.gate.IsAdmin(msg.From.ID) {
		return
	}
	users, err := b.users.Recent(ctx, listLimit)
	if err != nil {
		logger.Error().Err(err).Fields(apperrors.Fields(err)).Msg("Failed to load recent users")
		b.reply(msg.Chat.ID, textAdminError)
		return
	}
	if len(users) == 0 {
		b.reply(msg.Chat.ID, textNoStats)
		return
	}
	b.replyHTML(msg.Chat.ID, renderUsers("👥 <b>RECENT USERS</b>", users, func(u user.User) string {
		return u.JoinedAt.Format("2006-01-02")
	}))
}

func renderUsers(header string, users []user.User, suffix func(user.User) string) string {
	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString("\n\n")
	for i, u := range users {
		handle := u.DisplayHandle()
		if handle == "" {
			handle = textNoUsername
		}
		fmt.Fprintf(&sb, "%d. %s (%s): %s\n", i+1, tgbotapi.EscapeText(tgbotapi.ModeHTML, u.FirstName), tgbotapi.EscapeText(tgbotapi.ModeHTML, handle), suffix(u))
	}
	return sb.String()
}

func (b *Bot) handleBroadcastStart(ctx context.Context, msg *tgbotapi.Message) {
	if !b.gate.IsAdmin(msg.From.ID) {
		return
	}
	if err := b.sessions.Set(ctx, msg.Chat.ID, session.StateAwaitingBroadcast); err != nil {
		logger.Error().Err(err).Fields(apperrors.Fields(err)).Int64("chat_id", msg.Chat.ID).Msg("Failed to store session")
		b.reply(msg.Chat.ID, textAdminError)
		return
	}
	b.reply(msg.Chat.ID, textBroadcastPrompt)
}

// handleBroadcastExecute consumes the pending session and delivers msg.Text to every known user.
func (b *Bot) handleBroadcastExecute(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if err := b.sessions.Set(ctx, chatID, session.StateIdle); err != nil {
		logger.Error().Err(err).Fields(apperrors.Fields(err)).Int64("chat_id", chatID).Msg("Failed to reset session")
	}

	ids, err := b.users.IDs(ctx)
	if err != nil {
		logger.Error().Err(err).Fields(apperrors.Fields(err)).Msg("Failed to load broadcast recipients")
		b.reply(chatID, textAdminError)
		return
	}
	b.reply(chatID, textBroadcastSending)

	res := b.broadcast.Send(ctx, ids, msg.Text)
	logger.Info().Int("sent", res.Sent).Int("failed", res.Failed).Msg("Broadcast finished")
	b.reply(chatID, fmt.Sprintf(textBroadcastDone, res.Sent, res.Failed))
}
