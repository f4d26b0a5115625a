package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/semaphore"

	apperrors "yt-download-bot/internal/common/errors"
	"yt-download-bot/internal/common/logger"
	"yt-download-bot/internal/domain/user"
	"yt-download-bot/internal/platform/telegram"
	"yt-download-bot/internal/service/access"
	"yt-download-bot/internal/service/broadcast"
	"yt-download-bot/internal/service/media"
	"yt-download-bot/internal/service/session"
)

// Options wires the bot to its collaborators.
type Options struct {
	API         telegram.API
	Gate        *access.Gate
	Users       user.Repository
	Sessions    session.Store
	Extractor   media.Extractor
	Broadcast   *broadcast.Service
	SizePolicy  media.SizePolicy
	DownloadDir string
	BotUsername string
	// MaxConcurrent bounds how many updates are handled at once; 1 handles them in order.
	MaxConcurrent int64
}

// Bot routes Telegram updates to handlers.
type Bot struct {
	api         telegram.API
	gate        *access.Gate
	users       user.Repository
	sessions    session.Store
	extractor   media.Extractor
	broadcast   *broadcast.Service
	policy      media.SizePolicy
	downloadDir string
	username    string

	maxConcurrent int64
	sem           *semaphore.Weighted
	now           func() time.Time
}

func New(opts Options) *Bot {
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	return &Bot{
		api:           opts.API,
		gate:          opts.Gate,
		users:         opts.Users,
		sessions:      opts.Sessions,
		extractor:     opts.Extractor,
		broadcast:     opts.Broadcast,
		policy:        opts.SizePolicy,
		downloadDir:   opts.DownloadDir,
		username:      opts.BotUsername,
		maxConcurrent: opts.MaxConcurrent,
		sem:           semaphore.NewWeighted(opts.MaxConcurrent),
		now:           time.Now,
	}
}

// Run consumes updates until ctx is done or the channel closes, then waits for
// in-flight handlers.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) error {
	logger.Info().Str("bot", b.username).Int64("max_concurrent", b.maxConcurrent).Msg("Update loop started")
	defer func() {
		_ = b.sem.Acquire(context.Background(), b.maxConcurrent)
		b.sem.Release(b.maxConcurrent)
		logger.Info().Msg("Update loop stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			if err := b.sem.Acquire(ctx, 1); err != nil {
				return nil
			}
			go func(upd tgbotapi.Update) {
				defer b.sem.Release(1)
				b.HandleUpdate(ctx, upd)
			}(upd)
		}
	}
}

// HandleUpdate dispatches one update. Handler panics are recovered and logged.
func (b *Bot) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Int("update_id", upd.UpdateID).
				Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).
				Msg("Handler panicked")
		}
	}()

	switch {
	case upd.CallbackQuery != nil:
		if upd.CallbackQuery.Data == CallbackCheckSubscription {
			b.handleCheckSubscription(ctx, upd.CallbackQuery)
		}
	case upd.Message != nil && upd.Message.From != nil:
		b.handleMessage(ctx, upd.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.handleStart(ctx, msg)
		case "cancel":
			b.handleCancel(ctx, msg)
		}
		return
	}
	if msg.Text == "" {
		return
	}

	switch msg.Text {
	case BtnAdminMode:
		b.handleAdminMode(msg)
	case BtnNormalMode:
		b.handleNormalMode(msg)
	case BtnStats:
		b.handleStats(ctx, msg)
	case BtnTop:
		b.handleTop(ctx, msg)
	case BtnUsers:
		b.handleUsers(ctx, msg)
	case BtnBroadcast:
		b.handleBroadcastStart(ctx, msg)
	case BtnHelp:
		b.handleHelp(msg)
	default:
		b.handleFreeText(ctx, msg)
	}
}

// handleFreeText is the gated path: pending broadcast text or a download request.
func (b *Bot) handleFreeText(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	if !b.gate.Allowed(ctx, userID) {
		b.sendSubscriptionPrompt(msg.Chat.ID)
		return
	}
	if b.gate.IsAdmin(userID) {
		state, err := b.sessions.Get(ctx, msg.Chat.ID)
		if err != nil {
			logger.Error().Err(err).Fields(apperrors.Fields(err)).Int64("chat_id", msg.Chat.ID).Msg("Failed to load session")
		}
		if state == session.StateAwaitingBroadcast {
			b.handleBroadcastExecute(ctx, msg)
			return
		}
	}
	b.handleDownload(ctx, msg)
}

func (b *Bot) send(c tgbotapi.Chattable) (tgbotapi.Message, bool) {
	m, err := b.api.Send(c)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to send message")
		return m, false
	}
	return m, true
}

func (b *Bot) request(c tgbotapi.Chattable) {
	if _, err := b.api.Request(c); err != nil {
		logger.Warn().Err(err).Msg("Telegram request failed")
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) replyHTML(chatID int64, text string) {
	m := tgbotapi.NewMessage(chatID, text)
	m.ParseMode = tgbotapi.ModeHTML
	b.send(m)
}

func (b *Bot) edit(chatID int64, messageID int, text string) {
	b.send(tgbotapi.NewEditMessageText(chatID, messageID, text))
}

func userFrom(u *tgbotapi.User) *user.User {
	return &user.User{ID: u.ID, Username: u.UserName, FirstName: u.FirstName}
}
