package telegram

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	apperrors "yt-download-bot/internal/common/errors"
)

// API is the subset of *tgbotapi.BotAPI used by the bot.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

var _ API = (*tgbotapi.BotAPI)(nil)

// Client adds membership checks and typed errors on top of the SDK.
type Client struct {
	api API
}

func NewClient(api API) *Client {
	return &Client{api: api}
}

// NormalizeHandle turns "name", "@name" or "https://t.me/name" into "@name".
func NormalizeHandle(channel string) string {
	channel = strings.TrimSpace(channel)
	channel = strings.TrimPrefix(channel, "https://t.me/")
	channel = strings.TrimPrefix(channel, "http://t.me/")
	channel = strings.TrimPrefix(channel, "t.me/")
	return "@" + strings.TrimLeft(channel, "@")
}

// IsMember reports whether userID is subscribed to channel.
// "left" and "kicked" are the only non-member statuses.
func (c *Client) IsMember(ctx context.Context, channel string, userID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	member, err := c.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			SuperGroupUsername: NormalizeHandle(channel),
			UserID:             userID,
		},
	})
	if err != nil {
		return false, classify("getChatMember", err)
	}
	return !(member.HasLeft() || member.WasKicked()), nil
}

// SendText delivers a plain text message.
func (c *Client) SendText(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return classify("sendMessage", err)
	}
	return nil
}

func classify(operation string, err error) error {
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) && tgErr.Code == 429 {
		return apperrors.NewTelegramAPIError(operation,
			apperrors.NewRateLimitError("telegram", tgErr.RetryAfter))
	}
	return apperrors.NewTelegramAPIError(operation, err)
}
