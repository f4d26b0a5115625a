package access

import (
	"context"

	apperrors "yt-download-bot/internal/common/errors"
	"yt-download-bot/internal/common/logger"
	"yt-download-bot/internal/config"
)

// MembershipChecker looks up a user's membership in one channel.
type MembershipChecker interface {
	IsMember(ctx context.Context, channel string, userID int64) (bool, error)
}

// Gate decides whether a user may use the bot.
type Gate struct {
	checker  MembershipChecker
	channels []config.Channel
	adminID  int64
}

func NewGate(checker MembershipChecker, channels []config.Channel, adminID int64) *Gate {
	return &Gate{checker: checker, channels: channels, adminID: adminID}
}

// IsAdmin reports whether userID is the configured administrator.
// The zero id never matches.
func (g *Gate) IsAdmin(userID int64) bool {
	return g.adminID != 0 && userID == g.adminID
}

func (g *Gate) Channels() []config.Channel {
	return g.channels
}

// Allowed returns true when the user is the admin or a member of every channel.
// Lookups run in order and stop at the first miss; lookup errors deny access.
func (g *Gate) Allowed(ctx context.Context, userID int64) bool {
	if g.IsAdmin(userID) {
		return true
	}
	for _, ch := range g.channels {
		ok, err := g.checker.IsMember(ctx, ch.Handle(), userID)
		if err != nil {
			logger.Error().
				Err(err).
				Str("code", string(apperrors.CodeOf(err))).
				Fields(apperrors.Fields(err)).
				Int64("user_id", userID).
				Str("channel", ch.Handle()).
				Msg("Membership check failed")
			return false
		}
		if !ok {
			logger.Debug().Int64("user_id", userID).Str("channel", ch.Handle()).Msg("User is not subscribed")
			return false
		}
	}
	return true
}
