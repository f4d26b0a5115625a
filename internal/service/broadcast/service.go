package broadcast

import (
	"context"

	"golang.org/x/time/rate"

	apperrors "yt-download-bot/internal/common/errors"
	"yt-download-bot/internal/common/logger"
)

// Sender delivers one text message to one chat.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// Result counts deliveries. Sent+Failed equals the number of recipients.
type Result struct {
	Sent   int
	Failed int
}

// Service sends a message to many users one by one.
type Service struct {
	sender  Sender
	limiter *rate.Limiter
}

// NewService paces deliveries at perSecond messages per second; zero disables pacing.
func NewService(sender Sender, perSecond float64) *Service {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Service{sender: sender, limiter: rate.NewLimiter(limit, 1)}
}

// Send attempts delivery to every recipient exactly once. A failed delivery is
// counted and logged; it does not stop the loop. If ctx ends, the remaining
// recipients are counted as failed.
func (s *Service) Send(ctx context.Context, recipients []int64, text string) Result {
	var res Result
	for i, id := range recipients {
		if err := s.limiter.Wait(ctx); err != nil {
			res.Failed += len(recipients) - i
			logger.Warn().Err(err).Int("remaining", len(recipients)-i).Msg("Broadcast interrupted")
			break
		}
		if err := s.sender.SendText(ctx, id, text); err != nil {
			res.Failed++
			logger.Error().
				Err(err).
				Str("code", string(apperrors.CodeOf(err))).
				Int64("user_id", id).
				Msg("Broadcast delivery failed")
			continue
		}
		res.Sent++
	}
	logger.Info().Int("sent", res.Sent).Int("failed", res.Failed).Msg("Broadcast finished")
	return res
}
