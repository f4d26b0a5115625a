package bot

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	apperrors "yt-download-bot/internal/common/errors"
	"yt-download-bot/internal/common/logger"
	"yt-download-bot/internal/domain/download"
	"yt-download-bot/internal/service/media"
)

const bytesPerMB = 1024 * 1024

func (b *Bot) handleDownload(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	url := strings.TrimSpace(msg.Text)
	if !media.IsYouTubeURL(url) {
		b.reply(chatID, textInvalidURL)
		return
	}
	if !b.register(ctx, msg.From) {
		b.reply(chatID, textDownloadFailed)
		return
	}

	progress, ok := b.send(tgbotapi.NewMessage(chatID, textProbing))
	if !ok {
		return
	}

	err := b.download(ctx, msg.From.ID, chatID, progress.MessageID, url)
	switch {
	case err == nil:
		logger.Info().Int64("user_id", msg.From.ID).Str("url", url).Msg("Video delivered")
		b.request(tgbotapi.NewDeleteMessage(chatID, progress.MessageID))
	case apperrors.IsCode(err, apperrors.ErrCodeFileTooLarge):
		b.edit(chatID, progress.MessageID, fmt.Sprintf(textTooLarge, b.policy.Limit/bytesPerMB))
	case apperrors.IsCode(err, apperrors.ErrCodeSizeUnknown):
		b.edit(chatID, progress.MessageID, textSizeUnknown)
	default:
		logger.Error().
			Err(err).
			Str("code", string(apperrors.CodeOf(err))).
			Fields(apperrors.Fields(err)).
			Int64("user_id", msg.From.ID).
			Str("url", url).
			Msg("Download failed")
		b.edit(chatID, progress.MessageID, textDownloadFailed)
	}
}

// download runs probe, size check, fetch and upload. The transient file is
// removed on every path once it exists.
func (b *Bot) download(ctx context.Context, userID, chatID int64, progressID int, url string) error {
	info, err := b.extractor.Probe(ctx, url)
	if err != nil {
		return err
	}
	if err := b.policy.Check(info.DeclaredSize); err != nil {
		return err
	}

	b.edit(chatID, progressID, textDownloading)
	path, err := b.extractor.Download(ctx, url, b.downloadDir, uuid.NewString())
	if err != nil {
		return err
	}
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("path", path).Msg("Failed to remove transient file")
		}
	}()

	st, err := os.Stat(path)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "stat downloaded file")
	}
	if err := b.policy.CheckActual(st.Size()); err != nil {
		return err
	}

	b.edit(chatID, progressID, textUploading)
	video := tgbotapi.NewVideo(chatID, tgbotapi.FilePath(path))
	video.Caption = b.caption(info, st.Size())
	video.ParseMode = tgbotapi.ModeHTML
	video.Duration = int(info.Duration / time.Second)
	video.SupportsStreaming = true
	if _, err := b.api.Send(video); err != nil {
		return apperrors.NewTelegramAPIError("sendVideo", err)
	}

	title := info.Title
	if title == "" {
		title = textUnknownTitle
	}
	// The user already has the video; a bookkeeping failure is only logged.
	if err := b.users.RecordDownload(ctx, &download.Download{
		UserID:   userID,
		VideoURL: url,
		Title:    title,
	}); err != nil {
		logger.Error().
			Err(err).
			Fields(apperrors.Fields(err)).
			Int64("user_id", userID).
			Str("url", url).
			Msg("Failed to record download")
	}
	return nil
}

func (b *Bot) caption(info *media.Info, size int64) string {
	title := info.Title
	if title == "" {
		title = textUnknownTitle
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "🎬 <b>%s</b>\n\n", tgbotapi.EscapeText(tgbotapi.ModeHTML, title))
	fmt.Fprintf(&sb, "📦 Size: %.2f MB\n", float64(size)/bytesPerMB)
	fmt.Fprintf(&sb, "⏱ Duration: %s", formatDuration(info.Duration))
	if b.username != "" {
		fmt.Fprintf(&sb, "\n\n📥 @%s", b.username)
	}
	return sb.String()
}

// formatDuration renders m:ss; minutes are not folded into hours.
func formatDuration(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
