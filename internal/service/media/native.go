package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kkdai/youtube/v2"

	apperrors "yt-download-bot/internal/common/errors"
)

// Native downloads through the kkdai/youtube library without external processes.
// Only muxed formats (video with audio) are considered.
type Native struct {
	Client    *youtube.Client
	MaxHeight int
}

func NewNative(maxHeight int) *Native {
	return &Native{Client: &youtube.Client{}, MaxHeight: maxHeight}
}

// pickFormat returns the tallest muxed format not above maxHeight,
// preferring higher bitrate at equal height.
func pickFormat(formats youtube.FormatList, maxHeight int) (*youtube.Format, error) {
	var best *youtube.Format
	for i := range formats {
		f := &formats[i]
		if f.AudioChannels == 0 || f.Height == 0 || f.Height > maxHeight {
			continue
		}
		if best == nil || f.Height > best.Height || (f.Height == best.Height && f.Bitrate > best.Bitrate) {
			best = f
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no muxed format at or below %dp", maxHeight)
	}
	return best, nil
}

func extension(mimeType string) string {
	if strings.Contains(mimeType, "webm") {
		return "webm"
	}
	return "mp4"
}

func (n *Native) resolve(ctx context.Context, url string) (*youtube.Video, *youtube.Format, error) {
	video, err := n.Client.GetVideoContext(ctx, url)
	if err != nil {
		return nil, nil, apperrors.NewExtractionError("get video", err).WithDetail("url", url)
	}
	format, err := pickFormat(video.Formats, n.MaxHeight)
	if err != nil {
		return nil, nil, apperrors.NewExtractionError("select format", err).WithDetail("url", url)
	}
	return video, format, nil
}

func (n *Native) Probe(ctx context.Context, url string) (*Info, error) {
	video, format, err := n.resolve(ctx, url)
	if err != nil {
		return nil, err
	}
	return &Info{
		ID:           video.ID,
		Title:        video.Title,
		Duration:     video.Duration,
		DeclaredSize: format.ContentLength,
	}, nil
}

func (n *Native) Download(ctx context.Context, url, dir, name string) (string, error) {
	video, format, err := n.resolve(ctx, url)
	if err != nil {
		return "", err
	}
	stream, _, err := n.Client.GetStreamContext(ctx, video, format)
	if err != nil {
		return "", apperrors.NewExtractionError("open stream", err).WithDetail("url", url)
	}
	defer stream.Close()

	path := filepath.Join(dir, name+"."+extension(format.MimeType))
	file, err := os.Create(path)
	if err != nil {
		return "", apperrors.NewExtractionError("create file", err)
	}
	if _, err := io.Copy(file, stream); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return "", apperrors.NewExtractionError("write file", err).WithDetail("url", url)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(path)
		return "", apperrors.NewExtractionError("close file", err)
	}
	return path, nil
}
