package media

import (
	"context"
	"strings"
	"time"

	apperrors "yt-download-bot/internal/common/errors"
)

// Info is the metadata returned by a probe. DeclaredSize is 0 when unknown.
type Info struct {
	ID           string
	Title        string
	Duration     time.Duration
	DeclaredSize int64
}

// Extractor resolves a video URL to metadata and a downloaded file.
type Extractor interface {
	Probe(ctx context.Context, url string) (*Info, error)
	// Download writes the media into dir using name as the base file name and
	// returns the resulting path.
	Download(ctx context.Context, url, dir, name string) (string, error)
}

// IsYouTubeURL accepts any text mentioning one of the two YouTube domains.
func IsYouTubeURL(text string) bool {
	return strings.Contains(text, "youtube.com") || strings.Contains(text, "youtu.be")
}

// SizePolicy enforces the media size ceiling.
type SizePolicy struct {
	Limit        int64
	AllowUnknown bool
}

// Check validates a declared size. Zero means unknown.
func (p SizePolicy) Check(declared int64) error {
	if declared <= 0 {
		if p.AllowUnknown {
			return nil
		}
		return apperrors.New(apperrors.ErrCodeSizeUnknown, "media size is unknown").
			WithDetail("limit", p.Limit)
	}
	if declared > p.Limit {
		return apperrors.NewFileTooLargeError(declared, p.Limit)
	}
	return nil
}

// CheckActual validates the on-disk size after download.
func (p SizePolicy) CheckActual(size int64) error {
	if size > p.Limit {
		return apperrors.NewFileTooLargeError(size, p.Limit)
	}
	return nil
}
