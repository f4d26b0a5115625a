package user

import (
	"context"
	"time"

	"yt-download-bot/internal/domain/download"
)

// Repository defines persistence operations for users and their download log.
type Repository interface {
	Register(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	// RecordDownload increments the user's counter and appends a log row as one unit of work.
	RecordDownload(ctx context.Context, d *download.Download) error
	Stats(ctx context.Context, now time.Time) (*download.Stats, error)
	Top(ctx context.Context, limit int) ([]User, error)
	Recent(ctx context.Context, limit int) ([]User, error)
	IDs(ctx context.Context) ([]int64, error)
	CountDownloads(ctx context.Context, userID int64) (int64, error)
}
