package download

import "time"

// Download is one row of the append-only download log.
type Download struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	VideoURL  string    `json:"video_url"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"download_date"`
}

// Stats aggregates user signups by rolling window plus the total download count.
type Stats struct {
	TotalUsers     int64
	UsersToday     int64
	UsersWeek      int64
	UsersMonth     int64
	UsersYear      int64
	TotalDownloads int64
}

// Windows used by Stats, relative to "now".
const (
	Day   = 24 * time.Hour
	Week  = 7 * Day
	Month = 30 * Day
	Year  = 365 * Day
)
