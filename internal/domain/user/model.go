package user

import "time"

// User is a Telegram user who has interacted with the bot.
// ID is the Telegram user ID.
type User struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	FirstName     string    `json:"first_name"`
	JoinedAt      time.Time `json:"join_date"`
	LastActiveAt  time.Time `json:"last_active"`
	DownloadCount int64     `json:"download_count"`
}

// DisplayHandle returns "@username" or an empty string.
func (u User) DisplayHandle() string {
	if u.Username == "" {
		return ""
	}
	return "@" + u.Username
}
