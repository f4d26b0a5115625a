package workers

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"yt-download-bot/internal/common/logger"
)

// Janitor removes transient media files that outlived their request, e.g. after a crash mid-upload.
type Janitor struct {
	dir      string
	maxAge   time.Duration
	interval time.Duration
	now      func() time.Time
}

func NewJanitor(dir string, maxAge, interval time.Duration) *Janitor {
	return &Janitor{dir: dir, maxAge: maxAge, interval: interval, now: time.Now}
}

// Start sweeps once immediately and then on every tick until ctx is done.
func (j *Janitor) Start(ctx context.Context) error {
	logger.Info().Str("dir", j.dir).Dur("max_age", j.maxAge).Msg("Starting janitor")
	j.Sweep()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Stopping janitor")
			return nil
		case <-ticker.C:
			j.Sweep()
		}
	}
}

// Sweep deletes regular files older than maxAge and returns how many were removed.
func (j *Janitor) Sweep() int {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		logger.Warn().Err(err).Str("dir", j.dir).Msg("Janitor cannot read download dir")
		return 0
	}

	cutoff := j.now().Add(-j.maxAge)
	removed := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(j.dir, e.Name())
		if err := os.Remove(path); err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("Janitor failed to remove file")
			continue
		}
		removed++
	}
	if removed > 0 {
		logger.Info().Int("removed", removed).Msg("Removed stale transient files")
	}
	return removed
}
