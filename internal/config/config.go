package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	ExtractorYtDlp  = "ytdlp"
	ExtractorNative = "native"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Telegram struct {
		BotToken    string `env:"TELEGRAM_BOT_TOKEN,required,notEmpty"`
		Debug       bool   `env:"TELEGRAM_DEBUG" envDefault:"false"`
		AdminID     int64  `env:"ADMIN_ID" envDefault:"0"`
		PollTimeout int    `env:"POLL_TIMEOUT" envDefault:"60"`
	}

	DatabasePath string `env:"DATABASE_PATH" envDefault:"bot_data.db"`

	Download struct {
		Dir              string `env:"DOWNLOAD_DIR" envDefault:"downloads"`
		MaxSizeMB        int64  `env:"MAX_FILE_SIZE_MB" envDefault:"50"`
		AllowUnknownSize bool   `env:"ALLOW_UNKNOWN_SIZE" envDefault:"true"`
		Extractor        string `env:"EXTRACTOR" envDefault:"ytdlp"`
		YtDlpPath        string `env:"YTDLP_PATH" envDefault:"yt-dlp"`
		CookiesFile      string `env:"YTDLP_COOKIES"`
		Format           string `env:"VIDEO_FORMAT" envDefault:"best[height<=720]"`
		MaxHeight        int    `env:"MAX_VIDEO_HEIGHT" envDefault:"720"`
	}

	ChannelsFile string `env:"CHANNELS_FILE"`
	Channels     []Channel

	Redis struct {
		Addr     string `env:"REDIS_ADDR"`
		Password string `env:"REDIS_PASSWORD"`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	MembershipCacheTTL   time.Duration `env:"MEMBERSHIP_CACHE_TTL" envDefault:"0s"`
	BroadcastRate        float64       `env:"BROADCAST_RATE" envDefault:"25"`
	MaxConcurrentUpdates int64         `env:"MAX_CONCURRENT_UPDATES" envDefault:"1"`

	HTTPAddr string `env:"HTTP_ADDR"`

	Janitor struct {
		Interval time.Duration `env:"JANITOR_INTERVAL" envDefault:"10m"`
		MaxAge   time.Duration `env:"JANITOR_MAX_AGE" envDefault:"1h"`
	}
}

// MaxFileSize returns the size ceiling in bytes.
func (c *Config) MaxFileSize() int64 {
	return c.Download.MaxSizeMB * 1024 * 1024
}

// Load reads .env (if any) and the process environment.
func Load() (*Config, error) {
	// .env is optional; in production variables come from the environment.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.ChannelsFile != "" {
		channels, err := LoadChannels(cfg.ChannelsFile)
		if err != nil {
			return nil, err
		}
		cfg.Channels = channels
	} else {
		cfg.Channels = DefaultChannels()
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	c.Download.Extractor = strings.ToLower(strings.TrimSpace(c.Download.Extractor))
	switch c.Download.Extractor {
	case ExtractorYtDlp, ExtractorNative:
	default:
		return fmt.Errorf("invalid EXTRACTOR %q: want %s or %s", c.Download.Extractor, ExtractorYtDlp, ExtractorNative)
	}
	if c.Download.MaxSizeMB <= 0 {
		return fmt.Errorf("invalid MAX_FILE_SIZE_MB: %d", c.Download.MaxSizeMB)
	}
	if c.Download.MaxHeight <= 0 {
		return fmt.Errorf("invalid MAX_VIDEO_HEIGHT: %d", c.Download.MaxHeight)
	}
	if c.BroadcastRate < 0 {
		return fmt.Errorf("invalid BROADCAST_RATE: %v", c.BroadcastRate)
	}
	if c.MaxConcurrentUpdates < 1 {
		c.MaxConcurrentUpdates = 1
	}
	if c.Janitor.Interval <= 0 || c.Janitor.MaxAge <= 0 {
		return fmt.Errorf("invalid janitor settings: interval %s, max age %s", c.Janitor.Interval, c.Janitor.MaxAge)
	}
	if c.Telegram.PollTimeout <= 0 {
		c.Telegram.PollTimeout = 60
	}
	return nil
}

// EnsureDirs creates the transient download directory.
func (c *Config) EnsureDirs() error {
	if err := os.MkdirAll(c.Download.Dir, 0o755); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}
	return nil
}
