package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"yt-download-bot/internal/common/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	user_id        INTEGER PRIMARY KEY,
	username       TEXT,
	first_name     TEXT,
	join_date      INTEGER NOT NULL,
	last_active    INTEGER NOT NULL,
	download_count INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS downloads (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id       INTEGER NOT NULL,
	video_url     TEXT NOT NULL,
	title         TEXT NOT NULL,
	download_date INTEGER NOT NULL
);
`

type Client struct {
	db   *sql.DB
	path string
}

// Open opens the database file and applies the schema idempotently.
func Open(ctx context.Context, path string) (*Client, error) {
	if path == "" {
		return nil, fmt.Errorf("empty sqlite path")
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer; a single connection keeps statements serialized.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	logger.Info().Str("path", path).Msg("SQLite client initialized")

	return &Client{db: db, path: path}, nil
}

// GetDB returns the underlying handle.
func (c *Client) GetDB() *sql.DB {
	return c.db
}

func (c *Client) Close() error {
	return c.db.Close()
}

// HealthCheck pings the database.
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.db.PingContext(ctx)
}
