package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	apperrors "yt-download-bot/internal/common/errors"
	"yt-download-bot/internal/domain/download"
	domain "yt-download-bot/internal/domain/user"
)

// UserRepository stores users and the download log in SQLite.
type UserRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ domain.Repository = (*UserRepository)(nil)

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db, now: time.Now}
}

const userColumns = `user_id, COALESCE(username, ''), COALESCE(first_name, ''), join_date, last_active, download_count`

// Register inserts the user if absent. A repeat call refreshes profile fields and
// last_active, leaving join_date and download_count untouched.
func (r *UserRepository) Register(ctx context.Context, u *domain.User) error {
	const q = `
INSERT INTO users (user_id, username, first_name, join_date, last_active, download_count)
VALUES (?, NULLIF(?, ''), ?, ?, ?, 0)
ON CONFLICT (user_id) DO UPDATE SET
	username = excluded.username,
	first_name = excluded.first_name,
	last_active = excluded.last_active`
	now := r.now().UTC()
	joined := u.JoinedAt
	if joined.IsZero() {
		joined = now
	}
	if _, err := r.db.ExecContext(ctx, q, u.ID, u.Username, u.FirstName, joined.Unix(), now.Unix()); err != nil {
		return apperrors.NewDatabaseError("register user", err)
	}
	return nil
}

// GetByID returns nil if the user is unknown.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.NewDatabaseError("get user", err)
	}
	return u, nil
}

// RecordDownload increments the counter and appends the log row in one transaction.
// The user must already be registered; otherwise nothing is written.
func (r *UserRepository) RecordDownload(ctx context.Context, d *download.Download) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = r.now().UTC()
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewDatabaseError("begin record download", err)
	}
	defer func() { _ = tx.Rollback() }()

	upd, err := tx.ExecContext(ctx,
		`UPDATE users SET download_count = download_count + 1 WHERE user_id = ?`, d.UserID)
	if err != nil {
		return apperrors.NewDatabaseError("increment download count", err)
	}
	if n, err := upd.RowsAffected(); err != nil || n == 0 {
		if err == nil {
			err = sql.ErrNoRows
		}
		return apperrors.NewDatabaseError("increment download count", err).WithDetail("user_id", d.UserID)
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO downloads (user_id, video_url, title, download_date) VALUES (?, ?, ?, ?)`,
		d.UserID, d.VideoURL, d.Title, d.CreatedAt.Unix())
	if err != nil {
		return apperrors.NewDatabaseError("log download", err)
	}
	if err := tx.Commit(); err != nil {
		return apperrors.NewDatabaseError("commit record download", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		d.ID = id
	}
	return nil
}

// Stats counts users first seen inside rolling windows ending at now.
func (r *UserRepository) Stats(ctx context.Context, now time.Time) (*download.Stats, error) {
	const q = `
SELECT
	COUNT(*),
	COALESCE(SUM(CASE WHEN join_date >= ? THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN join_date >= ? THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN join_date >= ? THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN join_date >= ? THEN 1 ELSE 0 END), 0),
	(SELECT COUNT(*) FROM downloads)
FROM users`
	var s download.Stats
	err := r.db.QueryRowContext(ctx, q,
		now.Add(-download.Day).Unix(),
		now.Add(-download.Week).Unix(),
		now.Add(-download.Month).Unix(),
		now.Add(-download.Year).Unix(),
	).Scan(&s.TotalUsers, &s.UsersToday, &s.UsersWeek, &s.UsersMonth, &s.UsersYear, &s.TotalDownloads)
	if err != nil {
		return nil, apperrors.NewDatabaseError("stats", err)
	}
	return &s, nil
}

// Top returns users by download count; ties resolve by ascending user id.
func (r *UserRepository) Top(ctx context.Context, limit int) ([]domain.User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users ORDER BY download_count DESC, user_id ASC LIMIT ?`, limit)
}

// Recent returns the most recently joined users.
func (r *UserRepository) Recent(ctx context.Context, limit int) ([]domain.User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users ORDER BY join_date DESC, user_id DESC LIMIT ?`, limit)
}

// IDs returns every known user id in ascending order.
func (r *UserRepository) IDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM users ORDER BY user_id`)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list user ids", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.NewDatabaseError("scan user id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("list user ids", err)
	}
	return ids, nil
}

func (r *UserRepository) CountDownloads(ctx context.Context, userID int64) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM downloads WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return 0, apperrors.NewDatabaseError("count downloads", err)
	}
	return n, nil
}

func (r *UserRepository) list(ctx context.Context, q string, limit int) ([]domain.User, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list users", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, apperrors.NewDatabaseError("scan user", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("list users", err)
	}
	return users, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*domain.User, error) {
	var (
		u              domain.User
		joined, active int64
	)
	if err := s.Scan(&u.ID, &u.Username, &u.FirstName, &joined, &active, &u.DownloadCount); err != nil {
		return nil, err
	}
	u.JoinedAt = time.Unix(joined, 0).UTC()
	u.LastActiveAt = time.Unix(active, 0).UTC()
	return &u, nil
}
