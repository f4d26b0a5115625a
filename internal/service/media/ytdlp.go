package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	apperrors "yt-download-bot/internal/common/errors"
	"yt-download-bot/internal/common/logger"
)

// runFunc executes a command and returns its stdout.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// YtDlp drives the yt-dlp executable.
type YtDlp struct {
	Path        string
	Format      string
	CookiesFile string

	run runFunc
}

func NewYtDlp(path, format, cookiesFile string) *YtDlp {
	return &YtDlp{Path: path, Format: format, CookiesFile: cookiesFile, run: runCommand}
}

// CheckInstalled verifies the executable is on PATH.
func (y *YtDlp) CheckInstalled() error {
	if _, err := exec.LookPath(y.Path); err != nil {
		return fmt.Errorf("%s not found: %w", y.Path, err)
	}
	return nil
}

type ytdlpInfo struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Duration       *float64 `json:"duration"`
	Filesize       *float64 `json:"filesize"`
	FilesizeApprox *float64 `json:"filesize_approx"`
}

func (y *YtDlp) baseArgs() []string {
	args := []string{"--no-playlist", "--no-warnings", "-f", y.Format}
	if y.CookiesFile != "" {
		args = append(args, "--cookies", y.CookiesFile)
	}
	return args
}

func (y *YtDlp) Probe(ctx context.Context, url string) (*Info, error) {
	args := append(y.baseArgs(), "--dump-single-json", "--skip-download", url)
	out, err := y.run(ctx, y.Path, args...)
	if err != nil {
		return nil, apperrors.NewExtractionError("probe", err).WithDetail("url", url)
	}
	var raw ytdlpInfo
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, apperrors.NewExtractionError("decode probe", err).WithDetail("url", url)
	}
	info := &Info{ID: raw.ID, Title: raw.Title}
	if raw.Duration != nil {
		info.Duration = time.Duration(*raw.Duration * float64(time.Second))
	}
	switch {
	case raw.Filesize != nil && *raw.Filesize > 0:
		info.DeclaredSize = int64(*raw.Filesize)
	case raw.FilesizeApprox != nil && *raw.FilesizeApprox > 0:
		info.DeclaredSize = int64(*raw.FilesizeApprox)
	}
	return info, nil
}

func (y *YtDlp) Download(ctx context.Context, url, dir, name string) (string, error) {
	template := filepath.Join(dir, name+".%(ext)s")
	args := append(y.baseArgs(), "--no-part", "-o", template, url)
	start := time.Now()
	if _, err := y.run(ctx, y.Path, args...); err != nil {
		removeMatching(dir, name)
		return "", apperrors.NewExtractionError("download", err).WithDetail("url", url)
	}
	files, err := filepath.Glob(filepath.Join(dir, name+".*"))
	if err != nil || len(files) == 0 {
		return "", apperrors.NewExtractionError("locate download", fmt.Errorf("no file for %s", name))
	}
	logger.Debug().Str("file", files[0]).Dur("took", time.Since(start)).Msg("yt-dlp download finished")
	return files[0], nil
}

func removeMatching(dir, name string) {
	files, _ := filepath.Glob(filepath.Join(dir, name+".*"))
	for _, f := range files {
		_ = os.Remove(f)
	}
}
