package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"yt-download-bot/internal/bot"
	"yt-download-bot/internal/common/logger"
	"yt-download-bot/internal/config"
	apphttp "yt-download-bot/internal/http"
	"yt-download-bot/internal/platform/redis"
	"yt-download-bot/internal/platform/sqlite"
	"yt-download-bot/internal/platform/telegram"
	sqliterepo "yt-download-bot/internal/repository/sqlite"
	"yt-download-bot/internal/service/access"
	"yt-download-bot/internal/service/broadcast"
	"yt-download-bot/internal/service/media"
	"yt-download-bot/internal/service/session"
	"yt-download-bot/internal/workers"
)

const sessionTTL = 24 * time.Hour

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Init("yt-download-bot", false)
		logger.Fatal().Err(err).Msg("Failed to load config")
	}
	logger.Init("yt-download-bot", cfg.Debug)
	if err := tgbotapi.SetLogger(logger.Printf{}); err != nil {
		logger.Warn().Err(err).Msg("Failed to set telegram logger")
	}
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Telegram.AdminID == 0 {
		logger.Warn().Msg("ADMIN_ID is not set; admin panel is unreachable")
	}

	if err := cfg.EnsureDirs(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to create directories")
	}

	db, err := sqlite.Open(ctx, cfg.DatabasePath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("Failed to open database")
	}
	defer db.Close()

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Telegram")
	}
	api.Debug = cfg.Telegram.Debug
	logger.Info().Str("username", api.Self.UserName).Msg("Authorized on Telegram")

	tg := telegram.NewClient(api)
	var (
		checker  access.MembershipChecker = tg
		sessions session.Store            = session.NewMemoryStore()
		checks                            = []apphttp.Check{{Name: "sqlite", Ping: db.HealthCheck}}
	)
	if cfg.Redis.Addr != "" {
		rdb, err := redis.Open(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		sessions = session.NewRedisStore(rdb, sessionTTL)
		if cfg.MembershipCacheTTL > 0 {
			checker = access.NewCachedChecker(tg, rdb, cfg.MembershipCacheTTL)
		}
		checks = append(checks, apphttp.Check{Name: "redis", Ping: rdb.HealthCheck})
	}

	extractor, err := newExtractor(cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("extractor", cfg.Download.Extractor).Msg("Extractor is not usable")
	}

	b := bot.New(bot.Options{
		API:       api,
		Gate:      access.NewGate(checker, cfg.Channels, cfg.Telegram.AdminID),
		Users:     sqliterepo.NewUserRepository(db.GetDB()),
		Sessions:  sessions,
		Extractor: extractor,
		Broadcast: broadcast.NewService(tg, cfg.BroadcastRate),
		SizePolicy: media.SizePolicy{
			Limit:        cfg.MaxFileSize(),
			AllowUnknown: cfg.Download.AllowUnknownSize,
		},
		DownloadDir:   cfg.Download.Dir,
		BotUsername:   api.Self.UserName,
		MaxConcurrent: cfg.MaxConcurrentUpdates,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u := tgbotapi.NewUpdate(0)
		u.Timeout = cfg.Telegram.PollTimeout
		updates := api.GetUpdatesChan(u)
		go func() {
			<-gctx.Done()
			api.StopReceivingUpdates()
		}()
		return b.Run(gctx, updates)
	})
	g.Go(func() error {
		return workers.NewJanitor(cfg.Download.Dir, cfg.Janitor.MaxAge, cfg.Janitor.Interval).Start(gctx)
	})
	if cfg.HTTPAddr != "" {
		srv := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           apphttp.NewRouter(checks...),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info().Str("addr", cfg.HTTPAddr).Msg("Health server listening")
			return apphttp.Serve(gctx, srv)
		})
	}

	logger.Info().
		Int("channels", len(cfg.Channels)).
		Str("extractor", cfg.Download.Extractor).
		Int64("max_file_size_mb", cfg.Download.MaxSizeMB).
		Msg("Bot started")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("Bot stopped with error")
		return
	}
	logger.Info().Msg("Bot stopped")
}

func newExtractor(cfg *config.Config) (media.Extractor, error) {
	if cfg.Download.Extractor == config.ExtractorNative {
		return media.NewNative(cfg.Download.MaxHeight), nil
	}
	y := media.NewYtDlp(cfg.Download.YtDlpPath, cfg.Download.Format, cfg.Download.CookiesFile)
	if err := y.CheckInstalled(); err != nil {
		return nil, err
	}
	return y, nil
}
