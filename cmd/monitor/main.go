package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"vine_monitor/internal/bot"
	"vine_monitor/internal/broadcast"
	"vine_monitor/internal/config"
	"vine_monitor/internal/filter"
	"vine_monitor/internal/hidden"
	"vine_monitor/internal/locale"
	"vine_monitor/internal/monitor"
	"vine_monitor/internal/notify"
	"vine_monitor/internal/remote"
	"vine_monitor/internal/scheduler"
	"vine_monitor/internal/settings"
	"vine_monitor/internal/source"
	"vine_monitor/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("monitor stopped", "error", err)
		os.Exit(1)
	}
	log.Info("monitor stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return err
		}
	}

	st, err := storage.NewSQLite(cfg.DatabasePath, cfg.StorageQuotaBytes)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	set, err := settings.Read(cfg.SettingsPath)
	if err != nil {
		return err
	}

	prices, err := locale.New(set.Locale, set.Currency)
	if err != nil {
		log.Warn("invalid locale settings, using en-US/USD", "error", err)
		if prices, err = locale.New("en-US", "USD"); err != nil {
			return err
		}
	}

	var tg *bot.Bot
	notifier := notify.Multi{notify.NewLog(log)}
	if cfg.TelegramBotToken != "" {
		if tg, err = bot.New(cfg.TelegramBotToken, cfg, log); err != nil {
			return err
		}
		notifier = append(notifier, tg)
	}

	storeOpts := hidden.Options{
		Hub:      broadcast.NewHub(),
		Notifier: notifier,
		GC:       hidden.GCConfig{CacheSizeMiB: set.CacheSizeMiB()},
	}
	if cfg.RemoteEnabled() && set.RemoteSync {
		id, err := remote.ClientID(ctx, st)
		if err != nil {
			return err
		}
		rc := remote.New(&http.Client{Timeout: 30 * time.Second}, cfg.APIURL, cfg.Country, id, log)
		defer rc.Wait()
		storeOpts.Remote = rc
	}
	if !storeOpts.GC.Enabled() {
		log.Warn("hidden items cache size out of range, garbage collection disabled",
			"min_mib", hidden.MinCacheSizeMiB, "max_mib", hidden.MaxCacheSizeMiB)
	}

	daemonStore, err := hidden.New(ctx, st, log, storeOpts)
	if err != nil {
		return err
	}
	defer daemonStore.Close()

	highlight := filter.NewMatcher(set.HighlightKeywords, log)
	hide := filter.NewMatcher(set.HideKeywords, log)
	blur := filter.NewMatcher(set.BlurKeywords, log)

	var cue monitor.Cue
	if tg != nil {
		cue = tg
	}
	mon := monitor.New(monitor.Options{
		Highlight:              highlight,
		Hide:                   hide,
		Renderer:               monitor.LogRenderer{Log: log},
		Cue:                    cue,
		Prices:                 prices,
		Hidden:                 daemonStore,
		HideDuplicateThumbnail: set.HideDuplicateThumbnail,
		AutoTruncate:           set.AutoTruncate,
		AutoTruncateMax:        set.AutoTruncateMax,
	}, log)

	sched := scheduler.New(
		source.New(&http.Client{Timeout: 30 * time.Second}, cfg.FeedURL),
		mon,
		log,
		scheduler.Options{
			Highlight: highlight,
			Hide:      hide,
			Blur:      blur,
			Collector: daemonStore,
			Tick:      cfg.PollInterval,
		},
	)

	g, gctx := errgroup.WithContext(ctx)

	if tg != nil {
		// The Telegram front-end is its own context on the hidden list.
		botStore, err := hidden.New(ctx, st, log, storeOpts)
		if err != nil {
			return err
		}
		defer botStore.Close()
		tg.Bind(mon, botStore, prices)

		g.Go(func() error {
			tg.Run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		sched.Run(gctx)
		return nil
	})

	log.Info("starting monitor",
		"feed", cfg.FeedURL,
		"hidden_items", daemonStore.Len(),
		"telegram", tg != nil,
		"remote_sync", storeOpts.Remote != nil,
	)

	return g.Wait()
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
