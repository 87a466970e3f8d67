package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shiftbot/internal/config"
	"shiftbot/internal/culture"
	"shiftbot/internal/distribution"
	"shiftbot/internal/scheduler"
	"shiftbot/internal/sheets"
	"shiftbot/internal/store"
	"shiftbot/internal/transport/telegram"
	logx "shiftbot/pkg/logx"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config yaml")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfgPath); err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath string) error {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, closeLog, err := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()
	mgr.SetLogger(log.With(logx.String("comp", "config")))

	busyTimeout, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return err
	}
	st, err := store.Open(store.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busyTimeout,
	}, log.With(logx.String("comp", "store")))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if st == nil {
		log.Warn("storage disabled; associations will not be persisted")
	} else {
		defer func() { _ = st.Close() }()
	}

	cultures, err := culture.New(cfg.DefaultLanguage, cfg.Templates)
	if err != nil {
		return err
	}

	sheetsClient, err := sheets.NewClient(cfg.Sheets, log.With(logx.String("comp", "sheets")))
	if err != nil {
		return err
	}

	pollTimeout, err := config.ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout)
	if err != nil {
		return err
	}
	bot, err := telegram.New(telegram.Config{
		Token:          cfg.Telegram.Token,
		PollTimeout:    pollTimeout,
		SendRatePerSec: cfg.Telegram.SendRatePerSec,
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}

	dist := distribution.NewService(sheetsClient, bot, st, cultures,
		log.With(logx.String("comp", "distribution")))

	sched := scheduler.New(log.With(logx.String("comp", "scheduler")),
		func(ctx context.Context, r config.Restaurant) {
			if err := dist.Execute(ctx, r, distribution.Broadcast()); err != nil {
				log.Error("scheduled distribution failed",
					logx.Int64("restaurant", r.ChatID), logx.Err(err))
			}
		})

	bot.OnDuty(func(ctx context.Context, req telegram.DutyRequest) {
		cur := mgr.Get()
		if cur == nil {
			return
		}
		targets := restaurantsForUser(ctx, st, cur.Restaurants, req.UserID, log)
		if err := dist.ExecuteAll(ctx, targets, distribution.Targeted(req.UserID, req.Date)); err != nil {
			log.Error("targeted distribution failed",
				logx.Int64("user", req.UserID), logx.Err(err))
		}
	})

	mgr.SetOnChange(func(c *config.Config) {
		sched.Apply(c.Restaurants)
	})

	bot.Start(ctx)
	sched.Start(ctx)
	sched.Apply(cfg.Restaurants)
	go func() { _ = mgr.Watch(ctx) }()

	log.Info("shiftbot started",
		logx.Int("restaurants", len(cfg.Restaurants)),
		logx.Bool("storage", st != nil))

	<-ctx.Done()
	sched.Stop()

	// Give in-flight sends a moment before the process exits.
	time.Sleep(200 * time.Millisecond)
	log.Info("shiftbot stopped")
	return nil
}

// restaurantsForUser narrows a /duty request to the restaurants the user is
// known to belong to. Unknown users (or a disabled store) get all
// restaurants: the targeted pipeline only messages users actually on a
// roster, so over-asking is harmless.
func restaurantsForUser(ctx context.Context, st store.Store, all []config.Restaurant, userID int64, log logx.Logger) []config.Restaurant {
	if st == nil {
		return all
	}
	ids, err := st.RestaurantIDsFor(ctx, userID)
	if err != nil {
		log.Warn("association lookup failed", logx.Int64("user", userID), logx.Err(err))
		return all
	}
	if len(ids) == 0 {
		return all
	}

	known := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		known[id] = struct{}{}
	}
	var out []config.Restaurant
	for _, r := range all {
		if _, ok := known[r.ChatID]; ok {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return all
	}
	return out
}
