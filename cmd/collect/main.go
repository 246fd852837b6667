package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dhkim0428/stockbot/config"
	"github.com/dhkim0428/stockbot/internal/adapters/kis"
	"github.com/dhkim0428/stockbot/internal/collector"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	endAt := flag.String("end", "15:30", "stop collecting at this local time (HH:MM)")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	setupLogger(cfg.Log)

	endTime, err := parseEndTime(*endAt)
	if err != nil {
		slog.Error("invalid end time", "err", err, "end", *endAt)
		os.Exit(1)
	}

	client := kis.NewClient(cfg.API.BaseURL, kis.Credentials{
		AppKey:    cfg.API.AppKey,
		AppSecret: cfg.API.AppSecret,
		Account:   cfg.API.Account,
	})

	c := collector.New(client, cfg.Backtest.Symbols, cfg.Data.TimeseriesDir)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := c.Run(ctx, endTime); err != nil {
		slog.Error("collector exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("collector stopped cleanly")
}

// parseEndTime combina la hora HH:MM con la fecha de hoy.
func parseEndTime(s string) (time.Time, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return time.Time{}, err
	}
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location()), nil
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
