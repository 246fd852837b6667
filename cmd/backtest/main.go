package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dhkim0428/stockbot/config"
	"github.com/dhkim0428/stockbot/internal/adapters/csvstore"
	"github.com/dhkim0428/stockbot/internal/adapters/kis"
	"github.com/dhkim0428/stockbot/internal/adapters/notify"
	"github.com/dhkim0428/stockbot/internal/adapters/storage"
	"github.com/dhkim0428/stockbot/internal/backtest"
	"github.com/dhkim0428/stockbot/internal/domain"
	"github.com/dhkim0428/stockbot/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print per-day breakdown table in the final report")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	testStart, testEnd, err := cfg.TestRange()
	if err != nil {
		slog.Error("invalid test range", "err", err)
		os.Exit(1)
	}
	criteriaStart, err := cfg.CriteriaStartDate()
	if err != nil {
		slog.Error("invalid criteria start", "err", err)
		os.Exit(1)
	}
	policy, err := backtest.ParsePolicy(cfg.Sell.Strategy)
	if err != nil {
		slog.Error("invalid sell strategy", "err", err)
		os.Exit(1)
	}

	slog.Info("backtester starting",
		"config", *configPath,
		"strategy", policy.String(),
		"test_start", cfg.Backtest.TestStart,
		"test_end", cfg.Backtest.TestEnd,
		"symbols", len(cfg.Backtest.Symbols),
	)

	series, err := csvstore.NewIntradayStore(cfg.Data.TimeseriesDir, cfg.Backtest.CacheSize)
	if err != nil {
		slog.Error("failed to open intraday store", "err", err)
		os.Exit(1)
	}

	volumes, err := csvstore.OpenDailyVolumeFile(cfg.Data.DailyVolumePath)
	if err != nil {
		slog.Error("failed to open daily volume file", "err", err, "path", cfg.Data.DailyVolumePath)
		os.Exit(1)
	}

	signalStart, err := domain.ParseMinuteOfDay(cfg.Backtest.SignalStart)
	if err != nil {
		slog.Error("invalid signal window", "err", err)
		os.Exit(1)
	}
	signalEnd, err := domain.ParseMinuteOfDay(cfg.Backtest.SignalEnd)
	if err != nil {
		slog.Error("invalid signal window", "err", err)
		os.Exit(1)
	}

	var store ports.ResultStorage
	if cfg.Storage.DSN != "" {
		sqlStore, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			os.Exit(1)
		}
		defer sqlStore.Close()
		store = sqlStore
	}

	client := kis.NewClient(cfg.API.BaseURL, kis.Credentials{
		AppKey:    cfg.API.AppKey,
		AppSecret: cfg.API.AppSecret,
		Account:   cfg.API.Account,
	})

	criteria := backtest.NewCriteriaBuilder(
		csvstore.NewPercentileFile(cfg.Data.VolumeRatioPath),
		csvstore.NewPercentileFile(cfg.Data.StrengthPath),
	)
	buyer := backtest.NewBuyer(series, volumes,
		cfg.Backtest.VolumeWindowDays, cfg.Backtest.NotionalPerSymbol, signalStart, signalEnd)
	seller := backtest.NewSeller(client, policy, cfg.Sell.TargetProfitRate, cfg.Sell.StopLossRate)

	driver := backtest.NewDriver(
		backtest.Config{
			TestStart:       testStart,
			TestEnd:         testEnd,
			CriteriaStart:   criteriaStart,
			Workers:         cfg.Backtest.Workers,
			InitialBalance:  cfg.Backtest.InitialBalance,
			TransactionCost: cfg.Backtest.TransactionCost,
			Symbols:         cfg.Backtest.Symbols,
		},
		criteria, buyer, seller, series, volumes,
		store, notify.NewConsole(*table),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	report, err := driver.Run(ctx)
	if err != nil {
		slog.Error("backtest exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("backtest complete",
		"days", len(report.Days),
		"trades", report.TotalTrades,
		"total_return_pct", report.TotalReturn,
	)
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
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
