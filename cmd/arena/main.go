package main

import (
	"bot-arena-go/internal/config"
	"bot-arena-go/internal/downloader"
	"bot-arena-go/internal/exchange"
	"bot-arena-go/internal/history"
	"bot-arena-go/internal/logger"
	"bot-arena-go/internal/models"
	"bot-arena-go/internal/observability"
	"bot-arena-go/internal/persistence"
	"bot-arena-go/internal/reporter"
	"bot-arena-go/internal/scheduler"
	"bot-arena-go/internal/server"
	"bot-arena-go/internal/simulator"
	"bot-arena-go/internal/stage"
	"bot-arena-go/internal/strategy"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the config file")
	mode := flag.String("mode", "serve", "running mode: serve or backtest")
	stageID := flag.String("stage", "", "stage to backtest (defaults to the first stage)")
	flag.Parse()

	// Console logging until the config is known.
	logger.InitLogger(models.LogConfig{Level: "info", Output: "console"})

	if err := godotenv.Load(); err != nil {
		logger.S().Info("no .env file found, reading the process environment")
	} else {
		logger.S().Info("loaded .env file")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.S().Fatalf("failed to load config: %v", err)
	}

	logger.InitLogger(cfg.LogConfig)
	defer logger.S().Sync()

	switch *mode {
	case "serve":
		runServeMode(cfg)
	case "backtest":
		if err := runBacktestMode(cfg, *stageID); err != nil {
			logger.S().Fatal(err)
		}
	default:
		logger.S().Fatalf("unknown mode %q, use 'serve' or 'backtest'", *mode)
	}
}

// newHistoryLoader wires the Binance source and the CSV cache unless offline.
func newHistoryLoader(cfg *models.Config) *history.Loader {
	loader := &history.Loader{
		Timeout: cfg.HistoryAttemptTimeout(),
		Seed:    cfg.SyntheticSeed,
		Logger:  logger.Named("history"),
	}
	if start, err := time.Parse("2006-01-02", cfg.HistoryStart); err == nil {
		loader.Start = start
	} else {
		logger.S().Warnf("invalid history_start %q, using the source default: %v", cfg.HistoryStart, err)
	}
	if cfg.Offline {
		return loader
	}
	loader.Fetcher = downloader.NewKlineDownloader(cfg.Symbol, cfg.BinanceBaseURL)
	if cfg.HistoryCachePath != "" {
		loader.Cache = downloader.CSVCache{Path: cfg.HistoryCachePath}
	}
	return loader
}

// runServeMode runs the arena server until SIGINT or SIGTERM.
func runServeMode(cfg *models.Config) {
	logger.S().Info("--- starting arena server ---")

	repo, err := persistence.NewBadgerRepository(cfg.DBPath)
	if err != nil {
		logger.S().Fatalf("failed to open the session store: %v", err)
	}
	defer repo.Close()

	metrics := observability.NewMetrics("bot_arena")
	sched := scheduler.New(scheduler.Deps{
		Config:  cfg,
		Loader:  newHistoryLoader(cfg),
		Repo:    repo,
		Metrics: metrics,
		Logger:  logger.Named("scheduler"),
	})

	initCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	sched.Init(initCtx)
	cancel()

	srv := server.New(cfg, sched, metrics, logger.Named("server"))
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.S().Infof("received %s, shutting down", sig)
	case err := <-serveErr:
		if err != nil {
			logger.S().Errorf("server stopped: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.S().Warnf("server shutdown: %v", err)
	}
	if err := sched.Close(); err != nil {
		logger.S().Errorf("failed to save the session on exit: %v", err)
	}
	logger.S().Info("arena stopped, session saved")
}

// runBacktestMode plays one stage start to finish without wall-clock pacing
// and prints the standings.
func runBacktestMode(cfg *models.Config, stageID string) error {
	logger.S().Info("--- starting backtest ---")
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	daily, source := newHistoryLoader(cfg).Load(ctx)
	stages := stage.Select(cfg.StageMode, daily)
	if len(stages) == 0 {
		return fmt.Errorf("history from %s yields no stages", source)
	}
	chosen := stages[0]
	if stageID != "" {
		var ok bool
		if chosen, ok = stage.Find(stages, stageID); !ok {
			return fmt.Errorf("unknown stage %q", stageID)
		}
	}

	series := stage.BuildSeries(chosen, daily, cfg.SeriesSeed)
	logger.S().Infof("stage %s (%s), %d ticks, history from %s", chosen.ID, chosen.Period, len(series), source)

	sim := simulator.New(exchange.NewPaperExchange(cfg), cfg.InitialCapital, logger.Named("simulator"))
	competitors := sim.NewCompetitors(strategy.DefaultRegistry().Bots())
	orders := 0
	board, err := sim.Run(ctx, competitors, series, func(_ int, res simulator.TickResult) {
		orders += len(res.Orders)
	})
	if err != nil {
		return fmt.Errorf("backtest interrupted: %w", err)
	}

	now := time.Now()
	result := simulator.BuildRunResult(simulator.NewRunID(now), chosen.ID, 0, board, now)
	logger.L().Info("backtest finished", zap.String("runId", result.RunID), zap.Int("orders", orders))
	reporter.RenderRunResult(os.Stdout, result)
	return nil
}
