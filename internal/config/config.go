package config

import (
	"bot-arena-go/internal/models"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Default returns the configuration used when a key is absent from the config file.
func Default() *models.Config {
	return &models.Config{
		DBPath:            "data/arena-state",
		ListenAddr:        ":8080",
		Symbol:            "BTCUSDT",
		HistoryStart:      "2013-01-01",
		HistoryTimeout:    12,
		HistoryCachePath:  "data/BTCUSDT-1d.csv",
		SyntheticSeed:     42,
		SeriesSeed:        1,
		StageMode:         "template",
		InitialCapital:    10000,
		FeeRate:           0.001,
		MinNotionalValue:  10,
		GameDurationSec:   600,
		DefaultSpeed:      2,
		DriverIntervalMs:  250,
		PersistIntervalMs: 2000,
		TradeLogLimit:     200,
		StreamIntervalMs:  1000,
		LogConfig: models.LogConfig{
			Level:      "info",
			Output:     "console",
			File:       "logs/arena.log",
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     30,
		},
	}
}

// LoadConfig decodes the JSON file at path on top of Default, applies
// environment overrides and validates the result. A missing file is not an
// error: the defaults are used as-is.
func LoadConfig(path string) (*models.Config, error) {
	cfg := Default()

	file, err := os.Open(path)
	switch {
	case err == nil:
		defer file.Close()
		if err := json.NewDecoder(file).Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}

	applyEnv(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *models.Config) {
	if v := os.Getenv("ARENA_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("ARENA_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("ARENA_LOG_LEVEL"); v != "" {
		cfg.LogConfig.Level = v
	}
	if v := os.Getenv("ARENA_SYMBOL"); v != "" {
		cfg.Symbol = strings.ToUpper(v)
	}
}

// Validate rejects configurations the engine cannot run with.
func Validate(cfg *models.Config) error {
	if cfg.InitialCapital <= 0 {
		return fmt.Errorf("initial_capital must be positive, got %v", cfg.InitialCapital)
	}
	if cfg.FeeRate < 0 || cfg.FeeRate >= 1 {
		return fmt.Errorf("fee_rate must be in [0, 1), got %v", cfg.FeeRate)
	}
	if cfg.MinNotionalValue < 0 {
		return fmt.Errorf("min_notional_value must not be negative, got %v", cfg.MinNotionalValue)
	}
	if cfg.GameDurationSec <= 0 {
		return fmt.Errorf("game_duration_sec must be positive, got %d", cfg.GameDurationSec)
	}
	if cfg.DefaultSpeed <= 0 {
		return fmt.Errorf("default_speed must be positive, got %v", cfg.DefaultSpeed)
	}
	if cfg.DriverIntervalMs <= 0 {
		return fmt.Errorf("driver_interval_ms must be positive, got %d", cfg.DriverIntervalMs)
	}
	if cfg.TradeLogLimit <= 0 {
		return fmt.Errorf("trade_log_limit must be positive, got %d", cfg.TradeLogLimit)
	}
	switch cfg.StageMode {
	case "template", "scored":
	default:
		return fmt.Errorf("unknown stage_mode %q", cfg.StageMode)
	}
	return nil
}
