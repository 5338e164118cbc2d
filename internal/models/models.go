package models

import (
	"time"
)

// Config holds every tunable of the arena process.
type Config struct {
	DBPath            string    `json:"db_path"`             // badger directory holding the session record
	ListenAddr        string    `json:"listen_addr"`         // HTTP listen address
	Symbol            string    `json:"symbol"`              // history symbol, e.g. "BTCUSDT"
	HistoryStart      string    `json:"history_start"`       // first day requested from the range query (YYYY-MM-DD)
	HistoryTimeout    int       `json:"history_timeout_sec"` // per-attempt timeout of the external history source
	HistoryCachePath  string    `json:"history_cache_path"`  // CSV cache of a previously fetched history, empty disables it
	BinanceBaseURL    string    `json:"binance_base_url,omitempty"`
	Offline           bool      `json:"offline"` // skip the external source and synthesize right away
	SyntheticSeed     uint32    `json:"synthetic_seed"`
	SeriesSeed        uint32    `json:"series_seed"`
	StageMode         string    `json:"stage_mode"` // "template" or "scored"
	InitialCapital    float64   `json:"initial_capital"`
	FeeRate           float64   `json:"fee_rate"`
	MinNotionalValue  float64   `json:"min_notional_value"` // orders below this notional are skipped
	GameDurationSec   int       `json:"game_duration_sec"`  // nominal wall-clock length of a run at 1x
	DefaultSpeed      float64   `json:"default_speed"`
	DriverIntervalMs  int       `json:"driver_interval_ms"`
	PersistIntervalMs int       `json:"persist_interval_ms"` // minimum spacing of saves while ticking
	TradeLogLimit     int       `json:"trade_log_limit"`
	StreamIntervalMs  int       `json:"stream_interval_ms"`
	LogConfig         LogConfig `json:"log"`
}

// GameDuration returns the nominal run length at 1x speed.
func (c *Config) GameDuration() time.Duration {
	return time.Duration(c.GameDurationSec) * time.Second
}

// DriverInterval returns the real-time period of the scheduler driver.
func (c *Config) DriverInterval() time.Duration {
	return time.Duration(c.DriverIntervalMs) * time.Millisecond
}

// PersistInterval returns the minimum spacing between saves issued while ticking.
func (c *Config) PersistInterval() time.Duration {
	return time.Duration(c.PersistIntervalMs) * time.Millisecond
}

// StreamInterval returns the push period of the websocket snapshot stream.
func (c *Config) StreamInterval() time.Duration {
	return time.Duration(c.StreamIntervalMs) * time.Millisecond
}

// HistoryAttemptTimeout returns the timeout applied to each external history attempt.
func (c *Config) HistoryAttemptTimeout() time.Duration {
	return time.Duration(c.HistoryTimeout) * time.Second
}

// LogConfig describes where and how verbosely the process logs.
type LogConfig struct {
	Level      string `json:"level"`       // "debug", "info", "warn", "error"
	Output     string `json:"output"`      // "console", "file", "both"
	File       string `json:"file"`        // log file path
	MaxSize    int    `json:"max_size"`    // megabytes per file before rotation
	MaxBackups int    `json:"max_backups"` // rotated files kept
	MaxAge     int    `json:"max_age"`     // days a rotated file is kept
	Compress   bool   `json:"compress"`
}

// PricePoint is one observation of the price series.
type PricePoint struct {
	Time  time.Time `json:"ts"`
	Price float64   `json:"close"`
}

// Closes extracts the price column of points.
func Closes(points []PricePoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Price
	}
	return out
}

// Stage is a bounded window of the long history a run is played on.
type Stage struct {
	ID           string    `json:"id"`
	Regime       string    `json:"type"`
	Title        string    `json:"title"`
	Period       string    `json:"period"`
	TurningPoint string    `json:"turningPoint"`
	Description  string    `json:"description"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Summary      string    `json:"summary"`
}

// Side is the direction of an executed order.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Order is an executed trade. Orders are never mutated after creation.
type Order struct {
	Side   Side      `json:"side"`
	Price  float64   `json:"price"`
	Qty    float64   `json:"qty"`
	Time   time.Time `json:"ts"`
	Reason string    `json:"reason"`
}

// TickOrder is the transient event emitted for every order executed during a tick.
type TickOrder struct {
	BotID   string `json:"botId"`
	BotName string `json:"botName"`
	Order
}

// LeaderboardRow is the derived performance view of one competitor at a price.
type LeaderboardRow struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Inspiration string  `json:"inspiration"`
	Equity      float64 `json:"equity"`
	ReturnPct   float64 `json:"ret"`
	Trades      int     `json:"trades"`
	DrawdownPct float64 `json:"mdd"`
}

// BotResult is one competitor's line in a run result.
type BotResult struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	ReturnPct   float64 `json:"returnPct"`
	Equity      float64 `json:"equity"`
	Trades      int     `json:"trades"`
	DrawdownPct float64 `json:"mdd"`
}

// RunResult summarizes a finished run. It is built once and never mutated.
type RunResult struct {
	RunID       string      `json:"runId"`
	StageID     string      `json:"stageId"`
	Speed       float64     `json:"speed"`
	CompletedAt time.Time   `json:"completedAt"`
	Bots        []BotResult `json:"bots"`
}
