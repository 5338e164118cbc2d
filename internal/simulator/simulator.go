// Package simulator advances a roster of competitors through a price series
// one tick at a time and ranks them.
package simulator

import (
	"bot-arena-go/internal/exchange"
	"bot-arena-go/internal/models"
	"bot-arena-go/internal/strategy"
	"context"
	"math"
	"sort"
	"time"

	"github.com/jxskiss/base62"
	"go.uber.org/zap"
)

// Simulator executes bot decisions against an exchange.
type Simulator struct {
	exchange       exchange.Exchange
	initialCapital float64
	logger         *zap.Logger
}

// New creates a simulator. A nil logger discards order logs.
func New(ex exchange.Exchange, initialCapital float64, logger *zap.Logger) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{exchange: ex, initialCapital: initialCapital, logger: logger}
}

// InitialCapital returns the cash every competitor starts with.
func (s *Simulator) InitialCapital() float64 {
	return s.initialCapital
}

// NewCompetitors creates one fresh competitor per bot.
func (s *Simulator) NewCompetitors(bots []strategy.Bot) []*Competitor {
	out := make([]*Competitor, 0, len(bots))
	for _, b := range bots {
		out = append(out, NewCompetitor(b, s.initialCapital))
	}
	return out
}

// TickResult is what one tick produced.
type TickResult struct {
	Orders      []models.TickOrder
	Leaderboard []models.LeaderboardRow
}

// AdvanceTick evaluates every competitor at series[index], executes the
// implied orders, refreshes peak equity and ranks the roster.
func (s *Simulator) AdvanceTick(competitors []*Competitor, series []models.PricePoint, index int) TickResult {
	if index < 0 || index >= len(series) {
		return TickResult{}
	}
	closes := models.Closes(series[:index+1])
	point := series[index]
	price := point.Price

	var orders []models.TickOrder
	for _, c := range competitors {
		if c.decider == nil {
			continue
		}
		decision := c.decider.Decide(&strategy.Context{
			Closes:   closes,
			Price:    price,
			Cash:     c.Cash,
			Position: c.Position,
			Scratch:  &c.Scratch,
		})

		var (
			fill exchange.Fill
			ok   bool
		)
		switch decision.Action {
		case strategy.Buy:
			fill, ok = s.exchange.Buy(&c.Account, price, decision.Portion)
			if ok {
				// Arithmetic mean of the previous entry and this fill, not size-weighted.
				if c.Scratch.EntryPrice > 0 {
					c.Scratch.EntryPrice = (c.Scratch.EntryPrice + price) / 2
				} else {
					c.Scratch.EntryPrice = price
				}
			}
		case strategy.Sell:
			fill, ok = s.exchange.Sell(&c.Account, price, decision.Portion)
			if ok && fill.Flat {
				c.Scratch.EntryPrice = 0
			}
		}
		if !ok {
			continue
		}

		order := models.Order{Side: fill.Side, Price: fill.Price, Qty: fill.Qty, Time: point.Time, Reason: decision.Reason}
		c.Trades = append(c.Trades, order)
		c.LastAction = decision.Action
		c.LastActionReason = decision.Reason
		c.LastActionTick = index
		orders = append(orders, models.TickOrder{BotID: c.ID, BotName: c.Name, Order: order})

		s.logger.Debug("order executed",
			zap.String("bot", c.ID),
			zap.String("side", string(fill.Side)),
			zap.Float64("price", fill.Price),
			zap.Float64("qty", fill.Qty),
			zap.Float64("fee", fill.Fee),
			zap.Int("tick", index),
		)
	}

	for _, c := range competitors {
		c.Peak = math.Max(c.Peak, c.Equity(price))
	}
	return TickResult{Orders: orders, Leaderboard: s.Leaderboard(competitors, price)}
}

// Leaderboard ranks competitors by percent return at price, best first.
func (s *Simulator) Leaderboard(competitors []*Competitor, price float64) []models.LeaderboardRow {
	rows := make([]models.LeaderboardRow, 0, len(competitors))
	for _, c := range competitors {
		equity := c.Equity(price)
		rows = append(rows, models.LeaderboardRow{
			ID:          c.ID,
			Name:        c.Name,
			Inspiration: c.Inspiration,
			Equity:      equity,
			ReturnPct:   (equity - s.initialCapital) / s.initialCapital * 100,
			Trades:      len(c.Trades),
			DrawdownPct: (c.Peak - equity) / math.Max(1, c.Peak) * 100,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ReturnPct > rows[j].ReturnPct })
	return rows
}

// BuildRunResult freezes a final leaderboard into a run result.
func BuildRunResult(runID, stageID string, speed float64, board []models.LeaderboardRow, completedAt time.Time) models.RunResult {
	bots := make([]models.BotResult, 0, len(board))
	for _, row := range board {
		bots = append(bots, models.BotResult{
			ID:          row.ID,
			Name:        row.Name,
			ReturnPct:   round(row.ReturnPct, 4),
			Equity:      round(row.Equity, 2),
			Trades:      row.Trades,
			DrawdownPct: round(row.DrawdownPct, 4),
		})
	}
	return models.RunResult{
		RunID:       runID,
		StageID:     stageID,
		Speed:       speed,
		CompletedAt: completedAt.UTC(),
		Bots:        bots,
	}
}

// NewRunID returns a compact identifier derived from now.
func NewRunID(now time.Time) string {
	return "run_" + string(base62.FormatUint(uint64(now.UnixNano())))
}

// Run plays the whole series synchronously and returns the final ranking.
// onTick, when set, sees every tick's result. Cancelling ctx stops between ticks.
func (s *Simulator) Run(ctx context.Context, competitors []*Competitor, series []models.PricePoint, onTick func(index int, res TickResult)) ([]models.LeaderboardRow, error) {
	var last TickResult
	for i := range series {
		if err := ctx.Err(); err != nil {
			return last.Leaderboard, err
		}
		last = s.AdvanceTick(competitors, series, i)
		if onTick != nil {
			onTick(i, last)
		}
	}
	return last.Leaderboard, nil
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
