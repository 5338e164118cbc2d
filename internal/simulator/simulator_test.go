package simulator

import (
	"bot-arena-go/internal/exchange"
	"bot-arena-go/internal/history"
	"bot-arena-go/internal/models"
	"bot-arena-go/internal/stage"
	"bot-arena-go/internal/strategy"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scripted returns a fixed decision per tick index.
type scripted map[int]strategy.Decision

func (s scripted) Decide(ctx *strategy.Context) strategy.Decision {
	if d, ok := s[len(ctx.Closes)-1]; ok {
		return d
	}
	return strategy.Decision{Action: strategy.Hold}
}

func newTestSimulator() *Simulator {
	ex := exchange.NewPaperExchange(&models.Config{FeeRate: 0.001, MinNotionalValue: 10})
	return New(ex, 10000, nil)
}

func seriesOf(prices ...float64) []models.PricePoint {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.PricePoint, len(prices))
	for i, p := range prices {
		out[i] = models.PricePoint{Time: t0.Add(time.Duration(i) * stage.SeriesStep), Price: p}
	}
	return out
}

func TestBuyThenSellExactFigures(t *testing.T) {
	sim := newTestSimulator()
	c := NewCompetitor(strategy.Bot{ID: "script", Name: "Script"}, sim.InitialCapital())
	c.SetDecider(scripted{
		1: {Action: strategy.Buy, Portion: 0.5, Reason: "buy half"},
		2: {Action: strategy.Sell, Portion: 1, Reason: "sell all"},
	})
	comps := []*Competitor{c}
	series := seriesOf(100, 110, 120)

	res := sim.AdvanceTick(comps, series, 0)
	assert.Empty(t, res.Orders)
	assert.Equal(t, 10000.0, c.Cash)

	res = sim.AdvanceTick(comps, series, 1)
	require.Len(t, res.Orders, 1)
	qty := (5000.0 - 5000.0*0.001) / 110
	assert.Equal(t, 5000.0, c.Cash)
	assert.Equal(t, qty, c.Position)
	assert.Equal(t, 4995.0/110, c.Position)
	assert.Equal(t, 110.0, c.Scratch.EntryPrice)
	assert.Equal(t, strategy.Buy, c.LastAction)
	assert.Equal(t, 1, c.LastActionTick)
	assert.Equal(t, models.TickOrder{BotID: "script", BotName: "Script", Order: c.Trades[0]}, res.Orders[0])

	res = sim.AdvanceTick(comps, series, 2)
	require.Len(t, res.Orders, 1)
	gross := qty * 120
	assert.Equal(t, 5000.0+(gross-gross*0.001), c.Cash)
	assert.Equal(t, 0.0, c.Position)
	assert.Equal(t, 0.0, c.Scratch.EntryPrice)
	assert.Len(t, c.Trades, 2)
	assert.Equal(t, series[2].Time, c.Trades[1].Time)
	assert.Equal(t, "sell all", c.LastActionReason)

	require.Len(t, res.Leaderboard, 1)
	assert.InDelta(t, (c.Cash-10000)/10000*100, res.Leaderboard[0].ReturnPct, 1e-12)
}

func TestEntryPriceAveragesLastTwoFills(t *testing.T) {
	sim := newTestSimulator()
	c := NewCompetitor(strategy.Bot{ID: "a"}, sim.InitialCapital())
	c.SetDecider(scripted{
		0: {Action: strategy.Buy, Portion: 0.2},
		1: {Action: strategy.Buy, Portion: 0.2},
		2: {Action: strategy.Buy, Portion: 0.2},
	})
	series := seriesOf(100, 200, 400)
	for i := range series {
		sim.AdvanceTick([]*Competitor{c}, series, i)
	}
	assert.Equal(t, 275.0, c.Scratch.EntryPrice) // ((100+200)/2 + 400) / 2
}

func TestSkippedOrderLeavesNoTrace(t *testing.T) {
	sim := newTestSimulator()
	c := NewCompetitor(strategy.Bot{ID: "a"}, sim.InitialCapital())
	c.SetDecider(scripted{0: {Action: strategy.Sell, Portion: 1, Reason: "nothing to sell"}})

	res := sim.AdvanceTick([]*Competitor{c}, seriesOf(100), 0)
	assert.Empty(t, res.Orders)
	assert.Empty(t, c.Trades)
	assert.Equal(t, strategy.Hold, c.LastAction)
	assert.Equal(t, neverActed, c.LastActionTick)
}

func TestLeaderboardRanksByReturnAndTracksDrawdown(t *testing.T) {
	sim := newTestSimulator()
	up := NewCompetitor(strategy.Bot{ID: "up", Name: "Up"}, sim.InitialCapital())
	up.SetDecider(scripted{0: {Action: strategy.Buy, Portion: 1}})
	idle := NewCompetitor(strategy.Bot{ID: "idle", Name: "Idle"}, sim.InitialCapital())
	idle.SetDecider(scripted{})
	comps := []*Competitor{idle, up}

	series := seriesOf(100, 150, 120)
	var res TickResult
	for i := range series {
		res = sim.AdvanceTick(comps, series, i)
	}
	require.Len(t, res.Leaderboard, 2)
	assert.Equal(t, "up", res.Leaderboard[0].ID)
	assert.Equal(t, "idle", res.Leaderboard[1].ID)

	row := res.Leaderboard[0]
	assert.Equal(t, up.Position*150, up.Peak)
	assert.InDelta(t, (up.Peak-row.Equity)/up.Peak*100, row.DrawdownPct, 1e-9)
	assert.InDelta(t, 20.0, row.DrawdownPct, 1e-9)
	assert.Equal(t, 0.0, res.Leaderboard[1].DrawdownPct)
	assert.Equal(t, 1, row.Trades)
}

func TestRunResultRoundsFigures(t *testing.T) {
	board := []models.LeaderboardRow{{ID: "a", Name: "A", Equity: 10123.456789, ReturnPct: 1.23456789, Trades: 3, DrawdownPct: 0.000049}}
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	res := BuildRunResult("run_x", "hist_2022_ftx", 4, board, at)
	assert.Equal(t, "run_x", res.RunID)
	assert.Equal(t, "hist_2022_ftx", res.StageID)
	assert.Equal(t, 4.0, res.Speed)
	assert.Equal(t, at, res.CompletedAt)
	require.Len(t, res.Bots, 1)
	assert.Equal(t, 10123.46, res.Bots[0].Equity)
	assert.Equal(t, 1.2346, res.Bots[0].ReturnPct)
	assert.Equal(t, 0.0, res.Bots[0].DrawdownPct)
}

func TestNewRunID(t *testing.T) {
	a := NewRunID(time.Unix(1700000000, 0))
	b := NewRunID(time.Unix(1700000001, 0))
	assert.True(t, strings.HasPrefix(a, "run_"))
	assert.NotEqual(t, a, b)
}

func TestRehydrateRelinksByID(t *testing.T) {
	sim := newTestSimulator()
	reg := strategy.DefaultRegistry()
	comps := sim.NewCompetitors(reg.Bots()[:3])
	comps[0].Cash = 1234.5
	comps[0].Position = 0.75
	comps[0].Scratch.HoldBars = 7

	raw, err := json.Marshal(append(comps, &Competitor{ID: "retired_bot"}))
	require.NoError(t, err)

	var restored []*Competitor
	require.NoError(t, json.Unmarshal(raw, &restored))
	for _, c := range restored {
		assert.Nil(t, c.Decider())
	}

	restored = Rehydrate(restored, reg)
	require.Len(t, restored, 3)
	for i, c := range restored {
		assert.Equal(t, comps[i].ID, c.ID)
		require.NotNil(t, c.Decider())
		bot, _ := reg.Lookup(c.ID)
		assert.Equal(t, bot.Rule, c.Decider())
	}
	assert.Equal(t, 1234.5, restored[0].Cash)
	assert.Equal(t, 0.75, restored[0].Position)
	assert.Equal(t, 7, restored[0].Scratch.HoldBars)
}

func TestRunKeepsBalancesNonNegative(t *testing.T) {
	hist := history.Synthesize(history.DefaultSeed)
	st, ok := stage.Find(stage.Templates(hist), "hist_2022_luna")
	require.True(t, ok)
	series := stage.BuildSeries(st, hist, 1)

	sim := newTestSimulator()
	comps := sim.NewCompetitors(strategy.Catalog())
	ticks := 0
	board, err := sim.Run(context.Background(), comps, series, func(i int, res TickResult) {
		ticks++
		for _, c := range comps {
			require.GreaterOrEqual(t, c.Cash, 0.0, "%s at %d", c.ID, i)
			require.GreaterOrEqual(t, c.Position, 0.0, "%s at %d", c.ID, i)
		}
		assert.Len(t, res.Leaderboard, len(comps))
	})
	require.NoError(t, err)
	assert.Equal(t, len(series), ticks)
	require.Len(t, board, 20)
	for i := 1; i < len(board); i++ {
		assert.GreaterOrEqual(t, board[i-1].ReturnPct, board[i].ReturnPct)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	sim := newTestSimulator()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := sim.Run(ctx, sim.NewCompetitors(strategy.Catalog()), seriesOf(1, 2, 3), nil)
	assert.ErrorIs(t, err, context.Canceled)
}
