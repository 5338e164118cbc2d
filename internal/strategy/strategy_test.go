package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linear(n int, from, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = from + step*float64(i)
	}
	return out
}

func ctxFor(closes []float64, position float64, s *Scratch) *Context {
	return &Context{Closes: closes, Price: closes[len(closes)-1], Cash: 10000, Position: position, Scratch: s}
}

func TestShortHistoryHolds(t *testing.T) {
	for _, bot := range Catalog() {
		s := &Scratch{}
		d := Evaluate(bot.Rule, ctxFor(linear(5, 100, 1), 0, s))
		assert.Equal(t, Hold, d.Action, bot.ID)
	}
}

func TestTrendBreakoutEntryAndCooldown(t *testing.T) {
	rule := breakout("Livermore", 20, 10, 0.58, 14)
	closes := append(linear(30, 100, 1), 140)
	s := &Scratch{}

	d := Evaluate(rule, ctxFor(closes, 0, s))
	require.Equal(t, Buy, d.Action)
	assert.Equal(t, 0.58, d.Portion)
	assert.Contains(t, d.Reason, "Livermore")
	assert.Equal(t, 14, s.CooldownBars)

	// Flat again right after the entry: the cooldown blocks and counts down.
	d = Evaluate(rule, ctxFor(closes, 0, s))
	assert.Equal(t, Hold, d.Action)
	assert.Equal(t, 13, s.CooldownBars)
}

func TestTrendBreakoutExitsBelowChannel(t *testing.T) {
	rule := breakout("Turtle", 20, 10, 0.7, 20)
	closes := append(linear(30, 100, 1), 90)
	s := &Scratch{EntryPrice: 120}

	d := Evaluate(rule, ctxFor(closes, 1.5, s))
	assert.Equal(t, Sell, d.Action)
	assert.Equal(t, 1.0, d.Portion)
	assert.Equal(t, 1, s.HoldBars)
}

func TestEMAMomentumEntersUptrend(t *testing.T) {
	rule := momentum("Schwartz", 8, 21, 0.55, 52, 45, 10)
	d := Evaluate(rule, ctxFor(linear(40, 100, 1), 0, &Scratch{}))
	assert.Equal(t, Buy, d.Action)
	assert.Equal(t, 0.55, d.Portion)
}

func TestEMAMomentumExitsOnReversal(t *testing.T) {
	rule := momentum("Kovner", 9, 30, 0.5, 51, 44, 9)
	d := Evaluate(rule, ctxFor(linear(40, 200, -1), 2, &Scratch{}))
	assert.Equal(t, Sell, d.Action)
}

func TestMeanReversionBuysOversold(t *testing.T) {
	rule := reversion("Williams", 31, 60, 0.6, -1.2, 8)
	d := Evaluate(rule, ctxFor(linear(40, 200, -1), 0, &Scratch{}))
	assert.Equal(t, Buy, d.Action)
	assert.Equal(t, 0.6, d.Portion)
}

func TestMeanReversionHoldCap(t *testing.T) {
	rule := reversion("Icahn", 29, 57, 0.48, -1.05, 12)
	// Falling closes keep RSI low and price under the midline, so only the cap fires.
	s := &Scratch{HoldBars: maxHoldReversal}
	d := Evaluate(rule, ctxFor(linear(40, 200, -1), 1, s))
	assert.Equal(t, Sell, d.Action)
	assert.Equal(t, maxHoldReversal+1, s.HoldBars)
}

func TestVolatilityImpulseBreakout(t *testing.T) {
	rule := impulse("Darvas", 20, 0.55, 0.54, 10)
	closes := append(linear(39, 100, 0.1), 110)
	s := &Scratch{}

	d := Evaluate(rule, ctxFor(closes, 0, s))
	assert.Equal(t, Buy, d.Action)
	assert.Equal(t, 10, s.CooldownBars)

	// Not enough bars for the box: nothing is touched.
	s = &Scratch{HoldBars: 3}
	d = Evaluate(rule, ctxFor(closes[:25], 1, s))
	assert.Equal(t, Hold, d.Action)
	assert.Equal(t, 3, s.HoldBars)
}

func zigzag(n int) []float64 {
	out := make([]float64, n)
	out[0] = 100
	for i := 1; i < n; i++ {
		if i%2 == 1 {
			out[i] = out[i-1] + 2
		} else {
			out[i] = out[i-1] - 1
		}
	}
	return out
}

func TestRiskGuardEntryBand(t *testing.T) {
	rule := guard("Tudor", 0.42, 0.02, 0.06)
	d := Evaluate(rule, ctxFor(zigzag(60), 0, &Scratch{}))
	require.Equal(t, Buy, d.Action)
	assert.Equal(t, 0.42, d.Portion)
	assert.Contains(t, d.Reason, "Tudor")
}

func TestRiskGuardStopLossAndTakeProfit(t *testing.T) {
	rule := guard("Basso", 0.35, 0.015, 0.045)
	closes := zigzag(60)
	price := closes[len(closes)-1]

	stop := &Scratch{EntryPrice: price * 1.03}
	assert.Equal(t, Sell, Evaluate(rule, ctxFor(closes, 1, stop)).Action)

	take := &Scratch{EntryPrice: price / 1.05}
	assert.Equal(t, Sell, Evaluate(rule, ctxFor(closes, 1, take)).Action)

	inside := &Scratch{EntryPrice: price}
	assert.Equal(t, Hold, Evaluate(rule, ctxFor(closes, 1, inside)).Action)
}

func TestRiskGuardCountsHoldBeforeIndicators(t *testing.T) {
	s := &Scratch{}
	Evaluate(guard("Ackman", 0.5, 0.022, 0.08), ctxFor(linear(5, 100, 1), 1, s))
	assert.Equal(t, 1, s.HoldBars)
}

func TestEvaluateIsPureOverInputs(t *testing.T) {
	closes := linear(40, 100, 1)
	snapshot := append([]float64(nil), closes...)
	for _, bot := range Catalog() {
		Evaluate(bot.Rule, ctxFor(closes, 0, &Scratch{}))
	}
	assert.Equal(t, snapshot, closes)
}

func TestUnknownArchetypeHolds(t *testing.T) {
	d := Evaluate(Rule{Kind: "nope"}, ctxFor(linear(60, 100, 1), 0, nil))
	assert.Equal(t, Hold, d.Action)
}

func TestCatalogAndRegistry(t *testing.T) {
	bots := Catalog()
	require.Len(t, bots, 20)

	reg := DefaultRegistry()
	assert.Len(t, reg.Bots(), 20)

	kinds := map[Archetype]int{}
	for _, b := range bots {
		got, ok := reg.Lookup(b.ID)
		require.True(t, ok, b.ID)
		assert.Equal(t, b, got)
		assert.NotEmpty(t, b.Inspiration)
		assert.Greater(t, b.Rule.Portion, 0.0)
		kinds[b.Rule.Kind]++
	}
	assert.Len(t, kinds, 5)

	_, ok := reg.Lookup("missing")
	assert.False(t, ok)

	dup := NewRegistry([]Bot{bots[0], bots[0]})
	assert.Len(t, dup.Bots(), 1)
}
