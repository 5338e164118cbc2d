package strategy

import (
	"bot-arena-go/internal/indicator"
	"math"
)

const rsiPeriod = 14

// Holding caps in ticks, per archetype.
const (
	maxHoldBreakout = 180
	maxHoldMomentum = 150
	maxHoldReversal = 90
	maxHoldImpulse  = 120
	maxHoldGuard    = 130
)

// coolingDown ticks the cooldown counter and reports whether entries are
// still blocked.
func coolingDown(s *Scratch) bool {
	s.CooldownBars = max(0, s.CooldownBars-1)
	return s.CooldownBars > 0
}

func holding(s *Scratch, hasPosition bool) int {
	if hasPosition {
		s.HoldBars++
	} else {
		s.HoldBars = 0
	}
	return s.HoldBars
}

func enter(rule Rule, ctx *Context, reason string) Decision {
	ctx.Scratch.CooldownBars = rule.Cooldown
	return Decision{Action: Buy, Portion: rule.Portion, Reason: rule.Label + " " + reason}
}

func exit(rule Rule, reason string) Decision {
	return Decision{Action: Sell, Portion: 1, Reason: rule.Label + " " + reason}
}

func trendBreakout(rule Rule, ctx *Context) Decision {
	entry, ok1 := indicator.Donchian(ctx.Closes, rule.Entry)
	exitCh, ok2 := indicator.Donchian(ctx.Closes, rule.Exit)
	r, ok3 := indicator.RSI(ctx.Closes, rsiPeriod)
	if !ok1 || !ok2 || !ok3 {
		return hold
	}
	held := holding(ctx.Scratch, ctx.Position > 0)

	if ctx.Position == 0 {
		if coolingDown(ctx.Scratch) {
			return hold
		}
		if ctx.Price > entry.High*1.001 && r > 48 {
			return enter(rule, ctx, "breakout entry")
		}
		return hold
	}
	if ctx.Price < exitCh.Low || r < 42 || held > maxHoldBreakout {
		return exit(rule, "trend exit")
	}
	return hold
}

func emaMomentum(rule Rule, ctx *Context) Decision {
	fast, ok1 := indicator.EMA(ctx.Closes, rule.Fast)
	slow, ok2 := indicator.EMA(ctx.Closes, rule.Slow)
	r, ok3 := indicator.RSI(ctx.Closes, rsiPeriod)
	bb, ok4 := indicator.Bollinger(ctx.Closes, 20, 2)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return hold
	}
	held := holding(ctx.Scratch, ctx.Position > 0)

	if ctx.Position == 0 {
		if coolingDown(ctx.Scratch) {
			return hold
		}
		if fast > slow && r > rule.EntryRSI && ctx.Price < bb.Upper*0.997 {
			return enter(rule, ctx, "momentum entry")
		}
		return hold
	}
	if fast < slow || r < rule.ExitRSI || held > maxHoldMomentum {
		return exit(rule, "momentum faded")
	}
	return hold
}

func meanReversion(rule Rule, ctx *Context) Decision {
	r, ok1 := indicator.RSI(ctx.Closes, rsiPeriod)
	bb, ok2 := indicator.Bollinger(ctx.Closes, 20, 2)
	z, ok3 := indicator.ZScore(ctx.Closes, 20)
	if !ok1 || !ok2 || !ok3 {
		return hold
	}
	held := holding(ctx.Scratch, ctx.Position > 0)

	if ctx.Position == 0 {
		if coolingDown(ctx.Scratch) {
			return hold
		}
		if (r < rule.EntryRSI && z < rule.ZEntry) || ctx.Price < bb.Lower {
			return enter(rule, ctx, "oversold bounce")
		}
		return hold
	}
	if r > rule.ExitRSI || ctx.Price > bb.Mid || held > maxHoldReversal {
		return exit(rule, "reverted to mean")
	}
	return hold
}

func volatilityImpulse(rule Rule, ctx *Context) Decision {
	if len(ctx.Closes) < rule.Lookback+10 {
		return hold
	}
	box, ok1 := indicator.RecentRange(ctx.Closes, rule.Lookback)
	e, ok2 := indicator.EMA(ctx.Closes, 21)
	roc, ok3 := indicator.RateOfChange(ctx.Closes, 5)
	adx, ok4 := indicator.TrendStrength(ctx.Closes, 14)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return hold
	}
	held := holding(ctx.Scratch, ctx.Position > 0)

	if ctx.Position == 0 {
		if coolingDown(ctx.Scratch) {
			return hold
		}
		if ctx.Price > box.High*1.002 && ctx.Price > e && roc > rule.ROCEntry && adx > 20 {
			return enter(rule, ctx, "volatility expansion")
		}
		return hold
	}
	if ctx.Price < box.Low*0.998 || ctx.Price < e || held > maxHoldImpulse {
		return exit(rule, "breakout failed")
	}
	return hold
}

// riskGuard counts holding ticks before its indicators are ready and never
// cools down between trades.
func riskGuard(rule Rule, ctx *Context) Decision {
	held := holding(ctx.Scratch, ctx.Position > 0)
	e10, ok1 := indicator.EMA(ctx.Closes, 10)
	e50, ok2 := indicator.EMA(ctx.Closes, 50)
	r, ok3 := indicator.RSI(ctx.Closes, rsiPeriod)
	if !ok1 || !ok2 || !ok3 {
		return hold
	}

	if ctx.Position == 0 {
		if ctx.Price > e50 && ctx.Price > e10 && r > 50 && r < 68 {
			return Decision{Action: Buy, Portion: rule.Portion, Reason: rule.Label + " guarded entry"}
		}
		return hold
	}
	entry := ctx.Scratch.EntryPrice
	if entry == 0 {
		entry = ctx.Price
	}
	pnl := (ctx.Price - entry) / math.Max(1, entry)
	if pnl <= -rule.StopLoss || pnl >= rule.TakeProfit || r < 44 || held > maxHoldGuard {
		return exit(rule, "risk exit")
	}
	return hold
}
