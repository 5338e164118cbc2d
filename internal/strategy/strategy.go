// Package strategy holds the rule-based decision engine the arena bots run.
// Rules are plain data tagged by archetype; Evaluate dispatches on the tag.
package strategy

import "fmt"

// Archetype tags the decision table a Rule runs.
type Archetype string

const (
	TrendBreakout     Archetype = "trend_breakout"
	EMAMomentum       Archetype = "ema_momentum"
	MeanReversion     Archetype = "mean_reversion"
	VolatilityImpulse Archetype = "volatility_impulse"
	RiskGuard         Archetype = "risk_guard"
)

// Action is what a rule asks the simulator to do this tick.
type Action string

const (
	Hold Action = "HOLD"
	Buy  Action = "BUY"
	Sell Action = "SELL"
)

// Decision is the outcome of one evaluation. For Buy, Portion is a fraction
// of cash; for Sell, a fraction of the position.
type Decision struct {
	Action  Action
	Portion float64
	Reason  string
}

var hold = Decision{Action: Hold}

// Scratch is the per-bot memory carried between ticks. It belongs to exactly
// one competitor and is reset with the session.
type Scratch struct {
	EntryPrice   float64 `json:"entryPrice"`
	CooldownBars int     `json:"cooldownBars"`
	HoldBars     int     `json:"holdBars"`
}

// Context is the read-only market view plus the bot's own scratch record.
type Context struct {
	Closes   []float64 // closes up to and including the current tick
	Price    float64
	Cash     float64
	Position float64
	Scratch  *Scratch
}

// Decider maps a context to a decision.
type Decider interface {
	Decide(ctx *Context) Decision
}

// Rule is a parameterized archetype. Only the fields its Kind reads matter.
type Rule struct {
	Kind  Archetype `json:"kind"`
	Label string    `json:"label"` // short name used in reasons

	Entry    int `json:"entry,omitempty"` // breakout channel periods
	Exit     int `json:"exit,omitempty"`
	Fast     int `json:"fast,omitempty"` // EMA periods
	Slow     int `json:"slow,omitempty"`
	Lookback int `json:"lookback,omitempty"`

	EntryRSI   float64 `json:"entryRsi,omitempty"`
	ExitRSI    float64 `json:"exitRsi,omitempty"`
	ZEntry     float64 `json:"zEntry,omitempty"`
	ROCEntry   float64 `json:"rocEntry,omitempty"`
	StopLoss   float64 `json:"stopLoss,omitempty"`
	TakeProfit float64 `json:"takeProfit,omitempty"`

	Portion  float64 `json:"portion"`
	Cooldown int     `json:"cooldown,omitempty"`
}

// Decide implements Decider.
func (r Rule) Decide(ctx *Context) Decision {
	return Evaluate(r, ctx)
}

func (r Rule) String() string {
	return fmt.Sprintf("%s(%s)", r.Kind, r.Label)
}

// Evaluate runs rule against ctx. A nil scratch record is replaced by a
// throwaway one, so counters only persist when the caller owns a record.
func Evaluate(rule Rule, ctx *Context) Decision {
	if ctx == nil {
		return hold
	}
	if ctx.Scratch == nil {
		ctx.Scratch = &Scratch{}
	}
	switch rule.Kind {
	case TrendBreakout:
		return trendBreakout(rule, ctx)
	case EMAMomentum:
		return emaMomentum(rule, ctx)
	case MeanReversion:
		return meanReversion(rule, ctx)
	case VolatilityImpulse:
		return volatilityImpulse(rule, ctx)
	case RiskGuard:
		return riskGuard(rule, ctx)
	default:
		return hold
	}
}
