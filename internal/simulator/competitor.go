package simulator

import (
	"bot-arena-go/internal/exchange"
	"bot-arena-go/internal/logger"
	"bot-arena-go/internal/models"
	"bot-arena-go/internal/strategy"
)

// Competitor is the live trading state of one bot during a session. The
// decision rule is not serialized; Rehydrate re-links it by id.
type Competitor struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"desc"`
	Inspiration string `json:"inspiration"`

	exchange.Account

	Trades           []models.Order   `json:"trades"`
	Peak             float64          `json:"peak"`
	Scratch          strategy.Scratch `json:"meta"`
	LastAction       strategy.Action  `json:"lastAction"`
	LastActionReason string           `json:"lastActionReason"`
	LastActionTick   int              `json:"lastActionTick"`

	decider strategy.Decider
}

const neverActed = -999

// NewCompetitor creates a fresh competitor for bot holding capital in cash.
func NewCompetitor(bot strategy.Bot, capital float64) *Competitor {
	return &Competitor{
		ID:               bot.ID,
		Name:             bot.Name,
		Description:      bot.Description,
		Inspiration:      bot.Inspiration,
		Account:          exchange.Account{Cash: capital},
		Trades:           []models.Order{},
		Peak:             capital,
		LastAction:       strategy.Hold,
		LastActionReason: "waiting",
		LastActionTick:   neverActed,
		decider:          bot.Rule,
	}
}

// SetDecider replaces the rule the competitor trades with.
func (c *Competitor) SetDecider(d strategy.Decider) {
	c.decider = d
}

// Decider returns the attached rule, nil for a competitor not yet rehydrated.
func (c *Competitor) Decider() strategy.Decider {
	return c.decider
}

// Clone returns a deep copy that shares only the decision rule.
func (c *Competitor) Clone() *Competitor {
	cp := *c
	cp.Trades = append([]models.Order(nil), c.Trades...)
	return &cp
}

// Rehydrate re-attaches decision rules to restored competitors by bot id.
// Competitors whose id is not registered are dropped.
func Rehydrate(restored []*Competitor, reg *strategy.Registry) []*Competitor {
	out := make([]*Competitor, 0, len(restored))
	for _, c := range restored {
		if c == nil {
			continue
		}
		bot, ok := reg.Lookup(c.ID)
		if !ok {
			logger.S().Warnf("Dropping restored competitor %q: no such bot in the catalog.", c.ID)
			continue
		}
		c.decider = bot.Rule
		if c.Trades == nil {
			c.Trades = []models.Order{}
		}
		out = append(out, c)
	}
	return out
}
