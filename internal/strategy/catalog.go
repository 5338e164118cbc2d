package strategy

// Bot is a catalog entry: identity plus the rule it trades with.
type Bot struct {
	ID          string
	Name        string
	Description string
	Inspiration string
	Rule        Rule
}

func breakout(label string, entry, exit int, portion float64, cool int) Rule {
	return Rule{Kind: TrendBreakout, Label: label, Entry: entry, Exit: exit, Portion: portion, Cooldown: cool}
}

func momentum(label string, fast, slow int, portion, inRSI, outRSI float64, cool int) Rule {
	return Rule{Kind: EMAMomentum, Label: label, Fast: fast, Slow: slow, Portion: portion, EntryRSI: inRSI, ExitRSI: outRSI, Cooldown: cool}
}

func reversion(label string, inRSI, outRSI, portion, zIn float64, cool int) Rule {
	return Rule{Kind: MeanReversion, Label: label, EntryRSI: inRSI, ExitRSI: outRSI, Portion: portion, ZEntry: zIn, Cooldown: cool}
}

func impulse(label string, lookback int, rocIn, portion float64, cool int) Rule {
	return Rule{Kind: VolatilityImpulse, Label: label, Lookback: lookback, ROCEntry: rocIn, Portion: portion, Cooldown: cool}
}

func guard(label string, portion, stopLoss, takeProfit float64) Rule {
	return Rule{Kind: RiskGuard, Label: label, Portion: portion, StopLoss: stopLoss, TakeProfit: takeProfit}
}

var catalog = []Bot{
	{"livermore", "Livermore Breaker", "Catches strong breakouts above the highs, rides only the early leg of a trend and leaves fast.", "Jesse Livermore", breakout("Livermore", 20, 10, 0.58, 14)},
	{"dennis", "Dennis Turtle", "Trades long breakouts and holds big trends, filtering out noise with a low trade count.", "Richard Dennis", breakout("Turtle", 55, 20, 0.7, 20)},
	{"seykota", "Seykota System", "Follows medium trends mechanically and caps holding time to avoid overstaying.", "Ed Seykota", breakout("Seykota", 34, 14, 0.62, 16)},
	{"henry", "Henry CTA", "CTA-style follower of gentle trends that steps aside when volatility overheats.", "John W. Henry", breakout("Henry", 40, 15, 0.6, 18)},

	{"schwartz", "Schwartz Swing", "Enters only when short EMAs align with RSI and works short swings at a quick tempo.", "Marty Schwartz", momentum("Schwartz", 8, 21, 0.55, 52, 45, 10)},
	{"oneil", "O'Neil Momentum", "Buys relative strength without chasing tops, aiming for persistent advances.", "William O'Neil", momentum("O'Neil", 12, 26, 0.63, 55, 47, 12)},
	{"kovner", "Kovner Balance", "Balances momentum and defense to follow medium-strength trends steadily.", "Bruce Kovner", momentum("Kovner", 9, 30, 0.5, 51, 44, 9)},
	{"elder", "Elder Triple Screen", "Takes trend signals only after an oscillator filter, avoiding overbought entries.", "Alexander Elder", momentum("Elder", 13, 34, 0.52, 53, 46, 11)},

	{"williams_l", "Larry Williams", "Buys the snap-back after a sharp drop and exits quickly once the bounce pays.", "Larry Williams", reversion("Williams", 31, 60, 0.6, -1.2, 8)},
	{"icahn", "Icahn Reversal", "Conservative mean reverter fading market overreactions.", "Carl Icahn", reversion("Icahn", 29, 57, 0.48, -1.05, 12)},
	{"unger", "Unger System", "Rule-based counter-trend entries with strict holding limits to keep signal quality.", "Andrea Unger", reversion("Unger", 30, 58, 0.53, -1.1, 10)},
	{"tepper", "Tepper Dip Buyer", "Aggressively buys panic sell-offs and harvests the rebound.", "David Tepper", reversion("Tepper", 34, 62, 0.66, -1.4, 14)},

	{"soros", "Soros Reflexive", "Joins only when volatility expands and direction accelerates together.", "George Soros", impulse("Soros", 26, 0.75, 0.58, 12)},
	{"drucken", "Druckenmiller", "Concentrates on high-conviction setups and cuts quickly when they fail.", "Stanley Druckenmiller", impulse("Druckenmiller", 30, 0.9, 0.64, 16)},
	{"marcus", "Marcus Momentum", "Jumps on early breakout signals to widen the profitable stretch.", "Michael Marcus", impulse("Marcus", 18, 0.5, 0.57, 8)},
	{"darvas", "Darvas Box", "Follows breaks above the box top and bails out on a break of the box floor.", "Nicolas Darvas", impulse("Darvas", 22, 0.55, 0.54, 10)},

	{"ptj", "Tudor Risk Guard", "Puts loss limits first and sizes small to stay in the game.", "Paul Tudor Jones", guard("Tudor", 0.42, 0.02, 0.06)},
	{"basso", "Basso Risk Engine", "Low-volatility operation with tight loss control to keep the equity curve smooth.", "Tom Basso", guard("Basso", 0.35, 0.015, 0.045)},
	{"ackman", "Ackman Conviction", "Enters only when every condition lines up and waits patiently otherwise.", "Bill Ackman", guard("Ackman", 0.5, 0.022, 0.08)},
	{"raschke", "Raschke ADX", "Confirms trend strength with an ADX proxy before attacking pullbacks.", "Linda B. Raschke", impulse("Raschke", 20, 0.6, 0.52, 9)},
}

// Catalog returns a copy of the fixed bot roster in display order.
func Catalog() []Bot {
	out := make([]Bot, len(catalog))
	copy(out, catalog)
	return out
}

// Registry indexes bots by id. It is immutable after construction.
type Registry struct {
	bots []Bot
	byID map[string]Bot
}

// NewRegistry indexes bots. Later duplicates of an id are ignored.
func NewRegistry(bots []Bot) *Registry {
	r := &Registry{byID: make(map[string]Bot, len(bots))}
	for _, b := range bots {
		if _, dup := r.byID[b.ID]; dup {
			continue
		}
		r.byID[b.ID] = b
		r.bots = append(r.bots, b)
	}
	return r
}

// DefaultRegistry indexes Catalog().
func DefaultRegistry() *Registry {
	return NewRegistry(Catalog())
}

// Lookup returns the bot registered under id.
func (r *Registry) Lookup(id string) (Bot, bool) {
	b, ok := r.byID[id]
	return b, ok
}

// Bots returns the registered bots in registration order.
func (r *Registry) Bots() []Bot {
	out := make([]Bot, len(r.bots))
	copy(out, r.bots)
	return out
}
