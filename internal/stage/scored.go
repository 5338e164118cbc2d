package stage

import (
	"bot-arena-go/internal/indicator"
	"bot-arena-go/internal/models"
	"fmt"
	"math"
	"sort"
	"time"
)

// Options tunes regime-scored selection.
type Options struct {
	Window time.Duration // width of every candidate window
	Step   time.Duration // slide between candidate starts
	Gap    time.Duration // minimum separation between picked windows
	Target int
}

// DefaultOptions returns the settings used by the "scored" stage mode.
func DefaultOptions() Options {
	return Options{Window: Span, Step: 7 * 24 * time.Hour, Gap: 21 * 24 * time.Hour, Target: 5}
}

type features struct {
	ret       float64 // net return over the window
	vol       float64 // stdev of step returns
	drawdown  float64 // deepest peak-to-trough fraction
	rebound   float64 // recovery from the trough to the close
	breakout  float64 // second-half move relative to the first-half range
	start     time.Time
	end       time.Time
	startDate string
}

type scorer struct {
	regime string
	title  string
	score  func(f features) float64
}

var scorers = []scorer{
	{"uptrend", "Steady uptrend", func(f features) float64 { return f.ret - f.drawdown*0.5 }},
	{"downtrend", "Grinding downtrend", func(f features) float64 { return -f.ret - f.rebound*0.5 }},
	{"crash_rebound", "Crash and rebound", func(f features) float64 { return math.Min(f.drawdown, f.rebound) }},
	{"breakout", "Range breakout", func(f features) float64 { return f.breakout }},
	{"chaos", "High chaos", func(f features) float64 { return f.vol - math.Abs(f.ret)*0.1 }},
}

// Scored slides a window across history, scores every candidate under five
// regime shapes and greedily keeps the best separated window per regime.
// Missing slots are backfilled with evenly spaced windows. A history too
// short to host opts.Target separated windows yields no stages.
func Scored(history []models.PricePoint, opts Options) []models.Stage {
	first, last, ok := bounds(history)
	if !ok || opts.Target <= 0 || opts.Window <= 0 || opts.Step <= 0 {
		return nil
	}
	need := time.Duration(opts.Target)*2*(opts.Window+opts.Gap) + opts.Window
	if last.Sub(first) < need {
		return nil
	}

	var candidates []features
	for start := first; !start.Add(opts.Window).After(last); start = start.Add(opts.Step) {
		if f, ok := measure(history, start, start.Add(opts.Window)); ok {
			candidates = append(candidates, f)
		}
	}

	var picked []models.Stage
	for _, s := range scorers {
		if len(picked) == opts.Target {
			break
		}
		ranked := make([]features, len(candidates))
		copy(ranked, candidates)
		sort.SliceStable(ranked, func(i, j int) bool { return s.score(ranked[i]) > s.score(ranked[j]) })
		for _, f := range ranked {
			if separated(picked, f.start, f.end, opts.Gap) {
				picked = append(picked, scoredStage(s.regime, s.title, f))
				break
			}
		}
	}

	fill := func(start time.Time) {
		if len(picked) >= opts.Target {
			return
		}
		end := start.Add(opts.Window)
		if separated(picked, start, end, opts.Gap) {
			if f, ok := measure(history, start, end); ok {
				picked = append(picked, scoredStage("backfill", "Market sample", f))
			}
		}
	}
	room := last.Sub(first) - opts.Window
	for k := 0; k < opts.Target; k++ {
		offset := time.Duration(0)
		if opts.Target > 1 {
			offset = room * time.Duration(k) / time.Duration(opts.Target-1)
		}
		fill(first.Add(offset))
	}
	for _, f := range candidates {
		fill(f.start)
	}

	sort.SliceStable(picked, func(i, j int) bool { return picked[i].Start.Before(picked[j].Start) })
	return picked
}

func separated(picked []models.Stage, start, end time.Time, gap time.Duration) bool {
	for _, p := range picked {
		if !start.Before(p.End.Add(gap)) || !p.Start.Before(end.Add(gap)) {
			continue
		}
		return false
	}
	return true
}

func measure(history []models.PricePoint, start, end time.Time) (features, bool) {
	var closes []float64
	for _, p := range history {
		if p.Time.Before(start) {
			continue
		}
		if p.Time.After(end) {
			break
		}
		closes = append(closes, p.Price)
	}
	if len(closes) < 5 {
		return features{}, false
	}

	first, last := closes[0], closes[len(closes)-1]
	f := features{start: start, end: end, startDate: start.UTC().Format("20060102")}
	f.ret = last/first - 1

	steps := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		steps = append(steps, closes[i]/closes[i-1]-1)
	}
	f.vol = indicator.Stdev(steps)

	peak, trough := closes[0], closes[0]
	for _, c := range closes {
		peak = math.Max(peak, c)
		if dd := (peak - c) / peak; dd > f.drawdown {
			f.drawdown = dd
		}
		trough = math.Min(trough, c)
	}
	f.rebound = last/trough - 1

	half := len(closes) / 2
	lo, hi := closes[0], closes[0]
	for _, c := range closes[:half] {
		lo, hi = math.Min(lo, c), math.Max(hi, c)
	}
	firstRange := (hi - lo) / indicator.Mean(closes[:half])
	secondMove := math.Abs(last-closes[half]) / closes[half]
	f.breakout = secondMove / math.Max(firstRange, 1e-6)
	return f, true
}

func scoredStage(regime, title string, f features) models.Stage {
	period := formatPeriod(f.start, f.end)
	return models.Stage{
		ID:           fmt.Sprintf("scored_%s_%s", regime, f.startDate),
		Regime:       regime,
		Title:        title,
		Period:       period,
		TurningPoint: fmt.Sprintf("net %+.1f%%, drawdown %.1f%%", f.ret*100, f.drawdown*100),
		Description:  fmt.Sprintf("%s window chosen from the loaded history.", title),
		Start:        f.start,
		End:          f.end,
		Summary:      period,
	}
}
