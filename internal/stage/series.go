package stage

import (
	"bot-arena-go/internal/history"
	"bot-arena-go/internal/indicator"
	"bot-arena-go/internal/models"
	"math"
	"time"
)

// SeriesStep is the spacing of the fine series a run is played on.
const SeriesStep = 15 * time.Minute

const defaultFallbackPrice = 30000

// BuildSeries expands stage into a 15-minute path: daily anchors are linearly
// interpolated, then two sine micro-waves and seeded jitter are layered on top,
// both scaled by the local volatility. The same stage, history and seed always
// yield the same series.
func BuildSeries(st models.Stage, daily []models.PricePoint, seed uint32) []models.PricePoint {
	start, end := st.Start, st.End
	if end.Before(start) {
		return nil
	}

	var anchors []models.PricePoint
	for _, p := range daily {
		if !p.Time.Before(start.Add(-history.Day)) && !p.Time.After(end.Add(history.Day)) {
			anchors = append(anchors, p)
		}
	}

	lastPrice := float64(defaultFallbackPrice)
	if len(daily) > 0 && daily[len(daily)-1].Price > 0 {
		lastPrice = daily[len(daily)-1].Price
	}
	fallbackStart := nearestPrice(daily, start, lastPrice)
	fallbackEnd := nearestPrice(daily, end, fallbackStart)
	days := math.Max(1, math.Round(float64(end.Sub(start))/float64(history.Day)))
	fallbackNoise := baseNoise(fallbackStart, fallbackEnd, days)

	rnd := history.NewRand(uint32((start.UnixMilli()+end.UnixMilli())/1000) + seed)
	span := math.Max(1, float64(end.Sub(start).Milliseconds()))

	interpolate := func(ts time.Time) (float64, float64) {
		if len(anchors) < 2 {
			return fallbackStart, fallbackNoise
		}
		i := 0
		for i < len(anchors)-1 && anchors[i+1].Time.Before(ts) {
			i++
		}
		left := anchors[i]
		right := anchors[min(len(anchors)-1, i+1)]
		if left.Time.Equal(right.Time) {
			return left.Price, fallbackNoise
		}
		ratio := indicator.Clamp(float64(ts.Sub(left.Time))/float64(right.Time.Sub(left.Time)), 0, 1)
		base := left.Price + (right.Price-left.Price)*ratio
		legRet := math.Abs((right.Price - left.Price) / math.Max(1, left.Price))
		return base, indicator.Clamp(legRet*0.8+fallbackNoise*0.7, 0.0015, 0.025)
	}

	series := make([]models.PricePoint, 0, int(end.Sub(start)/SeriesStep)+1)
	for ts := start; !ts.After(end); ts = ts.Add(SeriesStep) {
		progress := float64(ts.Sub(start).Milliseconds()) / span
		anchor, noise := interpolate(ts)
		wave := 1 + math.Sin(progress*math.Pi*10)*noise + math.Sin(progress*math.Pi*34)*noise*0.6
		jitter := 1 + (rnd.Float64()-0.5)*noise*1.5
		series = append(series, models.PricePoint{Time: ts, Price: math.Max(history.MinPrice, anchor*wave*jitter)})
	}
	return series
}

// baseNoise derives the series-wide noise amplitude from the average daily move.
func baseNoise(startPrice, endPrice, days float64) float64 {
	daily := math.Abs((endPrice-startPrice)/math.Max(1, startPrice)) / math.Max(1, days)
	return indicator.Clamp(daily*2.2, 0.002, 0.02)
}

func nearestPrice(daily []models.PricePoint, ts time.Time, fallback float64) float64 {
	if len(daily) == 0 {
		return fallback
	}
	best := daily[0]
	bestDiff := absDuration(daily[0].Time.Sub(ts))
	for _, p := range daily[1:] {
		if d := absDuration(p.Time.Sub(ts)); d < bestDiff {
			best, bestDiff = p, d
		}
	}
	if best.Price == 0 {
		return fallback
	}
	return best.Price
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
