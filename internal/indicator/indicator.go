// Package indicator implements the technical indicators the strategies read.
//
// Every function is pure over its input slice. When the slice is shorter
// than the indicator needs, the boolean result is false and the numeric
// result must be ignored: "not available" is never reported as zero.
package indicator

import "math"

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

// Mean is the arithmetic mean of values. It returns 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Stdev is the population standard deviation of values.
func Stdev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := Mean(values)
	var acc float64
	for _, v := range values {
		acc += (v - m) * (v - m)
	}
	return math.Sqrt(acc / float64(len(values)))
}

// EMA is the exponential moving average of series, seeded with the simple
// average of the first period values.
func EMA(series []float64, period int) (float64, bool) {
	if period <= 0 || len(series) < period {
		return 0, false
	}
	k := 2 / float64(period+1)
	v := Mean(series[:period])
	for _, x := range series[period:] {
		v = x*k + v*(1-k)
	}
	return v, true
}

// RSI is the relative strength index over the trailing period deltas.
// It is 100 when the window holds no losses.
func RSI(series []float64, period int) (float64, bool) {
	if period <= 0 || len(series) <= period {
		return 0, false
	}
	var gain, loss float64
	for i := len(series) - period; i < len(series); i++ {
		d := series[i] - series[i-1]
		if d >= 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	if loss == 0 {
		return 100, true
	}
	rs := gain / loss
	return 100 - 100/(1+rs), true
}

// Bands is a Bollinger band triple.
type Bands struct {
	Mid   float64
	Upper float64
	Lower float64
}

// Bollinger returns mean ± mult standard deviations over the trailing period.
func Bollinger(series []float64, period int, mult float64) (Bands, bool) {
	if period <= 0 || len(series) < period {
		return Bands{}, false
	}
	window := series[len(series)-period:]
	m := Mean(window)
	sd := Stdev(window)
	return Bands{Mid: m, Upper: m + sd*mult, Lower: m - sd*mult}, true
}

// Channel is a Donchian high/low pair.
type Channel struct {
	High float64
	Low  float64
}

// Donchian returns the extremes of the period values preceding the last one.
// The last value itself is excluded so a breakout can be detected against it.
func Donchian(series []float64, period int) (Channel, bool) {
	if period <= 0 || len(series) < period+1 {
		return Channel{}, false
	}
	hi, lo := extremes(series[len(series)-period-1 : len(series)-1])
	return Channel{High: hi, Low: lo}, true
}

// RecentRange returns the extremes of the lookback-1 values preceding the
// last one. It is the box a volatility breakout is measured against.
func RecentRange(series []float64, lookback int) (Channel, bool) {
	if lookback < 2 || len(series) < lookback {
		return Channel{}, false
	}
	hi, lo := extremes(series[len(series)-lookback : len(series)-1])
	return Channel{High: hi, Low: lo}, true
}

func extremes(window []float64) (float64, float64) {
	hi, lo := math.Inf(-1), math.Inf(1)
	for _, v := range window {
		hi = math.Max(hi, v)
		lo = math.Min(lo, v)
	}
	return hi, lo
}

// RateOfChange is the percent change between the last value and the value
// period steps earlier.
func RateOfChange(series []float64, period int) (float64, bool) {
	if period <= 0 || len(series) <= period {
		return 0, false
	}
	prev := series[len(series)-1-period]
	if prev == 0 {
		return 0, false
	}
	now := series[len(series)-1]
	return (now - prev) / prev * 100, true
}

// ZScore is the distance of the last value from the trailing mean in
// standard deviations. A flat window scores 0.
func ZScore(series []float64, period int) (float64, bool) {
	if period <= 0 || len(series) < period {
		return 0, false
	}
	window := series[len(series)-period:]
	sd := Stdev(window)
	if sd == 0 {
		return 0, true
	}
	return (series[len(series)-1] - Mean(window)) / sd, true
}

// TrendStrength approximates ADX from closes only: the normalized imbalance
// between up-moves and down-moves over the trailing period, in [0, 100].
func TrendStrength(series []float64, period int) (float64, bool) {
	if period <= 0 || len(series) < period+3 {
		return 0, false
	}
	var plus, minus, travel float64
	for i := len(series) - period; i < len(series); i++ {
		d := series[i] - series[i-1]
		plus += math.Max(0, d)
		minus += math.Max(0, -d)
		travel += math.Abs(d)
	}
	if travel == 0 {
		return 0, true
	}
	diPlus := plus / travel * 100
	diMinus := minus / travel * 100
	return math.Abs(diPlus-diMinus) / math.Max(1e-9, diPlus+diMinus) * 100, true
}
