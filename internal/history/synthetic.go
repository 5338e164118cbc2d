package history

import (
	"bot-arena-go/internal/models"
	"math"
	"sort"
	"time"
)

// Day is the resolution of the long history.
const Day = 24 * time.Hour

// Anchor is a known historical close the synthetic history is pinned to.
type Anchor struct {
	Date  string
	Price float64
}

// Anchors are approximate BTC/USD daily closes around well-known turning
// points. Synthetic histories pass through them.
var Anchors = []Anchor{
	{"2013-01-01", 13.3},
	{"2013-04-09", 230},
	{"2013-07-05", 68},
	{"2013-11-30", 1130},
	{"2014-04-10", 360},
	{"2015-01-14", 178},
	{"2015-11-04", 400},
	{"2016-07-01", 670},
	{"2017-01-01", 1000},
	{"2017-06-12", 2650},
	{"2017-12-17", 19500},
	{"2018-02-06", 6900},
	{"2018-12-15", 3200},
	{"2019-06-26", 12900},
	{"2020-03-12", 4900},
	{"2020-05-11", 8600},
	{"2020-12-31", 29000},
	{"2021-04-14", 63500},
	{"2021-05-19", 37000},
	{"2021-07-20", 29800},
	{"2021-11-10", 68800},
	{"2022-06-18", 19000},
	{"2022-11-10", 15900},
	{"2023-03-10", 20000},
	{"2023-12-31", 42300},
	{"2024-01-10", 46000},
	{"2024-03-14", 73000},
	{"2024-08-05", 54000},
	{"2024-12-17", 106000},
	{"2025-04-08", 76300},
	{"2025-06-01", 105000},
}

// DefaultSeed is the seed used when the configuration does not name one.
const DefaultSeed = 42

// Synthesize builds a daily history through Anchors: a linear path between
// consecutive anchors, bent by two slow cycles and perturbed by seeded
// multiplicative noise. The same seed always yields the same history.
func Synthesize(seed uint32) []models.PricePoint {
	return SynthesizeFrom(Anchors, seed)
}

// SynthesizeFrom is Synthesize over an explicit anchor list.
func SynthesizeFrom(anchors []Anchor, seed uint32) []models.PricePoint {
	pins := parseAnchors(anchors)
	if len(pins) < 2 {
		return nil
	}

	rnd := NewRand(seed)
	first := pins[0].Time
	points := make([]models.PricePoint, 0, int(pins[len(pins)-1].Time.Sub(first)/Day)+1)

	leg := 0
	for ts := first; !ts.After(pins[len(pins)-1].Time); ts = ts.Add(Day) {
		for leg < len(pins)-2 && ts.After(pins[leg+1].Time) {
			leg++
		}
		left, right := pins[leg], pins[leg+1]
		ratio := float64(ts.Sub(left.Time)) / float64(right.Time.Sub(left.Time))

		// Interpolate in log space so multi-x legs do not look like straight lines.
		base := math.Exp(math.Log(left.Price) + (math.Log(right.Price)-math.Log(left.Price))*ratio)

		// The cycles vanish at both anchors so the path still passes through them.
		t := float64(ts.Sub(first) / Day)
		envelope := math.Sin(math.Pi * ratio)
		cycle := (math.Sin(t/9)*0.025 + math.Sin(t/23)*0.04) * envelope
		shock := rnd.Centered() * 0.05 * envelope

		price := base * (1 + cycle + shock)
		points = append(points, models.PricePoint{Time: ts, Price: math.Max(MinPrice, price)})
	}
	return points
}

func parseAnchors(anchors []Anchor) []models.PricePoint {
	pins := make([]models.PricePoint, 0, len(anchors))
	for _, a := range anchors {
		ts, err := time.Parse("2006-01-02", a.Date)
		if err != nil || a.Price <= 0 {
			continue
		}
		pins = append(pins, models.PricePoint{Time: ts.UTC(), Price: a.Price})
	}
	sort.Slice(pins, func(i, j int) bool { return pins[i].Time.Before(pins[j].Time) })
	return pins
}
