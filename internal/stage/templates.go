package stage

import (
	"bot-arena-go/internal/models"
	"time"
)

// Span is the length of every stage window.
const Span = 14 * 24 * time.Hour

// MinHistoryPoints is the shortest history stages are selected from.
const MinHistoryPoints = 30

const historyRegime = "BTC history"

type template struct {
	id           string
	title        string
	center       string
	turningPoint string
	description  string
}

var templates = []template{
	{"hist_2013_bubble", "The first global bubble", "2013-11-30",
		"Mainstream attention spikes and the first boom-bust cycle begins",
		"Bitcoin swings violently in its first retail mania and earns its reputation as a high-volatility asset."},
	{"hist_2017_ath", "The 2017 bull market peak", "2017-12-17",
		"A new all-time high gives way to a cyclical downturn",
		"Retail money floods in, the market overheats and tips into a structural correction."},
	{"hist_2020_covid", "COVID panic crash", "2020-03-13",
		"Global risk-off liquidation followed by a sharp rebound",
		"A short liquidity shock recovers into the base of the next long bull market."},
	{"hist_2020_halving", "The third halving", "2020-05-11",
		"The supply cut is priced in and the medium-term trend turns",
		"Momentum builds around the anticipation and the arrival of the halving."},
	{"hist_2021_apr_ath", "Institutional run, first peak", "2021-04-14",
		"Institutional demand peaks and volatility expands",
		"Overheating signals strengthen inside the uptrend and a volatile market takes over."},
	{"hist_2021_china_ban", "China mining ban shock", "2021-05-19",
		"A heavy sell-off reshapes the market structure",
		"Regulatory headlines trigger a crash and liquidity realigns around the new structure."},
	{"hist_2021_nov_ath", "The final 2021 all-time high", "2021-11-10",
		"The cycle top prints and the long bear market starts",
		"The last high of the bull market is set and the direction flips."},
	{"hist_2022_luna", "Luna and 3AC contagion", "2022-06-18",
		"Deleveraging accelerates and credit contracts",
		"Cascading liquidations make risk management the only thing that matters."},
	{"hist_2022_ftx", "FTX collapse", "2022-11-10",
		"Exchange trust evaporates amid extreme volatility",
		"Confidence in the market breaks down and price starts searching for a bottom."},
	{"hist_2024_etf", "Spot ETF approval", "2024-01-10",
		"Institutional inflows become reality",
		"The market is repriced around regulated products and a new cycle begins."},
}

// Templates returns the fixed catalog of historical event windows, each 14
// days around its anchor date and clipped to the bounds of history.
func Templates(history []models.PricePoint) []models.Stage {
	first, last, ok := bounds(history)
	if !ok {
		return nil
	}

	stages := make([]models.Stage, 0, len(templates))
	for _, t := range templates {
		center, err := time.Parse("2006-01-02", t.center)
		if err != nil {
			continue
		}
		start, end := center.Add(-Span/2), center.Add(Span/2)
		if start.Before(first) {
			start = first
			end = minTime(first.Add(Span), last)
		}
		if end.After(last) {
			end = last
			start = maxTime(first, last.Add(-Span))
		}

		period := formatPeriod(start, end)
		stages = append(stages, models.Stage{
			ID:           t.id,
			Regime:       historyRegime,
			Title:        t.title,
			Period:       period,
			TurningPoint: t.turningPoint,
			Description:  t.description,
			Start:        start,
			End:          end,
			Summary:      period,
		})
	}
	return stages
}

func bounds(history []models.PricePoint) (time.Time, time.Time, bool) {
	if len(history) < MinHistoryPoints {
		return time.Time{}, time.Time{}, false
	}
	first, last := history[0].Time, history[len(history)-1].Time
	if !first.Before(last) {
		return time.Time{}, time.Time{}, false
	}
	return first, last, true
}

func formatPeriod(start, end time.Time) string {
	return start.UTC().Format("2006-01-02") + " ~ " + end.UTC().Format("2006-01-02")
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
