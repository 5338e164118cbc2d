package history

import (
	"bot-arena-go/internal/models"
	"errors"
	"fmt"
	"math"
	"sort"
)

const (
	// MinPoints is the shortest history accepted from an external source.
	MinPoints = 120
	// MinPrice and MaxPrice bound every plausible price of the asset.
	MinPrice = 1.0
	MaxPrice = 1_000_000.0
)

var (
	ErrTooShort    = errors.New("history too short")
	ErrImplausible = errors.New("history price out of plausible range")
)

// Normalize drops non-finite points, sorts by time and keeps the last point
// of every duplicated timestamp. The input is left untouched.
func Normalize(points []models.PricePoint) []models.PricePoint {
	out := make([]models.PricePoint, 0, len(points))
	for _, p := range points {
		if p.Time.IsZero() || math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })

	deduped := out[:0]
	for _, p := range out {
		if n := len(deduped); n > 0 && deduped[n-1].Time.Equal(p.Time) {
			deduped[n-1] = p
			continue
		}
		deduped = append(deduped, p)
	}
	return deduped
}

// Validate reports whether a fetched history is long and plausible enough to
// build stages from.
func Validate(points []models.PricePoint) error {
	if len(points) < MinPoints {
		return fmt.Errorf("%w: %d points, need %d", ErrTooShort, len(points), MinPoints)
	}
	for _, p := range points {
		if p.Price < MinPrice || p.Price > MaxPrice {
			return fmt.Errorf("%w: %.4f at %s", ErrImplausible, p.Price, p.Time.Format("2006-01-02"))
		}
	}
	return nil
}
