package history

import (
	"bot-arena-go/internal/models"
	"context"
	"time"

	"go.uber.org/zap"
)

// Fetcher retrieves a daily history from an external market data source.
type Fetcher interface {
	// FetchRange returns the daily closes between start and end.
	FetchRange(ctx context.Context, start, end time.Time) ([]models.PricePoint, error)
	// FetchRecent returns the broadest history the source serves in one call.
	FetchRecent(ctx context.Context) ([]models.PricePoint, error)
}

// Cache keeps a previously accepted history between process runs.
type Cache interface {
	Load() ([]models.PricePoint, error)
	Save(points []models.PricePoint) error
}

// Source names where a loaded history came from.
type Source string

const (
	SourceCache     Source = "cache"
	SourceRange     Source = "range"
	SourceRecent    Source = "recent"
	SourceSynthetic Source = "synthetic"
)

// Loader produces the long daily history. It walks cache, range query,
// broad query and finally the synthetic generator, so Load always returns a
// usable history.
type Loader struct {
	Fetcher Fetcher // nil skips the external source
	Cache   Cache   // nil disables caching
	Start   time.Time
	Timeout time.Duration // per external attempt
	Seed    uint32
	Now     func() time.Time
	Logger  *zap.Logger
}

// Load returns a normalized history and the source it came from.
func (l *Loader) Load(ctx context.Context) ([]models.PricePoint, Source) {
	log := l.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := time.Now
	if l.Now != nil {
		now = l.Now
	}
	end := now().UTC()

	if l.Cache != nil {
		points, err := l.Cache.Load()
		if err == nil {
			points = Normalize(points)
			if err = Validate(points); err == nil {
				log.Info("history loaded from cache", zap.Int("points", len(points)))
				return points, SourceCache
			}
		}
		log.Debug("history cache unusable", zap.Error(err))
	}

	if l.Fetcher != nil {
		attempts := []struct {
			source Source
			fetch  func(context.Context) ([]models.PricePoint, error)
		}{
			{SourceRange, func(c context.Context) ([]models.PricePoint, error) { return l.Fetcher.FetchRange(c, l.Start, end) }},
			{SourceRecent, l.Fetcher.FetchRecent},
		}
		for _, a := range attempts {
			points, err := l.attempt(ctx, a.fetch, end)
			if err != nil {
				log.Warn("history source failed, falling back", zap.String("source", string(a.source)), zap.Error(err))
				continue
			}
			if l.Cache != nil {
				if err := l.Cache.Save(points); err != nil {
					log.Warn("history cache write failed", zap.Error(err))
				}
			}
			log.Info("history fetched", zap.String("source", string(a.source)), zap.Int("points", len(points)))
			return points, a.source
		}
	}

	points := Synthesize(l.Seed)
	log.Info("using synthetic history", zap.Uint32("seed", l.Seed), zap.Int("points", len(points)))
	return points, SourceSynthetic
}

func (l *Loader) attempt(ctx context.Context, fetch func(context.Context) ([]models.PricePoint, error), end time.Time) ([]models.PricePoint, error) {
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}
	raw, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	points := Normalize(raw)
	inRange := points[:0]
	for _, p := range points {
		if !p.Time.Before(l.Start) && !p.Time.After(end) {
			inRange = append(inRange, p)
		}
	}
	if err := Validate(inRange); err != nil {
		return nil, err
	}
	return inRange, nil
}
