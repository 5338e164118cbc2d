package downloader

import (
	"bot-arena-go/internal/models"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
)

const (
	dailyInterval = "1d"
	pageLimit     = 1000 // Binance serves at most 1000 klines per request
)

// KlineDownloader fetches daily closes from the Binance public kline endpoint.
type KlineDownloader struct {
	client *binance.Client
	symbol string
}

// NewKlineDownloader creates a downloader for symbol. An empty baseURL keeps
// the client's default endpoint.
func NewKlineDownloader(symbol, baseURL string) *KlineDownloader {
	client := binance.NewClient("", "") // public endpoints need no API key
	if baseURL != "" {
		client.BaseURL = baseURL
	}
	return &KlineDownloader{client: client, symbol: symbol}
}

// FetchRange pages through the daily klines between start and end.
func (d *KlineDownloader) FetchRange(ctx context.Context, start, end time.Time) ([]models.PricePoint, error) {
	var points []models.PricePoint
	for t := start; t.Before(end); {
		klines, err := d.client.NewKlinesService().
			Symbol(d.symbol).
			Interval(dailyInterval).
			StartTime(t.UnixMilli()).
			EndTime(end.UnixMilli()).
			Limit(pageLimit).
			Do(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch %s klines from %s: %w", d.symbol, t.Format("2006-01-02"), err)
		}
		if len(klines) == 0 {
			break
		}

		page, err := toPoints(klines)
		if err != nil {
			return nil, err
		}
		points = append(points, page...)

		next := time.UnixMilli(klines[len(klines)-1].CloseTime + 1)
		if !next.After(t) {
			break
		}
		t = next
	}
	return points, nil
}

// FetchRecent returns the latest page of daily klines without a start bound.
func (d *KlineDownloader) FetchRecent(ctx context.Context) ([]models.PricePoint, error) {
	klines, err := d.client.NewKlinesService().
		Symbol(d.symbol).
		Interval(dailyInterval).
		Limit(pageLimit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch recent %s klines: %w", d.symbol, err)
	}
	return toPoints(klines)
}

func toPoints(klines []*binance.Kline) ([]models.PricePoint, error) {
	points := make([]models.PricePoint, 0, len(klines))
	for _, k := range klines {
		closePrice, err := strconv.ParseFloat(k.Close, 64)
		if err != nil {
			return nil, fmt.Errorf("parse close %q at %d: %w", k.Close, k.OpenTime, err)
		}
		points = append(points, models.PricePoint{Time: time.UnixMilli(k.OpenTime).UTC(), Price: closePrice})
	}
	return points, nil
}

// CSVCache stores a history as "open_time,close" rows.
type CSVCache struct {
	Path string
}

// Load reads the cached history. A missing file is reported as an error.
func (c CSVCache) Load() ([]models.PricePoint, error) {
	file, err := os.Open(c.Path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.Path, err)
	}
	if len(records) <= 1 {
		return nil, fmt.Errorf("%s holds no rows", c.Path)
	}

	points := make([]models.PricePoint, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) < 2 {
			continue
		}
		ms, errT := strconv.ParseInt(record[0], 10, 64)
		price, errP := strconv.ParseFloat(record[1], 64)
		if errT != nil || errP != nil {
			continue
		}
		points = append(points, models.PricePoint{Time: time.UnixMilli(ms).UTC(), Price: price})
	}
	return points, nil
}

// Save writes points, replacing any previous cache.
func (c CSVCache) Save(points []models.PricePoint) error {
	if err := os.MkdirAll(filepath.Dir(c.Path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", c.Path, err)
	}
	tmp := c.Path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"open_time", "close"}); err != nil {
		file.Close()
		return fmt.Errorf("write header: %w", err)
	}
	for _, p := range points {
		record := []string{
			strconv.FormatInt(p.Time.UnixMilli(), 10),
			strconv.FormatFloat(p.Price, 'f', -1, 64),
		}
		if err := writer.Write(record); err != nil {
			file.Close()
			return fmt.Errorf("write row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, c.Path)
}
