package downloader

import (
	"bot-arena-go/internal/models"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dayMs = int64(24 * time.Hour / time.Millisecond)

// klineServer serves n daily klines starting at first, honouring startTime and limit.
func klineServer(t *testing.T, first int64, n int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/klines", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))

		start := first
		if s := r.URL.Query().Get("startTime"); s != "" {
			start, _ = strconv.ParseInt(s, 10, 64)
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		var rows []string
		for i := 0; i < n && len(rows) < limit; i++ {
			open := first + int64(i)*dayMs
			if open < start {
				continue
			}
			closePrice := 1000 + float64(i)
			rows = append(rows, fmt.Sprintf(`[%d,"1","1","1","%.2f","1",%d,"1",1,"1","1","0"]`, open, closePrice, open+dayMs-1))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, "[%s]", strings.Join(rows, ","))
	}))
}

func TestFetchRangePagesUntilExhausted(t *testing.T) {
	first := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	srv := klineServer(t, first, 1500)
	defer srv.Close()

	d := NewKlineDownloader("BTCUSDT", srv.URL)
	points, err := d.FetchRange(context.Background(), time.UnixMilli(first), time.UnixMilli(first+2000*dayMs))
	require.NoError(t, err)
	require.Len(t, points, 1500)
	assert.Equal(t, 1000.0, points[0].Price)
	assert.Equal(t, 2499.0, points[1499].Price)
	assert.True(t, points[1].Time.After(points[0].Time))
}

func TestFetchRecent(t *testing.T) {
	first := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	srv := klineServer(t, first, 10)
	defer srv.Close()

	points, err := NewKlineDownloader("BTCUSDT", srv.URL).FetchRecent(context.Background())
	require.NoError(t, err)
	assert.Len(t, points, 10)
}

func TestFetchSurfacesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		fmt.Fprint(w, `{"code":-1,"msg":"nope"}`)
	}))
	defer srv.Close()

	_, err := NewKlineDownloader("BTCUSDT", srv.URL).FetchRecent(context.Background())
	assert.Error(t, err)
}

func TestCSVCacheRoundTrip(t *testing.T) {
	cache := CSVCache{Path: filepath.Join(t.TempDir(), "nested", "history.csv")}

	_, err := cache.Load()
	require.Error(t, err, "missing file")

	t0 := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	in := []models.PricePoint{
		{Time: t0, Price: 29123.45},
		{Time: t0.Add(24 * time.Hour), Price: 28000.5},
	}
	require.NoError(t, cache.Save(in))

	out, err := cache.Load()
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, in[0].Time.Equal(out[0].Time))
	assert.Equal(t, in[1].Price, out[1].Price)
}
