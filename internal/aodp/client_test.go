package aodp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/albiontools/market-helper-go/internal/cache"
	"github.com/albiontools/market-helper-go/internal/config"
)

func testClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewClient(config.AODPConfig{
		RegionURLs:         map[string]string{"west": serverURL},
		TimeoutSeconds:     5,
		CacheTTLSeconds:    600,
		RateLimitPerMinute: 1000,
		MaxRetries:         3,
		RetryBaseDelayMs:   1,
	}, cache.NewMemoryCache(10*time.Minute), logger)
}

func TestGetPrices(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		assert.Contains(t, r.URL.Path, "/api/v2/stats/prices/")
		assert.Equal(t, "Martlock,Lymhurst", r.URL.Query().Get("locations"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"item_id":"T4_BAG","city":"Martlock","quality":1,"sell_price_min":1000}]`))
	}))
	defer srv.Close()

	client := testClient(t, srv.URL)
	quotes, err := client.GetPrices(context.Background(), "west", []string{"T4_BAG"}, []string{"Martlock", "Lymhurst"}, []int{1})

	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "T4_BAG", quotes[0].ItemID)
	assert.Equal(t, 1000.0, quotes[0].SellPriceMin)
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
}

func TestGetPricesServedFromCache(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		_, _ = w.Write([]byte(`[{"item_id":"T4_BAG","city":"Martlock"}]`))
	}))
	defer srv.Close()

	client := testClient(t, srv.URL)
	ctx := context.Background()

	_, err := client.GetPrices(ctx, "west", []string{"T4_BAG", "T5_BAG"}, []string{"Martlock"}, []int{0})
	require.NoError(t, err)

	// Same selection in a different order hits the same cache entry.
	_, err = client.GetPrices(ctx, "west", []string{"T5_BAG", "T4_BAG"}, []string{"Martlock"}, []int{0})
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
}

func TestGetPricesRetriesOn429(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`[{"item_id":"T4_BAG","city":"Martlock"}]`))
	}))
	defer srv.Close()

	client := testClient(t, srv.URL)
	quotes, err := client.GetPrices(context.Background(), "west", []string{"T4_BAG"}, []string{"Martlock"}, []int{0})

	require.NoError(t, err)
	assert.Len(t, quotes, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&requests))
}

func TestGetPricesRetryCeiling(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := testClient(t, srv.URL)
	_, err := client.GetPrices(context.Background(), "west", []string{"T4_BAG"}, []string{"Martlock"}, []int{0})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, int32(3), atomic.LoadInt32(&requests))
}

func TestGetPricesClientErrorFailsFast(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := testClient(t, srv.URL)
	_, err := client.GetPrices(context.Background(), "west", []string{"T4_BAG"}, []string{"Martlock"}, []int{0})

	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
}

func TestGetPricesMalformedPayloadIsEmptyNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"detail":"unexpected shape"}`))
	}))
	defer srv.Close()

	client := testClient(t, srv.URL)
	quotes, err := client.GetPrices(context.Background(), "west", []string{"T4_BAG"}, []string{"Martlock"}, []int{0})

	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestGetHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/api/v2/stats/history/")
		assert.Equal(t, "24", r.URL.Query().Get("time-scale"))
		_, _ = w.Write([]byte(`[{"location":"Martlock","item_id":"T4_BAG","quality":1,"data":[{"timestamp":"2024-06-01T00:00:00","item_count":5,"avg_price":1000,"min_price":900,"max_price":1100}]}]`))
	}))
	defer srv.Close()

	client := testClient(t, srv.URL)
	points, err := client.GetHistory(context.Background(), "west", "T4_BAG", "Martlock", 24)

	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 1000.0, points[0].AvgPrice)
	assert.Equal(t, 5, points[0].ItemCount)
}

func TestGetHistoryEmptyEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := testClient(t, srv.URL)
	points, err := client.GetHistory(context.Background(), "west", "T4_BAG", "Martlock", 24)

	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestCacheKeyNormalization(t *testing.T) {
	a := cacheKey("prices_west", map[string]string{"items": normalizeList([]string{"B", "A"})})
	b := cacheKey("prices_west", map[string]string{"items": normalizeList([]string{"A", "B"})})
	c := cacheKey("prices_east", map[string]string{"items": normalizeList([]string{"A", "B"})})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestGetPricesEmitsFetchSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := testClient(t, srv.URL)
	_, err := client.GetPrices(context.Background(), "west", []string{"T4_BAG"}, []string{"Martlock"}, []int{0})
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "aodp.fetch", spans[0].Name())

	// A cache hit never opens a span.
	_, err = client.GetPrices(context.Background(), "west", []string{"T4_BAG"}, []string{"Martlock"}, []int{0})
	require.NoError(t, err)
	assert.Len(t, recorder.Ended(), 1)
}

func TestRegionURLFallsBackToWest(t *testing.T) {
	client := testClient(t, "http://example.test")
	assert.Equal(t, "http://example.test", client.regionURL("west"))
	assert.Equal(t, "http://example.test", client.regionURL("unknown"))
}
