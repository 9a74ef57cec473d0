// Package aodp is the client for the Albion Online Data Project price API.
// All fetches go through a sliding-window rate limiter and a TTL response
// cache; transient failures and 429 responses are retried with exponential
// backoff.
package aodp

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/albiontools/market-helper-go/internal/cache"
	"github.com/albiontools/market-helper-go/internal/config"
	"github.com/albiontools/market-helper-go/internal/models"
	"github.com/albiontools/market-helper-go/internal/telemetry"
)

// historyTTLFactor stretches the cache TTL for history lookups: daily buckets
// move far slower than the live order book.
const historyTTLFactor = 3

var defaultRegionURLs = map[string]string{
	models.RegionWest:   "https://west.albion-online-data.com",
	models.RegionEurope: "https://europe.albion-online-data.com",
	models.RegionEast:   "https://east.albion-online-data.com",
}

// historyEnvelope is the wire shape of a history response: one element per
// requested location wrapping the actual series.
type historyEnvelope struct {
	Location string                `json:"location"`
	ItemID   string                `json:"item_id"`
	Quality  int                   `json:"quality"`
	Data     []models.HistoryPoint `json:"data"`
}

// Client fetches current and historical prices from the region-specific AODP
// endpoints.
type Client struct {
	httpClient *http.Client
	cache      cache.ResponseCache
	limiter    *RateLimiter
	regionURLs map[string]string
	baseTTL    time.Duration
	maxRetries int
	baseDelay  time.Duration
	logger     *logrus.Logger
}

// NewClient builds a client from config, sharing the given response cache.
func NewClient(cfg config.AODPConfig, responseCache cache.ResponseCache, logger *logrus.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	regionURLs := make(map[string]string, len(defaultRegionURLs))
	for region, base := range defaultRegionURLs {
		regionURLs[region] = base
	}
	for region, base := range cfg.RegionURLs {
		regionURLs[region] = strings.TrimSuffix(base, "/")
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	baseDelay := time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		cache:      responseCache,
		limiter:    NewRateLimiter(cfg.RateLimitPerMinute, time.Minute),
		regionURLs: regionURLs,
		baseTTL:    time.Duration(cfg.CacheTTLSeconds) * time.Second,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

// Limiter exposes the rate limiter for health reporting.
func (c *Client) Limiter() *RateLimiter {
	return c.limiter
}

// GetPrices fetches current prices for the selection. A well-formed but
// non-list payload is normalized to an empty result; only transport failures
// surface as errors.
func (c *Client) GetPrices(ctx context.Context, region string, items, cities []string, qualities []int) ([]models.PriceQuote, error) {
	qualityStrs := make([]string, len(qualities))
	for i, q := range qualities {
		qualityStrs[i] = strconv.Itoa(q)
	}

	key := cacheKey("prices_"+region, map[string]string{
		"items":     normalizeList(items),
		"cities":    normalizeList(cities),
		"qualities": normalizeList(qualityStrs),
	})
	if body, ok := c.cache.Get(key); ok {
		return decodePrices(body), nil
	}

	reqURL := fmt.Sprintf("%s/api/v2/stats/prices/%s.json?%s",
		c.regionURL(region),
		url.PathEscape(strings.Join(items, ",")),
		url.Values{
			"locations": {strings.Join(cities, ",")},
			"qualities": {strings.Join(qualityStrs, ",")},
		}.Encode(),
	)

	body, err := c.doRequest(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, body, c.baseTTL)
	return decodePrices(body), nil
}

// GetHistory fetches the time-bucketed series for one item in one city and
// unwraps the single-location envelope. History responses cache for a
// multiple of the base TTL.
func (c *Client) GetHistory(ctx context.Context, region, item, city string, timescale int) ([]models.HistoryPoint, error) {
	key := cacheKey("history_"+region, map[string]string{
		"item":      item,
		"city":      city,
		"timescale": strconv.Itoa(timescale),
	})
	if body, ok := c.cache.Get(key); ok {
		return decodeHistory(body), nil
	}

	reqURL := fmt.Sprintf("%s/api/v2/stats/history/%s.json?%s",
		c.regionURL(region),
		url.PathEscape(item),
		url.Values{
			"locations":  {city},
			"time-scale": {strconv.Itoa(timescale)},
		}.Encode(),
	)

	body, err := c.doRequest(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, body, c.baseTTL*historyTTLFactor)
	return decodeHistory(body), nil
}

// doRequest performs a rate-limited GET with bounded exponential backoff.
// 429 and 5xx/transport failures are retried; other client errors fail fast.
func (c *Client) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	ctx, span := telemetry.Tracer("aodp").Start(ctx, "aodp.fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.url", reqURL)),
	)
	defer span.End()

	if err := c.limiter.Acquire(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rate limiter wait aborted")
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay * (1 << (attempt - 1))
			select {
			case <-ctx.Done():
				span.RecordError(ctx.Err())
				span.SetStatus(codes.Error, "context cancelled during backoff")
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		body, retryable, err := c.attempt(ctx, reqURL)
		if err == nil {
			span.SetAttributes(attribute.Int("aodp.attempts", attempt+1))
			return body, nil
		}
		lastErr = err
		if !retryable {
			span.RecordError(err)
			span.SetStatus(codes.Error, "client error")
			return nil, err
		}
		c.logger.WithError(err).WithFields(logrus.Fields{
			"url":     reqURL,
			"attempt": attempt + 1,
		}).Warn("aodp request failed, retrying")
	}

	err := fmt.Errorf("aodp request failed after %d attempts: %w", c.maxRetries, lastErr)
	span.RecordError(err)
	span.SetStatus(codes.Error, "retries exhausted")
	return nil, err
}

func (c *Client) attempt(ctx context.Context, reqURL string) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "market-helper-go/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.WithError(cerr).Warn("error closing response body")
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, fmt.Errorf("aodp rate limited (429)")
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("aodp server error (%d)", resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, false, fmt.Errorf("aodp client error (%d): %s", resp.StatusCode, string(data))
	}
	return data, false, nil
}

func (c *Client) regionURL(region string) string {
	if base, ok := c.regionURLs[region]; ok {
		return base
	}
	return c.regionURLs[models.RegionWest]
}

// decodePrices normalizes a malformed (non-list) payload to an empty slice so
// callers can distinguish "no data" from a failed fetch.
func decodePrices(body []byte) []models.PriceQuote {
	var quotes []models.PriceQuote
	if err := json.Unmarshal(body, &quotes); err != nil {
		return []models.PriceQuote{}
	}
	return quotes
}

func decodeHistory(body []byte) []models.HistoryPoint {
	var envelopes []historyEnvelope
	if err := json.Unmarshal(body, &envelopes); err != nil || len(envelopes) == 0 {
		return []models.HistoryPoint{}
	}
	if envelopes[0].Data == nil {
		return []models.HistoryPoint{}
	}
	return envelopes[0].Data
}

// cacheKey hashes the endpoint plus its sorted parameters so equivalent
// requests share one entry.
func cacheKey(endpoint string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(endpoint)
	for _, k := range keys {
		sb.WriteString(":")
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(params[k])
	}
	sum := sha1.Sum([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

// normalizeList sorts a copy of values so parameter order never splits the
// cache.
func normalizeList(values []string) string {
	sorted := make([]string, len(values))
	copy(sorted, values)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
