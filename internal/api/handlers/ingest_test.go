package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albiontools/market-helper-go/internal/database"
	"github.com/albiontools/market-helper-go/internal/models"
	"github.com/albiontools/market-helper-go/internal/services"
)

type stubTickWriter struct {
	saved []models.MarketTick
	err   error
}

func (s *stubTickWriter) SaveTicks(_ context.Context, ticks []models.MarketTick) (database.BatchResult, error) {
	s.saved = append(s.saved, ticks...)
	return database.BatchResult{Inserted: len(ticks)}, s.err
}

func (s *stubTickWriter) CountsBySource(context.Context) (map[models.Source]int64, error) {
	return map[models.Source]int64{models.SourcePrivate: int64(len(s.saved))}, s.err
}

func (s *stubTickWriter) FreshCoverage(context.Context, time.Time) (models.Coverage, error) {
	return models.Coverage{Fresh: 4, Total: 10, Percentage: 40}, s.err
}

func (s *stubTickWriter) StaleCombos(context.Context, time.Time, int) ([]models.StaleCombo, error) {
	return nil, s.err
}

func (s *stubTickWriter) IngestStatsRows(context.Context) ([]models.IngestStatsRow, error) {
	return nil, s.err
}

func testIngestHandler(store *stubTickWriter) *IngestHandler {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewIngestHandler(services.NewIngestService(store, logger), logger)
}

func TestIngestADCStoresBatch(t *testing.T) {
	store := &stubTickWriter{}
	h := testIngestHandler(store)

	rec := performJSON(t, h.IngestADC, http.MethodPost, "/endpoint", gin.H{
		"records": []gin.H{
			{"city": "Martlock", "item_id": "T4_BAG", "quality": 1, "sell_price_min": 1200, "timestamp": "2026-08-29T10:00:00Z"},
			{"city": "Lymhurst", "item_id": "T4_BAG", "quality": 1, "sell_price_min": 1300, "timestamp": "2026-08-29 10:05:00"},
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Status string              `json:"status"`
		Stats  models.IngestReport `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, 2, resp.Stats.Received)
	assert.Equal(t, 2, resp.Stats.Inserted)
	assert.Len(t, store.saved, 2)
}

func TestIngestADCReportsBadRecords(t *testing.T) {
	store := &stubTickWriter{}
	h := testIngestHandler(store)

	rec := performJSON(t, h.IngestADC, http.MethodPost, "/endpoint", gin.H{
		"records": []gin.H{
			{"city": "Martlock", "item_id": "T4_BAG", "timestamp": "not-a-time"},
			{"city": "Martlock", "item_id": "T4_BAG", "timestamp": "2026-08-29T10:00:00Z"},
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Stats models.IngestReport `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Stats.Inserted)
	require.Len(t, resp.Stats.Errors, 1)
	assert.Contains(t, resp.Stats.Errors[0].Error, "timestamp")
}

func TestIngestADCRejectsMissingRecords(t *testing.T) {
	h := testIngestHandler(&stubTickWriter{})

	rec := performJSON(t, h.IngestADC, http.MethodPost, "/endpoint", gin.H{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestADCStoreFailure(t *testing.T) {
	store := &stubTickWriter{err: assert.AnError}
	h := testIngestHandler(store)

	rec := performJSON(t, h.IngestADC, http.MethodPost, "/endpoint", gin.H{
		"records": []gin.H{
			{"city": "Martlock", "item_id": "T4_BAG", "timestamp": "2026-08-29T10:00:00Z"},
		},
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetStatsReportsCoverage(t *testing.T) {
	h := testIngestHandler(&stubTickWriter{})

	rec := performJSON(t, h.GetStats, http.MethodGet, "/endpoint", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var stats models.IngestStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(10), stats.Coverage.Total)
	assert.InDelta(t, 40.0, stats.Coverage.Percentage, 0.001)
}
