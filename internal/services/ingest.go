package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/albiontools/market-helper-go/internal/database"
	"github.com/albiontools/market-helper-go/internal/models"
)

// staleReportCutoffHours bounds the freshness window used by the stats report.
const staleReportCutoffHours = 24

// staleReportLimit caps the stale combination list in the stats report.
const staleReportLimit = 50

// TickWriter is the slice of the Local Price Store the ingest path uses.
type TickWriter interface {
	SaveTicks(ctx context.Context, ticks []models.MarketTick) (database.BatchResult, error)
	CountsBySource(ctx context.Context) (map[models.Source]int64, error)
	FreshCoverage(ctx context.Context, cutoff time.Time) (models.Coverage, error)
	StaleCombos(ctx context.Context, cutoff time.Time, limit int) ([]models.StaleCombo, error)
	IngestStatsRows(ctx context.Context) ([]models.IngestStatsRow, error)
}

// IngestService validates raw private-client records and persists them as
// market ticks. One bad record never aborts the batch.
type IngestService struct {
	store  TickWriter
	logger *logrus.Logger
	now    func() time.Time
}

func NewIngestService(store TickWriter, logger *logrus.Logger) *IngestService {
	return &IngestService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Ingest parses and stores a batch of records, reporting per-record outcomes.
func (s *IngestService) Ingest(ctx context.Context, records []models.IngestRecord) (models.IngestReport, error) {
	report := models.IngestReport{
		BatchID:  uuid.NewString(),
		Received: len(records),
		Errors:   []models.IngestError{},
	}

	ticks := make([]models.MarketTick, 0, len(records))
	for _, record := range records {
		tick, err := s.parseRecord(record)
		if err != nil {
			report.Errors = append(report.Errors, models.IngestError{
				Record: record,
				Error:  err.Error(),
			})
			continue
		}
		ticks = append(ticks, tick)
	}

	if len(ticks) > 0 {
		result, err := s.store.SaveTicks(ctx, ticks)
		if err != nil {
			return report, fmt.Errorf("failed to save tick batch: %w", err)
		}
		report.Inserted = result.Inserted
		report.Updated = result.Updated
		report.Duplicates = result.Duplicates
	}

	s.logger.WithFields(logrus.Fields{
		"batch_id":   report.BatchID,
		"received":   report.Received,
		"inserted":   report.Inserted,
		"updated":    report.Updated,
		"duplicates": report.Duplicates,
		"errors":     len(report.Errors),
	}).Info("ingested private market data batch")
	return report, nil
}

func (s *IngestService) parseRecord(record models.IngestRecord) (models.MarketTick, error) {
	if record.City == "" {
		return models.MarketTick{}, fmt.Errorf("missing city")
	}
	if record.ItemID == "" {
		return models.MarketTick{}, fmt.Errorf("missing item_id")
	}
	if record.Quality < models.QualityMin || record.Quality > models.QualityMax {
		return models.MarketTick{}, fmt.Errorf("quality %d out of range [%d,%d]", record.Quality, models.QualityMin, models.QualityMax)
	}

	timestamp, err := parseTickTimestamp(record.Timestamp)
	if err != nil {
		return models.MarketTick{}, err
	}

	region := record.Region
	if region == "" {
		region = models.RegionWest
	}
	if !models.ValidRegion(region) {
		return models.MarketTick{}, fmt.Errorf("unknown region %q", region)
	}

	return models.MarketTick{
		Source:       models.SourcePrivate,
		Region:       region,
		City:         record.City,
		ItemID:       record.ItemID,
		Quality:      record.Quality,
		SellPriceMin: record.SellPriceMin,
		SellPriceMax: record.SellPriceMax,
		BuyPriceMin:  record.BuyPriceMin,
		BuyPriceMax:  record.BuyPriceMax,
		Timestamp:    timestamp,
		IngestedAt:   s.now().UTC(),
	}, nil
}

func parseTickTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}
	for _, format := range timestampFormats {
		if ts, err := time.Parse(format, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable timestamp %q", raw)
}

// Stats assembles the freshness report over the whole local store.
func (s *IngestService) Stats(ctx context.Context) (models.IngestStats, error) {
	cutoff := s.now().UTC().Add(-staleReportCutoffHours * time.Hour)

	counts, err := s.store.CountsBySource(ctx)
	if err != nil {
		return models.IngestStats{}, fmt.Errorf("failed to count ticks by source: %w", err)
	}
	coverage, err := s.store.FreshCoverage(ctx, cutoff)
	if err != nil {
		return models.IngestStats{}, fmt.Errorf("failed to compute coverage: %w", err)
	}
	stale, err := s.store.StaleCombos(ctx, cutoff, staleReportLimit)
	if err != nil {
		return models.IngestStats{}, fmt.Errorf("failed to list stale combinations: %w", err)
	}
	rows, err := s.store.IngestStatsRows(ctx)
	if err != nil {
		return models.IngestStats{}, fmt.Errorf("failed to read ingest counters: %w", err)
	}

	return models.IngestStats{
		SourceCounts:  counts,
		LatestIngests: rows,
		Coverage:      coverage,
		StaleItems:    stale,
	}, nil
}
