package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/albiontools/market-helper-go/internal/database"
	"github.com/albiontools/market-helper-go/internal/models"
)

// mergeAgeSentinelHours is attached to a remote quote whose timestamp cannot
// be parsed during a merge.
const mergeAgeSentinelHours = 999

// TickStore is the slice of the Local Price Store the merge path reads.
type TickStore interface {
	LatestTick(ctx context.Context, f database.TickFilter) (*models.MarketTick, error)
}

// MergeService reconciles locally ingested ticks with remote quotes under the
// source-priority rule: fresh PRIVATE data beats AODP data for the same key.
type MergeService struct {
	store   TickStore
	pricing *PricingCalculator
	logger  *logrus.Logger
	now     func() time.Time
}

func NewMergeService(store TickStore, pricing *PricingCalculator, logger *logrus.Logger) *MergeService {
	return &MergeService{
		store:   store,
		pricing: pricing,
		logger:  logger,
		now:     time.Now,
	}
}

// GetBestSnapshot queries the local store for every (city, item) pair in the
// selection, preferring the freshest PRIVATE tick and falling back to AODP.
// Pairs with no tick inside the freshness cutoff are simply omitted, as are
// ticks that carry no price fields at all.
func (s *MergeService) GetBestSnapshot(ctx context.Context, region string, cities, items []string, maxAgeHours int) ([]models.PriceQuote, error) {
	now := s.now().UTC()
	cutoff := now.Add(-time.Duration(maxAgeHours) * time.Hour)

	snapshot := make([]models.PriceQuote, 0, len(cities)*len(items))
	for _, city := range cities {
		for _, itemID := range items {
			tick, err := s.latestBySourcePriority(ctx, region, city, itemID, nil, cutoff)
			if err != nil {
				return nil, err
			}
			if tick == nil {
				continue
			}
			quote := tick.Quote(now)
			if !quote.HasPrices() {
				continue
			}
			quote.SourcePriority = tick.Source
			snapshot = append(snapshot, quote)
		}
	}
	return snapshot, nil
}

// SnapshotComplete reports whether a snapshot covers the whole selection.
// Callers use it to skip the remote fetch entirely; a pair can be counted
// while its private data sits just outside freshness tolerance for some
// qualities, which is an accepted staleness risk.
func (s *MergeService) SnapshotComplete(snapshot []models.PriceQuote, cities, items []string) bool {
	return len(snapshot) == len(cities)*len(items)
}

// MergeWithAODP substitutes a fresher PRIVATE tick for each remote quote when
// one exists for the same (region, city, item, quality) key within the
// cutoff; otherwise the remote quote is kept and re-aged from its own
// timestamp.
func (s *MergeService) MergeWithAODP(ctx context.Context, remote []models.PriceQuote, region string, maxAgeHours int) ([]models.PriceQuote, error) {
	now := s.now().UTC()
	cutoff := now.Add(-time.Duration(maxAgeHours) * time.Hour)

	merged := make([]models.PriceQuote, 0, len(remote))
	for _, quote := range remote {
		quality := quote.Quality
		tick, err := s.store.LatestTick(ctx, database.TickFilter{
			Source:  models.SourcePrivate,
			Region:  region,
			City:    quote.City,
			ItemID:  quote.ItemID,
			Quality: &quality,
			Since:   cutoff,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to look up private tick: %w", err)
		}

		if tick != nil {
			private := tick.Quote(now)
			private.SourcePriority = models.SourcePrivate
			merged = append(merged, private)
			continue
		}

		quote.Source = models.SourceAODP
		quote.SourcePriority = models.SourceAODP
		if quote.SellPriceMinDate != "" {
			age := s.pricing.AgeHours(quote.SellPriceMinDate)
			if age >= models.MaxAgeSentinelHours {
				age = mergeAgeSentinelHours
			}
			quote.AgeHours = float64(int(age*100)) / 100
		}
		merged = append(merged, quote)
	}

	s.logger.WithFields(logrus.Fields{
		"region": region,
		"merged": len(merged),
	}).Debug("merged remote quotes with private data")
	return merged, nil
}

func (s *MergeService) latestBySourcePriority(ctx context.Context, region, city, itemID string, quality *int, cutoff time.Time) (*models.MarketTick, error) {
	for _, source := range []models.Source{models.SourcePrivate, models.SourceAODP} {
		tick, err := s.store.LatestTick(ctx, database.TickFilter{
			Source:  source,
			Region:  region,
			City:    city,
			ItemID:  itemID,
			Quality: quality,
			Since:   cutoff,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query %s tick: %w", source, err)
		}
		if tick != nil {
			return tick, nil
		}
	}
	return nil, nil
}
