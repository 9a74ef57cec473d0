package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albiontools/market-helper-go/internal/database"
	"github.com/albiontools/market-helper-go/internal/models"
)

type fakeTickStore struct {
	ticks []models.MarketTick
	err   error
	calls []database.TickFilter
}

func (f *fakeTickStore) LatestTick(_ context.Context, filter database.TickFilter) (*models.MarketTick, error) {
	f.calls = append(f.calls, filter)
	if f.err != nil {
		return nil, f.err
	}
	var best *models.MarketTick
	for i := range f.ticks {
		tick := f.ticks[i]
		if tick.Source != filter.Source || tick.Region != filter.Region ||
			tick.City != filter.City || tick.ItemID != filter.ItemID {
			continue
		}
		if filter.Quality != nil && tick.Quality != *filter.Quality {
			continue
		}
		if tick.Timestamp.Before(filter.Since) {
			continue
		}
		if best == nil || tick.Timestamp.After(best.Timestamp) {
			best = &f.ticks[i]
		}
	}
	return best, nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newTestMergeService(store TickStore, now time.Time) *MergeService {
	pricing := NewPricingCalculator()
	pricing.now = fixedClock(now)
	svc := NewMergeService(store, pricing, testLogger())
	svc.now = fixedClock(now)
	return svc
}

func TestGetBestSnapshotPrefersPrivate(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeTickStore{ticks: []models.MarketTick{
		{Source: models.SourceAODP, Region: "west", City: "Martlock", ItemID: "T4_BAG", SellPriceMin: 90, Timestamp: now.Add(-time.Hour)},
		{Source: models.SourcePrivate, Region: "west", City: "Martlock", ItemID: "T4_BAG", SellPriceMin: 100, Timestamp: now.Add(-2 * time.Hour)},
	}}
	svc := newTestMergeService(store, now)

	snapshot, err := svc.GetBestSnapshot(context.Background(), "west", []string{"Martlock"}, []string{"T4_BAG"}, 12)

	require.NoError(t, err)
	require.Len(t, snapshot, 1)
	// The private tick wins even though the remote one is fresher.
	assert.Equal(t, models.SourcePrivate, snapshot[0].Source)
	assert.Equal(t, models.SourcePrivate, snapshot[0].SourcePriority)
	assert.Equal(t, 100.0, snapshot[0].SellPriceMin)
	assert.InDelta(t, 2, snapshot[0].AgeHours, 0.01)
}

func TestGetBestSnapshotFallsBackToAODP(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeTickStore{ticks: []models.MarketTick{
		{Source: models.SourcePrivate, Region: "west", City: "Martlock", ItemID: "T4_BAG", SellPriceMin: 100, Timestamp: now.Add(-48 * time.Hour)},
		{Source: models.SourceAODP, Region: "west", City: "Martlock", ItemID: "T4_BAG", SellPriceMin: 90, Timestamp: now.Add(-time.Hour)},
	}}
	svc := newTestMergeService(store, now)

	snapshot, err := svc.GetBestSnapshot(context.Background(), "west", []string{"Martlock"}, []string{"T4_BAG"}, 12)

	require.NoError(t, err)
	require.Len(t, snapshot, 1)
	assert.Equal(t, models.SourceAODP, snapshot[0].Source)
}

func TestGetBestSnapshotOmitsMissingPairs(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeTickStore{ticks: []models.MarketTick{
		{Source: models.SourcePrivate, Region: "west", City: "Martlock", ItemID: "T4_BAG", SellPriceMin: 100, Timestamp: now.Add(-time.Hour)},
	}}
	svc := newTestMergeService(store, now)

	snapshot, err := svc.GetBestSnapshot(context.Background(), "west",
		[]string{"Martlock", "Lymhurst"}, []string{"T4_BAG", "T5_BAG"}, 12)

	require.NoError(t, err)
	assert.Len(t, snapshot, 1)
}

func TestGetBestSnapshotDropsPricelessTicks(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeTickStore{ticks: []models.MarketTick{
		// Fresh but carries no order on either side of the book.
		{Source: models.SourcePrivate, Region: "west", City: "Martlock", ItemID: "T4_BAG", Timestamp: now.Add(-time.Hour)},
		{Source: models.SourcePrivate, Region: "west", City: "Lymhurst", ItemID: "T4_BAG", BuyPriceMax: 80, Timestamp: now.Add(-time.Hour)},
	}}
	svc := newTestMergeService(store, now)

	snapshot, err := svc.GetBestSnapshot(context.Background(), "west",
		[]string{"Martlock", "Lymhurst"}, []string{"T4_BAG"}, 12)

	require.NoError(t, err)
	require.Len(t, snapshot, 1)
	assert.Equal(t, "Lymhurst", snapshot[0].City)
}

func TestGetBestSnapshotPropagatesStoreError(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeTickStore{err: errors.New("connection refused")}
	svc := newTestMergeService(store, now)

	_, err := svc.GetBestSnapshot(context.Background(), "west", []string{"Martlock"}, []string{"T4_BAG"}, 12)
	assert.Error(t, err)
}

// SnapshotComplete only counts rows; private data just outside the freshness
// window for some qualities can still satisfy it, a deliberate tradeoff to
// avoid remote fetches.
func TestSnapshotComplete(t *testing.T) {
	svc := newTestMergeService(&fakeTickStore{}, time.Now())

	cities := []string{"Martlock", "Lymhurst"}
	items := []string{"T4_BAG"}

	assert.False(t, svc.SnapshotComplete(make([]models.PriceQuote, 1), cities, items))
	assert.True(t, svc.SnapshotComplete(make([]models.PriceQuote, 2), cities, items))
}

func TestMergeWithAODPSubstitutesFresherPrivate(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeTickStore{ticks: []models.MarketTick{
		{Source: models.SourcePrivate, Region: "west", City: "Martlock", ItemID: "T4_BAG", Quality: 1, SellPriceMin: 123, Timestamp: now.Add(-time.Hour)},
	}}
	svc := newTestMergeService(store, now)

	remote := []models.PriceQuote{
		{ItemID: "T4_BAG", City: "Martlock", Quality: 1, SellPriceMin: 90, SellPriceMinDate: now.Add(-3 * time.Hour).Format(time.RFC3339)},
		{ItemID: "T4_BAG", City: "Lymhurst", Quality: 1, SellPriceMin: 95, SellPriceMinDate: now.Add(-3 * time.Hour).Format(time.RFC3339)},
	}

	merged, err := svc.MergeWithAODP(context.Background(), remote, "west", 12)

	require.NoError(t, err)
	require.Len(t, merged, 2)

	assert.Equal(t, models.SourcePrivate, merged[0].SourcePriority)
	assert.Equal(t, 123.0, merged[0].SellPriceMin)

	assert.Equal(t, models.SourceAODP, merged[1].SourcePriority)
	assert.Equal(t, 95.0, merged[1].SellPriceMin)
	assert.InDelta(t, 3, merged[1].AgeHours, 0.01)
}

func TestMergeWithAODPUnparsableTimestampSentinel(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestMergeService(&fakeTickStore{}, now)

	remote := []models.PriceQuote{
		{ItemID: "T4_BAG", City: "Martlock", SellPriceMinDate: "garbage"},
	}

	merged, err := svc.MergeWithAODP(context.Background(), remote, "west", 12)

	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.Equal(t, float64(mergeAgeSentinelHours), merged[0].AgeHours)
}
