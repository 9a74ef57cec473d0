package database

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albiontools/market-helper-go/internal/models"
)

func newMockRepo(t *testing.T) (*TickRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewTickRepository(mock), mock
}

func sampleTick(ts time.Time) models.MarketTick {
	return models.MarketTick{
		Source:       models.SourcePrivate,
		Region:       "west",
		City:         "Martlock",
		ItemID:       "T4_BAG",
		Quality:      1,
		SellPriceMin: 1000,
		SellPriceMax: 1100,
		BuyPriceMin:  900,
		BuyPriceMax:  950,
		Timestamp:    ts,
	}
}

func TestSaveTicksInsert(t *testing.T) {
	repo, mock := newMockRepo(t)
	ts := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	tick := sampleTick(ts)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, sell_price_min`).
		WithArgs(tick.City, tick.ItemID, tick.Quality, tick.Timestamp, tick.Source).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(`INSERT INTO market_ticks`).
		WithArgs(tick.Source, tick.Region, tick.City, tick.ItemID, tick.Quality,
			tick.SellPriceMin, tick.SellPriceMax, tick.BuyPriceMin, tick.BuyPriceMax,
			tick.Timestamp).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO ingest_stats`).
		WithArgs(tick.Source, int64(1)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	result, err := repo.SaveTicks(context.Background(), []models.MarketTick{tick})

	require.NoError(t, err)
	assert.Equal(t, BatchResult{Inserted: 1}, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveTicksUpdateOnChangedPrices(t *testing.T) {
	repo, mock := newMockRepo(t)
	ts := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	tick := sampleTick(ts)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, sell_price_min`).
		WithArgs(tick.City, tick.ItemID, tick.Quality, tick.Timestamp, tick.Source).
		WillReturnRows(pgxmock.NewRows(
			[]string{"id", "sell_price_min", "sell_price_max", "buy_price_min", "buy_price_max"},
		).AddRow(int64(7), 500.0, 600.0, 400.0, 450.0))
	mock.ExpectExec(`UPDATE market_ticks`).
		WithArgs(tick.SellPriceMin, tick.SellPriceMax, tick.BuyPriceMin, tick.BuyPriceMax, int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO ingest_stats`).
		WithArgs(tick.Source, int64(1)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	result, err := repo.SaveTicks(context.Background(), []models.MarketTick{tick})

	require.NoError(t, err)
	assert.Equal(t, BatchResult{Updated: 1}, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveTicksDuplicateSkipsWrite(t *testing.T) {
	repo, mock := newMockRepo(t)
	ts := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	tick := sampleTick(ts)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, sell_price_min`).
		WithArgs(tick.City, tick.ItemID, tick.Quality, tick.Timestamp, tick.Source).
		WillReturnRows(pgxmock.NewRows(
			[]string{"id", "sell_price_min", "sell_price_max", "buy_price_min", "buy_price_max"},
		).AddRow(int64(7), tick.SellPriceMin, tick.SellPriceMax, tick.BuyPriceMin, tick.BuyPriceMax))
	// Identical prices: no update, no ingest stats touch.
	mock.ExpectCommit()

	result, err := repo.SaveTicks(context.Background(), []models.MarketTick{tick})

	require.NoError(t, err)
	assert.Equal(t, BatchResult{Duplicates: 1}, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveTicksEmptyBatch(t *testing.T) {
	repo, mock := newMockRepo(t)

	result, err := repo.SaveTicks(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, BatchResult{}, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestTickFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	ts := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	since := ts.Add(-12 * time.Hour)
	quality := 1

	mock.ExpectQuery(`SELECT id, source, region`).
		WithArgs(models.SourcePrivate, "west", "Martlock", "T4_BAG", since, quality).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "source", "region", "city", "item_id", "quality",
			"sell_price_min", "sell_price_max", "buy_price_min", "buy_price_max",
			"timestamp", "ingested_at",
		}).AddRow(int64(1), models.SourcePrivate, "west", "Martlock", "T4_BAG", 1,
			1000.0, 1100.0, 900.0, 950.0, ts, ts))

	tick, err := repo.LatestTick(context.Background(), TickFilter{
		Source:  models.SourcePrivate,
		Region:  "west",
		City:    "Martlock",
		ItemID:  "T4_BAG",
		Quality: &quality,
		Since:   since,
	})

	require.NoError(t, err)
	require.NotNil(t, tick)
	assert.Equal(t, 1000.0, tick.SellPriceMin)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestTickNoRowsIsNil(t *testing.T) {
	repo, mock := newMockRepo(t)
	since := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, source, region`).
		WithArgs(models.SourceAODP, "west", "Martlock", "T4_BAG", since).
		WillReturnError(pgx.ErrNoRows)

	tick, err := repo.LatestTick(context.Background(), TickFilter{
		Source: models.SourceAODP,
		Region: "west",
		City:   "Martlock",
		ItemID: "T4_BAG",
		Since:  since,
	})

	require.NoError(t, err)
	assert.Nil(t, tick)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountsBySource(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT source, COUNT`).
		WillReturnRows(pgxmock.NewRows([]string{"source", "count"}).
			AddRow(models.SourcePrivate, int64(12)).
			AddRow(models.SourceAODP, int64(4)))

	counts, err := repo.CountsBySource(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(12), counts[models.SourcePrivate])
	assert.Equal(t, int64(4), counts[models.SourceAODP])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFreshCoverage(t *testing.T) {
	repo, mock := newMockRepo(t)
	cutoff := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(DISTINCT`).
		WithArgs(cutoff).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery(`SELECT COUNT\(DISTINCT`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(3)))

	cov, err := repo.FreshCoverage(context.Background(), cutoff)

	require.NoError(t, err)
	assert.Equal(t, int64(1), cov.Fresh)
	assert.Equal(t, int64(3), cov.Total)
	assert.InDelta(t, 33.33, cov.Percentage, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStaleCombos(t *testing.T) {
	repo, mock := newMockRepo(t)
	cutoff := time.Now().UTC().Add(-24 * time.Hour)
	lastSeen := time.Now().UTC().Add(-30 * time.Hour)

	mock.ExpectQuery(`SELECT item_id, city, MAX`).
		WithArgs(cutoff, 50).
		WillReturnRows(pgxmock.NewRows([]string{"item_id", "city", "last_seen"}).
			AddRow("T4_BAG", "Thetford", lastSeen))

	stale, err := repo.StaleCombos(context.Background(), cutoff, 50)

	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "Thetford", stale[0].City)
	assert.InDelta(t, 30, stale[0].AgeHours, 0.1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIngestStatsRows(t *testing.T) {
	repo, mock := newMockRepo(t)
	last := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT source, last_ingest_at`).
		WillReturnRows(pgxmock.NewRows([]string{"source", "last_ingest_at", "total_records", "daily_records"}).
			AddRow(models.SourcePrivate, &last, int64(100), int64(10)))

	rows, err := repo.IngestStatsRows(context.Background())

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.SourcePrivate, rows[0].Source)
	assert.Equal(t, int64(100), rows[0].TotalRecords)
	assert.NoError(t, mock.ExpectationsWereMet())
}
