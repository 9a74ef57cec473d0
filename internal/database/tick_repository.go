package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/albiontools/market-helper-go/internal/models"
)

// PgxPool is the subset of pgxpool.Pool the repository needs. pgxmock
// implements it for tests.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// querier is satisfied by both PgxPool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TickFilter selects the most recent tick matching every set field. A nil
// Quality matches any quality level.
type TickFilter struct {
	Source  models.Source
	Region  string
	City    string
	ItemID  string
	Quality *int
	Since   time.Time
}

// BatchResult summarizes what one SaveTicks call did.
type BatchResult struct {
	Inserted   int
	Updated    int
	Duplicates int
}

// TickRepository is the Local Price Store: persisted market ticks plus
// per-source ingestion counters.
type TickRepository struct {
	db PgxPool
}

func NewTickRepository(db PgxPool) *TickRepository {
	return &TickRepository{db: db}
}

// SaveTicks writes a batch inside one short-lived transaction. Each tick is
// inserted, or updates the existing row when prices changed, or counts as a
// duplicate when nothing changed. The unique key is
// (city, item_id, quality, timestamp, source).
func (r *TickRepository) SaveTicks(ctx context.Context, ticks []models.MarketTick) (BatchResult, error) {
	var result BatchResult
	if len(ticks) == 0 {
		return result, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, tick := range ticks {
		outcome, err := upsertTick(ctx, tx, tick)
		if err != nil {
			return BatchResult{}, err
		}
		switch outcome {
		case models.UpsertInserted:
			result.Inserted++
		case models.UpsertUpdated:
			result.Updated++
		case models.UpsertDuplicate:
			result.Duplicates++
		}
	}

	if n := result.Inserted + result.Updated; n > 0 {
		if err := touchIngestStats(ctx, tx, ticks[0].Source, int64(n)); err != nil {
			return BatchResult{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return BatchResult{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}

func upsertTick(ctx context.Context, q querier, tick models.MarketTick) (models.UpsertOutcome, error) {
	var existing models.MarketTick
	err := q.QueryRow(ctx,
		`SELECT id, sell_price_min, sell_price_max, buy_price_min, buy_price_max
		 FROM market_ticks
		 WHERE city = $1 AND item_id = $2 AND quality = $3 AND timestamp = $4 AND source = $5`,
		tick.City, tick.ItemID, tick.Quality, tick.Timestamp, tick.Source,
	).Scan(&existing.ID, &existing.SellPriceMin, &existing.SellPriceMax, &existing.BuyPriceMin, &existing.BuyPriceMax)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		_, err = q.Exec(ctx,
			`INSERT INTO market_ticks
				(source, region, city, item_id, quality,
				 sell_price_min, sell_price_max, buy_price_min, buy_price_max,
				 timestamp, ingested_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())`,
			tick.Source, tick.Region, tick.City, tick.ItemID, tick.Quality,
			tick.SellPriceMin, tick.SellPriceMax, tick.BuyPriceMin, tick.BuyPriceMax,
			tick.Timestamp,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert tick: %w", err)
		}
		return models.UpsertInserted, nil
	case err != nil:
		return 0, fmt.Errorf("failed to look up tick: %w", err)
	}

	if existing.SamePrices(tick) {
		return models.UpsertDuplicate, nil
	}

	_, err = q.Exec(ctx,
		`UPDATE market_ticks
		 SET sell_price_min = $1, sell_price_max = $2, buy_price_min = $3, buy_price_max = $4,
		     ingested_at = NOW()
		 WHERE id = $5`,
		tick.SellPriceMin, tick.SellPriceMax, tick.BuyPriceMin, tick.BuyPriceMax, existing.ID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update tick: %w", err)
	}
	return models.UpsertUpdated, nil
}

func touchIngestStats(ctx context.Context, q querier, source models.Source, n int64) error {
	_, err := q.Exec(ctx,
		`INSERT INTO ingest_stats (source, last_ingest_at, total_records, daily_records, updated_at)
		 VALUES ($1, NOW(), $2, $2, NOW())
		 ON CONFLICT (source) DO UPDATE SET
			last_ingest_at = NOW(),
			total_records = ingest_stats.total_records + EXCLUDED.total_records,
			daily_records = ingest_stats.daily_records + EXCLUDED.daily_records,
			updated_at = NOW()`,
		source, n,
	)
	if err != nil {
		return fmt.Errorf("failed to update ingest stats: %w", err)
	}
	return nil
}

// LatestTick returns the newest tick matching the filter, or nil when there is
// none.
func (r *TickRepository) LatestTick(ctx context.Context, f TickFilter) (*models.MarketTick, error) {
	query := `SELECT id, source, region, city, item_id, quality,
			COALESCE(sell_price_min, 0), COALESCE(sell_price_max, 0),
			COALESCE(buy_price_min, 0), COALESCE(buy_price_max, 0),
			timestamp, ingested_at
		FROM market_ticks
		WHERE source = $1 AND region = $2 AND city = $3 AND item_id = $4 AND timestamp >= $5`
	args := []any{f.Source, f.Region, f.City, f.ItemID, f.Since}
	if f.Quality != nil {
		query += ` AND quality = $6`
		args = append(args, *f.Quality)
	}
	query += ` ORDER BY timestamp DESC LIMIT 1`

	var tick models.MarketTick
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&tick.ID, &tick.Source, &tick.Region, &tick.City, &tick.ItemID, &tick.Quality,
		&tick.SellPriceMin, &tick.SellPriceMax, &tick.BuyPriceMin, &tick.BuyPriceMax,
		&tick.Timestamp, &tick.IngestedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest tick: %w", err)
	}
	return &tick, nil
}

// CountsBySource returns tick counts grouped by source.
func (r *TickRepository) CountsBySource(ctx context.Context) (map[models.Source]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT source, COUNT(*) FROM market_ticks GROUP BY source`)
	if err != nil {
		return nil, fmt.Errorf("failed to count ticks by source: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Source]int64)
	for rows.Next() {
		var source models.Source
		var count int64
		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("failed to scan source count: %w", err)
		}
		counts[source] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source counts: %w", err)
	}
	return counts, nil
}

// FreshCoverage reports how many distinct (item, city) combinations have a
// tick newer than cutoff, against the total known combinations.
func (r *TickRepository) FreshCoverage(ctx context.Context, cutoff time.Time) (models.Coverage, error) {
	var cov models.Coverage
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(DISTINCT (item_id, city)) FROM market_ticks WHERE timestamp >= $1`,
		cutoff,
	).Scan(&cov.Fresh)
	if err != nil {
		return cov, fmt.Errorf("failed to count fresh combinations: %w", err)
	}
	err = r.db.QueryRow(ctx,
		`SELECT COUNT(DISTINCT (item_id, city)) FROM market_ticks`,
	).Scan(&cov.Total)
	if err != nil {
		return cov, fmt.Errorf("failed to count total combinations: %w", err)
	}
	if cov.Total > 0 {
		cov.Percentage = float64(int(float64(cov.Fresh)/float64(cov.Total)*100*100)) / 100
	}
	return cov, nil
}

// StaleCombos lists (item, city) pairs whose newest tick predates cutoff.
func (r *TickRepository) StaleCombos(ctx context.Context, cutoff time.Time, limit int) ([]models.StaleCombo, error) {
	rows, err := r.db.Query(ctx,
		`SELECT item_id, city, MAX(timestamp) AS last_seen
		 FROM market_ticks
		 GROUP BY item_id, city
		 HAVING MAX(timestamp) < $1
		 ORDER BY last_seen ASC
		 LIMIT $2`,
		cutoff, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale combinations: %w", err)
	}
	defer rows.Close()

	now := time.Now().UTC()
	var stale []models.StaleCombo
	for rows.Next() {
		var combo models.StaleCombo
		if err := rows.Scan(&combo.ItemID, &combo.City, &combo.LastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan stale combination: %w", err)
		}
		combo.AgeHours = float64(int(now.Sub(combo.LastSeen).Hours()*100)) / 100
		stale = append(stale, combo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stale combinations: %w", err)
	}
	return stale, nil
}

// IngestStatsRows returns the per-source ingestion counters.
func (r *TickRepository) IngestStatsRows(ctx context.Context) ([]models.IngestStatsRow, error) {
	rows, err := r.db.Query(ctx,
		`SELECT source, last_ingest_at, total_records, daily_records FROM ingest_stats ORDER BY source`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query ingest stats: %w", err)
	}
	defer rows.Close()

	var stats []models.IngestStatsRow
	for rows.Next() {
		var row models.IngestStatsRow
		if err := rows.Scan(&row.Source, &row.LastIngestAt, &row.TotalRecords, &row.DailyRecords); err != nil {
			return nil, fmt.Errorf("failed to scan ingest stats row: %w", err)
		}
		stats = append(stats, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ingest stats: %w", err)
	}
	return stats, nil
}
