package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/albiontools/market-helper-go/internal/config"
)

type PostgresDB struct {
	Pool *pgxpool.Pool
}

func NewPostgresConnection(cfg config.DatabaseConfig) (*PostgresDB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.Info("Successfully connected to PostgreSQL")

	return &PostgresDB{Pool: pool}, nil
}

func (db *PostgresDB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		logrus.Info("PostgreSQL connection closed")
	}
}

func (db *PostgresDB) HealthCheck(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// EnsureSchema creates the tick store tables when they do not exist yet.
// Schema evolution beyond this bootstrap is handled out of band.
func (db *PostgresDB) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS market_ticks (
			id BIGSERIAL PRIMARY KEY,
			source TEXT NOT NULL,
			region TEXT NOT NULL,
			city TEXT NOT NULL,
			item_id TEXT NOT NULL,
			quality INT NOT NULL DEFAULT 0,
			sell_price_min DOUBLE PRECISION,
			sell_price_max DOUBLE PRECISION,
			buy_price_min DOUBLE PRECISION,
			buy_price_max DOUBLE PRECISION,
			timestamp TIMESTAMPTZ NOT NULL,
			ingested_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT uq_market_tick UNIQUE (city, item_id, quality, timestamp, source)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_market_ticks_lookup
			ON market_ticks (city, item_id, quality, source)`,
		`CREATE INDEX IF NOT EXISTS idx_market_ticks_timestamp
			ON market_ticks (timestamp)`,
		`CREATE TABLE IF NOT EXISTS ingest_stats (
			source TEXT PRIMARY KEY,
			last_ingest_at TIMESTAMPTZ,
			total_records BIGINT NOT NULL DEFAULT 0,
			daily_records BIGINT NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
