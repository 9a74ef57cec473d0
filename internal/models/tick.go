package models

import "time"

// MarketTick is a persisted price observation in the local store. At most one
// tick exists per (city, item_id, quality, timestamp, source).
type MarketTick struct {
	ID           int64     `json:"id" db:"id"`
	Source       Source    `json:"source" db:"source"`
	Region       string    `json:"region" db:"region"`
	City         string    `json:"city" db:"city"`
	ItemID       string    `json:"item_id" db:"item_id"`
	Quality      int       `json:"quality" db:"quality"`
	SellPriceMin float64   `json:"sell_price_min" db:"sell_price_min"`
	SellPriceMax float64   `json:"sell_price_max" db:"sell_price_max"`
	BuyPriceMin  float64   `json:"buy_price_min" db:"buy_price_min"`
	BuyPriceMax  float64   `json:"buy_price_max" db:"buy_price_max"`
	Timestamp    time.Time `json:"timestamp" db:"timestamp"`
	IngestedAt   time.Time `json:"ingested_at" db:"ingested_at"`
}

// SamePrices reports whether two ticks carry identical price fields.
func (t MarketTick) SamePrices(other MarketTick) bool {
	return t.SellPriceMin == other.SellPriceMin &&
		t.SellPriceMax == other.SellPriceMax &&
		t.BuyPriceMin == other.BuyPriceMin &&
		t.BuyPriceMax == other.BuyPriceMax
}

// Quote converts a tick to the wire-shaped quote consumed by the pricing
// engine, stamping every date field with the tick's observation time.
func (t MarketTick) Quote(now time.Time) PriceQuote {
	ts := t.Timestamp.UTC().Format(time.RFC3339)
	age := now.Sub(t.Timestamp).Hours()
	if age < 0 {
		age = 0
	}
	return PriceQuote{
		ItemID:           t.ItemID,
		City:             t.City,
		Quality:          t.Quality,
		SellPriceMin:     t.SellPriceMin,
		SellPriceMinDate: ts,
		SellPriceMax:     t.SellPriceMax,
		SellPriceMaxDate: ts,
		BuyPriceMin:      t.BuyPriceMin,
		BuyPriceMinDate:  ts,
		BuyPriceMax:      t.BuyPriceMax,
		BuyPriceMaxDate:  ts,
		AgeHours:         float64(int(age*100)) / 100,
		Source:           t.Source,
	}
}

// UpsertOutcome reports what happened to a single record during ingestion.
type UpsertOutcome int

const (
	UpsertInserted UpsertOutcome = iota
	UpsertUpdated
	UpsertDuplicate
)

// IngestRecord is one raw record submitted by the private data client.
type IngestRecord struct {
	Type         string  `json:"type"`
	Region       string  `json:"region"`
	City         string  `json:"city" binding:"required"`
	ItemID       string  `json:"item_id" binding:"required"`
	Quality      int     `json:"quality"`
	SellPriceMin float64 `json:"sell_price_min"`
	SellPriceMax float64 `json:"sell_price_max"`
	BuyPriceMin  float64 `json:"buy_price_min"`
	BuyPriceMax  float64 `json:"buy_price_max"`
	Timestamp    string  `json:"timestamp" binding:"required"`
}

// IngestError captures a single failed record without aborting the batch.
type IngestError struct {
	Record IngestRecord `json:"record"`
	Error  string       `json:"error"`
}

// IngestReport summarizes one ingestion batch.
type IngestReport struct {
	BatchID    string        `json:"batch_id"`
	Received   int           `json:"received"`
	Inserted   int           `json:"inserted"`
	Updated    int           `json:"updated"`
	Duplicates int           `json:"duplicates"`
	Errors     []IngestError `json:"errors"`
}

// IngestStatsRow tracks per-source ingestion counters.
type IngestStatsRow struct {
	Source       Source     `json:"source" db:"source"`
	LastIngestAt *time.Time `json:"last_ingest_at" db:"last_ingest_at"`
	TotalRecords int64      `json:"total_records" db:"total_records"`
	DailyRecords int64      `json:"daily_records" db:"daily_records"`
}

// StaleCombo is an (item, city) pair whose newest tick predates the cutoff.
type StaleCombo struct {
	ItemID   string    `json:"item_id"`
	City     string    `json:"city"`
	LastSeen time.Time `json:"last_seen"`
	AgeHours float64   `json:"age_hours"`
}

// Coverage reports how many distinct (item, city) combinations have fresh data.
type Coverage struct {
	Fresh      int64   `json:"fresh"`
	Total      int64   `json:"total"`
	Percentage float64 `json:"percentage"`
}

// IngestStats is the full freshness report exposed to callers.
type IngestStats struct {
	SourceCounts  map[Source]int64 `json:"source_counts"`
	LatestIngests []IngestStatsRow `json:"latest_ingests"`
	Coverage      Coverage         `json:"fresh_data_coverage"`
	StaleItems    []StaleCombo     `json:"stale_items"`
}
