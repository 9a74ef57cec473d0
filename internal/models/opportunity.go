package models

import "github.com/shopspring/decimal"

// Opportunity is a computed cross-city trade. It is never persisted; every
// search call produces a fresh slice.
type Opportunity struct {
	ItemID        string          `json:"item_id"`
	ItemName      string          `json:"item_name"`
	Quality       int             `json:"quality"`
	BuyCity       string          `json:"buy_city"`
	SellCity      string          `json:"sell_city"`
	BuyPrice      float64         `json:"buy_price"`
	SellPrice     float64         `json:"sell_price"`
	BuyTimestamp  string          `json:"buy_timestamp"`
	SellTimestamp string          `json:"sell_timestamp"`
	// Combined tax + setup percentage applied on the sell leg.
	FeesPercentage     float64         `json:"fees_percentage"`
	SetupFeePercentage float64         `json:"setup_fee_percentage"`
	TransportCost      float64         `json:"transport_cost"`
	ProfitAbsolute     decimal.Decimal `json:"profit_absolute"`
	ProfitPercentage   decimal.Decimal `json:"profit_percentage"`
	IsCaerleonRoute    bool            `json:"is_caerleon_route"`
	DataAgeHours       float64         `json:"data_age_hours"`
}

// Route is the unfiltered-mode counterpart of Opportunity: every ordered city
// pair is emitted, profitable or not, tagged with per-leg provenance.
type Route struct {
	ItemID           string          `json:"item_id"`
	ItemName         string          `json:"item_name"`
	Quality          int             `json:"quality"`
	BuyCity          string          `json:"buy_city"`
	SellCity         string          `json:"sell_city"`
	BuyPrice         float64         `json:"buy_price"`
	SellPrice        float64         `json:"sell_price"`
	BuyTimestamp     string          `json:"buy_timestamp"`
	SellTimestamp    string          `json:"sell_timestamp"`
	ProfitAbsolute   decimal.Decimal `json:"profit_absolute"`
	ProfitPercentage decimal.Decimal `json:"profit_percentage"`
	SourceBuy        Source          `json:"source_buy"`
	SourceSell       Source          `json:"source_sell"`
	AgeBuyHours      float64         `json:"age_buy_hours"`
	AgeSellHours     float64         `json:"age_sell_hours"`
	IsCaerleonRoute  bool            `json:"is_caerleon_route"`
	IsProfitable     bool            `json:"is_profitable"`
}

// RouteStats summarizes an unfiltered route set.
type RouteStats struct {
	TotalRoutes      int `json:"total_routes"`
	ProfitableRoutes int `json:"profitable_routes"`
	NegativeRoutes   int `json:"negative_routes"`
	PrivateDataUsed  int `json:"private_data_used"`
}
