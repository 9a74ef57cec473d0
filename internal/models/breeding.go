package models

import "github.com/shopspring/decimal"

// Feed acquisition modes for a breeding plan.
const (
	FeedModeBuy  = "buy"
	FeedModeFarm = "farm"
)

// BreedingRequest carries one breeding calculation call. Omitted numeric
// knobs pick up the configured market defaults at the boundary.
type BreedingRequest struct {
	Region           string             `json:"region"`
	Cities           []string           `json:"cities" binding:"required,min=1"`
	MaxAgeHours      int                `json:"max_age_hours"`
	Premium          *bool              `json:"premium"`
	SetupFee         *float64           `json:"setup_fee"`
	TxTax            *float64           `json:"tx_tax"`
	TransportCost    float64            `json:"transport_cost"`
	SaddlerFees      map[string]float64 `json:"saddler_fees"`
	UseFocusBreeding bool               `json:"use_focus_breeding"`
	UseFocusSaddler  bool               `json:"use_focus_saddler"`
	FeedMode         string             `json:"feed_mode"`
	FeedItem         string             `json:"feed_item"`
	Plan             []PlanEntry        `json:"plan" binding:"required,min=1,dive"`
}

// PlanEntry is one (mount type, tier, quantity) unit of a breeding plan.
type PlanEntry struct {
	Type     string `json:"type" binding:"required"`
	Tier     int    `json:"tier" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gte=1"`
}

// AnimalCost breaks down the cost of raising the source animal.
type AnimalCost struct {
	Mode            string          `json:"mode"`
	TotalCost       decimal.Decimal `json:"total_cost"`
	FoodCostPerUnit decimal.Decimal `json:"food_cost_per_unit"`
	FoodCity        string          `json:"food_city"`
	TotalFoodNeeded int             `json:"total_food_needed"`
	GrowHours       float64         `json:"grow_hours"`
	OffspringChance float64         `json:"offspring_chance"`
}

// MaterialLine is the per-material slice of the crafting cost breakdown.
type MaterialLine struct {
	ItemID    string          `json:"item_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice float64         `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
	City      string          `json:"city"`
}

// BreedingResult is the computed profitability of one plan entry. Immutable,
// produced fresh per calculation call.
type BreedingResult struct {
	MountID   string `json:"mount_id"`
	MountName string `json:"mount_name"`
	Quantity  int    `json:"quantity"`
	Tier      int    `json:"tier"`
	Type      string `json:"type"`

	AnimalCost         AnimalCost      `json:"animal_cost"`
	MaterialsCost      decimal.Decimal `json:"materials_cost"`
	MaterialsCity      string          `json:"materials_city"`
	MaterialsBreakdown []MaterialLine  `json:"materials_breakdown"`
	SaddlerCity        string          `json:"saddler_city"`
	SaddlerFee         decimal.Decimal `json:"saddler_fee"`

	SellCity   string          `json:"sell_city"`
	SellPrice  float64         `json:"sell_price"`
	RevenueNet decimal.Decimal `json:"revenue_net"`

	CostTotal        decimal.Decimal `json:"cost_total"`
	ProfitAbsolute   decimal.Decimal `json:"profit_absolute"`
	ProfitPercentage decimal.Decimal `json:"profit_percentage"`
	TotalProfit      decimal.Decimal `json:"total_profit"`

	Route string `json:"route"`

	GrowHours       float64 `json:"grow_hours"`
	TotalFood       int     `json:"total_food"`
	OffspringChance float64 `json:"offspring_chance"`
	DataAgeHours    float64 `json:"data_age_hours"`
}
