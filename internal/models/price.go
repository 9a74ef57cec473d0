package models

import "fmt"

// Source identifies where a price observation came from.
type Source string

const (
	SourcePrivate Source = "PRIVATE"
	SourceAODP    Source = "AODP"
)

// Supported server regions.
const (
	RegionWest   = "west"
	RegionEurope = "europe"
	RegionEast   = "east"
)

// Quality levels range from 0 (normal) to 5 (masterpiece+).
const (
	QualityMin = 0
	QualityMax = 5
)

// MaxAgeSentinelHours marks a quote whose timestamp is missing or unparsable.
const MaxAgeSentinelHours = 999999

// Royal cities plus Caerleon, in canonical order.
var Cities = []string{
	"Martlock",
	"Lymhurst",
	"Bridgewatch",
	"Thetford",
	"Fort Sterling",
	"Caerleon",
}

// Regions lists the supported server regions.
var Regions = []string{RegionWest, RegionEurope, RegionEast}

// PriceQuote is one observation of market state for an (item, city, quality)
// triple. The four price fields are optional; zero means "no order on the
// book". Date fields carry the remote API's RFC3339 timestamps as-is.
// AgeHours is derived at query time and never persisted.
type PriceQuote struct {
	ItemID           string  `json:"item_id"`
	City             string  `json:"city"`
	Quality          int     `json:"quality"`
	SellPriceMin     float64 `json:"sell_price_min"`
	SellPriceMinDate string  `json:"sell_price_min_date,omitempty"`
	SellPriceMax     float64 `json:"sell_price_max"`
	SellPriceMaxDate string  `json:"sell_price_max_date,omitempty"`
	BuyPriceMin      float64 `json:"buy_price_min"`
	BuyPriceMinDate  string  `json:"buy_price_min_date,omitempty"`
	BuyPriceMax      float64 `json:"buy_price_max"`
	BuyPriceMaxDate  string  `json:"buy_price_max_date,omitempty"`
	AgeHours         float64 `json:"age_hours"`

	// Set by the merge path so callers can tell which feed a quote came from.
	Source         Source `json:"source,omitempty"`
	SourcePriority Source `json:"source_priority,omitempty"`
}

// HasPrices reports whether the quote carries at least one usable price field.
func (q PriceQuote) HasPrices() bool {
	return q.SellPriceMin > 0 || q.SellPriceMax > 0 || q.BuyPriceMin > 0 || q.BuyPriceMax > 0
}

// HistoryPoint is one time bucket from the remote history endpoint.
type HistoryPoint struct {
	Timestamp string  `json:"timestamp"`
	ItemCount int     `json:"item_count"`
	AvgPrice  float64 `json:"avg_price"`
	MinPrice  float64 `json:"min_price"`
	MaxPrice  float64 `json:"max_price"`
}

// ValidRegion reports whether region is one of the supported servers.
func ValidRegion(region string) bool {
	for _, r := range Regions {
		if r == region {
			return true
		}
	}
	return false
}

// ValidateQualities rejects any quality level outside [0,5].
func ValidateQualities(qualities []int) error {
	for _, q := range qualities {
		if q < QualityMin || q > QualityMax {
			return fmt.Errorf("quality %d out of range [%d,%d]", q, QualityMin, QualityMax)
		}
	}
	return nil
}
