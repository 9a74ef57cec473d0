package services

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/albiontools/market-helper-go/internal/catalog"
	"github.com/albiontools/market-helper-go/internal/models"
)

// Tax rates charged when a sell order completes.
const (
	PremiumTaxRate    = 0.04
	NonPremiumTaxRate = 0.08
)

var (
	decimalOne     = decimal.NewFromInt(1)
	decimalHundred = decimal.NewFromInt(100)
	// Ranking nudge for Caerleon routes, applied to the reported percentage.
	caerleonBoost = decimal.NewFromFloat(1.10)
)

// PricingCalculator is the profit engine: age filtering, the fee/tax model
// and the cross-city opportunity search. Pure computation, no I/O.
type PricingCalculator struct {
	now func() time.Time
}

func NewPricingCalculator() *PricingCalculator {
	return &PricingCalculator{now: time.Now}
}

// timestampFormats covers the feed's RFC3339 variants plus the private
// client's space-separated form.
var timestampFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// AgeHours computes the age of a timestamp in hours. Missing or unparsable
// timestamps count as maximally stale.
func (p *PricingCalculator) AgeHours(timestamp string) float64 {
	if timestamp == "" {
		return models.MaxAgeSentinelHours
	}
	for _, format := range timestampFormats {
		if ts, err := time.Parse(format, timestamp); err == nil {
			return p.now().UTC().Sub(ts.UTC()).Hours()
		}
	}
	return models.MaxAgeSentinelHours
}

// FilterByAge drops quotes older than maxAgeHours and annotates the survivors
// (and only them as returned values; inputs are not mutated) with their age.
// A quote's age is the smaller of its sell-order and buy-order ages, so one
// fresh side keeps the quote alive. Input order is preserved.
func (p *PricingCalculator) FilterByAge(quotes []models.PriceQuote, maxAgeHours float64) []models.PriceQuote {
	filtered := make([]models.PriceQuote, 0, len(quotes))
	for _, quote := range quotes {
		sellAge := p.AgeHours(quote.SellPriceMinDate)
		buyAge := p.AgeHours(quote.BuyPriceMaxDate)

		age := sellAge
		if buyAge < age {
			age = buyAge
		}
		quote.AgeHours = age

		if age <= maxAgeHours {
			filtered = append(filtered, quote)
		}
	}
	return filtered
}

// TaxRate returns the transaction tax rate for the account type.
func TaxRate(premium bool) float64 {
	if premium {
		return PremiumTaxRate
	}
	return NonPremiumTaxRate
}

// CalculateProfit is the single source of truth for trade profit. The setup
// fee is charged on both legs, the transaction tax only on the sell leg:
//
//	effective_buy  = buy * (1 + setup_fee)
//	net_sell       = sell * (1 - tax - setup_fee)
//	absolute       = net_sell - effective_buy - transport
//	percentage     = absolute / effective_buy * 100
func (p *PricingCalculator) CalculateProfit(buyPrice, sellPrice float64, premium bool, setupFeeRate, transportCost float64) (absolute, percentage decimal.Decimal) {
	buy := decimal.NewFromFloat(buyPrice)
	sell := decimal.NewFromFloat(sellPrice)
	setup := decimal.NewFromFloat(setupFeeRate)
	tax := decimal.NewFromFloat(TaxRate(premium))
	transport := decimal.NewFromFloat(transportCost)

	effectiveBuy := buy.Mul(decimalOne.Add(setup))
	netSell := sell.Mul(decimalOne.Sub(tax).Sub(setup))
	absolute = netSell.Sub(effectiveBuy).Sub(transport)

	if effectiveBuy.IsZero() {
		return absolute, decimal.Zero
	}
	return absolute, absolute.Div(effectiveBuy).Mul(decimalHundred)
}

// bucketKey groups quotes for the pair search.
type bucketKey struct {
	ItemID  string
	Quality int
}

// cityBucket keeps at most one quote per city, in first-seen city order.
// A later quote for an already-seen city replaces the earlier one.
type cityBucket struct {
	cities []string
	quotes map[string]models.PriceQuote
}

func groupByItemQuality(quotes []models.PriceQuote) ([]bucketKey, map[bucketKey]*cityBucket) {
	var order []bucketKey
	buckets := make(map[bucketKey]*cityBucket)
	for _, quote := range quotes {
		key := bucketKey{ItemID: quote.ItemID, Quality: quote.Quality}
		bucket, ok := buckets[key]
		if !ok {
			bucket = &cityBucket{quotes: make(map[string]models.PriceQuote)}
			buckets[key] = bucket
			order = append(order, key)
		}
		if _, seen := bucket.quotes[quote.City]; !seen {
			bucket.cities = append(bucket.cities, quote.City)
		}
		bucket.quotes[quote.City] = quote
	}
	return order, buckets
}

// tradePair is one candidate (buy city, sell city) combination that passed
// the price sanity checks shared by both search modes.
type tradePair struct {
	key       bucketKey
	buy       models.PriceQuote
	sell      models.PriceQuote
	buyPrice  float64
	sellPrice float64
}

func candidatePairs(quotes []models.PriceQuote) []tradePair {
	order, buckets := groupByItemQuality(quotes)

	var pairs []tradePair
	for _, key := range order {
		bucket := buckets[key]
		for _, buyCity := range bucket.cities {
			for _, sellCity := range bucket.cities {
				if buyCity == sellCity {
					continue
				}
				buyQuote := bucket.quotes[buyCity]
				sellQuote := bucket.quotes[sellCity]

				// Buy from the cheapest sell order, sell to the highest buy order.
				buyPrice := buyQuote.SellPriceMin
				sellPrice := sellQuote.BuyPriceMax
				if buyPrice <= 0 || sellPrice <= 0 || sellPrice <= buyPrice {
					continue
				}
				pairs = append(pairs, tradePair{
					key:       key,
					buy:       buyQuote,
					sell:      sellQuote,
					buyPrice:  buyPrice,
					sellPrice: sellPrice,
				})
			}
		}
	}
	return pairs
}

func isCaerleonRoute(buyCity, sellCity string) bool {
	return buyCity == "Caerleon" || sellCity == "Caerleon"
}

// CalculateOpportunities runs the full pair search and keeps only routes with
// positive absolute profit. When preferCaerleon is set, Caerleon routes get
// their reported percentage multiplied by 1.10; this nudges ranking only, the
// absolute profit stays untouched. Ordering: percentage desc, then absolute
// desc, stable on input order.
func (p *PricingCalculator) CalculateOpportunities(quotes []models.PriceQuote, premium bool, setupFee, transportCost float64, preferCaerleon bool) []models.Opportunity {
	var opportunities []models.Opportunity
	for _, pair := range candidatePairs(quotes) {
		absolute, percentage := p.CalculateProfit(pair.buyPrice, pair.sellPrice, premium, setupFee, transportCost)
		if !absolute.IsPositive() {
			continue
		}

		caerleon := isCaerleonRoute(pair.buy.City, pair.sell.City)
		percentage = percentage.Round(2)
		if preferCaerleon && caerleon {
			percentage = percentage.Mul(caerleonBoost)
		}

		dataAge := pair.buy.AgeHours
		if pair.sell.AgeHours > dataAge {
			dataAge = pair.sell.AgeHours
		}

		opportunities = append(opportunities, models.Opportunity{
			ItemID:             pair.key.ItemID,
			ItemName:           catalog.ItemName(pair.key.ItemID),
			Quality:            pair.key.Quality,
			BuyCity:            pair.buy.City,
			SellCity:           pair.sell.City,
			BuyPrice:           pair.buyPrice,
			SellPrice:          pair.sellPrice,
			BuyTimestamp:       pair.buy.SellPriceMinDate,
			SellTimestamp:      pair.sell.BuyPriceMaxDate,
			FeesPercentage:     TaxRate(premium) + setupFee,
			SetupFeePercentage: setupFee,
			TransportCost:      transportCost,
			ProfitAbsolute:     absolute.Round(2),
			ProfitPercentage:   percentage,
			IsCaerleonRoute:    caerleon,
			DataAgeHours:       dataAge,
		})
	}

	sortByProfit(opportunities, func(o models.Opportunity) (decimal.Decimal, decimal.Decimal) {
		return o.ProfitPercentage, o.ProfitAbsolute
	})
	return opportunities
}

// CalculateAllRoutes is the unfiltered search mode: every candidate pair is
// emitted regardless of profitability, tagged with per-leg source and age so
// callers can judge the data themselves.
func (p *PricingCalculator) CalculateAllRoutes(quotes []models.PriceQuote, premium bool, setupFee, transportCost float64) ([]models.Route, models.RouteStats) {
	var routes []models.Route
	var stats models.RouteStats

	for _, pair := range candidatePairs(quotes) {
		absolute, percentage := p.CalculateProfit(pair.buyPrice, pair.sellPrice, premium, setupFee, transportCost)
		profitable := absolute.IsPositive()

		routes = append(routes, models.Route{
			ItemID:           pair.key.ItemID,
			ItemName:         catalog.ItemName(pair.key.ItemID),
			Quality:          pair.key.Quality,
			BuyCity:          pair.buy.City,
			SellCity:         pair.sell.City,
			BuyPrice:         pair.buyPrice,
			SellPrice:        pair.sellPrice,
			BuyTimestamp:     pair.buy.SellPriceMinDate,
			SellTimestamp:    pair.sell.BuyPriceMaxDate,
			ProfitAbsolute:   absolute.Round(2),
			ProfitPercentage: percentage.Round(2),
			SourceBuy:        sourceOrAODP(pair.buy.Source),
			SourceSell:       sourceOrAODP(pair.sell.Source),
			AgeBuyHours:      pair.buy.AgeHours,
			AgeSellHours:     pair.sell.AgeHours,
			IsCaerleonRoute:  isCaerleonRoute(pair.buy.City, pair.sell.City),
			IsProfitable:     profitable,
		})

		stats.TotalRoutes++
		if profitable {
			stats.ProfitableRoutes++
		} else {
			stats.NegativeRoutes++
		}
		if pair.buy.Source == models.SourcePrivate || pair.sell.Source == models.SourcePrivate {
			stats.PrivateDataUsed++
		}
	}

	sortByProfit(routes, func(r models.Route) (decimal.Decimal, decimal.Decimal) {
		return r.ProfitPercentage, r.ProfitAbsolute
	})
	return routes, stats
}

func sourceOrAODP(s models.Source) models.Source {
	if s == "" {
		return models.SourceAODP
	}
	return s
}

// sortByProfit orders by percentage desc then absolute desc, keeping input
// order for full ties.
func sortByProfit[T any](items []T, key func(T) (decimal.Decimal, decimal.Decimal)) {
	sort.SliceStable(items, func(i, j int) bool {
		pi, ai := key(items[i])
		pj, aj := key(items[j])
		if c := pi.Cmp(pj); c != 0 {
			return c > 0
		}
		return ai.Cmp(aj) > 0
	})
}
