package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/albiontools/market-helper-go/internal/catalog"
	"github.com/albiontools/market-helper-go/internal/models"
)

// PriceFetcher is the slice of the remote client the breeding engine needs.
type PriceFetcher interface {
	GetPrices(ctx context.Context, region string, items, cities []string, qualities []int) ([]models.PriceQuote, error)
}

// BreedingParams is a fully resolved breeding calculation call. Defaults for
// omitted request fields are applied at the API boundary before this point.
type BreedingParams struct {
	Region           string
	Cities           []string
	MaxAgeHours      float64
	Premium          bool
	SetupFee         float64
	TxTax            float64
	TransportCost    float64
	SaddlerFees      map[string]float64
	UseFocusBreeding bool
	FeedMode         string
	FeedItem         string
	Plan             []models.PlanEntry
}

// BreedingCalculator computes end-to-end profitability of breeding farm
// animals and crafting them into mounts at a saddler.
type BreedingCalculator struct {
	fetcher          PriceFetcher
	pricing          *PricingCalculator
	logger           *logrus.Logger
	farmFeedUnitCost float64
}

func NewBreedingCalculator(fetcher PriceFetcher, pricing *PricingCalculator, farmFeedUnitCost float64, logger *logrus.Logger) *BreedingCalculator {
	return &BreedingCalculator{
		fetcher:          fetcher,
		pricing:          pricing,
		logger:           logger,
		farmFeedUnitCost: farmFeedUnitCost,
	}
}

// Calculate evaluates every plan entry and returns results sorted by profit
// percentage descending. Entries with no recipe, no growth data or no viable
// sell city are omitted, never reported as errors.
func (b *BreedingCalculator) Calculate(ctx context.Context, params BreedingParams) ([]models.BreedingResult, error) {
	results := make([]models.BreedingResult, 0, len(params.Plan))

	for _, entry := range params.Plan {
		mountID := catalog.MountID(entry.Type, entry.Tier)
		recipe, ok := catalog.RecipeFor(mountID)
		if !ok {
			b.logger.WithField("mount_id", mountID).Debug("no saddler recipe, skipping plan entry")
			continue
		}
		growth, ok := catalog.BreedingForTier(entry.Tier)
		if !ok {
			continue
		}

		animalCost, err := b.animalCost(ctx, params, growth)
		if err != nil {
			return nil, err
		}

		materialsCost, materialsCity, breakdown, err := b.materialsCost(ctx, params, recipe.Materials)
		if err != nil {
			return nil, err
		}

		saddlerCity, saddlerFee := bestSaddler(params.Cities, params.SaddlerFees, materialsCost)

		mountPrices, err := b.fetcher.GetPrices(ctx, params.Region, []string{mountID}, params.Cities, []int{0})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch mount prices for %s: %w", mountID, err)
		}
		freshMounts := b.pricing.FilterByAge(mountPrices, params.MaxAgeHours)

		sellCity, sellPrice, revenueNet, viable := bestSellCity(freshMounts, params.TxTax, params.SetupFee)
		if !viable {
			b.logger.WithField("mount_id", mountID).Debug("no viable sell city, skipping plan entry")
			continue
		}

		costTotal := animalCost.TotalCost.
			Add(materialsCost).
			Add(saddlerFee).
			Add(decimal.NewFromFloat(params.TransportCost))

		profitAbs := revenueNet.Sub(costTotal)
		profitPct := decimal.Zero
		if costTotal.IsPositive() {
			profitPct = profitAbs.Div(costTotal).Mul(decimal.NewFromInt(100))
		}

		results = append(results, models.BreedingResult{
			MountID:   mountID,
			MountName: recipe.Name,
			Quantity:  entry.Quantity,
			Tier:      entry.Tier,
			Type:      entry.Type,

			AnimalCost:         animalCost,
			MaterialsCost:      materialsCost,
			MaterialsCity:      materialsCity,
			MaterialsBreakdown: breakdown,
			SaddlerCity:        saddlerCity,
			SaddlerFee:         saddlerFee,

			SellCity:   sellCity,
			SellPrice:  sellPrice,
			RevenueNet: revenueNet,

			CostTotal:        costTotal.Round(2),
			ProfitAbsolute:   profitAbs.Round(2),
			ProfitPercentage: profitPct.Round(2),
			TotalProfit:      profitAbs.Mul(decimal.NewFromInt(int64(entry.Quantity))).Round(2),

			Route: fmt.Sprintf("Buy materials in %s -> Saddler in %s -> Sell in %s", materialsCity, saddlerCity, sellCity),

			GrowHours:       growth.GrowHours(params.Premium),
			TotalFood:       growth.TotalFood,
			OffspringChance: growth.OffspringChance(params.UseFocusBreeding),
			DataAgeHours:    averageAge(freshMounts),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].ProfitPercentage.GreaterThan(results[j].ProfitPercentage)
	})
	return results, nil
}

// animalCost prices the feed needed to raise the source animal. Buy mode
// shops the cheapest fresh feed price across the candidate cities; farm mode
// uses a flat per-unit estimate, an approximation rather than a market figure.
func (b *BreedingCalculator) animalCost(ctx context.Context, params BreedingParams, growth catalog.BreedingData) (models.AnimalCost, error) {
	cost := models.AnimalCost{
		Mode:            "breed",
		TotalCost:       decimal.Zero,
		FoodCostPerUnit: decimal.Zero,
		FoodCity:        "Unknown",
		TotalFoodNeeded: growth.TotalFood,
		GrowHours:       growth.GrowHours(params.Premium),
		OffspringChance: growth.OffspringChance(params.UseFocusBreeding),
	}

	if params.FeedMode != models.FeedModeBuy {
		cost.FoodCostPerUnit = decimal.NewFromFloat(b.farmFeedUnitCost)
		cost.TotalCost = cost.FoodCostPerUnit.Mul(decimal.NewFromInt(int64(growth.TotalFood)))
		cost.FoodCity = "Own Farm"
		return cost, nil
	}

	prices, err := b.fetcher.GetPrices(ctx, params.Region, []string{params.FeedItem}, params.Cities, []int{0})
	if err != nil {
		return models.AnimalCost{}, fmt.Errorf("failed to fetch feed prices for %s: %w", params.FeedItem, err)
	}
	fresh := b.pricing.FilterByAge(prices, params.MaxAgeHours)

	city, minPrice, found := cheapestSell(fresh)
	if !found {
		return cost, nil
	}

	cost.FoodCity = city
	cost.FoodCostPerUnit = decimal.NewFromFloat(minPrice).
		Mul(decimal.NewFromFloat(1 + params.SetupFee))
	cost.TotalCost = cost.FoodCostPerUnit.Mul(decimal.NewFromInt(int64(growth.TotalFood)))
	return cost, nil
}

// materialsCost shops each required material in its cheapest fresh city and
// sums the setup-fee-adjusted totals. The reported city is the one chosen for
// the first priced material, an approximation since materials may be cheapest
// in different cities.
func (b *BreedingCalculator) materialsCost(ctx context.Context, params BreedingParams, materials []catalog.Material) (decimal.Decimal, string, []models.MaterialLine, error) {
	total := decimal.Zero
	firstCity := ""
	breakdown := make([]models.MaterialLine, 0, len(materials))

	for _, material := range materials {
		prices, err := b.fetcher.GetPrices(ctx, params.Region, []string{material.ItemID}, params.Cities, []int{0})
		if err != nil {
			return decimal.Zero, "", nil, fmt.Errorf("failed to fetch material prices for %s: %w", material.ItemID, err)
		}
		fresh := b.pricing.FilterByAge(prices, params.MaxAgeHours)

		city, minPrice, found := cheapestSell(fresh)
		if !found {
			continue
		}

		unitCost := decimal.NewFromFloat(minPrice).
			Mul(decimal.NewFromFloat(1 + params.SetupFee))
		lineTotal := unitCost.Mul(decimal.NewFromInt(int64(material.Quantity)))
		total = total.Add(lineTotal)

		breakdown = append(breakdown, models.MaterialLine{
			ItemID:    material.ItemID,
			Quantity:  material.Quantity,
			UnitPrice: minPrice,
			Total:     lineTotal.Round(2),
			City:      city,
		})
		if firstCity == "" {
			firstCity = city
		}
	}

	if firstCity == "" {
		firstCity = "Unknown"
	}
	return total, firstCity, breakdown, nil
}

func cheapestSell(quotes []models.PriceQuote) (string, float64, bool) {
	city := ""
	best := 0.0
	for _, quote := range quotes {
		if quote.SellPriceMin <= 0 {
			continue
		}
		if city == "" || quote.SellPriceMin < best {
			best = quote.SellPriceMin
			city = quote.City
		}
	}
	return city, best, city != ""
}

// bestSaddler picks the city with the lowest fee on the materials cost among
// cities that have a configured rate, defaulting to the first candidate city
// at zero fee when none do.
func bestSaddler(cities []string, fees map[string]float64, materialsCost decimal.Decimal) (string, decimal.Decimal) {
	bestCity := ""
	bestFee := decimal.Zero

	for _, city := range cities {
		rate, ok := fees[city]
		if !ok {
			continue
		}
		fee := materialsCost.Mul(decimal.NewFromFloat(rate))
		if bestCity == "" || fee.LessThan(bestFee) {
			bestCity = city
			bestFee = fee
		}
	}

	if bestCity == "" && len(cities) > 0 {
		bestCity = cities[0]
	}
	return bestCity, bestFee
}

// bestSellCity maximizes buy_price_max net of transaction tax and setup fee.
// A best revenue of zero means no city can absorb the mount at all.
func bestSellCity(quotes []models.PriceQuote, txTax, setupFee float64) (string, float64, decimal.Decimal, bool) {
	bestCity := ""
	bestPrice := 0.0
	bestRevenue := decimal.Zero

	for _, quote := range quotes {
		if quote.BuyPriceMax <= 0 {
			continue
		}
		price := decimal.NewFromFloat(quote.BuyPriceMax)
		revenue := price.Mul(decimal.NewFromFloat(1 - txTax)).
			Sub(price.Mul(decimal.NewFromFloat(setupFee)))
		if revenue.GreaterThan(bestRevenue) {
			bestRevenue = revenue
			bestPrice = quote.BuyPriceMax
			bestCity = quote.City
		}
	}

	return bestCity, bestPrice, bestRevenue, bestCity != ""
}

func averageAge(quotes []models.PriceQuote) float64 {
	if len(quotes) == 0 {
		return mergeAgeSentinelHours
	}
	total := 0.0
	for _, quote := range quotes {
		total += quote.AgeHours
	}
	return total / float64(len(quotes))
}
