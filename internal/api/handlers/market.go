package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/albiontools/market-helper-go/internal/config"
	"github.com/albiontools/market-helper-go/internal/models"
	"github.com/albiontools/market-helper-go/internal/services"
)

// PriceClient is the remote price service surface the handlers consume.
type PriceClient interface {
	GetPrices(ctx context.Context, region string, items, cities []string, qualities []int) ([]models.PriceQuote, error)
	GetHistory(ctx context.Context, region, item, city string, timescale int) ([]models.HistoryPoint, error)
}

// MarketHandler serves price, opportunity and history endpoints.
type MarketHandler struct {
	client  PriceClient
	merge   *services.MergeService
	pricing *services.PricingCalculator
	cfg     config.MarketConfig
	logger  *logrus.Logger
}

func NewMarketHandler(client PriceClient, merge *services.MergeService, pricing *services.PricingCalculator, cfg config.MarketConfig, logger *logrus.Logger) *MarketHandler {
	return &MarketHandler{
		client:  client,
		merge:   merge,
		pricing: pricing,
		cfg:     cfg,
		logger:  logger,
	}
}

// PricesRequest selects the items, cities and qualities to price.
type PricesRequest struct {
	Region      string   `json:"region"`
	Items       []string `json:"items" binding:"required,min=1"`
	Cities      []string `json:"cities" binding:"required,min=1"`
	Qualities   []int    `json:"qualities"`
	MaxAgeHours int      `json:"max_age_hours"`
}

// OpportunitiesRequest extends the price selection with trading parameters.
type OpportunitiesRequest struct {
	PricesRequest
	Premium        bool     `json:"premium"`
	SetupFee       *float64 `json:"setup_fee"`
	TransportCost  float64  `json:"transport_cost"`
	PreferCaerleon bool     `json:"prefer_caerleon"`
}

// maxAgeHoursCeiling caps the freshness tolerance a request may ask for.
const maxAgeHoursCeiling = 48

type PricesResponse struct {
	Region    string              `json:"region"`
	Prices    []models.PriceQuote `json:"prices"`
	Timestamp string              `json:"timestamp"`
}

func (r *PricesRequest) normalize(cfg config.MarketConfig) {
	if r.Region == "" {
		r.Region = models.RegionWest
	}
	if len(r.Qualities) == 0 {
		r.Qualities = []int{0}
	}
	if r.MaxAgeHours <= 0 {
		r.MaxAgeHours = cfg.DefaultMaxAgeHours
	}
}

func (r *PricesRequest) validate() error {
	if !models.ValidRegion(r.Region) {
		return errUnknownRegion(r.Region)
	}
	if r.MaxAgeHours > maxAgeHoursCeiling {
		return errOutOfRange("max_age_hours", 1, maxAgeHoursCeiling)
	}
	return models.ValidateQualities(r.Qualities)
}

func (h *MarketHandler) setupFee(req *OpportunitiesRequest) (float64, bool) {
	if req.SetupFee == nil {
		return h.cfg.DefaultSetupFee, true
	}
	fee := *req.SetupFee
	if fee < 0 || fee > 0.1 {
		return 0, false
	}
	return fee, true
}

// GetPrices returns current remote prices, age-filtered.
func (h *MarketHandler) GetPrices(c *gin.Context) {
	var req PricesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.normalize(h.cfg)
	if err := req.validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prices, err := h.client.GetPrices(c.Request.Context(), req.Region, req.Items, req.Cities, req.Qualities)
	if err != nil {
		h.logger.WithError(err).Error("failed to fetch prices")
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch prices"})
		return
	}

	filtered := h.pricing.FilterByAge(prices, float64(req.MaxAgeHours))
	c.JSON(http.StatusOK, PricesResponse{
		Region:    req.Region,
		Prices:    filtered,
		Timestamp: currentTimestamp(),
	})
}

// GetPricesV2 prefers locally ingested data: a complete fresh local snapshot
// skips the remote fetch entirely, otherwise remote quotes are merged with
// fresher private ticks.
func (h *MarketHandler) GetPricesV2(c *gin.Context) {
	var req PricesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.normalize(h.cfg)
	if err := req.validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	merged, err := h.mergedSnapshot(c.Request.Context(), req)
	if err != nil {
		h.logger.WithError(err).Error("failed to build merged price snapshot")
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch prices"})
		return
	}

	c.JSON(http.StatusOK, PricesResponse{
		Region:    req.Region,
		Prices:    merged,
		Timestamp: currentTimestamp(),
	})
}

func (h *MarketHandler) mergedSnapshot(ctx context.Context, req PricesRequest) ([]models.PriceQuote, error) {
	local, err := h.merge.GetBestSnapshot(ctx, req.Region, req.Cities, req.Items, req.MaxAgeHours)
	if err != nil {
		return nil, err
	}
	if h.merge.SnapshotComplete(local, req.Cities, req.Items) {
		return local, nil
	}

	remote, err := h.client.GetPrices(ctx, req.Region, req.Items, req.Cities, req.Qualities)
	if err != nil {
		return nil, err
	}
	return h.merge.MergeWithAODP(ctx, remote, req.Region, req.MaxAgeHours)
}

// GetOpportunities runs the profitable-only search over remote prices and
// returns the top ranked routes.
func (h *MarketHandler) GetOpportunities(c *gin.Context) {
	var req OpportunitiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.normalize(h.cfg)
	if err := req.validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	setupFee, ok := h.setupFee(&req)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "setup_fee must be between 0 and 0.1"})
		return
	}

	prices, err := h.client.GetPrices(c.Request.Context(), req.Region, req.Items, req.Cities, req.Qualities)
	if err != nil {
		h.logger.WithError(err).Error("failed to fetch prices")
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch prices"})
		return
	}

	filtered := h.pricing.FilterByAge(prices, float64(req.MaxAgeHours))
	opportunities := h.pricing.CalculateOpportunities(filtered, req.Premium, setupFee, req.TransportCost, req.PreferCaerleon)
	if len(opportunities) > h.cfg.TopOpportunities {
		opportunities = opportunities[:h.cfg.TopOpportunities]
	}

	c.JSON(http.StatusOK, gin.H{
		"region":        req.Region,
		"opportunities": opportunities,
		"timestamp":     currentTimestamp(),
		"parameters": gin.H{
			"premium":        req.Premium,
			"setup_fee":      setupFee,
			"transport_cost": req.TransportCost,
			"max_age_hours":  req.MaxAgeHours,
		},
	})
}

// GetOpportunitiesV2 returns the unfiltered route set, negative routes
// included, computed over the merged private/remote snapshot.
func (h *MarketHandler) GetOpportunitiesV2(c *gin.Context) {
	var req OpportunitiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.normalize(h.cfg)
	if err := req.validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	setupFee, ok := h.setupFee(&req)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "setup_fee must be between 0 and 0.1"})
		return
	}

	merged, err := h.mergedSnapshot(c.Request.Context(), req.PricesRequest)
	if err != nil {
		h.logger.WithError(err).Error("failed to build merged price snapshot")
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch prices"})
		return
	}

	routes, stats := h.pricing.CalculateAllRoutes(merged, req.Premium, setupFee, req.TransportCost)

	c.JSON(http.StatusOK, gin.H{
		"region":        req.Region,
		"opportunities": routes,
		"timestamp":     currentTimestamp(),
		"parameters": gin.H{
			"premium":        req.Premium,
			"setup_fee":      setupFee,
			"transport_cost": req.TransportCost,
			"max_age_hours":  req.MaxAgeHours,
		},
		"stats": stats,
	})
}

// GetHistory returns time-bucketed history for one item in one city.
func (h *MarketHandler) GetHistory(c *gin.Context) {
	region := c.DefaultQuery("region", models.RegionWest)
	item := c.Query("item")
	city := c.Query("city")
	timescale, err := strconv.Atoi(c.DefaultQuery("timescale", "24"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "timescale must be an integer"})
		return
	}

	if item == "" || city == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "item and city are required"})
		return
	}
	if !models.ValidRegion(region) {
		c.JSON(http.StatusBadRequest, gin.H{"error": errUnknownRegion(region).Error()})
		return
	}

	history, err := h.client.GetHistory(c.Request.Context(), region, item, city, timescale)
	if err != nil {
		h.logger.WithError(err).Error("failed to fetch history")
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"region":    region,
		"item":      item,
		"city":      city,
		"timescale": timescale,
		"data":      history,
	})
}

func currentTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
