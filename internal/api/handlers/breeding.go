package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/albiontools/market-helper-go/internal/catalog"
	"github.com/albiontools/market-helper-go/internal/config"
	"github.com/albiontools/market-helper-go/internal/models"
	"github.com/albiontools/market-helper-go/internal/services"
)

const (
	defaultTxTax    = 0.04
	defaultFeedItem = "T6_POTATO"
)

// BreedingHandler serves the breeding profitability endpoint.
type BreedingHandler struct {
	calculator *services.BreedingCalculator
	cfg        config.MarketConfig
	logger     *logrus.Logger
}

func NewBreedingHandler(calculator *services.BreedingCalculator, cfg config.MarketConfig, logger *logrus.Logger) *BreedingHandler {
	return &BreedingHandler{
		calculator: calculator,
		cfg:        cfg,
		logger:     logger,
	}
}

// Calculate evaluates a breeding plan and returns per-entry profitability.
func (h *BreedingHandler) Calculate(c *gin.Context) {
	var req models.BreedingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params, err := h.resolveParams(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results, err := h.calculator.Calculate(c.Request.Context(), params)
	if err != nil {
		h.logger.WithError(err).Error("breeding calculation failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch prices for breeding plan"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"region":    params.Region,
		"results":   results,
		"timestamp": currentTimestamp(),
		"parameters": gin.H{
			"premium":            params.Premium,
			"setup_fee":          params.SetupFee,
			"tx_tax":             params.TxTax,
			"max_age_hours":      params.MaxAgeHours,
			"feed_mode":          params.FeedMode,
			"use_focus_breeding": params.UseFocusBreeding,
		},
	})
}

func (h *BreedingHandler) resolveParams(req models.BreedingRequest) (services.BreedingParams, error) {
	params := services.BreedingParams{
		Region:           req.Region,
		Cities:           req.Cities,
		MaxAgeHours:      float64(req.MaxAgeHours),
		Premium:          true,
		SetupFee:         h.cfg.DefaultSetupFee,
		TxTax:            defaultTxTax,
		TransportCost:    req.TransportCost,
		SaddlerFees:      req.SaddlerFees,
		UseFocusBreeding: req.UseFocusBreeding,
		FeedMode:         req.FeedMode,
		FeedItem:         req.FeedItem,
		Plan:             req.Plan,
	}

	if params.Region == "" {
		params.Region = models.RegionWest
	}
	if !models.ValidRegion(params.Region) {
		return services.BreedingParams{}, errUnknownRegion(params.Region)
	}

	if req.MaxAgeHours <= 0 {
		params.MaxAgeHours = float64(h.cfg.DefaultMaxAgeHours)
	}
	if req.MaxAgeHours > maxAgeHoursCeiling {
		return services.BreedingParams{}, errOutOfRange("max_age_hours", 1, maxAgeHoursCeiling)
	}
	if req.Premium != nil {
		params.Premium = *req.Premium
	}
	if req.SetupFee != nil {
		if *req.SetupFee < 0 || *req.SetupFee > 0.1 {
			return services.BreedingParams{}, errOutOfRange("setup_fee", 0, 0.1)
		}
		params.SetupFee = *req.SetupFee
	}
	if req.TxTax != nil {
		if *req.TxTax < 0 || *req.TxTax > 0.2 {
			return services.BreedingParams{}, errOutOfRange("tx_tax", 0, 0.2)
		}
		params.TxTax = *req.TxTax
	}
	for city, fee := range params.SaddlerFees {
		if fee < 0 || fee > 1 {
			return services.BreedingParams{}, errOutOfRange("saddler_fees."+city, 0, 1)
		}
	}

	if params.FeedMode == "" {
		params.FeedMode = models.FeedModeBuy
	}
	if params.FeedMode != models.FeedModeBuy && params.FeedMode != models.FeedModeFarm {
		return services.BreedingParams{}, errInvalidFeedMode(params.FeedMode)
	}
	if params.FeedItem == "" {
		params.FeedItem = defaultFeedItem
	}
	if !catalog.KnownFeedItem(params.FeedItem) {
		return services.BreedingParams{}, errUnknownFeedItem(params.FeedItem)
	}

	for _, entry := range params.Plan {
		if entry.Tier < 3 || entry.Tier > 8 {
			return services.BreedingParams{}, errOutOfRange("tier", 3, 8)
		}
	}
	return params, nil
}
