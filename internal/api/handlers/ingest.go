package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/albiontools/market-helper-go/internal/models"
	"github.com/albiontools/market-helper-go/internal/services"
)

// IngestHandler receives private market data batches.
type IngestHandler struct {
	service *services.IngestService
	logger  *logrus.Logger
}

func NewIngestHandler(service *services.IngestService, logger *logrus.Logger) *IngestHandler {
	return &IngestHandler{service: service, logger: logger}
}

// IngestRequest is one batch submitted by the private data client.
type IngestRequest struct {
	Records []models.IngestRecord `json:"records" binding:"required"`
}

// IngestADC stores a batch of records sent by the Albion Data Client.
func (h *IngestHandler) IngestADC(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.service.Ingest(c.Request.Context(), req.Records)
	if err != nil {
		h.logger.WithError(err).Error("ingest batch failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store batch"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"stats":  report,
	})
}

// GetStats reports ingestion counters and data freshness.
func (h *IngestHandler) GetStats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("failed to assemble ingest stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
