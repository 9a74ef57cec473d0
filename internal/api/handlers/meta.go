package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/albiontools/market-helper-go/internal/catalog"
	"github.com/albiontools/market-helper-go/internal/models"
)

func errUnknownRegion(region string) error {
	return fmt.Errorf("unknown region %q, expected one of %v", region, models.Regions)
}

func errOutOfRange(field string, min, max float64) error {
	return fmt.Errorf("%s must be between %g and %g", field, min, max)
}

func errInvalidFeedMode(mode string) error {
	return fmt.Errorf("feed_mode %q must be %q or %q", mode, models.FeedModeBuy, models.FeedModeFarm)
}

func errUnknownFeedItem(itemID string) error {
	return fmt.Errorf("feed_item %q is not a farmable food item", itemID)
}

// GetMeta lists the supported cities, regions and the item catalog.
func GetMeta(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"cities":            models.Cities,
		"items":             catalog.AllItems(),
		"items_by_category": catalog.Items,
		"regions":           models.Regions,
	})
}
