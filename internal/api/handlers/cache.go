package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/albiontools/market-helper-go/internal/cache"
)

// CacheHandler exposes the admin surface of the response cache.
type CacheHandler struct {
	cache cache.ResponseCache
}

func NewCacheHandler(c cache.ResponseCache) *CacheHandler {
	return &CacheHandler{cache: c}
}

// Clear drops every cached remote response.
func (h *CacheHandler) Clear(c *gin.Context) {
	h.cache.Clear()
	c.JSON(http.StatusOK, gin.H{"message": "cache cleared"})
}
