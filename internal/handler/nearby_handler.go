package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ibeanthere/checkin-engine-go/internal/service"
	"github.com/ibeanthere/checkin-engine-go/pkg/response"
)

// NearbyHandler handles HTTP requests for nearby-place queries
type NearbyHandler struct {
	service *service.NearbyService
}

// NewNearbyHandler creates a new nearby handler
func NewNearbyHandler(service *service.NearbyService) *NearbyHandler {
	return &NearbyHandler{service: service}
}

// GetNearby handles GET /api/v1/places/nearby?lat&lng&radius
func (h *NearbyHandler) GetNearby(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		response.BadRequest(c, "Invalid lat parameter")
		return
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		response.BadRequest(c, "Invalid lng parameter")
		return
	}
	radius, err := strconv.Atoi(c.DefaultQuery("radius", "2000"))
	if err != nil || radius <= 0 {
		response.BadRequest(c, "Invalid radius parameter")
		return
	}

	places, err := h.service.Nearby(c.Request.Context(), lat, lng, radius)
	if err != nil {
		response.BadGateway(c, "Failed to query nearby places")
		return
	}

	response.Success(c, gin.H{
		"places": places,
		"count":  len(places),
	})
}

// GetCacheStats handles GET /api/v1/places/cache/stats
func (h *NearbyHandler) GetCacheStats(c *gin.Context) {
	response.Success(c, h.service.CacheStats())
}

// EvictExpired handles POST /api/v1/places/cache/evict
func (h *NearbyHandler) EvictExpired(c *gin.Context) {
	removed := h.service.EvictExpired()
	response.Success(c, gin.H{"removed": removed})
}
