package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/ibeanthere/checkin-engine-go/internal/middleware"
	"github.com/ibeanthere/checkin-engine-go/internal/service"
	"github.com/ibeanthere/checkin-engine-go/pkg/response"
)

// TrackingHandler handles HTTP requests for the tracking session
type TrackingHandler struct {
	service *service.TrackingService
}

// NewTrackingHandler creates a new tracking handler
func NewTrackingHandler(service *service.TrackingService) *TrackingHandler {
	return &TrackingHandler{service: service}
}

type startTrackingRequest struct {
	RadiusMeters int `json:"radiusMeters"`
}

// StartTracking handles POST /api/v1/tracking/start
func (h *TrackingHandler) StartTracking(c *gin.Context) {
	var req startTrackingRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.BadRequest(c, "Invalid tracking payload")
		return
	}
	if req.RadiusMeters <= 0 {
		req.RadiusMeters = 2000
	}

	token := c.GetString(middleware.ContextToken)
	userID := c.GetString(middleware.ContextUserID)

	if err := h.service.Start(c.Request.Context(), token, userID, req.RadiusMeters); err != nil {
		if errors.Is(err, service.ErrTrackingActive) {
			response.Conflict(c, "Tracking already active")
			return
		}
		response.BadGateway(c, "Failed to start tracking")
		return
	}

	response.Success(c, h.service.Status())
}

// StopTracking handles POST /api/v1/tracking/stop
func (h *TrackingHandler) StopTracking(c *gin.Context) {
	if err := h.service.Stop(); err != nil {
		response.Conflict(c, "Tracking not active")
		return
	}
	response.Success(c, gin.H{"stopped": true})
}

// GetStatus handles GET /api/v1/tracking/status
func (h *TrackingHandler) GetStatus(c *gin.Context) {
	response.Success(c, h.service.Status())
}
