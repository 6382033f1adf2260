package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/ibeanthere/checkin-engine-go/internal/checkin"
	"github.com/ibeanthere/checkin-engine-go/internal/middleware"
	"github.com/ibeanthere/checkin-engine-go/internal/models"
	"github.com/ibeanthere/checkin-engine-go/internal/service"
	"github.com/ibeanthere/checkin-engine-go/pkg/response"
)

// CheckInHandler handles HTTP requests for manual check-ins
type CheckInHandler struct {
	service *service.CheckInService
}

// NewCheckInHandler creates a new check-in handler
func NewCheckInHandler(service *service.CheckInService) *CheckInHandler {
	return &CheckInHandler{service: service}
}

// PostCheckIn handles POST /api/v1/checkins
func (h *CheckInHandler) PostCheckIn(c *gin.Context) {
	var req models.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid check-in payload")
		return
	}

	token := c.GetString(middleware.ContextToken)
	userID := c.GetString(middleware.ContextUserID)

	result, err := h.service.CheckIn(c.Request.Context(), token, userID, req)
	if err != nil {
		if errors.Is(err, service.ErrPlaceNotFound) {
			response.NotFound(c, "Place not found")
			return
		}
		response.BadGateway(c, "Check-in could not be completed")
		return
	}

	switch result.Outcome {
	case checkin.OutcomeRecorded:
		response.Success(c, result)
	case checkin.OutcomeAlreadyVisited:
		response.Conflict(c, result.Message)
	default:
		// too_far and implausible_speed are rejected candidates, not errors
		c.JSON(422, response.Response{
			Code:    422,
			Message: result.Message,
			Data:    result,
		})
	}
}
