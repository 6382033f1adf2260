package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ibeanthere/checkin-engine-go/internal/geolocation"
	"github.com/ibeanthere/checkin-engine-go/internal/models"
	"github.com/ibeanthere/checkin-engine-go/pkg/response"
)

// LocationHandler bridges the host UI's geolocation callbacks into the
// engine's push source and exposes on-demand reads
type LocationHandler struct {
	source   *geolocation.PushSource
	provider *geolocation.Provider
}

// NewLocationHandler creates a new location handler
func NewLocationHandler(source *geolocation.PushSource, provider *geolocation.Provider) *LocationHandler {
	return &LocationHandler{source: source, provider: provider}
}

type locationPush struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	AccuracyMeters float64 `json:"accuracyMeters"`
	CapturedAt     int64   `json:"capturedAt" binding:"required"`
}

type locationError struct {
	Code string `json:"code" binding:"required"`
}

// PostSample handles POST /api/v1/location — one device geolocation callback
func (h *LocationHandler) PostSample(c *gin.Context) {
	var push locationPush
	if err := c.ShouldBindJSON(&push); err != nil {
		response.BadRequest(c, "Invalid location payload")
		return
	}

	h.source.Deliver(models.LocationSample{
		Coordinate: models.Coordinate{
			Latitude:  push.Latitude,
			Longitude: push.Longitude,
		},
		AccuracyMeters: push.AccuracyMeters,
		CapturedAt:     push.CapturedAt,
	})

	response.Success(c, gin.H{"accepted": true})
}

// PostError handles POST /api/v1/location/error — a typed acquisition failure
func (h *LocationHandler) PostError(c *gin.Context) {
	var push locationError
	if err := c.ShouldBindJSON(&push); err != nil {
		response.BadRequest(c, "Invalid error payload")
		return
	}

	var code geolocation.ErrorCode
	switch push.Code {
	case "PERMISSION_DENIED":
		code = geolocation.PermissionDenied
	case "POSITION_UNAVAILABLE":
		code = geolocation.PositionUnavailable
	case "TIMEOUT":
		code = geolocation.Timeout
	case "UNSUPPORTED":
		code = geolocation.Unsupported
	default:
		response.BadRequest(c, "Unknown error code")
		return
	}

	h.source.DeliverError(geolocation.NewPositionError(code, "reported by host"))
	response.Success(c, gin.H{"accepted": true})
}

// GetCurrent handles GET /api/v1/location/current — on-demand read through
// the shared cache and fallback tiers
func (h *LocationHandler) GetCurrent(c *gin.Context) {
	sample, err := h.provider.Current(c.Request.Context())
	if err != nil {
		switch geolocation.CodeOf(err) {
		case geolocation.PermissionDenied:
			response.Error(c, 403, "Location permission denied")
		case geolocation.Unsupported:
			response.Error(c, 501, "Geolocation not supported on this device")
		default:
			response.Error(c, 504, "Position unavailable")
		}
		return
	}

	response.Success(c, sample)
}
