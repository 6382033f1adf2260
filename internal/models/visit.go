package models

// VisitRecord is the payload submitted to the external visit-recording API
// once a check-in passes validation. Ownership transfers to the API on submit.
type VisitRecord struct {
	ID             string  `json:"id,omitempty"`
	PlaceID        string  `json:"placeId"`
	UserID         string  `json:"userId"`
	CheckInLat     float64 `json:"checkInLat"`
	CheckInLng     float64 `json:"checkInLng"`
	DistanceMeters float64 `json:"distanceMeters"`
	AutoDetected   bool    `json:"autoDetected"`
	Confirmed      bool    `json:"confirmed"`
	VisitedAt      string  `json:"visitedAt,omitempty"` // RFC3339, set by the server
}

// CheckInRequest is a manual or auto-detected check-in attempt before validation
type CheckInRequest struct {
	PlaceID      string     `json:"placeId" binding:"required"`
	Position     Coordinate `json:"position"`
	AutoDetected bool       `json:"autoDetected"`

	// Previous accepted fix, when known, for the speed plausibility gate
	PreviousPosition *Coordinate `json:"previousPosition,omitempty"`
	PreviousAt       int64       `json:"previousAt,omitempty"` // Unix timestamp in milliseconds
}
