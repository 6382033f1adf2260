package models

// Coordinate is an immutable latitude/longitude pair in WGS84 degrees
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LocationSample is a single position fix produced by the location provider
type LocationSample struct {
	Coordinate     Coordinate `json:"coordinate"`
	AccuracyMeters float64    `json:"accuracyMeters"` // Reported horizontal accuracy (68% confidence radius)
	CapturedAt     int64      `json:"capturedAt"`     // Unix timestamp in milliseconds
}
