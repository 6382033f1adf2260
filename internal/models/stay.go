package models

// Stay tracks an in-progress dwell near a single place.
// Owned exclusively by the stay detector; at most one Stay exists per place.
// Notified transitions false→true exactly once and never reverts for the
// lifetime of one Stay.
type Stay struct {
	PlaceID    string `json:"placeId"`
	EnteredAt  int64  `json:"enteredAt"`  // Unix timestamp in milliseconds
	LastSeenAt int64  `json:"lastSeenAt"` // Unix timestamp in milliseconds
	DwellMs    int64  `json:"dwellMs"`
	Notified   bool   `json:"notified"`
}

// VisitCandidate is emitted by the stay detector when a Stay first satisfies
// the dwell window. At most one candidate is emitted per Stay.
type VisitCandidate struct {
	Place          Place      `json:"place"`
	Sample         Coordinate `json:"sample"`
	DistanceMeters float64    `json:"distanceMeters"`
	DwellMs        int64      `json:"dwellMs"`
	DetectedAt     int64      `json:"detectedAt"` // Unix timestamp in milliseconds
}
