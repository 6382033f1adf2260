package detector

import (
	"time"

	"github.com/ibeanthere/checkin-engine-go/internal/models"
	"github.com/ibeanthere/checkin-engine-go/internal/spatial"
)

// Config tunes the stay state machine
type Config struct {
	ProximityRadiusMeters float64
	EvaluationInterval    time.Duration
	// MinDwell and MaxDwell bound the notification window. A stay only
	// produces a visit candidate while its dwell falls inside the window.
	MinDwell time.Duration
	MaxDwell time.Duration
	// MaxAccuracyMeters gates out low-quality fixes entirely
	MaxAccuracyMeters float64
}

// DefaultConfig is the dwell-confirmed policy: a place must hold the user
// for MinDwell before a candidate is emitted.
func DefaultConfig() Config {
	return Config{
		ProximityRadiusMeters: 100,
		EvaluationInterval:    30 * time.Second,
		MinDwell:              3 * time.Minute,
		MaxDwell:              2 * time.Hour,
		MaxAccuracyMeters:     50,
	}
}

// ImmediateConfig is the responsiveness-first policy: same machine with
// MinDwell zeroed, so entering the radius notifies on the first fix.
func ImmediateConfig() Config {
	cfg := DefaultConfig()
	cfg.MinDwell = 0
	return cfg
}

// gracePeriod is how long a stay survives without being re-observed in range
func (c Config) gracePeriod() time.Duration {
	return 2 * c.EvaluationInterval
}

// Evaluate folds one admissible location sample into the stay map and
// returns any visit candidates produced. States per place:
// ABSENT → PRESENT → (NOTIFIED | ABSENT). The map is mutated in place;
// callers serialize invocations. Pure over (stays, places, sample): time is
// taken from the sample itself, never from the wall clock.
func Evaluate(stays map[string]*models.Stay, places []models.Place, sample models.LocationSample, cfg Config) []models.VisitCandidate {
	if sample.AccuracyMeters > cfg.MaxAccuracyMeters {
		// Low-quality fix: neither creates, extends nor evicts a stay
		return nil
	}

	now := sample.CapturedAt
	var candidates []models.VisitCandidate

	for _, place := range places {
		dist := spatial.HaversineDistance(
			sample.Coordinate.Latitude, sample.Coordinate.Longitude,
			place.Latitude, place.Longitude,
		)

		stay, exists := stays[place.ID]

		if dist > cfg.ProximityRadiusMeters {
			// Out of range: keep the stay through the grace window so GPS
			// jitter or brief signal loss does not end it prematurely
			if exists && now-stay.LastSeenAt > cfg.gracePeriod().Milliseconds() {
				delete(stays, place.ID)
			}
			continue
		}

		if !exists {
			stay = &models.Stay{
				PlaceID:    place.ID,
				EnteredAt:  now,
				LastSeenAt: now,
			}
			stays[place.ID] = stay
		} else {
			stay.LastSeenAt = now
			stay.DwellMs = now - stay.EnteredAt
		}

		if !stay.Notified &&
			stay.DwellMs >= cfg.MinDwell.Milliseconds() &&
			stay.DwellMs <= cfg.MaxDwell.Milliseconds() {
			stay.Notified = true
			candidates = append(candidates, models.VisitCandidate{
				Place:          place,
				Sample:         sample.Coordinate,
				DistanceMeters: dist,
				DwellMs:        stay.DwellMs,
				DetectedAt:     now,
			})
		}
	}

	return candidates
}
