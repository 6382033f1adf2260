package checkin

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ibeanthere/checkin-engine-go/internal/models"
	"github.com/ibeanthere/checkin-engine-go/internal/spatial"
)

// Outcome discriminates check-in results so callers can branch without
// string matching. Rejections are expected business outcomes, not errors.
type Outcome int

const (
	// OutcomeRecorded means the visit passed both gates and was submitted
	OutcomeRecorded Outcome = iota + 1
	// OutcomeTooFar means the measured distance exceeded the hard radius
	OutcomeTooFar
	// OutcomeAlreadyVisited means a same-day visit already exists
	OutcomeAlreadyVisited
	// OutcomeImplausibleSpeed means the implied travel speed from the
	// previous fix marks the position as spoofed
	OutcomeImplausibleSpeed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRecorded:
		return "recorded"
	case OutcomeTooFar:
		return "too_far"
	case OutcomeAlreadyVisited:
		return "already_visited"
	case OutcomeImplausibleSpeed:
		return "implausible_speed"
	}
	return "unknown"
}

// MarshalJSON emits the symbolic name, which is what UI consumers match on
func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// Result carries the outcome of one check-in attempt
type Result struct {
	Outcome        Outcome             `json:"outcome"`
	Visit          *models.VisitRecord `json:"visit,omitempty"`
	DistanceMeters float64             `json:"distanceMeters"`
	SpeedKmh       float64             `json:"speedKmh,omitempty"`
	Message        string              `json:"message,omitempty"`
}

// Config tunes the validation gates
type Config struct {
	// HardRadiusMeters is re-validated independently of whatever radius
	// the stay detector used
	HardRadiusMeters float64
	// SuspiciousSpeedKmh triggers a fraud log entry but allows the check-in
	SuspiciousSpeedKmh float64
	// RejectSpeedKmh rejects the attempt outright
	RejectSpeedKmh float64
}

// DefaultConfig returns the production gates
func DefaultConfig() Config {
	return Config{
		HardRadiusMeters:   50,
		SuspiciousSpeedKmh: 200,
		RejectSpeedKmh:     1000,
	}
}

// VisitsAPI is the slice of the visit-recording API the recorder consumes
type VisitsAPI interface {
	Create(ctx context.Context, token string, visit models.VisitRecord) (*models.VisitRecord, error)
	ListForDay(ctx context.Context, token, placeID, userID, date string) ([]models.VisitRecord, error)
}

// Recorder validates visit candidates and manual check-ins, then submits
// passing attempts to the external visit-recording API.
type Recorder struct {
	visits VisitsAPI
	cfg    Config
	log    zerolog.Logger
	now    func() time.Time
}

// NewRecorder creates a recorder over the visits API
func NewRecorder(visits VisitsAPI, cfg Config, log zerolog.Logger) *Recorder {
	return &Recorder{
		visits: visits,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

// SetNow overrides the clock, for tests
func (r *Recorder) SetNow(now func() time.Time) {
	r.now = now
}

// CheckIn runs the hard-radius, speed-plausibility and duplicate-visit gates
// in order and submits the visit if all pass. The returned error is reserved
// for infrastructure failures (network, API); every validation failure comes
// back as a Result.
func (r *Recorder) CheckIn(ctx context.Context, token, userID string, place models.Place, req models.CheckInRequest) (Result, error) {
	dist := spatial.HaversineDistance(
		req.Position.Latitude, req.Position.Longitude,
		place.Latitude, place.Longitude,
	)

	if dist > r.cfg.HardRadiusMeters {
		return Result{
			Outcome:        OutcomeTooFar,
			DistanceMeters: dist,
			Message:        fmt.Sprintf("check-in location is %.0fm from %s, must be within %.0fm", dist, place.Name, r.cfg.HardRadiusMeters),
		}, nil
	}

	if req.PreviousPosition != nil {
		if result, rejected := r.speedGate(userID, place, req, dist); rejected {
			return result, nil
		}
	}

	date := r.now().Format("2006-01-02")
	existing, err := r.visits.ListForDay(ctx, token, place.ID, userID, date)
	if err != nil {
		return Result{}, fmt.Errorf("duplicate-visit lookup failed: %w", err)
	}
	if len(existing) > 0 {
		return Result{
			Outcome:        OutcomeAlreadyVisited,
			DistanceMeters: dist,
			Message:        fmt.Sprintf("already visited %s today", place.Name),
		}, nil
	}

	visit := models.VisitRecord{
		ID:             uuid.NewString(),
		PlaceID:        place.ID,
		UserID:         userID,
		CheckInLat:     req.Position.Latitude,
		CheckInLng:     req.Position.Longitude,
		DistanceMeters: dist,
		AutoDetected:   req.AutoDetected,
		Confirmed:      !req.AutoDetected,
	}

	created, err := r.visits.Create(ctx, token, visit)
	if err != nil {
		return Result{}, fmt.Errorf("visit submission failed: %w", err)
	}

	r.log.Info().
		Str("place_id", place.ID).
		Str("user_id", userID).
		Float64("distance_m", dist).
		Bool("auto_detected", req.AutoDetected).
		Msg("visit recorded")

	return Result{
		Outcome:        OutcomeRecorded,
		Visit:          created,
		DistanceMeters: dist,
	}, nil
}

// speedGate checks the implied travel speed from the previous accepted fix.
// Above the reject threshold the attempt fails; above the suspicious
// threshold it is logged for review and allowed through.
func (r *Recorder) speedGate(userID string, place models.Place, req models.CheckInRequest, dist float64) (Result, bool) {
	travelled := spatial.HaversineDistance(
		req.PreviousPosition.Latitude, req.PreviousPosition.Longitude,
		req.Position.Latitude, req.Position.Longitude,
	)
	elapsed := r.now().UnixMilli() - req.PreviousAt
	speed := spatial.SpeedKmh(travelled, elapsed)

	if speed > r.cfg.RejectSpeedKmh {
		r.log.Warn().
			Str("user_id", userID).
			Str("place_id", place.ID).
			Float64("speed_kmh", speed).
			Msg("check-in rejected, implied speed impossible")
		return Result{
			Outcome:        OutcomeImplausibleSpeed,
			DistanceMeters: dist,
			SpeedKmh:       speed,
			Message:        fmt.Sprintf("implied travel speed %.0f km/h exceeds plausibility limit", speed),
		}, true
	}

	if speed > r.cfg.SuspiciousSpeedKmh {
		r.log.Warn().
			Str("user_id", userID).
			Str("place_id", place.ID).
			Float64("speed_kmh", speed).
			Msg("suspicious travel speed on check-in, logged for review")
	}

	return Result{}, false
}
