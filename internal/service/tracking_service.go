package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ibeanthere/checkin-engine-go/internal/checkin"
	"github.com/ibeanthere/checkin-engine-go/internal/detector"
	"github.com/ibeanthere/checkin-engine-go/internal/geolocation"
	"github.com/ibeanthere/checkin-engine-go/internal/models"
)

// ErrTrackingActive is returned when tracking is started twice
var ErrTrackingActive = errors.New("tracking already active")

// ErrTrackingInactive is returned for operations that need a running session
var ErrTrackingInactive = errors.New("tracking not active")

// maxRecentResults bounds the in-memory result history
const maxRecentResults = 20

// TrackingStatus describes the current tracking session
type TrackingStatus struct {
	Active         bool             `json:"active"`
	CandidateCount int              `json:"candidateCount"`
	Stays          []models.Stay    `json:"stays"`
	RecentResults  []checkin.Result `json:"recentResults"`
}

// TrackingService runs a continuous stay-detection session: it seeds the
// detector's candidate set from a nearby query, subscribes it to the location
// provider, and converts emitted visit candidates into auto-detected
// check-in attempts.
type TrackingService struct {
	provider *geolocation.Provider
	detector *detector.Detector
	nearby   *NearbyService
	recorder *checkin.Recorder
	log      zerolog.Logger

	mu      sync.Mutex
	active  bool
	token   string
	userID  string
	places  int
	results []checkin.Result
}

// NewTrackingService creates a stopped tracking service
func NewTrackingService(provider *geolocation.Provider, det *detector.Detector, nearby *NearbyService, recorder *checkin.Recorder, log zerolog.Logger) *TrackingService {
	return &TrackingService{
		provider: provider,
		detector: det,
		nearby:   nearby,
		recorder: recorder,
		log:      log,
	}
}

// Start acquires the current position, seeds the candidate set from the
// places within radius meters, and starts continuous detection for the user.
func (s *TrackingService) Start(ctx context.Context, token, userID string, radius int) error {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return ErrTrackingActive
	}
	s.mu.Unlock()

	sample, err := s.provider.Current(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire starting position: %w", err)
	}

	places, err := s.nearby.Nearby(ctx, sample.Coordinate.Latitude, sample.Coordinate.Longitude, radius)
	if err != nil {
		return fmt.Errorf("failed to seed candidate places: %w", err)
	}

	s.detector.SetPlaces(places)
	if err := s.detector.Start(s.provider, s.onCandidate); err != nil {
		// A competing Start can pass the guard above before either session
		// is marked active; the detector is the serialization point
		if errors.Is(err, detector.ErrAlreadyRunning) {
			return ErrTrackingActive
		}
		return fmt.Errorf("failed to start detector: %w", err)
	}

	s.mu.Lock()
	s.active = true
	s.token = token
	s.userID = userID
	s.places = len(places)
	s.results = nil
	s.mu.Unlock()

	s.log.Info().
		Str("user_id", userID).
		Int("candidates", len(places)).
		Int("radius_m", radius).
		Msg("tracking started")
	return nil
}

// Stop ends the session and discards all detection state
func (s *TrackingService) Stop() error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return ErrTrackingInactive
	}
	s.active = false
	s.token = ""
	s.userID = ""
	s.mu.Unlock()

	s.detector.Stop()
	s.log.Info().Msg("tracking stopped")
	return nil
}

// Status reports the live session state
func (s *TrackingService) Status() TrackingStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]checkin.Result, len(s.results))
	copy(results, s.results)

	return TrackingStatus{
		Active:         s.active,
		CandidateCount: s.places,
		Stays:          s.detector.Snapshot(),
		RecentResults:  results,
	}
}

// onCandidate converts a detected visit candidate into an auto check-in
// attempt. Validation rejections are recorded, never escalated; the stay
// machine has already consumed its one notification for this stay.
func (s *TrackingService) onCandidate(c models.VisitCandidate) {
	s.mu.Lock()
	token, userID, active := s.token, s.userID, s.active
	s.mu.Unlock()
	if !active {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	result, err := s.recorder.CheckIn(ctx, token, userID, c.Place, models.CheckInRequest{
		PlaceID:      c.Place.ID,
		Position:     c.Sample,
		AutoDetected: true,
	})
	if err != nil {
		s.log.Error().Str("error", err.Error()).Str("place_id", c.Place.ID).Msg("auto check-in failed")
		return
	}

	s.mu.Lock()
	s.results = append(s.results, result)
	if len(s.results) > maxRecentResults {
		s.results = s.results[len(s.results)-maxRecentResults:]
	}
	s.mu.Unlock()
}
