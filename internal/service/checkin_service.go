package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ibeanthere/checkin-engine-go/internal/checkin"
	"github.com/ibeanthere/checkin-engine-go/internal/models"
)

// ErrPlaceNotFound is returned when a check-in targets an unknown place
var ErrPlaceNotFound = errors.New("place not found")

// CheckInService resolves the target place and runs the check-in gates
type CheckInService struct {
	nearby   *NearbyService
	recorder *checkin.Recorder
	log      zerolog.Logger
}

// NewCheckInService creates a new check-in service
func NewCheckInService(nearby *NearbyService, recorder *checkin.Recorder, log zerolog.Logger) *CheckInService {
	return &CheckInService{nearby: nearby, recorder: recorder, log: log}
}

// CheckIn validates and records one check-in attempt
func (s *CheckInService) CheckIn(ctx context.Context, token, userID string, req models.CheckInRequest) (checkin.Result, error) {
	place, err := s.nearby.Place(ctx, req.PlaceID)
	if err != nil {
		return checkin.Result{}, fmt.Errorf("failed to resolve place: %w", err)
	}
	if place == nil {
		return checkin.Result{}, ErrPlaceNotFound
	}

	return s.recorder.CheckIn(ctx, token, userID, *place, req)
}
