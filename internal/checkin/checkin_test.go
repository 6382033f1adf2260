package checkin

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeanthere/checkin-engine-go/internal/models"
	"github.com/ibeanthere/checkin-engine-go/internal/spatial"
)

var testPlace = models.Place{
	ID:        "cafe-1",
	Name:      "Settlement Co.",
	Latitude:  43.4643,
	Longitude: -80.5204,
}

// fakeVisitsAPI scripts the duplicate lookup and records submissions
type fakeVisitsAPI struct {
	existing  []models.VisitRecord
	created   []models.VisitRecord
	listCalls int
}

func (f *fakeVisitsAPI) Create(ctx context.Context, token string, visit models.VisitRecord) (*models.VisitRecord, error) {
	f.created = append(f.created, visit)
	visit.VisitedAt = "2023-11-14T22:13:20Z"
	return &visit, nil
}

func (f *fakeVisitsAPI) ListForDay(ctx context.Context, token, placeID, userID, date string) ([]models.VisitRecord, error) {
	f.listCalls++
	return f.existing, nil
}

func newTestRecorder(visits *fakeVisitsAPI) *Recorder {
	r := NewRecorder(visits, DefaultConfig(), zerolog.Nop())
	now := time.Unix(1_700_000_000, 0)
	r.SetNow(func() time.Time { return now })
	return r
}

// positionAt returns a coordinate offset by meters due north of the place
func positionAt(meters float64) models.Coordinate {
	lat, lng := spatial.DestinationPoint(testPlace.Latitude, testPlace.Longitude, 0, meters)
	return models.Coordinate{Latitude: lat, Longitude: lng}
}

func TestCheckIn(t *testing.T) {
	t.Run("Too Far Carries Measured Distance", func(t *testing.T) {
		visits := &fakeVisitsAPI{}
		r := newTestRecorder(visits)

		result, err := r.CheckIn(context.Background(), "tok", "user-1", testPlace, models.CheckInRequest{
			PlaceID:  testPlace.ID,
			Position: positionAt(80),
		})
		require.NoError(t, err)
		assert.Equal(t, OutcomeTooFar, result.Outcome)
		assert.InDelta(t, 80, result.DistanceMeters, 1)
		assert.Contains(t, result.Message, "80m")
		assert.Empty(t, visits.created)
		assert.Zero(t, visits.listCalls)
	})

	t.Run("Duplicate Same-Day Visit Is Rejected", func(t *testing.T) {
		visits := &fakeVisitsAPI{existing: []models.VisitRecord{
			{PlaceID: testPlace.ID, UserID: "user-1"},
		}}
		r := newTestRecorder(visits)

		result, err := r.CheckIn(context.Background(), "tok", "user-1", testPlace, models.CheckInRequest{
			PlaceID:  testPlace.ID,
			Position: positionAt(10),
		})
		require.NoError(t, err)
		assert.Equal(t, OutcomeAlreadyVisited, result.Outcome)
		assert.Empty(t, visits.created, "no second record may be submitted")
	})

	t.Run("Passing Both Gates Records The Visit", func(t *testing.T) {
		visits := &fakeVisitsAPI{}
		r := newTestRecorder(visits)

		result, err := r.CheckIn(context.Background(), "tok", "user-1", testPlace, models.CheckInRequest{
			PlaceID:      testPlace.ID,
			Position:     positionAt(10),
			AutoDetected: true,
		})
		require.NoError(t, err)
		assert.Equal(t, OutcomeRecorded, result.Outcome)
		require.NotNil(t, result.Visit)

		require.Len(t, visits.created, 1)
		submitted := visits.created[0]
		assert.Equal(t, testPlace.ID, submitted.PlaceID)
		assert.Equal(t, "user-1", submitted.UserID)
		assert.True(t, submitted.AutoDetected)
		assert.False(t, submitted.Confirmed)
		assert.InDelta(t, 10, submitted.DistanceMeters, 1)
		assert.NotEmpty(t, submitted.ID)
	})

	t.Run("Manual Check-In Is Confirmed", func(t *testing.T) {
		visits := &fakeVisitsAPI{}
		r := newTestRecorder(visits)

		_, err := r.CheckIn(context.Background(), "tok", "user-1", testPlace, models.CheckInRequest{
			PlaceID:  testPlace.ID,
			Position: positionAt(10),
		})
		require.NoError(t, err)
		require.Len(t, visits.created, 1)
		assert.True(t, visits.created[0].Confirmed)
	})

	t.Run("Implausible Speed Is Rejected Before Submission", func(t *testing.T) {
		visits := &fakeVisitsAPI{}
		r := newTestRecorder(visits)

		// 100km away one minute ago: 6000 km/h
		farLat, farLng := spatial.DestinationPoint(testPlace.Latitude, testPlace.Longitude, 180, 100_000)
		prev := models.Coordinate{Latitude: farLat, Longitude: farLng}

		result, err := r.CheckIn(context.Background(), "tok", "user-1", testPlace, models.CheckInRequest{
			PlaceID:          testPlace.ID,
			Position:         positionAt(10),
			PreviousPosition: &prev,
			PreviousAt:       time.Unix(1_700_000_000, 0).Add(-time.Minute).UnixMilli(),
		})
		require.NoError(t, err)
		assert.Equal(t, OutcomeImplausibleSpeed, result.Outcome)
		assert.Greater(t, result.SpeedKmh, 1000.0)
		assert.Empty(t, visits.created)
		assert.Zero(t, visits.listCalls)
	})

	t.Run("Suspicious Speed Is Allowed Through", func(t *testing.T) {
		visits := &fakeVisitsAPI{}
		r := newTestRecorder(visits)

		// ~5km away one minute ago: ~300 km/h, logged but not blocked
		farLat, farLng := spatial.DestinationPoint(testPlace.Latitude, testPlace.Longitude, 180, 5_000)
		prev := models.Coordinate{Latitude: farLat, Longitude: farLng}

		result, err := r.CheckIn(context.Background(), "tok", "user-1", testPlace, models.CheckInRequest{
			PlaceID:          testPlace.ID,
			Position:         positionAt(10),
			PreviousPosition: &prev,
			PreviousAt:       time.Unix(1_700_000_000, 0).Add(-time.Minute).UnixMilli(),
		})
		require.NoError(t, err)
		assert.Equal(t, OutcomeRecorded, result.Outcome)
	})
}
