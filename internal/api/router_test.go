package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeanthere/checkin-engine-go/internal/checkin"
	"github.com/ibeanthere/checkin-engine-go/internal/config"
	"github.com/ibeanthere/checkin-engine-go/internal/detector"
	"github.com/ibeanthere/checkin-engine-go/internal/geolocation"
	"github.com/ibeanthere/checkin-engine-go/internal/handler"
	"github.com/ibeanthere/checkin-engine-go/internal/logger"
	"github.com/ibeanthere/checkin-engine-go/internal/models"
	"github.com/ibeanthere/checkin-engine-go/internal/placecache"
	"github.com/ibeanthere/checkin-engine-go/internal/service"
)

const testSecret = "test-secret"

type stubPlacesAPI struct {
	places []models.Place
}

func (s *stubPlacesAPI) Nearby(ctx context.Context, lat, lng float64, radius int) ([]models.Place, error) {
	return s.places, nil
}

func (s *stubPlacesAPI) Get(ctx context.Context, id string) (*models.Place, error) {
	for _, p := range s.places {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, nil
}

type stubVisitsAPI struct{}

func (s *stubVisitsAPI) Create(ctx context.Context, token string, visit models.VisitRecord) (*models.VisitRecord, error) {
	return &visit, nil
}

func (s *stubVisitsAPI) ListForDay(ctx context.Context, token, placeID, userID, date string) ([]models.VisitRecord, error) {
	return nil, nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger.InitWithWriter(io.Discard)

	cfg := &config.Config{JWTSecret: testSecret}

	places := &stubPlacesAPI{places: []models.Place{
		{ID: "cafe-1", Name: "Settlement Co.", Latitude: 43.4643, Longitude: -80.5204},
	}}

	source := geolocation.NewPushSource()
	provider := geolocation.NewProvider(source, geolocation.DefaultConfig(), zerolog.Nop())
	det := detector.New(detector.DefaultConfig(), zerolog.Nop())
	recorder := checkin.NewRecorder(&stubVisitsAPI{}, checkin.DefaultConfig(), zerolog.Nop())

	nearbySvc := service.NewNearbyService(placecache.New(nil, zerolog.Nop()), places, zerolog.Nop())
	checkinSvc := service.NewCheckInService(nearbySvc, recorder, zerolog.Nop())
	trackingSvc := service.NewTrackingService(provider, det, nearbySvc, recorder, zerolog.Nop())

	return SetupRouter(cfg, Handlers{
		Nearby:   handler.NewNearbyHandler(nearbySvc),
		CheckIn:  handler.NewCheckInHandler(checkinSvc),
		Tracking: handler.NewTrackingHandler(trackingSvc),
		Location: handler.NewLocationHandler(source, provider),
	})
}

func signToken(t *testing.T, sub string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": sub}).
		SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNearbyEndpoint(t *testing.T) {
	r := newTestRouter(t)

	t.Run("Returns Places", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/places/nearby?lat=43.4643&lng=-80.5204&radius=2000", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Settlement Co.")
	})

	t.Run("Rejects Bad Coordinates", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/places/nearby?lat=abc&lng=-80.5204", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCheckInEndpointAuth(t *testing.T) {
	r := newTestRouter(t)

	body := func() *bytes.Reader {
		b, _ := json.Marshal(models.CheckInRequest{
			PlaceID:  "cafe-1",
			Position: models.Coordinate{Latitude: 43.4643, Longitude: -80.5204},
		})
		return bytes.NewReader(b)
	}

	t.Run("Missing Token Is Unauthorized", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkins", body())
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Garbage Token Is Unauthorized", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkins", body())
		req.Header.Set("Authorization", "Bearer not-a-token")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Valid Token Records Check-In", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkins", body())
		req.Header.Set("Authorization", "Bearer "+signToken(t, "user-1"))
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "recorded")
	})

	t.Run("Unknown Place Is Not Found", func(t *testing.T) {
		b, _ := json.Marshal(models.CheckInRequest{
			PlaceID:  "cafe-missing",
			Position: models.Coordinate{Latitude: 43.4643, Longitude: -80.5204},
		})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkins", bytes.NewReader(b))
		req.Header.Set("Authorization", "Bearer "+signToken(t, "user-1"))
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Too Far Is Unprocessable", func(t *testing.T) {
		b, _ := json.Marshal(models.CheckInRequest{
			PlaceID:  "cafe-1",
			Position: models.Coordinate{Latitude: 43.4743, Longitude: -80.5204}, // ~1.1km north
		})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkins", bytes.NewReader(b))
		req.Header.Set("Authorization", "Bearer "+signToken(t, "user-1"))
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "too_far")
	})
}

func TestLocationPush(t *testing.T) {
	r := newTestRouter(t)
	token := signToken(t, "user-1")

	t.Run("Push Then Current", func(t *testing.T) {
		b, _ := json.Marshal(gin.H{
			"latitude":       43.4643,
			"longitude":      -80.5204,
			"accuracyMeters": 12.5,
			"capturedAt":     1700000000000,
		})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/location", bytes.NewReader(b))
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Unknown Error Code Is Rejected", func(t *testing.T) {
		b, _ := json.Marshal(gin.H{"code": "SOLAR_FLARE"})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/location/error", bytes.NewReader(b))
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
