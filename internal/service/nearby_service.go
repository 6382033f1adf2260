package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ibeanthere/checkin-engine-go/internal/models"
	"github.com/ibeanthere/checkin-engine-go/internal/placecache"
)

// PlacesAPI is the slice of the places catalog the nearby service consumes
type PlacesAPI interface {
	Nearby(ctx context.Context, lat, lng float64, radius int) ([]models.Place, error)
	Get(ctx context.Context, id string) (*models.Place, error)
}

// NearbyService serves places-near queries through the spatial result cache.
// Cache failures are invisible to callers; they only cost a live query.
type NearbyService struct {
	cache  *placecache.Cache
	places PlacesAPI
	log    zerolog.Logger
}

// NewNearbyService creates a new nearby service
func NewNearbyService(cache *placecache.Cache, places PlacesAPI, log zerolog.Logger) *NearbyService {
	return &NearbyService{cache: cache, places: places, log: log}
}

// Nearby returns places within radius meters of (lat, lng), read-through cached
func (s *NearbyService) Nearby(ctx context.Context, lat, lng float64, radius int) ([]models.Place, error) {
	if places, ok := s.cache.Get(lat, lng, radius); ok {
		s.log.Debug().Int("count", len(places)).Msg("nearby query served from cache")
		return places, nil
	}

	places, err := s.places.Nearby(ctx, lat, lng, radius)
	if err != nil {
		return nil, fmt.Errorf("nearby query failed: %w", err)
	}

	s.cache.Put(lat, lng, radius, places)
	return places, nil
}

// Place resolves a single place by ID from the catalog
func (s *NearbyService) Place(ctx context.Context, id string) (*models.Place, error) {
	return s.places.Get(ctx, id)
}

// EvictExpired sweeps stale cache entries and returns the count removed
func (s *NearbyService) EvictExpired() int64 {
	return s.cache.EvictExpired()
}

// CacheStats reports cache health
func (s *NearbyService) CacheStats() models.CacheStats {
	return s.cache.Stats()
}
