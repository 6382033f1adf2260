package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ibeanthere/checkin-engine-go/internal/models"
)

// PlacesClient calls the external places catalog API
type PlacesClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewPlacesClient(baseURL string) *PlacesClient {
	return &PlacesClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Nearby fetches places within radius meters of (lat, lng)
func (c *PlacesClient) Nearby(ctx context.Context, lat, lng float64, radius int) ([]models.Place, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("radius", strconv.Itoa(radius))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/places?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build places request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("places request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("places API returned status %d", resp.StatusCode)
	}

	var places []models.Place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("failed to decode places response: %w", err)
	}

	return places, nil
}

// Get fetches a single place by ID. Returns (nil, nil) when the catalog has
// no such place.
func (c *PlacesClient) Get(ctx context.Context, id string) (*models.Place, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/places/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build place request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("place request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("places API returned status %d", resp.StatusCode)
	}

	var place models.Place
	if err := json.NewDecoder(resp.Body).Decode(&place); err != nil {
		return nil, fmt.Errorf("failed to decode place response: %w", err)
	}

	return &place, nil
}
