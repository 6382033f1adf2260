package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ibeanthere/checkin-engine-go/internal/models"
)

// VisitsClient calls the external visit-recording API. The engine never
// persists visits itself; ownership of a record transfers here on submit.
type VisitsClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewVisitsClient(baseURL string) *VisitsClient {
	return &VisitsClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Create submits a validated visit record. token is the caller's session
// token, forwarded as-is.
func (c *VisitsClient) Create(ctx context.Context, token string, visit models.VisitRecord) (*models.VisitRecord, error) {
	body, err := json.Marshal(visit)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal visit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/visits", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build visit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("visit submission failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("visits API returned status %d", resp.StatusCode)
	}

	var created models.VisitRecord
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("failed to decode visit response: %w", err)
	}

	return &created, nil
}

// ListForDay returns the user's visits to a place on the given calendar day
// (date formatted YYYY-MM-DD). Used by the duplicate-visit gate; the server
// is the source of truth.
func (c *VisitsClient) ListForDay(ctx context.Context, token, placeID, userID, date string) ([]models.VisitRecord, error) {
	q := url.Values{}
	q.Set("placeId", placeID)
	q.Set("userId", userID)
	q.Set("date", date)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/visits?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build visits request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("visits request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("visits API returned status %d", resp.StatusCode)
	}

	var visits []models.VisitRecord
	if err := json.NewDecoder(resp.Body).Decode(&visits); err != nil {
		return nil, fmt.Errorf("failed to decode visits response: %w", err)
	}

	return visits, nil
}
