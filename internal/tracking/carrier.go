package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// CarrierClient fetches the live status of a shipment from the carrier.
type CarrierClient interface {
	Track(ctx context.Context, carrier, trackingNumber string) (TrackingUpdate, error)
}

// HTTPCarrierClient talks to the third-party tracking aggregator.
type HTTPCarrierClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPCarrierClient builds HTTPCarrierClient.
func NewHTTPCarrierClient(baseURL string, timeout time.Duration) *HTTPCarrierClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPCarrierClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Track queries GET {base}/track?carrier=...&number=...
func (c *HTTPCarrierClient) Track(ctx context.Context, carrier, trackingNumber string) (TrackingUpdate, error) {
	if carrier == "" || trackingNumber == "" {
		return TrackingUpdate{}, ErrCarrierRequired
	}

	endpoint := fmt.Sprintf("%s/track?carrier=%s&number=%s", c.baseURL, url.QueryEscape(carrier), url.QueryEscape(trackingNumber))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return TrackingUpdate{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return TrackingUpdate{}, fmt.Errorf("tracking: carrier request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return TrackingUpdate{}, ErrShipmentNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return TrackingUpdate{}, fmt.Errorf("tracking: carrier returned status %d", resp.StatusCode)
	}

	var update TrackingUpdate
	if err := json.NewDecoder(resp.Body).Decode(&update); err != nil {
		return TrackingUpdate{}, fmt.Errorf("tracking: decode carrier response: %w", err)
	}
	return update, nil
}
