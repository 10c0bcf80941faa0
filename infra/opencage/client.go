// Package opencage implements forward geocoding against the OpenCage API.
// Geocoding only feeds the travel-matrix origin.
package opencage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/parkcast/parkcast/core/model"
)

// ErrNoResult reports an address the geocoder could not resolve.
var ErrNoResult = fmt.Errorf("opencage: no result for address")

// Client calls the OpenCage forward geocoding endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a geocoding client. baseURL defaults to the public API
// when empty.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://api.opencagedata.com/geocode/v1/json"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type response struct {
	Results []result `json:"results"`
}

type result struct {
	Geometry struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"geometry"`
}

// Geocode resolves a free-form address to coordinates using the first
// candidate returned.
func (c *Client) Geocode(ctx context.Context, address string) (model.Coordinate, error) {
	params := url.Values{
		"q":              {address},
		"key":            {c.apiKey},
		"no_annotations": {"1"},
		"limit":          {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("create geocode request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return model.Coordinate{}, fmt.Errorf("opencage: status %d: %s", resp.StatusCode, msg)
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return model.Coordinate{}, fmt.Errorf("decode geocode response: %w", err)
	}
	if len(r.Results) == 0 {
		return model.Coordinate{}, ErrNoResult
	}
	return model.Coordinate{Lat: r.Results[0].Geometry.Lat, Lon: r.Results[0].Geometry.Lng}, nil
}
