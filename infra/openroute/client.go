// Package openroute implements the travel-matrix provider against the
// openrouteservice matrix API.
package openroute

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/parkcast/parkcast/core/model"
)

// Transport modes accepted by the matrix endpoint.
const (
	ModeDrivingCar  = "driving-car"
	ModeFootWalking = "foot-walking"
)

// Client calls the openrouteservice matrix endpoint. One request computes
// the legs from a single origin to every destination.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a matrix client. baseURL is the service root, e.g.
// "https://api.openrouteservice.org/v2".
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type matrixRequest struct {
	Locations    [][]float64 `json:"locations"`
	Sources      []int       `json:"sources"`
	Destinations []int       `json:"destinations"`
	Metrics      []string    `json:"metrics"`
}

type matrixResponse struct {
	Durations [][]float64 `json:"durations"`
	Distances [][]float64 `json:"distances"`
}

// Matrix returns one travel leg per destination, in input order. The
// origin is always index 0 in the request body; openrouteservice expects
// [lon, lat] pairs.
func (c *Client) Matrix(ctx context.Context, origin model.Coordinate, destinations []model.Coordinate, mode string) ([]model.TravelLeg, error) {
	if len(destinations) == 0 {
		return nil, nil
	}
	if mode == "" {
		mode = ModeDrivingCar
	}

	locations := make([][]float64, 0, len(destinations)+1)
	locations = append(locations, []float64{origin.Lon, origin.Lat})
	destIdx := make([]int, len(destinations))
	for i, d := range destinations {
		locations = append(locations, []float64{d.Lon, d.Lat})
		destIdx[i] = i + 1
	}

	body, err := json.Marshal(matrixRequest{
		Locations:    locations,
		Sources:      []int{0},
		Destinations: destIdx,
		Metrics:      []string{"duration", "distance"},
	})
	if err != nil {
		return nil, fmt.Errorf("encode matrix request: %w", err)
	}

	url := fmt.Sprintf("%s/matrix/%s", c.baseURL, mode)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create matrix request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("matrix request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("openroute matrix: status %d: %s", resp.StatusCode, msg)
	}

	var mr matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return nil, fmt.Errorf("decode matrix response: %w", err)
	}
	if len(mr.Durations) == 0 || len(mr.Durations[0]) != len(destinations) {
		return nil, fmt.Errorf("openroute matrix: unexpected durations shape")
	}

	legs := make([]model.TravelLeg, len(destinations))
	for i := range destinations {
		legs[i].DurationSeconds = mr.Durations[0][i]
		if len(mr.Distances) > 0 && len(mr.Distances[0]) == len(destinations) {
			legs[i].DistanceMeters = mr.Distances[0][i]
		}
	}
	return legs, nil
}
