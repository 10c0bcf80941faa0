// Package store defines the persistence ports consumed by the forecasting
// core. Implementations live under infra.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/parkcast/parkcast/core/model"
)

// ErrNotFound reports an unknown location or lot.
var ErrNotFound = errors.New("not found")

// LocationStore reads locations and their lots.
type LocationStore interface {
	// GetLocation returns the location or ErrNotFound.
	GetLocation(ctx context.Context, id string) (model.Location, error)
	// ListLocations returns all locations ordered by id.
	ListLocations(ctx context.Context) ([]model.Location, error)
	// GetLots returns the lots for a location ordered by name.
	GetLots(ctx context.Context, locationID string) ([]model.Lot, error)
}

// OccupancyStore reads historical samples and owns the forecast rows.
type OccupancyStore interface {
	// QuerySamples returns samples for the lot with observed_at in
	// [fromUTC, toUTC), ascending.
	QuerySamples(ctx context.Context, lotID string, fromUTC, toUTC time.Time) ([]model.OccupancySample, error)
	// InsertSamples appends observed samples.
	InsertSamples(ctx context.Context, samples []model.OccupancySample) error
	// CountForecasts returns the number of forecast rows for the lot with
	// forecast_ts in [fromUTC, toUTC).
	CountForecasts(ctx context.Context, lotID string, fromUTC, toUTC time.Time) (int, error)
	// QueryForecasts returns forecast rows for the lot with forecast_ts in
	// [fromUTC, toUTC], ascending.
	QueryForecasts(ctx context.Context, lotID string, fromUTC, toUTC time.Time) ([]model.ForecastPoint, error)
	// ReplaceDayForecasts atomically replaces the lot's rows in
	// [fromUTC, toUTC) with rows. Readers never observe a partial day.
	ReplaceDayForecasts(ctx context.Context, lotID string, fromUTC, toUTC time.Time, rows []model.ForecastPoint) error
}

// TravelMatrixProvider computes travel legs from one origin to many
// destinations for a transport mode ("driving-car", "foot-walking").
type TravelMatrixProvider interface {
	Matrix(ctx context.Context, origin model.Coordinate, destinations []model.Coordinate, mode string) ([]model.TravelLeg, error)
}

// Geocoder resolves a free-form address to coordinates. It only feeds the
// travel-matrix origin.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (model.Coordinate, error)
}
