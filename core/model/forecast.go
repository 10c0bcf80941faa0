package model

import "time"

// OccupancySample is one observed fill percentage for a lot. Samples are
// append-only and come from an external feed; Pct is nil when the source
// could not read the lot.
type OccupancySample struct {
	LotID      string
	ObservedAt time.Time
	Pct        *float64
}

// ForecastPoint is a persisted model-generated prediction for a lot at a
// single slot boundary. ForecastTS is always UTC.
type ForecastPoint struct {
	LotID         string    `json:"lot_id"`
	ModelName     string    `json:"model_name"`
	ModelVersion  string    `json:"model_version"`
	RunID         string    `json:"run_id"`
	GeneratedAt   time.Time `json:"generated_at"`
	ForecastTS    time.Time `json:"forecast_ts"`
	PredictionPct float64   `json:"prediction_pct"`
}

// TravelLeg is a computed travel route segment, read-only input from the
// travel-matrix provider.
type TravelLeg struct {
	DurationSeconds float64 `json:"duration_seconds"`
	DistanceMeters  float64 `json:"distance_meters"`
}

// ClampPct bounds a percentage to [0,100]. Every percentage exposed by
// interpolation or scoring passes through here first.
func ClampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
