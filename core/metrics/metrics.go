// Package metrics defines the sink interface used to export operational
// measurements. Implementations (Prometheus, InfluxDB, multi) live in
// infra/metrics.
package metrics

import "time"

// BatchRun summarizes one forecast generation run.
type BatchRun struct {
	RunID          string
	Model          string
	Version        string
	IntervalMin    int
	Locations      int
	Lots           int
	Slots          int
	DaysForecasted int
	UnitsSkipped   int
	UnitsFailed    int
	Duration       time.Duration
}

// Sink receives operational measurements. Implementations must be safe for
// concurrent use.
type Sink interface {
	// RecordBatchRun is called once per completed generation run.
	RecordBatchRun(run BatchRun) error
	// RecordPointQuery is called per online point interpolation request.
	RecordPointQuery(locationID string, lots int, duration time.Duration) error
	// RecordIngest is called per occupancy sample write from the ingest feed.
	RecordIngest(lotID string, ok bool) error
}

// NopSink discards all measurements.
type NopSink struct{}

func (NopSink) RecordBatchRun(BatchRun) error                     { return nil }
func (NopSink) RecordPointQuery(string, int, time.Duration) error { return nil }
func (NopSink) RecordIngest(string, bool) error                   { return nil }
