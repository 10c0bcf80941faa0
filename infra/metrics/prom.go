// Package metrics implements the core metrics sinks: Prometheus for
// scraping, InfluxDB for time-series export, and a fan-out multi sink.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/parkcast/parkcast/core/metrics"
)

// PromSink exports measurements through Prometheus collectors.
type PromSink struct {
	registry *prometheus.Registry

	batchRuns     *prometheus.CounterVec
	batchSlots    *prometheus.CounterVec
	batchDays     *prometheus.CounterVec
	batchSkipped  prometheus.Counter
	batchFailed   prometheus.Counter
	batchDuration prometheus.Histogram

	pointQueries  *prometheus.CounterVec
	pointDuration prometheus.Histogram

	ingestStored prometheus.Counter
	ingestFailed prometheus.Counter
}

// NewPromSink creates a sink with its own registry.
func NewPromSink() (*PromSink, error) {
	s := &PromSink{
		registry: prometheus.NewRegistry(),
		batchRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parkcast_forecast_runs_total",
			Help: "Completed forecast generation runs.",
		}, []string{"model"}),
		batchSlots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parkcast_forecast_slots_total",
			Help: "Forecast slots written by generation runs.",
		}, []string{"model"}),
		batchDays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parkcast_forecast_days_total",
			Help: "Lot/days forecasted by generation runs.",
		}, []string{"model"}),
		batchSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parkcast_forecast_units_skipped_total",
			Help: "Lot/days skipped because forecasts already existed.",
		}),
		batchFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parkcast_forecast_units_failed_total",
			Help: "Lot/days skipped due to a per-unit failure.",
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "parkcast_forecast_run_duration_seconds",
			Help:    "Duration of forecast generation runs.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		pointQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parkcast_point_queries_total",
			Help: "Online forecast point queries served.",
		}, []string{"location"}),
		pointDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "parkcast_point_query_duration_seconds",
			Help:    "Duration of point queries.",
			Buckets: prometheus.DefBuckets,
		}),
		ingestStored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parkcast_ingest_samples_stored_total",
			Help: "Occupancy samples stored from the ingest feed.",
		}),
		ingestFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parkcast_ingest_samples_failed_total",
			Help: "Occupancy samples rejected or failed to store.",
		}),
	}
	for _, c := range []prometheus.Collector{
		s.batchRuns, s.batchSlots, s.batchDays, s.batchSkipped, s.batchFailed, s.batchDuration,
		s.pointQueries, s.pointDuration, s.ingestStored, s.ingestFailed,
	} {
		if err := s.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Registry exposes the sink's registry for the metrics HTTP endpoint.
func (s *PromSink) Registry() *prometheus.Registry { return s.registry }

func (s *PromSink) RecordBatchRun(run coremetrics.BatchRun) error {
	s.batchRuns.WithLabelValues(run.Model).Inc()
	s.batchSlots.WithLabelValues(run.Model).Add(float64(run.Slots))
	s.batchDays.WithLabelValues(run.Model).Add(float64(run.DaysForecasted))
	s.batchSkipped.Add(float64(run.UnitsSkipped))
	s.batchFailed.Add(float64(run.UnitsFailed))
	s.batchDuration.Observe(run.Duration.Seconds())
	return nil
}

func (s *PromSink) RecordPointQuery(locationID string, lots int, duration time.Duration) error {
	s.pointQueries.WithLabelValues(locationID).Inc()
	s.pointDuration.Observe(duration.Seconds())
	return nil
}

func (s *PromSink) RecordIngest(lotID string, ok bool) error {
	if ok {
		s.ingestStored.Inc()
	} else {
		s.ingestFailed.Inc()
	}
	return nil
}
