package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	coremetrics "github.com/parkcast/parkcast/core/metrics"
	"github.com/parkcast/parkcast/infra/logger"
)

// InfluxSink writes batch-run summaries as measurements to InfluxDB.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink when the health check fails, so a down Influx never blocks
// forecasting.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.Sink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close shuts down the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

func (s *InfluxSink) RecordBatchRun(run coremetrics.BatchRun) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := influxdb2.NewPoint("forecast_run",
		map[string]string{"model": run.Model, "version": run.Version},
		map[string]any{
			"run_id":          run.RunID,
			"interval_min":    run.IntervalMin,
			"locations":       run.Locations,
			"lots":            run.Lots,
			"slots":           run.Slots,
			"days_forecasted": run.DaysForecasted,
			"units_skipped":   run.UnitsSkipped,
			"units_failed":    run.UnitsFailed,
			"duration_ms":     run.Duration.Milliseconds(),
		},
		time.Now())
	if err := s.writeAPI.WritePoint(ctx, p); err != nil {
		s.log.Errorf("write forecast_run point: %v", err)
		return err
	}
	return nil
}

func (s *InfluxSink) RecordPointQuery(locationID string, lots int, duration time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := influxdb2.NewPoint("point_query",
		map[string]string{"location": locationID},
		map[string]any{"lots": lots, "duration_ms": duration.Milliseconds()},
		time.Now())
	return s.writeAPI.WritePoint(ctx, p)
}

func (s *InfluxSink) RecordIngest(lotID string, ok bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := influxdb2.NewPoint("occupancy_ingest",
		map[string]string{"lot": lotID},
		map[string]any{"ok": ok},
		time.Now())
	return s.writeAPI.WritePoint(ctx, p)
}
