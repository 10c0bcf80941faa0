package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	coremetrics "github.com/parkcast/parkcast/core/metrics"
)

func TestPromSinkRecordBatchRun(t *testing.T) {
	sink, err := NewPromSink()
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	run := coremetrics.BatchRun{
		RunID:          "run-1",
		Model:          "mean_last_3_weeks",
		Version:        "v1",
		IntervalMin:    30,
		Locations:      1,
		Lots:           3,
		Slots:          144,
		DaysForecasted: 3,
		UnitsSkipped:   2,
		UnitsFailed:    1,
		Duration:       1200 * time.Millisecond,
	}
	if err := sink.RecordBatchRun(run); err != nil {
		t.Fatalf("record error: %v", err)
	}

	expected := `
# HELP parkcast_forecast_runs_total Completed forecast generation runs.
# TYPE parkcast_forecast_runs_total counter
parkcast_forecast_runs_total{model="mean_last_3_weeks"} 1
`
	if err := testutil.CollectAndCompare(sink.batchRuns, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
	if got := testutil.ToFloat64(sink.batchSlots.WithLabelValues(run.Model)); got != 144 {
		t.Errorf("slots = %v", got)
	}
	if got := testutil.ToFloat64(sink.batchSkipped); got != 2 {
		t.Errorf("skipped = %v", got)
	}
	if got := testutil.ToFloat64(sink.batchFailed); got != 1 {
		t.Errorf("failed = %v", got)
	}
}

func TestPromSinkRecordPointQueryAndIngest(t *testing.T) {
	sink, err := NewPromSink()
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	if err := sink.RecordPointQuery("campus", 4, 30*time.Millisecond); err != nil {
		t.Fatalf("point query: %v", err)
	}
	if err := sink.RecordIngest("lot-a", true); err != nil {
		t.Fatalf("ingest ok: %v", err)
	}
	if err := sink.RecordIngest("lot-a", false); err != nil {
		t.Fatalf("ingest fail: %v", err)
	}

	if got := testutil.ToFloat64(sink.pointQueries.WithLabelValues("campus")); got != 1 {
		t.Errorf("point queries = %v", got)
	}
	if got := testutil.ToFloat64(sink.ingestStored); got != 1 {
		t.Errorf("ingest stored = %v", got)
	}
	if got := testutil.ToFloat64(sink.ingestFailed); got != 1 {
		t.Errorf("ingest failed = %v", got)
	}
}

func TestMultiSinkFanOut(t *testing.T) {
	a, err := NewPromSink()
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewPromSink()
	if err != nil {
		t.Fatal(err)
	}
	multi := NewMultiSink(a, b)
	if err := multi.RecordIngest("lot-a", true); err != nil {
		t.Fatalf("multi record: %v", err)
	}
	if testutil.ToFloat64(a.ingestStored) != 1 || testutil.ToFloat64(b.ingestStored) != 1 {
		t.Error("multi sink should record in every child")
	}
}
