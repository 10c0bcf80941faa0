package metrics

import (
	"errors"
	"time"

	coremetrics "github.com/parkcast/parkcast/core/metrics"
)

// MultiSink fans measurements out to several sinks. Errors are joined so
// one failing sink does not hide the others.
type MultiSink struct {
	sinks []coremetrics.Sink
}

// NewMultiSink combines sinks into one.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) RecordBatchRun(run coremetrics.BatchRun) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.RecordBatchRun(run); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordPointQuery(locationID string, lots int, duration time.Duration) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.RecordPointQuery(locationID, lots, duration); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordIngest(lotID string, ok bool) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.RecordIngest(lotID, ok); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
