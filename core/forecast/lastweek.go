package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/parkcast/parkcast/core/model"
	"github.com/parkcast/parkcast/core/timeslot"
)

// LastWeekSameTime predicts that a lot will be as full as it was at the
// same time exactly one week earlier. Slots with no sample from last week
// predict 0: the model assumes an empty lot rather than withholding a
// forecast.
type LastWeekSameTime struct {
	samples SampleReader
	version string
}

// NewLastWeekSameTime builds the model at the given version.
func NewLastWeekSameTime(samples SampleReader, version string) (*LastWeekSameTime, error) {
	if version == "" {
		version = DefaultVersion
	}
	if version != "v1" {
		return nil, fmt.Errorf("%s: unknown version %q", ModelLastWeekSameTime, version)
	}
	return &LastWeekSameTime{samples: samples, version: version}, nil
}

func (m *LastWeekSameTime) Name() string    { return ModelLastWeekSameTime }
func (m *LastWeekSameTime) Version() string { return m.version }

type lastWeekPass struct {
	bySlot map[int]float64
}

// Prepare loads the samples observed during the day one week before
// dayStart and buckets them onto the slot grid. Samples further than half
// an interval from a slot boundary are discarded as noise; within a slot
// the last sample wins.
func (m *LastWeekSameTime) Prepare(ctx context.Context, lot model.Lot, zone *time.Location, interval time.Duration, dayStart time.Time) (PassContext, error) {
	prevStart := dayStart.AddDate(0, 0, -7)
	prevEnd := prevStart.AddDate(0, 0, 1)
	rows, err := m.samples.QuerySamples(ctx, lot.ID, prevStart.UTC(), prevEnd.UTC())
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}

	half := int(interval.Minutes()) / 2
	bySlot := make(map[int]float64)
	for _, s := range rows {
		if s.Pct == nil {
			continue
		}
		local := s.ObservedAt.In(zone)
		if timeslot.DistanceToBoundary(local, interval) > half {
			continue
		}
		bySlot[timeslot.SlotIndex(local, interval)] = model.ClampPct(*s.Pct)
	}
	return &lastWeekPass{bySlot: bySlot}, nil
}

// Predict returns last week's bucketed value for the target slot, or 0
// when no sample exists.
func (m *LastWeekSameTime) Predict(tsLocal time.Time, interval time.Duration, pass PassContext) (float64, bool) {
	p, ok := pass.(*lastWeekPass)
	if !ok || p == nil {
		return 0, true
	}
	slot := timeslot.SlotIndex(tsLocal.AddDate(0, 0, -7), interval)
	if v, ok := p.bySlot[slot]; ok {
		return v, true
	}
	return 0, true
}
