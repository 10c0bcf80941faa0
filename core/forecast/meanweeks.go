package forecast

import (
	"context"
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/parkcast/parkcast/core/model"
	"github.com/parkcast/parkcast/core/timeslot"
)

// MeanLast3Weeks predicts the arithmetic mean of the occupancy observed at
// the same weekday and slot over the prior three weeks. Slots with no
// matching sample produce no forecast at all: unlike LastWeekSameTime this
// model skips rather than assuming an empty lot.
type MeanLast3Weeks struct {
	samples SampleReader
	version string
}

// NewMeanLast3Weeks builds the model at the given version.
func NewMeanLast3Weeks(samples SampleReader, version string) (*MeanLast3Weeks, error) {
	if version == "" {
		version = DefaultVersion
	}
	if version != "v1" {
		return nil, fmt.Errorf("%s: unknown version %q", ModelMeanLast3Weeks, version)
	}
	return &MeanLast3Weeks{samples: samples, version: version}, nil
}

func (m *MeanLast3Weeks) Name() string    { return ModelMeanLast3Weeks }
func (m *MeanLast3Weeks) Version() string { return m.version }

type meanWeeksPass struct {
	bySlotMean map[int]float64
}

// Prepare loads three weeks of history ending at the target day, keeps
// samples from the target weekday that sit within half an interval of a
// slot boundary, and averages them per slot.
func (m *MeanLast3Weeks) Prepare(ctx context.Context, lot model.Lot, zone *time.Location, interval time.Duration, dayStart time.Time) (PassContext, error) {
	targetWeekday := dayStart.Weekday()
	rangeStart := dayStart.AddDate(0, 0, -21)
	rangeEnd := dayStart.AddDate(0, 0, 1)
	rows, err := m.samples.QuerySamples(ctx, lot.ID, rangeStart.UTC(), rangeEnd.UTC())
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}

	half := int(interval.Minutes()) / 2
	bySlot := make(map[int][]float64)
	for _, s := range rows {
		if s.Pct == nil {
			continue
		}
		local := s.ObservedAt.In(zone)
		if local.Weekday() != targetWeekday {
			continue
		}
		if timeslot.DistanceToBoundary(local, interval) > half {
			continue
		}
		slot := timeslot.SlotIndex(local, interval)
		bySlot[slot] = append(bySlot[slot], *s.Pct)
	}

	means := make(map[int]float64, len(bySlot))
	for slot, vals := range bySlot {
		means[slot] = model.ClampPct(stat.Mean(vals, nil))
	}
	return &meanWeeksPass{bySlotMean: means}, nil
}

// Predict returns the mean for the target slot, or no forecast when the
// slot had zero matching samples.
func (m *MeanLast3Weeks) Predict(tsLocal time.Time, interval time.Duration, pass PassContext) (float64, bool) {
	p, ok := pass.(*meanWeeksPass)
	if !ok || p == nil {
		return 0, false
	}
	v, ok := p.bySlotMean[timeslot.SlotIndex(tsLocal, interval)]
	return v, ok
}
