package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/parkcast/parkcast/core/metrics"
	"github.com/parkcast/parkcast/core/store"
	"github.com/parkcast/parkcast/core/timeslot"
)

// PointsResponse carries per-lot interpolation results for one location.
type PointsResponse struct {
	LocationID  string        `json:"location_id"`
	TZ          string        `json:"tz"`
	IntervalMin int           `json:"interval_min"`
	Lots        []PointResult `json:"lots"`
}

// PointService answers online "occupancy at this instant" queries by
// reading the two bracketing forecast rows per lot and interpolating. An
// upstream failure aborts the whole request; a lot with no rows simply
// yields a nil point.
type PointService struct {
	locations store.LocationStore
	occupancy store.OccupancyStore
	clock     clockwork.Clock
	sink      metrics.Sink
	timeout   time.Duration
}

// NewPointService wires a point service. clock and sink may be nil.
func NewPointService(locations store.LocationStore, occupancy store.OccupancyStore, clock clockwork.Clock, sink metrics.Sink, timeout time.Duration) *PointService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PointService{locations: locations, occupancy: occupancy, clock: clock, sink: sink, timeout: timeout}
}

// Points interpolates the forecast for every lot of the location at the
// target instant.
func (s *PointService) Points(ctx context.Context, locationID string, target time.Time, intervalMin int) (PointsResponse, error) {
	started := s.clock.Now()
	if intervalMin <= 0 {
		intervalMin = DefaultIntervalMin
	}
	interval := time.Duration(intervalMin) * time.Minute

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	loc, err := s.locations.GetLocation(ctx, locationID)
	if err != nil {
		return PointsResponse{}, fmt.Errorf("location %s: %w", locationID, err)
	}
	zone, err := loc.Zone()
	if err != nil {
		return PointsResponse{}, fmt.Errorf("location %s: timezone %q: %w", locationID, loc.Timezone, store.ErrNotFound)
	}
	lots, err := s.locations.GetLots(ctx, locationID)
	if err != nil {
		return PointsResponse{}, fmt.Errorf("location %s: lots: %w", locationID, err)
	}

	resp := PointsResponse{LocationID: loc.ID, TZ: loc.Timezone, IntervalMin: intervalMin}
	targetLocal := target.In(zone)
	prev := timeslot.Floor(targetLocal, interval)
	next := timeslot.Ceil(targetLocal, interval)
	if next.Equal(prev) {
		next = prev.Add(interval)
	}

	for _, lot := range lots {
		rows, err := s.occupancy.QueryForecasts(ctx, lot.ID, prev.UTC(), next.UTC())
		if err != nil {
			return PointsResponse{}, fmt.Errorf("lot %s: query forecasts: %w", lot.ID, err)
		}
		res := Interpolate(targetLocal, interval, rows)
		res.LocationID = loc.ID
		res.LotID = lot.ID
		res.TZ = loc.Timezone
		resp.Lots = append(resp.Lots, res)
	}

	_ = s.sink.RecordPointQuery(loc.ID, len(resp.Lots), s.clock.Since(started))
	return resp, nil
}
