package forecast

import (
	"time"

	"github.com/parkcast/parkcast/core/model"
	"github.com/parkcast/parkcast/core/timeslot"
)

// PointResult is the interpolation output for a single lot. Point is nil
// when neither bracketing slot has a forecast row; that is an empty signal,
// not an error.
type PointResult struct {
	LocationID        string                `json:"location_id"`
	LotID             string                `json:"lot_id"`
	TZ                string                `json:"tz"`
	RequestLocalTime  time.Time             `json:"request_local_time"`
	PrevBoundaryLocal time.Time             `json:"prev_boundary_local"`
	NextBoundaryLocal time.Time             `json:"next_boundary_local"`
	IntervalMin       int                   `json:"interval_min"`
	Points            []model.ForecastPoint `json:"points"`
	F                 float64               `json:"f"`
	Point             *float64              `json:"point"`
}

// Interpolate maps a target local instant and the forecast rows around it
// to a single predicted percentage. rows may hold zero, one or both of the
// bracketing slot rows; anything not sitting exactly on a boundary is
// ignored. The result is linear between the boundaries, collapses to the
// single available value when one side is missing, and is clamped to
// [0,100].
func Interpolate(targetLocal time.Time, interval time.Duration, rows []model.ForecastPoint) PointResult {
	prev := timeslot.Floor(targetLocal, interval)
	next := timeslot.Ceil(targetLocal, interval)
	if next.Equal(prev) {
		next = prev.Add(interval)
	}

	f := targetLocal.Sub(prev).Minutes() / interval.Minutes()
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}

	var y0, y1 *float64
	for i := range rows {
		ts := rows[i].ForecastTS
		switch {
		case ts.Equal(prev):
			v := rows[i].PredictionPct
			y0 = &v
		case ts.Equal(next):
			v := rows[i].PredictionPct
			y1 = &v
		}
	}

	res := PointResult{
		RequestLocalTime:  targetLocal,
		PrevBoundaryLocal: prev,
		NextBoundaryLocal: next,
		IntervalMin:       int(interval.Minutes()),
		Points:            rows,
		F:                 f,
	}

	var point float64
	switch {
	case y0 == nil && y1 == nil:
		return res
	case y0 != nil && y1 == nil:
		point = *y0
	case y0 == nil && y1 != nil:
		point = *y1
	default:
		point = *y0 + (*y1-*y0)*f
	}
	point = model.ClampPct(point)
	res.Point = &point
	return res
}
