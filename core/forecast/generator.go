package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/parkcast/parkcast/core/logger"
	"github.com/parkcast/parkcast/core/metrics"
	"github.com/parkcast/parkcast/core/model"
	"github.com/parkcast/parkcast/core/store"
	"github.com/parkcast/parkcast/core/timeslot"
)

// ErrInvalidParams marks trigger parameters the generator refuses to run
// with (unknown model, bad date, oversized range).
var ErrInvalidParams = errors.New("invalid generation parameters")

// Generation window limits. Without an explicit date the generator covers
// today through +6 days; an explicit date may stretch the window up to the
// cap.
const (
	defaultWindowDays = 7
	maxWindowDays     = 14
)

// Params parameterizes one generation run.
type Params struct {
	// LocationID restricts the run to one location; empty or "all" covers
	// every location.
	LocationID   string `json:"location_id"`
	IntervalMin  int    `json:"intervalMin"`
	Model        string `json:"model"`
	ModelVersion string `json:"modelVersion"`
	// Date is an optional local calendar day (YYYY-MM-DD or RFC3339). When
	// set, the window runs from today through that day.
	Date string `json:"date"`
}

// Summary is the response shape of a completed run.
type Summary struct {
	Locations      int    `json:"locations"`
	Lots           int    `json:"lots"`
	Slots          int    `json:"slots"`
	DaysForecasted int    `json:"days_forecasted"`
	Model          string `json:"model"`
	Version        string `json:"version"`
	IntervalMin    int    `json:"intervalMin"`
}

// Generator drives a forecast model across locations, lots and days,
// replacing each lot/day's forecast rows. A failing lot/day is skipped and
// logged; a run never aborts half way because one unit misbehaved.
type Generator struct {
	locations   store.LocationStore
	occupancy   store.OccupancyStore
	models      *ModelRegistry
	clock       clockwork.Clock
	log         logger.Logger
	sink        metrics.Sink
	unitTimeout time.Duration
}

// NewGenerator wires a generator. clock and sink may be nil, defaulting to
// the real clock and a no-op sink.
func NewGenerator(locations store.LocationStore, occupancy store.OccupancyStore, models *ModelRegistry, clock clockwork.Clock, log logger.Logger, sink metrics.Sink, unitTimeout time.Duration) *Generator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	if unitTimeout <= 0 {
		unitTimeout = 30 * time.Second
	}
	return &Generator{
		locations:   locations,
		occupancy:   occupancy,
		models:      models,
		clock:       clock,
		log:         log,
		sink:        sink,
		unitTimeout: unitTimeout,
	}
}

// Run executes one generation pass and returns the summary.
func (g *Generator) Run(ctx context.Context, p Params) (Summary, error) {
	started := g.clock.Now()
	if p.IntervalMin <= 0 {
		p.IntervalMin = DefaultIntervalMin
	}
	interval := time.Duration(p.IntervalMin) * time.Minute

	mdl, err := ResolveModel(g.models, p.Model, p.ModelVersion)
	if err != nil {
		return Summary{}, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}

	locations, err := g.resolveLocations(ctx, p.LocationID)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{
		Locations:   len(locations),
		Model:       mdl.Name(),
		Version:     mdl.Version(),
		IntervalMin: p.IntervalMin,
	}
	if len(locations) == 0 {
		return summary, nil
	}

	runID := uuid.NewString()
	generatedAt := g.clock.Now().UTC()
	skipped, failed := 0, 0

	for _, loc := range locations {
		zone, err := loc.Zone()
		if err != nil {
			g.log.Errorf("location %s: timezone %q: %v", loc.ID, loc.Timezone, err)
			failed++
			continue
		}

		startDay, targetDay, err := g.windowFor(zone, p.Date)
		if err != nil {
			return Summary{}, err
		}

		lots, err := g.locations.GetLots(ctx, loc.ID)
		if err != nil {
			g.log.Errorf("location %s: list lots: %v", loc.ID, err)
			failed++
			continue
		}
		summary.Lots += len(lots)

		for _, lot := range lots {
			for day := startDay; !day.After(targetDay); day = day.AddDate(0, 0, 1) {
				rows, status := g.generateUnit(ctx, mdl, lot, zone, interval, day, runID, generatedAt)
				switch status {
				case unitDone:
					summary.Slots += len(rows)
					summary.DaysForecasted++
				case unitSkipped:
					skipped++
				case unitFailed:
					failed++
				}
			}
		}
	}

	if err := g.sink.RecordBatchRun(metrics.BatchRun{
		RunID:          runID,
		Model:          summary.Model,
		Version:        summary.Version,
		IntervalMin:    summary.IntervalMin,
		Locations:      summary.Locations,
		Lots:           summary.Lots,
		Slots:          summary.Slots,
		DaysForecasted: summary.DaysForecasted,
		UnitsSkipped:   skipped,
		UnitsFailed:    failed,
		Duration:       g.clock.Since(started),
	}); err != nil {
		g.log.Warnf("record batch run: %v", err)
	}
	return summary, nil
}

type unitStatus int

const (
	unitDone unitStatus = iota
	unitSkipped
	unitFailed
)

// generateUnit processes a single lot/day: existence check, prepare, grid,
// predict per slot, atomic replace. Any failure inside the unit, panics
// included, is contained to the unit.
func (g *Generator) generateUnit(ctx context.Context, mdl Model, lot model.Lot, zone *time.Location, interval time.Duration, day time.Time, runID string, generatedAt time.Time) (rows []model.ForecastPoint, status unitStatus) {
	defer func() {
		if r := recover(); r != nil {
			g.log.Errorf("lot %s day %s: model panic: %v", lot.ID, day.Format("2006-01-02"), r)
			rows, status = nil, unitFailed
		}
	}()

	unitCtx, cancel := context.WithTimeout(ctx, g.unitTimeout)
	defer cancel()

	dayStart := day
	dayEnd := day.AddDate(0, 0, 1)
	fromUTC, toUTC := dayStart.UTC(), dayEnd.UTC()

	count, err := g.occupancy.CountForecasts(unitCtx, lot.ID, fromUTC, toUTC)
	if err != nil {
		g.log.Errorf("lot %s day %s: existence check: %v", lot.ID, day.Format("2006-01-02"), err)
		return nil, unitFailed
	}
	if count > 0 {
		return nil, unitSkipped
	}

	pass, err := mdl.Prepare(unitCtx, lot, zone, interval, dayStart)
	if err != nil {
		g.log.Errorf("lot %s day %s: prepare: %v", lot.ID, day.Format("2006-01-02"), err)
		return nil, unitFailed
	}

	window := timeslot.WindowForLot(lot)
	for _, slot := range timeslot.Grid(dayStart, dayEnd, interval, window) {
		v, ok := mdl.Predict(slot, interval, pass)
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		rows = append(rows, model.ForecastPoint{
			LotID:         lot.ID,
			ModelName:     mdl.Name(),
			ModelVersion:  mdl.Version(),
			RunID:         runID,
			GeneratedAt:   generatedAt,
			ForecastTS:    slot.UTC(),
			PredictionPct: model.ClampPct(v),
		})
	}

	if err := g.occupancy.ReplaceDayForecasts(unitCtx, lot.ID, fromUTC, toUTC, rows); err != nil {
		g.log.Errorf("lot %s day %s: replace forecasts: %v", lot.ID, day.Format("2006-01-02"), err)
		return nil, unitFailed
	}
	return rows, unitDone
}

func (g *Generator) resolveLocations(ctx context.Context, filter string) ([]model.Location, error) {
	if filter == "" || filter == "all" {
		locs, err := g.locations.ListLocations(ctx)
		if err != nil {
			return nil, fmt.Errorf("list locations: %w", err)
		}
		return locs, nil
	}
	loc, err := g.locations.GetLocation(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("location %s: %w", filter, err)
	}
	return []model.Location{loc}, nil
}

// windowFor computes the inclusive local day range for one location.
func (g *Generator) windowFor(zone *time.Location, date string) (start, target time.Time, err error) {
	now := g.clock.Now().In(zone)
	start = midnight(now)
	if date == "" {
		target = start.AddDate(0, 0, defaultWindowDays-1)
	} else {
		parsed, perr := parseLocalDate(date, zone)
		if perr != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: date %q: %v", ErrInvalidParams, date, perr)
		}
		target = midnight(parsed)
	}
	if target.Before(start) {
		start = target
	}
	days := 0
	for d := start; !d.After(target); d = d.AddDate(0, 0, 1) {
		days++
	}
	if days > maxWindowDays {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: date range too large (max %d days)", ErrInvalidParams, maxWindowDays)
	}
	return start, target, nil
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func parseLocalDate(s string, zone *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02", s, zone); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(zone), nil
}
