package forecast

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/parkcast/parkcast/core/model"
	"github.com/parkcast/parkcast/core/store"
)

type nopLog struct{}

func (nopLog) Debugf(string, ...any)         {}
func (nopLog) Debugw(string, map[string]any) {}
func (nopLog) Infof(string, ...any)          {}
func (nopLog) Warnf(string, ...any)          {}
func (nopLog) Errorf(string, ...any)         {}

type fakeLocations struct {
	locations []model.Location
	lots      map[string][]model.Lot
}

func (f *fakeLocations) GetLocation(_ context.Context, id string) (model.Location, error) {
	for _, l := range f.locations {
		if l.ID == id {
			return l, nil
		}
	}
	return model.Location{}, store.ErrNotFound
}

func (f *fakeLocations) ListLocations(context.Context) ([]model.Location, error) {
	return f.locations, nil
}

func (f *fakeLocations) GetLots(_ context.Context, locationID string) ([]model.Lot, error) {
	return f.lots[locationID], nil
}

// fakeOccupancy keeps forecast rows in memory keyed by lot.
type fakeOccupancy struct {
	fakeSamples
	forecasts map[string][]model.ForecastPoint
	replaces  int
	countErr  map[string]error
}

func (f *fakeOccupancy) InsertSamples(_ context.Context, samples []model.OccupancySample) error {
	f.rows = append(f.rows, samples...)
	return nil
}

func (f *fakeOccupancy) CountForecasts(_ context.Context, lotID string, fromUTC, toUTC time.Time) (int, error) {
	if err := f.countErr[lotID]; err != nil {
		return 0, err
	}
	n := 0
	for _, r := range f.forecasts[lotID] {
		if !r.ForecastTS.Before(fromUTC) && r.ForecastTS.Before(toUTC) {
			n++
		}
	}
	return n, nil
}

func (f *fakeOccupancy) QueryForecasts(_ context.Context, lotID string, fromUTC, toUTC time.Time) ([]model.ForecastPoint, error) {
	var out []model.ForecastPoint
	for _, r := range f.forecasts[lotID] {
		if !r.ForecastTS.Before(fromUTC) && !r.ForecastTS.After(toUTC) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeOccupancy) ReplaceDayForecasts(_ context.Context, lotID string, fromUTC, toUTC time.Time, rows []model.ForecastPoint) error {
	f.replaces++
	if f.forecasts == nil {
		f.forecasts = make(map[string][]model.ForecastPoint)
	}
	var kept []model.ForecastPoint
	for _, r := range f.forecasts[lotID] {
		if r.ForecastTS.Before(fromUTC) || !r.ForecastTS.Before(toUTC) {
			kept = append(kept, r)
		}
	}
	f.forecasts[lotID] = append(kept, rows...)
	return nil
}

func newTestGenerator(t *testing.T, locs *fakeLocations, occ *fakeOccupancy, now time.Time) *Generator {
	t.Helper()
	clock := clockwork.NewFakeClockAt(now)
	return NewGenerator(locs, occ, NewModelRegistry(occ), clock, nopLog{}, nil, 0)
}

func TestGeneratorRunDefaults(t *testing.T) {
	now := time.Date(2026, 3, 9, 11, 0, 0, 0, time.UTC)
	locs := &fakeLocations{
		locations: []model.Location{{ID: "campus", Timezone: "UTC"}},
		lots: map[string][]model.Lot{
			"campus": {{ID: "lot-a", LocationID: "campus", Is24h: true}},
		},
	}
	occ := &fakeOccupancy{}
	// One sample last Monday at 10:00 feeds the last-week model.
	occ.rows = []model.OccupancySample{sample("lot-a", now.AddDate(0, 0, -7).Truncate(24*time.Hour).Add(10*time.Hour), 50)}

	gen := newTestGenerator(t, locs, occ, now)
	sum, err := gen.Run(context.Background(), Params{Model: ModelLastWeekSameTime})
	if err != nil {
		t.Fatal(err)
	}
	if sum.Locations != 1 || sum.Lots != 1 {
		t.Fatalf("summary %+v", sum)
	}
	// Default window is today through +6 days.
	if sum.DaysForecasted != 7 {
		t.Fatalf("days forecasted = %d, want 7", sum.DaysForecasted)
	}
	// 24h lot at the default 30-minute interval, 48 slots per day. The
	// last-week model forecasts every slot.
	if sum.Slots != 7*48 {
		t.Fatalf("slots = %d, want %d", sum.Slots, 7*48)
	}
	if sum.Model != ModelLastWeekSameTime || sum.IntervalMin != DefaultIntervalMin {
		t.Fatalf("summary %+v", sum)
	}
	for _, r := range occ.forecasts["lot-a"] {
		if r.RunID == "" || r.ModelName != ModelLastWeekSameTime || r.ModelVersion != "v1" {
			t.Fatalf("bad forecast row %+v", r)
		}
	}
}

func TestGeneratorSkipsExistingDays(t *testing.T) {
	now := time.Date(2026, 3, 9, 11, 0, 0, 0, time.UTC)
	locs := &fakeLocations{
		locations: []model.Location{{ID: "campus", Timezone: "UTC"}},
		lots: map[string][]model.Lot{
			"campus": {{ID: "lot-a", LocationID: "campus", Is24h: true}},
		},
	}
	occ := &fakeOccupancy{forecasts: map[string][]model.ForecastPoint{
		"lot-a": {fp(time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC), 12)},
	}}

	gen := newTestGenerator(t, locs, occ, now)
	sum, err := gen.Run(context.Background(), Params{Model: ModelLastWeekSameTime, Date: "2026-03-10"})
	if err != nil {
		t.Fatal(err)
	}
	// Window is today and tomorrow; tomorrow already has a row and is
	// skipped untouched.
	if sum.DaysForecasted != 1 {
		t.Fatalf("days forecasted = %d, want 1", sum.DaysForecasted)
	}
	if occ.replaces != 1 {
		t.Fatalf("replace calls = %d, want 1", occ.replaces)
	}
	rows, _ := occ.QueryForecasts(context.Background(), "lot-a",
		time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC))
	if len(rows) != 1 || rows[0].PredictionPct != 12 {
		t.Fatalf("pre-existing day was rewritten: %+v", rows)
	}
}

func TestGeneratorUnitFailureIsolation(t *testing.T) {
	now := time.Date(2026, 3, 9, 11, 0, 0, 0, time.UTC)
	locs := &fakeLocations{
		locations: []model.Location{{ID: "campus", Timezone: "UTC"}},
		lots: map[string][]model.Lot{
			"campus": {
				{ID: "lot-bad", LocationID: "campus", Is24h: true},
				{ID: "lot-good", LocationID: "campus", Is24h: true},
			},
		},
	}
	occ := &fakeOccupancy{countErr: map[string]error{"lot-bad": errors.New("boom")}}

	gen := newTestGenerator(t, locs, occ, now)
	sum, err := gen.Run(context.Background(), Params{Model: ModelLastWeekSameTime, Date: "2026-03-09"})
	if err != nil {
		t.Fatal(err)
	}
	if sum.DaysForecasted != 1 {
		t.Fatalf("days forecasted = %d, want the healthy lot only", sum.DaysForecasted)
	}
	if len(occ.forecasts["lot-bad"]) != 0 {
		t.Fatal("failed lot must not get rows")
	}
	if len(occ.forecasts["lot-good"]) == 0 {
		t.Fatal("healthy lot should still be forecast")
	}
}

func TestGeneratorParamValidation(t *testing.T) {
	now := time.Date(2026, 3, 9, 11, 0, 0, 0, time.UTC)
	locs := &fakeLocations{
		locations: []model.Location{{ID: "campus", Timezone: "UTC"}},
		lots:      map[string][]model.Lot{"campus": {{ID: "lot-a", Is24h: true}}},
	}
	gen := newTestGenerator(t, locs, &fakeOccupancy{}, now)

	if _, err := gen.Run(context.Background(), Params{Model: "no_such_model"}); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("unknown model: %v", err)
	}
	if _, err := gen.Run(context.Background(), Params{Date: "not-a-date"}); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("bad date: %v", err)
	}
	// 2026-03-23 is 15 inclusive days from today, one past the cap.
	_, err := gen.Run(context.Background(), Params{Date: "2026-03-23"})
	if !errors.Is(err, ErrInvalidParams) || !strings.Contains(err.Error(), "range too large") {
		t.Fatalf("oversized range: %v", err)
	}
	// Exactly at the cap is fine.
	if _, err := gen.Run(context.Background(), Params{Date: "2026-03-22"}); err != nil {
		t.Fatalf("14-day range should run: %v", err)
	}
	// A past target day collapses the window to that single day.
	sum, err := gen.Run(context.Background(), Params{LocationID: "campus", Date: "2026-03-01"})
	if err != nil {
		t.Fatal(err)
	}
	if sum.DaysForecasted > 1 {
		t.Fatalf("past date: days forecasted = %d, want at most 1", sum.DaysForecasted)
	}
}

func TestGeneratorUnknownLocation(t *testing.T) {
	now := time.Date(2026, 3, 9, 11, 0, 0, 0, time.UTC)
	gen := newTestGenerator(t, &fakeLocations{}, &fakeOccupancy{}, now)
	if _, err := gen.Run(context.Background(), Params{LocationID: "nope"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("unknown location: %v", err)
	}
}

func TestPointServiceEndToEnd(t *testing.T) {
	now := time.Date(2026, 3, 9, 10, 15, 0, 0, time.UTC)
	locs := &fakeLocations{
		locations: []model.Location{{ID: "campus", Timezone: "UTC"}},
		lots: map[string][]model.Lot{
			"campus": {
				{ID: "lot-a", LocationID: "campus", Is24h: true},
				{ID: "lot-empty", LocationID: "campus", Is24h: true},
			},
		},
	}
	occ := &fakeOccupancy{forecasts: map[string][]model.ForecastPoint{
		"lot-a": {
			fp(time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC), 8),
			fp(time.Date(2026, 3, 9, 10, 30, 0, 0, time.UTC), 12),
		},
	}}

	svc := NewPointService(locs, occ, clockwork.NewFakeClockAt(now), nil, 0)
	resp, err := svc.Points(context.Background(), "campus", now, 30)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Lots) != 2 {
		t.Fatalf("lots = %d, want 2", len(resp.Lots))
	}
	if resp.Lots[0].Point == nil || *resp.Lots[0].Point != 10 {
		t.Fatalf("lot-a point = %v, want 10", resp.Lots[0].Point)
	}
	// A lot with no forecast rows yields a nil point, not an error.
	if resp.Lots[1].Point != nil {
		t.Fatalf("lot-empty point = %v, want nil", *resp.Lots[1].Point)
	}

	if _, err := svc.Points(context.Background(), "nowhere", now, 30); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("unknown location: %v", err)
	}
}
