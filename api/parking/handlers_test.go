package parking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/parkcast/parkcast/core/forecast"
	"github.com/parkcast/parkcast/core/model"
	"github.com/parkcast/parkcast/core/plan"
	"github.com/parkcast/parkcast/core/store"
)

type fakePoints struct {
	resp forecast.PointsResponse
	err  error

	gotLocation string
	gotTarget   time.Time
	gotInterval int
}

func (f *fakePoints) Points(_ context.Context, locationID string, target time.Time, intervalMin int) (forecast.PointsResponse, error) {
	f.gotLocation, f.gotTarget, f.gotInterval = locationID, target, intervalMin
	return f.resp, f.err
}

type fakeRunner struct {
	summary forecast.Summary
	err     error
	got     forecast.Params
}

func (f *fakeRunner) Run(_ context.Context, p forecast.Params) (forecast.Summary, error) {
	f.got = p
	return f.summary, f.err
}

type fakePlanner struct {
	plans []plan.Plan
	err   error
}

func (f *fakePlanner) Plan(time.Time, []plan.Leg, []plan.Leg) ([]plan.Plan, error) {
	return f.plans, f.err
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) (any, map[string]any) {
	t.Helper()
	var env struct {
		Error any            `json:"error"`
		Data  map[string]any `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env.Error, env.Data
}

func TestPointsHandler(t *testing.T) {
	pts := &fakePoints{resp: forecast.PointsResponse{LocationID: "campus", TZ: "UTC", IntervalMin: 30}}
	h := NewPointsHandler(pts)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/api/forecast/points?location_id=campus&time=2026-03-09T10:15:00Z&intervalMin=15", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body)
	}
	errv, data := decodeEnvelope(t, rec)
	if errv != nil || data["location_id"] != "campus" {
		t.Fatalf("envelope error=%v data=%v", errv, data)
	}
	if pts.gotLocation != "campus" || pts.gotInterval != 15 {
		t.Fatalf("service called with %q %d", pts.gotLocation, pts.gotInterval)
	}
	if want := time.Date(2026, 3, 9, 10, 15, 0, 0, time.UTC); !pts.gotTarget.Equal(want) {
		t.Fatalf("target = %v", pts.gotTarget)
	}
}

func TestPointsHandlerValidation(t *testing.T) {
	h := NewPointsHandler(&fakePoints{})
	cases := []struct {
		url  string
		want int
	}{
		{"/api/forecast/points", http.StatusBadRequest},
		{"/api/forecast/points?location_id=campus", http.StatusBadRequest},
		{"/api/forecast/points?location_id=campus&time=tomorrow", http.StatusBadRequest},
		{"/api/forecast/points?location_id=campus&time=2026-03-09T10:15:00Z&intervalMin=-5", http.StatusBadRequest},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, c.url, nil))
		if rec.Code != c.want {
			t.Errorf("%s: status = %d, want %d", c.url, rec.Code, c.want)
		}
		if errv, _ := decodeEnvelope(t, rec); errv == nil {
			t.Errorf("%s: error field empty", c.url)
		}
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/forecast/points", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST: status = %d", rec.Code)
	}
}

func TestPointsHandlerErrors(t *testing.T) {
	h := NewPointsHandler(&fakePoints{err: fmt.Errorf("location campus: %w", store.ErrNotFound)})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/api/forecast/points?location_id=campus&time=2026-03-09T10:15:00Z", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("not found: status = %d", rec.Code)
	}

	h = NewPointsHandler(&fakePoints{err: errors.New("pg down")})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/api/forecast/points?location_id=campus&time=2026-03-09T10:15:00Z", nil))
	if rec.Code != http.StatusBadGateway {
		t.Errorf("upstream failure: status = %d", rec.Code)
	}
}

func recommendationsRequestBody(arrival string) string {
	return fmt.Sprintf(`{
		"arrival_time": %q,
		"scoring_model": "closest",
		"user_to_lots": [{"lot_id": "lot-a", "duration": 300}, {"lot_id": "lot-b", "duration": 200}],
		"building_to_lots": [{"lot_id": "lot-a", "duration": 120}, {"lot_id": "lot-b", "duration": 90}]
	}`, arrival)
}

func postWithLocation(target, locationID, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.SetPathValue("location_id", locationID)
	return req
}

func TestRecommendationsHandler(t *testing.T) {
	arrival := time.Now().UTC().Add(2 * time.Hour).Truncate(time.Second)
	planner := &fakePlanner{plans: []plan.Plan{
		{LotID: "lot-a", TotalTravelTime: 420},
		{LotID: "lot-b", TotalTravelTime: 290},
		{LotID: "lot-silent", TotalTravelTime: 100},
	}}
	ten, eighty := 10.0, 80.0
	pts := &fakePoints{resp: forecast.PointsResponse{
		LocationID: "campus",
		Lots: []forecast.PointResult{
			{LotID: "lot-a", Point: &ten},
			{LotID: "lot-b", Point: &eighty},
			{LotID: "lot-silent", Point: nil}, // no forecast, dropped
		},
	}}

	h := NewRecommendationsHandler(planner, pts)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, postWithLocation("/api/locations/campus/recommendations", "campus",
		recommendationsRequestBody(arrival.Format(time.RFC3339))))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body)
	}

	var env struct {
		Data recommendationsResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatal(err)
	}
	if env.Data.Scoring.Model != plan.ScoringClosest || env.Data.Scoring.DurationWeight != 0.8 {
		t.Fatalf("scoring = %+v", env.Data.Scoring)
	}
	if len(env.Data.Recommendations) != 2 {
		t.Fatalf("recommendations = %d, want the two lots with forecasts", len(env.Data.Recommendations))
	}
	// lot-b travels less and is scored by the closest model despite being
	// fuller.
	if env.Data.Recommendations[0].LotID != "lot-b" {
		t.Fatalf("winner = %s", env.Data.Recommendations[0].LotID)
	}
}

func TestRecommendationsHandlerRejects(t *testing.T) {
	planner := &fakePlanner{err: plan.ErrArrivalWindow}
	h := NewRecommendationsHandler(planner, &fakePoints{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, postWithLocation("/x", "campus", recommendationsRequestBody("2026-03-09T10:00:00Z")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("arrival window: status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, postWithLocation("/x", "campus", `{"arrival_time": "2026-03-09T10:00:00Z"}`))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing building_to_lots: status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, postWithLocation("/x", "campus", `{not json`))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad body: status = %d", rec.Code)
	}
}

func TestGenerateHandlerAuth(t *testing.T) {
	runner := &fakeRunner{summary: forecast.Summary{Locations: 1}}
	h := NewGenerateHandler(runner, "secret")

	req := httptest.NewRequest(http.MethodPost, "/api/cron/forecast", strings.NewReader(`{"location_id":"campus"}`))
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body)
	}
	if runner.got.LocationID != "campus" {
		t.Fatalf("params = %+v", runner.got)
	}

	for name, header := range map[string]string{
		"missing": "",
		"wrong":   "Bearer nope",
		"basic":   "Basic secret",
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/cron/forecast", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s auth: status = %d", name, rec.Code)
		}
	}

	// A server configured without a key refuses every trigger.
	h = NewGenerateHandler(runner, "")
	req = httptest.NewRequest(http.MethodPost, "/api/cron/forecast", nil)
	req.Header.Set("Authorization", "Bearer ")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("empty key: status = %d", rec.Code)
	}
}

func TestGenerateHandlerBodyAndErrors(t *testing.T) {
	runner := &fakeRunner{}
	h := NewGenerateHandler(runner, "secret")

	// Empty body means defaults.
	req := httptest.NewRequest(http.MethodPost, "/api/cron/forecast", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("empty body: status = %d body %s", rec.Code, rec.Body)
	}

	runner.err = fmt.Errorf("%w: bad date", forecast.ErrInvalidParams)
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/cron/forecast", nil)
	req.Header.Set("Authorization", "Bearer secret")
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid params: status = %d", rec.Code)
	}

	runner.err = fmt.Errorf("location x: %w", store.ErrNotFound)
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/cron/forecast", nil)
	req.Header.Set("Authorization", "Bearer secret")
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown location: status = %d", rec.Code)
	}
}

type fakeLocationStore struct {
	lots []model.Lot
	err  error
}

func (f *fakeLocationStore) GetLocation(context.Context, string) (model.Location, error) {
	return model.Location{}, store.ErrNotFound
}
func (f *fakeLocationStore) ListLocations(context.Context) ([]model.Location, error) {
	return nil, nil
}
func (f *fakeLocationStore) GetLots(context.Context, string) ([]model.Lot, error) {
	return f.lots, f.err
}

type fakeMatrix struct {
	legs []model.TravelLeg
	err  error
}

func (f *fakeMatrix) Matrix(context.Context, model.Coordinate, []model.Coordinate, string) ([]model.TravelLeg, error) {
	return f.legs, f.err
}

type fakeGeocoder struct {
	coord model.Coordinate
	err   error
	got   string
}

func (f *fakeGeocoder) Geocode(_ context.Context, address string) (model.Coordinate, error) {
	f.got = address
	return f.coord, f.err
}

func TestCalculateHandler(t *testing.T) {
	locs := &fakeLocationStore{lots: []model.Lot{
		{ID: "lot-a", Coord: model.Coordinate{Lat: 48.86, Lon: 2.36}},
		{ID: "lot-b", Coord: model.Coordinate{Lat: 48.87, Lon: 2.37}},
	}}
	matrix := &fakeMatrix{legs: []model.TravelLeg{
		{DurationSeconds: 120, DistanceMeters: 900},
		{DurationSeconds: 310, DistanceMeters: 2400},
	}}
	geo := &fakeGeocoder{coord: model.Coordinate{Lat: 48.85, Lon: 2.35}}

	h := NewCalculateHandler(locs, matrix, geo)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, postWithLocation("/x", "campus", `{"address": "1 rue de la Paix", "mode": "foot-walking"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body)
	}
	if geo.got != "1 rue de la Paix" {
		t.Fatalf("geocoded %q", geo.got)
	}

	var env struct {
		Data calculateResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatal(err)
	}
	if len(env.Data.Legs) != 2 || env.Data.Legs[0].LotID != "lot-a" || env.Data.Legs[1].DurationSeconds != 310 {
		t.Fatalf("legs = %+v", env.Data.Legs)
	}

	// Explicit origin skips the geocoder.
	geo.got = ""
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, postWithLocation("/x", "campus", `{"origin": {"lat": 48.1, "lon": 2.1}}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("origin: status = %d", rec.Code)
	}
	if geo.got != "" {
		t.Fatal("geocoder called despite explicit origin")
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, postWithLocation("/x", "campus", `{}`))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("no origin: status = %d", rec.Code)
	}
}

func TestCalculateHandlerUpstreamErrors(t *testing.T) {
	locs := &fakeLocationStore{lots: []model.Lot{{ID: "lot-a"}}}

	h := NewCalculateHandler(locs, &fakeMatrix{err: errors.New("matrix down")}, &fakeGeocoder{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, postWithLocation("/x", "campus", `{"origin": {"lat": 1, "lon": 2}}`))
	if rec.Code != http.StatusBadGateway {
		t.Errorf("matrix failure: status = %d", rec.Code)
	}

	h = NewCalculateHandler(locs, &fakeMatrix{}, &fakeGeocoder{err: errors.New("geocoder down")})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, postWithLocation("/x", "campus", `{"address": "somewhere"}`))
	if rec.Code != http.StatusBadGateway {
		t.Errorf("geocoder failure: status = %d", rec.Code)
	}
}
