package parking

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/parkcast/parkcast/core/plan"
	"github.com/parkcast/parkcast/core/store"
)

type recommendationsRequest struct {
	ArrivalTime    string     `json:"arrival_time"`
	ScoringModel   string     `json:"scoring_model"`
	IntervalMin    int        `json:"intervalMin"`
	UserToLots     []plan.Leg `json:"user_to_lots"`
	BuildingToLots []plan.Leg `json:"building_to_lots"`
}

type scoringInfo struct {
	Model           string  `json:"model"`
	DurationWeight  float64 `json:"duration_weight"`
	OccupancyWeight float64 `json:"occupancy_weight"`
}

type recommendationsResponse struct {
	Scoring            scoringInfo           `json:"scoring"`
	DesiredArrivalTime time.Time             `json:"desired_arrival_time"`
	Recommendations    []plan.Recommendation `json:"recommendations"`
}

// NewRecommendationsHandler serves POST
// /api/locations/{location_id}/recommendations: per-lot leave-time plans
// joined with forecasted occupancy and ranked by the requested scoring
// model. Lots without a forecast point are omitted rather than failing
// the request.
func NewRecommendationsHandler(planner ArrivalPlanner, points PointsReader) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		locationID := r.PathValue("location_id")
		if locationID == "" {
			writeError(w, http.StatusBadRequest, "location_id required")
			return
		}

		var req recommendationsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if len(req.BuildingToLots) == 0 {
			writeError(w, http.StatusBadRequest, "building_to_lots required")
			return
		}
		desired, err := time.Parse(time.RFC3339, req.ArrivalTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "arrival_time must be RFC3339")
			return
		}

		plans, err := planner.Plan(desired, req.BuildingToLots, req.UserToLots)
		if err != nil {
			if errors.Is(err, plan.ErrArrivalWindow) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		occupancy, err := points.Points(r.Context(), locationID, desired, req.IntervalMin)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		occByLot := make(map[string]*float64, len(occupancy.Lots))
		for _, lot := range occupancy.Lots {
			occByLot[lot.LotID] = lot.Point
		}

		candidates := make([]plan.Candidate, 0, len(plans))
		for _, pl := range plans {
			pct, ok := occByLot[pl.LotID]
			if !ok || pct == nil {
				continue
			}
			candidates = append(candidates, plan.Candidate{Plan: pl, OccupancyPct: *pct})
		}

		name, weights, recs := plan.Score(req.ScoringModel, candidates)
		writeData(w, http.StatusOK, recommendationsResponse{
			Scoring: scoringInfo{
				Model:           name,
				DurationWeight:  weights.Duration,
				OccupancyWeight: weights.Occupancy,
			},
			DesiredArrivalTime: desired.UTC(),
			Recommendations:    recs,
		})
	})
}
