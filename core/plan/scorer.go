package plan

import (
	"sort"
	"strings"

	"github.com/parkcast/parkcast/core/model"
)

// Named scoring models. Each trades travel time against predicted
// fullness; an unknown name silently falls back to balanced.
const (
	ScoringClosest   = "closest"
	ScoringLeastFull = "least_full"
	ScoringBalanced  = "balanced"
)

// Weights pairs the duration and occupancy weights of a scoring model.
// Weights for every named model sum to 1.0.
type Weights struct {
	Duration  float64 `json:"duration_weight"`
	Occupancy float64 `json:"occupancy_weight"`
}

// ScoringModel resolves a model name to its weights, falling back to
// balanced for anything unrecognized. The returned name is the resolved
// one so callers can echo the effective model.
func ScoringModel(name string) (string, Weights) {
	switch strings.ReplaceAll(strings.ToLower(name), "-", "_") {
	case ScoringClosest:
		return ScoringClosest, Weights{Duration: 0.8, Occupancy: 0.2}
	case ScoringLeastFull:
		return ScoringLeastFull, Weights{Duration: 0.2, Occupancy: 0.8}
	default:
		return ScoringBalanced, Weights{Duration: 0.6, Occupancy: 0.4}
	}
}

// Candidate is a plan joined with the lot's predicted occupancy.
type Candidate struct {
	Plan
	OccupancyPct float64 `json:"occupancy_pct"`
}

// Scoring is the per-candidate score breakdown.
type Scoring struct {
	RawScore            float64 `json:"raw_score"`
	RecommendationScore float64 `json:"recommendation_score"`
	DurationScore       float64 `json:"duration_score"`
	OccupancyScore      float64 `json:"occupancy_score"`
}

// Recommendation is a scored candidate.
type Recommendation struct {
	Candidate
	Scoring Scoring `json:"scoring"`
}

// Score ranks candidates descending by recommendation score. Travel time
// is normalized against the slowest candidate; when every candidate has a
// zero total travel time the duration term drops out instead of dividing
// by zero. Occupancy is squared so high fullness hurts superlinearly. Ties
// keep input order.
func Score(scoringModel string, candidates []Candidate) (string, Weights, []Recommendation) {
	name, w := ScoringModel(scoringModel)

	var maxTotal float64
	for _, c := range candidates {
		if c.TotalTravelTime > maxTotal {
			maxTotal = c.TotalTravelTime
		}
	}

	recs := make([]Recommendation, 0, len(candidates))
	for _, c := range candidates {
		normDur := 0.0
		if maxTotal > 0 {
			normDur = c.TotalTravelTime / maxTotal
		}
		durationScore := normDur * w.Duration

		normOcc := model.ClampPct(c.OccupancyPct) / 100
		occupancyScore := normOcc * normOcc * w.Occupancy

		raw := round2(durationScore + occupancyScore)
		recs = append(recs, Recommendation{
			Candidate: c,
			Scoring: Scoring{
				RawScore:            raw,
				RecommendationScore: round2(1 - raw),
				DurationScore:       round2(durationScore),
				OccupancyScore:      round2(occupancyScore),
			},
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Scoring.RecommendationScore > recs[j].Scoring.RecommendationScore
	})
	return name, w, recs
}
