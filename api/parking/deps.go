package parking

import (
	"context"
	"time"

	"github.com/parkcast/parkcast/core/forecast"
	"github.com/parkcast/parkcast/core/plan"
)

// PointsReader answers online point queries. Implemented by
// forecast.PointService.
type PointsReader interface {
	Points(ctx context.Context, locationID string, target time.Time, intervalMin int) (forecast.PointsResponse, error)
}

// GeneratorRunner triggers one batch generation pass. Implemented by
// forecast.Generator.
type GeneratorRunner interface {
	Run(ctx context.Context, p forecast.Params) (forecast.Summary, error)
}

// ArrivalPlanner computes per-lot leave-time plans. Implemented by
// plan.Planner.
type ArrivalPlanner interface {
	Plan(desired time.Time, buildingToLots, userToLots []plan.Leg) ([]plan.Plan, error)
}
