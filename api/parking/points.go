package parking

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/parkcast/parkcast/core/store"
)

// NewPointsHandler serves GET /api/forecast/points: the predicted
// occupancy of every lot of a location at one instant.
// Query parameters: location_id and time (RFC3339, UTC) are required;
// intervalMin is optional.
func NewPointsHandler(points PointsReader) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		locationID := r.URL.Query().Get("location_id")
		rawTime := r.URL.Query().Get("time")
		if locationID == "" || rawTime == "" {
			writeError(w, http.StatusBadRequest, "location_id, time required")
			return
		}
		target, err := time.Parse(time.RFC3339, rawTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "time must be RFC3339")
			return
		}
		intervalMin := 0
		if raw := r.URL.Query().Get("intervalMin"); raw != "" {
			intervalMin, err = strconv.Atoi(raw)
			if err != nil || intervalMin <= 0 {
				writeError(w, http.StatusBadRequest, "intervalMin must be a positive integer")
				return
			}
		}

		resp, err := points.Points(r.Context(), locationID, target, intervalMin)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeData(w, http.StatusOK, resp)
	})
}
