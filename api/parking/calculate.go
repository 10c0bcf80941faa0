package parking

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/parkcast/parkcast/core/model"
	"github.com/parkcast/parkcast/core/store"
)

type calculateRequest struct {
	Address string            `json:"address"`
	Origin  *model.Coordinate `json:"origin"`
	Mode    string            `json:"mode"`
}

type calculateLeg struct {
	LotID           string  `json:"lot_id"`
	DurationSeconds float64 `json:"duration_seconds"`
	DistanceMeters  float64 `json:"distance_meters"`
}

type calculateResponse struct {
	Origin model.Coordinate `json:"origin"`
	Mode   string           `json:"mode"`
	Legs   []calculateLeg   `json:"legs"`
}

// NewCalculateHandler serves POST /api/locations/{location_id}/calculate:
// travel legs from an origin (coordinates or a geocoded address) to every
// lot of the location. The output feeds the recommendations endpoint as
// user_to_lots.
func NewCalculateHandler(locations store.LocationStore, matrix store.TravelMatrixProvider, geocoder store.Geocoder) http.Handler {
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

		var req calculateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Origin == nil && req.Address == "" {
			writeError(w, http.StatusBadRequest, "origin or address required")
			return
		}

		origin := model.Coordinate{}
		if req.Origin != nil {
			origin = *req.Origin
		} else {
			coord, err := geocoder.Geocode(r.Context(), req.Address)
			if err != nil {
				writeError(w, http.StatusBadGateway, err.Error())
				return
			}
			origin = coord
		}

		lots, err := locations.GetLots(r.Context(), locationID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		if len(lots) == 0 {
			writeData(w, http.StatusOK, calculateResponse{Origin: origin, Mode: req.Mode})
			return
		}

		dests := make([]model.Coordinate, len(lots))
		for i, lot := range lots {
			dests[i] = lot.Coord
		}
		legs, err := matrix.Matrix(r.Context(), origin, dests, req.Mode)
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}

		resp := calculateResponse{Origin: origin, Mode: req.Mode, Legs: make([]calculateLeg, len(legs))}
		for i, leg := range legs {
			resp.Legs[i] = calculateLeg{
				LotID:           lots[i].ID,
				DurationSeconds: leg.DurationSeconds,
				DistanceMeters:  leg.DistanceMeters,
			}
		}
		writeData(w, http.StatusOK, resp)
	})
}
