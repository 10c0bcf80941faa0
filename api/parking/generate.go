package parking

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/parkcast/parkcast/core/forecast"
	"github.com/parkcast/parkcast/core/store"
)

// NewGenerateHandler serves POST /api/cron/forecast: triggers one batch
// generation run. The endpoint is meant for schedulers and requires the
// shared bearer key.
func NewGenerateHandler(gen GeneratorRunner, apiKey string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if !authorized(r, apiKey) {
			writeError(w, http.StatusUnauthorized, "invalid or missing bearer token")
			return
		}

		var params forecast.Params
		// An empty body runs with defaults.
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		summary, err := gen.Run(r.Context(), params)
		if err != nil {
			switch {
			case errors.Is(err, forecast.ErrInvalidParams):
				writeError(w, http.StatusBadRequest, err.Error())
			case errors.Is(err, store.ErrNotFound):
				writeError(w, http.StatusNotFound, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}
		writeData(w, http.StatusOK, summary)
	})
}

func authorized(r *http.Request, apiKey string) bool {
	if apiKey == "" {
		return false
	}
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) == 1
}
