// Package parking exposes the forecasting and recommendation operations
// over HTTP. Handlers are plain net/http; routing is assembled by the
// composition root.
package parking

import (
	"encoding/json"
	"net/http"
)

// envelope is the wire shape shared by every endpoint: exactly one of
// error or data is set.
type envelope struct {
	Error any `json:"error"`
	Data  any `json:"data"`
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Error: msg})
}
