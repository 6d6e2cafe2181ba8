// Package handler is the thin HTTP control surface over the planning
// engine: submit a run, poll its status, cancel it. It never reaches into
// engine internals — only rundriver.Driver, runcontrol.LocalSignal and
// store.RunStore, the same "handler calls service, service calls
// repository" layering the teacher uses for ride matching/booking.
package handler

import (
	"encoding/json"
	"net/http"
)

// writeJSON writes a JSON response, same helper shape as the teacher's.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
