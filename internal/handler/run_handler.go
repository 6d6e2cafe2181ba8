package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/TechniCodeCamp2025/fleet-api/internal/model"
	"github.com/TechniCodeCamp2025/fleet-api/internal/rundriver"
	"github.com/TechniCodeCamp2025/fleet-api/internal/runcontrol"
	"github.com/TechniCodeCamp2025/fleet-api/internal/store"
)

// RunStatus is the lifecycle state of a submitted run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// runRecord is the registry's per-run bookkeeping. Summary/Err are only
// populated once Status leaves "running".
type runRecord struct {
	mu      sync.RWMutex
	id      int64
	status  RunStatus
	summary rundriver.RunSummary
	errMsg  string
	cancel  *runcontrol.LocalSignal
}

// RunHandler submits planning runs to a rundriver.Driver and serves their
// status back over HTTP. Runs execute in a background goroutine so a slow
// run never holds an HTTP request open.
type RunHandler struct {
	driverCfg rundriver.Config
	newDriver func(reporter rundriver.ProgressReporter, cancel rundriver.CancelSignal) *rundriver.Driver
	persist   store.RunStore // optional; nil means in-memory only

	mu     sync.RWMutex
	runs   map[int64]*runRecord
	nextID int64
}

// NewRunHandler builds a RunHandler. newDriver constructs a fresh
// rundriver.Driver per run (it needs a distinct cancel signal each time);
// persist may be nil to skip Postgres persistence.
func NewRunHandler(newDriver func(rundriver.ProgressReporter, rundriver.CancelSignal) *rundriver.Driver, persist store.RunStore) *RunHandler {
	return &RunHandler{
		newDriver: newDriver,
		persist:   persist,
		runs:      make(map[int64]*runRecord),
	}
}

// submitRunBody is the JSON body for POST /api/v1/runs.
type submitRunBody struct {
	Vehicles  []model.VehicleSpec `json:"vehicles"`
	Locations []model.Location    `json:"locations"`
	Routes    []model.Route       `json:"routes"`
	RunStart  time.Time           `json:"run_start"`
}

// SubmitRun handles POST /api/v1/runs: validates the body, starts the run
// in the background, and immediately returns its id for polling.
func (h *RunHandler) SubmitRun(w http.ResponseWriter, r *http.Request) {
	var body submitRunBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if len(body.Vehicles) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "vehicles must be non-empty"})
		return
	}
	if len(body.Locations) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "locations must be non-empty"})
		return
	}
	for i := range body.Routes {
		body.Routes[i].DeriveEndpoints()
	}

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	rec := &runRecord{id: id, status: RunStatusRunning, cancel: runcontrol.NewLocalSignal()}
	h.runs[id] = rec
	h.mu.Unlock()

	driver := h.newDriver(nil, rec.cancel)
	startedAt := body.RunStart

	go func() {
		summary, err := driver.Run(context.Background(), body.Vehicles, body.Locations, body.Routes, startedAt)

		rec.mu.Lock()
		if err != nil {
			rec.status = RunStatusFailed
			rec.errMsg = err.Error()
		} else {
			rec.status = RunStatusCompleted
			rec.summary = summary
		}
		rec.mu.Unlock()

		if err == nil && h.persist != nil {
			if perr := h.persist.SaveRun(context.Background(), id, startedAt, summary); perr != nil {
				log.Printf("[handler] persist run %d: %v", id, perr)
			}
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]interface{}{"run_id": id, "status": RunStatusRunning})
}

// GetRun handles GET /api/v1/runs/{id}: the run's current status, and its
// summary once it has finished. Runs this process has forgotten (e.g.
// after a restart) are looked up in Postgres instead, when persistence is
// configured.
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid run id"})
		return
	}

	h.mu.RLock()
	rec, ok := h.runs[id]
	h.mu.RUnlock()
	if !ok {
		if h.persist == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
			return
		}
		summary, perr := h.persist.LoadRunSummary(r.Context(), id)
		if perr != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"run_id": id, "status": RunStatusCompleted, "summary": summary,
		})
		return
	}

	rec.mu.RLock()
	defer rec.mu.RUnlock()

	resp := map[string]interface{}{"run_id": rec.id, "status": rec.status}
	switch rec.status {
	case RunStatusCompleted:
		resp["summary"] = rec.summary
	case RunStatusFailed:
		resp["error"] = rec.errMsg
	}
	writeJSON(w, http.StatusOK, resp)
}

// CancelRun handles POST /api/v1/runs/{id}/cancel: signals the run's
// cooperative cancellation flag. The run still finishes its current route
// before stopping (spec.md §5's between-routes checkpoint).
func (h *RunHandler) CancelRun(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid run id"})
		return
	}

	h.mu.RLock()
	rec, ok := h.runs[id]
	h.mu.RUnlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
		return
	}

	rec.cancel.Cancel()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancel_requested"})
}
