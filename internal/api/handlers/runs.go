// Package handlers holds the HTTP handlers of the API server.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/stockfinder/internal/ingest"
	"github.com/wonny/stockfinder/pkg/logger"
)

// RunHandler serves run ledger queries
type RunHandler struct {
	query  *ingest.Query
	logger *logger.Logger
}

// NewRunHandler creates a new run handler
func NewRunHandler(query *ingest.Query, log *logger.Logger) *RunHandler {
	return &RunHandler{query: query, logger: log}
}

// GetRun returns the status summary of one run
// GET /api/v1/runs/{run_id}
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["run_id"]

	summary, err := h.query.Status(r.Context(), runID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GetDBCheck returns the status summary with per-domain row recounts
// GET /api/v1/runs/{run_id}/db-check
func (h *RunHandler) GetDBCheck(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["run_id"]

	summary, err := h.query.DBCheck(r.Context(), runID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *RunHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if ingest.KindOf(err) == ingest.KindRunNotFound {
		status = http.StatusNotFound
	} else {
		h.logger.WithError(err).Error("Run query failed")
	}
	writeJSON(w, status, ingest.NewErrorObject(err))
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
