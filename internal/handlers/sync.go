package handlers

import (
	"net/http"
	"time"

	"genai-gallery/internal/indexer"
	"genai-gallery/internal/logging"
)

// SyncResponse reports the outcome of a sync request.
type SyncResponse struct {
	// Ran is false when the request fell inside the cooldown or another
	// pass was already running.
	Ran        bool            `json:"ran"`
	LastRun    *time.Time      `json:"lastRun,omitempty"`
	LastResult *indexer.Result `json:"lastResult,omitempty"`
}

// TriggerSync asks for a reconciliation pass. The cooldown and single-flight
// rules still apply.
func (h *Handlers) TriggerSync(w http.ResponseWriter, r *http.Request) {
	ran, err := h.coord.Reconcile(r.Context())
	if err != nil {
		logging.Error("Sync request failed: %v", err)
		writeJSONError(w, "Sync failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := SyncResponse{Ran: ran}
	if last := h.coord.LastRun(); !last.IsZero() {
		resp.LastRun = &last
		res, _ := h.coord.LastResult()
		resp.LastResult = &res
	}

	writeJSONStatusCode(w, http.StatusOK, resp)
}
