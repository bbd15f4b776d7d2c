package handlers

import (
	"net/http"
	"runtime"

	"genai-gallery/internal/database"
	"genai-gallery/internal/indexer"
	"genai-gallery/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status           string                 `json:"status"`
	Ready            bool                   `json:"ready"`
	Version          string                 `json:"version"`
	Uptime           string                 `json:"uptime"`
	Syncing          bool                   `json:"syncing"`
	LastSync         *database.SyncRecord   `json:"lastSync,omitempty"`
	LastResult       *indexer.Result        `json:"lastResult,omitempty"`
	LastError        string                 `json:"lastError,omitempty"`
	InitialSyncError string                 `json:"initialSyncError,omitempty"`
	Catalog          *database.CatalogStats `json:"catalog,omitempty"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service. It answers 503
// until the first reconciliation pass has succeeded.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	hs := h.indexer.GetHealthStatus(r.Context())

	response := HealthResponse{
		Ready:            hs.Ready,
		Version:          startup.Version,
		Uptime:           hs.Uptime,
		Syncing:          hs.Syncing,
		LastSync:         hs.LastSync,
		LastResult:       hs.LastResult,
		LastError:        hs.LastError,
		InitialSyncError: hs.InitialSyncError,
		Catalog:          hs.Catalog,
		GoVersion:        runtime.Version(),
		NumCPU:           runtime.NumCPU(),
		NumGoroutine:     runtime.NumGoroutine(),
	}

	switch {
	case !hs.Ready:
		response.Status = statusStarting
	case hs.LastError != "":
		response.Status = statusDegraded
	default:
		response.Status = statusHealthy
	}

	code := http.StatusOK
	if !hs.Ready {
		code = http.StatusServiceUnavailable
	}
	writeJSONStatusCode(w, code, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only when the service is ready to accept traffic
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if h.indexer.IsReady() {
		writeJSONStatusCode(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	writeJSONStatusCode(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
}

// GetVersion returns build information.
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	writeJSONStatusCode(w, http.StatusOK, startup.GetBuildInfo())
}
