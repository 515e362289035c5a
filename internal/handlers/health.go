package handlers

import (
	"context"
	"net/http"
	"time"

	"media-catalog/internal/catalog"
	"media-catalog/internal/database"
	"media-catalog/internal/logging"
	"media-catalog/internal/startup"
)

const (
	statusOK       = "ok"
	statusStarting = "starting"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status             string            `json:"status"`
	Service            string            `json:"service"`
	Timestamp          string            `json:"timestamp"`
	Ready              bool              `json:"ready"`
	Version            string            `json:"version"`
	Uptime             string            `json:"uptime"`
	Indexing           bool              `json:"indexing"`
	LastIndexed        string            `json:"last_indexed,omitempty"`
	LastError          string            `json:"last_error,omitempty"`
	LastScan           *database.ScanRun `json:"last_scan,omitempty"`
	LastSuccessfulScan string            `json:"last_successful_scan,omitempty"`
	Progress           *indexerProgress  `json:"progress,omitempty"`
	TotalFiles         int               `json:"total_files"`
	TotalSize          int64             `json:"total_size"`
	LastUpdated        string            `json:"last_updated,omitempty"`
}

type indexerProgress struct {
	FilesProcessed int64  `json:"files_processed"`
	Trigger        string `json:"trigger,omitempty"`
	StartedAt      string `json:"started_at,omitempty"`
}

// HealthCheck returns the health status of the service. It answers 503
// until a catalog is available.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	healthStatus := h.indexer.GetHealthStatus()
	snap := h.snapshot()

	response := HealthResponse{
		Service:     ServiceName,
		Timestamp:   catalog.FormatTimestamp(time.Now()),
		Ready:       healthStatus.Ready,
		Version:     startup.Version,
		Uptime:      healthStatus.Uptime,
		Indexing:    healthStatus.Indexing,
		LastError:   healthStatus.LastError,
		TotalFiles:  snap.TotalFiles,
		TotalSize:   snap.TotalSize,
		LastUpdated: snap.LastUpdated,
	}

	switch {
	case !healthStatus.Ready:
		response.Status = statusStarting
	case healthStatus.LastError != "":
		response.Status = statusDegraded
	default:
		response.Status = statusOK
	}

	if !healthStatus.LastIndexed.IsZero() {
		response.LastIndexed = catalog.FormatTimestamp(healthStatus.LastIndexed)
	}

	if p := healthStatus.Progress; p != nil {
		response.Progress = &indexerProgress{
			FilesProcessed: p.FilesProcessed,
			Trigger:        p.Trigger,
			StartedAt:      catalog.FormatTimestamp(p.StartedAt),
		}
	}

	if h.history != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		runs, err := h.history.RecentScans(ctx, 1)
		cancel()
		if err != nil {
			logging.Warn("Failed to read scan history: %v", err)
		} else if len(runs) > 0 {
			response.LastScan = &runs[0]
		}

		// Survives restarts, unlike LastIndexed.
		ctx, cancel = context.WithTimeout(r.Context(), 2*time.Second)
		lastSuccess, err := h.history.LastSuccessfulScan(ctx)
		cancel()
		if err != nil {
			logging.Warn("Failed to read last successful scan: %v", err)
		} else if !lastSuccess.IsZero() {
			response.LastSuccessfulScan = catalog.FormatTimestamp(lastSuccess)
		}
	}

	statusCode := http.StatusOK
	if !healthStatus.Ready {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSONResponse(w, response, statusCode)
}

// LivenessCheck always returns 200 while the server is running
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{"status": "alive"})
	}
}

// ReadinessCheck returns 200 only when a catalog is available
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if h.indexer.IsReady() {
		writeJSONStatus(w, "ready", http.StatusOK)
		return
	}
	writeJSONStatus(w, "not_ready", http.StatusServiceUnavailable)
}
