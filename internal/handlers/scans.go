package handlers

import (
	"net/http"
	"strconv"

	"media-catalog/internal/database"
	"media-catalog/internal/logging"
)

// ListScans returns the most recent scan runs, newest first. The limit
// query parameter defaults to database.DefaultRecentLimit.
func (h *Handlers) ListScans(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSONError(w, "Scan history unavailable", http.StatusServiceUnavailable)
		return
	}

	limit := database.DefaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSONError(w, "invalid limit: must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := h.history.RecentScans(r.Context(), limit)
	if err != nil {
		logging.Error("Failed to list scans: %v", err)
		writeJSONError(w, "Failed to read scan history", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{
		"scans": runs,
		"count": len(runs),
	})
}
