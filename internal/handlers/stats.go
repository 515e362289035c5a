package handlers

import (
	"net/http"

	"media-catalog/internal/catalog"
)

// GetStats returns catalog totals grouped by media type.
func (h *Handlers) GetStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, catalog.ComputeStats(h.snapshot()))
}
