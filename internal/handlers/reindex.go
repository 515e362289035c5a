package handlers

import (
	"net/http"

	"media-catalog/internal/logging"
)

// TriggerReindex starts a background scan. It answers 202 when the scan
// was started and 409 when one is already running.
func (h *Handlers) TriggerReindex(w http.ResponseWriter, _ *http.Request) {
	if !h.indexer.TriggerIndex() {
		writeJSONError(w, "Scan already in progress", http.StatusConflict)
		return
	}

	logging.Info("Manual rescan requested")
	writeJSONStatus(w, "accepted", http.StatusAccepted)
}
