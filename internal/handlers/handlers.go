package handlers

import (
	"context"
	"time"

	"media-catalog/internal/catalog"
	"media-catalog/internal/database"
	"media-catalog/internal/indexer"
	"media-catalog/internal/logging"
	"media-catalog/internal/upload"
)

// ServiceName is reported by the health endpoints.
const ServiceName = "media-api"

// HistoryReader lists recorded scan runs.
type HistoryReader interface {
	RecentScans(ctx context.Context, limit int) ([]database.ScanRun, error)
	LastSuccessfulScan(ctx context.Context) (time.Time, error)
}

type Handlers struct {
	store   *catalog.Store
	indexer *indexer.Indexer
	uploads *upload.Service
	history HistoryReader
}

// New creates the API handlers. history may be nil when the scan
// database is unavailable.
func New(store *catalog.Store, idx *indexer.Indexer, uploads *upload.Service, history HistoryReader) *Handlers {
	return &Handlers{
		store:   store,
		indexer: idx,
		uploads: uploads,
		history: history,
	}
}

// snapshot loads the current catalog. Read failures are logged and an
// empty catalog is served.
func (h *Handlers) snapshot() *catalog.Snapshot {
	snap, err := h.store.Load()
	if err != nil {
		logging.Warn("Failed to load catalog %s: %v", h.store.Path(), err)
	}
	return snap
}
