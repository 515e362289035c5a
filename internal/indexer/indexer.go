package indexer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"media-catalog/internal/database"
	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
)

// ErrScanInProgress is returned by Index when another scan is running.
var ErrScanInProgress = errors.New("scan already in progress")

// HistoryRecorder persists finished scan runs.
type HistoryRecorder interface {
	RecordScan(ctx context.Context, run *database.ScanRun) error
}

// Indexer runs the Scanner as a service: an initial scan on Start,
// periodic rescans and on-demand triggers. At most one scan runs at a
// time; overlapping requests are dropped.
type Indexer struct {
	scanner       *Scanner
	history       HistoryRecorder
	indexInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	indexMu              sync.Mutex
	isIndexing           bool
	lastIndexTime        time.Time
	lastResult           *Result
	lastError            error
	initialIndexComplete bool
	startTime            time.Time

	// Progress tracking
	indexProgress atomic.Value

	// Callback when a scan succeeds
	onIndexComplete func(*Result)
}

// IndexProgress tracks the current scan.
type IndexProgress struct {
	FilesProcessed int64     `json:"filesProcessed"`
	IsIndexing     bool      `json:"isIndexing"`
	Trigger        string    `json:"trigger,omitempty"`
	StartedAt      time.Time `json:"startedAt,omitempty"`
}

// HealthStatus contains health check information.
type HealthStatus struct {
	Ready       bool           `json:"ready"`
	Indexing    bool           `json:"indexing"`
	StartTime   time.Time      `json:"startTime"`
	Uptime      string         `json:"uptime"`
	LastIndexed time.Time      `json:"lastIndexed,omitempty"`
	LastError   string         `json:"lastError,omitempty"`
	TotalFiles  int            `json:"totalFiles"`
	TotalSize   int64          `json:"totalSize"`
	Progress    *IndexProgress `json:"progress,omitempty"`
}

// New creates an Indexer around scanner. An interval of zero disables
// periodic rescans.
func New(scanner *Scanner, indexInterval time.Duration) *Indexer {
	ctx, cancel := context.WithCancel(context.Background())
	idx := &Indexer{
		scanner:       scanner,
		indexInterval: indexInterval,
		ctx:           ctx,
		cancel:        cancel,
		startTime:     time.Now(),
	}
	idx.indexProgress.Store(IndexProgress{})
	return idx
}

// SetHistory sets where finished scans are recorded. Nil disables recording.
func (idx *Indexer) SetHistory(h HistoryRecorder) {
	idx.history = h
}

// SetOnIndexComplete sets a callback invoked after every successful scan.
func (idx *Indexer) SetOnIndexComplete(callback func(*Result)) {
	idx.onIndexComplete = callback
}

// MarkReady reports the service ready before its first scan, used when a
// snapshot from an earlier run is already on disk.
func (idx *Indexer) MarkReady() {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	idx.initialIndexComplete = true
}

// Start runs the initial scan in the background and, when an interval is
// set, schedules periodic rescans.
func (idx *Indexer) Start() {
	idx.wg.Add(1)
	go func() {
		defer idx.wg.Done()
		logging.Info("Starting initial scan in background...")
		if _, err := idx.Index(idx.ctx, database.TriggerInitial); err != nil && !errors.Is(err, ErrScanInProgress) {
			logging.Error("Initial scan error: %v", err)
		}
	}()

	if idx.indexInterval > 0 {
		idx.wg.Add(1)
		go idx.periodicIndex()
	}
}

// Stop cancels any running scan and waits for background goroutines.
func (idx *Indexer) Stop() {
	idx.cancel()
	idx.wg.Wait()
}

// periodicIndex rescans every indexInterval until Stop.
func (idx *Indexer) periodicIndex() {
	defer idx.wg.Done()

	logging.Info("Periodic rescans every %v", idx.indexInterval)

	ticker := time.NewTicker(idx.indexInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := idx.Index(idx.ctx, database.TriggerPeriodic); err != nil {
				if errors.Is(err, ErrScanInProgress) {
					logging.Info("Scan already in progress, skipping periodic rescan")
					continue
				}
				logging.Error("Periodic scan failed: %v", err)
			}
		case <-idx.ctx.Done():
			logging.Info("Periodic rescans stopped")
			return
		}
	}
}

// TriggerIndex starts a scan in the background. It returns false when a
// scan is already running.
func (idx *Indexer) TriggerIndex() bool {
	if !idx.tryStartIndexing() {
		return false
	}

	idx.wg.Add(1)
	go func() {
		defer idx.wg.Done()
		if _, err := idx.index(idx.ctx, database.TriggerManual); err != nil {
			logging.Error("Manual scan failed: %v", err)
		}
	}()
	return true
}

// Index runs one scan synchronously and records it. It returns
// ErrScanInProgress without scanning when another scan is running.
func (idx *Indexer) Index(ctx context.Context, trigger string) (*Result, error) {
	if !idx.tryStartIndexing() {
		return nil, ErrScanInProgress
	}
	return idx.index(ctx, trigger)
}

// index runs a scan whose slot the caller already claimed.
func (idx *Indexer) index(ctx context.Context, trigger string) (*Result, error) {
	metrics.ScanIsRunning.Set(1)
	defer metrics.ScanIsRunning.Set(0)

	startTime := time.Now()
	idx.indexProgress.Store(IndexProgress{IsIndexing: true, Trigger: trigger, StartedAt: startTime})

	result, err := idx.scanner.Scan(ctx)
	finished := time.Now()

	status := database.StatusSuccess
	switch {
	case err != nil && ctx.Err() != nil:
		status = database.StatusCancelled
	case err != nil:
		status = database.StatusFailed
	}

	metrics.ScanRunsTotal.WithLabelValues(status).Inc()
	metrics.ScanDuration.Observe(finished.Sub(startTime).Seconds())
	if err == nil {
		metrics.ScanLastRunTimestamp.Set(float64(finished.Unix()))
		metrics.CatalogFiles.Set(float64(result.Snapshot.TotalFiles))
		metrics.CatalogBytes.Set(float64(result.Snapshot.TotalSize))
	}

	idx.finishIndexing(finished, result, err)
	idx.recordHistory(trigger, status, startTime, finished, result, err)

	if err == nil && idx.onIndexComplete != nil {
		idx.onIndexComplete(result)
	}
	return result, err
}

// recordHistory stores the run. History failures are logged only.
func (idx *Indexer) recordHistory(trigger, status string, started, finished time.Time, result *Result, scanErr error) {
	if idx.history == nil {
		return
	}

	run := &database.ScanRun{
		Trigger:    trigger,
		Status:     status,
		StartedAt:  started,
		FinishedAt: finished,
		DurationMs: finished.Sub(started).Milliseconds(),
	}
	if result != nil {
		run.TotalFiles = result.Snapshot.TotalFiles
		run.TotalSize = result.Snapshot.TotalSize
		run.CacheHits = result.CacheHits
		run.Hashed = result.Hashed
		run.Evicted = result.Evicted
		run.ReadFailures = result.ReadFailures
		run.HashFailures = result.HashFailures
	}
	if scanErr != nil {
		run.Error = scanErr.Error()
	}

	// The scan context may already be cancelled; history still gets written.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := idx.history.RecordScan(ctx, run); err != nil {
		logging.Warn("Failed to record scan history: %v", err)
	}
}

// tryStartIndexing attempts to start a scan, returns false if one is in progress.
func (idx *Indexer) tryStartIndexing() bool {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()

	if idx.isIndexing {
		return false
	}
	idx.isIndexing = true
	return true
}

// finishIndexing records the outcome of a scan.
func (idx *Indexer) finishIndexing(finished time.Time, result *Result, err error) {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()

	idx.isIndexing = false
	idx.lastError = err
	if err == nil {
		idx.lastIndexTime = finished
		idx.lastResult = result
		idx.initialIndexComplete = true
	}
	idx.indexProgress.Store(IndexProgress{FilesProcessed: idx.scanner.Processed()})
}

// IsIndexing reports whether a scan is running.
func (idx *Indexer) IsIndexing() bool {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	return idx.isIndexing
}

// IsReady reports whether a catalog is available: a scan has succeeded or
// MarkReady was called.
func (idx *Indexer) IsReady() bool {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	return idx.initialIndexComplete
}

// LastIndexTime returns when the last successful scan finished.
func (idx *Indexer) LastIndexTime() time.Time {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	return idx.lastIndexTime
}

// LastResult returns the summary of the last successful scan, or nil.
func (idx *Indexer) LastResult() *Result {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	return idx.lastResult
}

// GetProgress returns the current scan progress.
func (idx *Indexer) GetProgress() IndexProgress {
	progress, _ := idx.indexProgress.Load().(IndexProgress)
	if progress.IsIndexing {
		progress.FilesProcessed = idx.scanner.Processed()
	}
	return progress
}

// GetHealthStatus returns detailed health information.
func (idx *Indexer) GetHealthStatus() HealthStatus {
	progress := idx.GetProgress()

	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()

	status := HealthStatus{
		Ready:       idx.initialIndexComplete,
		Indexing:    idx.isIndexing,
		StartTime:   idx.startTime,
		Uptime:      time.Since(idx.startTime).Round(time.Second).String(),
		LastIndexed: idx.lastIndexTime,
	}

	if idx.lastResult != nil {
		status.TotalFiles = idx.lastResult.Snapshot.TotalFiles
		status.TotalSize = idx.lastResult.Snapshot.TotalSize
	}
	if idx.isIndexing {
		status.Progress = &progress
	}
	if idx.lastError != nil {
		status.LastError = idx.lastError.Error()
	}

	return status
}
