package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Scan run statuses.
const (
	StatusSuccess   = "success"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Scan triggers.
const (
	TriggerInitial  = "initial"
	TriggerPeriodic = "periodic"
	TriggerManual   = "manual"
	TriggerCLI      = "cli"
)

// DefaultRecentLimit is used when RecentScans is asked for a non-positive limit.
const DefaultRecentLimit = 20

// MaxRecentLimit caps RecentScans.
const MaxRecentLimit = 500

// ScanRun is one recorded scan.
type ScanRun struct {
	ID           string    `json:"id"`
	Trigger      string    `json:"trigger"`
	Status       string    `json:"status"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	DurationMs   int64     `json:"duration_ms"`
	TotalFiles   int       `json:"total_files"`
	TotalSize    int64     `json:"total_size"`
	CacheHits    int64     `json:"cache_hits"`
	Hashed       int64     `json:"hashed"`
	Evicted      int       `json:"evicted"`
	ReadFailures int64     `json:"read_failures"`
	HashFailures int64     `json:"hash_failures"`
	Error        string    `json:"error,omitempty"`
}

// RecordScan stores run. A missing ID is filled with a new UUID, which is
// also written back into run.
func (d *Database) RecordScan(ctx context.Context, run *ScanRun) error {
	start := time.Now()
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO scan_runs (
			id, trigger, status, started_at, finished_at, duration_ms,
			total_files, total_size, cache_hits, hashed, evicted,
			read_failures, hash_failures, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID, run.Trigger, run.Status,
		run.StartedAt.UnixNano(), run.FinishedAt.UnixNano(), run.DurationMs,
		run.TotalFiles, run.TotalSize, run.CacheHits, run.Hashed, run.Evicted,
		run.ReadFailures, run.HashFailures, run.Error,
	)
	recordQuery("record_scan", start, err)
	if err != nil {
		return fmt.Errorf("failed to record scan %s: %w", run.ID, err)
	}

	if run.Status == StatusSuccess {
		if err := d.setMetadataUnlocked(ctx, lastSuccessKey, run.FinishedAt.UTC().Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("failed to update last successful scan: %w", err)
		}
	}
	return nil
}

// RecentScans returns up to limit runs, newest first.
func (d *Database) RecentScans(ctx context.Context, limit int) ([]ScanRun, error) {
	start := time.Now()
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, trigger, status, started_at, finished_at, duration_ms,
			total_files, total_size, cache_hits, hashed, evicted,
			read_failures, hash_failures, error
		FROM scan_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		recordQuery("recent_scans", start, err)
		return nil, fmt.Errorf("failed to query scans: %w", err)
	}
	defer rows.Close()

	runs := []ScanRun{}
	for rows.Next() {
		var run ScanRun
		var startedAt, finishedAt int64
		if err := rows.Scan(
			&run.ID, &run.Trigger, &run.Status, &startedAt, &finishedAt, &run.DurationMs,
			&run.TotalFiles, &run.TotalSize, &run.CacheHits, &run.Hashed, &run.Evicted,
			&run.ReadFailures, &run.HashFailures, &run.Error,
		); err != nil {
			recordQuery("recent_scans", start, err)
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		run.StartedAt = time.Unix(0, startedAt).UTC()
		run.FinishedAt = time.Unix(0, finishedAt).UTC()
		runs = append(runs, run)
	}

	err = rows.Err()
	recordQuery("recent_scans", start, err)
	return runs, err
}
