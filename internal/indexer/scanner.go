package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"media-catalog/internal/cache"
	"media-catalog/internal/catalog"
	"media-catalog/internal/filesystem"
	"media-catalog/internal/hasher"
	"media-catalog/internal/logging"
	"media-catalog/internal/mediatypes"
	"media-catalog/internal/metrics"

	"github.com/spf13/afero"
)

// ReadFailure reports that a file vanished or became unreadable between
// enumeration and processing. The file is left out of the catalog.
type ReadFailure struct {
	Path string
	Op   string
	Err  error
}

func (e *ReadFailure) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ReadFailure) Unwrap() error { return e.Err }

// IsReadFailure reports whether err is, or wraps, a *ReadFailure.
func IsReadFailure(err error) bool {
	var e *ReadFailure
	return errors.As(err, &e)
}

// ScannerConfig configures a Scanner.
type ScannerConfig struct {
	// Root is the media tree.
	Root string
	// BaseURL prefixes the url of every record.
	BaseURL string
	// IndexDir is the bookkeeping directory, relative to Root. It is
	// never scanned.
	IndexDir string
	// CachePath is where the change-detection cache is persisted.
	CachePath string
	// Workers is the number of files processed concurrently (minimum 1).
	Workers int
	// ChannelBuffer is the size of the job and result channels.
	ChannelBuffer int
	// Retry controls NFS stale handle retries for stat and open.
	Retry filesystem.RetryConfig
}

// Result summarises one scan. The counters are observational only.
type Result struct {
	Snapshot     *catalog.Snapshot
	Eligible     int64
	CacheHits    int64
	Hashed       int64
	Evicted      int
	ReadFailures int64
	HashFailures int64
	// CachePersistErr is set when the cache could not be saved. The scan
	// still succeeded.
	CachePersistErr error
	Duration        time.Duration
}

// Failures returns the number of files skipped because of per-file errors.
func (r *Result) Failures() int64 {
	return r.ReadFailures + r.HashFailures
}

// fileJob is an eligible file waiting to be processed.
type fileJob struct {
	path    string
	relPath string
}

// fileResult is the outcome of processing one fileJob.
type fileResult struct {
	relPath string
	record  *catalog.FileRecord
	hit     bool
	err     error
}

// Scanner reconciles the catalog with the media tree. The cache is
// injected, so independent scanners never share state.
//
// Scan must not be called concurrently on the same Scanner; the Indexer
// service serialises runs.
type Scanner struct {
	fs         afero.Fs
	config     ScannerConfig
	cache      *cache.Cache
	store      *catalog.Store
	classifier *mediatypes.Classifier
	sniffer    mediatypes.Sniffer
	hasher     hasher.Hasher
	now        func() time.Time

	processed atomic.Int64
}

// NewScanner creates a Scanner with the default classifier, MD5 hasher
// and content sniffer. Use the setters to replace them.
func NewScanner(fsys afero.Fs, config ScannerConfig, c *cache.Cache, store *catalog.Store) *Scanner {
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.ChannelBuffer < 1 {
		config.ChannelBuffer = 256
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	config.IndexDir = filepath.ToSlash(filepath.Clean(config.IndexDir))

	return &Scanner{
		fs:         fsys,
		config:     config,
		cache:      c,
		store:      store,
		classifier: mediatypes.DefaultClassifier(),
		sniffer:    mediatypes.ContentSniffer{},
		hasher:     hasher.NewMD5(fsys, config.Retry),
		now:        time.Now,
	}
}

// SetClassifier replaces the eligibility allowlist.
func (s *Scanner) SetClassifier(c *mediatypes.Classifier) {
	s.classifier = c
}

// SetSniffer replaces the MIME sniffing backend.
func (s *Scanner) SetSniffer(sn mediatypes.Sniffer) {
	s.sniffer = sn
}

// SetHasher replaces the content hasher.
func (s *Scanner) SetHasher(h hasher.Hasher) {
	s.hasher = h
}

// SetClock replaces the clock used for last_updated.
func (s *Scanner) SetClock(now func() time.Time) {
	s.now = now
}

// Cache returns the scanner's change-detection cache.
func (s *Scanner) Cache() *cache.Cache {
	return s.cache
}

// Processed returns how many eligible files the running (or last) scan has
// finished.
func (s *Scanner) Processed() int64 {
	return s.processed.Load()
}

// Scan walks the tree, reuses cached records for unchanged files, hashes
// the rest, evicts vanished entries, then writes the snapshot and the
// cache.
//
// Only a snapshot write failure (a *catalog.SnapshotWriteError), an
// unreadable root or cancellation is returned as an error. A cancelled
// scan writes nothing and evicts nothing.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	start := time.Now()
	s.processed.Store(0)

	logging.Info("Starting scan of %s with %d workers", s.config.Root, s.config.Workers)
	metrics.ScanWorkers.Set(float64(s.config.Workers))

	result := &Result{}
	records, present, err := s.collect(ctx, result)
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Path < records[j].Path })

	stale := s.cache.Stale(present)
	result.Evicted = s.cache.Evict(stale...)
	for _, p := range stale {
		logging.Debug("Evicted from cache: %s", p)
	}
	metrics.CacheEvictionsTotal.Add(float64(result.Evicted))

	snap := catalog.NewSnapshot(records, s.now())
	if err := s.store.Write(snap); err != nil {
		logging.Error("Failed to write catalog snapshot: %v", err)
		return nil, err
	}
	logging.Info("Catalog snapshot written: %s", s.store.Path())
	result.Snapshot = snap

	if err := s.cache.Persist(s.fs, s.config.CachePath); err != nil {
		logging.Warn("Cache not saved, next scan will rehash: %v", err)
		metrics.CachePersistFailuresTotal.Inc()
		result.CachePersistErr = err
	}

	result.Duration = time.Since(start)
	s.logSummary(result)

	return result, nil
}

// collect runs the walk and the worker pool and gathers every successful
// record. present holds the relative paths that made it into records.
func (s *Scanner) collect(ctx context.Context, result *Result) ([]catalog.FileRecord, map[string]struct{}, error) {
	jobs := make(chan fileJob, s.config.ChannelBuffer)
	results := make(chan fileResult, s.config.ChannelBuffer)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go s.worker(ctx, i, jobs, results, &wg)
	}

	var records []catalog.FileRecord
	present := make(map[string]struct{})
	collectorDone := make(chan struct{})

	go func() {
		defer close(collectorDone)
		for res := range results {
			switch {
			case res.err != nil:
				s.recordFailure(res.err, result)
			case res.record != nil:
				records = append(records, *res.record)
				present[res.relPath] = struct{}{}
				if res.hit {
					result.CacheHits++
				} else {
					result.Hashed++
				}
			}
		}
	}()

	eligible, walkErr := s.walkAndEnqueue(ctx, jobs)
	close(jobs)
	wg.Wait()
	close(results)
	<-collectorDone

	result.Eligible = eligible

	if err := ctx.Err(); err != nil {
		logging.Warn("Scan cancelled after %d files", s.processed.Load())
		return nil, nil, fmt.Errorf("scan cancelled: %w", err)
	}
	if walkErr != nil {
		return nil, nil, walkErr
	}
	return records, present, nil
}

// recordFailure logs a per-file failure once and counts it by kind.
func (s *Scanner) recordFailure(err error, result *Result) {
	switch {
	case hasher.IsHashFailure(err):
		result.HashFailures++
		metrics.FileFailuresTotal.WithLabelValues(metrics.FailureHash).Inc()
	default:
		result.ReadFailures++
		metrics.FileFailuresTotal.WithLabelValues(metrics.FailureRead).Inc()
	}
	logging.Warn("Skipping file: %v", err)
}

// walkAndEnqueue walks the tree and sends every eligible file to the
// workers. It returns the number of eligible files found.
func (s *Scanner) walkAndEnqueue(ctx context.Context, jobs chan<- fileJob) (int64, error) {
	var eligible int64
	root := s.config.Root

	err := afero.Walk(s.fs, root, func(path string, info os.FileInfo, err error) error {
		if ctx.Err() != nil {
			return filepath.SkipAll
		}

		if err != nil {
			if path == root {
				return fmt.Errorf("read media root %s: %w", root, err)
			}
			logging.Warn("Error accessing path %s: %v", path, err)
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if path == root {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			//nolint:nilerr // skip this entry, keep walking
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if strings.HasPrefix(info.Name(), ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() {
			if relPath == s.config.IndexDir {
				return filepath.SkipDir
			}
			return nil
		}

		if !s.classifier.IsEligible(info.Name()) {
			return nil
		}

		eligible++
		select {
		case jobs <- fileJob{path: path, relPath: relPath}:
		case <-ctx.Done():
			return filepath.SkipAll
		}
		return nil
	})

	// afero.Walk passes SkipAll through as an ordinary error.
	if errors.Is(err, filepath.SkipAll) {
		err = nil
	}
	return eligible, err
}

// worker processes jobs until the channel closes or ctx is cancelled.
func (s *Scanner) worker(ctx context.Context, id int, jobs <-chan fileJob, results chan<- fileResult, wg *sync.WaitGroup) {
	defer wg.Done()

	logging.Debug("Scan worker %d started", id)

	for job := range jobs {
		if ctx.Err() != nil {
			continue
		}

		res := s.processFile(job)
		s.processed.Add(1)

		select {
		case results <- res:
		case <-ctx.Done():
		}
	}

	logging.Debug("Scan worker %d finished", id)
}

// processFile produces the record for one eligible file, from the cache
// when its fingerprint is unchanged and by hashing otherwise.
func (s *Scanner) processFile(job fileJob) fileResult {
	info, err := filesystem.StatWithRetry(s.fs, job.path, s.config.Retry)
	if err != nil {
		return fileResult{relPath: job.relPath, err: &ReadFailure{Path: job.relPath, Op: "stat", Err: err}}
	}
	if info.IsDir() {
		return fileResult{relPath: job.relPath}
	}

	fp := cache.FingerprintOf(info)
	if record, ok := s.cache.Lookup(job.relPath, fp); ok {
		metrics.CacheHitsTotal.Inc()
		return fileResult{relPath: job.relPath, record: &record, hit: true}
	}
	metrics.CacheMissesTotal.Inc()

	logging.Debug("Processing file: %s", job.relPath)

	hashStart := time.Now()
	digest, err := s.hasher.HashFile(job.path)
	metrics.HashDuration.Observe(time.Since(hashStart).Seconds())
	if err != nil {
		return fileResult{relPath: job.relPath, err: err}
	}

	mimeType, err := mediatypes.SniffFile(s.fs, job.path, s.sniffer, s.config.Retry)
	if err != nil {
		logging.Debug("MIME sniffing failed for %s: %v", job.relPath, err)
		mimeType = ""
	}

	classification := s.classifier.Classify(info.Name(), mimeType)

	record := catalog.FileRecord{
		ID:       hasher.DeriveID(job.relPath, info.Size(), digest),
		Name:     info.Name(),
		URL:      catalog.PublicURL(s.config.BaseURL, job.relPath),
		Type:     classification.Type,
		MimeType: mimeType,
		Size:     info.Size(),
		Path:     catalog.CatalogPath(job.relPath),
		Digest:   digest,
		Created:  filesystem.ChangeTime(info),
		Modified: info.ModTime(),
	}

	s.cache.Store(job.relPath, fp, record)

	return fileResult{relPath: job.relPath, record: &record}
}

// logSummary reports a finished scan once, with failure counts by kind.
func (s *Scanner) logSummary(r *Result) {
	logging.Info("Scan complete in %v: %d files, %.2f MB (cache hits: %d, hashed: %d, evicted: %d, read failures: %d, hash failures: %d)",
		r.Duration.Round(time.Millisecond),
		r.Snapshot.TotalFiles,
		float64(r.Snapshot.TotalSize)/(1024*1024),
		r.CacheHits,
		r.Hashed,
		r.Evicted,
		r.ReadFailures,
		r.HashFailures)
}
