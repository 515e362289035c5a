// Package cache implements the change-detection cache: a persistent map
// from root-relative path to the last observed (size, mtime) fingerprint
// and the catalog record computed for it.
//
// A lookup only hits when both size and mtime match exactly, which lets the
// scanner skip hashing unchanged files. A content edit that keeps both size
// and mtime is not detected; that is the trade-off of stat fingerprinting.
//
// The cache is only mutated by the scanner. All methods are safe for
// concurrent use.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"media-catalog/internal/catalog"
	"media-catalog/internal/filesystem"

	"github.com/spf13/afero"
)

// Fingerprint is the cheap staleness check for one file.
type Fingerprint struct {
	Size  int64
	MTime float64
}

// MTimeSeconds converts a modification time to float seconds since the epoch.
func MTimeSeconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

// FingerprintOf builds the fingerprint of a stat result.
func FingerprintOf(info os.FileInfo) Fingerprint {
	return Fingerprint{Size: info.Size(), MTime: MTimeSeconds(info.ModTime())}
}

// Entry is one persisted cache record.
type Entry struct {
	Size  int64              `json:"size"`
	MTime float64            `json:"mtime"`
	Data  catalog.FileRecord `json:"data"`
}

// CorruptError means the persisted cache could not be decoded. Load still
// returns a usable empty cache alongside it.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("cache %s is unreadable, starting cold: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// PersistError means the cache could not be saved. It is never fatal: the
// next scan rehashes whatever is missing.
type PersistError struct {
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist cache %s: %v", e.Path, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// IsCorrupt reports whether err is, or wraps, a *CorruptError.
func IsCorrupt(err error) bool {
	var e *CorruptError
	return errors.As(err, &e)
}

// Cache maps root-relative slash paths to entries.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// New returns an empty in-memory cache.
func New() *Cache {
	return &Cache{entries: make(map[string]Entry)}
}

// Load reads the cache persisted at path. It always returns a usable cache:
// a missing file gives an empty cache and no error, an invalid file gives
// an empty cache and a *CorruptError.
func Load(fsys afero.Fs, path string) (*Cache, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return New(), &CorruptError{Path: path, Err: err}
	}

	entries := make(map[string]Entry)
	if err := json.Unmarshal(data, &entries); err != nil {
		return New(), &CorruptError{Path: path, Err: err}
	}
	if entries == nil {
		entries = make(map[string]Entry)
	}
	return &Cache{entries: entries}, nil
}

// Persist writes the cache to path atomically.
func (c *Cache) Persist(fsys afero.Fs, path string) error {
	c.mu.RLock()
	data, err := catalog.Encode(c.entries)
	c.mu.RUnlock()
	if err != nil {
		return &PersistError{Path: path, Err: err}
	}
	if err := filesystem.WriteFileAtomic(fsys, path, data, 0o644); err != nil {
		return &PersistError{Path: path, Err: err}
	}
	return nil
}

// Lookup returns the cached record for relPath when fp matches the stored
// fingerprint exactly.
func (c *Cache) Lookup(relPath string, fp Fingerprint) (catalog.FileRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[relPath]
	if !ok || entry.Size != fp.Size || entry.MTime != fp.MTime {
		return catalog.FileRecord{}, false
	}
	return entry.Data, true
}

// Store records the record computed for relPath at fingerprint fp.
func (c *Cache) Store(relPath string, fp Fingerprint, record catalog.FileRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[relPath] = Entry{Size: fp.Size, MTime: fp.MTime, Data: record}
}

// Get returns the raw entry for relPath.
func (c *Cache) Get(relPath string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[relPath]
	return entry, ok
}

// Evict removes the given paths and returns how many were present.
func (c *Cache) Evict(paths ...string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, p := range paths {
		if _, ok := c.entries[p]; ok {
			delete(c.entries, p)
			removed++
		}
	}
	return removed
}

// Stale returns the cached paths that are not in present, sorted.
func (c *Cache) Stale(present map[string]struct{}) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var stale []string
	for p := range c.entries {
		if _, ok := present[p]; !ok {
			stale = append(stale, p)
		}
	}
	sort.Strings(stale)
	return stale
}

// Keys returns every cached path, sorted.
func (c *Cache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.entries))
	for p := range c.entries {
		keys = append(keys, p)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
