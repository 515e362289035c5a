package catalog

import (
	"net/url"
	"strings"
	"time"

	"media-catalog/internal/mediatypes"
)

// Version is written into every snapshot.
const Version = "1.0"

// FileRecord is one entry in the catalog.
type FileRecord struct {
	ID       string              `json:"id"`
	Name     string              `json:"name"`
	URL      string              `json:"url"`
	Type     mediatypes.FileType `json:"type"`
	MimeType string              `json:"mime_type"`
	Size     int64               `json:"size"`
	Path     string              `json:"path"`
	Digest   string              `json:"md5"`
	Created  time.Time           `json:"created"`
	Modified time.Time           `json:"modified"`
}

// Snapshot is one complete catalog, as of LastUpdated.
type Snapshot struct {
	MediaFiles  []FileRecord `json:"media_files"`
	TotalFiles  int          `json:"total_files"`
	TotalSize   int64        `json:"total_size"`
	LastUpdated string       `json:"last_updated"`
	Version     string       `json:"version"`
}

// NewSnapshot assembles a snapshot from records. Totals are always derived
// from records.
func NewSnapshot(records []FileRecord, now time.Time) *Snapshot {
	if records == nil {
		records = []FileRecord{}
	}
	var total int64
	for _, r := range records {
		total += r.Size
	}
	return &Snapshot{
		MediaFiles:  records,
		TotalFiles:  len(records),
		TotalSize:   total,
		LastUpdated: FormatTimestamp(now),
		Version:     Version,
	}
}

// Empty returns the snapshot served before the first scan.
func Empty() *Snapshot {
	return &Snapshot{MediaFiles: []FileRecord{}, Version: Version}
}

// FormatTimestamp renders t the way snapshots store timestamps.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// CatalogPath turns a root-relative slash path into the external key:
// a leading slash and nothing else.
func CatalogPath(relPath string) string {
	return "/" + strings.TrimPrefix(relPath, "/")
}

// PublicURL joins baseURL and a root-relative slash path, escaping each
// path segment.
func PublicURL(baseURL, relPath string) string {
	segments := strings.Split(strings.TrimPrefix(relPath, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.Join(segments, "/")
}
