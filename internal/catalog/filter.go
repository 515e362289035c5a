package catalog

import (
	"strings"

	"media-catalog/internal/mediatypes"
)

// Filter selects records from a snapshot. Zero-valued fields match everything.
type Filter struct {
	Type       mediatypes.FileType
	Ext        string
	SizeMin    *int64
	SizeMax    *int64
	PathPrefix string
}

// FilteredResult is the query response: the matching records with totals
// recomputed over them.
type FilteredResult struct {
	MediaFiles  []FileRecord `json:"media_files"`
	TotalFiles  int          `json:"total_files"`
	TotalSize   int64        `json:"total_size"`
	Filtered    bool         `json:"filtered"`
	LastUpdated string       `json:"last_updated"`
	Version     string       `json:"version"`
}

// Match reports whether r passes every set criterion.
func (f Filter) Match(r FileRecord) bool {
	if f.Type != "" && r.Type != f.Type {
		return false
	}
	if f.Ext != "" {
		suffix := "." + strings.ToLower(strings.TrimPrefix(f.Ext, "."))
		if !strings.HasSuffix(strings.ToLower(r.Name), suffix) {
			return false
		}
	}
	if f.SizeMin != nil && r.Size < *f.SizeMin {
		return false
	}
	if f.SizeMax != nil && r.Size > *f.SizeMax {
		return false
	}
	if f.PathPrefix != "" && !strings.HasPrefix(r.Path, f.PathPrefix) {
		return false
	}
	return true
}

// Apply returns the records of snap matching f.
func (f Filter) Apply(snap *Snapshot) FilteredResult {
	matched := make([]FileRecord, 0, len(snap.MediaFiles))
	var total int64
	for _, r := range snap.MediaFiles {
		if f.Match(r) {
			matched = append(matched, r)
			total += r.Size
		}
	}
	return FilteredResult{
		MediaFiles:  matched,
		TotalFiles:  len(matched),
		TotalSize:   total,
		Filtered:    len(matched) != len(snap.MediaFiles),
		LastUpdated: snap.LastUpdated,
		Version:     snap.Version,
	}
}
