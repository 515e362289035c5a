package catalog

import (
	"math"

	"media-catalog/internal/mediatypes"
)

const bytesPerMB = 1024 * 1024

// TypeStats aggregates one media type.
type TypeStats struct {
	Count int   `json:"count"`
	Size  int64 `json:"size"`
}

// Stats summarises a snapshot.
type Stats struct {
	TotalFiles  int                               `json:"total_files"`
	TotalSize   int64                             `json:"total_size"`
	TotalSizeMB float64                           `json:"total_size_mb"`
	ByType      map[mediatypes.FileType]TypeStats `json:"by_type"`
	LastUpdated string                            `json:"last_updated"`
}

// ComputeStats groups snap's records by type.
func ComputeStats(snap *Snapshot) Stats {
	byType := make(map[mediatypes.FileType]TypeStats)
	for _, r := range snap.MediaFiles {
		t := r.Type
		if t == "" {
			t = mediatypes.FileTypeOther
		}
		agg := byType[t]
		agg.Count++
		agg.Size += r.Size
		byType[t] = agg
	}
	return Stats{
		TotalFiles:  snap.TotalFiles,
		TotalSize:   snap.TotalSize,
		TotalSizeMB: math.Round(float64(snap.TotalSize)/bytesPerMB*100) / 100,
		ByType:      byType,
		LastUpdated: snap.LastUpdated,
	}
}
