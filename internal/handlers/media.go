package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"media-catalog/internal/catalog"
	"media-catalog/internal/mediatypes"
)

// GetMediaFiles returns the catalog, optionally filtered by the type,
// ext, size_min, size_max and path_prefix query parameters.
func (h *Handlers) GetMediaFiles(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, filter.Apply(h.snapshot()))
}

func parseFilter(r *http.Request) (catalog.Filter, error) {
	q := r.URL.Query()

	filter := catalog.Filter{
		Type:       mediatypes.FileType(strings.ToLower(strings.TrimSpace(q.Get("type")))),
		Ext:        strings.TrimSpace(q.Get("ext")),
		PathPrefix: q.Get("path_prefix"),
	}

	var err error
	if filter.SizeMin, err = parseSize(q.Get("size_min"), "size_min"); err != nil {
		return filter, err
	}
	if filter.SizeMax, err = parseSize(q.Get("size_max"), "size_max"); err != nil {
		return filter, err
	}
	return filter, nil
}

func parseSize(raw, name string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: must be an integer", name)
	}
	return &n, nil
}
