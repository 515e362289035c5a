// Package main provides the media-catalog command.
//
// media-catalog walks a media tree, fingerprints every allowed file and
// publishes the result as a JSON catalog inside the tree's index
// directory. Unchanged files are recognised by size and modification
// time and are not re-hashed.
//
// # Commands
//
//   - scan: run one scan and print a summary. Exits non-zero when the
//     catalog could not be written or the scan was interrupted.
//   - serve: run the HTTP API with an initial scan in the background and
//     periodic rescans every INDEX_INTERVAL.
//   - version: print build information.
//
// # HTTP API
//
//   - GET  /api/media: catalog query (type, ext, size_min, size_max, path_prefix)
//   - GET  /api/stats: totals by media type
//   - GET  /api/scans: recent scan runs
//   - POST /api/upload: multipart upload (bearer token)
//   - POST /api/reindex: start a background scan (bearer token)
//   - /health, /healthz, /livez, /readyz, /version, /metrics
//
// Configuration is described in [media-catalog/internal/startup].
package main
