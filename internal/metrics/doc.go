// Package metrics declares the Prometheus collectors exported by
// media-catalog on /metrics.
//
// Collector families:
//   - media_catalog_scan_*: scan runs, duration, catalog size, cache
//     effectiveness and per-file failures by kind
//   - media_catalog_upload_*: uploads by outcome and accepted bytes
//   - media_catalog_http_*: request counts, latency and in-flight requests
//   - media_catalog_filesystem_*: NFS retry behaviour, fed through
//     filesystem.Observer
//
// All collectors are registered with the default registry via promauto.
// InitializeMetrics pre-creates labelled series so they are exported from
// the first scrape.
package metrics
