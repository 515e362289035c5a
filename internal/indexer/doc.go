// Package indexer keeps the media catalog in step with the media tree.
//
// Scanner performs one reconciliation pass:
//   - walks the tree, skipping dot-prefixed entries, the bookkeeping
//     directory and files whose extension is not allowed
//   - reuses the cached record of every file whose size and mtime are
//     unchanged, and hashes, sniffs and classifies the rest on a bounded
//     worker pool
//   - evicts cache entries for files that are gone, then writes the
//     snapshot and the cache, both atomically
//
// Per-file failures skip the file and are counted. Only a snapshot write
// failure, an unreadable root or cancellation fails the scan.
//
// Indexer wraps a Scanner as a long-running service: an initial scan,
// periodic rescans, manual triggers, health/progress reporting and scan
// history. Scans never overlap.
package indexer
