// Package logging provides the leveled logger used across media-catalog.
//
// Levels, lowest to highest:
//   - DEBUG: per-file cache decisions and worker lifecycle
//   - INFO: scan start/finish, configuration, HTTP server lifecycle
//   - WARN: skipped files, corrupt or unwritable cache, recoverable problems
//   - ERROR: failed scans and failed requests
//   - FATAL: unrecoverable startup errors (exits the process)
//
// The initial level comes from DEBUG (any truthy value selects debug) or
// LOG_LEVEL. SetLevel overrides it, which the CLI does for --log-level.
package logging
