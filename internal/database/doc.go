// Package database stores the scan history of media-catalog in SQLite.
//
// Every scan, successful or not, is recorded as a row in scan_runs with
// its trigger, outcome and summary counters. A small metadata table keeps
// process-independent facts such as the time of the last successful scan.
//
// The catalog itself is not stored here; it lives in the JSON snapshot
// written by the scanner.
package database
