/*
Package workers sizes the scanner's hashing pool in containerized
environments.

runtime.NumCPU reports the host's CPUs, while GOMAXPROCS follows the
container CPU limit (Go 1.19+). Worker counts are therefore derived from
GOMAXPROCS:

	// Hashing is I/O-bound: 2 workers per available CPU, at most 8
	n := workers.ForIO(8)

	// An explicit INDEX_WORKERS setting wins over the calculation
	n := workers.Resolve(cfg.IndexWorkers, 8)

With a CPU limit of 2 on a 64-core node, ForIO(8) returns 4.

All functions are safe for concurrent use.
*/
package workers
