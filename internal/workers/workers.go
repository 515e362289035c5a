package workers

import "runtime"

// Count returns the number of workers for a task with the given
// workers-per-CPU multiplier, based on GOMAXPROCS.
//
//   - 1.0 for CPU-bound tasks
//   - 2.0 for I/O-bound tasks
//
// The limit caps the result. Use 0 for no limit. The result is never
// below 1.
func Count(multiplier float64, limit int) int {
	available := runtime.GOMAXPROCS(0)

	workers := int(float64(available) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForCPU returns worker count for CPU-bound tasks (1 per CPU).
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForIO returns worker count for I/O-bound tasks (2 per CPU).
func ForIO(limit int) int {
	return Count(2.0, limit)
}

// Resolve returns configured when it is positive, otherwise ForIO(limit).
// An explicit setting is not capped by limit.
func Resolve(configured, limit int) int {
	if configured > 0 {
		return configured
	}
	return ForIO(limit)
}
