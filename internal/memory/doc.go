// Package memory sizes the Go runtime's soft memory limit from a container
// limit, so a large scan triggers garbage collection before the container
// is OOM-killed.
//
// An explicit GOMEMLIMIT always wins. Otherwise, when MEMORY_LIMIT is set
// (typically from the Kubernetes Downward API), the limit becomes
// MEMORY_LIMIT * MEMORY_RATIO.
package memory
