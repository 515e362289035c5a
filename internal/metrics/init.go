package metrics

// Label values shared with the code that records them.
const (
	ScanStatusSuccess   = "success"
	ScanStatusFailed    = "failed"
	ScanStatusCancelled = "cancelled"

	FailureRead = "read"
	FailureHash = "hash"
)

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
func InitializeMetrics() {
	for _, status := range []string{ScanStatusSuccess, ScanStatusFailed, ScanStatusCancelled} {
		ScanRunsTotal.WithLabelValues(status)
	}

	for _, kind := range []string{FailureRead, FailureHash} {
		FileFailuresTotal.WithLabelValues(kind)
	}

	for _, status := range []string{"success", "bad_request", "too_large", "unsupported_type", "storage_error"} {
		UploadsTotal.WithLabelValues(status)
	}

	for _, op := range []string{"stat", "open"} {
		for _, vol := range []string{"media", "index"} {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}
}
