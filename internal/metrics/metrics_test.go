package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestInitializeMetricsCreatesSeries(t *testing.T) {
	InitializeMetrics()

	assert.Equal(t, 3, testutil.CollectAndCount(ScanRunsTotal))
	assert.Equal(t, 2, testutil.CollectAndCount(FileFailuresTotal))
	assert.Equal(t, 5, testutil.CollectAndCount(UploadsTotal))
}

func TestFilesystemObserverRecords(t *testing.T) {
	obs := NewFilesystemObserver()

	before := testutil.ToFloat64(FilesystemStaleErrors.WithLabelValues("stat", "media"))
	obs.ObserveStaleError("stat", "media")
	assert.Equal(t, before+1, testutil.ToFloat64(FilesystemStaleErrors.WithLabelValues("stat", "media")))

	before = testutil.ToFloat64(FilesystemRetryAttempts.WithLabelValues("open", "index"))
	obs.ObserveRetryAttempt("open", "index")
	assert.Equal(t, before+1, testutil.ToFloat64(FilesystemRetryAttempts.WithLabelValues("open", "index")))
}
