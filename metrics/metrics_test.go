package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordFetchIncrementsOutcome(t *testing.T) {
	before := testutil.ToFloat64(FetchTotal.WithLabelValues(FetchCache))

	RecordFetch(FetchCache)

	assert.Equal(t, before+1, testutil.ToFloat64(FetchTotal.WithLabelValues(FetchCache)))
}

func TestRecordCacheWriteSplitsOnError(t *testing.T) {
	writes := testutil.ToFloat64(CacheWrites)
	failures := testutil.ToFloat64(CacheWriteFailures)

	RecordCacheWrite(nil)
	RecordCacheWrite(errors.New("quota exceeded"))

	assert.Equal(t, writes+1, testutil.ToFloat64(CacheWrites))
	assert.Equal(t, failures+1, testutil.ToFloat64(CacheWriteFailures))
}
