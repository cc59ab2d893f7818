package ranking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLatencyTrackerPercentiles(t *testing.T) {
	t.Parallel()

	tr := NewLatencyTracker(100)
	for i := 100; i >= 1; i-- {
		tr.Observe(time.Duration(i)*time.Millisecond, i > 90)
	}

	stats := tr.Stats()
	assert.Equal(t, int64(100), stats.Calls)
	assert.Equal(t, int64(10), stats.Violations)
	assert.Equal(t, 50*time.Millisecond, stats.P50)
	assert.Equal(t, 95*time.Millisecond, stats.P95)
	assert.Equal(t, 100*time.Millisecond, stats.Max)
}

func TestLatencyTrackerWindowWraps(t *testing.T) {
	t.Parallel()

	tr := NewLatencyTracker(4)
	for _, d := range []time.Duration{100, 100, 100, 100, 1, 2, 3, 4} {
		tr.Observe(d, false)
	}

	stats := tr.Stats()
	assert.Equal(t, int64(8), stats.Calls)
	assert.Equal(t, time.Duration(4), stats.Max)
	assert.Equal(t, time.Duration(2), stats.P50)
}

func TestLatencyTrackerEmpty(t *testing.T) {
	t.Parallel()

	assert.Zero(t, NewLatencyTracker(0).Stats())
}
