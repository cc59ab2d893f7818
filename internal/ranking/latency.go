package ranking

import (
	"math"
	"slices"
	"sync"
	"time"
)

// LatencyStats summarizes recent ranking calls.
type LatencyStats struct {
	Calls      int64
	Violations int64
	P50        time.Duration
	P95        time.Duration
	Max        time.Duration
}

// LatencyTracker keeps a rolling window of call durations.
type LatencyTracker struct {
	mu         sync.Mutex
	window     []time.Duration
	next       int
	filled     bool
	calls      int64
	violations int64
}

func NewLatencyTracker(size int) *LatencyTracker {
	if size < 1 {
		size = 1
	}
	return &LatencyTracker{window: make([]time.Duration, size)}
}

// Observe records a call duration; overBudget marks a violation.
func (t *LatencyTracker) Observe(d time.Duration, overBudget bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.window[t.next] = d
	t.next++
	if t.next == len(t.window) {
		t.next = 0
		t.filled = true
	}

	t.calls++
	if overBudget {
		t.violations++
	}
}

func (t *LatencyTracker) samples() []time.Duration {
	n := t.next
	if t.filled {
		n = len(t.window)
	}
	out := make([]time.Duration, n)
	copy(out, t.window[:n])
	return out
}

// Stats computes nearest-rank percentiles over the window.
func (t *LatencyTracker) Stats() LatencyStats {
	t.mu.Lock()
	samples := t.samples()
	stats := LatencyStats{Calls: t.calls, Violations: t.violations}
	t.mu.Unlock()

	if len(samples) == 0 {
		return stats
	}

	slices.Sort(samples)
	stats.P50 = percentile(samples, 0.50)
	stats.P95 = percentile(samples, 0.95)
	stats.Max = samples[len(samples)-1]
	return stats
}

// percentile expects sorted input.
func percentile(sorted []time.Duration, p float64) time.Duration {
	idx := int(math.Ceil(float64(len(sorted))*p-1e-9)) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}
