// Package metrics provides Prometheus collectors for the ranking engine.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/spigell/hh-ranker/internal/similarity"
)

const namespace = "hhranker"

// Collectors are registered per engine so several engines (or tests) can
// coexist in one process.
type Collectors struct {
	// RankDuration measures ranking calls in seconds.
	RankDuration *prometheus.HistogramVec
	// RankTotal counts ranking calls by operation and completeness.
	RankTotal *prometheus.CounterVec
	// BudgetViolations counts calls that exceeded the latency budget.
	BudgetViolations *prometheus.CounterVec
	// JobsScored counts jobs scored by the engine.
	JobsScored prometheus.Counter
	// FeedbackTotal counts feedback events by outcome.
	FeedbackTotal *prometheus.CounterVec
}

// New registers the collectors on reg. cacheStats, when set, backs the
// similarity cache gauges. Registering on a registry that already holds the
// collectors of another engine fails and leaves reg unchanged.
func New(reg prometheus.Registerer, cacheStats func() similarity.Stats) (*Collectors, error) {
	// Built unregistered, then registered together below.
	factory := promauto.With(nil)

	c := &Collectors{
		RankDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rank_duration_seconds",
				Help:      "Duration of ranking calls in seconds",
				Buckets:   []float64{0.0005, 0.001, 0.002, 0.004, 0.006, 0.008, 0.01, 0.015, 0.025, 0.05, 0.1},
			},
			[]string{"operation"},
		),
		RankTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rank_total",
				Help:      "Total number of ranking calls",
			},
			[]string{"operation", "status"},
		),
		BudgetViolations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "budget_violations_total",
				Help:      "Ranking calls that exceeded the latency budget",
			},
			[]string{"operation"},
		),
		JobsScored: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_scored_total",
				Help:      "Total number of jobs scored",
			},
		),
		FeedbackTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "feedback_total",
				Help:      "Feedback events applied to bandit arms",
			},
			[]string{"outcome"},
		),
	}

	collectors := []prometheus.Collector{c.RankDuration, c.RankTotal, c.BudgetViolations, c.JobsScored, c.FeedbackTotal}

	if cacheStats != nil {
		collectors = append(collectors,
			factory.NewCounterFunc(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "similarity_cache",
				Name:      "hits_total",
				Help:      "Similarity cache hits",
			}, func() float64 { return float64(cacheStats().Hits) }),
			factory.NewCounterFunc(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "similarity_cache",
				Name:      "misses_total",
				Help:      "Similarity cache misses",
			}, func() float64 { return float64(cacheStats().Misses) }),
			factory.NewCounterFunc(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "similarity_cache",
				Name:      "evictions_total",
				Help:      "Similarity cache evictions",
			}, func() float64 { return float64(cacheStats().Evictions) }),
			factory.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "similarity_cache",
				Name:      "entries",
				Help:      "Pairs currently cached",
			}, func() float64 { return float64(cacheStats().Size) }),
		)
	}

	if reg == nil {
		return c, nil
	}

	for i, col := range collectors {
		if err := reg.Register(col); err != nil {
			for _, done := range collectors[:i] {
				reg.Unregister(done)
			}
			return nil, fmt.Errorf("registering metrics: %w", err)
		}
	}

	return c, nil
}

// RecordRank records one ranking call.
func (c *Collectors) RecordRank(operation string, duration time.Duration, scored int, partial, overBudget bool) {
	if c == nil {
		return
	}

	status := "complete"
	if partial {
		status = "partial"
	}

	c.RankTotal.WithLabelValues(operation, status).Inc()
	c.RankDuration.WithLabelValues(operation).Observe(duration.Seconds())
	c.JobsScored.Add(float64(scored))

	if overBudget {
		c.BudgetViolations.WithLabelValues(operation).Inc()
	}
}

// RecordFeedback records one feedback event.
func (c *Collectors) RecordFeedback(outcome string) {
	if c == nil {
		return
	}
	c.FeedbackTotal.WithLabelValues(outcome).Inc()
}
