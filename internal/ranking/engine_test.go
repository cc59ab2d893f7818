package ranking

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/hh-ranker/internal/bandit"
	"github.com/spigell/hh-ranker/internal/fit"
	"github.com/spigell/hh-ranker/internal/jobs"
	"github.com/spigell/hh-ranker/internal/taxonomy"
)

func testTaxonomy(t *testing.T) *taxonomy.Taxonomy {
	t.Helper()

	tax, err := taxonomy.New(
		taxonomy.Skill{ID: "swift", Name: "Swift", Aliases: []string{"swift-lang"}},
		taxonomy.Skill{ID: "swiftui", Name: "SwiftUI"},
		taxonomy.Skill{ID: "k8s", Name: "Kubernetes", Aliases: []string{"k8s", "kube"}},
	)
	require.NoError(t, err)
	return tax
}

func testProfile() *jobs.CandidateProfile {
	return &jobs.CandidateProfile{
		Skills:          []string{"Swift", "SwiftUI"},
		EducationLevel:  6,
		ExperienceYears: 4,
		WorkActivities:  map[string]float64{"4.A.3.b.1": 5},
		Interests:       jobs.Interests{Investigative: 6, Realistic: 3},
		Abilities:       map[string]float64{"1.A.1.a.1": 4},
	}
}

func testJobs() []jobs.JobReference {
	return []jobs.JobReference{
		{
			ID:              "ios",
			Title:           "iOS Engineer",
			Requirements:    []string{"Swift", "SwiftUI"},
			EducationLevel:  6,
			ExperienceYears: 3,
			WorkActivities:  map[string]float64{"4.A.3.b.1": 5},
			Interests:       jobs.Interests{Investigative: 6, Realistic: 3},
			Abilities:       map[string]float64{"1.A.1.a.1": 4},
		},
		{
			ID:              "platform",
			Title:           "Platform Engineer",
			Requirements:    []string{"Swift", "SwiftUI", "Kubernetes"},
			EducationLevel:  8,
			ExperienceYears: 6,
			WorkActivities:  map[string]float64{"4.A.3.b.1": 3},
			Interests:       jobs.Interests{Investigative: 4, Realistic: 5},
		},
		{
			ID:              "chef",
			Title:           "Line Cook",
			Requirements:    []string{"Knife skills"},
			EducationLevel:  2,
			ExperienceYears: 10,
			Interests:       jobs.Interests{Realistic: 7},
		},
	}
}

func newTestEngine(t *testing.T, mutate func(*Config, *Deps)) *Engine {
	t.Helper()

	cfg := DefaultConfig()
	deps := Deps{Taxonomy: testTaxonomy(t), Random: rand.NewPCG(1, 2)}
	if mutate != nil {
		mutate(&cfg, &deps)
	}

	e, err := New(cfg, deps)
	require.NoError(t, err)
	return e
}

type stepClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(c.step)
	return c.t
}

func TestRankOrdersByBlendedScore(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, nil)
	r := e.Rank(context.Background(), testProfile(), testJobs(), false)

	require.NotEmpty(t, r.RequestID)
	assert.False(t, r.Partial)
	assert.False(t, r.Exploration)
	assert.Equal(t, 3, r.Total)
	assert.Equal(t, 3, r.Scored)
	assert.Equal(t, []string{"ios", "platform", "chef"}, r.IDs())

	for i, res := range r.Results {
		assert.Equal(t, i+1, res.Rank)
		assert.GreaterOrEqual(t, res.Score, 0.0)
		assert.LessOrEqual(t, res.Score, 1.0)
		assert.InDelta(t, 0.5, res.Bandit, 1e-9, "fresh arms have a neutral posterior mean")
		assert.InDelta(t, 0.7*res.Fit+0.3*res.Bandit, res.Score, 1e-9)
		if i > 0 {
			assert.GreaterOrEqual(t, r.Results[i-1].Score, res.Score)
		}
	}

	platform, ok := r.Find("platform")
	require.True(t, ok)
	assert.InDelta(t, 2.0/3.0, platform.Breakdown.Skills, 1e-9)

	ios, ok := r.Find("ios")
	require.True(t, ok)
	assert.InDelta(t, 1.0, ios.Fit, 1e-9)
}

func TestRankBreaksTiesByJobID(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, nil)
	list := []jobs.JobReference{{ID: "c"}, {ID: "a"}, {ID: "b"}}

	r := e.Rank(context.Background(), testProfile(), list, false)
	assert.Equal(t, []string{"a", "b", "c"}, r.IDs())
}

func TestRankExploitIsDeterministic(t *testing.T) {
	t.Parallel()

	first := newTestEngine(t, nil).Rank(context.Background(), testProfile(), testJobs(), false)
	second := newTestEngine(t, nil).Rank(context.Background(), testProfile(), testJobs(), false)

	require.Equal(t, first.IDs(), second.IDs())
	for i := range first.Results {
		assert.Equal(t, first.Results[i].Score, second.Results[i].Score)
	}
	assert.NotEqual(t, first.RequestID, second.RequestID)
}

func TestRankExploreIsReproducibleWithSeed(t *testing.T) {
	t.Parallel()

	single := func(cfg *Config, deps *Deps) {
		cfg.Workers = 1
		deps.Random = rand.NewPCG(42, 7)
	}

	first := newTestEngine(t, single).Rank(context.Background(), testProfile(), testJobs(), true)
	second := newTestEngine(t, single).Rank(context.Background(), testProfile(), testJobs(), true)

	assert.True(t, first.Exploration)
	require.Equal(t, first.IDs(), second.IDs())
	for i := range first.Results {
		assert.Equal(t, first.Results[i].Bandit, second.Results[i].Bandit)
	}
}

func TestRankEmptyList(t *testing.T) {
	t.Parallel()

	r := newTestEngine(t, nil).Rank(context.Background(), testProfile(), nil, false)
	assert.NotNil(t, r.Results)
	assert.Zero(t, r.Len())
	assert.False(t, r.Partial)
}

func TestRankNilProfileStaysInRange(t *testing.T) {
	t.Parallel()

	r := newTestEngine(t, nil).Rank(context.Background(), nil, testJobs(), true)
	require.Equal(t, 3, r.Len())
	for _, res := range r.Results {
		assert.False(t, math.IsNaN(res.Score))
		assert.GreaterOrEqual(t, res.Score, 0.0)
		assert.LessOrEqual(t, res.Score, 1.0)
	}
}

func TestRankCancelledContextReturnsPartial(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newTestEngine(t, nil)
	r := e.Rank(ctx, testProfile(), testJobs(), false)

	assert.True(t, r.Partial)
	assert.Equal(t, 3, r.Total)
	assert.Zero(t, r.Scored)
	assert.NotNil(t, r.Results)

	assert.InDelta(t, 1, testutil.ToFloat64(e.Collectors().RankTotal.WithLabelValues(OperationRank, "partial")), 1e-9)
}

func TestRankWithinEnforcedBudgetIsComplete(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, func(cfg *Config, _ *Deps) {
		cfg.EnforceBudget = true
		cfg.Budget = time.Minute
	})

	r := e.Rank(context.Background(), testProfile(), testJobs(), true)
	assert.False(t, r.Partial)
	assert.Equal(t, 3, r.Scored)
	assert.False(t, r.OverBudget)
}

func TestRankRecordsBudgetViolations(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	clock := &stepClock{t: time.Unix(0, 0), step: 20 * time.Millisecond}

	e := newTestEngine(t, func(_ *Config, deps *Deps) {
		deps.Logger = zap.New(core)
		deps.Clock = clock.Now
	})

	r := e.Rank(context.Background(), testProfile(), testJobs(), false)
	assert.True(t, r.OverBudget)
	assert.Equal(t, 20*time.Millisecond, r.Elapsed)
	assert.False(t, r.Partial, "an advisory budget does not cut the ranking short")

	stats := e.Stats()
	assert.Equal(t, int64(1), stats.Latency.Calls)
	assert.Equal(t, int64(1), stats.Latency.Violations)
	assert.Equal(t, 20*time.Millisecond, stats.Latency.P95)
	assert.Equal(t, 3, stats.Arms)

	assert.InDelta(t, 1, testutil.ToFloat64(e.Collectors().BudgetViolations.WithLabelValues(OperationRank)), 1e-9)
	assert.InDelta(t, 3, testutil.ToFloat64(e.Collectors().JobsScored), 1e-9)

	entries := logs.FilterMessage("ranking exceeded latency budget").All()
	require.Len(t, entries, 1)
	assert.Equal(t, r.RequestID, entries[0].ContextMap()["request_id"])
	assert.Equal(t, "exploit", entries[0].ContextMap()["ranking_mode"])
}

func TestRerankMatchesFullRank(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, nil)
	profile := testProfile()
	all := testJobs()

	initial := e.Rank(context.Background(), profile, all[:2], false)

	delta := Delta{
		Added:   []jobs.JobReference{all[2]},
		Removed: []string{"platform"},
	}
	updated := e.Rerank(context.Background(), profile, delta, initial, false)

	full := e.Rank(context.Background(), profile, []jobs.JobReference{all[0], all[2]}, false)

	require.Equal(t, full.IDs(), updated.IDs())
	for i := range full.Results {
		assert.InDelta(t, full.Results[i].Score, updated.Results[i].Score, 1e-12)
		assert.Equal(t, i+1, updated.Results[i].Rank)
	}
	assert.Equal(t, 2, updated.Total)
	assert.Equal(t, []string{"ios", "platform"}, initial.IDs(), "previous ranking is untouched")
}

func TestRerankRescoresReaddedJobs(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, nil)
	profile := testProfile()
	list := testJobs()

	initial := e.Rank(context.Background(), profile, list, false)
	for range 20 {
		e.RecordOutcome("chef", true)
	}

	updated := e.Rerank(context.Background(), profile, Delta{Added: []jobs.JobReference{list[2]}}, initial, false)
	require.Equal(t, 3, updated.Len())

	before, _ := initial.Find("chef")
	after, ok := updated.Find("chef")
	require.True(t, ok)
	assert.Greater(t, after.Bandit, before.Bandit)
}

func TestRerankWithoutPrevious(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, nil)
	r := e.Rerank(context.Background(), testProfile(), Delta{Added: testJobs()}, nil, false)
	assert.Equal(t, []string{"ios", "platform", "chef"}, r.IDs())
}

func TestFeedbackConvergence(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, func(cfg *Config, _ *Deps) { cfg.Workers = 1 })
	list := []jobs.JobReference{{ID: "liked"}, {ID: "disliked"}}

	record := func(id string, accepts, rejects int) {
		for range accepts {
			e.RecordFeedback(bandit.Feedback{JobID: id, Outcome: bandit.OutcomeAccept})
		}
		for range rejects {
			e.RecordFeedback(bandit.Feedback{JobID: id, Outcome: bandit.OutcomeReject})
		}
	}
	record("liked", 9, 1)
	record("disliked", 1, 9)

	wins := 0
	for range 1000 {
		r := e.Rank(context.Background(), testProfile(), list, true)
		if r.Results[0].JobID == "liked" {
			wins++
		}
	}
	assert.Greater(t, wins, 900)

	assert.InDelta(t, 10, testutil.ToFloat64(e.Collectors().FeedbackTotal.WithLabelValues("accept")), 1e-9)
	assert.InDelta(t, 10, testutil.ToFloat64(e.Collectors().FeedbackTotal.WithLabelValues("reject")), 1e-9)
}

func TestEngineBacksIngestor(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, nil)
	ing := bandit.NewIngestor(e, 0, 1, nil)

	n, err := ing.Ingest(context.Background(), []bandit.Feedback{
		{JobID: "ios", Outcome: bandit.OutcomeAccept},
		{JobID: "ios", Outcome: bandit.OutcomeAccept},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	state, ok := e.Arms().Lookup("ios")
	require.True(t, ok)
	assert.InDelta(t, 3, state.Alpha, 1e-9)
}

func TestConcurrentRankAndFeedback(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, func(cfg *Config, _ *Deps) { cfg.Workers = 4 })
	list := make([]jobs.JobReference, 0, 50)
	for i := range 50 {
		list = append(list, jobs.JobReference{
			ID:           fmt.Sprintf("job-%02d", i),
			Requirements: []string{"Swift", fmt.Sprintf("skill-%d", i%7)},
		})
	}

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 20 {
				r := e.Rank(context.Background(), testProfile(), list, w%2 == 0)
				assert.Equal(t, len(list), r.Len())
				e.RecordOutcome(list[(w+i)%len(list)].ID, i%3 == 0)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, len(list), e.Arms().Len())
	assert.Equal(t, int64(160), e.Stats().Latency.Calls)

	var trials int64
	for _, st := range e.Arms().Snapshot() {
		trials += st.Trials
	}
	assert.Equal(t, int64(160), trials)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cases := map[string]func(*Config){
		"negative blend":  func(c *Config) { c.BlendFit = -0.1 },
		"zero blend":      func(c *Config) { c.BlendFit, c.BlendBandit = 0, 0 },
		"nan blend":       func(c *Config) { c.BlendBandit = math.NaN() },
		"negative budget": func(c *Config) { c.Budget = -time.Millisecond },
		"bad threshold":   func(c *Config) { c.MatchThreshold = 1.5 },
		"bad weights":     func(c *Config) { c.Weights = fit.Weights{Skills: -1} },
		"bad cache":       func(c *Config) { c.Similarity.Capacity = -1 },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			mutate(&cfg)
			_, err := New(cfg, Deps{})
			require.Error(t, err)
		})
	}
}

func TestNewRejectsSharedRegistry(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()

	first, err := New(DefaultConfig(), Deps{Registry: reg})
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := New(DefaultConfig(), Deps{Registry: reg})
	require.Error(t, err)
	assert.Nil(t, second)
	assert.Contains(t, err.Error(), "registering metrics")
}

func TestBlendIsNormalized(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, func(cfg *Config, _ *Deps) {
		cfg.BlendFit = 7
		cfg.BlendBandit = 3
	})

	r := e.Rank(context.Background(), testProfile(), testJobs()[:1], false)
	require.Equal(t, 1, r.Len())
	assert.InDelta(t, 0.7*r.Results[0].Fit+0.3*0.5, r.Results[0].Score, 1e-9)
}
