// Package ranking combines fit scoring and bandit exploration into ranked job
// lists.
package ranking

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/hh-ranker/internal/bandit"
	"github.com/spigell/hh-ranker/internal/fit"
	"github.com/spigell/hh-ranker/internal/jobs"
	"github.com/spigell/hh-ranker/internal/logger"
	"github.com/spigell/hh-ranker/internal/metrics"
	"github.com/spigell/hh-ranker/internal/similarity"
	"github.com/spigell/hh-ranker/internal/taxonomy"
	"github.com/spigell/hh-ranker/internal/utils"
)

const (
	OperationRank   = "rank"
	OperationRerank = "rerank"

	modeExplore = "explore"
	modeExploit = "exploit"
)

// Deps are the collaborators of an engine. Every field is optional.
type Deps struct {
	Taxonomy *taxonomy.Taxonomy
	Logger   *zap.Logger
	// Registry receives the engine collectors. A private registry is created
	// when nil. A registry serves one engine; sharing it fails New.
	Registry *prometheus.Registry
	// Random drives exploration sampling. A seeded source makes rankings
	// reproducible.
	Random rand.Source
	Clock  func() time.Time
}

// Stats is a point-in-time view of engine health.
type Stats struct {
	Latency LatencyStats
	Cache   similarity.Stats
	Arms    int
}

// Engine ranks jobs for a candidate. It is safe for concurrent use.
type Engine struct {
	cfg          Config
	fitWeight    float64
	banditWeight float64

	sim      *similarity.Engine
	matcher  *taxonomy.Matcher
	scorer   *fit.Scorer
	arms     *bandit.Store
	metrics  *metrics.Collectors
	registry *prometheus.Registry
	latency  *LatencyTracker

	now    func() time.Time
	logger *zap.Logger
}

func New(cfg Config, deps Deps) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	sim, err := similarity.New(cfg.Similarity)
	if err != nil {
		return nil, fmt.Errorf("creating similarity engine: %w", err)
	}

	matcher, err := taxonomy.NewMatcher(deps.Taxonomy, sim, cfg.MatchThreshold, logger.WithComponent(log, "taxonomy"))
	if err != nil {
		return nil, fmt.Errorf("creating skill matcher: %w", err)
	}

	scorer, err := fit.NewScorer(matcher, cfg.Weights)
	if err != nil {
		return nil, fmt.Errorf("creating fit scorer: %w", err)
	}

	arms := bandit.New(
		bandit.WithSource(deps.Random),
		bandit.WithClock(now),
		bandit.WithLogger(logger.WithComponent(log, "bandit")),
	)

	collectors, err := metrics.New(reg, sim.Stats)
	if err != nil {
		return nil, err
	}

	fw, bw := cfg.blend()

	return &Engine{
		cfg:          cfg,
		fitWeight:    fw,
		banditWeight: bw,
		sim:          sim,
		matcher:      matcher,
		scorer:       scorer,
		arms:         arms,
		metrics:      collectors,
		registry:     reg,
		latency:      NewLatencyTracker(cfg.window()),
		now:          now,
		logger:       logger.WithComponent(log, "ranking"),
	}, nil
}

func (e *Engine) Config() Config                  { return e.cfg }
func (e *Engine) Arms() *bandit.Store             { return e.arms }
func (e *Engine) Similarity() *similarity.Engine  { return e.sim }
func (e *Engine) Matcher() *taxonomy.Matcher      { return e.matcher }
func (e *Engine) Registry() *prometheus.Registry  { return e.registry }
func (e *Engine) Collectors() *metrics.Collectors { return e.metrics }

func (e *Engine) Stats() Stats {
	return Stats{
		Latency: e.latency.Stats(),
		Cache:   e.sim.Stats(),
		Arms:    e.arms.Len(),
	}
}

// Rank scores every job against the profile and orders them by blended score,
// best first. With explore set the bandit term is a posterior sample,
// otherwise the posterior mean, which makes exploit rankings deterministic.
//
// Rank never fails. When ctx is done, or the budget runs out with
// EnforceBudget, jobs not yet started are skipped and the result is marked
// partial.
func (e *Engine) Rank(ctx context.Context, profile *jobs.CandidateProfile, list []jobs.JobReference, explore bool) *Ranking {
	start := e.now()
	out := e.newRanking(explore, len(list))
	log := logger.WithFields(e.logger, logger.RequestFields(out.RequestID, out.mode())...)

	results, partial := e.scoreAll(ctx, profile, list, explore)
	sortResults(results)
	assignRanks(results)

	out.Results = results
	out.Scored = len(results)
	out.Partial = partial

	e.finish(OperationRank, out, start, log)
	return out
}

// Delta describes how a job list changed since a previous ranking.
type Delta struct {
	Added   []jobs.JobReference
	Removed []string
}

// Rerank updates a previous ranking incrementally. Only added jobs are scored;
// removed jobs are dropped and the rest keep their previous scores. A job that
// is both kept and added is rescored.
func (e *Engine) Rerank(ctx context.Context, profile *jobs.CandidateProfile, delta Delta, previous *Ranking, explore bool) *Ranking {
	start := e.now()

	var prev []Result
	prevPartial := false
	if previous != nil {
		prev = previous.Results
		prevPartial = previous.Partial
	}

	drop := make(map[string]struct{}, len(delta.Removed)+len(delta.Added))
	for _, id := range delta.Removed {
		drop[id] = struct{}{}
	}
	for _, job := range delta.Added {
		drop[job.ID] = struct{}{}
	}

	kept := make([]Result, 0, len(prev))
	for _, res := range prev {
		if _, ok := drop[res.JobID]; ok {
			continue
		}
		kept = append(kept, res)
	}

	out := e.newRanking(explore, len(kept)+len(delta.Added))
	log := logger.WithFields(e.logger, logger.RequestFields(out.RequestID, out.mode())...)

	fresh, partial := e.scoreAll(ctx, profile, delta.Added, explore)
	sortResults(fresh)

	out.Results = mergeSorted(kept, fresh)
	assignRanks(out.Results)
	out.Scored = len(out.Results)
	out.Partial = partial || prevPartial

	log.Debug("rerank delta applied",
		zap.Int("kept", len(kept)),
		zap.Int("added", len(delta.Added)),
		zap.Int("removed", len(delta.Removed)),
	)

	e.finish(OperationRerank, out, start, log)
	return out
}

// RecordOutcome updates the job's bandit arm. It lets the engine back a
// bandit.Ingestor.
func (e *Engine) RecordOutcome(jobID string, success bool) bandit.ArmState {
	outcome := bandit.OutcomeReject
	if success {
		outcome = bandit.OutcomeAccept
	}
	e.metrics.RecordFeedback(string(outcome))
	return e.arms.RecordOutcome(jobID, success)
}

// RecordFeedback applies a single feedback event.
func (e *Engine) RecordFeedback(fb bandit.Feedback) bandit.ArmState {
	return e.RecordOutcome(fb.JobID, fb.Outcome.Success())
}

func (e *Engine) newRanking(explore bool, total int) *Ranking {
	return &Ranking{
		RequestID:   uuid.NewString(),
		Exploration: explore,
		Total:       total,
	}
}

func (r *Ranking) mode() string {
	if r.Exploration {
		return modeExplore
	}
	return modeExploit
}

func (e *Engine) finish(operation string, out *Ranking, start time.Time, log *zap.Logger) {
	out.Elapsed = e.now().Sub(start)
	out.OverBudget = e.cfg.Budget > 0 && out.Elapsed > e.cfg.Budget

	e.latency.Observe(out.Elapsed, out.OverBudget)
	e.metrics.RecordRank(operation, out.Elapsed, out.Scored, out.Partial, out.OverBudget)

	if out.OverBudget {
		log.Warn("ranking exceeded latency budget",
			zap.String("operation", operation),
			zap.Duration("elapsed", out.Elapsed),
			zap.Duration("budget", e.cfg.Budget),
			zap.Int("jobs", out.Total),
		)
	}
	if out.Partial {
		log.Info("returning partial ranking",
			zap.String("operation", operation),
			zap.Int("scored", out.Scored),
			zap.Int("total", out.Total),
		)
	}

	log.Debug("ranking finished",
		zap.String("operation", operation),
		zap.Int("scored", out.Scored),
		zap.Duration("elapsed", out.Elapsed),
	)
}

// scoreAll fans scoring out to the worker pool. Results keep input order;
// unscored jobs are dropped and reported through the partial flag.
func (e *Engine) scoreAll(ctx context.Context, profile *jobs.CandidateProfile, list []jobs.JobReference, explore bool) ([]Result, bool) {
	if len(list) == 0 {
		return []Result{}, false
	}

	if e.cfg.EnforceBudget && e.cfg.Budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Budget)
		defer cancel()
	}

	slots := make([]Result, len(list))
	done := make([]bool, len(list))

	g := new(errgroup.Group)
	g.SetLimit(e.cfg.workers())

	for i := range list {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			slots[i] = e.scoreJob(profile, &list[i], explore)
			done[i] = true
			return nil
		})
	}
	_ = g.Wait()

	results := make([]Result, 0, len(list))
	for i, ok := range done {
		if ok {
			results = append(results, slots[i])
		}
	}

	return results, len(results) < len(list)
}

func (e *Engine) scoreJob(profile *jobs.CandidateProfile, job *jobs.JobReference, explore bool) Result {
	score := e.scorer.Score(profile, job)

	var b float64
	if explore {
		b = e.arms.Sample(job.ID)
	} else {
		b = e.arms.PosteriorMean(job.ID)
	}

	return Result{
		JobID:     job.ID,
		Title:     job.Title,
		Score:     utils.Clamp(e.fitWeight*score.Composite+e.banditWeight*b, 0, 1),
		Fit:       score.Composite,
		Breakdown: score.Breakdown,
		Bandit:    b,
	}
}
