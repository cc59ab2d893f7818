// Package bandit keeps Thompson-sampling posteriors for jobs.
package bandit

import (
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/spigell/hh-ranker/internal/utils"
)

type arm struct {
	mu    sync.Mutex
	state ArmState
}

// Store maps job ids to Beta posteriors. Arms are created lazily with a
// Beta(1, 1) prior. Different arms are updated independently; updates to one
// arm are serialized.
type Store struct {
	mu   sync.RWMutex
	arms map[string]*arm

	src    rand.Source
	now    func() time.Time
	logger *zap.Logger
}

type Option func(*Store)

// WithSeed makes sampling reproducible.
func WithSeed(seed uint64) Option {
	return func(s *Store) {
		s.src = rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	}
}

// WithSource sets the random source used for sampling. The store serializes
// access to it.
func WithSource(src rand.Source) Option {
	return func(s *Store) {
		if src != nil {
			s.src = src
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a store. Without a seed or source, sampling draws from a
// randomly seeded generator.
func New(opts ...Option) *Store {
	s := &Store{
		arms:   make(map[string]*arm),
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.src == nil {
		s.src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	s.src = &lockedSource{src: s.src}
	return s
}

func (s *Store) arm(jobID string) *arm {
	s.mu.RLock()
	a, ok := s.arms[jobID]
	s.mu.RUnlock()
	if ok {
		return a
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok = s.arms[jobID]; ok {
		return a
	}
	a = &arm{state: newArmState(jobID)}
	s.arms[jobID] = a
	return a
}

// State returns the current posterior of a job, creating the prior if needed.
func (s *Store) State(jobID string) ArmState {
	a := s.arm(jobID)
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Lookup returns the posterior of a known job without creating one.
func (s *Store) Lookup(jobID string) (ArmState, bool) {
	s.mu.RLock()
	a, ok := s.arms[jobID]
	s.mu.RUnlock()
	if !ok {
		return ArmState{}, false
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state, true
}

// Sample draws theta ~ Beta(alpha, beta) for the job.
func (s *Store) Sample(jobID string) float64 {
	state := s.State(jobID)

	dist := distuv.Beta{Alpha: state.Alpha, Beta: state.Beta, Src: s.src}
	return utils.Clamp(dist.Rand(), 0, 1)
}

// PosteriorMean returns alpha / (alpha + beta) for the job.
func (s *Store) PosteriorMean(jobID string) float64 {
	return s.State(jobID).Mean()
}

// RecordOutcome counts a success or failure for the job and returns the
// updated posterior.
func (s *Store) RecordOutcome(jobID string, success bool) ArmState {
	a := s.arm(jobID)

	a.mu.Lock()
	if success {
		a.state.Alpha++
	} else {
		a.state.Beta++
	}
	a.state.Trials++
	a.state.UpdatedAt = s.now()
	state := a.state
	a.mu.Unlock()

	s.logger.Debug("bandit arm updated",
		zap.String("job_id", jobID),
		zap.Bool("success", success),
		zap.Float64("alpha", state.Alpha),
		zap.Float64("beta", state.Beta),
	)

	return state
}

// Apply records a batch of feedback events in order.
func (s *Store) Apply(events ...Feedback) {
	for _, ev := range events {
		s.RecordOutcome(ev.JobID, ev.Outcome.Success())
	}
}

// Snapshot returns every arm ordered by job id.
func (s *Store) Snapshot() []ArmState {
	s.mu.RLock()
	arms := make([]*arm, 0, len(s.arms))
	for _, a := range s.arms {
		arms = append(arms, a)
	}
	s.mu.RUnlock()

	out := make([]ArmState, 0, len(arms))
	for _, a := range arms {
		a.mu.Lock()
		out = append(out, a.state)
		a.mu.Unlock()
	}

	sort.Slice(out, func(i, j int) bool { return out[i].JobID < out[j].JobID })
	return out
}

// Restore replaces the posteriors of the given jobs. Invalid parameters are
// reset to the neutral prior and counted in the return value.
func (s *Store) Restore(states []ArmState) int {
	repaired := 0

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, st := range states {
		if st.JobID == "" {
			repaired++
			continue
		}

		clean := st.sanitize()
		if clean != st {
			repaired++
			s.logger.Warn("repaired invalid bandit state",
				zap.String("job_id", st.JobID),
				zap.Float64("alpha", st.Alpha),
				zap.Float64("beta", st.Beta),
			)
		}
		if a, ok := s.arms[st.JobID]; ok {
			a.mu.Lock()
			a.state = clean
			a.mu.Unlock()
			continue
		}
		s.arms[st.JobID] = &arm{state: clean}
	}

	return repaired
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.arms)
}

// lockedSource makes a rand.Source safe for concurrent samplers.
type lockedSource struct {
	mu  sync.Mutex
	src rand.Source
}

func (l *lockedSource) Uint64() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Uint64()
}
