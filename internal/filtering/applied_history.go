package filtering

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/hh-ranker/internal/jobs"
)

const includeAppliedMsg = "include-applied is set"

type appliedHistoryFilter struct {
	toggle
	ignore bool
}

// NewAppliedHistory creates a filter that removes jobs the candidate already
// accepted, according to the bandit feedback history.
func NewAppliedHistory() Filter {
	return &appliedHistoryFilter{}
}

func (f *appliedHistoryFilter) Name() string { return "applied_history" }

func (f *appliedHistoryFilter) Validate(cfg *Config) error {
	f.ignore = cfg.IncludeApplied
	return nil
}

func (f *appliedHistoryFilter) Apply(_ context.Context, deps Deps, j *jobs.Jobs) (*jobs.Jobs, Step, error) {
	initial := j.Len()
	if f.ignore {
		if deps.Logger != nil {
			deps.Logger.Info("keeping already accepted jobs", zap.String("reason", includeAppliedMsg))
		}
		return j, Step{Initial: initial, Dropped: 0, Left: j.Len()}, nil
	}
	if deps.Arms == nil {
		return j, Step{Initial: initial, Dropped: 0, Left: j.Len()}, nil
	}

	var accepted []string
	for _, id := range j.IDs() {
		// Alpha above the prior means at least one recorded accept.
		if state, ok := deps.Arms.Lookup(id); ok && state.Alpha > 1 {
			accepted = append(accepted, id)
		}
	}

	excluded := j.Exclude(accepted)
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding jobs based on feedback history",
			zap.Strings("excluded_jobs", excluded),
			zap.Int("jobs_left", j.Len()),
		)
	}

	return j, Step{Initial: initial, Dropped: len(excluded), Left: j.Len()}, nil
}

func (f *appliedHistoryFilter) Status() Status {
	details := map[string]string{
		"exclude_applied": strconv.FormatBool(!f.ignore),
	}
	reason := f.reason
	if f.ignore && reason == "" {
		reason = "skip requested via flag"
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: reason, Details: details}
}
