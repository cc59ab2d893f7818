package filtering

import (
	"context"

	"go.uber.org/zap"

	"github.com/spigell/hh-ranker/internal/jobs"
)

type duplicatesFilter struct {
	toggle
}

// NewDuplicates creates a filter that keeps the first job of every id and
// drops jobs without an id.
func NewDuplicates() Filter {
	return &duplicatesFilter{}
}

func (f *duplicatesFilter) Name() string { return "duplicates" }

func (f *duplicatesFilter) Validate(*Config) error { return nil }

func (f *duplicatesFilter) Apply(_ context.Context, deps Deps, j *jobs.Jobs) (*jobs.Jobs, Step, error) {
	initial := j.Len()
	removed := j.Dedupe()
	if deps.Logger != nil && len(removed) > 0 {
		deps.Logger.Info("dropping duplicate or anonymous jobs",
			zap.Strings("excluded_jobs", removed),
			zap.Int("jobs_left", j.Len()),
		)
	}

	return j, Step{Initial: initial, Dropped: len(removed), Left: j.Len()}, nil
}

func (f *duplicatesFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}
