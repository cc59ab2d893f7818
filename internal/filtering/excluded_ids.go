package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/hh-ranker/internal/jobs"
)

type excludedIDsFilter struct {
	toggle
	ids []string
}

// NewExcludedIDs creates a filter that removes jobs listed in the config.
func NewExcludedIDs() Filter {
	return &excludedIDsFilter{}
}

func (f *excludedIDsFilter) Name() string { return "excluded_ids" }

func (f *excludedIDsFilter) Validate(cfg *Config) error {
	f.ids = nil
	for _, id := range cfg.ExcludedIDs {
		if id = strings.TrimSpace(id); id != "" {
			f.ids = append(f.ids, id)
		}
	}
	return nil
}

func (f *excludedIDsFilter) Apply(_ context.Context, deps Deps, j *jobs.Jobs) (*jobs.Jobs, Step, error) {
	initial := j.Len()
	if len(f.ids) == 0 {
		return j, Step{Initial: initial, Dropped: 0, Left: j.Len()}, nil
	}

	excluded := j.Exclude(f.ids)
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding jobs by configured ids",
			zap.Strings("excluded_jobs", excluded),
			zap.Int("jobs_left", j.Len()),
		)
	}

	return j, Step{Initial: initial, Dropped: len(excluded), Left: j.Len()}, nil
}

func (f *excludedIDsFilter) Status() Status {
	details := map[string]string{}
	if len(f.ids) > 0 {
		details["ids"] = strings.Join(f.ids, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
