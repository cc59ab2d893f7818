package filtering

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/hh-ranker/internal/jobs"
)

type excludeFileFilter struct {
	toggle
	path string
}

// NewExcludeFile creates a filter that removes jobs listed in the exclude file.
func NewExcludeFile() Filter {
	return &excludeFileFilter{}
}

func (f *excludeFileFilter) Name() string { return "exclude_file" }

func (f *excludeFileFilter) Validate(cfg *Config) error {
	f.path = strings.TrimSpace(cfg.ExcludeFile)
	return nil
}

func (f *excludeFileFilter) Apply(_ context.Context, deps Deps, j *jobs.Jobs) (*jobs.Jobs, Step, error) {
	initial := j.Len()
	if f.path == "" {
		return j, Step{Initial: initial, Dropped: 0, Left: j.Len()}, nil
	}

	excluded, err := jobs.GetExcludedJobsFromFile(f.path)
	if err != nil {
		return j, Step{}, fmt.Errorf("getting excluded jobs from file: %w", err)
	}

	removed := j.Exclude(excluded.IDs())
	if deps.Logger != nil && len(removed) > 0 {
		deps.Logger.Info("excluding jobs based on exclude file",
			zap.String("path", f.path),
			zap.Strings("excluded_jobs", removed),
			zap.Int("jobs_left", j.Len()),
		)
	}

	return j, Step{Initial: initial, Dropped: len(removed), Left: j.Len()}, nil
}

func (f *excludeFileFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
