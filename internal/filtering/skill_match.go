package filtering

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/spigell/hh-ranker/internal/jobs"
	"github.com/spigell/hh-ranker/internal/taxonomy"
)

type skillMatchFilter struct {
	toggle
	minimum float64
}

// NewSkillMatch creates a filter that drops jobs whose skill requirements the
// candidate covers below the configured minimum.
func NewSkillMatch() Filter {
	return &skillMatchFilter{}
}

func (f *skillMatchFilter) Name() string { return "skill_match" }

func (f *skillMatchFilter) Validate(cfg *Config) error {
	if math.IsNaN(cfg.MinSkillMatch) || cfg.MinSkillMatch < 0 || cfg.MinSkillMatch > 1 {
		return fmt.Errorf("minimum skill match must be in [0, 1], got %v", cfg.MinSkillMatch)
	}
	f.minimum = cfg.MinSkillMatch
	return nil
}

func (f *skillMatchFilter) Apply(ctx context.Context, deps Deps, j *jobs.Jobs) (*jobs.Jobs, Step, error) {
	initial := j.Len()
	if f.minimum == 0 || initial == 0 {
		return j, Step{Initial: initial, Dropped: 0, Left: j.Len()}, nil
	}
	if deps.Matcher == nil {
		return j, Step{}, fmt.Errorf("skill matcher is required")
	}
	if deps.Profile == nil {
		return j, Step{}, fmt.Errorf("candidate profile is required")
	}

	pairs := make([]taxonomy.Pair, 0, initial)
	for _, job := range j.Items {
		pairs = append(pairs, taxonomy.Pair{Skills: deps.Profile.Skills, Requirements: job.Requirements})
	}

	scores, err := deps.Matcher.BatchProfileMatch(ctx, pairs)
	if err != nil {
		return j, Step{}, fmt.Errorf("matching skills: %w", err)
	}

	var low []string
	for i, job := range j.Items {
		if scores[i] < f.minimum {
			low = append(low, job.ID)
			if deps.Logger != nil {
				deps.Logger.Debug("job rejected by skill match",
					zap.String("job_id", job.ID),
					zap.Float64("skill_match", scores[i]),
				)
			}
		}
	}

	excluded := j.Exclude(low)
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding jobs below minimum skill match",
			zap.Float64("minimum", f.minimum),
			zap.Strings("excluded_jobs", excluded),
			zap.Int("jobs_left", j.Len()),
		)
	}

	return j, Step{Initial: initial, Dropped: len(excluded), Left: j.Len()}, nil
}

func (f *skillMatchFilter) Status() Status {
	details := map[string]string{
		"minimum_skill_match": fmt.Sprintf("%.2f", f.minimum),
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
