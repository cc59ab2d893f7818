// Package filtering removes jobs that must not be ranked before they reach
// the ranking engine.
package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/hh-ranker/internal/bandit"
	"github.com/spigell/hh-ranker/internal/jobs"
	"github.com/spigell/hh-ranker/internal/taxonomy"
)

// Filter represents a single filtering step applied to jobs.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate(cfg *Config) error
	Apply(ctx context.Context, deps Deps, j *jobs.Jobs) (*jobs.Jobs, Step, error)
}

// Deps aggregates dependencies shared across all filtering steps.
type Deps struct {
	Logger  *zap.Logger
	Profile *jobs.CandidateProfile
	Matcher *taxonomy.Matcher
	Arms    *bandit.Store
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Config contains configuration settings consumed by the filters.
type Config struct {
	ExcludeFile    string   `mapstructure:"exclude-file"`
	ExcludedIDs    []string `mapstructure:"excluded-ids"`
	IncludeApplied bool     `mapstructure:"include-applied"`
	// MinSkillMatch drops jobs whose skill match is below it. Zero disables
	// the step.
	MinSkillMatch float64 `mapstructure:"min-skill-match"`
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

// statusProvider is implemented by filters that can supply detailed status information.
type statusProvider interface {
	Status() Status
}

// Default returns the standard pipeline in execution order.
func Default() []Filter {
	return []Filter{
		NewDuplicates(),
		NewExcludeFile(),
		NewExcludedIDs(),
		NewAppliedHistory(),
		NewSkillMatch(),
	}
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Run executes the supplied filters sequentially and returns the remaining jobs.
func Run(ctx context.Context, cfg *Config, deps Deps, steps []Filter, j *jobs.Jobs) (*jobs.Jobs, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if j == nil {
		j = &jobs.Jobs{}
	}

	for _, step := range steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	for _, step := range steps {
		if !step.IsEnabled() {
			if deps.Logger != nil {
				deps.Logger.Info("filter disabled", zap.String("name", step.Name()))
			}
			continue
		}

		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		next, info, err := step.Apply(ctx, deps, j)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		if deps.Logger != nil {
			deps.Logger.Info("filter step",
				zap.String("name", step.Name()),
				zap.Int("initial", info.Initial),
				zap.Int("dropped", info.Dropped),
				zap.Int("left", info.Left),
			)
		}

		j = next
	}

	return j, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}

// toggle carries the enabled state shared by all filters.
type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }
