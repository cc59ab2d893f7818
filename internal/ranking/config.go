package ranking

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/spigell/hh-ranker/internal/fit"
	"github.com/spigell/hh-ranker/internal/similarity"
	"github.com/spigell/hh-ranker/internal/taxonomy"
)

const (
	DefaultBlendFit    = 0.7
	DefaultBlendBandit = 0.3
	DefaultBudget      = 10 * time.Millisecond
	DefaultWindow      = 1024
)

var (
	ErrInvalidConfig = errors.New("invalid ranking config")
	ErrInvalidBlend  = errors.New("invalid score blend")
)

var validate = validator.New()

// Config controls a ranking engine. The combined score of a job is
//
//	(BlendFit*fit + BlendBandit*bandit) / (BlendFit + BlendBandit)
//
// so the blend weights only need to be non-negative with a positive sum.
type Config struct {
	BlendFit    float64 `mapstructure:"blend-fit" validate:"gte=0"`
	BlendBandit float64 `mapstructure:"blend-bandit" validate:"gte=0"`

	// Workers bounds the scoring fan-out. Zero means GOMAXPROCS.
	Workers int `mapstructure:"workers" validate:"gte=0"`

	// Budget is the per-call latency target. Calls over budget are counted as
	// violations. With EnforceBudget the engine also stops starting new jobs
	// once the budget has elapsed and returns the partial ranking.
	Budget        time.Duration `mapstructure:"budget" validate:"gte=0"`
	EnforceBudget bool          `mapstructure:"enforce-budget"`

	// LatencyWindow is how many recent calls feed the P50/P95 estimates.
	LatencyWindow int `mapstructure:"latency-window" validate:"gte=0"`

	// MatchThreshold is the fuzzy skill-matching threshold in (0, 1].
	MatchThreshold float64 `mapstructure:"match-threshold"`

	Similarity similarity.Config `mapstructure:"similarity"`
	Weights    fit.Weights       `mapstructure:"weights"`
}

// DefaultConfig returns the production settings: a 0.7/0.3 fit/bandit blend,
// a 10ms advisory budget and the default fuzzy preset.
func DefaultConfig() Config {
	threshold, _ := taxonomy.PresetDefault.Threshold()

	return Config{
		BlendFit:       DefaultBlendFit,
		BlendBandit:    DefaultBlendBandit,
		Workers:        runtime.GOMAXPROCS(0),
		Budget:         DefaultBudget,
		LatencyWindow:  DefaultWindow,
		MatchThreshold: threshold,
		Similarity:     similarity.DefaultConfig(),
		Weights:        fit.EqualWeights(),
	}
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	sum := c.BlendFit + c.BlendBandit
	if math.IsNaN(sum) || math.IsInf(sum, 0) || sum <= 0 {
		return fmt.Errorf("%w: fit %v, bandit %v", ErrInvalidBlend, c.BlendFit, c.BlendBandit)
	}

	return nil
}

// blend returns the normalized fit and bandit weights.
func (c Config) blend() (float64, float64) {
	sum := c.BlendFit + c.BlendBandit
	return c.BlendFit / sum, c.BlendBandit / sum
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (c Config) window() int {
	if c.LatencyWindow > 0 {
		return c.LatencyWindow
	}
	return DefaultWindow
}
