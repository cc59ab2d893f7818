package fit

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidWeights = errors.New("invalid fit weights")

// Weights sets the relative importance of each dimension in the composite.
// The composite is the weighted arithmetic mean, so only ratios matter.
type Weights struct {
	Skills         float64 `mapstructure:"skills"`
	Education      float64 `mapstructure:"education"`
	Experience     float64 `mapstructure:"experience"`
	WorkActivities float64 `mapstructure:"work-activities"`
	Interests      float64 `mapstructure:"interests"`
	Abilities      float64 `mapstructure:"abilities"`
}

// EqualWeights makes the composite the plain mean of the six sub-scores.
func EqualWeights() Weights {
	return Weights{Skills: 1, Education: 1, Experience: 1, WorkActivities: 1, Interests: 1, Abilities: 1}
}

func (w Weights) values() [numDimensions]float64 {
	return [numDimensions]float64{w.Skills, w.Education, w.Experience, w.WorkActivities, w.Interests, w.Abilities}
}

func (w Weights) IsZero() bool {
	return w == Weights{}
}

func (w Weights) Validate() error {
	var sum float64
	for i, v := range w.values() {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: %s weight is %v", ErrInvalidWeights, Dimensions[i], v)
		}
		sum += v
	}
	if sum == 0 {
		return fmt.Errorf("%w: all weights are zero", ErrInvalidWeights)
	}
	return nil
}
