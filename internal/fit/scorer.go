// Package fit scores how well a candidate profile fits a job across six
// occupational dimensions.
package fit

import (
	"math"
	"sort"

	"github.com/spigell/hh-ranker/internal/jobs"
	"github.com/spigell/hh-ranker/internal/utils"
)

// Dimension names one sub-score.
type Dimension string

const (
	DimensionSkills         Dimension = "skills"
	DimensionEducation      Dimension = "education"
	DimensionExperience     Dimension = "experience"
	DimensionWorkActivities Dimension = "work_activities"
	DimensionInterests      Dimension = "interests"
	DimensionAbilities      Dimension = "abilities"

	numDimensions = 6
)

// Dimensions lists every dimension in breakdown order.
var Dimensions = [numDimensions]Dimension{
	DimensionSkills,
	DimensionEducation,
	DimensionExperience,
	DimensionWorkActivities,
	DimensionInterests,
	DimensionAbilities,
}

// SkillMatcher scores candidate skills against job requirements in [0, 1].
type SkillMatcher interface {
	ProfileMatchScore(userSkills, requirements []string) float64
}

// Breakdown holds the six sub-scores, each in [0, 1].
type Breakdown struct {
	Skills         float64 `json:"skills"`
	Education      float64 `json:"education"`
	Experience     float64 `json:"experience"`
	WorkActivities float64 `json:"work_activities"`
	Interests      float64 `json:"interests"`
	Abilities      float64 `json:"abilities"`
}

func (b Breakdown) values() [numDimensions]float64 {
	return [numDimensions]float64{b.Skills, b.Education, b.Experience, b.WorkActivities, b.Interests, b.Abilities}
}

// Get returns the sub-score of a dimension, or 0 for an unknown one.
func (b Breakdown) Get(d Dimension) float64 {
	for i, dim := range Dimensions {
		if dim == d {
			return b.values()[i]
		}
	}
	return 0
}

// Map returns the breakdown keyed by dimension name.
func (b Breakdown) Map() map[Dimension]float64 {
	out := make(map[Dimension]float64, numDimensions)
	for i, v := range b.values() {
		out[Dimensions[i]] = v
	}
	return out
}

// Score is the composite fit and its components.
type Score struct {
	Composite float64
	Breakdown Breakdown
}

// Scorer computes fit scores. It holds no mutable state.
type Scorer struct {
	skills  SkillMatcher
	weights Weights
}

// NewScorer creates a scorer. Zero weights mean equal weighting.
func NewScorer(skills SkillMatcher, weights Weights) (*Scorer, error) {
	if weights.IsZero() {
		weights = EqualWeights()
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}

	return &Scorer{skills: skills, weights: weights}, nil
}

func (s *Scorer) Weights() Weights { return s.weights }

// Score never fails: malformed values are clamped and missing reference data
// zeroes only the affected sub-score.
func (s *Scorer) Score(profile *jobs.CandidateProfile, job *jobs.JobReference) Score {
	if profile == nil {
		profile = &jobs.CandidateProfile{}
	}
	if job == nil {
		job = &jobs.JobReference{}
	}

	b := Breakdown{
		Education:      EducationScore(profile.EducationLevel, job.EducationLevel),
		Experience:     ExperienceScore(profile.ExperienceYears, job.ExperienceYears),
		WorkActivities: VectorScore(profile.WorkActivities, job.WorkActivities),
		Interests:      InterestScore(profile.Interests, job.Interests),
		Abilities:      VectorScore(profile.Abilities, job.Abilities),
	}
	if s.skills != nil {
		b.Skills = utils.Clamp(s.skills.ProfileMatchScore(profile.Skills, job.Requirements), 0, 1)
	}

	return Score{Composite: s.composite(b), Breakdown: b}
}

func (s *Scorer) composite(b Breakdown) float64 {
	var sum, total float64
	weights := s.weights.values()
	for i, v := range b.values() {
		sum += weights[i] * v
		total += weights[i]
	}
	return utils.Clamp(sum/total, 0, 1)
}

// EducationScore compares two levels on the 1-12 ordinal scale. A job
// without a reference level (<= 0) scores 0.
func EducationScore(candidate, reference int) float64 {
	if reference <= 0 {
		return 0
	}

	c := utils.ClampInt(candidate, jobs.MinEducationLevel, jobs.MaxEducationLevel)
	r := utils.ClampInt(reference, jobs.MinEducationLevel, jobs.MaxEducationLevel)

	diff := math.Abs(float64(c - r))
	return 1 - diff/float64(jobs.MaxEducationLevel-jobs.MinEducationLevel)
}

// ExperienceScore is 1 when the candidate meets the required years and falls
// linearly with the shortfall otherwise. No requirement scores 1.
func ExperienceScore(candidate, required float64) float64 {
	c := utils.Clamp(candidate, 0, math.MaxFloat64)
	r := utils.Clamp(required, 0, math.MaxFloat64)

	if r == 0 || c >= r {
		return 1
	}
	return utils.Clamp(c/r, 0, 1)
}

// ScaleScore is 1 - |c - r| / 7 for two values on the 0-7 scale.
func ScaleScore(candidate, reference float64) float64 {
	c := utils.Clamp(candidate, 0, jobs.ScaleMax)
	r := utils.Clamp(reference, 0, jobs.ScaleMax)
	return 1 - math.Abs(c-r)/jobs.ScaleMax
}

// VectorScore averages ScaleScore over the codes of the reference vector.
// Codes the candidate lacks count as 0. An empty reference scores 0.
func VectorScore(candidate, reference map[string]float64) float64 {
	if len(reference) == 0 {
		return 0
	}

	codes := make([]string, 0, len(reference))
	for code := range reference {
		codes = append(codes, code)
	}
	// fixed summation order keeps results bit-identical across calls
	sort.Strings(codes)

	var sum float64
	for _, code := range codes {
		sum += ScaleScore(candidate[code], reference[code])
	}
	return utils.Clamp(sum/float64(len(codes)), 0, 1)
}

// InterestScore averages ScaleScore over the six RIASEC scales.
func InterestScore(candidate, reference jobs.Interests) float64 {
	c, r := candidate.Values(), reference.Values()

	var sum float64
	for i := range c {
		sum += ScaleScore(c[i], r[i])
	}
	return utils.Clamp(sum/float64(len(c)), 0, 1)
}
