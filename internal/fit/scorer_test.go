package fit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/hh-ranker/internal/jobs"
)

type stubMatcher float64

func (s stubMatcher) ProfileMatchScore(_, _ []string) float64 { return float64(s) }

func referenceJob() *jobs.JobReference {
	return &jobs.JobReference{
		ID:              "ios-1",
		Requirements:    []string{"Swift", "SwiftUI", "Kubernetes"},
		EducationLevel:  8,
		ExperienceYears: 4,
		WorkActivities:  map[string]float64{"4.A.3.b.1": 6, "4.A.2.a.4": 4},
		Interests:       jobs.Interests{Investigative: 6, Realistic: 3, Conventional: 4},
		Abilities:       map[string]float64{"1.A.1.a.1": 5},
	}
}

func TestNewScorerWeights(t *testing.T) {
	t.Parallel()

	s, err := NewScorer(stubMatcher(1), Weights{})
	require.NoError(t, err)
	assert.Equal(t, EqualWeights(), s.Weights())

	for _, w := range []Weights{
		{Skills: -1, Education: 1},
		{Skills: math.NaN()},
		{Skills: math.Inf(1)},
	} {
		_, err := NewScorer(stubMatcher(1), w)
		require.ErrorIs(t, err, ErrInvalidWeights, "%+v", w)
	}
}

func TestScorePerfectMatch(t *testing.T) {
	t.Parallel()

	s, err := NewScorer(stubMatcher(1), Weights{})
	require.NoError(t, err)

	job := referenceJob()
	profile := &jobs.CandidateProfile{
		EducationLevel:  8,
		ExperienceYears: 10,
		WorkActivities:  map[string]float64{"4.A.3.b.1": 6, "4.A.2.a.4": 4, "unrelated": 1},
		Interests:       job.Interests,
		Abilities:       map[string]float64{"1.A.1.a.1": 5},
	}

	score := s.Score(profile, job)
	assert.Equal(t, Breakdown{Skills: 1, Education: 1, Experience: 1, WorkActivities: 1, Interests: 1, Abilities: 1}, score.Breakdown)
	assert.Equal(t, 1.0, score.Composite)
}

func TestScoreBreakdownValues(t *testing.T) {
	t.Parallel()

	s, err := NewScorer(stubMatcher(2.0/3.0), Weights{})
	require.NoError(t, err)

	profile := &jobs.CandidateProfile{
		EducationLevel:  6,
		ExperienceYears: 2,
		WorkActivities:  map[string]float64{"4.A.3.b.1": 6},
		Interests:       jobs.Interests{Investigative: 6, Realistic: 3, Conventional: 4},
	}

	score := s.Score(profile, referenceJob())
	b := score.Breakdown

	assert.InDelta(t, 2.0/3.0, b.Skills, 1e-9)
	assert.InDelta(t, 1-2.0/11.0, b.Education, 1e-9)
	assert.InDelta(t, 0.5, b.Experience, 1e-9)
	assert.InDelta(t, (1+(1-4.0/7.0))/2, b.WorkActivities, 1e-9)
	assert.Equal(t, 1.0, b.Interests)
	assert.InDelta(t, 1-5.0/7.0, b.Abilities, 1e-9)

	var sum float64
	for _, v := range b.Map() {
		sum += v
	}
	assert.InDelta(t, sum/6, score.Composite, 1e-9)
	assert.Equal(t, b.Education, b.Get(DimensionEducation))
	assert.Zero(t, b.Get("unknown"))
}

func TestScoreWeighted(t *testing.T) {
	t.Parallel()

	s, err := NewScorer(stubMatcher(1), Weights{Skills: 3, Education: 1})
	require.NoError(t, err)

	score := s.Score(&jobs.CandidateProfile{EducationLevel: 1}, &jobs.JobReference{EducationLevel: 12})
	assert.Equal(t, 0.0, score.Breakdown.Education)
	assert.InDelta(t, 0.75, score.Composite, 1e-9)
}

func TestScoreBoundaryProfilesStayInRange(t *testing.T) {
	t.Parallel()

	s, err := NewScorer(stubMatcher(0), Weights{})
	require.NoError(t, err)

	allMax := map[string]float64{"a": 7, "b": 7}
	profiles := []*jobs.CandidateProfile{
		{},
		{
			EducationLevel:  12,
			ExperienceYears: 60,
			WorkActivities:  allMax,
			Abilities:       allMax,
			Interests:       jobs.Interests{Realistic: 7, Investigative: 7, Artistic: 7, Social: 7, Enterprising: 7, Conventional: 7},
		},
		{
			EducationLevel:  -5,
			ExperienceYears: math.NaN(),
			WorkActivities:  map[string]float64{"a": math.Inf(1), "b": -3},
			Abilities:       map[string]float64{"a": math.NaN()},
			Interests:       jobs.Interests{Realistic: 99, Social: math.Inf(-1)},
		},
		nil,
	}

	for _, job := range []*jobs.JobReference{referenceJob(), {}, nil, {WorkActivities: allMax, EducationLevel: 40}} {
		for _, p := range profiles {
			score := s.Score(p, job)
			assert.GreaterOrEqual(t, score.Composite, 0.0)
			assert.LessOrEqual(t, score.Composite, 1.0)
			for dim, v := range score.Breakdown.Map() {
				assert.GreaterOrEqual(t, v, 0.0, dim)
				assert.LessOrEqual(t, v, 1.0, dim)
			}
		}
	}
}

func TestScoreWithoutMatcher(t *testing.T) {
	t.Parallel()

	s, err := NewScorer(nil, Weights{})
	require.NoError(t, err)

	assert.Zero(t, s.Score(&jobs.CandidateProfile{Skills: []string{"Go"}}, referenceJob()).Breakdown.Skills)
}

func TestSubScorers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, EducationScore(8, 0), "missing reference")
	assert.Equal(t, 1.0, EducationScore(0, 1), "candidate clamps to 1")

	assert.Equal(t, 1.0, ExperienceScore(0, 0))
	assert.Equal(t, 1.0, ExperienceScore(7, 5))
	assert.Equal(t, 0.0, ExperienceScore(-2, 5))
	assert.InDelta(t, 0.25, ExperienceScore(1, 4), 1e-9)
	assert.Equal(t, 1.0, ExperienceScore(math.Inf(1), 4))

	assert.Equal(t, 0.0, ScaleScore(0, 7))
	assert.Equal(t, 0.0, ScaleScore(-1, 10))
	assert.Equal(t, 1.0, ScaleScore(3.5, 3.5))

	assert.Equal(t, 0.0, VectorScore(map[string]float64{"a": 1}, nil))
	assert.InDelta(t, 1-4.0/7.0, VectorScore(nil, map[string]float64{"a": 4}), 1e-9)

	assert.Equal(t, 1.0, InterestScore(jobs.Interests{}, jobs.Interests{}))
}
