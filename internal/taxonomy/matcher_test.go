package taxonomy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/hh-ranker/internal/similarity"
)

func newMatcher(t *testing.T, threshold float64) *Matcher {
	t.Helper()

	tax, err := New(testSkills()...)
	require.NoError(t, err)

	sim, err := similarity.New(similarity.Config{Capacity: 1024})
	require.NoError(t, err)

	m, err := NewMatcher(tax, sim, threshold, zap.NewNop())
	require.NoError(t, err)
	return m
}

func TestPresetThresholds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		preset Preset
		want   float64
	}{
		{PresetStrict, 0.85},
		{PresetDefault, 0.75},
		{PresetLenient, 0.65},
		{"", 0.75},
		{"LENIENT", 0.65},
	}

	for _, tt := range tests {
		got, err := tt.preset.Threshold()
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.preset)
	}

	_, err := Preset("sloppy").Threshold()
	require.ErrorIs(t, err, ErrInvalidThreshold)
}

func TestNewMatcherValidatesThreshold(t *testing.T) {
	t.Parallel()

	sim, err := similarity.New(similarity.DefaultConfig())
	require.NoError(t, err)

	for _, th := range []float64{0, -0.1, 1.01} {
		_, err := NewMatcher(nil, sim, th, nil)
		require.ErrorIs(t, err, ErrInvalidThreshold, th)
	}

	_, err = NewMatcher(nil, nil, 0.75, nil)
	require.Error(t, err)

	m, err := NewMatcher(nil, sim, 1, nil)
	require.NoError(t, err)
	assert.Zero(t, m.Taxonomy().Len())
}

func TestMatchScorePrecedence(t *testing.T) {
	t.Parallel()

	m := newMatcher(t, 0.75)

	tests := []struct {
		name        string
		skill, req  string
		want        float64
		approximate bool
	}{
		{name: "exact ignores case", skill: "swift", req: " Swift ", want: ExactScore},
		{name: "alias group", skill: "k8s", req: "Kubernetes", want: AliasScore},
		{name: "alias to alias", skill: "kube", req: "k8s", want: AliasScore},
		{name: "substring", skill: "Swift", req: "SwiftUI", want: SubstringScore},
		{name: "substring reversed", skill: "PostgreSQL administration", req: "postgresql", want: SubstringScore},
		{name: "fuzzy accepted", skill: "javascrpt", req: "javascript", want: 0.9, approximate: true},
		{name: "fuzzy rejected", skill: "rust", req: "ruby", want: 0},
		{name: "empty skill", skill: "  ", req: "go", want: 0},
		{name: "empty requirement", skill: "go", req: "", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.MatchScore(tt.skill, tt.req)
			if tt.approximate {
				assert.InDelta(t, tt.want, got, 1e-9)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchScoreThresholdPresets(t *testing.T) {
	t.Parallel()

	// "typescript" vs "javascript" is 0.6 similar
	assert.Zero(t, newMatcher(t, 0.65).MatchScore("typescript", "javascript"))

	// "graphqk" vs "graphql" is 1 - 1/7
	assert.InDelta(t, 6.0/7.0, newMatcher(t, 0.85).MatchScore("graphqk", "graphql"), 1e-9)
	assert.Zero(t, newMatcher(t, 0.9).MatchScore("graphqk", "graphql"))
}

func TestProfileMatchScore(t *testing.T) {
	t.Parallel()

	m := newMatcher(t, 0.75)

	got := m.ProfileMatchScore([]string{"Swift", "SwiftUI"}, []string{"Swift", "SwiftUI", "Kubernetes"})
	assert.InDelta(t, 2.0/3.0, got, 1e-9)

	assert.Equal(t, 0.0, m.ProfileMatchScore(nil, []string{"Swift"}))
	assert.Equal(t, 0.0, m.ProfileMatchScore([]string{"Swift"}, nil))
	assert.Equal(t, 0.0, m.ProfileMatchScore(nil, nil))
	assert.Equal(t, 1.0, m.ProfileMatchScore([]string{"swift", "kube"}, []string{"Swift"}))
}

func TestBestMatches(t *testing.T) {
	t.Parallel()

	m := newMatcher(t, 0.75)

	matches := m.BestMatches([]string{"Swift", "kube"}, []string{"SwiftUI", "Kubernetes", "Haskell"})
	require.Len(t, matches, 3)

	assert.Equal(t, RequirementMatch{Requirement: "SwiftUI", Skill: "Swift", Kind: MatchSubstring, Score: SubstringScore}, matches[0])
	assert.Equal(t, RequirementMatch{Requirement: "Kubernetes", Skill: "kube", Kind: MatchAlias, Score: AliasScore}, matches[1])
	assert.Equal(t, RequirementMatch{Requirement: "Haskell", Kind: MatchNone}, matches[2])
}

func TestBatchProfileMatch(t *testing.T) {
	t.Parallel()

	m := newMatcher(t, 0.75)

	pairs := []Pair{
		{Skills: []string{"Swift"}, Requirements: []string{"Swift"}},
		{Skills: []string{"Swift", "SwiftUI"}, Requirements: []string{"Swift", "SwiftUI", "Kubernetes"}},
		{Skills: nil, Requirements: []string{"Go"}},
	}

	scores, err := m.BatchProfileMatch(context.Background(), pairs)
	require.NoError(t, err)
	require.Len(t, scores, 3)
	assert.Equal(t, 1.0, scores[0])
	assert.InDelta(t, 2.0/3.0, scores[1], 1e-9)
	assert.Equal(t, 0.0, scores[2])
}

func TestBatchProfileMatchCancelled(t *testing.T) {
	t.Parallel()

	m := newMatcher(t, 0.75)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	scores, err := m.BatchProfileMatch(ctx, []Pair{{Skills: []string{"Go"}, Requirements: []string{"Go"}}})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []float64{0}, scores)
}
