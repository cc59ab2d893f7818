package taxonomy

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/hh-ranker/internal/similarity"
	"github.com/spigell/hh-ranker/internal/utils"
)

// Scores assigned by each precedence level of MatchScore.
const (
	ExactScore     = 1.0
	AliasScore     = 0.95
	SubstringScore = 0.8
)

// Preset is a named fuzzy threshold.
type Preset string

const (
	PresetStrict  Preset = "strict"
	PresetDefault Preset = "default"
	PresetLenient Preset = "lenient"
)

var presetThresholds = map[Preset]float64{
	PresetStrict:  0.85,
	PresetDefault: 0.75,
	PresetLenient: 0.65,
}

var ErrInvalidThreshold = errors.New("invalid fuzzy threshold")

// Threshold returns the fuzzy threshold of a preset. An empty preset is the default one.
func (p Preset) Threshold() (float64, error) {
	if p == "" {
		p = PresetDefault
	}
	th, ok := presetThresholds[Preset(strings.ToLower(string(p)))]
	if !ok {
		return 0, fmt.Errorf("%w: unknown preset %q", ErrInvalidThreshold, p)
	}
	return th, nil
}

// MatchKind tells which rule produced a match.
type MatchKind string

const (
	MatchNone      MatchKind = "none"
	MatchExact     MatchKind = "exact"
	MatchAlias     MatchKind = "alias"
	MatchSubstring MatchKind = "substring"
	MatchFuzzy     MatchKind = "fuzzy"
)

// RequirementMatch records the best user skill found for a requirement.
type RequirementMatch struct {
	Requirement string
	Skill       string
	Kind        MatchKind
	Score       float64
}

// Pair is one (profile skills, job requirements) unit for batch scoring.
type Pair struct {
	Skills       []string
	Requirements []string
}

// Matcher scores skills against requirements. It keeps no mutable state of
// its own; the similarity engine cache is the only shared state.
type Matcher struct {
	taxonomy  *Taxonomy
	sim       *similarity.Engine
	threshold float64
	workers   int
	logger    *zap.Logger
}

// NewMatcher creates a matcher. threshold must be in (0, 1].
func NewMatcher(tax *Taxonomy, sim *similarity.Engine, threshold float64, logger *zap.Logger) (*Matcher, error) {
	if math.IsNaN(threshold) || threshold <= 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidThreshold, threshold)
	}
	if sim == nil {
		return nil, fmt.Errorf("similarity engine is required")
	}
	if tax == nil {
		tax = &Taxonomy{skills: map[string]Skill{}, terms: map[string]string{}}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Matcher{
		taxonomy:  tax,
		sim:       sim,
		threshold: threshold,
		workers:   runtime.GOMAXPROCS(0),
		logger:    logger,
	}, nil
}

func (m *Matcher) Threshold() float64 { return m.threshold }

func (m *Matcher) Taxonomy() *Taxonomy { return m.taxonomy }

// MatchScore scores a single user skill against a requirement.
func (m *Matcher) MatchScore(userSkill, requirement string) float64 {
	score, _ := m.match(userSkill, requirement)
	return score
}

func (m *Matcher) match(userSkill, requirement string) (float64, MatchKind) {
	u := utils.NormalizeKey(userSkill)
	r := utils.NormalizeKey(requirement)
	if u == "" || r == "" {
		return 0, MatchNone
	}

	if u == r {
		return ExactScore, MatchExact
	}
	if m.taxonomy.SameGroup(u, r) {
		return AliasScore, MatchAlias
	}
	if strings.Contains(u, r) || strings.Contains(r, u) {
		return SubstringScore, MatchSubstring
	}
	if score := m.sim.Similarity(u, r); score >= m.threshold {
		return score, MatchFuzzy
	}

	return 0, MatchNone
}

// BestMatches returns, for every requirement, the highest scoring user skill.
func (m *Matcher) BestMatches(userSkills, requirements []string) []RequirementMatch {
	out := make([]RequirementMatch, 0, len(requirements))

	for _, req := range requirements {
		best := RequirementMatch{Requirement: req, Kind: MatchNone}
		for _, skill := range userSkills {
			score, kind := m.match(skill, req)
			if score > best.Score {
				best.Skill, best.Kind, best.Score = skill, kind, score
			}
			if best.Score == ExactScore {
				break
			}
		}
		out = append(out, best)
	}

	return out
}

// ProfileMatchScore is the mean over requirements of the best match score
// against any user skill. Empty inputs score 0.
func (m *Matcher) ProfileMatchScore(userSkills, requirements []string) float64 {
	if len(userSkills) == 0 || len(requirements) == 0 {
		return 0
	}

	var total float64
	for _, match := range m.BestMatches(userSkills, requirements) {
		total += match.Score
	}

	return utils.Clamp(total/float64(len(requirements)), 0, 1)
}

// BatchProfileMatch scores many pairs concurrently. On cancellation the
// scores computed so far are returned with the context error; unscored pairs
// are left at 0.
func (m *Matcher) BatchProfileMatch(ctx context.Context, pairs []Pair) ([]float64, error) {
	scores := make([]float64, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)

	for i := range pairs {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			scores[i] = m.ProfileMatchScore(pairs[i].Skills, pairs[i].Requirements)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		m.logger.Debug("batch profile match interrupted", zap.Error(err), zap.Int("pairs", len(pairs)))
		return scores, err
	}

	return scores, ctx.Err()
}
