// Package taxonomy canonicalizes free-text skills against a reference skill
// taxonomy and scores candidate skills against job requirements.
package taxonomy

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/spigell/hh-ranker/internal/utils"
)

var (
	ErrInvalidSkill   = errors.New("invalid skill")
	ErrDuplicateSkill = errors.New("duplicate skill id")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Skill is one canonical entry of the taxonomy.
type Skill struct {
	ID       string   `json:"id" yaml:"id" validate:"required"`
	Name     string   `json:"name" yaml:"name" validate:"required"`
	Category string   `json:"category,omitempty" yaml:"category,omitempty"`
	Aliases  []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	Weight   float64  `json:"weight,omitempty" yaml:"weight,omitempty" validate:"gte=0"`
}

// Taxonomy is an immutable, case-insensitive index of skills by name and alias.
type Taxonomy struct {
	skills map[string]Skill
	// terms maps a normalized name or alias to a skill id
	terms map[string]string
}

// New indexes skills. Every skill must have an id and a name, and ids must be
// unique. When two skills claim the same alias the first one keeps it.
func New(skills ...Skill) (*Taxonomy, error) {
	t := &Taxonomy{
		skills: make(map[string]Skill, len(skills)),
		terms:  make(map[string]string, len(skills)*2),
	}

	for i, skill := range skills {
		if err := validate.Struct(skill); err != nil {
			return nil, fmt.Errorf("%w at index %d: %w", ErrInvalidSkill, i, err)
		}
		if _, ok := t.skills[skill.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSkill, skill.ID)
		}

		t.skills[skill.ID] = skill
		t.addTerm(skill.Name, skill.ID)
		for _, alias := range skill.Aliases {
			t.addTerm(alias, skill.ID)
		}
	}

	return t, nil
}

func (t *Taxonomy) addTerm(term, id string) {
	key := utils.NormalizeKey(term)
	if key == "" {
		return
	}
	if _, taken := t.terms[key]; taken {
		return
	}
	t.terms[key] = id
}

// Canonical resolves a name or alias to its skill.
func (t *Taxonomy) Canonical(term string) (Skill, bool) {
	if t == nil {
		return Skill{}, false
	}
	id, ok := t.terms[utils.NormalizeKey(term)]
	if !ok {
		return Skill{}, false
	}
	return t.skills[id], true
}

// SameGroup reports whether both terms resolve to the same canonical skill.
func (t *Taxonomy) SameGroup(a, b string) bool {
	sa, ok := t.Canonical(a)
	if !ok {
		return false
	}
	sb, ok := t.Canonical(b)
	return ok && sa.ID == sb.ID
}

// Get returns the skill with the given id.
func (t *Taxonomy) Get(id string) (Skill, bool) {
	if t == nil {
		return Skill{}, false
	}
	s, ok := t.skills[id]
	return s, ok
}

// Skills returns all skills ordered by id.
func (t *Taxonomy) Skills() []Skill {
	if t == nil {
		return nil
	}
	out := make([]Skill, 0, len(t.skills))
	for _, s := range t.skills {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (t *Taxonomy) Len() int {
	if t == nil {
		return 0
	}
	return len(t.skills)
}
