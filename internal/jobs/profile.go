// Package jobs holds the candidate profile and job reference models consumed
// by the ranking engine, plus file helpers used by the CLI.
package jobs

const (
	// ScaleMax is the upper bound of the occupational 0-7 scales.
	ScaleMax = 7.0

	MinEducationLevel = 1
	MaxEducationLevel = 12
)

// Interests is a RIASEC interest profile, each value on the 0-7 scale.
type Interests struct {
	Realistic     float64 `json:"realistic" mapstructure:"realistic"`
	Investigative float64 `json:"investigative" mapstructure:"investigative"`
	Artistic      float64 `json:"artistic" mapstructure:"artistic"`
	Social        float64 `json:"social" mapstructure:"social"`
	Enterprising  float64 `json:"enterprising" mapstructure:"enterprising"`
	Conventional  float64 `json:"conventional" mapstructure:"conventional"`
}

// Values returns the interests in RIASEC order.
func (i Interests) Values() [6]float64 {
	return [6]float64{i.Realistic, i.Investigative, i.Artistic, i.Social, i.Enterprising, i.Conventional}
}

// CandidateProfile is a normalized, ready-to-score candidate.
type CandidateProfile struct {
	Skills          []string           `json:"skills" mapstructure:"skills"`
	EducationLevel  int                `json:"education_level" mapstructure:"education_level"`
	ExperienceYears float64            `json:"experience_years" mapstructure:"experience_years"`
	WorkActivities  map[string]float64 `json:"work_activities,omitempty" mapstructure:"work_activities"`
	Interests       Interests          `json:"interests" mapstructure:"interests"`
	Abilities       map[string]float64 `json:"abilities,omitempty" mapstructure:"abilities"`
}
