package jobs

// JobReference is a job posting resolved against the occupational reference data.
type JobReference struct {
	ID              string             `json:"id" mapstructure:"id"`
	Title           string             `json:"title,omitempty" mapstructure:"title"`
	Requirements    []string           `json:"requirements" mapstructure:"requirements"`
	OccupationCode  string             `json:"occupation_code,omitempty" mapstructure:"occupation_code"`
	EducationLevel  int                `json:"education_level" mapstructure:"education_level"`
	ExperienceYears float64            `json:"experience_years" mapstructure:"experience_years"`
	WorkActivities  map[string]float64 `json:"work_activities,omitempty" mapstructure:"work_activities"`
	Interests       Interests          `json:"interests" mapstructure:"interests"`
	Abilities       map[string]float64 `json:"abilities,omitempty" mapstructure:"abilities"`
}

type Jobs struct {
	Items []JobReference
}

func (j *Jobs) Len() int {
	return len(j.Items)
}

func (j *Jobs) FindByID(id string) *JobReference {
	for i := range j.Items {
		if j.Items[i].ID == id {
			return &j.Items[i]
		}
	}
	return nil
}

func (j *Jobs) IDs() []string {
	ids := make([]string, 0, len(j.Items))
	for _, job := range j.Items {
		ids = append(ids, job.ID)
	}
	return ids
}

// Exclude removes jobs whose id is in targets, preserving order, and returns
// the removed ids.
func (j *Jobs) Exclude(targets []string) []string {
	if len(targets) == 0 {
		return nil
	}

	drop := make(map[string]struct{}, len(targets))
	for _, id := range targets {
		drop[id] = struct{}{}
	}

	var excluded []string
	kept := j.Items[:0]
	for _, job := range j.Items {
		if _, ok := drop[job.ID]; ok {
			excluded = append(excluded, job.ID)
			continue
		}
		kept = append(kept, job)
	}
	j.Items = kept

	return excluded
}

// Dedupe keeps the first job of every id and drops jobs without one. It
// returns the removed ids (an empty string stands for a job without id).
func (j *Jobs) Dedupe() []string {
	seen := make(map[string]struct{}, len(j.Items))

	var removed []string
	kept := j.Items[:0]
	for _, job := range j.Items {
		if job.ID == "" {
			removed = append(removed, "")
			continue
		}
		if _, ok := seen[job.ID]; ok {
			removed = append(removed, job.ID)
			continue
		}
		seen[job.ID] = struct{}{}
		kept = append(kept, job)
	}
	j.Items = kept

	return removed
}
