package jobs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadProfile(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "profile.yaml", `skills: [Swift, SwiftUI]
education_level: "8"
experience_years: 4.5
work_activities:
  "4.A.3.b.1": 5
interests:
  investigative: 6
  artistic: "3.5"
abilities:
  "1.A.1.a.1": 4
`)

	profile, err := LoadProfile(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Swift", "SwiftUI"}, profile.Skills)
	assert.Equal(t, 8, profile.EducationLevel)
	assert.Equal(t, 4.5, profile.ExperienceYears)
	assert.Equal(t, map[string]float64{"4.A.3.b.1": 5}, profile.WorkActivities)
	assert.Equal(t, Interests{Investigative: 6, Artistic: 3.5}, profile.Interests)
	assert.Equal(t, [6]float64{0, 6, 3.5, 0, 0, 0}, profile.Interests.Values())
	assert.Equal(t, 4.0, profile.Abilities["1.A.1.a.1"])
}

func TestLoadProfileEmptyFile(t *testing.T) {
	t.Parallel()

	profile, err := LoadProfile(writeFile(t, "profile.yaml", ""))
	require.NoError(t, err)
	assert.Empty(t, profile.Skills)
}

func TestLoadJobsJSON(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "jobs.json", `{"jobs": [
  {"id": "ios-1", "title": "iOS Engineer", "requirements": ["Swift", "SwiftUI"], "occupation_code": "15-1252.00", "education_level": 8},
  {"id": "ops-1", "requirements": ["Kubernetes"], "experience_years": "3"}
]}`)

	list, err := LoadJobs(path)
	require.NoError(t, err)
	require.Equal(t, 2, list.Len())

	assert.Equal(t, []string{"ios-1", "ops-1"}, list.IDs())
	assert.Equal(t, "15-1252.00", list.FindByID("ios-1").OccupationCode)
	assert.Equal(t, 3.0, list.FindByID("ops-1").ExperienceYears)
	assert.Nil(t, list.FindByID("missing"))
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	_, err := LoadJobs(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = LoadJobs(writeFile(t, "jobs.yaml", "jobs: [[["))
	require.Error(t, err)

	_, err = LoadProfile(writeFile(t, "profile.yaml", "education_level: senior"))
	require.Error(t, err)
}

func TestJobsExcludeAndDedupe(t *testing.T) {
	t.Parallel()

	list := &Jobs{Items: []JobReference{{ID: "a"}, {ID: "b"}, {ID: ""}, {ID: "a"}, {ID: "c"}}}

	assert.Equal(t, []string{"", "a"}, list.Dedupe())
	assert.Equal(t, []string{"a", "b", "c"}, list.IDs())

	assert.Equal(t, []string{"b"}, list.Exclude([]string{"b", "zzz"}))
	assert.Equal(t, []string{"a", "c"}, list.IDs())

	assert.Nil(t, list.Exclude(nil))
}

func TestExcludedJobsRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "exclude.json")

	excluded, err := GetExcludedJobsFromFile(path)
	require.NoError(t, err)
	assert.Empty(t, excluded.Items)

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	excluded.Add("ios-1", "rejected", at)
	excluded.Append(&ExcludedJobs{Items: []*ExcludedJob{{ID: "ops-1"}}})
	require.NoError(t, excluded.ToFile(path))

	loaded, err := GetExcludedJobsFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"ios-1", "ops-1"}, loaded.IDs())
	assert.Equal(t, at, loaded.Items[0].ExcludedAt)

	// shorter content must fully replace the previous file
	require.NoError(t, (&ExcludedJobs{}).ToFile(path))
	loaded, err = GetExcludedJobsFromFile(path)
	require.NoError(t, err)
	assert.Empty(t, loaded.Items)
}
