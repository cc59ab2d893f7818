package jobs

import (
	"encoding/json"
	"errors"
	"os"
	"time"
)

type ExcludedJobs struct {
	Items []*ExcludedJob
}

type ExcludedJob struct {
	ID         string
	Reason     string
	ExcludedAt time.Time
}

// GetExcludedJobsFromFile reads an exclude file. A missing or empty file is
// an empty list.
func GetExcludedJobsFromFile(path string) (*ExcludedJobs, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &ExcludedJobs{}, nil
		}
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &ExcludedJobs{}, nil
	}

	var excluded ExcludedJobs
	if err := json.NewDecoder(file).Decode(&excluded); err != nil {
		return nil, err
	}
	return &excluded, nil
}

func (e *ExcludedJobs) Add(id, reason string, at time.Time) {
	e.Items = append(e.Items, &ExcludedJob{ID: id, Reason: reason, ExcludedAt: at.UTC()})
}

func (e *ExcludedJobs) Append(s *ExcludedJobs) {
	e.Items = append(e.Items, s.Items...)
}

func (e *ExcludedJobs) IDs() []string {
	ids := make([]string, 0, len(e.Items))
	for _, job := range e.Items {
		ids = append(ids, job.ID)
	}
	return ids
}

func (e *ExcludedJobs) ToFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}
