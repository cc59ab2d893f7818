package bandit

import (
	"encoding/json"
	"errors"
	"os"
)

type stateFile struct {
	Arms []ArmState `json:"arms"`
}

// LoadFile reads arm states written by SaveFile. A missing or empty file
// yields no states.
func LoadFile(path string) ([]ArmState, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return nil, nil
	}

	var doc stateFile
	if err := json.NewDecoder(file).Decode(&doc); err != nil {
		return nil, err
	}
	return doc.Arms, nil
}

// SaveFile writes arm states as indented JSON, replacing the file.
func SaveFile(path string, arms []ArmState) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(stateFile{Arms: arms})
}

// LoadFeedbackFile reads a JSON array of feedback events.
func LoadFeedbackFile(path string) ([]Feedback, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var events []Feedback
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, err
	}

	for idx := range events {
		outcome, err := ParseOutcome(string(events[idx].Outcome))
		if err != nil {
			return nil, err
		}
		events[idx].Outcome = outcome
	}
	return events, nil
}
