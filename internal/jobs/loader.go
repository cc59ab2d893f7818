package jobs

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// LoadProfile reads a candidate profile from a YAML or JSON file. Numeric
// fields may be given as strings.
func LoadProfile(path string) (*CandidateProfile, error) {
	raw, err := readDocument(path)
	if err != nil {
		return nil, err
	}

	var profile CandidateProfile
	if err := decode(raw, &profile); err != nil {
		return nil, fmt.Errorf("decoding profile %q: %w", path, err)
	}

	return &profile, nil
}

// LoadJobs reads job references from a YAML or JSON file with a top-level
// "jobs" list.
func LoadJobs(path string) (*Jobs, error) {
	raw, err := readDocument(path)
	if err != nil {
		return nil, err
	}

	var doc struct {
		Jobs []JobReference `mapstructure:"jobs"`
	}
	if err := decode(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding jobs %q: %w", path, err)
	}

	return &Jobs{Items: doc.Jobs}, nil
}

func readDocument(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %q: %w", path, err)
	}
	if raw == nil {
		raw = map[string]any{}
	}

	return raw, nil
}

func decode(input, result any) error {
	cfg := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           result,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	}

	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}

	return decoder.Decode(input)
}
