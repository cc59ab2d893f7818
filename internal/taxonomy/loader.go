package taxonomy

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader supplies taxonomy skills from some storage. The scoring code only
// sees the resulting Taxonomy.
type Loader interface {
	Load(ctx context.Context) ([]Skill, error)
}

// StaticLoader serves an in-memory skill list.
type StaticLoader []Skill

func (l StaticLoader) Load(context.Context) ([]Skill, error) {
	out := make([]Skill, len(l))
	copy(out, l)
	return out, nil
}

// FileLoader reads a YAML (or JSON) document of the form:
//
//	skills:
//	  - id: swift
//	    name: Swift
//	    aliases: [swift-lang]
type FileLoader struct {
	Path string
}

type document struct {
	Skills []Skill `yaml:"skills"`
}

func (l FileLoader) Load(ctx context.Context) ([]Skill, error) {
	path := strings.TrimSpace(l.Path)
	if path == "" {
		return nil, fmt.Errorf("taxonomy file is not configured")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading taxonomy file %q: %w", path, err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing taxonomy file %q: %w", path, err)
	}

	return doc.Skills, nil
}

// Load builds a taxonomy from the loader.
func Load(ctx context.Context, loader Loader) (*Taxonomy, error) {
	if loader == nil {
		return New()
	}

	skills, err := loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	return New(skills...)
}
