package cmd

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/hh-ranker/internal/bandit"
	"github.com/spigell/hh-ranker/internal/ranking"
	"github.com/spigell/hh-ranker/internal/taxonomy"
)

// matchThreshold resolves the fuzzy threshold from an explicit value or a preset.
func matchThreshold(cfg *MatchingConfig) (float64, error) {
	if cfg == nil {
		return taxonomy.PresetDefault.Threshold()
	}
	if cfg.Threshold > 0 {
		return cfg.Threshold, nil
	}

	return taxonomy.Preset(strings.TrimSpace(cfg.Preset)).Threshold()
}

// newEngine builds a ranking engine from the config and restores persisted
// bandit state.
func newEngine(ctx context.Context, config *Config, logger *zap.Logger, deps ranking.Deps) (*ranking.Engine, error) {
	var loader taxonomy.Loader
	if config.TaxonomyFile != "" {
		loader = taxonomy.FileLoader{Path: config.TaxonomyFile}
	}

	tax, err := taxonomy.Load(ctx, loader)
	if err != nil {
		return nil, fmt.Errorf("loading taxonomy: %w", err)
	}
	logger.Info("taxonomy loaded", zap.Int("skills", tax.Len()), zap.String("path", config.TaxonomyFile))

	threshold, err := matchThreshold(config.Matching)
	if err != nil {
		return nil, err
	}

	cfg := config.Ranking.Config
	cfg.MatchThreshold = threshold

	deps.Taxonomy = tax
	deps.Logger = logger
	if deps.Random == nil && config.Ranking.Seed != 0 {
		deps.Random = rand.NewPCG(config.Ranking.Seed, config.Ranking.Seed)
	}

	engine, err := ranking.New(cfg, deps)
	if err != nil {
		return nil, err
	}

	if err := restoreState(engine, config.StateFile, logger); err != nil {
		return nil, err
	}

	return engine, nil
}

func restoreState(engine *ranking.Engine, path string, logger *zap.Logger) error {
	if path == "" {
		return nil
	}

	states, err := bandit.LoadFile(path)
	if err != nil {
		return fmt.Errorf("loading bandit state from %q: %w", path, err)
	}

	repaired := engine.Arms().Restore(states)
	logger.Info("bandit state restored",
		zap.String("path", path),
		zap.Int("arms", len(states)),
		zap.Int("repaired", repaired),
	)
	return nil
}

func saveState(engine *ranking.Engine, path string, logger *zap.Logger) error {
	if path == "" {
		logger.Warn("bandit state is not persisted", zap.String("hint", "set state-file to keep feedback between runs"))
		return nil
	}

	arms := engine.Arms().Snapshot()
	if err := bandit.SaveFile(path, arms); err != nil {
		return fmt.Errorf("saving bandit state to %q: %w", path, err)
	}

	logger.Info("bandit state saved", zap.String("path", path), zap.Int("arms", len(arms)))
	return nil
}
