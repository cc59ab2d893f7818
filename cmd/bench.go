package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/hh-ranker/internal/bandit"
	"github.com/spigell/hh-ranker/internal/jobs"
	"github.com/spigell/hh-ranker/internal/logger"
	"github.com/spigell/hh-ranker/internal/ranking"
)

// convergenceRate is the share of exploration rankings in which the job with
// a 9:1 accept history must beat the job with a 1:9 history.
const convergenceRate = 0.9

var benchVocabulary = []string{
	"Go", "Golang", "Kubernetes", "Docker", "PostgreSQL", "Redis", "Kafka",
	"Swift", "SwiftUI", "Kotlin", "Java", "Python", "TypeScript", "React",
	"Terraform", "AWS", "GCP", "Linux", "gRPC", "GraphQL", "Prometheus",
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure ranking latency on synthetic jobs",
	Run: func(cmd *cobra.Command, _ []string) {
		bench(cmd)
	},
}

func init() {
	rootCmd.AddCommand(benchCmd)

	benchCmd.Flags().Int("jobs", 100, "number of synthetic jobs per ranking call")
	benchCmd.Flags().Int("iterations", 1000, "number of ranking calls")
	benchCmd.Flags().Uint64("bench-seed", 1, "seed for synthetic data and sampling")
	benchCmd.Flags().Bool("explore", true, "rank with posterior sampling")
	benchCmd.Flags().Bool("convergence", false, "also check that feedback moves rankings in the expected direction")
	benchCmd.Flags().Bool("metrics", false, "print the engine metrics after the run")
}

func bench(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	// Benchmarks never touch persisted feedback.
	config.StateFile = ""

	count, _ := cmd.Flags().GetInt("jobs")
	iterations, _ := cmd.Flags().GetInt("iterations")
	seed, _ := cmd.Flags().GetUint64("bench-seed")
	explore, _ := cmd.Flags().GetBool("explore")
	convergence, _ := cmd.Flags().GetBool("convergence")
	printMetrics, _ := cmd.Flags().GetBool("metrics")

	rng := rand.New(rand.NewPCG(seed, seed+1))
	profile := syntheticProfile(rng)
	list := syntheticJobs(rng, count)

	engine, err := newEngine(ctx, config, logger, ranking.Deps{Random: rand.NewPCG(seed, seed+2)})
	if err != nil {
		logger.Fatal("creating the ranking engine", zap.Error(err))
	}

	logger.Info("starting the benchmark",
		zap.Int("jobs", count),
		zap.Int("iterations", iterations),
		zap.Bool("explore", explore),
		zap.Duration("budget", config.Ranking.Budget),
	)

	partial := 0
	for range iterations {
		if engine.Rank(ctx, profile, list, explore).Partial {
			partial++
		}
	}

	out := cmd.OutOrStdout()
	if err := printBench(out, engine.Stats(), config.Ranking.Budget, partial); err != nil {
		logger.Fatal("printing results", zap.Error(err))
	}

	if convergence {
		wins, total, err := checkConvergence(ctx, config, logger, seed)
		if err != nil {
			logger.Fatal("running the convergence check", zap.Error(err))
		}

		line := fmt.Sprintf("convergence: preferred job ranked first in %d of %d explore rankings\n", wins, total)
		if float64(wins) < convergenceRate*float64(total) {
			warnColor.Fprint(out, line)
			logger.Fatal("convergence check failed", zap.Int("wins", wins), zap.Int("total", total))
		}
		okColor.Fprint(out, line)
	}

	if printMetrics {
		if err := writeMetrics(out, engine); err != nil {
			logger.Fatal("writing metrics", zap.Error(err))
		}
	}
}

func printBench(w io.Writer, stats ranking.Stats, budget time.Duration, partial int) error {
	table := newTable(w, []string{"metric", "value"})
	rows := [][]string{
		{"calls", strconv.FormatInt(stats.Latency.Calls, 10)},
		{"p50", stats.Latency.P50.String()},
		{"p95", stats.Latency.P95.String()},
		{"max", stats.Latency.Max.String()},
		{"budget", budget.String()},
		{"budget violations", strconv.FormatInt(stats.Latency.Violations, 10)},
		{"partial rankings", strconv.Itoa(partial)},
		{"cache hit rate", formatScore(stats.Cache.HitRate())},
		{"cache entries", strconv.Itoa(stats.Cache.Size)},
	}
	if err := table.Bulk(rows); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if budget > 0 && stats.Latency.P95 > budget {
		warnColor.Fprintf(w, "p95 %s is over the %s budget\n", stats.Latency.P95, budget)
		return nil
	}
	okColor.Fprintf(w, "p95 %s is within the %s budget\n", stats.Latency.P95, budget)
	return nil
}

// checkConvergence ranks two jobs of identical fit after 9:1 and 1:9 feedback
// and counts how often the preferred one comes first.
func checkConvergence(ctx context.Context, config *Config, logger *zap.Logger, seed uint64) (int, int, error) {
	const total = 1000

	engine, err := newEngine(ctx, config, logger, ranking.Deps{Random: rand.NewPCG(seed, seed+3)})
	if err != nil {
		return 0, 0, err
	}

	list := []jobs.JobReference{
		{ID: "preferred", Requirements: []string{"Go"}},
		{ID: "avoided", Requirements: []string{"Go"}},
	}
	record := func(id string, accepts, rejects int) {
		for range accepts {
			engine.RecordFeedback(bandit.Feedback{JobID: id, Outcome: bandit.OutcomeAccept})
		}
		for range rejects {
			engine.RecordFeedback(bandit.Feedback{JobID: id, Outcome: bandit.OutcomeReject})
		}
	}
	record("preferred", 9, 1)
	record("avoided", 1, 9)

	profile := &jobs.CandidateProfile{Skills: []string{"Go"}}
	wins := 0
	for range total {
		r := engine.Rank(ctx, profile, list, true)
		if r.Len() > 0 && r.Results[0].JobID == "preferred" {
			wins++
		}
	}

	return wins, total, nil
}

func writeMetrics(w io.Writer, engine *ranking.Engine) error {
	families, err := engine.Registry().Gather()
	if err != nil {
		return err
	}

	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

func syntheticProfile(rng *rand.Rand) *jobs.CandidateProfile {
	return &jobs.CandidateProfile{
		Skills:          pickSkills(rng, 6),
		EducationLevel:  1 + rng.IntN(jobs.MaxEducationLevel),
		ExperienceYears: float64(rng.IntN(15)),
		WorkActivities:  syntheticVector(rng, "4.A.", 8),
		Interests:       syntheticInterests(rng),
		Abilities:       syntheticVector(rng, "1.A.", 8),
	}
}

func syntheticJobs(rng *rand.Rand, n int) []jobs.JobReference {
	list := make([]jobs.JobReference, 0, n)
	for i := range n {
		list = append(list, jobs.JobReference{
			ID:              fmt.Sprintf("job-%05d", i),
			Title:           fmt.Sprintf("Synthetic job %d", i),
			Requirements:    pickSkills(rng, 2+rng.IntN(5)),
			EducationLevel:  1 + rng.IntN(jobs.MaxEducationLevel),
			ExperienceYears: float64(rng.IntN(10)),
			WorkActivities:  syntheticVector(rng, "4.A.", 8),
			Interests:       syntheticInterests(rng),
			Abilities:       syntheticVector(rng, "1.A.", 8),
		})
	}
	return list
}

func pickSkills(rng *rand.Rand, n int) []string {
	skills := make([]string, 0, n)
	for _, idx := range rng.Perm(len(benchVocabulary))[:min(n, len(benchVocabulary))] {
		skills = append(skills, benchVocabulary[idx])
	}
	return skills
}

func syntheticVector(rng *rand.Rand, prefix string, n int) map[string]float64 {
	v := make(map[string]float64, n)
	for i := range n {
		v[prefix+strconv.Itoa(i)] = rng.Float64() * jobs.ScaleMax
	}
	return v
}

func syntheticInterests(rng *rand.Rand) jobs.Interests {
	return jobs.Interests{
		Realistic:     rng.Float64() * jobs.ScaleMax,
		Investigative: rng.Float64() * jobs.ScaleMax,
		Artistic:      rng.Float64() * jobs.ScaleMax,
		Social:        rng.Float64() * jobs.ScaleMax,
		Enterprising:  rng.Float64() * jobs.ScaleMax,
		Conventional:  rng.Float64() * jobs.ScaleMax,
	}
}
