package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/hh-ranker/internal/filtering"
	"github.com/spigell/hh-ranker/internal/jobs"
	"github.com/spigell/hh-ranker/internal/logger"
	"github.com/spigell/hh-ranker/internal/ranking"
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank jobs for the candidate profile",
	Run: func(cmd *cobra.Command, _ []string) {
		rank(cmd)
	},
}

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().StringP("profile-file", "p", "", "candidate profile file (yaml or json)")
	rankCmd.Flags().StringP("jobs-file", "J", "", "jobs file with a top-level jobs list")
	rankCmd.Flags().BoolP("explore", "x", false, "sample bandit posteriors instead of using their means")
	rankCmd.Flags().IntP("top", "n", 20, "number of results to print")
	rankCmd.Flags().StringP("output", "o", outputTable, "output format: table or json")
	rankCmd.Flags().Duration("budget", ranking.DefaultBudget, "latency budget per ranking call")
	rankCmd.Flags().Bool("enforce-budget", false, "return a partial ranking once the budget is spent")
	rankCmd.Flags().BoolP("include-applied", "f", false, "do not exclude jobs that already got an accept")
	rankCmd.Flags().Float64("min-skill-match", 0, "drop jobs whose skill match is below this value")
	rankCmd.Flags().Uint64("seed", 0, "seed for exploration sampling (0 means random)")

	viper.BindPFlag("profile-file", rankCmd.Flags().Lookup("profile-file"))
	viper.BindPFlag("jobs-file", rankCmd.Flags().Lookup("jobs-file"))
	viper.BindPFlag("ranking.exploration", rankCmd.Flags().Lookup("explore"))
	viper.BindPFlag("ranking.top", rankCmd.Flags().Lookup("top"))
	viper.BindPFlag("ranking.budget", rankCmd.Flags().Lookup("budget"))
	viper.BindPFlag("ranking.enforce-budget", rankCmd.Flags().Lookup("enforce-budget"))
	viper.BindPFlag("ranking.seed", rankCmd.Flags().Lookup("seed"))
	viper.BindPFlag("filters.include-applied", rankCmd.Flags().Lookup("include-applied"))
	viper.BindPFlag("filters.min-skill-match", rankCmd.Flags().Lookup("min-skill-match"))
}

// rank is the main command for the cli.
func rank(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the hh-ranker", zap.String("version", version))

	if config.ProfileFile == "" || config.JobsFile == "" {
		logger.Fatal("profile-file and jobs-file are required")
	}

	profile, err := jobs.LoadProfile(config.ProfileFile)
	if err != nil {
		logger.Fatal("loading the candidate profile", zap.Error(err))
	}

	list, err := jobs.LoadJobs(config.JobsFile)
	if err != nil {
		logger.Fatal("loading jobs", zap.Error(err))
	}
	logger.Info("jobs loaded", zap.Int("count", list.Len()))

	engine, err := newEngine(ctx, config, logger, ranking.Deps{})
	if err != nil {
		logger.Fatal("creating the ranking engine", zap.Error(err))
	}

	deps := filtering.Deps{
		Logger:  logger,
		Profile: profile,
		Matcher: engine.Matcher(),
		Arms:    engine.Arms(),
	}

	filtered, err := filtering.Run(ctx, config.Filters, deps, filtering.Default(), list)
	if err != nil {
		logger.Fatal("filtering failed", zap.Error(err))
	}

	if filtered.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no jobs left after filters"))
		return
	}

	result := engine.Rank(ctx, profile, filtered.Items, config.Ranking.Exploration)

	format, _ := cmd.Flags().GetString("output")
	if err := printRanking(cmd.OutOrStdout(), result, config.Ranking.Top, format); err != nil {
		logger.Fatal("printing the ranking", zap.Error(err))
	}

	stats := engine.Stats()
	logger.Debug(fmt.Sprintf("similarity cache hit rate: %.2f", stats.Cache.HitRate()),
		zap.Uint64("hits", stats.Cache.Hits),
		zap.Uint64("misses", stats.Cache.Misses),
	)
}
