package cmd

import (
	"errors"
	"log"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/hh-ranker/internal/filtering"
	"github.com/spigell/hh-ranker/internal/ranking"
)

const (
	app       = "hh-ranker"
	envPrefix = "HH_RANKER"
)

type Config struct {
	TaxonomyFile string `mapstructure:"taxonomy-file"`
	ProfileFile  string `mapstructure:"profile-file"`
	JobsFile     string `mapstructure:"jobs-file"`
	StateFile    string `mapstructure:"state-file"`
	ExcludeFile  string `mapstructure:"exclude-file"`

	Ranking  *RankingConfig    `mapstructure:"ranking"`
	Matching *MatchingConfig   `mapstructure:"matching"`
	Filters  *filtering.Config `mapstructure:"filters"`
	Feedback *FeedbackConfig   `mapstructure:"feedback"`
}

type RankingConfig struct {
	ranking.Config `mapstructure:",squash"`

	Exploration bool   `mapstructure:"exploration"`
	Seed        uint64 `mapstructure:"seed"`
	Top         int    `mapstructure:"top"`
}

type MatchingConfig struct {
	Preset string `mapstructure:"preset"`
	// Threshold overrides the preset when set.
	Threshold float64 `mapstructure:"threshold"`
}

type FeedbackConfig struct {
	// Rate is the number of feedback events applied per second. Zero means unlimited.
	Rate  float64 `mapstructure:"rate"`
	Burst int     `mapstructure:"burst"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "hh-ranker ranks job postings for a candidate and learns from accept/reject feedback",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is hh-ranker.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("taxonomy-file", "", "skill taxonomy file (yaml or json)")
	rootCmd.PersistentFlags().String("state-file", "", "file with persisted bandit arm states")
	rootCmd.PersistentFlags().StringP("exclude-file", "e", "", "special file with jobs to exclude. Default is unset.")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("taxonomy-file", rootCmd.PersistentFlags().Lookup("taxonomy-file"))
	viper.BindPFlag("state-file", rootCmd.PersistentFlags().Lookup("state-file"))
	viper.BindPFlag("exclude-file", rootCmd.PersistentFlags().Lookup("exclude-file"))

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	setDefaults()
}

func setDefaults() {
	def := ranking.DefaultConfig()

	viper.SetDefault("ranking.blend-fit", def.BlendFit)
	viper.SetDefault("ranking.blend-bandit", def.BlendBandit)
	viper.SetDefault("ranking.workers", def.Workers)
	viper.SetDefault("ranking.budget", def.Budget)
	viper.SetDefault("ranking.latency-window", def.LatencyWindow)
	viper.SetDefault("ranking.similarity.capacity", def.Similarity.Capacity)
	viper.SetDefault("ranking.similarity.shards", def.Similarity.Shards)
	viper.SetDefault("ranking.top", 20)
	viper.SetDefault("matching.preset", "default")
	viper.SetDefault("feedback.rate", 100)
	viper.SetDefault("feedback.burst", 10)
}

func initConfig() {
	// The version command works without a config.
	if versionCmd.CalledAs() != "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// A missing default config is fine: flags, env and defaults still apply.
	// A config that fails to parse is not.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	config := &Config{
		Ranking:  &RankingConfig{Config: ranking.DefaultConfig()},
		Matching: &MatchingConfig{},
		Filters:  &filtering.Config{},
		Feedback: &FeedbackConfig{},
	}

	if err := viper.Unmarshal(config); err != nil {
		return config, err
	}

	if config.Filters.ExcludeFile == "" {
		config.Filters.ExcludeFile = config.ExcludeFile
	}

	return config, nil
}
