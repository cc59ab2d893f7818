package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/hh-ranker/internal/bandit"
	"github.com/spigell/hh-ranker/internal/jobs"
	"github.com/spigell/hh-ranker/internal/logger"
	"github.com/spigell/hh-ranker/internal/ranking"
)

const (
	PromptAccept = "Accept"
	PromptReject = "Reject"
	PromptBack   = "back"
	PromptDone   = "Done"
)

var errDone = errors.New("done")

var feedbackCmd = &cobra.Command{
	Use:   "feedback [JOB_ID accept|reject]",
	Short: "Record accept/reject feedback for jobs",
	Args: func(cmd *cobra.Command, args []string) error {
		interactive, _ := cmd.Flags().GetBool("interactive")
		fromFile, _ := cmd.Flags().GetString("from-file")
		if interactive || fromFile != "" {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(2)(cmd, args)
	},
	Run: func(cmd *cobra.Command, args []string) {
		feedback(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(feedbackCmd)

	feedbackCmd.Flags().BoolP("interactive", "i", false, "pick jobs from the current ranking and rate them one by one")
	feedbackCmd.Flags().String("from-file", "", "json file with a list of feedback events")
	feedbackCmd.Flags().Bool("exclude-rejected", false, "append rejected jobs to the exclude file")
}

func feedback(cmd *cobra.Command, args []string) {
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

	engine, err := newEngine(ctx, config, logger, ranking.Deps{})
	if err != nil {
		logger.Fatal("creating the ranking engine", zap.Error(err))
	}

	interactive, _ := cmd.Flags().GetBool("interactive")
	fromFile, _ := cmd.Flags().GetString("from-file")
	excludeRejected, _ := cmd.Flags().GetBool("exclude-rejected")

	var events []bandit.Feedback
	switch {
	case interactive:
		events, err = collectInteractive(ctx, engine, config, logger)
	case fromFile != "":
		events, err = bandit.LoadFeedbackFile(fromFile)
	default:
		events, err = feedbackFromArgs(args)
	}
	if err != nil {
		logger.Fatal("collecting feedback", zap.Error(err))
	}

	// Interactive feedback is applied as it is given.
	if !interactive {
		ingestor := bandit.NewIngestor(engine, config.Feedback.Rate, config.Feedback.Burst, logger)
		applied, err := ingestor.Ingest(ctx, events)
		if err != nil {
			logger.Error("feedback ingestion interrupted", zap.Error(err), zap.Int("applied", applied))
		}
		logger.Info("feedback applied", zap.Int("applied", applied), zap.Int("received", len(events)))
	}

	if err := saveState(engine, config.StateFile, logger); err != nil {
		logger.Fatal("saving bandit state", zap.Error(err))
	}

	if excludeRejected {
		if err := excludeRejectedJobs(config.ExcludeFile, events, logger); err != nil {
			logger.Fatal("updating the exclude file", zap.Error(err))
		}
	}
}

func feedbackFromArgs(args []string) ([]bandit.Feedback, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("expected JOB_ID and outcome, got %d arguments", len(args))
	}

	jobID := strings.TrimSpace(args[0])
	if jobID == "" {
		return nil, errors.New("job id is required")
	}

	outcome, err := bandit.ParseOutcome(args[1])
	if err != nil {
		return nil, err
	}

	return []bandit.Feedback{{JobID: jobID, Outcome: outcome, At: time.Now()}}, nil
}

// collectInteractive ranks the configured jobs and lets the user rate them
// until done.
func collectInteractive(ctx context.Context, engine *ranking.Engine, config *Config, logger *zap.Logger) ([]bandit.Feedback, error) {
	if config.ProfileFile == "" || config.JobsFile == "" {
		return nil, errors.New("profile-file and jobs-file are required for interactive feedback")
	}

	profile, err := jobs.LoadProfile(config.ProfileFile)
	if err != nil {
		return nil, fmt.Errorf("loading the candidate profile: %w", err)
	}
	list, err := jobs.LoadJobs(config.JobsFile)
	if err != nil {
		return nil, fmt.Errorf("loading jobs: %w", err)
	}
	list.Dedupe()

	var events []bandit.Feedback
	for {
		if list.Len() == 0 {
			logger.Info("no jobs left to rate")
			return events, nil
		}

		result := engine.Rank(ctx, profile, list.Items, config.Ranking.Exploration)

		items := make([]string, 0, result.Len()+1)
		for _, res := range result.Top(config.Ranking.Top) {
			items = append(items, fmt.Sprintf("%s %s / score %s", res.JobID, res.Title, formatScore(res.Score)))
		}

		jobPrompt := promptui.Select{
			Label: "Choose a job and press ENTER",
			Items: append(items, PromptDone),
		}

		_, selected, err := jobPrompt.Run()
		if err != nil {
			return events, err
		}
		if selected == PromptDone {
			return events, nil
		}

		jobID := strings.Split(selected, " ")[0]
		ev, err := rateJob(jobID)
		if errors.Is(err, errDone) {
			continue
		}
		if err != nil {
			return events, err
		}

		state := engine.RecordFeedback(ev)
		events = append(events, ev)
		list.Exclude([]string{jobID})

		logger.Info("feedback recorded",
			zap.String("job_id", jobID),
			zap.String("outcome", string(ev.Outcome)),
			zap.Float64("posterior_mean", state.Mean()),
		)
	}
}

func rateJob(jobID string) (bandit.Feedback, error) {
	outcomePrompt := promptui.Select{
		Label: fmt.Sprintf("Feedback for %s", jobID),
		Items: []string{PromptAccept, PromptReject, PromptBack},
	}

	_, action, err := outcomePrompt.Run()
	if err != nil {
		return bandit.Feedback{}, err
	}

	switch action {
	case PromptAccept:
		return bandit.Feedback{JobID: jobID, Outcome: bandit.OutcomeAccept, At: time.Now()}, nil
	case PromptReject:
		return bandit.Feedback{JobID: jobID, Outcome: bandit.OutcomeReject, At: time.Now()}, nil
	case PromptBack:
		return bandit.Feedback{}, errDone
	default:
		return bandit.Feedback{}, fmt.Errorf("invalid action: %s", action)
	}
}

func excludeRejectedJobs(path string, events []bandit.Feedback, logger *zap.Logger) error {
	if path == "" {
		return errors.New("exclude-file is not configured")
	}

	excluded, err := jobs.GetExcludedJobsFromFile(path)
	if err != nil {
		return err
	}

	added := 0
	for _, ev := range events {
		if ev.Outcome == bandit.OutcomeReject && ev.JobID != "" {
			excluded.Add(ev.JobID, "rejected", ev.At)
			added++
		}
	}
	if added == 0 {
		return nil
	}

	if err := excluded.ToFile(path); err != nil {
		return err
	}

	logger.Info("appended to exclude file", zap.String("filename", path), zap.Int("jobs", added))
	return nil
}
