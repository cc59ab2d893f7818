package bandit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Outcome is the user's reaction to a ranked job.
type Outcome string

const (
	OutcomeAccept Outcome = "accept"
	OutcomeReject Outcome = "reject"
)

func (o Outcome) Success() bool { return o == OutcomeAccept }

// ParseOutcome accepts the outcome names and a few common synonyms.
func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "accept", "accepted", "apply", "applied", "yes", "like":
		return OutcomeAccept, nil
	case "reject", "rejected", "dismiss", "dismissed", "no", "skip":
		return OutcomeReject, nil
	default:
		return "", fmt.Errorf("unknown feedback outcome: %q", s)
	}
}

// Feedback is one accept/reject event for a job.
type Feedback struct {
	JobID   string    `json:"job_id"`
	Outcome Outcome   `json:"outcome"`
	At      time.Time `json:"at"`
}

// Recorder applies a single outcome. Store implements it.
type Recorder interface {
	RecordOutcome(jobID string, success bool) ArmState
}

// Ingestor applies feedback streams to a recorder at a bounded rate.
type Ingestor struct {
	store   Recorder
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewIngestor creates an ingestor. A non-positive perSecond disables limiting.
func NewIngestor(store Recorder, perSecond float64, burst int, logger *zap.Logger) *Ingestor {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Ingestor{
		store:   store,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

// Ingest records events in order. It stops at the first event it cannot
// admit before ctx is done and reports how many were applied.
func (i *Ingestor) Ingest(ctx context.Context, events []Feedback) (int, error) {
	applied := 0
	for _, ev := range events {
		if strings.TrimSpace(ev.JobID) == "" {
			i.logger.Warn("skipping feedback without job id", zap.String("outcome", string(ev.Outcome)))
			continue
		}

		if err := i.limiter.Wait(ctx); err != nil {
			return applied, fmt.Errorf("waiting for feedback slot: %w", err)
		}

		i.store.RecordOutcome(ev.JobID, ev.Outcome.Success())
		applied++
	}

	i.logger.Debug("feedback ingested", zap.Int("applied", applied), zap.Int("received", len(events)))
	return applied, nil
}
