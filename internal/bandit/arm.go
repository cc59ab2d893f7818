package bandit

import (
	"math"
	"time"
)

// ArmState is the Beta(Alpha, Beta) posterior of one job.
// Alpha is successes+1 and Beta is failures+1, so both stay >= 1.
type ArmState struct {
	JobID     string    `json:"job_id"`
	Alpha     float64   `json:"alpha"`
	Beta      float64   `json:"beta"`
	Trials    int64     `json:"trials"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newArmState(jobID string) ArmState {
	return ArmState{JobID: jobID, Alpha: 1, Beta: 1}
}

// Mean is the posterior mean alpha / (alpha + beta).
func (s ArmState) Mean() float64 {
	return s.Alpha / (s.Alpha + s.Beta)
}

// sanitize repairs states restored from outside sources.
func (s ArmState) sanitize() ArmState {
	if math.IsNaN(s.Alpha) || math.IsInf(s.Alpha, 0) || s.Alpha < 1 {
		s.Alpha = 1
	}
	if math.IsNaN(s.Beta) || math.IsInf(s.Beta, 0) || s.Beta < 1 {
		s.Beta = 1
	}
	if s.Trials < 0 {
		s.Trials = 0
	}
	return s
}
