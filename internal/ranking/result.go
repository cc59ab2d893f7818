package ranking

import (
	"cmp"
	"slices"
	"time"

	"github.com/spigell/hh-ranker/internal/fit"
)

// Result is one ranked job.
type Result struct {
	JobID string `json:"job_id"`
	Title string `json:"title,omitempty"`
	// Rank is the 1-based position in the ranking.
	Rank int `json:"rank"`
	// Score is the blended value used for ordering, in [0, 1].
	Score float64 `json:"score"`
	// Fit is the composite fit score and Breakdown its six components.
	Fit       float64       `json:"fit"`
	Breakdown fit.Breakdown `json:"breakdown"`
	// Bandit is the posterior sample (exploration) or posterior mean.
	Bandit float64 `json:"bandit"`
}

// Ranking is the outcome of one Rank or Rerank call.
type Ranking struct {
	RequestID   string        `json:"request_id"`
	Results     []Result      `json:"results"`
	Exploration bool          `json:"exploration"`
	// Partial is set when some jobs were not scored because the call was
	// cancelled or ran out of budget.
	Partial    bool          `json:"partial"`
	Total      int           `json:"total"`
	Scored     int           `json:"scored"`
	Elapsed    time.Duration `json:"elapsed"`
	OverBudget bool          `json:"over_budget"`
}

// Len returns the number of ranked results.
func (r *Ranking) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Results)
}

// Top returns up to n best results.
func (r *Ranking) Top(n int) []Result {
	if r == nil || n <= 0 {
		return nil
	}
	return r.Results[:min(n, len(r.Results))]
}

// Find returns the result for a job id.
func (r *Ranking) Find(jobID string) (Result, bool) {
	if r == nil {
		return Result{}, false
	}
	for _, res := range r.Results {
		if res.JobID == jobID {
			return res, true
		}
	}
	return Result{}, false
}

// IDs returns job ids in rank order.
func (r *Ranking) IDs() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, 0, len(r.Results))
	for _, res := range r.Results {
		ids = append(ids, res.JobID)
	}
	return ids
}

// compareResults orders by score descending, then job id ascending.
func compareResults(a, b Result) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	return cmp.Compare(a.JobID, b.JobID)
}

func sortResults(results []Result) {
	slices.SortStableFunc(results, compareResults)
}

// mergeSorted merges two lists already ordered by compareResults.
func mergeSorted(a, b []Result) []Result {
	out := make([]Result, 0, len(a)+len(b))

	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if compareResults(b[j], a[i]) < 0 {
			out = append(out, b[j])
			j++
			continue
		}
		out = append(out, a[i])
		i++
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

func assignRanks(results []Result) {
	for i := range results {
		results[i].Rank = i + 1
	}
}
