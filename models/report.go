package models

import "time"

// IterationStatus is the terminal state of one iteration.
type IterationStatus string

const (
	IterationSucceeded IterationStatus = "succeeded"
	IterationFailed    IterationStatus = "failed"
)

// IterationResult records one complete traversal of the step sequence.
// It is mutated only by the step runner and telemetry collector while
// the iteration is live and is frozen once the iteration ends.
type IterationResult struct {
	Index          int             `json:"index"`
	Status         IterationStatus `json:"status"`
	Duration       float64         `json:"duration_seconds"`
	FailedStep     *Step           `json:"failed_step,omitempty"`
	ErrorKind      string          `json:"error_kind,omitempty"`
	Error          string          `json:"error,omitempty"`
	Screenshot     string          `json:"screenshot,omitempty"`
	ConsoleEntries []LogEntry      `json:"console_entries"`
	NetworkEntries []NetworkEntry  `json:"network_entries"`
	MemorySamples  []MemorySample  `json:"memory_samples"`
}

// PeakUsagePercent returns the maximum heap usage observed during the
// iteration. The second return is false when no samples were captured.
func (r *IterationResult) PeakUsagePercent() (float64, bool) {
	if len(r.MemorySamples) == 0 {
		return 0, false
	}
	peak := r.MemorySamples[0].UsagePercent
	for _, s := range r.MemorySamples[1:] {
		if s.UsagePercent > peak {
			peak = s.UsagePercent
		}
	}
	return peak, true
}

// DegradationEvent marks a run whose mean heap usage grew by more than
// the degradation threshold over the previous run.
type DegradationEvent struct {
	RunIndex            int     `json:"run_index"`
	PreviousMeanPercent float64 `json:"previous_mean_percent"`
	CurrentMeanPercent  float64 `json:"current_mean_percent"`
	IncreasePoints      float64 `json:"increase_points"`
}

// Summary holds the derived statistics reporting collaborators need.
type Summary struct {
	SuccessRate     float64 `json:"success_rate"`
	MeanRunTime     float64 `json:"mean_run_time"`
	MinRunTime      float64 `json:"min_run_time"`
	MaxRunTime      float64 `json:"max_run_time"`
	ConsoleErrors   int     `json:"console_errors"`
	ConsoleWarnings int     `json:"console_warnings"`
	NetworkFailures int     `json:"network_failures"`
}

// AggregateReport is the sole artifact handed to reporting
// collaborators. It is built incrementally by the run aggregator and
// immutable once the campaign ends. Field names are stable across
// versions to allow historical comparison.
type AggregateReport struct {
	TargetURL      string             `json:"target_url"`
	StartedAt      time.Time          `json:"started_at"`
	FinishedAt     time.Time          `json:"finished_at"`
	RequestedRuns  int                `json:"requested_runs"`
	TotalRuns      int                `json:"total_runs"`
	SuccessfulRuns int                `json:"successful_runs"`
	FailedRuns     int                `json:"failed_runs"`
	Incomplete     bool               `json:"incomplete"`
	FatalError     string             `json:"fatal_error,omitempty"`
	RunTimes       []float64          `json:"run_times"`
	PeakUsageByRun []float64          `json:"peak_usage_by_run"`
	Degradations   []DegradationEvent `json:"degradations,omitempty"`
	Summary        Summary            `json:"summary"`
	Iterations     []*IterationResult `json:"iterations"`
}
