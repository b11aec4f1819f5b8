package build

import (
	"fmt"
	"time"
)

// State names the orchestrator's run phases.
type State string

const (
	StateIdle        State = "idle"
	StateCleaning    State = "cleaning"
	StateValidating  State = "validating"
	StateScheduling  State = "scheduling"
	StateExecuting   State = "executing"
	StateAggregating State = "aggregating"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// Result is the outcome of one task: an artifact path on success, the
// causing error on failure.
type Result struct {
	Task     Task
	Artifact string
	Err      error
	Skipped  bool
	Attempts int
	Duration time.Duration
}

// Summary aggregates one run.
type Summary struct {
	RunID    string
	State    State
	Results  []Result
	Duration time.Duration
}

// Succeeded counts successful tasks.
func (s *Summary) Succeeded() int {
	n := 0
	for _, r := range s.Results {
		if r.Err == nil {
			n++
		}
	}
	return n
}

// Failed counts failed (including skipped) tasks.
func (s *Summary) Failed() int {
	return len(s.Results) - s.Succeeded()
}

// Failures returns the failed results.
func (s *Summary) Failures() []Result {
	var out []Result
	for _, r := range s.Results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// String renders the one-line run summary.
func (s *Summary) String() string {
	return fmt.Sprintf("%d/%d tasks succeeded", s.Succeeded(), len(s.Results))
}
