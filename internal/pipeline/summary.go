package pipeline

import (
	"time"

	"podarchive/internal/archive"
	"podarchive/internal/episode"
)

// Outcome extends archive outcomes with run-level states.
type Outcome string

const (
	// OutcomeSkipped means the ledger already held the episode.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed means the episode was not archived this run.
	OutcomeFailed Outcome = "failed"
)

// Outcomes lists every outcome in display order.
var Outcomes = []Outcome{
	Outcome(archive.OutcomeDownloaded),
	Outcome(archive.OutcomeDisambiguated),
	Outcome(archive.OutcomeCollapsed),
	Outcome(archive.OutcomeExisting),
	OutcomeSkipped,
	OutcomeFailed,
}

// Result is the per-episode record of a run.
type Result struct {
	Episode     episode.Episode
	Outcome     Outcome
	Entry       archive.Entry
	Err         error
	SnapshotErr error
}

// Summary aggregates a run.
type Summary struct {
	RunID          string
	Started        time.Time
	Finished       time.Time
	FeedsAttempted int
	Results        []Result
}

// Count returns how many episodes ended with outcome.
func (s Summary) Count(outcome Outcome) int {
	n := 0
	for _, r := range s.Results {
		if r.Outcome == outcome {
			n++
		}
	}
	return n
}

// Failed returns the number of failed episodes.
func (s Summary) Failed() int {
	return s.Count(OutcomeFailed)
}

// Failures returns the failed results in run order.
func (s Summary) Failures() []Result {
	var out []Result
	for _, r := range s.Results {
		if r.Outcome == OutcomeFailed {
			out = append(out, r)
		}
	}
	return out
}

// SnapshotFailures counts episodes whose feed snapshot could not be stored.
func (s Summary) SnapshotFailures() int {
	n := 0
	for _, r := range s.Results {
		if r.SnapshotErr != nil {
			n++
		}
	}
	return n
}
