package stage

import (
	"errors"
	"time"
)

// ErrNotStored is returned by a Commit that deliberately stores nothing,
// such as a score at or below the storage threshold.
var ErrNotStored = errors.New("stage: result not stored")

// Outcome is the terminal state of one work key within a run.
type Outcome string

const (
	OutcomeCommitted  Outcome = "committed"
	OutcomeSkipped    Outcome = "skipped"
	OutcomeSuperseded Outcome = "superseded"
	OutcomeDiscarded  Outcome = "discarded"
	OutcomeFailed     Outcome = "failed"
)

// KeyFailure records why one key failed.
type KeyFailure struct {
	Key   string
	Phase string
	Err   error
}

// Report summarizes one stage run.
type Report struct {
	Stage      string
	RunID      string
	Total      int
	Committed  int
	Skipped    int
	Superseded int
	Discarded  int
	Failed     int
	Duration   time.Duration
	Failures   []KeyFailure
}

// Done counts keys that need no further work.
func (r Report) Done() int {
	return r.Committed + r.Skipped + r.Superseded + r.Discarded
}

// Pending counts keys that were never dispatched, typically because the
// run was cancelled.
func (r Report) Pending() int {
	pending := r.Total - r.Done() - r.Failed
	if pending < 0 {
		return 0
	}
	return pending
}

func (r *Report) record(key string, outcome Outcome, phase string, err error) {
	switch outcome {
	case OutcomeCommitted:
		r.Committed++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeSuperseded:
		r.Superseded++
	case OutcomeDiscarded:
		r.Discarded++
	case OutcomeFailed:
		r.Failed++
		r.Failures = append(r.Failures, KeyFailure{Key: key, Phase: phase, Err: err})
	}
}

// Observer receives one callback per finished key.
type Observer interface {
	ObserveKey(stage string, outcome Outcome, elapsed time.Duration)
}
