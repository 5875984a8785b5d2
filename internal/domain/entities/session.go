package entities

import "time"

// Phase is the externally visible state of the play session.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseScheduled     Phase = "scheduled"
	PhaseRunning       Phase = "running"
	PhaseAwaitingHuman Phase = "awaiting-human"
	// PhaseAwaitingToken is reported instead of idle while no access
	// token has been supplied yet.
	PhaseAwaitingToken Phase = "awaiting-credential"
)

// RoundStats accumulates counters for one run. The counters are reset
// at the start of every run, scheduled or immediate.
type RoundStats struct {
	Rounds    int       // rounds fully played
	Questions int       // questions fetched
	Correct   int       // answers the service confirmed correct
	Errors    int       // per-question failures and pre-check failures
	StartedAt time.Time // when the run started
}

// Reset clears the counters and stamps a new start time.
func (s *RoundStats) Reset(now time.Time) {
	*s = RoundStats{StartedAt: now}
}

// PendingQuestion is the question currently awaiting a human answer.
// It exists only while the session is in the awaiting-human phase.
type PendingQuestion struct {
	Question Question
	Round    int    // 1-based round ordinal within the run
	Number   int    // 1-based question slot within the round
	Answer   string // operator-supplied answer; empty until accepted
	Persist  bool   // write through to the answer cache if correct
}

// RunRecord is the durable summary of one finished run.
type RunRecord struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Rounds     int
	Questions  int
	Correct    int
	Errors     int
	Aborted    bool // stopped early: operator stop, cancellation or pre-check failure
}
