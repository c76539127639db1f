package pipeline

import (
	"time"
)

// Outcome is the terminal state of one unit of work.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped" // artifact already existed
)

// DayResult records what happened to one forecast day. Failed days carry the
// contained error; they never abort the run.
type DayResult struct {
	Index      int    // 1-based forecast day number, in CSV appearance order
	RawDate    string // date cell exactly as it appeared in the CSV
	OutputPath string
	Outcome    Outcome
	Err        error
}

// Report summarizes a pipeline run: the static baseline outcome plus one
// result per forecast day.
type Report struct {
	StartedAt    time.Time
	FinishedAt   time.Time
	BaselinePath string
	BaselineErr  error
	Days         []DayResult
}

// BaselineOK reports whether the static susceptibility baseline was
// produced.
func (r *Report) BaselineOK() bool { return r.BaselineErr == nil }

// FailedDays counts forecast days that ended in a contained failure.
func (r *Report) FailedDays() int {
	n := 0
	for _, d := range r.Days {
		if d.Outcome == OutcomeFailed {
			n++
		}
	}
	return n
}

// ExitCode maps the report to a process exit status. The baseline is always
// required; failed days only force a nonzero exit when strictDays is set.
func (r *Report) ExitCode(strictDays bool) int {
	if !r.BaselineOK() {
		return 1
	}
	if strictDays && r.FailedDays() > 0 {
		return 1
	}
	return 0
}
