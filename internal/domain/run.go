package domain

import "time"

// RunStatus is the terminal or in-progress state of a JobRun.
type RunStatus string

const (
	RunRunning RunStatus = "running"
	RunOK      RunStatus = "ok"
	RunError   RunStatus = "error"
)

// StepOutcome is the result of executing (or skipping) one step.
type StepOutcome string

const (
	StepOK                 StepOutcome = "ok"
	StepError              StepOutcome = "error"
	StepSkippedUnsupported StepOutcome = "skipped_unsupported"
	StepSkippedWhen        StepOutcome = "skipped_when"
)

// StepLog is one append-only entry in a JobRun's step history (§3, §4.5).
type StepLog struct {
	Index          int         `bson:"index" json:"index"`
	Outcome        StepOutcome `bson:"outcome" json:"outcome"`
	StatusCode     int         `bson:"status_code,omitempty" json:"status_code,omitempty"`
	ElapsedMS      int64       `bson:"elapsed_ms,omitempty" json:"elapsed_ms,omitempty"`
	ResponseSample string      `bson:"response_sample,omitempty" json:"response_sample,omitempty"`
	Attempts       int         `bson:"attempts,omitempty" json:"attempts,omitempty"`
	Error          string      `bson:"error,omitempty" json:"error,omitempty"`
	RecordedAt     time.Time   `bson:"recorded_at" json:"recorded_at"`
}

// RunKey is the composite primary key (job_id, scheduled_for) of a JobRun —
// at most one claimed_by is ever set for a given key (§3 invariant).
type RunKey struct {
	JobID        string    `bson:"job_id" json:"job_id"`
	ScheduledFor time.Time `bson:"scheduled_for" json:"scheduled_for"`
}

// JobRun is the execution record for one (job, scheduled minute) pair.
type JobRun struct {
	RunKey                 `bson:",inline"`
	ClaimedBy              string     `bson:"claimed_by,omitempty" json:"claimed_by,omitempty"`
	ClaimedAt              *time.Time `bson:"claimed_at,omitempty" json:"claimed_at,omitempty"`
	ExecutedOrderValue     int        `bson:"executed_order_value,omitempty" json:"executed_order_value,omitempty"`
	ExecutedOrderPosition  int        `bson:"executed_order_position,omitempty" json:"executed_order_position,omitempty"`
	Status                 RunStatus  `bson:"status" json:"status"`
	Steps                  []StepLog  `bson:"steps,omitempty" json:"steps,omitempty"`
	StartAt                *time.Time `bson:"start_at,omitempty" json:"start_at,omitempty"`
	EndAt                  *time.Time `bson:"end_at,omitempty" json:"end_at,omitempty"`
}

// FirstFailure returns the first errored step, if any — used to compose the
// alert notification and to surface "first failing step" in the UI (§6, §7).
func (r *JobRun) FirstFailure() (StepLog, bool) {
	for _, s := range r.Steps {
		if s.Outcome == StepError {
			return s, true
		}
	}
	return StepLog{}, false
}
