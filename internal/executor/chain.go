// Package executor sequences a job's action chain, invoking the HTTP step
// runner for each step and recording a step log (spec §4.6). Grounded on the
// teacher's internal/scheduler/worker.go runJob (status bookkeeping,
// continue-vs-abort branch), generalized from one HTTP call per job to an
// ordered chain with per-step when-predicates and continue_on_failure.
package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/kpopdotlink/fleetcron/internal/domain"
	"github.com/kpopdotlink/fleetcron/internal/httpstep"
	"github.com/kpopdotlink/fleetcron/internal/template"
)

// Runner is the subset of *httpstep.Runner the executor depends on.
type Runner interface {
	RunStep(ctx context.Context, step domain.Step, timeout time.Duration, retry domain.RetryPolicy, secrets template.Secrets) (domain.StepOutcome, httpstep.Info)
}

// Executor runs a job's action chain top to bottom.
type Executor struct {
	runner          Runner
	globalDefaults  httpstep.Defaults
	logger          *slog.Logger
}

// New builds an Executor backed by runner, using globalDefaults as the
// lowest-precedence HTTP configuration layer (spec §4.5).
func New(runner Runner, globalDefaults httpstep.Defaults, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{runner: runner, globalDefaults: globalDefaults, logger: logger.With("component", "executor")}
}

// Execute runs job's chain (Actions, or its Flat spec as a one-step chain)
// against the given local (hour, minute) — used to evaluate each step's
// `when` predicate — and secrets for template resolution. It returns the
// overall run status and the full step log (spec §4.6).
func (e *Executor) Execute(ctx context.Context, job *domain.Job, localHour, localMinute int, secrets template.Secrets) (domain.RunStatus, []domain.StepLog) {
	chain := job.Chain()
	logs := make([]domain.StepLog, 0, len(chain))
	status := domain.RunOK

	for i, step := range chain {
		if step.Type != "" && step.Type != "http" {
			logs = append(logs, domain.StepLog{Index: i, Outcome: domain.StepSkippedUnsupported, RecordedAt: time.Now().UTC()})
			continue
		}

		if !step.When.Satisfies(localHour, localMinute) {
			logs = append(logs, domain.StepLog{Index: i, Outcome: domain.StepSkippedWhen, RecordedAt: time.Now().UTC()})
			continue
		}

		timeout, retry := httpstep.MergeConfig(e.globalDefaults, job, step)
		outcome, info := e.runner.RunStep(ctx, step, timeout, retry, secrets)

		entry := domain.StepLog{
			Index:          i,
			Outcome:        outcome,
			StatusCode:     info.StatusCode,
			ElapsedMS:      info.ElapsedMS,
			ResponseSample: info.ResponseSample,
			Attempts:       info.Attempts,
			RecordedAt:     time.Now().UTC(),
		}
		if info.Err != nil {
			entry.Error = info.Err.Error()
		}
		logs = append(logs, entry)

		if outcome == domain.StepError {
			e.logger.ErrorContext(ctx, "step failed", "job_id", job.JobID, "step_index", i, "error", entry.Error)
			if !step.ContinueOnFailure {
				status = domain.RunError
				break
			}
			status = domain.RunError
		}
	}

	return status, logs
}
