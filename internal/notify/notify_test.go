package notify

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/kpopdotlink/fleetcron/internal/domain"
)

func TestCompose_OkRunOmitsFailureLine(t *testing.T) {
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Second)
	job := &domain.Job{Name: "ping-api"}
	run := &domain.JobRun{
		RunKey:             domain.RunKey{JobID: "job-1", ScheduledFor: start},
		Status:             domain.RunOK,
		ExecutedOrderValue: 1,
		StartAt:            &start,
		EndAt:              &end,
		Steps:              []domain.StepLog{{Outcome: domain.StepOK}},
	}

	text := compose(job, run, "host-a", 1)
	if !strings.Contains(text, "ping-api") {
		t.Fatalf("expected job name in message, got %q", text)
	}
	if strings.Contains(text, "first failure") {
		t.Fatalf("did not expect a failure line for an ok run, got %q", text)
	}
}

func TestCompose_ErrorRunIncludesFirstFailure(t *testing.T) {
	start := time.Now()
	job := &domain.Job{Name: "sync-inventory"}
	run := &domain.JobRun{
		RunKey: domain.RunKey{JobID: "job-2", ScheduledFor: start},
		Status: domain.RunError,
		Steps: []domain.StepLog{
			{Index: 0, Outcome: domain.StepOK},
			{Index: 1, Outcome: domain.StepError, Error: "unexpected status code: 500", Attempts: 3},
		},
	}

	text := compose(job, run, "host-b", 2)
	if !strings.Contains(text, "step 1: unexpected status code: 500 (attempts=3)") {
		t.Fatalf("expected first failure detail in message, got %q", text)
	}
}

func TestLogNotifier_NeverErrors(t *testing.T) {
	n := NewLogNotifier(nil)
	run := &domain.JobRun{Status: domain.RunOK, RunKey: domain.RunKey{JobID: "j", ScheduledFor: time.Now()}}
	job := &domain.Job{Name: "job"}

	if err := n.NotifyRun(context.Background(), job, run, "host", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
