package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kpopdotlink/fleetcron/internal/domain"
	"github.com/kpopdotlink/fleetcron/internal/httpstep"
	"github.com/kpopdotlink/fleetcron/internal/template"
)

type fakeRunner struct {
	outcomes []domain.StepOutcome
	infos    []httpstep.Info
	calls    int
}

func (f *fakeRunner) RunStep(_ context.Context, _ domain.Step, _ time.Duration, _ domain.RetryPolicy, _ template.Secrets) (domain.StepOutcome, httpstep.Info) {
	idx := f.calls
	f.calls++
	return f.outcomes[idx], f.infos[idx]
}

func TestExecute_AllStepsOK(t *testing.T) {
	runner := &fakeRunner{
		outcomes: []domain.StepOutcome{domain.StepOK, domain.StepOK},
		infos:    []httpstep.Info{{StatusCode: 200}, {StatusCode: 201}},
	}
	job := &domain.Job{
		JobID: "job-1",
		Actions: []domain.Step{
			{Type: "http", Method: "GET", URL: "http://a"},
			{Type: "http", Method: "GET", URL: "http://b"},
		},
	}
	e := New(runner, httpstep.Defaults{TimeoutSec: 10}, nil)

	status, logs := e.Execute(context.Background(), job, 10, 30, nil)
	if status != domain.RunOK {
		t.Fatalf("expected ok, got %v", status)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(logs))
	}
}

func TestExecute_UnsupportedTypeSkipped(t *testing.T) {
	runner := &fakeRunner{
		outcomes: []domain.StepOutcome{domain.StepOK},
		infos:    []httpstep.Info{{StatusCode: 200}},
	}
	job := &domain.Job{
		JobID: "job-2",
		Actions: []domain.Step{
			{Type: "shell", Method: "GET", URL: "http://a"},
			{Type: "http", Method: "GET", URL: "http://b"},
		},
	}
	e := New(runner, httpstep.Defaults{}, nil)

	status, logs := e.Execute(context.Background(), job, 10, 30, nil)
	if status != domain.RunOK {
		t.Fatalf("expected ok, got %v", status)
	}
	if logs[0].Outcome != domain.StepSkippedUnsupported {
		t.Fatalf("expected skipped_unsupported, got %v", logs[0].Outcome)
	}
	if logs[1].Outcome != domain.StepOK {
		t.Fatalf("expected second step executed, got %v", logs[1].Outcome)
	}
	if runner.calls != 1 {
		t.Fatalf("expected runner invoked once, got %d", runner.calls)
	}
}

func TestExecute_WhenPredicateSkipsStep(t *testing.T) {
	runner := &fakeRunner{}
	job := &domain.Job{
		JobID: "job-3",
		Actions: []domain.Step{
			{Type: "http", Method: "GET", URL: "http://a", When: &domain.WhenPredicate{HourIn: []int{5}}},
		},
	}
	e := New(runner, httpstep.Defaults{}, nil)

	status, logs := e.Execute(context.Background(), job, 10, 30, nil)
	if status != domain.RunOK {
		t.Fatalf("expected ok (skip isn't a failure), got %v", status)
	}
	if logs[0].Outcome != domain.StepSkippedWhen {
		t.Fatalf("expected skipped_when, got %v", logs[0].Outcome)
	}
	if runner.calls != 0 {
		t.Fatalf("expected runner never invoked, got %d calls", runner.calls)
	}
}

func TestExecute_AbortsChainOnErrorWithoutContinue(t *testing.T) {
	runner := &fakeRunner{
		outcomes: []domain.StepOutcome{domain.StepError},
		infos:    []httpstep.Info{{Err: errors.New("boom")}},
	}
	job := &domain.Job{
		JobID: "job-4",
		Actions: []domain.Step{
			{Type: "http", Method: "GET", URL: "http://a"},
			{Type: "http", Method: "GET", URL: "http://b"},
		},
	}
	e := New(runner, httpstep.Defaults{}, nil)

	status, logs := e.Execute(context.Background(), job, 10, 30, nil)
	if status != domain.RunError {
		t.Fatalf("expected error, got %v", status)
	}
	if len(logs) != 1 {
		t.Fatalf("expected chain aborted after first step, got %d log entries", len(logs))
	}
	if runner.calls != 1 {
		t.Fatalf("expected second step never run, got %d calls", runner.calls)
	}
}

func TestExecute_ContinuesPastFailureWhenConfigured(t *testing.T) {
	runner := &fakeRunner{
		outcomes: []domain.StepOutcome{domain.StepError, domain.StepOK},
		infos:    []httpstep.Info{{Err: errors.New("boom")}, {StatusCode: 200}},
	}
	job := &domain.Job{
		JobID: "job-5",
		Actions: []domain.Step{
			{Type: "http", Method: "GET", URL: "http://a", ContinueOnFailure: true},
			{Type: "http", Method: "GET", URL: "http://b"},
		},
	}
	e := New(runner, httpstep.Defaults{}, nil)

	status, logs := e.Execute(context.Background(), job, 10, 30, nil)
	if status != domain.RunError {
		t.Fatalf("expected overall error despite continuing, got %v", status)
	}
	if len(logs) != 2 {
		t.Fatalf("expected both steps logged, got %d", len(logs))
	}
	if logs[1].Outcome != domain.StepOK {
		t.Fatalf("expected second step to run and succeed, got %v", logs[1].Outcome)
	}
}

func TestExecute_FlatJobTreatedAsSingleStepChain(t *testing.T) {
	runner := &fakeRunner{
		outcomes: []domain.StepOutcome{domain.StepOK},
		infos:    []httpstep.Info{{StatusCode: 200}},
	}
	job := &domain.Job{
		JobID: "job-6",
		Flat:  &domain.Step{Type: "http", Method: "GET", URL: "http://a"},
	}
	e := New(runner, httpstep.Defaults{}, nil)

	status, logs := e.Execute(context.Background(), job, 10, 30, nil)
	if status != domain.RunOK {
		t.Fatalf("expected ok, got %v", status)
	}
	if len(logs) != 1 {
		t.Fatalf("expected exactly one step from flat spec, got %d", len(logs))
	}
}
