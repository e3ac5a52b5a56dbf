package httpstep

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kpopdotlink/fleetcron/internal/domain"
)

func TestRunStep_SuccessOnFirstAttempt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	r := NewRunner(nil, "", nil)
	step := domain.Step{Method: "GET", URL: srv.URL}
	outcome, info := r.RunStep(context.Background(), step, 2*time.Second, domain.RetryPolicy{Retries: 2, DelaySec: 0}, nil)

	if outcome != domain.StepOK {
		t.Fatalf("expected ok, got %v (err=%v)", outcome, info.Err)
	}
	if info.Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", info.Attempts)
	}
}

func TestRunStep_RetriesWithBackoffThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := NewRunner(nil, "", nil)
	step := domain.Step{Method: "GET", URL: srv.URL}
	start := time.Now()
	outcome, info := r.RunStep(context.Background(), step, 2*time.Second,
		domain.RetryPolicy{Retries: 2, DelaySec: 0.01, Backoff: 2}, nil)
	elapsed := time.Since(start)

	if outcome != domain.StepOK {
		t.Fatalf("expected ok, got %v", outcome)
	}
	if info.Attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", info.Attempts)
	}
	if elapsed < 30*time.Millisecond {
		t.Fatalf("expected backoff delays to elapse, took %v", elapsed)
	}
}

func TestRunStep_NeverExceedsRetriesPlusOneAttempts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewRunner(nil, "", nil)
	step := domain.Step{Method: "GET", URL: srv.URL}
	outcome, info := r.RunStep(context.Background(), step, 2*time.Second,
		domain.RetryPolicy{Retries: 2, DelaySec: 0}, nil)

	if outcome != domain.StepError {
		t.Fatalf("expected error outcome, got %v", outcome)
	}
	if info.Attempts != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", info.Attempts)
	}
	if calls != 3 {
		t.Fatalf("server received %d calls, want 3", calls)
	}
}

func TestRunStep_ResponseSampleTruncatedTo2000Runes(t *testing.T) {
	big := strings.Repeat("a", 5000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(big))
	}))
	defer srv.Close()

	r := NewRunner(nil, "", nil)
	step := domain.Step{Method: "GET", URL: srv.URL}
	_, info := r.RunStep(context.Background(), step, 2*time.Second, domain.RetryPolicy{}, nil)

	if got := len([]rune(info.ResponseSample)); got != maxResponseSampleRunes {
		t.Fatalf("expected %d runes, got %d", maxResponseSampleRunes, got)
	}
}

func TestMergeConfig_Precedence(t *testing.T) {
	global := Defaults{TimeoutSec: 10, Retry: domain.RetryPolicy{Retries: 2, DelaySec: 3, Backoff: 1.5}}

	jobTimeout := 20
	job := &domain.Job{TimeoutSec: &jobTimeout}

	stepTimeout := 5
	step := domain.Step{TimeoutSec: &stepTimeout}

	timeout, retry := MergeConfig(global, job, step)
	if timeout != 5*time.Second {
		t.Fatalf("expected step-level timeout to win, got %v", timeout)
	}
	if retry.Retries != 2 {
		t.Fatalf("expected global retry to apply when job/step don't override, got %+v", retry)
	}
}
