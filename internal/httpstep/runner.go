// Package httpstep executes one HTTP step with retry/backoff/timeout and
// transport selection (spec §4.5). Grounded on the teacher's
// internal/scheduler/executor.go (client construction, drain-and-close) and
// internal/scheduler/worker.go (retryDelay shape).
package httpstep

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kpopdotlink/fleetcron/internal/domain"
	"github.com/kpopdotlink/fleetcron/internal/metrics"
	"github.com/kpopdotlink/fleetcron/internal/requestid"
	"github.com/kpopdotlink/fleetcron/internal/template"
)

// maxResponseSampleRunes bounds response_sample to exactly 2000 code points
// (spec §8 boundary case).
const maxResponseSampleRunes = 2000

// Outcome is the result of one step's full attempt sequence.
type Outcome = domain.StepOutcome

// Info carries everything recorded for a step's log entry (spec §4.5).
type Info struct {
	StatusCode     int
	ElapsedMS      int64
	ResponseSample string
	Attempts       int
	Err            error
}

// Defaults is the global http_defaults layer — the lowest-precedence
// configuration (spec §4.5 "Merged configuration precedence").
type Defaults struct {
	TimeoutSec int
	Retry      domain.RetryPolicy
}

// Runner executes individual HTTP steps.
type Runner struct {
	standard *standardTransport
	tolerant *tolerantTransport
	caPath   string
	logger   *slog.Logger
}

// NewRunner builds a Runner. tlsConfig carries the resolved CA bundle (see
// internal/capath); it may be nil to use the OS trust store.
func NewRunner(tlsConfig *tls.Config, caPath string, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	tolerant, err := newTolerantTransport(tlsConfig)
	if err != nil {
		logger.Warn("challenge-tolerant transport unavailable, will fall back to standard", "error", err)
		tolerant = nil
	}
	return &Runner{
		standard: newStandardTransport(tlsConfig),
		tolerant: tolerant,
		caPath:   caPath,
		logger:   logger.With("component", "httpstep"),
	}
}

// MergeConfig applies the low-to-high precedence chain: global < job-level
// < step-level (spec §4.5).
func MergeConfig(global Defaults, job *domain.Job, step domain.Step) (timeout time.Duration, retry domain.RetryPolicy) {
	timeoutSec := global.TimeoutSec
	retry = global.Retry

	if job != nil {
		if job.TimeoutSec != nil {
			timeoutSec = *job.TimeoutSec
		}
		if job.Retry != nil {
			retry = *job.Retry
		}
	}
	if step.TimeoutSec != nil {
		timeoutSec = *step.TimeoutSec
	}
	if step.Retry != nil {
		retry = *step.Retry
	}
	if timeoutSec <= 0 {
		timeoutSec = 10
	}
	return time.Duration(timeoutSec) * time.Second, retry
}

// RunStep executes step with the merged configuration, resolving templates
// against secrets, selecting a transport, and retrying per policy. The
// outcome is ok on first success; otherwise error with the last attempt's
// info (spec §4.5).
func (r *Runner) RunStep(ctx context.Context, step domain.Step, timeout time.Duration, retry domain.RetryPolicy, secrets template.Secrets) (Outcome, Info) {
	resolvedURL := template.ResolveString(step.URL, secrets)
	resolvedHeaders := template.ResolveHeaders(step.Headers, secrets)
	resolvedParams := template.ResolveHeaders(step.Params, secrets)
	resolvedURL = applyParams(resolvedURL, resolvedParams)

	body, err := resolveBody(step.Body, secrets)
	if err != nil {
		return domain.StepError, Info{Err: err}
	}

	tr := r.selectTransport(step, resolvedURL)

	totalAttempts := retry.Retries + 1
	delay := time.Duration(retry.DelaySec * float64(time.Second))

	var last Info
	for attempt := 1; attempt <= totalAttempts; attempt++ {
		attemptCtx := requestid.WithRequestID(ctx, requestid.New())

		start := time.Now()
		resp, doErr := tr.do(attemptCtx, preparedRequest{
			method:  step.Method,
			url:     resolvedURL,
			headers: resolvedHeaders,
			body:    body,
			timeout: timeout,
		})
		elapsed := time.Since(start)

		last = Info{ElapsedMS: elapsed.Milliseconds(), Attempts: attempt}

		attemptOutcome := domain.StepError
		if doErr != nil {
			last.Err = doErr
			r.logger.WarnContext(attemptCtx, "step attempt failed", "url", resolvedURL, "attempt", attempt, "error", doErr)
		} else {
			sample, readErr := readSample(resp.Body)
			_ = resp.Body.Close()
			last.StatusCode = resp.StatusCode
			last.ResponseSample = sample
			if readErr != nil {
				last.Err = readErr
			} else if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				attemptOutcome = domain.StepOK
			} else {
				last.Err = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
			}
		}

		metrics.StepAttemptsTotal.WithLabelValues(string(attemptOutcome)).Inc()
		metrics.StepLatency.WithLabelValues(string(attemptOutcome)).Observe(elapsed.Seconds())

		if attemptOutcome == domain.StepOK {
			return domain.StepOK, last
		}

		if attempt < totalAttempts {
			if !sleepCancellable(ctx, delay) {
				last.Err = ctx.Err()
				return domain.StepError, last
			}
			if retry.Backoff > 1 {
				delay = time.Duration(float64(delay) * retry.Backoff)
			}
		}
	}

	return domain.StepError, last
}

func (r *Runner) selectTransport(step domain.Step, resolvedURL string) transport {
	if step.UseCurl && strings.EqualFold(step.Method, "GET") {
		if curl, err := newCurlTransport(r.caPath); err == nil {
			return curl
		}
		r.logger.Warn("use_curl requested but curl unavailable, falling back to standard transport")
	}
	if step.UseCloudscraper || strings.Contains(strings.ToLower(resolvedURL), "render.com") {
		if r.tolerant != nil {
			return r.tolerant
		}
	}
	return r.standard
}

func applyParams(rawURL string, params map[string]string) string {
	if len(params) == 0 {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func resolveBody(body any, secrets template.Secrets) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	switch body.(type) {
	case map[string]any, []any:
		resolved := template.Resolve(body, secrets)
		return json.Marshal(resolved)
	case string:
		return []byte(template.ResolveString(body.(string), secrets)), nil
	default:
		return json.Marshal(body)
	}
}

func readSample(body io.Reader) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return truncateRunes(string(raw), maxResponseSampleRunes), nil
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

func sleepCancellable(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
