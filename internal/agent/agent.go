// Package agent wires every component into the main loop (spec §4.10):
// sleep-until-next-fire, the two-phase order coordinator, the run claimer,
// the action-chain executor, and the notifier, all driven off a reloadable
// job index and config snapshot. Grounded on the teacher's
// cmd/scheduler/main.go wiring shape and internal/scheduler/dispatcher.go's
// tick loop, generalized from a single-query dispatch into the full
// heartbeat/claim/execute/notify sequence.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/kpopdotlink/fleetcron/config"
	"github.com/kpopdotlink/fleetcron/internal/claim"
	"github.com/kpopdotlink/fleetcron/internal/clockzone"
	"github.com/kpopdotlink/fleetcron/internal/domain"
	"github.com/kpopdotlink/fleetcron/internal/executor"
	"github.com/kpopdotlink/fleetcron/internal/httpstep"
	"github.com/kpopdotlink/fleetcron/internal/jobindex"
	"github.com/kpopdotlink/fleetcron/internal/metrics"
	"github.com/kpopdotlink/fleetcron/internal/notify"
	"github.com/kpopdotlink/fleetcron/internal/order"
	"github.com/kpopdotlink/fleetcron/internal/store"
	"github.com/kpopdotlink/fleetcron/internal/template"
)

// halfHour is the sleep cap applied when the job index is empty (§4.10).
const halfHour = 30 * time.Minute

// orderFieldSetter is implemented by store.Gateway backends that support
// reconfiguring the primary order-field alias at runtime (spec.md §9).
// Checked with a type assertion so the interface stays optional.
type orderFieldSetter interface {
	SetOrderField(name string)
}

// components is everything a tick needs that depends on the live config
// snapshot. Rebuilt wholesale on reload_config and swapped atomically so a
// tick in flight always sees one consistent generation (spec §9,
// "Process-wide mutable config").
type components struct {
	clock       *clockzone.Clock
	coordinator *order.Coordinator
	executor    *executor.Executor
	notifier    notify.Notifier
	secrets     template.Secrets
}

// Agent drives the main loop for one machine.
type Agent struct {
	cfgStore  *config.Store
	gateway   store.Gateway
	index     *jobindex.Index
	claimer   *claim.Claimer
	runner    *httpstep.Runner
	machineID string
	hostname  string
	logger    *slog.Logger

	comp atomic.Pointer[components]
}

// New builds an Agent. runner is shared across reloads — only its
// timeout/retry defaults and the secrets passed at call time change.
func New(cfgStore *config.Store, gateway store.Gateway, runner *httpstep.Runner, machineID, hostname string, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Agent{
		cfgStore:  cfgStore,
		gateway:   gateway,
		index:     jobindex.New(gateway),
		claimer:   claim.New(gateway),
		runner:    runner,
		machineID: machineID,
		hostname:  hostname,
		logger:    logger.With("component", "agent"),
	}
	a.comp.Store(a.build(cfgStore.Get()))
	return a
}

// build constructs a fresh components generation from cfg.
func (a *Agent) build(cfg *config.Config) *components {
	if setter, ok := a.gateway.(orderFieldSetter); ok {
		setter.SetOrderField(cfg.OrderField)
	}

	clock := clockzone.New(cfg.TZ, a.logger)
	coordinator := order.New(a.gateway, a.machineID, cfg.MaxActiveMachines(), a.logger)

	globalDefaults := httpstep.Defaults{
		TimeoutSec: cfg.HTTPDefaults.TimeoutSec,
		Retry: domain.RetryPolicy{
			Retries:  cfg.HTTPDefaults.Retry.Retries,
			DelaySec: cfg.HTTPDefaults.Retry.DelaySec,
			Backoff:  cfg.HTTPDefaults.Retry.Backoff,
		},
	}
	exec := executor.New(a.runner, globalDefaults, a.logger)

	var notifier notify.Notifier
	if cfg.NotifyDriver == "telegram" && cfg.Notification.Token != "" {
		tg, err := notify.NewTelegramNotifier(cfg.Notification, a.logger)
		if err != nil {
			a.logger.Error("build telegram notifier, falling back to log notifier", "error", err)
			notifier = notify.NewLogNotifier(a.logger)
		} else {
			notifier = tg
		}
	} else {
		notifier = notify.NewLogNotifier(a.logger)
	}

	secrets := make(template.Secrets, len(cfg.Secrets))
	for k, v := range cfg.Secrets {
		secrets[k] = v
	}

	return &components{clock: clock, coordinator: coordinator, executor: exec, notifier: notifier, secrets: secrets}
}

// Reload re-reads configuration, rebuilds every dependent component and
// reloads the job index. Satisfies watcher.ConfigReloader.
func (a *Agent) Reload(ctx context.Context) error {
	if err := a.cfgStore.Reload(); err != nil {
		return err
	}
	a.comp.Store(a.build(a.cfgStore.Get()))
	if err := a.index.Reload(ctx); err != nil {
		return fmt.Errorf("reload job index: %w", err)
	}
	a.logger.InfoContext(ctx, "configuration reloaded")
	return nil
}

// JobIndex exposes the reloadable job index for the command watcher.
func (a *Agent) JobIndex() *jobindex.Index { return a.index }

// Run drives the main loop until ctx is cancelled (spec §4.10). It also
// performs the initial job index load before entering the loop.
func (a *Agent) Run(ctx context.Context) error {
	if _, err := a.gateway.EnsureMachine(ctx, a.machineID, a.hostname); err != nil {
		return fmt.Errorf("ensure machine: %w", err)
	}
	if err := a.index.Reload(ctx); err != nil {
		a.logger.ErrorContext(ctx, "initial job index load failed", "error", err)
	}

	a.logger.InfoContext(ctx, "main loop started", "machine_id", a.machineID)
	for {
		if ctx.Err() != nil {
			a.logger.Info("main loop shut down")
			return nil
		}

		comp := a.comp.Load()
		now := comp.clock.NowLocal()
		localNow := jobindex.Local{Hour: now.Hour(), Minute: now.Minute()}

		next, ok := a.index.NextFireAfter(localNow)
		if !ok {
			if !sleepCancellable(ctx, durationToNextHalfHour(now)) {
				return nil
			}
			if err := a.index.Reload(ctx); err != nil {
				a.logger.ErrorContext(ctx, "job index reload failed", "error", err)
			}
			continue
		}

		fireAt := nextFireTime(now, next)
		if fireAt.Sub(now) > halfHour {
			if !sleepCancellable(ctx, halfHour) {
				return nil
			}
			if err := a.index.Reload(ctx); err != nil {
				a.logger.ErrorContext(ctx, "job index reload failed", "error", err)
			}
			continue
		}

		if !sleepCancellable(ctx, fireAt.Sub(now)) {
			return nil
		}

		func() {
			defer func() {
				if r := recover(); r != nil {
					a.logger.Error("tick panicked, continuing after short wait", "panic", r)
					sleepCancellable(ctx, time.Second)
				}
			}()
			a.tick(ctx, a.comp.Load(), fireAt)
		}()
	}
}

// tick runs one scheduled minute: heartbeat/order-coordinate, then claim
// and execute every due job in the order the Job Index returns them (§4.10,
// §5 "Ordering guarantees").
func (a *Agent) tick(ctx context.Context, comp *components, fireAt time.Time) {
	start := time.Now()
	defer func() { metrics.TickDuration.Observe(time.Since(start).Seconds()) }()

	minuteUTC := clockzone.ToUTCMinute(fireAt)

	decision, err := comp.coordinator.PhaseA(ctx, minuteUTC)
	if err != nil {
		a.logger.ErrorContext(ctx, "phase a failed", "error", err)
		return
	}
	if decision.Abandoned {
		return
	}

	position, orderValue := decision.Position, decision.OrderValue
	if decision.WaitSeconds > 0 {
		if !sleepCancellable(ctx, decision.WaitSeconds) {
			return
		}
		proceed, p, ov, err := comp.coordinator.PhaseB(ctx, minuteUTC)
		if err != nil {
			a.logger.ErrorContext(ctx, "phase b failed", "error", err)
			return
		}
		if !proceed {
			return
		}
		position, orderValue = p, ov
	}

	for _, job := range a.index.ListFor(fireAt.Hour(), fireAt.Minute()) {
		a.runJob(ctx, comp, job, minuteUTC, fireAt, position, orderValue)
	}
}

// runJob claims, then executes, then records and notifies. A lost claim is
// a normal skip, never an error (spec §4.8, §7 ClaimLost).
func (a *Agent) runJob(ctx context.Context, comp *components, job domain.Job, minuteUTC, localNow time.Time, position, orderValue int) {
	won, err := a.claimer.Claim(ctx, job.JobID, minuteUTC, a.machineID, orderValue, position)
	if err != nil {
		a.logger.ErrorContext(ctx, "claim run", "job_id", job.JobID, "error", err)
		return
	}
	if !won {
		return
	}

	key := domain.RunKey{JobID: job.JobID, ScheduledFor: minuteUTC}
	start := time.Now().UTC()
	status, steps := comp.executor.Execute(ctx, &job, localNow.Hour(), localNow.Minute(), comp.secrets)
	end := time.Now().UTC()

	for _, step := range steps {
		if err := a.gateway.AppendStep(ctx, key, step); err != nil {
			a.logger.ErrorContext(ctx, "append step", "job_id", job.JobID, "step_index", step.Index, "error", err)
		}
	}
	if err := a.gateway.FinalizeRun(ctx, key, status, start, end); err != nil {
		a.logger.ErrorContext(ctx, "finalize run", "job_id", job.JobID, "error", err)
	}

	run := &domain.JobRun{
		RunKey:                key,
		ClaimedBy:             a.machineID,
		ExecutedOrderValue:    orderValue,
		ExecutedOrderPosition: position,
		Status:                status,
		Steps:                 steps,
		StartAt:               &start,
		EndAt:                 &end,
	}
	if err := comp.notifier.NotifyRun(ctx, &job, run, a.hostname, position); err != nil {
		a.logger.ErrorContext(ctx, "notify run", "job_id", job.JobID, "error", err)
	}
}

// nextFireTime resolves a jobindex.Local fire slot against now's date and
// location, advancing a day when the index wrapped.
func nextFireTime(now time.Time, next jobindex.Local) time.Time {
	t := time.Date(now.Year(), now.Month(), now.Day(), next.Hour, next.Minute, 0, 0, now.Location())
	if next.NextDay {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// durationToNextHalfHour is the time remaining until the next :00 or :30
// boundary relative to now's wall-clock minute (§4.10, empty-index branch).
func durationToNextHalfHour(now time.Time) time.Duration {
	elapsed := time.Duration(now.Minute()%30)*time.Minute +
		time.Duration(now.Second())*time.Second +
		time.Duration(now.Nanosecond())
	return halfHour - elapsed
}

// sleepCancellable sleeps for d or until ctx is cancelled, reporting false
// in the latter case so callers can unwind immediately (§4.10 "All sleeps
// are cancellable on stop-signal").
func sleepCancellable(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
