// Package watcher implements the Command Watcher (spec §4.9): a cooperative
// background task that polls the control channel for reload signals.
// Grounded on the teacher's internal/scheduler/reaper.go (ticker loop,
// logged-and-continued errors) generalized from a stale-job sweep to a
// command dispatch loop.
package watcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/kpopdotlink/fleetcron/internal/domain"
)

// pollInterval is the cadence spec §4.9 fixes at 5 seconds.
const pollInterval = 5 * time.Second

// Store is the subset of store.Gateway the watcher needs.
type Store interface {
	PollCommandsSince(ctx context.Context, watermark time.Time, machineID string) ([]domain.Command, error)
}

// JobReloader is asked to reload the in-memory job index on reload_jobs.
type JobReloader interface {
	Reload(ctx context.Context) error
}

// ConfigReloader re-reads configuration and refreshes every dependent
// component (timezone, order settings, notifier, job index) on
// reload_config.
type ConfigReloader interface {
	Reload(ctx context.Context) error
}

// Watcher polls for commands addressed to one machine and dispatches them.
type Watcher struct {
	store     Store
	machineID string
	jobs      JobReloader
	config    ConfigReloader
	logger    *slog.Logger

	watermark time.Time
}

// New builds a Watcher. The watermark starts at construction time so only
// commands issued after the agent came up are replayed.
func New(store Store, machineID string, jobs JobReloader, config ConfigReloader, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		store:     store,
		machineID: machineID,
		jobs:      jobs,
		config:    config,
		logger:    logger.With("component", "watcher"),
		watermark: time.Now().UTC(),
	}
}

// Run polls every pollInterval until ctx is cancelled. Errors are logged
// and never stop the loop (spec §4.9 last line).
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	w.logger.Info("command watcher started", "interval", pollInterval)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("command watcher shut down")
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Watcher) poll(ctx context.Context) {
	commands, err := w.store.PollCommandsSince(ctx, w.watermark, w.machineID)
	if err != nil {
		w.logger.Error("poll commands", "error", err)
		return
	}

	for _, cmd := range commands {
		w.watermark = cmd.CreatedAt
		w.dispatch(ctx, cmd)
	}
}

func (w *Watcher) dispatch(ctx context.Context, cmd domain.Command) {
	switch cmd.Type {
	case domain.CommandReloadJobs:
		if err := w.jobs.Reload(ctx); err != nil {
			w.logger.Error("reload jobs", "error", err)
		} else {
			w.logger.Info("jobs reloaded via command")
		}
	case domain.CommandReloadConfig:
		if err := w.config.Reload(ctx); err != nil {
			w.logger.Error("reload config", "error", err)
		} else {
			w.logger.Info("config reloaded via command")
		}
	default:
		w.logger.Warn("unknown command type", "type", cmd.Type)
	}
}
