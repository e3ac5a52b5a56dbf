package watcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kpopdotlink/fleetcron/internal/domain"
)

type fakeStore struct {
	commands []domain.Command
	lastWatermark time.Time
}

func (f *fakeStore) PollCommandsSince(_ context.Context, watermark time.Time, _ string) ([]domain.Command, error) {
	f.lastWatermark = watermark
	return f.commands, nil
}

type fakeReloader struct {
	calls int
	err   error
}

func (f *fakeReloader) Reload(_ context.Context) error {
	f.calls++
	return f.err
}

func TestPoll_DispatchesReloadJobs(t *testing.T) {
	store := &fakeStore{commands: []domain.Command{
		{Type: domain.CommandReloadJobs, Target: domain.TargetAll, CreatedAt: time.Now()},
	}}
	jobs := &fakeReloader{}
	cfg := &fakeReloader{}
	w := New(store, "m1", jobs, cfg, nil)

	w.poll(context.Background())

	if jobs.calls != 1 {
		t.Fatalf("expected job index reload, got %d calls", jobs.calls)
	}
	if cfg.calls != 0 {
		t.Fatalf("expected config reload untouched, got %d calls", cfg.calls)
	}
}

func TestPoll_DispatchesReloadConfig(t *testing.T) {
	store := &fakeStore{commands: []domain.Command{
		{Type: domain.CommandReloadConfig, Target: "m1", CreatedAt: time.Now()},
	}}
	jobs := &fakeReloader{}
	cfg := &fakeReloader{}
	w := New(store, "m1", jobs, cfg, nil)

	w.poll(context.Background())

	if cfg.calls != 1 {
		t.Fatalf("expected config reload, got %d calls", cfg.calls)
	}
}

func TestPoll_AdvancesWatermarkPerCommand(t *testing.T) {
	first := time.Now().Add(-time.Minute)
	second := time.Now()
	store := &fakeStore{commands: []domain.Command{
		{Type: domain.CommandReloadJobs, Target: "all", CreatedAt: first},
		{Type: domain.CommandReloadJobs, Target: "all", CreatedAt: second},
	}}
	jobs := &fakeReloader{}
	cfg := &fakeReloader{}
	w := New(store, "m1", jobs, cfg, nil)

	w.poll(context.Background())

	if !w.watermark.Equal(second) {
		t.Fatalf("expected watermark advanced to last command, got %v", w.watermark)
	}
	if jobs.calls != 2 {
		t.Fatalf("expected both commands dispatched, got %d", jobs.calls)
	}
}

func TestPoll_ReloadErrorIsLoggedNotFatal(t *testing.T) {
	store := &fakeStore{commands: []domain.Command{
		{Type: domain.CommandReloadJobs, Target: "all", CreatedAt: time.Now()},
	}}
	jobs := &fakeReloader{err: errors.New("boom")}
	cfg := &fakeReloader{}
	w := New(store, "m1", jobs, cfg, nil)

	w.poll(context.Background())

	if jobs.calls != 1 {
		t.Fatalf("expected reload attempted despite eventual error")
	}
}
