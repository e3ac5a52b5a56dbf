// Package jobindex builds and serves the in-memory (hour, minute) -> jobs
// map the main loop uses to find the next scheduled fire time and the jobs
// due at it (spec §4.4). Grounded on the teacher's dispatcher poll/refresh
// shape (internal/scheduler/dispatcher.go), generalized to a mutex-guarded
// read-snapshot cache.
package jobindex

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kpopdotlink/fleetcron/internal/domain"
)

// slot is the (hour, minute) key. An "every hour" schedule is expanded into
// 24 slots, one per hour — the index never stores a nil hour, only concrete
// 0-23 values (expansion rule, spec §4.4).
type slot struct {
	hour   int
	minute int
}

// Loader fetches the currently enabled jobs — backed by store.Gateway in
// production, a fake in tests.
type Loader interface {
	ListEnabledJobs(ctx context.Context) ([]domain.Job, error)
}

// Index is the thread-safe in-memory job index.
type Index struct {
	mu   sync.RWMutex
	byHM map[slot][]domain.Job

	loader Loader
}

// New constructs an empty index backed by loader.
func New(loader Loader) *Index {
	return &Index{byHM: map[slot][]domain.Job{}, loader: loader}
}

// Reload atomically replaces the map from the enabled-jobs query (§4.4).
func (idx *Index) Reload(ctx context.Context) error {
	jobs, err := idx.loader.ListEnabledJobs(ctx)
	if err != nil {
		return fmt.Errorf("list enabled jobs: %w", err)
	}

	next := map[slot][]domain.Job{}
	for _, job := range jobs {
		for _, entry := range job.ScheduleEntries() {
			if entry.Hour == nil {
				for h := 0; h < 24; h++ {
					s := slot{hour: h, minute: entry.Minute}
					next[s] = append(next[s], job)
				}
				continue
			}
			s := slot{hour: *entry.Hour, minute: entry.Minute}
			next[s] = append(next[s], job)
		}
	}

	idx.mu.Lock()
	idx.byHM = next
	idx.mu.Unlock()
	return nil
}

// ListFor returns a snapshot of the jobs due at (hour, minute); may be empty.
func (idx *Index) ListFor(hour, minute int) []domain.Job {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	jobs := idx.byHM[slot{hour: hour, minute: minute}]
	out := make([]domain.Job, len(jobs))
	copy(out, jobs)
	return out
}

// Empty reports whether the index currently has no entries.
func (idx *Index) Empty() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.byHM) == 0
}

// NextFireAfter finds the smallest (h, m) strictly after t's (hour, minute),
// wrapping to the next day if none remain today (§4.4). Returns the zero
// value and ok=false iff the index is empty.
func (idx *Index) NextFireAfter(t Local) (Local, bool) {
	idx.mu.RLock()
	slots := make([]slot, 0, len(idx.byHM))
	for s := range idx.byHM {
		slots = append(slots, s)
	}
	idx.mu.RUnlock()

	if len(slots) == 0 {
		return Local{}, false
	}

	sort.Slice(slots, func(i, j int) bool {
		if slots[i].hour != slots[j].hour {
			return slots[i].hour < slots[j].hour
		}
		return slots[i].minute < slots[j].minute
	})

	cur := slot{hour: t.Hour, minute: t.Minute}
	for _, s := range slots {
		if s.hour > cur.hour || (s.hour == cur.hour && s.minute > cur.minute) {
			return Local{Hour: s.hour, Minute: s.minute, NextDay: false}, true
		}
	}
	// Nothing later today — wrap to the smallest slot, tomorrow.
	first := slots[0]
	return Local{Hour: first.hour, Minute: first.minute, NextDay: true}, true
}

// Local is a minimal (hour, minute[, next-day]) value used to keep this
// package decoupled from any particular time.Time zone handling — callers
// convert to/from time.Time using clockzone.
type Local struct {
	Hour    int
	Minute  int
	NextDay bool
}
