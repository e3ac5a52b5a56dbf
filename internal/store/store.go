// Package store defines the Gateway interface — typed operations over the
// shared document database (spec §4.2). Grounded on the teacher's
// internal/repository/job.go: usecases depend on this interface, not a
// concrete driver, so the database can be swapped (and faked in tests)
// without touching the order coordinator, claimer, or watcher.
package store

import (
	"context"
	"time"

	"github.com/kpopdotlink/fleetcron/internal/domain"
)

// Gateway is every operation the agent performs against the shared
// database. All operations are blocking; callers provide their own
// deadline via ctx.
type Gateway interface {
	EnsureIndexes(ctx context.Context) error

	// EnsureMachine upserts a machine by machine_id. On insert, order_value
	// is set to domain.DefaultOrderValue; on every call hostname and
	// last_seen are refreshed. Returns the current document.
	EnsureMachine(ctx context.Context, machineID, hostname string) (domain.Machine, error)
	UpdateHeartbeat(ctx context.Context, machineID string, minuteUTC time.Time) error
	ListMachinesSorted(ctx context.Context) ([]domain.Machine, error)

	// ClaimRun atomically reserves (jobID, minuteUTC) for claimant. It
	// returns true iff the post-condition has claimed_by == claimant;
	// duplicate-key and "claimed by someone else" both collapse to false,
	// never an error (spec §4.2, §4.8).
	ClaimRun(ctx context.Context, jobID string, minuteUTC time.Time, claimant string, orderValue, position int) (bool, error)
	AppendStep(ctx context.Context, key domain.RunKey, step domain.StepLog) error
	FinalizeRun(ctx context.Context, key domain.RunKey, status domain.RunStatus, start, end time.Time) error

	// PollCommandsSince returns commands addressed to machineID or "all"
	// with created_at strictly after watermark, ordered ascending.
	PollCommandsSince(ctx context.Context, watermark time.Time, machineID string) ([]domain.Command, error)

	// ListEnabledJobs feeds the Job Index's reload (spec §4.4); it
	// satisfies jobindex.Loader.
	ListEnabledJobs(ctx context.Context) ([]domain.Job, error)
}
