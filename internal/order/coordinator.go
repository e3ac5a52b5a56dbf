// Package order implements the leaderless Order Coordinator (spec §4.7):
// heartbeat, fleet-wide position, and the earlier-alive recheck that
// together guarantee single-execution-per-minute without a central lock.
// Grounded on the teacher's internal/scheduler/dispatcher.go (component
// shape: a store-backed phase invoked from the main loop) generalized from
// a single poll-and-fire call into the two-phase staircase algorithm.
package order

import (
	"context"
	"log/slog"
	"time"

	"github.com/kpopdotlink/fleetcron/internal/domain"
	"github.com/kpopdotlink/fleetcron/internal/metrics"
)

// offsetStepSec is the staircase delay unit between positions (spec §4.7).
const offsetStepSec = 5 * time.Second

// Store is the subset of store.Gateway the coordinator needs.
type Store interface {
	UpdateHeartbeat(ctx context.Context, machineID string, minuteUTC time.Time) error
	ListMachinesSorted(ctx context.Context) ([]domain.Machine, error)
}

// Decision is the outcome of Phase A: either proceed immediately, wait and
// recheck, or abandon the minute outright.
type Decision struct {
	Abandoned   bool
	Position    int
	OrderValue  int
	WaitSeconds time.Duration
}

// Coordinator elects (at most) one executor per scheduled minute.
type Coordinator struct {
	store             Store
	machineID         string
	maxActiveMachines int
	logger            *slog.Logger

	lastHeartbeat time.Time
}

// New builds a Coordinator. maxActiveMachines <= 0 means "no cap".
func New(store Store, machineID string, maxActiveMachines int, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:             store,
		machineID:         machineID,
		maxActiveMachines: maxActiveMachines,
		logger:            logger.With("component", "order"),
	}
}

// PhaseA heartbeats for minuteUTC and computes this machine's position.
// If position exceeds maxActiveMachines, the minute is abandoned outright.
// If wait_seconds is zero, the caller should proceed straight to execution
// without calling PhaseB (spec §4.7).
func (c *Coordinator) PhaseA(ctx context.Context, minuteUTC time.Time) (Decision, error) {
	now := time.Now()
	if !c.lastHeartbeat.IsZero() {
		metrics.HeartbeatAge.Set(now.Sub(c.lastHeartbeat).Seconds())
	}

	if err := c.store.UpdateHeartbeat(ctx, c.machineID, minuteUTC); err != nil {
		return Decision{}, err
	}
	c.lastHeartbeat = now

	machines, err := c.store.ListMachinesSorted(ctx)
	if err != nil {
		return Decision{}, err
	}

	position, orderValue, ok := domain.SortedMachines(machines).PositionOf(c.machineID)
	if !ok {
		c.logger.WarnContext(ctx, "self not found in machine list after heartbeat", "machine_id", c.machineID)
		return Decision{Abandoned: true}, nil
	}
	metrics.OrderPosition.Set(float64(position))

	if c.maxActiveMachines > 0 && position > c.maxActiveMachines {
		c.logger.InfoContext(ctx, "abandoning minute, position beyond cap", "position", position, "cap", c.maxActiveMachines)
		return Decision{Abandoned: true, Position: position, OrderValue: orderValue}, nil
	}

	wait := time.Duration(position-1) * offsetStepSec
	return Decision{Position: position, OrderValue: orderValue, WaitSeconds: wait}, nil
}

// PhaseB re-fetches machines after the staircase wait and applies the
// earlier-alive test: if any machine ranked ahead of this one heartbeat-
// reported for minuteUTC, stand down. Returns proceed=false to skip.
func (c *Coordinator) PhaseB(ctx context.Context, minuteUTC time.Time) (proceed bool, position, orderValue int, err error) {
	machines, err := c.store.ListMachinesSorted(ctx)
	if err != nil {
		return false, 0, 0, err
	}

	sorted := domain.SortedMachines(machines)
	position, orderValue, ok := sorted.PositionOf(c.machineID)
	if !ok {
		return false, 0, 0, nil
	}

	for i := 0; i < position-1; i++ {
		if sorted[i].HeartbeatFor(minuteUTC) {
			c.logger.InfoContext(ctx, "standing down, earlier machine alive this minute",
				"earlier_machine_id", sorted[i].MachineID, "position", position)
			return false, position, orderValue, nil
		}
	}
	return true, position, orderValue, nil
}
