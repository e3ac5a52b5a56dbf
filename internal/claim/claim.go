// Package claim wraps the store's atomic run-claim behind the narrow
// interface the main loop needs (spec §4.8). Grounded on the
// teacher's internal/usecase layer: a thin pass-through over a repository
// method, existing mainly so its caller depends on an interface narrower
// than the full store.Gateway.
package claim

import (
	"context"
	"time"

	"github.com/kpopdotlink/fleetcron/internal/domain"
	"github.com/kpopdotlink/fleetcron/internal/metrics"
)

// Store is the subset of store.Gateway the claimer needs.
type Store interface {
	ClaimRun(ctx context.Context, jobID string, minuteUTC time.Time, claimant string, orderValue, position int) (bool, error)
}

// Claimer reserves a (job, scheduled minute) for one machine.
type Claimer struct {
	store Store
}

func New(store Store) *Claimer {
	return &Claimer{store: store}
}

// Claim returns true iff this call won the run for (jobID, minuteUTC).
// Duplicate-key races and "claimed by someone else" both collapse to false
// per spec §4.8 — never surfaced as an error.
func (c *Claimer) Claim(ctx context.Context, jobID string, minuteUTC time.Time, claimant string, orderValue, position int) (bool, error) {
	won, err := c.store.ClaimRun(ctx, jobID, minuteUTC, claimant, orderValue, position)
	if err != nil {
		return false, err
	}
	if won {
		metrics.ClaimOutcomesTotal.WithLabelValues("won").Inc()
	} else {
		metrics.ClaimOutcomesTotal.WithLabelValues("lost").Inc()
	}
	return won, nil
}
