package mongodb

import (
	"strings"

	"github.com/kpopdotlink/fleetcron/internal/store"
)

// fatalOps are operations whose failure is permanent per spec §7
// (StoreFatal: "index creation or permanent failure"). wrap also treats
// any op whose name starts with "ensure" (including "ensure machine") as
// fatal; everything else wraps as a retriable store.TransientError.
var fatalOps = map[string]bool{
	"ensure machines index":             true,
	"ensure job_runs index":              true,
	"ensure jobs index":                  true,
	"ensure last_online_minute index":    true,
	"ensure commands index":              true,
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if fatalOps[op] || strings.HasPrefix(op, "ensure") {
		return &store.FatalError{Op: op, Err: err}
	}
	return &store.TransientError{Op: op, Err: err}
}
