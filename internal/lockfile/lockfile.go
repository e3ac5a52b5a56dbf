// Package lockfile enforces the one-agent-per-machine invariant with an
// advisory flock on ~/.fleetcron/agent.lock (spec §5 "Scheduling model").
// Grounded on original_source/agent.py's fcntl.flock branch; the Windows
// msvcrt.locking branch is not ported — this codebase targets POSIX fleets,
// same as the teacher, which never branches on GOOS.
package lockfile

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Lock holds an open, flock'd file. Release closes it and drops the lock.
type Lock struct {
	f *os.File
}

// Acquire opens (creating if needed) path and takes a non-blocking
// exclusive flock. It returns an error immediately if another process
// already holds the lock — never blocks.
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("another agent instance already holds %s: %w", path, err)
	}

	return &Lock{f: f}, nil
}

// Release drops the lock and closes the underlying file.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	if err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN); err != nil {
		l.f.Close()
		return fmt.Errorf("unlock: %w", err)
	}
	return l.f.Close()
}
