// Package domain holds the plain data types shared across FleetCron's
// components — machines, jobs, schedules, runs and commands — plus sentinel
// error values for the not-found, claim-lost and no-jobs-due conditions.
package domain

import "errors"

var (
	ErrMachineNotFound = errors.New("machine not found")
	ErrJobNotFound     = errors.New("job not found")
	ErrRunNotFound     = errors.New("job run not found")
	ErrClaimLost       = errors.New("run already claimed by another machine")
	ErrNoJobsDue       = errors.New("no jobs due for this minute")
)
